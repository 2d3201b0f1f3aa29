package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"TradeSync/internal/domain/repository"
	"TradeSync/internal/service/stream"
	"TradeSync/internal/usecase"
	"TradeSync/pkg/config"
	xhttp "TradeSync/pkg/http"
	applogger "TradeSync/pkg/logger"
)

// App encapsulates the application lifecycle: the stream gateway, the
// HTTP surface, the session manager and the optional quote relay.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	gateway    *stream.Gateway
	sessions   *usecase.SessionManager
	relay      *usecase.QuoteRelay
	publisher  repository.Publisher
	handler    xhttp.Handler
	httpServer *xhttp.Server
}

// New creates an App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	gateway *stream.Gateway,
	sessions *usecase.SessionManager,
	relay *usecase.QuoteRelay,
	publisher repository.Publisher,
	handler xhttp.Handler,
) *App {
	return &App{
		cfg:       cfg,
		log:       log,
		gateway:   gateway,
		sessions:  sessions,
		relay:     relay,
		publisher: publisher,
		handler:   handler,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.gateway.Start(ctx); err != nil {
		a.log.Error("gateway start", applogger.Error(err))
		return err
	}
	a.log.Info("stream gateway started", applogger.String("url", a.cfg.Gateway.URL))

	if a.relay != nil {
		a.relay.Start(ctx)
	}

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetrics(a.cfg.Metrics.Enabled),
		xhttp.WithMetricsPath(a.cfg.Metrics.Path),
	)
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start", applogger.Error(err))
		return err
	}
	a.log.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown stops everything in dependency order: sessions release their
// subscriptions before the gateway goes away.
func (a *App) shutdown(ctx context.Context) error {
	a.sessions.Shutdown()

	if a.relay != nil {
		a.relay.Stop()
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn("publisher close", applogger.Error(err))
		}
	}

	if err := a.gateway.Close(); err != nil {
		a.log.Warn("gateway close", applogger.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			a.log.Error("http shutdown", applogger.Error(err))
			return err
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
