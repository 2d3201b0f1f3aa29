package di

import (
	"fmt"

	"TradeSync/internal/domain/repository"
	"TradeSync/internal/handler/api"
	mid "TradeSync/internal/middleware"
	internalrepo "TradeSync/internal/repository"
	"TradeSync/internal/service/backend"
	"TradeSync/internal/service/stream"
	"TradeSync/internal/usecase"
	"TradeSync/pkg/cache"
	"TradeSync/pkg/config"
	xhttp "TradeSync/pkg/http"
	pkgkafka "TradeSync/pkg/kafka"
	"TradeSync/pkg/logger"
	"TradeSync/pkg/metrics"
	"TradeSync/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideBus creates the stream event bus.
func ProvideBus(log *logger.Logger) *stream.Bus {
	return stream.NewBus(log)
}

// ProvideTokenSource yields the configured stream auth token.
func ProvideTokenSource(cfg *config.Config) repository.TokenSource {
	return stream.StaticTokenSource(cfg.Auth.Token)
}

// ProvideGateway creates the WebSocket gateway client.
func ProvideGateway(cfg *config.Config, bus *stream.Bus, tokens repository.TokenSource, m repository.Metrics, log *logger.Logger) *stream.Gateway {
	var opts []stream.Option
	if cfg.Gateway.PingInterval > 0 {
		opts = append(opts, stream.WithPingInterval(cfg.Gateway.PingInterval))
	}
	if cfg.Gateway.ReconnectMin > 0 && cfg.Gateway.ReconnectMax > 0 {
		opts = append(opts, stream.WithReconnectBackoff(cfg.Gateway.ReconnectMin, cfg.Gateway.ReconnectMax))
	}
	return stream.NewGateway(cfg.Gateway.URL, bus, tokens, m, log, opts...)
}

// ProvideRegistry creates the subscription registry bound to the gateway.
func ProvideRegistry(gw *stream.Gateway, bus *stream.Bus, log *logger.Logger) *stream.Registry {
	return stream.NewRegistry(gw, bus, log)
}

// ProvideCache creates the snapshot cache backend per config.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	switch cfg.Cache.Backend {
	case "redis":
		c, err := cache.NewRedisCache(
			cache.WithRedisHost(cfg.Cache.Redis.Host),
			cache.WithRedisPort(cfg.Cache.Redis.Port),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
			cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return c, nil
	default:
		var opts []cache.MemoryOption
		if cfg.Cache.Memory.MaxSize > 0 {
			opts = append(opts, cache.WithMemoryMaxSize(cfg.Cache.Memory.MaxSize))
		}
		return cache.NewMemoryCache(opts...), nil
	}
}

// ProvideTradingAPI creates the backend REST client.
func ProvideTradingAPI(cfg *config.Config, c cache.Service, log *logger.Logger) repository.TradingAPI {
	return backend.New(cfg.Backend.BaseURL, cfg.Backend.Timeout, log,
		backend.WithCache(c),
		backend.WithToken(cfg.Auth.Token),
		backend.WithChartTTL(cfg.Cache.TTL),
	)
}

// ProvideNotifier creates the transient notification channel.
func ProvideNotifier() *usecase.Notifier {
	return usecase.NewNotifier(usecase.DefaultNotificationTTL)
}

// ProvideSessionManager creates the chart session manager.
func ProvideSessionManager(tapi repository.TradingAPI, registry *stream.Registry, bus *stream.Bus, notifier *usecase.Notifier, log *logger.Logger) *usecase.SessionManager {
	return usecase.NewSessionManager(tapi, registry, bus, notifier, log)
}

// Relay bundles the optional Kafka quote relay with its publisher so
// both can be shut down together.
type Relay struct {
	Relay     *usecase.QuoteRelay
	Publisher repository.Publisher
}

// ProvideRelay creates the config-gated Kafka quote relay. Returns an
// empty bundle when the relay is disabled.
func ProvideRelay(cfg *config.Config, bus *stream.Bus, m repository.Metrics, log *logger.Logger) (*Relay, error) {
	if !cfg.Relay.Enabled {
		return &Relay{}, nil
	}

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Relay.Brokers),
		pkgkafka.WithCompression(cfg.Relay.Producer.Compression),
		pkgkafka.WithRequiredAcks(cfg.Relay.Producer.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Relay.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Relay.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Relay.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Relay.Producer.WriteTimeout, cfg.Relay.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Relay.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Relay.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	pub := internalrepo.NewKafkaQuotePublisher(producer, cfg.Relay.Topic)
	pipe := mid.NewQuotePipeline(pub, m,
		mid.WithMaxRPS(cfg.Relay.MaxRPS),
		mid.WithBufferSize(cfg.Relay.BufferSize),
	)
	return &Relay{Relay: usecase.NewQuoteRelay(pipe, bus, log), Publisher: pub}, nil
}

// ProvideHandler creates the HTTP API handler.
func ProvideHandler(log *logger.Logger, sessions *usecase.SessionManager, notifier *usecase.Notifier, tapi repository.TradingAPI, gw *stream.Gateway, registry *stream.Registry) xhttp.Handler {
	return api.NewHandler(log, sessions, notifier, api.NewTradingDeps(tapi, gw, registry))
}

// ProvideApp assembles the application.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	gw *stream.Gateway,
	sessions *usecase.SessionManager,
	relay *Relay,
	handler xhttp.Handler,
) *server.App {
	return server.New(cfg, log, gw, sessions, relay.Relay, relay.Publisher, handler)
}
