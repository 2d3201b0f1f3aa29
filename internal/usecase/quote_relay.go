package usecase

import (
	"context"

	"TradeSync/internal/domain/models"
	"TradeSync/internal/middleware"
	"TradeSync/internal/service/stream"
	"TradeSync/pkg/logger"
)

// QuoteRelay republishes accepted quote updates to downstream consumers
// through the validation/throttle/buffer pipeline. It is optional and
// config-gated; when disabled it is simply never constructed.
type QuoteRelay struct {
	pipeline *middleware.QuotePipeline
	bus      *stream.Bus
	log      *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	sub    stream.Subscription
}

// NewQuoteRelay creates a relay; Start attaches it to the bus.
func NewQuoteRelay(pipeline *middleware.QuotePipeline, bus *stream.Bus, log *logger.Logger) *QuoteRelay {
	return &QuoteRelay{pipeline: pipeline, bus: bus, log: log}
}

// Start begins relaying quote updates.
func (r *QuoteRelay) Start(ctx context.Context) {
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.pipeline.Start(r.ctx)
	r.sub = r.bus.Subscribe(models.EventQuoteUpdate, r.onQuote)
	r.log.Info("quote relay started")
}

// Stop detaches from the bus and stops the pipeline.
func (r *QuoteRelay) Stop() {
	r.bus.Unsubscribe(r.sub)
	r.pipeline.Stop()
	if r.cancel != nil {
		r.cancel()
	}
	r.log.Info("quote relay stopped")
}

func (r *QuoteRelay) onQuote(evt models.StreamEvent) {
	if evt.Quote == nil {
		return
	}
	if err := r.pipeline.Process(r.ctx, evt.Quote); err != nil {
		r.log.Debug("quote relay process", logger.Error(err))
	}
}
