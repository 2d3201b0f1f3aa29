// Package middleware sits between the stream and downstream consumers.
package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"TradeSync/internal/domain/models"
	domrepo "TradeSync/internal/domain/repository"
	"TradeSync/internal/service/ratelimit"
)

// QuotePipeline validates, throttles and forwards accepted quote updates
// to a Publisher, buffering when downstream is unavailable.
type QuotePipeline struct {
	pub     domrepo.Publisher
	metrics domrepo.Metrics
	limiter *ratelimit.Limiter
	maxRPS  int
	bufSize int
	bufCh   chan *models.QuoteUpdate
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex
}

type PipelineOption func(*QuotePipeline)

// WithMaxRPS sets the max accepted quotes per second per symbol.
func WithMaxRPS(n int) PipelineOption {
	return func(p *QuotePipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the temporary buffer size for downstream outages.
func WithBufferSize(n int) PipelineOption {
	return func(p *QuotePipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// NewQuotePipeline creates a pipeline in front of pub.
func NewQuotePipeline(pub domrepo.Publisher, metrics domrepo.Metrics, opts ...PipelineOption) *QuotePipeline {
	p := &QuotePipeline{
		pub:     pub,
		metrics: metrics,
		limiter: ratelimit.New(),
		maxRPS:  20,
		bufSize: 1000,
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.QuoteUpdate, p.bufSize)
	return p
}

// Start launches background flushing of buffered quotes.
func (p *QuotePipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case q := <-p.bufCh:
				if q == nil {
					continue
				}
				if err := p.pub.Publish(ctx, q); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					select {
					case p.bufCh <- q:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *QuotePipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates, throttles and forwards a quote, buffering on
// downstream failure. Throttled quotes are dropped, not errors.
func (p *QuotePipeline) Process(ctx context.Context, q *models.QuoteUpdate) error {
	start := time.Now()
	if err := validateQuote(q); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if !p.limiter.Allow(q.Symbol, float64(p.maxRPS), float64(p.maxRPS)) {
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}

	if err := p.pub.Publish(ctx, q); err != nil {
		p.metrics.RecordError("pipeline_publish")
		select {
		case p.bufCh <- q:
			p.metrics.RecordLatency("pipeline_buffer_depth", float64(len(p.bufCh)))
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func validateQuote(q *models.QuoteUpdate) error {
	if q == nil {
		return fmt.Errorf("quote nil")
	}
	if q.Symbol == "" {
		return fmt.Errorf("symbol empty")
	}
	if q.Price <= 0 {
		return fmt.Errorf("price invalid")
	}
	if q.Size < 0 {
		return fmt.Errorf("negative size")
	}
	return nil
}
