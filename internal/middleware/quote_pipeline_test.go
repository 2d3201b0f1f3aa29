package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"TradeSync/internal/domain/models"
)

type capturePublisher struct {
	mu     sync.Mutex
	quotes []*models.QuoteUpdate
	err    error
}

func (p *capturePublisher) Publish(_ context.Context, q *models.QuoteUpdate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.quotes = append(p.quotes, q)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.quotes)
}

type nopMetrics struct{}

func (nopMetrics) RecordEvent(string)              {}
func (nopMetrics) RecordReconnect()                {}
func (nopMetrics) RecordError(string)              {}
func (nopMetrics) RecordLastPrice(string, float64) {}
func (nopMetrics) RecordLatency(string, float64)   {}

func TestPipelineForwardsValidQuote(t *testing.T) {
	pub := &capturePublisher{}
	p := NewQuotePipeline(pub, nopMetrics{})

	err := p.Process(context.Background(), &models.QuoteUpdate{Symbol: "AAPL", Price: 101.5})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if pub.count() != 1 {
		t.Fatalf("published = %d, want 1", pub.count())
	}
}

func TestPipelineRejectsInvalidQuote(t *testing.T) {
	pub := &capturePublisher{}
	p := NewQuotePipeline(pub, nopMetrics{})
	ctx := context.Background()

	cases := []*models.QuoteUpdate{
		nil,
		{Symbol: "", Price: 10},
		{Symbol: "AAPL", Price: 0},
		{Symbol: "AAPL", Price: 10, Size: -1},
	}
	for i, q := range cases {
		if err := p.Process(ctx, q); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
	if pub.count() != 0 {
		t.Fatalf("invalid quotes reached publisher: %d", pub.count())
	}
}

func TestPipelineThrottlesPerSymbol(t *testing.T) {
	pub := &capturePublisher{}
	p := NewQuotePipeline(pub, nopMetrics{}, WithMaxRPS(2))
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := p.Process(ctx, &models.QuoteUpdate{Symbol: "AAPL", Price: 100}); err != nil {
			t.Fatalf("Process: %v", err)
		}
	}
	// bucket capacity 2, negligible refill inside the loop
	if got := pub.count(); got > 3 {
		t.Fatalf("throttle let %d quotes through", got)
	}

	// another symbol has its own bucket
	if err := p.Process(ctx, &models.QuoteUpdate{Symbol: "TSLA", Price: 200}); err != nil {
		t.Fatalf("Process: %v", err)
	}
}

func TestPipelineBuffersOnPublishFailure(t *testing.T) {
	pub := &capturePublisher{err: errors.New("broker down")}
	p := NewQuotePipeline(pub, nopMetrics{}, WithBufferSize(8))

	err := p.Process(context.Background(), &models.QuoteUpdate{Symbol: "AAPL", Price: 100})
	if err == nil {
		t.Fatal("expected downstream error")
	}

	// downstream recovers; the flush loop drains the buffer
	pub.mu.Lock()
	pub.err = nil
	pub.mu.Unlock()

	p.Start(context.Background())
	defer p.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for pub.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("buffered quote never flushed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
