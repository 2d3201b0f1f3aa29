package stream

import (
	"strings"
	"sync"

	"TradeSync/internal/domain/models"
	"TradeSync/internal/domain/repository"
	"TradeSync/pkg/logger"
)

// Registry tracks which symbols are of interest to live chart sessions
// and issues subscribe/unsubscribe control messages over the gateway.
//
// Interest is reference counted per symbol so several sessions viewing
// the same instrument share one backend subscription: the subscribe
// message goes out on the 0->1 transition, the unsubscribe on 1->0.
// Over any sequence of mounts, symbol switches and unmounts, subscribes
// and unsubscribes pair 1:1 per symbol.
//
// The backend holds no subscription state across a dropped connection,
// so the registry re-issues every active subscription when the gateway
// reconnects after a drop.
type Registry struct {
	control repository.SymbolControl
	log     *logger.Logger

	mu      sync.Mutex
	counts  map[string]int
	dropped bool // saw a disconnect after being connected
}

// NewRegistry creates a Registry and attaches it to the bus for
// reconnect handling.
func NewRegistry(control repository.SymbolControl, bus *Bus, log *logger.Logger) *Registry {
	r := &Registry{
		control: control,
		log:     log,
		counts:  make(map[string]int),
	}
	bus.Subscribe(models.EventConnected, func(models.StreamEvent) { r.onConnected() })
	bus.Subscribe(models.EventDisconnected, func(models.StreamEvent) { r.onDisconnected() })
	return r
}

// Acquire registers interest in symbol, sending the subscribe control
// message if this is the first interested session.
func (r *Registry) Acquire(symbol string) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return
	}

	r.mu.Lock()
	r.counts[s]++
	first := r.counts[s] == 1
	r.mu.Unlock()

	if first {
		if err := r.control.SubscribeSymbol(s); err != nil {
			// The reconnect path re-issues it once the gateway is back.
			r.log.Warn("subscribe send failed", logger.String("symbol", s), logger.Error(err))
		}
	}
}

// Release drops one session's interest in symbol, sending the
// unsubscribe control message when no session is left. Releasing a
// symbol that was never acquired is a no-op.
func (r *Registry) Release(symbol string) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return
	}

	r.mu.Lock()
	n, ok := r.counts[s]
	if !ok {
		r.mu.Unlock()
		return
	}
	n--
	last := n == 0
	if last {
		delete(r.counts, s)
	} else {
		r.counts[s] = n
	}
	r.mu.Unlock()

	if last {
		if err := r.control.UnsubscribeSymbol(s); err != nil {
			r.log.Warn("unsubscribe send failed", logger.String("symbol", s), logger.Error(err))
		}
	}
}

// Active returns the symbols currently held, for diagnostics.
func (r *Registry) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.counts))
	for s := range r.counts {
		out = append(out, s)
	}
	return out
}

func (r *Registry) onDisconnected() {
	r.mu.Lock()
	r.dropped = true
	r.mu.Unlock()
}

// onConnected re-issues active subscriptions after a dropped
// connection. The very first connect does nothing: sessions subscribe
// themselves when their snapshot lands.
func (r *Registry) onConnected() {
	r.mu.Lock()
	if !r.dropped {
		r.mu.Unlock()
		return
	}
	r.dropped = false
	symbols := make([]string, 0, len(r.counts))
	for s := range r.counts {
		symbols = append(symbols, s)
	}
	r.mu.Unlock()

	for _, s := range symbols {
		if err := r.control.SubscribeSymbol(s); err != nil {
			r.log.Warn("resubscribe send failed", logger.String("symbol", s), logger.Error(err))
		}
	}
	if len(symbols) > 0 {
		r.log.Info("resubscribed after reconnect", logger.Strings("symbols", symbols))
	}
}
