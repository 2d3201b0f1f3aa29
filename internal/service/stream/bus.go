// Package stream owns the persistent streaming connection to the
// brokerage backend: the websocket gateway, the typed event bus inbound
// frames are dispatched through, and the per-symbol subscription
// registry.
package stream

import (
	"sync"

	"TradeSync/internal/domain/models"
	"TradeSync/pkg/logger"
)

// Handler receives a dispatched stream event.
type Handler func(models.StreamEvent)

// Subscription identifies one registered handler so it can be removed.
// The zero value is not a valid subscription.
type Subscription struct {
	kind models.EventKind
	id   int
}

type busEntry struct {
	id int
	fn Handler
}

// Bus is a typed publish/subscribe dispatcher over the fixed set of
// stream event kinds. Dispatch is synchronous and in registration
// order; a panicking handler does not stop later handlers.
//
// Subscribing to EventConnected while connected (or EventDisconnected
// while known-disconnected) replays the current state immediately, so
// late subscribers are not blind to an already-established connection.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[models.EventKind][]busEntry

	// connState is nil until the first transport event, then tracks
	// the last published connected/disconnected state.
	connState *bool

	log *logger.Logger
}

// NewBus creates an empty event bus.
func NewBus(log *logger.Logger) *Bus {
	return &Bus{
		subs: make(map[models.EventKind][]busEntry),
		log:  log,
	}
}

// Subscribe registers fn for kind and returns a token for Unsubscribe.
func (b *Bus) Subscribe(kind models.EventKind, fn Handler) Subscription {
	b.mu.Lock()
	b.nextID++
	sub := Subscription{kind: kind, id: b.nextID}
	b.subs[kind] = append(b.subs[kind], busEntry{id: sub.id, fn: fn})

	var replay *models.StreamEvent
	if b.connState != nil {
		if kind == models.EventConnected && *b.connState {
			replay = &models.StreamEvent{Kind: models.EventConnected, Connected: true}
		}
		if kind == models.EventDisconnected && !*b.connState {
			replay = &models.StreamEvent{Kind: models.EventDisconnected, Connected: false}
		}
	}
	b.mu.Unlock()

	if replay != nil {
		b.invoke(busEntry{id: sub.id, fn: fn}, *replay)
	}
	return sub
}

// Unsubscribe removes a previously registered handler. Removing a
// handler twice, or one that was never registered, is a no-op.
func (b *Bus) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.subs[sub.kind]
	for i, e := range entries {
		if e.id == sub.id {
			b.subs[sub.kind] = append(entries[:i:i], entries[i+1:]...)
			return
		}
	}
}

// Publish dispatches evt to every handler registered for its kind, in
// registration order, on the caller's goroutine.
func (b *Bus) Publish(evt models.StreamEvent) {
	b.mu.Lock()
	switch evt.Kind {
	case models.EventConnected:
		state := true
		b.connState = &state
	case models.EventDisconnected:
		state := false
		b.connState = &state
	}
	entries := make([]busEntry, len(b.subs[evt.Kind]))
	copy(entries, b.subs[evt.Kind])
	b.mu.Unlock()

	for _, e := range entries {
		b.invoke(e, evt)
	}
}

// invoke runs one handler, containing panics so a faulty listener
// cannot break dispatch for the rest.
func (b *Bus) invoke(e busEntry, evt models.StreamEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event handler panic",
				logger.String("event", string(evt.Kind)),
				logger.Any("panic", r),
			)
		}
	}()
	e.fn(evt)
}
