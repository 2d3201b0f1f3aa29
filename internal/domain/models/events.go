package models

import "encoding/json"

// EventKind enumerates the named events carried by the stream gateway.
// The string values match the wire-level "type" field.
type EventKind string

const (
	EventConnected       EventKind = "connected"
	EventDisconnected    EventKind = "disconnected"
	EventAuthenticated   EventKind = "authenticated"
	EventQuoteUpdate     EventKind = "quote_update"
	EventAccountUpdate   EventKind = "account_update"
	EventPositionsUpdate EventKind = "positions_update"
	EventPositionUpdate  EventKind = "position_update"
	EventSubscribed      EventKind = "subscribed"
	EventUnsubscribed    EventKind = "unsubscribed"
	EventError           EventKind = "error"
)

// StreamEvent is the typed payload dispatched through the event bus.
// Exactly the fields matching Kind are populated; the rest stay zero.
type StreamEvent struct {
	Kind EventKind

	// Connected state, set for EventConnected / EventDisconnected.
	Connected bool

	Quote     *QuoteUpdate // EventQuoteUpdate
	Position  *Position    // EventPositionUpdate
	Positions []Position   // EventPositionsUpdate
	Account   *Account     // EventAccountUpdate

	// Symbol acknowledged by EventSubscribed / EventUnsubscribed.
	Symbol string

	// Err carries the message of an EventError. Errors are data to
	// listeners, never thrown.
	Err string

	// Raw is the undecoded frame payload, kept for listeners that need
	// fields outside the typed projection.
	Raw json.RawMessage
}
