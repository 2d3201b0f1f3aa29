package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"TradeSync/internal/domain/models"
	"TradeSync/internal/domain/repository"
	"TradeSync/pkg/logger"
)

// frame is the wire envelope for both directions: a named type plus a
// flat payload.
type frame struct {
	Type   string `json:"type"`
	Token  string `json:"token,omitempty"`
	Symbol string `json:"symbol,omitempty"`
}

// Gateway maintains the single long-lived websocket connection to the
// backend's socket gateway. It dials lazily on Start, reconnects with
// capped backoff, re-authenticates whenever the connection is
// (re)established while a token is known, and publishes every inbound
// named event to the Bus. Transport errors are published as error
// events, never returned to listeners.
type Gateway struct {
	url          string
	pingInterval time.Duration
	reconnectMin time.Duration
	reconnectMax time.Duration
	handshake    time.Duration

	bus     *Bus
	tokens  repository.TokenSource
	metrics repository.Metrics
	log     *logger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	started   bool
	lastToken string
	cancel    context.CancelFunc

	writeMu sync.Mutex
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithPingInterval sets the keepalive ping interval.
func WithPingInterval(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.pingInterval = d
		}
	}
}

// WithReconnectBackoff sets the reconnect backoff bounds.
func WithReconnectBackoff(min, max time.Duration) Option {
	return func(g *Gateway) {
		if min > 0 {
			g.reconnectMin = min
		}
		if max > 0 {
			g.reconnectMax = max
		}
	}
}

// NewGateway creates a Gateway talking to url. Nothing is dialed until
// Start.
func NewGateway(url string, bus *Bus, tokens repository.TokenSource, metrics repository.Metrics, log *logger.Logger, opts ...Option) *Gateway {
	g := &Gateway{
		url:          url,
		pingInterval: 30 * time.Second,
		reconnectMin: time.Second,
		reconnectMax: 30 * time.Second,
		handshake:    10 * time.Second,
		bus:          bus,
		tokens:       tokens,
		metrics:      metrics,
		log:          log,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Start launches the connect/read/reconnect loop. It is idempotent:
// the connection is established exactly once per process lifetime no
// matter how many callers invoke it.
func (g *Gateway) Start(ctx context.Context) error {
	g.mu.Lock()
	if g.started {
		g.mu.Unlock()
		return nil
	}
	g.started = true
	runCtx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	g.mu.Unlock()

	go g.run(runCtx)
	return nil
}

// run dials, reads until failure, then backs off and redials. Exits
// only when ctx is cancelled.
func (g *Gateway) run(ctx context.Context) {
	backoff := g.reconnectMin
	first := true
	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := g.dial(ctx)
		if err != nil {
			g.metrics.RecordError("stream_dial")
			g.bus.Publish(models.StreamEvent{Kind: models.EventError, Err: err.Error()})
			g.log.Warn("gateway dial failed",
				logger.Error(err),
				logger.Duration("retry_in", backoff),
			)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, g.reconnectMax)
			continue
		}
		backoff = g.reconnectMin

		if !first {
			g.metrics.RecordReconnect()
		}
		first = false

		g.mu.Lock()
		g.conn = conn
		g.connected = true
		token := g.lastToken
		g.mu.Unlock()

		g.bus.Publish(models.StreamEvent{Kind: models.EventConnected, Connected: true})
		g.log.Info("gateway connected", logger.String("url", g.url))

		// Re-authenticate on every (re)connect while a token is known.
		if g.tokens != nil {
			if t, ok := g.tokens.Token(); ok {
				token = t
			}
		}
		if token != "" {
			if err := g.Authenticate(token); err != nil {
				g.log.Warn("gateway authenticate failed", logger.Error(err))
			}
		}

		pingCtx, stopPing := context.WithCancel(ctx)
		go g.pingLoop(pingCtx, conn)

		g.readLoop(ctx, conn)
		stopPing()

		g.mu.Lock()
		g.conn = nil
		g.connected = false
		g.mu.Unlock()

		g.bus.Publish(models.StreamEvent{Kind: models.EventDisconnected, Connected: false})
		g.log.Warn("gateway disconnected")
	}
}

func (g *Gateway) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: g.handshake}
	conn, _, err := dialer.DialContext(ctx, g.url, nil)
	if err != nil {
		return nil, fmt.Errorf("gateway dial %s: %w", g.url, err)
	}
	return conn, nil
}

func (g *Gateway) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(g.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.writeMu.Lock()
			_ = conn.WriteMessage(websocket.PingMessage, nil)
			g.writeMu.Unlock()
		}
	}
}

// readLoop consumes frames until the connection breaks or ctx ends.
func (g *Gateway) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		if ctx.Err() != nil {
			return
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				g.metrics.RecordError("stream_read")
			}
			return
		}
		g.dispatch(raw)
	}
}

// dispatch decodes one inbound frame into its typed event and publishes
// it. Unknown frame types are ignored.
func (g *Gateway) dispatch(raw []byte) {
	var env frame
	if err := json.Unmarshal(raw, &env); err != nil {
		g.metrics.RecordError("stream_decode")
		return
	}

	kind := models.EventKind(env.Type)
	evt := models.StreamEvent{Kind: kind, Raw: raw}

	switch kind {
	case models.EventQuoteUpdate:
		var q models.QuoteUpdate
		if err := json.Unmarshal(raw, &q); err != nil || q.Symbol == "" {
			g.metrics.RecordError("stream_decode")
			return
		}
		evt.Quote = &q
		g.metrics.RecordLastPrice(q.Symbol, q.Price)

	case models.EventPositionUpdate:
		var p models.Position
		if err := json.Unmarshal(raw, &p); err != nil || p.Symbol == "" {
			g.metrics.RecordError("stream_decode")
			return
		}
		evt.Position = &p

	case models.EventPositionsUpdate:
		var body struct {
			Positions []models.Position `json:"positions"`
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			g.metrics.RecordError("stream_decode")
			return
		}
		evt.Positions = body.Positions

	case models.EventAccountUpdate:
		var body struct {
			Account *models.Account `json:"account"`
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			g.metrics.RecordError("stream_decode")
			return
		}
		evt.Account = body.Account

	case models.EventSubscribed, models.EventUnsubscribed:
		evt.Symbol = strings.ToUpper(env.Symbol)

	case models.EventError:
		var body struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(raw, &body)
		evt.Err = body.Message

	case models.EventAuthenticated:
		// no payload beyond the type

	default:
		return
	}

	g.metrics.RecordEvent(env.Type)
	g.bus.Publish(evt)
}

// Authenticate sends the authenticate control message and remembers the
// token for the next reconnect.
func (g *Gateway) Authenticate(token string) error {
	g.mu.Lock()
	g.lastToken = token
	g.mu.Unlock()
	return g.send(frame{Type: "authenticate", Token: token})
}

// SubscribeSymbol sends a subscribe control message. The symbol is
// upper-cased before transmission.
func (g *Gateway) SubscribeSymbol(symbol string) error {
	return g.send(frame{Type: "subscribe_symbol", Symbol: strings.ToUpper(symbol)})
}

// UnsubscribeSymbol sends an unsubscribe control message.
func (g *Gateway) UnsubscribeSymbol(symbol string) error {
	return g.send(frame{Type: "unsubscribe_symbol", Symbol: strings.ToUpper(symbol)})
}

func (g *Gateway) send(f frame) error {
	g.mu.Lock()
	conn := g.conn
	g.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("gateway not connected")
	}

	g.writeMu.Lock()
	defer g.writeMu.Unlock()
	if err := conn.WriteJSON(f); err != nil {
		return fmt.Errorf("gateway send %s: %w", f.Type, err)
	}
	return nil
}

// IsConnected reports current transport state.
func (g *Gateway) IsConnected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.connected
}

// Close tears the connection down, best effort.
func (g *Gateway) Close() error {
	g.mu.Lock()
	cancel := g.cancel
	conn := g.conn
	g.conn = nil
	g.connected = false
	g.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		return conn.Close()
	}
	return nil
}

var _ repository.StreamGateway = (*Gateway)(nil)
