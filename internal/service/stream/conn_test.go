package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"TradeSync/internal/domain/models"
	"TradeSync/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordEvent(string)              {}
func (nopMetrics) RecordReconnect()                {}
func (nopMetrics) RecordError(string)              {}
func (nopMetrics) RecordLastPrice(string, float64) {}
func (nopMetrics) RecordLatency(string, float64)   {}

// testGatewayServer is a minimal socket gateway: it records inbound
// control frames and lets the test push raw frames to the client.
type testGatewayServer struct {
	srv      *httptest.Server
	inbound  chan frame
	outbound chan []byte
}

func newTestGatewayServer(t *testing.T) *testGatewayServer {
	t.Helper()
	s := &testGatewayServer{
		inbound:  make(chan frame, 16),
		outbound: make(chan []byte, 16),
	}
	upgrader := websocket.Upgrader{}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				var f frame
				if err := conn.ReadJSON(&f); err != nil {
					return
				}
				s.inbound <- f
			}
		}()
		for {
			select {
			case msg := <-s.outbound:
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *testGatewayServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

func waitEvent(t *testing.T, ch <-chan models.StreamEvent, kind models.EventKind) models.StreamEvent {
	t.Helper()
	select {
	case evt := <-ch:
		if evt.Kind != kind {
			t.Fatalf("got event %s, want %s", evt.Kind, kind)
		}
		return evt
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for %s", kind)
		return models.StreamEvent{}
	}
}

func TestGatewayConnectAndDispatch(t *testing.T) {
	srv := newTestGatewayServer(t)
	bus := NewBus(logger.Nop())

	events := make(chan models.StreamEvent, 16)
	bus.Subscribe(models.EventConnected, func(e models.StreamEvent) { events <- e })

	quotes := make(chan models.StreamEvent, 16)
	bus.Subscribe(models.EventQuoteUpdate, func(e models.StreamEvent) { quotes <- e })

	g := NewGateway(srv.wsURL(), bus, nil, nopMetrics{}, logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer g.Close()

	if err := g.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	// Second start is a no-op, not a second dial.
	if err := g.Start(ctx); err != nil {
		t.Fatalf("second start: %v", err)
	}

	waitEvent(t, events, models.EventConnected)

	srv.outbound <- []byte(`{"type":"quote_update","symbol":"AAPL","price":101.5}`)
	evt := waitEvent(t, quotes, models.EventQuoteUpdate)
	if evt.Quote == nil || evt.Quote.Symbol != "AAPL" || evt.Quote.Price != 101.5 {
		t.Fatalf("unexpected quote payload: %+v", evt.Quote)
	}
}

func TestGatewayControlMessagesUppercase(t *testing.T) {
	srv := newTestGatewayServer(t)
	bus := NewBus(logger.Nop())

	events := make(chan models.StreamEvent, 16)
	bus.Subscribe(models.EventConnected, func(e models.StreamEvent) { events <- e })

	g := NewGateway(srv.wsURL(), bus, nil, nopMetrics{}, logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer g.Close()

	if err := g.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitEvent(t, events, models.EventConnected)

	if err := g.SubscribeSymbol("tsla"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := g.Authenticate("tok-123"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if err := g.UnsubscribeSymbol("tsla"); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}

	want := []frame{
		{Type: "subscribe_symbol", Symbol: "TSLA"},
		{Type: "authenticate", Token: "tok-123"},
		{Type: "unsubscribe_symbol", Symbol: "TSLA"},
	}
	for _, w := range want {
		select {
		case got := <-srv.inbound:
			if got != w {
				t.Fatalf("got frame %+v, want %+v", got, w)
			}
		case <-time.After(3 * time.Second):
			t.Fatalf("timed out waiting for %s frame", w.Type)
		}
	}
}

func TestGatewaySendWhileDisconnected(t *testing.T) {
	bus := NewBus(logger.Nop())
	g := NewGateway("ws://127.0.0.1:1/ws", bus, nil, nopMetrics{}, logger.Nop())

	if err := g.SubscribeSymbol("AAPL"); err == nil {
		t.Fatal("expected error sending on a connectionless gateway")
	}
}
