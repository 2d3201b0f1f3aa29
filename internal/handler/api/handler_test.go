package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"TradeSync/internal/domain/models"
	"TradeSync/internal/service/stream"
	"TradeSync/internal/usecase"
	"TradeSync/pkg/logger"

	"github.com/labstack/echo/v4"
)

type fakeTradingAPI struct {
	chart     map[string]*models.ChartData
	account   *models.Account
	positions []models.Position
	orders    []models.Order
	canceled  []string
}

func (f *fakeTradingAPI) GetChartData(_ context.Context, symbol, _ string, _ int) (*models.ChartData, error) {
	if d, ok := f.chart[symbol]; ok {
		return d, nil
	}
	return &models.ChartData{Bars: []models.Bar{}}, nil
}

func (f *fakeTradingAPI) CreateOrder(_ context.Context, req *models.OrderRequest) (*models.Order, error) {
	return &models.Order{OrderID: "o-1", Symbol: req.Symbol, Qty: req.Qty, Side: req.Side}, nil
}

func (f *fakeTradingAPI) GetAccount(context.Context) (*models.Account, error) {
	return f.account, nil
}

func (f *fakeTradingAPI) GetPositions(context.Context) ([]models.Position, error) {
	return f.positions, nil
}

func (f *fakeTradingAPI) GetOrders(context.Context, string) ([]models.Order, error) {
	return f.orders, nil
}

func (f *fakeTradingAPI) CancelOrder(_ context.Context, id string) error {
	f.canceled = append(f.canceled, id)
	return nil
}

func (f *fakeTradingAPI) GetQuote(_ context.Context, symbol string) (*models.Quote, error) {
	return &models.Quote{Symbol: symbol, Price: 42}, nil
}

type fakeGateway struct{ connected bool }

func (g *fakeGateway) Start(context.Context) error    { return nil }
func (g *fakeGateway) Authenticate(string) error      { return nil }
func (g *fakeGateway) SubscribeSymbol(string) error   { return nil }
func (g *fakeGateway) UnsubscribeSymbol(string) error { return nil }
func (g *fakeGateway) IsConnected() bool              { return g.connected }
func (g *fakeGateway) Close() error                   { return nil }

func newTestHandler(t *testing.T) (*echo.Echo, *fakeTradingAPI) {
	t.Helper()

	api := &fakeTradingAPI{
		chart: map[string]*models.ChartData{
			"AAPL": {
				Bars:  []models.Bar{{Timestamp: time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC), Close: 101}},
				Quote: &models.Quote{Symbol: "AAPL", Price: 101},
			},
		},
		account:   &models.Account{AccountID: "acct-1", Cash: 1000},
		positions: []models.Position{{Symbol: "AAPL", Qty: 2}},
	}

	log := logger.Nop()
	bus := stream.NewBus(log)
	gw := &fakeGateway{connected: true}
	registry := stream.NewRegistry(gw, bus, log)
	notifier := usecase.NewNotifier(time.Minute)
	sessions := usecase.NewSessionManager(api, registry, bus, notifier, log)

	h := NewHandler(log, sessions, notifier, NewTradingDeps(api, gw, registry))
	e := echo.New()
	h.RegisterRoutes(e)
	return e, api
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var payload map[string]interface{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
			t.Fatalf("invalid json response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, payload
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	e, _ := newTestHandler(t)

	rec, payload := doJSON(t, e, http.MethodPost, "/api/sessions", `{"symbol":"aapl"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("create status = %d body=%s", rec.Code, rec.Body.String())
	}
	data := payload["data"].(map[string]interface{})
	if data["symbol"] != "AAPL" || data["state"] != "ready" {
		t.Fatalf("unexpected session %v", data)
	}
	id := int(data["id"].(float64))

	rec, payload = doJSON(t, e, http.MethodGet, "/api/sessions", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	list := payload["data"].(map[string]interface{})
	if int(list["total"].(float64)) != 1 {
		t.Fatalf("list total = %v", list["total"])
	}

	rec, _ = doJSON(t, e, http.MethodDelete, "/api/sessions/1", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec, _ = doJSON(t, e, http.MethodGet, "/api/sessions/1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	_, payload = doJSON(t, e, http.MethodGet, "/api/sessions/1", "")
	if int(payload["status"].(float64)) != http.StatusNotFound {
		t.Fatalf("expected 404 envelope after unmount, got %v", payload["status"])
	}
	_ = id
}

func TestCreateSessionValidation(t *testing.T) {
	e, _ := newTestHandler(t)

	_, payload := doJSON(t, e, http.MethodPost, "/api/sessions", `{}`)
	if int(payload["status"].(float64)) != http.StatusBadRequest {
		t.Fatalf("expected 400 envelope, got %v", payload["status"])
	}
}

func TestDraftFlowOverHTTP(t *testing.T) {
	e, _ := newTestHandler(t)

	doJSON(t, e, http.MethodPost, "/api/sessions", `{"symbol":"AAPL"}`)

	rec, payload := doJSON(t, e, http.MethodPost, "/api/sessions/1/draft", `{"bar_index":0}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("open draft status = %d body=%s", rec.Code, rec.Body.String())
	}
	draft := payload["data"].(map[string]interface{})
	if draft["symbol"] != "AAPL" || draft["limit_price"].(float64) != 101 {
		t.Fatalf("unexpected draft %v", draft)
	}

	// invalid qty sticks to the draft, nothing submitted
	doJSON(t, e, http.MethodPut, "/api/sessions/1/draft", `{"qty":0,"side":"buy","order_type":"limit","limit_price":101}`)
	_, payload = doJSON(t, e, http.MethodPost, "/api/sessions/1/draft/submit", "")
	view := payload["data"].(map[string]interface{})
	d := view["draft"].(map[string]interface{})
	if d["error"] != "quantity must be greater than zero" {
		t.Fatalf("draft error = %v", d["error"])
	}

	// fix and submit
	doJSON(t, e, http.MethodPut, "/api/sessions/1/draft", `{"qty":2,"side":"buy","order_type":"limit","limit_price":101}`)
	_, payload = doJSON(t, e, http.MethodPost, "/api/sessions/1/draft/submit", "")
	view = payload["data"].(map[string]interface{})
	if view["draft"] != nil {
		t.Fatalf("draft survived successful submit: %v", view["draft"])
	}

	// success notification is visible
	_, payload = doJSON(t, e, http.MethodGet, "/api/notification", "")
	note := payload["data"].(map[string]interface{})
	if note["severity"] != "success" {
		t.Fatalf("notification = %v", note)
	}

	rec, _ = doJSON(t, e, http.MethodDelete, "/api/notification", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("clear notification status = %d", rec.Code)
	}
}

func TestTradingPassthroughs(t *testing.T) {
	e, api := newTestHandler(t)

	_, payload := doJSON(t, e, http.MethodGet, "/api/account", "")
	acct := payload["data"].(map[string]interface{})
	if acct["account_id"] != "acct-1" {
		t.Fatalf("account = %v", acct)
	}

	_, payload = doJSON(t, e, http.MethodGet, "/api/positions", "")
	list := payload["data"].(map[string]interface{})
	if int(list["total"].(float64)) != 1 {
		t.Fatalf("positions total = %v", list["total"])
	}

	_, payload = doJSON(t, e, http.MethodGet, "/api/orders?status=bogus", "")
	if int(payload["status"].(float64)) != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad status filter, got %v", payload["status"])
	}

	rec, _ := doJSON(t, e, http.MethodDelete, "/api/orders/o-7", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("cancel status = %d", rec.Code)
	}
	if len(api.canceled) != 1 || api.canceled[0] != "o-7" {
		t.Fatalf("canceled = %v", api.canceled)
	}

	_, payload = doJSON(t, e, http.MethodGet, "/api/quote/AAPL", "")
	quote := payload["data"].(map[string]interface{})
	if quote["symbol"] != "AAPL" || quote["price"].(float64) != 42 {
		t.Fatalf("quote = %v", quote)
	}

	_, payload = doJSON(t, e, http.MethodGet, "/api/stream/status", "")
	status := payload["data"].(map[string]interface{})
	if status["connected"] != true {
		t.Fatalf("stream status = %v", status)
	}
}
