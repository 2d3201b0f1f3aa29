package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"TradeSync/internal/domain/models"
	"TradeSync/pkg/cache"
	"TradeSync/pkg/logger"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestGetChartData(t *testing.T) {
	var gotPath, gotTF, gotLimit, gotAuth string
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotTF = r.URL.Query().Get("timeframe")
		gotLimit = r.URL.Query().Get("limit")
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(models.ChartData{
			Bars: []models.Bar{
				{Timestamp: time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC), Close: 101.5},
			},
			Quote: &models.Quote{Symbol: "AAPL", Price: 101.5},
		})
	})

	c := New(srv.URL, 5*time.Second, logger.Nop(), WithToken("tok-1"))
	data, err := c.GetChartData(context.Background(), "aapl", "1D", 300)
	if err != nil {
		t.Fatalf("GetChartData: %v", err)
	}
	if gotPath != "/chart-data/AAPL" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotTF != "1D" || gotLimit != "300" {
		t.Fatalf("unexpected query tf=%q limit=%q", gotTF, gotLimit)
	}
	if gotAuth != "Bearer tok-1" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if len(data.Bars) != 1 || data.Quote == nil || data.Quote.Symbol != "AAPL" {
		t.Fatalf("unexpected payload %+v", data)
	}
}

func TestGetChartDataEmptyBars(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"bars":null}`))
	})

	c := New(srv.URL, 5*time.Second, logger.Nop())
	data, err := c.GetChartData(context.Background(), "MSFT", "1D", 100)
	if err != nil {
		t.Fatalf("GetChartData: %v", err)
	}
	if data.Bars == nil || len(data.Bars) != 0 {
		t.Fatalf("expected empty bars slice, got %+v", data.Bars)
	}
}

func TestGetChartDataCached(t *testing.T) {
	calls := 0
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(models.ChartData{Bars: []models.Bar{{Close: 50}}})
	})

	mem := cache.NewMemoryCache()
	defer mem.Close()
	c := New(srv.URL, 5*time.Second, logger.Nop(), WithCache(mem))

	for i := 0; i < 3; i++ {
		if _, err := c.GetChartData(context.Background(), "AAPL", "1D", 100); err != nil {
			t.Fatalf("GetChartData: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected 1 backend call, got %d", calls)
	}
}

func TestCreateOrderInvalidatesCache(t *testing.T) {
	posCalls := 0
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/positions":
			posCalls++
			_, _ = w.Write([]byte(`[]`))
		case r.URL.Path == "/orders" && r.Method == http.MethodPost:
			var req models.OrderRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			_ = json.NewEncoder(w).Encode(models.Order{OrderID: "o-1", Symbol: req.Symbol})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	mem := cache.NewMemoryCache()
	defer mem.Close()
	c := New(srv.URL, 5*time.Second, logger.Nop(), WithCache(mem))

	ctx := context.Background()
	if _, err := c.GetPositions(ctx); err != nil {
		t.Fatalf("GetPositions: %v", err)
	}
	if _, err := c.GetPositions(ctx); err != nil {
		t.Fatalf("GetPositions: %v", err)
	}
	if posCalls != 1 {
		t.Fatalf("expected cached positions, got %d calls", posCalls)
	}

	order, err := c.CreateOrder(ctx, &models.OrderRequest{Symbol: "AAPL", Qty: 1, Side: models.SideBuy, OrderType: models.OrderTypeMarket})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if order.OrderID != "o-1" {
		t.Fatalf("unexpected order %+v", order)
	}

	if _, err := c.GetPositions(ctx); err != nil {
		t.Fatalf("GetPositions: %v", err)
	}
	if posCalls != 2 {
		t.Fatalf("expected cache invalidation after order, got %d calls", posCalls)
	}
}

func TestGetQuoteErrorStatus(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})

	c := New(srv.URL, 5*time.Second, logger.Nop())
	if _, err := c.GetQuote(context.Background(), "AAPL"); err == nil {
		t.Fatal("expected error on 502")
	}
}

func TestCancelOrder(t *testing.T) {
	var gotMethod, gotPath string
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})

	c := New(srv.URL, 5*time.Second, logger.Nop())
	if err := c.CancelOrder(context.Background(), "o-9"); err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/orders/o-9" {
		t.Fatalf("unexpected request %s %s", gotMethod, gotPath)
	}
}
