package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"TradeSync/internal/domain/models"
	"TradeSync/internal/service/stream"
	"TradeSync/pkg/logger"
)

type chartCall struct {
	Symbol    string
	Timeframe string
	Limit     int
}

type fakeAPI struct {
	mu       sync.Mutex
	chart    map[string]*models.ChartData
	chartErr error
	block    chan struct{}
	calls    []chartCall

	orders   []*models.OrderRequest
	orderErr error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{chart: make(map[string]*models.ChartData)}
}

func (f *fakeAPI) GetChartData(ctx context.Context, symbol, timeframe string, limit int) (*models.ChartData, error) {
	f.mu.Lock()
	f.calls = append(f.calls, chartCall{symbol, timeframe, limit})
	block := f.block
	err := f.chartErr
	data := f.chart[symbol]
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}
	if data == nil {
		return &models.ChartData{Bars: []models.Bar{}}, nil
	}
	return data, nil
}

func (f *fakeAPI) CreateOrder(ctx context.Context, req *models.OrderRequest) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, req)
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	return &models.Order{OrderID: "o-1", Symbol: req.Symbol, Qty: req.Qty, Side: req.Side}, nil
}

func (f *fakeAPI) lastCall(t *testing.T) chartCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		t.Fatal("no chart calls recorded")
	}
	return f.calls[len(f.calls)-1]
}

func (f *fakeAPI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeRegistry struct {
	mu       sync.Mutex
	acquired []string
	released []string
}

func (r *fakeRegistry) Acquire(symbol string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.acquired = append(r.acquired, symbol)
}

func (r *fakeRegistry) Release(symbol string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.released = append(r.released, symbol)
}

func barsFor(n int, start float64) []models.Bar {
	base := time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)
	bars := make([]models.Bar, n)
	for i := range bars {
		bars[i] = models.Bar{Timestamp: base.Add(time.Duration(i) * time.Minute), Close: start + float64(i)}
	}
	return bars
}

func newTestSession(t *testing.T, api *fakeAPI, symbol string) (*ChartSession, *fakeRegistry, *stream.Bus, *Notifier) {
	t.Helper()
	reg := &fakeRegistry{}
	bus := stream.NewBus(logger.Nop())
	notifier := NewNotifier(time.Minute)
	s := NewChartSession(1, symbol, api, reg, bus, notifier, logger.Nop())
	t.Cleanup(s.Close)
	return s, reg, bus, notifier
}

func TestStartLoadsSnapshot(t *testing.T) {
	api := newFakeAPI()
	cls := 99.0
	api.chart["AAPL"] = &models.ChartData{
		Bars:  barsFor(3, 100),
		Quote: &models.Quote{Symbol: "AAPL", Price: 105, Close: &cls, Name: "Apple Inc."},
	}

	s, reg, _, _ := newTestSession(t, api, "aapl")
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	v := s.View()
	if v.State != models.SessionReady {
		t.Fatalf("state = %s, want ready", v.State)
	}
	if v.Symbol != "AAPL" {
		t.Fatalf("symbol = %q, want AAPL", v.Symbol)
	}
	if len(v.Bars) != 3 {
		t.Fatalf("bars = %d, want 3", len(v.Bars))
	}
	if v.CurrentPrice == nil || *v.CurrentPrice != 105 {
		t.Fatalf("current price = %v, want 105", v.CurrentPrice)
	}
	if v.ClosePrice == nil || *v.ClosePrice != 99 {
		t.Fatalf("close price = %v, want 99", v.ClosePrice)
	}
	if v.CompanyName != "Apple Inc." {
		t.Fatalf("company = %q", v.CompanyName)
	}
	if len(reg.acquired) != 1 || reg.acquired[0] != "AAPL" {
		t.Fatalf("acquired = %v", reg.acquired)
	}
}

func TestEmptyBarsMeansNoData(t *testing.T) {
	api := newFakeAPI()
	api.chart["XYZ"] = &models.ChartData{Bars: []models.Bar{}}

	s, _, _, _ := newTestSession(t, api, "XYZ")
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	v := s.View()
	if v.State != models.SessionNoData {
		t.Fatalf("state = %s, want nodata", v.State)
	}
	if v.Bars == nil || len(v.Bars) != 0 {
		t.Fatalf("bars = %#v, want empty slice", v.Bars)
	}
	if v.Error != "" {
		t.Fatalf("unexpected error %q", v.Error)
	}
}

func TestLoadErrorSetsErrored(t *testing.T) {
	api := newFakeAPI()
	api.chartErr = errors.New("backend down")

	s, _, _, _ := newTestSession(t, api, "AAPL")
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected load error")
	}

	v := s.View()
	if v.State != models.SessionErrored {
		t.Fatalf("state = %s, want errored", v.State)
	}
	if v.Error == "" {
		t.Fatal("expected error message in view")
	}
}

func TestLoadGuardRejectsConcurrent(t *testing.T) {
	api := newFakeAPI()
	api.block = make(chan struct{})
	api.chart["AAPL"] = &models.ChartData{Bars: barsFor(1, 100)}

	s, _, _, _ := newTestSession(t, api, "AAPL")

	done := make(chan error, 1)
	go func() { done <- s.Load(context.Background()) }()

	// wait until the first load is in flight
	deadline := time.Now().Add(time.Second)
	for api.callCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first load never started")
		}
		time.Sleep(time.Millisecond)
	}

	if err := s.Load(context.Background()); !errors.Is(err, ErrLoadInFlight) {
		t.Fatalf("second load err = %v, want ErrLoadInFlight", err)
	}

	close(api.block)
	if err := <-done; err != nil {
		t.Fatalf("first load: %v", err)
	}
	if api.callCount() != 1 {
		t.Fatalf("calls = %d, want 1", api.callCount())
	}
}

func TestStaleFetchDiscardedAfterSwitch(t *testing.T) {
	api := newFakeAPI()
	block := make(chan struct{})
	api.block = block
	api.chart["AAPL"] = &models.ChartData{Bars: barsFor(3, 100)}
	api.chart["TSLA"] = &models.ChartData{Bars: barsFor(5, 200)}

	s, _, _, _ := newTestSession(t, api, "AAPL")

	done := make(chan error, 1)
	go func() { done <- s.Load(context.Background()) }()
	deadline := time.Now().Add(time.Second)
	for api.callCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("load never started")
		}
		time.Sleep(time.Millisecond)
	}

	// Switch while the AAPL fetch is stuck. Its own load attempt is
	// rejected by the guard; the pending AAPL result must then be
	// discarded instead of applied to the TSLA session.
	if err := s.SwitchSymbol(context.Background(), "TSLA"); !errors.Is(err, ErrLoadInFlight) {
		t.Fatalf("switch err = %v, want ErrLoadInFlight", err)
	}

	close(api.block)
	<-done

	v := s.View()
	if v.Symbol != "TSLA" {
		t.Fatalf("symbol = %q, want TSLA", v.Symbol)
	}
	if len(v.Bars) != 0 {
		t.Fatalf("stale AAPL bars applied: %d bars", len(v.Bars))
	}

	// A fresh load now succeeds for the new symbol.
	api.mu.Lock()
	api.block = nil
	api.mu.Unlock()
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	v = s.View()
	if v.State != models.SessionReady || len(v.Bars) != 5 {
		t.Fatalf("state=%s bars=%d, want ready/5", v.State, len(v.Bars))
	}
}

func TestQuoteAppliesOnlyToMatchingSymbol(t *testing.T) {
	api := newFakeAPI()
	api.chart["AAPL"] = &models.ChartData{Bars: barsFor(2, 100)}

	s, _, bus, _ := newTestSession(t, api, "AAPL")
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	bus.Publish(models.StreamEvent{Kind: models.EventQuoteUpdate, Quote: &models.QuoteUpdate{Symbol: "aapl", Price: 111}})
	if v := s.View(); v.CurrentPrice == nil || *v.CurrentPrice != 111 {
		t.Fatalf("case-insensitive quote not applied: %+v", v.CurrentPrice)
	}

	bus.Publish(models.StreamEvent{Kind: models.EventQuoteUpdate, Quote: &models.QuoteUpdate{Symbol: "TSLA", Price: 999}})
	if v := s.View(); *v.CurrentPrice != 111 {
		t.Fatalf("foreign quote applied: %v", *v.CurrentPrice)
	}
}

func TestStaleQuoteDroppedAfterSymbolSwitch(t *testing.T) {
	api := newFakeAPI()
	api.chart["AAPL"] = &models.ChartData{Bars: barsFor(2, 100)}
	api.chart["TSLA"] = &models.ChartData{Bars: barsFor(2, 200)}

	s, _, bus, _ := newTestSession(t, api, "AAPL")
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.SwitchSymbol(context.Background(), "TSLA"); err != nil {
		t.Fatalf("SwitchSymbol: %v", err)
	}

	// Late quote for the replaced symbol.
	bus.Publish(models.StreamEvent{Kind: models.EventQuoteUpdate, Quote: &models.QuoteUpdate{Symbol: "AAPL", Price: 123}})

	v := s.View()
	if v.CurrentPrice != nil && *v.CurrentPrice == 123 {
		t.Fatal("stale quote applied after symbol switch")
	}
}

func TestPositionRetainedOnlyForActiveSymbol(t *testing.T) {
	api := newFakeAPI()
	api.chart["AAPL"] = &models.ChartData{Bars: barsFor(2, 100)}

	s, _, bus, _ := newTestSession(t, api, "AAPL")
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	bus.Publish(models.StreamEvent{Kind: models.EventPositionUpdate, Position: &models.Position{Symbol: "TSLA", Qty: 5}})
	if v := s.View(); v.Position != nil {
		t.Fatalf("foreign position retained: %+v", v.Position)
	}

	bus.Publish(models.StreamEvent{Kind: models.EventPositionUpdate, Position: &models.Position{Symbol: "AAPL", Qty: 3}})
	if v := s.View(); v.Position == nil || v.Position.Qty != 3 {
		t.Fatalf("own position not retained: %+v", v.Position)
	}

	// Full snapshot without the active symbol clears the position.
	bus.Publish(models.StreamEvent{Kind: models.EventPositionsUpdate, Positions: []models.Position{{Symbol: "MSFT", Qty: 1}}})
	if v := s.View(); v.Position != nil {
		t.Fatalf("position survived snapshot without it: %+v", v.Position)
	}
}

func TestSetTimeframeReloads(t *testing.T) {
	api := newFakeAPI()
	api.chart["AAPL"] = &models.ChartData{Bars: barsFor(2, 100)}

	s, _, _, _ := newTestSession(t, api, "AAPL")
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := s.SetTimeframe(context.Background(), "5Min"); err != nil {
		t.Fatalf("SetTimeframe: %v", err)
	}
	if c := api.lastCall(t); c.Timeframe != "5Min" {
		t.Fatalf("timeframe sent = %q", c.Timeframe)
	}

	// Same timeframe again must not refetch.
	before := api.callCount()
	if err := s.SetTimeframe(context.Background(), "5Min"); err != nil {
		t.Fatalf("SetTimeframe repeat: %v", err)
	}
	if api.callCount() != before {
		t.Fatal("no-op timeframe change refetched")
	}
}

func TestRangeIndexMapsToLimit(t *testing.T) {
	api := newFakeAPI()
	api.chart["AAPL"] = &models.ChartData{Bars: barsFor(2, 100)}

	s, _, _, _ := newTestSession(t, api, "AAPL")
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if c := api.lastCall(t); c.Limit != 100 {
		t.Fatalf("default limit = %d, want 100", c.Limit)
	}

	if err := s.SetRangeIndex(context.Background(), 2); err != nil {
		t.Fatalf("SetRangeIndex: %v", err)
	}
	if c := api.lastCall(t); c.Limit != 300 {
		t.Fatalf("limit for index 2 = %d, want 300", c.Limit)
	}

	// Out-of-bounds clamps to the first step.
	if err := s.SetRangeIndex(context.Background(), 99); err != nil {
		t.Fatalf("SetRangeIndex 99: %v", err)
	}
	if c := api.lastCall(t); c.Limit != 100 {
		t.Fatalf("limit for index 99 = %d, want 100", c.Limit)
	}
	v := s.View()
	if v.RangeIndex != 0 {
		t.Fatalf("range index = %d, want 0", v.RangeIndex)
	}
}

func TestSubscribeOnlyAfterSuccessfulLoad(t *testing.T) {
	api := newFakeAPI()
	api.chartErr = errors.New("backend down")

	s, reg, _, _ := newTestSession(t, api, "AAPL")
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected load error")
	}
	if len(reg.acquired) != 0 {
		t.Fatalf("errored session holds a subscription: %v", reg.acquired)
	}

	// Empty bars is terminal too: still no subscription.
	api.mu.Lock()
	api.chartErr = nil
	api.mu.Unlock()
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if v := s.View(); v.State != models.SessionNoData {
		t.Fatalf("state = %s, want nodata", v.State)
	}
	if len(reg.acquired) != 0 {
		t.Fatalf("nodata session holds a subscription: %v", reg.acquired)
	}

	// Bars arrive: the next load subscribes, exactly once.
	api.mu.Lock()
	api.chart["AAPL"] = &models.ChartData{Bars: barsFor(2, 100)}
	api.mu.Unlock()
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(reg.acquired) != 1 || reg.acquired[0] != "AAPL" {
		t.Fatalf("acquired = %v, want [AAPL]", reg.acquired)
	}

	// Further successful reloads do not stack subscriptions.
	if err := s.SetTimeframe(context.Background(), "1H"); err != nil {
		t.Fatalf("SetTimeframe: %v", err)
	}
	if len(reg.acquired) != 1 {
		t.Fatalf("reload re-acquired: %v", reg.acquired)
	}
}

func TestSwitchSymbolPairsSubscribeUnsubscribe(t *testing.T) {
	api := newFakeAPI()
	api.chart["AAPL"] = &models.ChartData{Bars: barsFor(2, 100)}
	api.chart["TSLA"] = &models.ChartData{Bars: barsFor(2, 200)}

	s, reg, _, _ := newTestSession(t, api, "AAPL")
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.SwitchSymbol(context.Background(), "tsla"); err != nil {
		t.Fatalf("SwitchSymbol: %v", err)
	}
	s.Close()

	wantAcq := []string{"AAPL", "TSLA"}
	wantRel := []string{"AAPL", "TSLA"}
	if fmt.Sprint(reg.acquired) != fmt.Sprint(wantAcq) {
		t.Fatalf("acquired = %v, want %v", reg.acquired, wantAcq)
	}
	if fmt.Sprint(reg.released) != fmt.Sprint(wantRel) {
		t.Fatalf("released = %v, want %v", reg.released, wantRel)
	}
}

func TestOpenDraftSeedsFromSortedBar(t *testing.T) {
	api := newFakeAPI()
	base := time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)
	// out of order on purpose: sorted index 0 is the earliest bar
	api.chart["AAPL"] = &models.ChartData{Bars: []models.Bar{
		{Timestamp: base.Add(time.Minute), Close: 102},
		{Timestamp: base, Close: 101},
	}}

	s, _, _, _ := newTestSession(t, api, "AAPL")
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	d, err := s.OpenDraft(0)
	if err != nil {
		t.Fatalf("OpenDraft: %v", err)
	}
	if d.Symbol != "AAPL" || d.Qty != 1 || d.Side != models.SideBuy || d.OrderType != models.OrderTypeLimit {
		t.Fatalf("unexpected draft defaults %+v", d)
	}
	if d.LimitPrice != 101 {
		t.Fatalf("limit price = %v, want close of earliest bar", d.LimitPrice)
	}
	if d.Timestamp == nil || !d.Timestamp.Equal(base) {
		t.Fatalf("timestamp = %v, want %v", d.Timestamp, base)
	}

	if _, err := s.OpenDraft(5); err == nil {
		t.Fatal("expected out-of-range error")
	}
}

func TestSubmitDraftValidationOrder(t *testing.T) {
	api := newFakeAPI()
	api.chart["AAPL"] = &models.ChartData{Bars: barsFor(2, 100)}

	s, _, _, _ := newTestSession(t, api, "AAPL")
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	ctx := context.Background()

	// qty 0 fails before limit price is even looked at
	if _, err := s.OpenDraft(0); err != nil {
		t.Fatalf("OpenDraft: %v", err)
	}
	if err := s.UpdateDraft(0, models.SideBuy, models.OrderTypeLimit, 0); err != nil {
		t.Fatalf("UpdateDraft: %v", err)
	}
	if err := s.SubmitDraft(ctx); err == nil {
		t.Fatal("expected qty validation error")
	}
	if d := s.View().Draft; d == nil || d.Error != "quantity must be greater than zero" {
		t.Fatalf("draft error = %+v", d)
	}

	// limit price 0 on a limit order
	if err := s.UpdateDraft(1, models.SideBuy, models.OrderTypeLimit, 0); err != nil {
		t.Fatalf("UpdateDraft: %v", err)
	}
	if err := s.SubmitDraft(ctx); err == nil {
		t.Fatal("expected limit price validation error")
	}
	if d := s.View().Draft; d == nil || d.Error != "limit price must be greater than zero" {
		t.Fatalf("draft error = %+v", d)
	}

	if len(api.orders) != 0 {
		t.Fatalf("validation failures reached the network: %d orders", len(api.orders))
	}

	// price 0 is fine for a market order
	if err := s.UpdateDraft(1, models.SideBuy, models.OrderTypeMarket, 0); err != nil {
		t.Fatalf("UpdateDraft: %v", err)
	}
	if err := s.SubmitDraft(ctx); err != nil {
		t.Fatalf("market submit: %v", err)
	}
	if len(api.orders) != 1 {
		t.Fatalf("orders = %d, want 1", len(api.orders))
	}
	if api.orders[0].LimitPrice != nil {
		t.Fatal("market order carried a limit price")
	}
}

func TestSubmitDraftSuccessClosesDraft(t *testing.T) {
	api := newFakeAPI()
	api.chart["AAPL"] = &models.ChartData{Bars: barsFor(2, 100)}

	s, _, _, notifier := newTestSession(t, api, "AAPL")
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := s.OpenDraft(1); err != nil {
		t.Fatalf("OpenDraft: %v", err)
	}
	if err := s.SubmitDraft(context.Background()); err != nil {
		t.Fatalf("SubmitDraft: %v", err)
	}

	if s.View().Draft != nil {
		t.Fatal("draft still open after submit")
	}
	cur := notifier.Current()
	if cur == nil || cur.Severity != SeveritySuccess {
		t.Fatalf("expected success notification, got %+v", cur)
	}
	if len(api.orders) != 1 || api.orders[0].LimitPrice == nil || *api.orders[0].LimitPrice != 101 {
		t.Fatalf("unexpected order %+v", api.orders)
	}
}

func TestSubmitDraftBackendFailureKeepsDraft(t *testing.T) {
	api := newFakeAPI()
	api.chart["AAPL"] = &models.ChartData{Bars: barsFor(2, 100)}
	api.orderErr = errors.New("insufficient buying power")

	s, _, _, notifier := newTestSession(t, api, "AAPL")
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := s.OpenDraft(0); err != nil {
		t.Fatalf("OpenDraft: %v", err)
	}
	if err := s.SubmitDraft(context.Background()); err == nil {
		t.Fatal("expected submit error")
	}

	d := s.View().Draft
	if d == nil {
		t.Fatal("draft closed on backend failure")
	}
	if d.Error == "" || d.Submitting {
		t.Fatalf("unexpected draft state %+v", d)
	}
	cur := notifier.Current()
	if cur == nil || cur.Severity != SeverityError {
		t.Fatalf("expected error notification, got %+v", cur)
	}
}

func TestCloseDropsStateAndIgnoresLateEvents(t *testing.T) {
	api := newFakeAPI()
	api.chart["AAPL"] = &models.ChartData{Bars: barsFor(2, 100)}

	s, reg, bus, _ := newTestSession(t, api, "AAPL")
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Close()

	if len(reg.released) != 1 || reg.released[0] != "AAPL" {
		t.Fatalf("released = %v", reg.released)
	}

	bus.Publish(models.StreamEvent{Kind: models.EventQuoteUpdate, Quote: &models.QuoteUpdate{Symbol: "AAPL", Price: 500}})
	v := s.View()
	if v.CurrentPrice != nil {
		t.Fatal("late quote applied after close")
	}
	if v.Symbol != "" || len(v.Bars) != 0 {
		t.Fatalf("symbol state survived close: %+v", v)
	}

	// Close is idempotent.
	s.Close()
}

func TestOpportunitiesRecomputedOnValuationChange(t *testing.T) {
	api := newFakeAPI()
	bars := barsFor(30, 100)
	for i := range bars {
		bars[i].Close = 100
	}
	bars[25].Close = 110
	api.chart["AAPL"] = &models.ChartData{Bars: bars}

	s, _, _, _ := newTestSession(t, api, "AAPL")
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if got := s.Opportunities(); len(got) == 0 {
		t.Fatal("expected an overvalued marker with default config")
	}

	cfg := models.DefaultValuation()
	cfg.Enabled = false
	s.SetValuation(cfg)
	if got := s.Opportunities(); len(got) != 0 {
		t.Fatalf("markers survived disable: %+v", got)
	}
}

func TestSessionManagerMountUnmount(t *testing.T) {
	api := newFakeAPI()
	api.chart["AAPL"] = &models.ChartData{Bars: barsFor(2, 100)}
	api.chart["TSLA"] = &models.ChartData{Bars: barsFor(2, 200)}

	reg := &fakeRegistry{}
	bus := stream.NewBus(logger.Nop())
	m := NewSessionManager(api, reg, bus, NewNotifier(time.Minute), logger.Nop())

	ctx := context.Background()
	s1, err := m.Mount(ctx, "AAPL")
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	s2, err := m.Mount(ctx, "TSLA")
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	if s1.ID() == s2.ID() {
		t.Fatal("ids not unique")
	}

	views := m.List()
	if len(views) != 2 || views[0].ID != s1.ID() || views[1].ID != s2.ID() {
		t.Fatalf("unexpected list %+v", views)
	}

	if _, ok := m.Get(s1.ID()); !ok {
		t.Fatal("Get failed for mounted session")
	}
	if !m.Unmount(s1.ID()) {
		t.Fatal("Unmount returned false")
	}
	if _, ok := m.Get(s1.ID()); ok {
		t.Fatal("session still reachable after unmount")
	}
	if m.Unmount(s1.ID()) {
		t.Fatal("second unmount returned true")
	}

	m.Shutdown()
	if len(m.List()) != 0 {
		t.Fatal("sessions survived shutdown")
	}
}
