package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"TradeSync/internal/domain/models"
	drepo "TradeSync/internal/domain/repository"
	"TradeSync/internal/service/stream"
	"TradeSync/internal/services/analytics"
	"TradeSync/pkg/logger"
)

// SymbolRegistry is the slice of the subscription registry a session needs.
type SymbolRegistry interface {
	Acquire(symbol string)
	Release(symbol string)
}

// ErrLoadInFlight is returned when a load is requested while another one
// is still running for the same session.
var ErrLoadInFlight = fmt.Errorf("chart session: load already in flight")

// ChartSession owns the state for one mounted chart: bars, live price,
// position, valuation markers and the trade draft. All mutation goes
// through its methods; callers never see interior pointers.
type ChartSession struct {
	id       int
	api      drepo.SnapshotAPI
	registry SymbolRegistry
	bus      *stream.Bus
	notifier *Notifier
	log      *logger.Logger

	mu         sync.Mutex
	state      models.SessionState
	symbol     string
	timeframe  drepo.Timeframe
	rangeIndex int
	bars       []models.Bar
	sorted     []models.Bar
	current    *float64
	close      *float64
	company    string
	position   *models.Position
	valuation  models.ValuationConfig
	opps       []models.Opportunity
	draft      *models.TradeDraft
	errMsg     string

	loading    bool
	generation uint64
	closed     bool
	subscribed bool // holds registry interest in the current symbol

	busSubs []stream.Subscription
}

// NewChartSession creates a session for symbol and registers its stream
// listeners. Call Start to subscribe and load the first snapshot.
func NewChartSession(id int, symbol string, api drepo.SnapshotAPI, registry SymbolRegistry, bus *stream.Bus, notifier *Notifier, log *logger.Logger) *ChartSession {
	s := &ChartSession{
		id:        id,
		api:       api,
		registry:  registry,
		bus:       bus,
		notifier:  notifier,
		log:       log,
		state:     models.SessionIdle,
		symbol:    strings.ToUpper(strings.TrimSpace(symbol)),
		timeframe: drepo.DefaultTimeframe(),
		valuation: models.DefaultValuation(),
	}

	s.busSubs = append(s.busSubs,
		bus.Subscribe(models.EventQuoteUpdate, s.onQuote),
		bus.Subscribe(models.EventPositionUpdate, s.onPosition),
		bus.Subscribe(models.EventPositionsUpdate, s.onPositions),
	)
	return s
}

// ID returns the session id.
func (s *ChartSession) ID() int { return s.id }

// Start loads the first snapshot. The stream subscription is acquired
// by the load itself once the snapshot lands.
func (s *ChartSession) Start(ctx context.Context) error {
	return s.Load(ctx)
}

// Load fetches the snapshot for the current symbol/timeframe/range and
// applies it. Rejected while a load is already in flight. A fetch that
// completes after the session moved on (symbol switch, newer load) is
// discarded whole.
func (s *ChartSession) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("chart session %d: closed", s.id)
	}
	if s.loading {
		s.mu.Unlock()
		return ErrLoadInFlight
	}
	if s.symbol == "" {
		s.mu.Unlock()
		return fmt.Errorf("chart session %d: no symbol", s.id)
	}

	s.loading = true
	s.generation++
	gen := s.generation
	symbol := s.symbol
	timeframe := string(s.timeframe)
	limit := drepo.FetchLimit(s.rangeIndex)
	s.state = models.SessionLoading
	s.errMsg = ""
	s.mu.Unlock()

	data, err := s.api.GetChartData(ctx, symbol, timeframe, limit)

	s.mu.Lock()
	s.loading = false

	// A newer load or a symbol switch supersedes this fetch entirely.
	if s.closed || gen != s.generation || s.symbol != symbol {
		s.mu.Unlock()
		return nil
	}

	if err != nil {
		s.state = models.SessionErrored
		s.errMsg = err.Error()
		s.mu.Unlock()
		s.log.Error("chart load failed",
			logger.Int("session", s.id),
			logger.String("symbol", symbol),
			logger.Error(err),
		)
		return err
	}

	s.applySnapshotLocked(data)

	// Subscribe only once bars are on screen; a session stuck in
	// errored or nodata holds no live subscription.
	acquire := s.state == models.SessionReady && !s.subscribed
	if acquire {
		s.subscribed = true
	}
	s.mu.Unlock()

	if acquire {
		s.registry.Acquire(symbol)
	}
	return nil
}

// applySnapshotLocked replaces bar state from a snapshot. The snapshot is
// authoritative for bars and the initial price fields.
func (s *ChartSession) applySnapshotLocked(data *models.ChartData) {
	bars := data.Bars
	if bars == nil {
		bars = []models.Bar{}
	}
	s.bars = bars
	s.sorted = analytics.SortBars(bars)

	if q := data.Quote; q != nil && strings.EqualFold(q.Symbol, s.symbol) {
		price := q.Price
		s.current = &price
		s.close = q.Close
		if q.Name != "" {
			s.company = q.Name
		}
	}

	if len(bars) == 0 {
		s.state = models.SessionNoData
		s.opps = nil
		return
	}
	s.state = models.SessionReady
	s.recomputeOpportunitiesLocked()
}

func (s *ChartSession) recomputeOpportunitiesLocked() {
	over := drepo.EffectiveThreshold(s.timeframe, s.valuation.OverPct)
	under := drepo.EffectiveThreshold(s.timeframe, s.valuation.UnderPct)
	s.opps = analytics.DetectOpportunities(s.sorted, s.valuation, over, under)
}

// onQuote applies a live quote. Only currentPrice moves, and only for
// the session's own symbol; everything else a quote carries is ignored.
func (s *ChartSession) onQuote(evt models.StreamEvent) {
	if evt.Quote == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.symbol == "" || !strings.EqualFold(evt.Quote.Symbol, s.symbol) {
		return
	}
	price := evt.Quote.Price
	s.current = &price
}

func (s *ChartSession) onPosition(evt models.StreamEvent) {
	if evt.Position == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.symbol == "" || !strings.EqualFold(evt.Position.Symbol, s.symbol) {
		return
	}
	pos := *evt.Position
	s.position = &pos
}

// onPositions replaces the held position from a full snapshot: the entry
// matching the active symbol, or nothing.
func (s *ChartSession) onPositions(evt models.StreamEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.symbol == "" {
		return
	}
	s.position = nil
	for i := range evt.Positions {
		if strings.EqualFold(evt.Positions[i].Symbol, s.symbol) {
			pos := evt.Positions[i]
			s.position = &pos
			return
		}
	}
}

// SetTimeframe switches the bar interval and reloads. Unknown values
// fall back to the default timeframe.
func (s *ChartSession) SetTimeframe(ctx context.Context, tf string) error {
	norm := drepo.NormalizeTimeframe(tf)
	s.mu.Lock()
	if norm == s.timeframe {
		s.mu.Unlock()
		return nil
	}
	s.timeframe = norm
	s.mu.Unlock()
	return s.Load(ctx)
}

// SetRangeIndex switches the visible range and reloads. An out-of-bounds
// index clamps to the first step.
func (s *ChartSession) SetRangeIndex(ctx context.Context, idx int) error {
	if idx < 0 || idx >= len(drepo.RangeSteps) {
		idx = 0
	}
	s.mu.Lock()
	if idx == s.rangeIndex {
		s.mu.Unlock()
		return nil
	}
	s.rangeIndex = idx
	s.mu.Unlock()
	return s.Load(ctx)
}

// SetValuation replaces the valuation config and recomputes markers
// without refetching.
func (s *ChartSession) SetValuation(cfg models.ValuationConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.valuation = cfg
	if s.state == models.SessionReady {
		s.recomputeOpportunitiesLocked()
	}
}

// SwitchSymbol releases the old subscription, resets symbol-scoped state
// and loads the new symbol. A quote for the old symbol arriving after
// the switch no longer matches and is dropped.
func (s *ChartSession) SwitchSymbol(ctx context.Context, symbol string) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return fmt.Errorf("chart session %d: symbol is required", s.id)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("chart session %d: closed", s.id)
	}
	old := s.symbol
	if symbol == old {
		s.mu.Unlock()
		return nil
	}

	s.symbol = symbol
	s.generation++ // in-flight fetches for the old symbol can no longer apply
	s.resetSymbolStateLocked()
	s.state = models.SessionIdle
	release := s.subscribed
	s.subscribed = false
	s.mu.Unlock()

	if release && old != "" {
		s.registry.Release(old)
	}

	return s.Load(ctx)
}

func (s *ChartSession) resetSymbolStateLocked() {
	s.bars = nil
	s.sorted = nil
	s.current = nil
	s.close = nil
	s.company = ""
	s.position = nil
	s.opps = nil
	s.draft = nil
	s.errMsg = ""
}

// BarAt returns the bar at index in chronological order.
func (s *ChartSession) BarAt(index int) (models.Bar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.sorted) {
		return models.Bar{}, fmt.Errorf("chart session %d: bar index %d out of range", s.id, index)
	}
	return s.sorted[index], nil
}

// OpenDraft seeds a trade draft from the selected bar: qty 1, buy,
// limit at the bar close. Any previous draft error is discarded.
func (s *ChartSession) OpenDraft(barIndex int) (*models.TradeDraft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("chart session %d: closed", s.id)
	}
	if barIndex < 0 || barIndex >= len(s.sorted) {
		return nil, fmt.Errorf("chart session %d: bar index %d out of range", s.id, barIndex)
	}

	bar := s.sorted[barIndex]
	ts := bar.Timestamp
	s.draft = &models.TradeDraft{
		Symbol:     s.symbol,
		Qty:        1,
		Side:       models.SideBuy,
		OrderType:  models.OrderTypeLimit,
		LimitPrice: bar.Close,
		Timestamp:  &ts,
	}
	d := *s.draft
	return &d, nil
}

// UpdateDraft overwrites the editable draft fields.
func (s *ChartSession) UpdateDraft(qty float64, side, orderType string, limitPrice float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft == nil {
		return fmt.Errorf("chart session %d: no open draft", s.id)
	}
	s.draft.Qty = qty
	s.draft.Side = side
	s.draft.OrderType = orderType
	s.draft.LimitPrice = limitPrice
	s.draft.Error = ""
	return nil
}

// CloseDraft discards the draft without submitting.
func (s *ChartSession) CloseDraft() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = nil
}

// validateDraft checks fields in a fixed order and reports the first
// failure: symbol, then qty, then limit price (limit orders only).
func validateDraft(d *models.TradeDraft) string {
	if strings.TrimSpace(d.Symbol) == "" {
		return "symbol is required"
	}
	if d.Qty <= 0 {
		return "quantity must be greater than zero"
	}
	if d.OrderType == models.OrderTypeLimit && d.LimitPrice <= 0 {
		return "limit price must be greater than zero"
	}
	return ""
}

// SubmitDraft validates and submits the draft. Validation failures stay
// local: the error lands on the draft and nothing hits the network. A
// backend failure keeps the draft open for another attempt.
func (s *ChartSession) SubmitDraft(ctx context.Context) error {
	s.mu.Lock()
	if s.draft == nil {
		s.mu.Unlock()
		return fmt.Errorf("chart session %d: no open draft", s.id)
	}
	if s.draft.Submitting {
		s.mu.Unlock()
		return fmt.Errorf("chart session %d: draft already submitting", s.id)
	}

	if msg := validateDraft(s.draft); msg != "" {
		s.draft.Error = msg
		s.mu.Unlock()
		return fmt.Errorf("draft invalid: %s", msg)
	}

	s.draft.Error = ""
	s.draft.Submitting = true
	req := &models.OrderRequest{
		Symbol:    s.draft.Symbol,
		Qty:       s.draft.Qty,
		Side:      s.draft.Side,
		OrderType: s.draft.OrderType,
	}
	if s.draft.OrderType == models.OrderTypeLimit {
		price := s.draft.LimitPrice
		req.LimitPrice = &price
	}
	s.mu.Unlock()

	order, err := s.api.CreateOrder(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft != nil {
		s.draft.Submitting = false
	}

	if err != nil {
		if s.draft != nil {
			s.draft.Error = err.Error()
		}
		s.notifier.Show("Order failed: "+err.Error(), SeverityError)
		return err
	}

	s.draft = nil
	s.notifier.Show(fmt.Sprintf("Order placed: %s %g %s", order.Side, order.Qty, order.Symbol), SeveritySuccess)
	return nil
}

// View returns a snapshot of the session for the HTTP surface. Bars come
// back in chronological order.
func (s *ChartSession) View() models.SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := models.SessionView{
		ID:         s.id,
		State:      s.state,
		Symbol:     s.symbol,
		Timeframe:  string(s.timeframe),
		RangeIndex: s.rangeIndex,
		Limit:      drepo.FetchLimit(s.rangeIndex),
		Valuation:  s.valuation,
		Error:      s.errMsg,
	}

	v.Bars = make([]models.Bar, len(s.sorted))
	copy(v.Bars, s.sorted)

	if s.current != nil {
		p := *s.current
		v.CurrentPrice = &p
	}
	if s.close != nil {
		p := *s.close
		v.ClosePrice = &p
	}
	v.CompanyName = s.company
	if s.position != nil {
		pos := *s.position
		v.Position = &pos
	}
	v.Opportunities = make([]models.Opportunity, len(s.opps))
	copy(v.Opportunities, s.opps)
	if s.draft != nil {
		d := *s.draft
		v.Draft = &d
	}
	return v
}

// Opportunities returns the current valuation markers.
func (s *ChartSession) Opportunities() []models.Opportunity {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Opportunity, len(s.opps))
	copy(out, s.opps)
	return out
}

// Close releases the stream subscription and detaches from the bus.
// Symbol-scoped state is dropped so a late event cannot resurrect it.
func (s *ChartSession) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.generation++
	symbol := s.symbol
	s.symbol = ""
	release := s.subscribed
	s.subscribed = false
	s.resetSymbolStateLocked()
	s.state = models.SessionIdle
	subs := s.busSubs
	s.busSubs = nil
	s.mu.Unlock()

	for _, sub := range subs {
		s.bus.Unsubscribe(sub)
	}
	if release && symbol != "" {
		s.registry.Release(symbol)
	}
}
