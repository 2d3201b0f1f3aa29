package models

// CreateSessionRequest mounts a new chart session.
type CreateSessionRequest struct {
	Symbol string `json:"symbol" validate:"required,max=12"`
}

// SetSymbolRequest switches the session to another symbol.
type SetSymbolRequest struct {
	Symbol string `json:"symbol" validate:"required,max=12"`
}

// SetTimeframeRequest switches the bar interval.
type SetTimeframeRequest struct {
	Timeframe string `json:"timeframe" validate:"required"`
}

// SetRangeRequest switches the visible range step.
type SetRangeRequest struct {
	RangeIndex int `json:"range_index"`
}

// SetValuationRequest replaces the valuation config.
type SetValuationRequest struct {
	Enabled  bool    `json:"enabled"`
	Baseline string  `json:"baseline" default:"sma20" validate:"oneof=sma20 sma50"`
	OverPct  float64 `json:"over_pct" validate:"gte=0"`
	UnderPct float64 `json:"under_pct" validate:"gte=0"`
}

// OpenDraftRequest opens a trade draft from a chart point.
type OpenDraftRequest struct {
	BarIndex int `json:"bar_index" validate:"gte=0"`
}

// UpdateDraftRequest edits the open draft.
type UpdateDraftRequest struct {
	Qty        float64 `json:"qty"`
	Side       string  `json:"side" default:"buy" validate:"oneof=buy sell"`
	OrderType  string  `json:"order_type" default:"limit" validate:"oneof=market limit"`
	LimitPrice float64 `json:"limit_price"`
}
