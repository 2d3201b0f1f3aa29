package models

import "time"

// SessionState is the lifecycle state of a chart session.
type SessionState string

const (
	SessionIdle    SessionState = "idle"
	SessionLoading SessionState = "loading"
	SessionReady   SessionState = "ready"
	SessionNoData  SessionState = "nodata"
	SessionErrored SessionState = "errored"
)

// Valuation baselines supported by the opportunity detector.
const (
	BaselineSMA20 = "sma20"
	BaselineSMA50 = "sma50"
)

// ValuationConfig controls opportunity detection for a session.
type ValuationConfig struct {
	Enabled  bool    `json:"enabled"`
	Baseline string  `json:"baseline"` // sma20 or sma50
	OverPct  float64 `json:"over_pct"`
	UnderPct float64 `json:"under_pct"`
}

// DefaultValuation mirrors the dashboard defaults: rules on, SMA20
// baseline, 3% bands both ways.
func DefaultValuation() ValuationConfig {
	return ValuationConfig{Enabled: true, Baseline: BaselineSMA20, OverPct: 3, UnderPct: 3}
}

// Opportunity kinds.
const (
	Overvalued  = "overvalued"
	Undervalued = "undervalued"
)

// Opportunity marks a bar judged over- or under-valued against the
// session's baseline. Index refers to the chronologically sorted bars.
type Opportunity struct {
	Index     int       `json:"index"`
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
	Kind      string    `json:"kind"`
}

// TradeDraft is the in-progress, not-yet-submitted order tied to a
// selected chart point.
type TradeDraft struct {
	Symbol     string     `json:"symbol"`
	Qty        float64    `json:"qty"`
	Side       string     `json:"side"`
	OrderType  string     `json:"order_type"`
	LimitPrice float64    `json:"limit_price"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
	Submitting bool       `json:"submitting"`
	Error      string     `json:"error,omitempty"`
}

// SessionView is the externally visible projection of a chart session.
type SessionView struct {
	ID            int             `json:"id"`
	State         SessionState    `json:"state"`
	Symbol        string          `json:"symbol"`
	Timeframe     string          `json:"timeframe"`
	RangeIndex    int             `json:"range_index"`
	Limit         int             `json:"limit"`
	Bars          []Bar           `json:"bars"`
	CurrentPrice  *float64        `json:"current_price,omitempty"`
	ClosePrice    *float64        `json:"close_price,omitempty"`
	CompanyName   string          `json:"company_name,omitempty"`
	Position      *Position       `json:"position,omitempty"`
	Valuation     ValuationConfig `json:"valuation"`
	Opportunities []Opportunity   `json:"opportunities"`
	Draft         *TradeDraft     `json:"draft,omitempty"`
	Error         string          `json:"error,omitempty"`
}
