// Package models holds transport-free domain types shared across the
// synchronization service.
package models

import "time"

// Bar is one immutable OHLCV sample. The backend does not guarantee
// chronological order inside a bar list; consumers that need index-based
// lookup must sort first (see SortedBars).
type Bar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Quote is the latest trade snapshot for a symbol as returned by the REST
// chart-data endpoint. Close and Name may be absent.
type Quote struct {
	Symbol    string     `json:"symbol"`
	Price     float64    `json:"price"`
	Size      float64    `json:"size,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Close     *float64   `json:"close,omitempty"`
	Name      string     `json:"name,omitempty"`
}

// ChartData is the one-shot REST snapshot for a symbol/timeframe/limit
// combination: historical bars plus the latest quote.
type ChartData struct {
	Bars  []Bar  `json:"bars"`
	Quote *Quote `json:"quote,omitempty"`
}

// QuoteUpdate is a partial live update pushed over the stream. Only
// Symbol and Price are guaranteed to be set.
type QuoteUpdate struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Size   float64 `json:"size,omitempty"`
}

// Position is a position snapshot pushed asynchronously by the backend.
type Position struct {
	Symbol         string  `json:"symbol"`
	Qty            float64 `json:"qty"`
	AvgEntryPrice  float64 `json:"avg_entry_price"`
	CurrentPrice   float64 `json:"current_price"`
	MarketValue    float64 `json:"market_value"`
	UnrealizedPL   float64 `json:"unrealized_pl"`
	UnrealizedPLPC float64 `json:"unrealized_plpc"`
	Side           string  `json:"side"`
}

// Account is the brokerage account snapshot.
type Account struct {
	AccountID      string  `json:"account_id"`
	Cash           float64 `json:"cash"`
	BuyingPower    float64 `json:"buying_power"`
	PortfolioValue float64 `json:"portfolio_value"`
	Equity         float64 `json:"equity"`
	Currency       string  `json:"currency"`
	Status         string  `json:"status"`
}

// Order is an order record as reported by the backend.
type Order struct {
	OrderID        string     `json:"order_id"`
	Symbol         string     `json:"symbol"`
	Qty            float64    `json:"qty"`
	Side           string     `json:"side"`
	OrderType      string     `json:"order_type"`
	TimeInForce    string     `json:"time_in_force,omitempty"`
	LimitPrice     *float64   `json:"limit_price,omitempty"`
	StopPrice      *float64   `json:"stop_price,omitempty"`
	Status         string     `json:"status"`
	FilledQty      float64    `json:"filled_qty"`
	FilledAvgPrice *float64   `json:"filled_avg_price,omitempty"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

// OrderRequest is the payload for creating a new order.
type OrderRequest struct {
	Symbol     string   `json:"symbol"`
	Qty        float64  `json:"qty"`
	Side       string   `json:"side"`
	OrderType  string   `json:"order_type"`
	LimitPrice *float64 `json:"limit_price,omitempty"`
}

// Order side and type values accepted by the backend.
const (
	SideBuy  = "buy"
	SideSell = "sell"

	OrderTypeMarket = "market"
	OrderTypeLimit  = "limit"
)
