package repository

import (
	"context"

	"TradeSync/internal/domain/models"
)

// SymbolControl is the slice of the stream gateway the subscription
// registry needs: sending subscribe/unsubscribe control messages.
type SymbolControl interface {
	SubscribeSymbol(symbol string) error
	UnsubscribeSymbol(symbol string) error
}

// StreamGateway owns the persistent streaming connection to the backend.
type StreamGateway interface {
	SymbolControl

	// Start establishes the connection exactly once per process; extra
	// calls are no-ops. Reconnection is handled internally.
	Start(ctx context.Context) error

	Authenticate(token string) error
	IsConnected() bool
	Close() error
}

// SnapshotAPI is the REST surface a chart session consumes: the one-shot
// bars+quote snapshot and order submission.
type SnapshotAPI interface {
	GetChartData(ctx context.Context, symbol, timeframe string, limit int) (*models.ChartData, error)
	CreateOrder(ctx context.Context, req *models.OrderRequest) (*models.Order, error)
}

// TradingAPI adds the sibling-view endpoints consumed by the HTTP surface.
type TradingAPI interface {
	SnapshotAPI

	GetAccount(ctx context.Context) (*models.Account, error)
	GetPositions(ctx context.Context) ([]models.Position, error)
	GetOrders(ctx context.Context, status string) ([]models.Order, error)
	CancelOrder(ctx context.Context, orderID string) error
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)
}

// TokenSource yields the auth token for the stream, if one is known.
// The service does not manage where the token is stored.
type TokenSource interface {
	Token() (string, bool)
}

// Publisher fans accepted quote updates out to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, q *models.QuoteUpdate) error
	Close() error
}

// Metrics records operational measurements.
type Metrics interface {
	RecordEvent(kind string)
	RecordReconnect()
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
