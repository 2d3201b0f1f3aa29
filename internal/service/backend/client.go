package backend

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"TradeSync/internal/domain/models"
	drepo "TradeSync/internal/domain/repository"
	"TradeSync/pkg/cache"
	xhttp "TradeSync/pkg/http"
	"TradeSync/pkg/logger"
)

const (
	chartDataTTL = 30 * time.Second
	accountTTL   = 5 * time.Second
	positionsTTL = 5 * time.Second
	quoteTTL     = 2 * time.Second
)

// Client implements TradingAPI over the dashboard backend REST surface.
type Client struct {
	baseURL  string
	token    string
	http     *xhttp.Client
	cache    cache.Service
	chartTTL time.Duration
	log      *logger.Logger
}

// Option configures Client.
type Option func(*Client)

// WithCache enables response caching for read endpoints.
func WithCache(c cache.Service) Option {
	return func(cl *Client) {
		cl.cache = c
	}
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(cl *Client) {
		cl.token = token
	}
}

// WithChartTTL overrides how long chart snapshots stay cached.
func WithChartTTL(ttl time.Duration) Option {
	return func(cl *Client) {
		if ttl > 0 {
			cl.chartTTL = ttl
		}
	}
}

// New creates a backend API client.
func New(baseURL string, timeout time.Duration, log *logger.Logger, opts ...Option) *Client {
	cl := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     xhttp.NewClient(xhttp.WithTimeout(timeout)),
		chartTTL: chartDataTTL,
		log:      log,
	}
	for _, opt := range opts {
		opt(cl)
	}
	return cl
}

var _ drepo.TradingAPI = (*Client)(nil)

// GetChartData fetches historical bars plus the latest quote for a symbol.
func (c *Client) GetChartData(ctx context.Context, symbol, timeframe string, limit int) (*models.ChartData, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("backend: symbol is required")
	}

	key := cache.GenerateKeyWithParams("chart", symbol, timeframe, limit)
	var out models.ChartData
	if c.cacheGet(ctx, key, &out) {
		return &out, nil
	}

	err := c.get(ctx, "/chart-data/"+symbol, map[string][]string{
		"timeframe": {timeframe},
		"limit":     {strconv.Itoa(limit)},
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("backend chart data %s: %w", symbol, err)
	}
	if out.Bars == nil {
		out.Bars = []models.Bar{}
	}

	c.cacheSet(ctx, key, &out, c.chartTTL)
	return &out, nil
}

// GetAccount fetches the trading account snapshot.
func (c *Client) GetAccount(ctx context.Context) (*models.Account, error) {
	var out models.Account
	if c.cacheGet(ctx, cache.GenerateKey("account", "self"), &out) {
		return &out, nil
	}
	if err := c.get(ctx, "/account", nil, &out); err != nil {
		return nil, fmt.Errorf("backend account: %w", err)
	}
	c.cacheSet(ctx, cache.GenerateKey("account", "self"), &out, accountTTL)
	return &out, nil
}

// GetPositions fetches all open positions.
func (c *Client) GetPositions(ctx context.Context) ([]models.Position, error) {
	var out []models.Position
	if c.cacheGet(ctx, cache.GenerateKey("positions", "all"), &out) {
		return out, nil
	}
	if err := c.get(ctx, "/positions", nil, &out); err != nil {
		return nil, fmt.Errorf("backend positions: %w", err)
	}
	if out == nil {
		out = []models.Position{}
	}
	c.cacheSet(ctx, cache.GenerateKey("positions", "all"), out, positionsTTL)
	return out, nil
}

// GetOrders fetches orders filtered by status ("open", "closed" or "all").
func (c *Client) GetOrders(ctx context.Context, status string) ([]models.Order, error) {
	var params map[string][]string
	if status != "" {
		params = map[string][]string{"status": {status}}
	}
	var out []models.Order
	if err := c.get(ctx, "/orders", params, &out); err != nil {
		return nil, fmt.Errorf("backend orders: %w", err)
	}
	if out == nil {
		out = []models.Order{}
	}
	return out, nil
}

// GetQuote fetches the latest quote for a symbol.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("backend: symbol is required")
	}
	key := cache.GenerateKey("quote", symbol)
	var out models.Quote
	if c.cacheGet(ctx, key, &out) {
		return &out, nil
	}
	if err := c.get(ctx, "/quote/"+symbol, nil, &out); err != nil {
		return nil, fmt.Errorf("backend quote %s: %w", symbol, err)
	}
	c.cacheSet(ctx, key, &out, quoteTTL)
	return &out, nil
}

// CreateOrder submits a new order.
func (c *Client) CreateOrder(ctx context.Context, req *models.OrderRequest) (*models.Order, error) {
	var out models.Order
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     c.baseURL + "/orders",
		Headers: c.headers(),
		Body:    req,
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("backend create order: %w", err)
	}
	c.invalidate(ctx, cache.GenerateKey("positions", "all"), cache.GenerateKey("account", "self"))
	c.invalidatePattern(ctx, cache.BuildPattern(cache.GenerateKey("chart", strings.ToUpper(req.Symbol))))
	return &out, nil
}

// CancelOrder cancels an order by id.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodDelete,
		URL:     c.baseURL + "/orders/" + orderID,
		Headers: c.headers(),
	}, nil)
	if err != nil {
		return fmt.Errorf("backend cancel order %s: %w", orderID, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, params map[string][]string, dest interface{}) error {
	return c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.baseURL + path,
		Headers:     c.headers(),
		QueryParams: params,
	}, dest)
}

func (c *Client) headers() map[string]string {
	h := map[string]string{"Accept": "application/json"}
	if c.token != "" {
		h["Authorization"] = "Bearer " + c.token
	}
	return h
}

func (c *Client) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if c.cache == nil {
		return false
	}
	if err := c.cache.Get(ctx, key, dest); err != nil {
		return false
	}
	return true
}

func (c *Client) cacheSet(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, key, value, ttl); err != nil {
		c.log.Debug("cache set failed", logger.String("key", key), logger.Error(err))
	}
}

func (c *Client) invalidate(ctx context.Context, keys ...string) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Delete(ctx, keys...); err != nil {
		c.log.Debug("cache delete failed", logger.Error(err))
	}
}

func (c *Client) invalidatePattern(ctx context.Context, pattern string) {
	if c.cache == nil {
		return
	}
	if err := c.cache.DeleteByPattern(ctx, pattern); err != nil {
		c.log.Debug("cache pattern delete failed", logger.String("pattern", pattern), logger.Error(err))
	}
}
