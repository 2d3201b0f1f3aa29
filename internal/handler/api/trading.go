package api

import (
	"strings"

	drepo "TradeSync/internal/domain/repository"
	"TradeSync/internal/service/stream"
	xhttp "TradeSync/pkg/http"
	xlogger "TradeSync/pkg/logger"

	"github.com/labstack/echo/v4"
)

// tradingDeps are the backend pass-through dependencies.
type tradingDeps struct {
	API      drepo.TradingAPI
	Gateway  drepo.StreamGateway
	Registry *stream.Registry
}

// NewTradingDeps bundles the pass-through dependencies for NewHandler.
func NewTradingDeps(api drepo.TradingAPI, gateway drepo.StreamGateway, registry *stream.Registry) tradingDeps {
	return tradingDeps{API: api, Gateway: gateway, Registry: registry}
}

func (h *Handler) registerTradingRoutes(g *echo.Group) {
	g.GET("/account", h.GetAccount)
	g.GET("/positions", h.GetPositions)
	g.GET("/orders", h.GetOrders)
	g.DELETE("/orders/:id", h.CancelOrder)
	g.GET("/quote/:symbol", h.GetQuote)
	g.GET("/stream/status", h.StreamStatus)
}

func (h *Handler) GetAccount(c echo.Context) error {
	acct, err := h.trading.API.GetAccount(c.Request().Context())
	if err != nil {
		h.logger.Error("get account", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, acct)
}

func (h *Handler) GetPositions(c echo.Context) error {
	positions, err := h.trading.API.GetPositions(c.Request().Context())
	if err != nil {
		h.logger.Error("get positions", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, positions, int64(len(positions)))
}

func (h *Handler) GetOrders(c echo.Context) error {
	status := c.QueryParam("status")
	switch status {
	case "", "open", "closed", "all":
	default:
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("status must be open, closed or all"))
	}

	orders, err := h.trading.API.GetOrders(c.Request().Context(), status)
	if err != nil {
		h.logger.Error("get orders", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if limit := xhttp.ParseIntDefault(c.QueryParam("limit"), 0); limit > 0 && limit < len(orders) {
		orders = orders[:limit]
	}
	return xhttp.ListResponse(c, orders, int64(len(orders)))
}

func (h *Handler) CancelOrder(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("order id is required"))
	}
	if err := h.trading.API.CancelOrder(c.Request().Context(), id); err != nil {
		h.logger.Error("cancel order", xlogger.String("order", id), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.NoContentResponse(c)
}

func (h *Handler) GetQuote(c echo.Context) error {
	symbol := strings.TrimSpace(c.Param("symbol"))
	if symbol == "" {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("symbol is required"))
	}
	quote, err := h.trading.API.GetQuote(c.Request().Context(), symbol)
	if err != nil {
		h.logger.Error("get quote", xlogger.String("symbol", symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, quote)
}

// StreamStatus reports gateway connectivity and the held subscriptions.
func (h *Handler) StreamStatus(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"connected": h.trading.Gateway.IsConnected(),
		"symbols":   h.trading.Registry.Active(),
	})
}
