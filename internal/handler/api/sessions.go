// Package api exposes the dashboard sync state over HTTP.
package api

import (
	"errors"
	"strconv"

	"TradeSync/internal/domain/models"
	"TradeSync/internal/usecase"
	xhttp "TradeSync/pkg/http"
	xlogger "TradeSync/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Handler wires the session manager, the notifier and the backend
// pass-throughs into echo routes.
type Handler struct {
	logger   *xlogger.Logger
	sessions *usecase.SessionManager
	notifier *usecase.Notifier
	trading  tradingDeps
}

// NewHandler creates the API handler.
func NewHandler(logger *xlogger.Logger, sessions *usecase.SessionManager, notifier *usecase.Notifier, deps tradingDeps) *Handler {
	return &Handler{logger: logger, sessions: sessions, notifier: notifier, trading: deps}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")

	g.POST("/sessions", h.CreateSession)
	g.GET("/sessions", h.ListSessions)
	g.GET("/sessions/:id", h.GetSession)
	g.DELETE("/sessions/:id", h.DeleteSession)

	g.PUT("/sessions/:id/symbol", h.SetSymbol)
	g.PUT("/sessions/:id/timeframe", h.SetTimeframe)
	g.PUT("/sessions/:id/range", h.SetRange)
	g.PUT("/sessions/:id/valuation", h.SetValuation)
	g.GET("/sessions/:id/opportunities", h.GetOpportunities)

	g.POST("/sessions/:id/draft", h.OpenDraft)
	g.PUT("/sessions/:id/draft", h.UpdateDraft)
	g.POST("/sessions/:id/draft/submit", h.SubmitDraft)
	g.DELETE("/sessions/:id/draft", h.CloseDraft)

	g.GET("/notification", h.GetNotification)
	g.DELETE("/notification", h.ClearNotification)

	h.registerTradingRoutes(g)
}

func (h *Handler) session(c echo.Context) (*usecase.ChartSession, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return nil, xhttp.BadRequestError("session id must be an integer")
	}
	s, ok := h.sessions.Get(id)
	if !ok {
		return nil, xhttp.NotFoundErrorf("session %d not found", id)
	}
	return s, nil
}

func (h *Handler) CreateSession(c echo.Context) error {
	req := &models.CreateSessionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	s, err := h.sessions.Mount(c.Request().Context(), req.Symbol)
	if err != nil {
		h.logger.Error("mount session", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.CreatedResponse(c, s.View())
}

func (h *Handler) ListSessions(c echo.Context) error {
	views := h.sessions.List()
	return xhttp.ListResponse(c, views, int64(len(views)))
}

func (h *Handler) GetSession(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, s.View())
}

func (h *Handler) DeleteSession(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("session id must be an integer"))
	}
	if !h.sessions.Unmount(id) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("session %d not found", id))
	}
	return xhttp.NoContentResponse(c)
}

func (h *Handler) SetSymbol(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	req := &models.SetSymbolRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if err := s.SwitchSymbol(c.Request().Context(), req.Symbol); err != nil && !errors.Is(err, usecase.ErrLoadInFlight) {
		h.logger.Warn("switch symbol", xlogger.Int("session", s.ID()), xlogger.Error(err))
	}
	return xhttp.SuccessResponse(c, s.View())
}

func (h *Handler) SetTimeframe(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	req := &models.SetTimeframeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if err := s.SetTimeframe(c.Request().Context(), req.Timeframe); err != nil && !errors.Is(err, usecase.ErrLoadInFlight) {
		h.logger.Warn("set timeframe", xlogger.Int("session", s.ID()), xlogger.Error(err))
	}
	return xhttp.SuccessResponse(c, s.View())
}

func (h *Handler) SetRange(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	req := &models.SetRangeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if err := s.SetRangeIndex(c.Request().Context(), req.RangeIndex); err != nil && !errors.Is(err, usecase.ErrLoadInFlight) {
		h.logger.Warn("set range", xlogger.Int("session", s.ID()), xlogger.Error(err))
	}
	return xhttp.SuccessResponse(c, s.View())
}

func (h *Handler) SetValuation(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	req := &models.SetValuationRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	s.SetValuation(models.ValuationConfig{
		Enabled:  req.Enabled,
		Baseline: req.Baseline,
		OverPct:  req.OverPct,
		UnderPct: req.UnderPct,
	})
	return xhttp.SuccessResponse(c, s.View())
}

// GetOpportunities returns the valuation markers of a session, optionally
// narrowed to a time window via "from" and "to" query params.
func (h *Handler) GetOpportunities(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	opps := s.Opportunities()

	if from, ok := xhttp.ParseTime(c.QueryParam("from")); ok {
		opps = filterOpportunities(opps, func(o models.Opportunity) bool { return !o.Timestamp.Before(from) })
	}
	if to, ok := xhttp.ParseTime(c.QueryParam("to")); ok {
		opps = filterOpportunities(opps, func(o models.Opportunity) bool { return !o.Timestamp.After(to) })
	}
	return xhttp.ListResponse(c, opps, int64(len(opps)))
}

func filterOpportunities(opps []models.Opportunity, keep func(models.Opportunity) bool) []models.Opportunity {
	out := opps[:0]
	for _, o := range opps {
		if keep(o) {
			out = append(out, o)
		}
	}
	return out
}

func (h *Handler) OpenDraft(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	req := &models.OpenDraftRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	draft, err := s.OpenDraft(req.BarIndex)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	return xhttp.SuccessResponse(c, draft)
}

func (h *Handler) UpdateDraft(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	req := &models.UpdateDraftRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if err := s.UpdateDraft(req.Qty, req.Side, req.OrderType, req.LimitPrice); err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	return xhttp.SuccessResponse(c, s.View())
}

// SubmitDraft runs the draft through validation and the backend. The
// outcome lands on the view: a closed draft on success, the draft with
// its error field set otherwise.
func (h *Handler) SubmitDraft(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}

	if err := s.SubmitDraft(c.Request().Context()); err != nil {
		if s.View().Draft == nil {
			// no draft to carry the error, surface it directly
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
		}
		h.logger.Warn("submit draft", xlogger.Int("session", s.ID()), xlogger.Error(err))
	}
	return xhttp.SuccessResponse(c, s.View())
}

func (h *Handler) CloseDraft(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	s.CloseDraft()
	return xhttp.NoContentResponse(c)
}

func (h *Handler) GetNotification(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.notifier.Current())
}

func (h *Handler) ClearNotification(c echo.Context) error {
	h.notifier.Clear()
	return xhttp.NoContentResponse(c)
}
