package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/community-events/internal/middleware"
    "github.com/iliyamo/community-events/internal/model"
    "github.com/iliyamo/community-events/internal/service"
)

// EventAdmin is the write side of the event service.
type EventAdmin interface {
    Create(ctx context.Context, actor model.Actor, in service.CreateEventInput) (model.Event, error)
    SetStatus(ctx context.Context, actor model.Actor, eventID uint64, status model.EventStatus) (model.Event, error)
    Delete(ctx context.Context, actor model.Actor, eventID uint64) error
    ListRegistrations(ctx context.Context, actor model.Actor, eventID uint64) ([]model.Registration, error)
}

// Reconciler repairs an event's seat counter.
type Reconciler interface {
    Reconcile(ctx context.Context, eventID uint64) (model.Event, error)
}

// AdminHandler serves event administration for admins and organizers.
// Role checks beyond the route-level RequireRole are made by the service.
type AdminHandler struct {
    events     EventAdmin
    reconciler Reconciler
    logger     *zap.Logger
}

// NewAdminHandler constructs an AdminHandler and panics on nil services.
func NewAdminHandler(events EventAdmin, reconciler Reconciler, logger *zap.Logger) *AdminHandler {
    if events == nil || reconciler == nil {
        panic("nil service passed to NewAdminHandler")
    }
    return &AdminHandler{events: events, reconciler: reconciler, logger: orNop(logger)}
}

// CreateEvent handles POST /v1/admin/events.
func (h *AdminHandler) CreateEvent(c echo.Context) error {
    actor, err := getActor(c)
    if err != nil {
        return middleware.Unauthorized(c)
    }
    var in service.CreateEventInput
    if err := c.Bind(&in); err != nil {
        return badRequest(c, "invalid_body", "invalid request body")
    }
    e, err := h.events.Create(c.Request().Context(), actor, in)
    if err != nil {
        return respondError(c, h.logger, err)
    }
    return c.JSON(http.StatusCreated, newEventView(e, true))
}

// SetStatus handles PATCH /v1/admin/events/:id/status with a body of
// {"status": "draft"|"published"|"cancelled"}.
func (h *AdminHandler) SetStatus(c echo.Context) error {
    actor, err := getActor(c)
    if err != nil {
        return middleware.Unauthorized(c)
    }
    id, ok := parseID(c, "id")
    if !ok {
        return badRequest(c, "invalid_id", "invalid event id")
    }
    var body struct {
        Status model.EventStatus `json:"status"`
    }
    if err := c.Bind(&body); err != nil {
        return badRequest(c, "invalid_body", "invalid request body")
    }
    e, err := h.events.SetStatus(c.Request().Context(), actor, id, body.Status)
    if err != nil {
        return respondError(c, h.logger, err)
    }
    return c.JSON(http.StatusOK, newEventView(e, true))
}

// DeleteEvent handles DELETE /v1/admin/events/:id.  Registrations are
// removed with the event.
func (h *AdminHandler) DeleteEvent(c echo.Context) error {
    actor, err := getActor(c)
    if err != nil {
        return middleware.Unauthorized(c)
    }
    id, ok := parseID(c, "id")
    if !ok {
        return badRequest(c, "invalid_id", "invalid event id")
    }
    if err := h.events.Delete(c.Request().Context(), actor, id); err != nil {
        return respondError(c, h.logger, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// ListRegistrations handles GET /v1/admin/events/:id/registrations.
func (h *AdminHandler) ListRegistrations(c echo.Context) error {
    actor, err := getActor(c)
    if err != nil {
        return middleware.Unauthorized(c)
    }
    id, ok := parseID(c, "id")
    if !ok {
        return badRequest(c, "invalid_id", "invalid event id")
    }
    regs, err := h.events.ListRegistrations(c.Request().Context(), actor, id)
    if err != nil {
        return respondError(c, h.logger, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"registrations": regs, "count": len(regs)})
}

// Reconcile handles POST /v1/admin/events/:id/reconcile.  The route is
// restricted to admins.
func (h *AdminHandler) Reconcile(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return badRequest(c, "invalid_id", "invalid event id")
    }
    e, err := h.reconciler.Reconcile(c.Request().Context(), id)
    if err != nil {
        return respondError(c, h.logger, err)
    }
    return c.JSON(http.StatusOK, newEventView(e, false))
}
