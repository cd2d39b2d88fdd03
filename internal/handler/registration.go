package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/community-events/internal/middleware"
    "github.com/iliyamo/community-events/internal/model"
)

// Reserver takes and releases seats.
type Reserver interface {
    Register(ctx context.Context, eventID, userID uint64) (model.Registration, error)
    Cancel(ctx context.Context, eventID, userID uint64) error
}

// RegistrationLister lists the caller's own registrations.
type RegistrationLister interface {
    ListForUser(ctx context.Context, userID uint64) ([]model.UserRegistration, error)
}

// RegistrationHandler serves the member endpoints for taking and giving
// back a seat.  All methods assume JWTAuth already ran.
type RegistrationHandler struct {
    events       EventReader
    reservations Reserver
    mine         RegistrationLister
    logger       *zap.Logger
}

// NewRegistrationHandler constructs a RegistrationHandler.  All
// dependencies except logger must be non-nil.
func NewRegistrationHandler(events EventReader, reservations Reserver, mine RegistrationLister, logger *zap.Logger) *RegistrationHandler {
    if events == nil || reservations == nil || mine == nil {
        panic("nil dependency passed to NewRegistrationHandler")
    }
    return &RegistrationHandler{events: events, reservations: reservations, mine: mine, logger: orNop(logger)}
}

// Register handles POST /v1/events/:event/register.  On success it
// returns 201 with the registration.
func (h *RegistrationHandler) Register(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return middleware.Unauthorized(c)
    }
    ctx := c.Request().Context()
    e, err := h.events.Get(ctx, c.Param("event"))
    if err != nil {
        return respondError(c, h.logger, err)
    }
    reg, err := h.reservations.Register(ctx, e.ID, userID)
    if err != nil {
        return respondError(c, h.logger, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"message": msgRegistered, "registration": reg})
}

// Cancel handles DELETE /v1/events/:event/register.
func (h *RegistrationHandler) Cancel(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return middleware.Unauthorized(c)
    }
    ctx := c.Request().Context()
    e, err := h.events.Get(ctx, c.Param("event"))
    if err != nil {
        return respondError(c, h.logger, err)
    }
    if err := h.reservations.Cancel(ctx, e.ID, userID); err != nil {
        return respondError(c, h.logger, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": msgCancelled})
}

// Mine handles GET /v1/me/registrations.
func (h *RegistrationHandler) Mine(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return middleware.Unauthorized(c)
    }
    regs, err := h.mine.ListForUser(c.Request().Context(), userID)
    if err != nil {
        return respondError(c, h.logger, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"registrations": regs})
}
