package handler // handler defines http handlers

import (
    "errors"
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/community-events/internal/middleware"
    "github.com/iliyamo/community-events/internal/model"
    "github.com/iliyamo/community-events/internal/service"
)

// lockRetryAfter is the Retry-After value, in seconds, sent with a lock
// timeout.
const lockRetryAfter = "2"

// User-facing messages.
const (
    msgRegistered        = "Registro completado."
    msgCancelled         = "Registro cancelado."
    msgNotAvailable      = "El evento no está disponible."
    msgAlreadyRegistered = "Ya estás registrado."
    msgCapacityExceeded  = "Aforo completo."
    msgNotRegistered     = "No estabas registrado."
    msgLockTimeout       = "Inténtalo de nuevo en unos segundos."
    msgEventNotFound     = "Evento no encontrado."
    msgForbidden         = "No tienes permiso para esta acción."
    msgSlugTaken         = "Ya existe un evento con un título similar. Inténtalo de nuevo."
    msgInternal          = "Error interno. Inténtalo más tarde."
)

// errorResponse describes how a service error is rendered.
type errorResponse struct {
    status  int
    code    string
    message string
}

var errorTable = []struct {
    err error
    res errorResponse
}{
    {service.ErrEventNotFound, errorResponse{http.StatusNotFound, "event_not_found", msgEventNotFound}},
    {service.ErrEventNotAvailable, errorResponse{http.StatusConflict, "event_not_available", msgNotAvailable}},
    {service.ErrAlreadyRegistered, errorResponse{http.StatusConflict, "already_registered", msgAlreadyRegistered}},
    {service.ErrCapacityExceeded, errorResponse{http.StatusConflict, "capacity_exceeded", msgCapacityExceeded}},
    {service.ErrNotRegistered, errorResponse{http.StatusNotFound, "not_registered", msgNotRegistered}},
    {service.ErrLockTimeout, errorResponse{http.StatusServiceUnavailable, "lock_timeout", msgLockTimeout}},
    {service.ErrForbidden, errorResponse{http.StatusForbidden, "forbidden", msgForbidden}},
    {service.ErrSlugTaken, errorResponse{http.StatusConflict, "slug_taken", msgSlugTaken}},
}

// classify maps err to its HTTP rendering.  Unknown errors become 500.
func classify(err error) errorResponse {
    var verr *service.ValidationError
    if errors.As(err, &verr) {
        return errorResponse{http.StatusBadRequest, "invalid_" + verr.Field, verr.Error()}
    }
    for _, e := range errorTable {
        if errors.Is(err, e.err) {
            return e.res
        }
    }
    return errorResponse{http.StatusInternalServerError, "internal", msgInternal}
}

// respondError writes the JSON error body for err and logs unexpected
// failures.
func respondError(c echo.Context, logger *zap.Logger, err error) error {
    res := classify(err)
    switch res.status {
    case http.StatusInternalServerError:
        logger.Error("request failed", zap.Error(err), zap.String("path", c.Path()))
    case http.StatusServiceUnavailable:
        c.Response().Header().Set("Retry-After", lockRetryAfter)
        logger.Warn("event lock wait timed out", zap.Error(err), zap.String("path", c.Path()))
    }
    return c.JSON(res.status, echo.Map{"error": res.message, "code": res.code})
}

func badRequest(c echo.Context, code, message string) error {
    return c.JSON(http.StatusBadRequest, echo.Map{"error": message, "code": code})
}

// getUserID returns the authenticated caller set by the JWT middleware.
func getUserID(c echo.Context) (uint64, error) {
    id, ok := middleware.UserID(c)
    if !ok {
        return 0, errors.New("invalid user_id in context")
    }
    return id, nil
}

// getActor returns the authenticated caller with its role.
func getActor(c echo.Context) (model.Actor, error) {
    actor, ok := middleware.ActorFrom(c)
    if !ok {
        return model.Actor{}, errors.New("invalid user_id in context")
    }
    return actor, nil
}

// parseID parses a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
    return id, err == nil && id > 0
}

func orNop(logger *zap.Logger) *zap.Logger {
    if logger == nil {
        return zap.NewNop()
    }
    return logger
}
