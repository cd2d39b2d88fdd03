package handler

import (
    "context"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/community-events/internal/model"
)

// maxListLimit caps the ?limit query parameter of the upcoming list.
const maxListLimit = 100

// EventReader is the read side of the event service used by the public
// browse endpoints and to resolve {event} path parameters.
type EventReader interface {
    Get(ctx context.Context, ref string) (model.Event, error)
    ListUpcoming(ctx context.Context, limit int) ([]model.Event, error)
}

// EventView is the public representation of an event.  SeatsRemaining is
// null for events without a capacity limit.
type EventView struct {
    ID             uint64            `json:"id"`
    Slug           string            `json:"slug"`
    Title          string            `json:"title"`
    Summary        string            `json:"summary"`
    Description    string            `json:"description,omitempty"`
    Type           model.EventType   `json:"type"`
    StartAt        time.Time         `json:"start_at"`
    EndAt          time.Time         `json:"end_at"`
    Capacity       *uint32           `json:"capacity"`
    SeatsTaken     uint32            `json:"seats_taken"`
    SeatsRemaining *uint32           `json:"seats_remaining"`
    Status         model.EventStatus `json:"status"`
}

func newEventView(e model.Event, withDescription bool) EventView {
    v := EventView{
        ID:             e.ID,
        Slug:           e.Slug,
        Title:          e.Title,
        Summary:        e.Summary,
        Type:           e.Type,
        StartAt:        e.StartAt,
        EndAt:          e.EndAt,
        Capacity:       e.Capacity,
        SeatsTaken:     e.SeatsTaken,
        SeatsRemaining: e.SeatsRemaining(),
        Status:         e.Status,
    }
    if withDescription {
        v.Description = e.Description
    }
    return v
}

// PublicHandler serves the unauthenticated browse endpoints.  Responses
// are cached by the response cache middleware configured in the router.
type PublicHandler struct {
    events EventReader
    logger *zap.Logger
}

// NewPublicHandler constructs a PublicHandler and panics if events is nil.
func NewPublicHandler(events EventReader, logger *zap.Logger) *PublicHandler {
    if events == nil {
        panic("nil event reader passed to NewPublicHandler")
    }
    return &PublicHandler{events: events, logger: orNop(logger)}
}

// ListUpcoming handles GET /v1/events.  It returns published events that
// have not ended yet ordered by start time.
func (h *PublicHandler) ListUpcoming(c echo.Context) error {
    limit := 0
    if raw := c.QueryParam("limit"); raw != "" {
        n, err := strconv.Atoi(raw)
        if err != nil || n < 1 {
            return badRequest(c, "invalid_limit", "limit must be a positive integer")
        }
        limit = min(n, maxListLimit)
    }
    events, err := h.events.ListUpcoming(c.Request().Context(), limit)
    if err != nil {
        return respondError(c, h.logger, err)
    }
    out := make([]EventView, 0, len(events))
    for _, e := range events {
        out = append(out, newEventView(e, false))
    }
    return c.JSON(http.StatusOK, echo.Map{"events": out})
}

// GetEvent handles GET /v1/events/:event where :event is a slug or an ID.
// Only published events are visible.
func (h *PublicHandler) GetEvent(c echo.Context) error {
    e, err := h.events.Get(c.Request().Context(), c.Param("event"))
    if err != nil {
        return respondError(c, h.logger, err)
    }
    if e.Status != model.EventStatusPublished {
        return c.JSON(http.StatusNotFound, echo.Map{"error": msgEventNotFound, "code": "event_not_found"})
    }
    return c.JSON(http.StatusOK, newEventView(e, true))
}
