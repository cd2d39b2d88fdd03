package service

import (
    "context"
    "errors"
    "fmt"
    "strconv"
    "strings"
    "time"

    "github.com/iliyamo/community-events/internal/model"
    "github.com/iliyamo/community-events/internal/repository"
    "github.com/iliyamo/community-events/internal/slug"
)

// slugAttempts bounds how often Create retries when a concurrent insert
// took the slug between the existence check and the insert.
const slugAttempts = 3

// EventService implements the event administration and public reads
// around the reservation core.  It never writes seats_taken.
type EventService struct {
    tx     Transactor
    events EventStore
    regs   RegistrationStore
    opts   options
}

// NewEventService wires the service to its stores.
func NewEventService(tx Transactor, events EventStore, regs RegistrationStore, opts ...Option) *EventService {
    return &EventService{tx: tx, events: events, regs: regs, opts: buildOptions(opts)}
}

// CreateEventInput carries the fields an organizer submits.  Capacity is
// nil for unlimited events.  Publish asks for the event to be published
// immediately; it is honoured only for actors that may publish.
type CreateEventInput struct {
    Title       string          `json:"title"`
    Summary     string          `json:"summary"`
    Description string          `json:"description"`
    Type        model.EventType `json:"type"`
    StartAt     time.Time       `json:"start_at"`
    EndAt       time.Time       `json:"end_at"`
    Capacity    *int64          `json:"capacity"`
    Publish     bool            `json:"publish"`
}

func (in CreateEventInput) validate() error {
    if strings.TrimSpace(in.Title) == "" {
        return invalid("title", "is required")
    }
    if len(in.Title) > 255 {
        return invalid("title", "must be at most 255 characters")
    }
    if len(in.Summary) > 500 {
        return invalid("summary", "must be at most 500 characters")
    }
    if !in.Type.Valid() {
        return invalid("type", "must be one of kata, taller, meetup")
    }
    if in.StartAt.IsZero() || in.EndAt.IsZero() {
        return invalid("start_at", "start_at and end_at are required")
    }
    if !in.EndAt.After(in.StartAt) {
        return invalid("end_at", "must be after start_at")
    }
    if in.Capacity != nil && (*in.Capacity < 0 || *in.Capacity > int64(^uint32(0))) {
        return invalid("capacity", "must be a non-negative integer")
    }
    return nil
}

// Create validates in and stores a new event with a unique slug.  The
// event is a draft unless in.Publish is set and the actor may publish.
func (s *EventService) Create(ctx context.Context, actor model.Actor, in CreateEventInput) (model.Event, error) {
    if actor.Role != model.RoleAdmin && actor.Role != model.RoleOrganizer {
        return model.Event{}, ErrForbidden
    }
    if err := in.validate(); err != nil {
        return model.Event{}, err
    }
    status := model.EventStatusDraft
    if in.Publish && actor.CanPublish() {
        status = model.EventStatusPublished
    }
    e := model.Event{
        Title:       strings.TrimSpace(in.Title),
        Summary:     strings.TrimSpace(in.Summary),
        Description: in.Description,
        Type:        in.Type,
        StartAt:     in.StartAt.UTC(),
        EndAt:       in.EndAt.UTC(),
        Status:      status,
        CreatedBy:   actor.UserID,
    }
    if in.Capacity != nil {
        c := uint32(*in.Capacity)
        e.Capacity = &c
    }

    var err error
    for attempt := 0; attempt < slugAttempts; attempt++ {
        e.Slug, err = slug.Unique(ctx, e.Title, s.events.SlugExists)
        if err != nil {
            return model.Event{}, err
        }
        err = s.events.Create(ctx, &e)
        if !errors.Is(err, repository.ErrDuplicate) {
            break
        }
    }
    if errors.Is(err, repository.ErrDuplicate) {
        return model.Event{}, fmt.Errorf("%w: %s after %d attempts", ErrSlugTaken, e.Slug, slugAttempts)
    }
    if err != nil {
        return model.Event{}, err
    }
    s.notify(ctx, e, model.ChangeUpdated)
    return e, nil
}

// SetStatus moves an event to status.  Only actors that may publish can
// publish; organizers may otherwise manage the events they created.  The
// update runs under the event row lock so it is ordered with concurrent
// registrations.
func (s *EventService) SetStatus(ctx context.Context, actor model.Actor, eventID uint64, status model.EventStatus) (model.Event, error) {
    if !status.Valid() {
        return model.Event{}, invalid("status", "must be one of draft, published, cancelled")
    }
    var event model.Event
    err := s.tx.WithTx(ctx, func(ctx context.Context) error {
        e, err := s.events.LockForUpdate(ctx, eventID)
        if err != nil {
            return err
        }
        if !actor.CanManage(e.CreatedBy) {
            return ErrForbidden
        }
        if status == model.EventStatusPublished && !actor.CanPublish() {
            return ErrForbidden
        }
        if e.Status != status {
            if err := s.events.UpdateStatus(ctx, eventID, status); err != nil {
                return err
            }
            e.Status = status
        }
        event = e
        return nil
    })
    if err != nil {
        return model.Event{}, storeErr(err, nil)
    }
    s.notify(ctx, event, model.ChangeUpdated)
    return event, nil
}

// Delete removes an event and, through the foreign key cascade, its
// registrations.  Only admins may delete.
func (s *EventService) Delete(ctx context.Context, actor model.Actor, eventID uint64) error {
    if !actor.IsAdmin() {
        return ErrForbidden
    }
    var event model.Event
    err := s.tx.WithTx(ctx, func(ctx context.Context) error {
        e, err := s.events.LockForUpdate(ctx, eventID)
        if err != nil {
            return err
        }
        event = e
        return s.events.Delete(ctx, eventID)
    })
    if err != nil {
        return storeErr(err, nil)
    }
    event.SeatsTaken = 0
    s.notify(ctx, event, model.ChangeDeleted)
    return nil
}

// Get resolves ref as a numeric ID first and as a slug otherwise.
func (s *EventService) Get(ctx context.Context, ref string) (model.Event, error) {
    ref = strings.TrimSpace(ref)
    if ref == "" {
        return model.Event{}, ErrEventNotFound
    }
    if id, err := strconv.ParseUint(ref, 10, 64); err == nil && id > 0 {
        e, err := s.events.GetByID(ctx, id)
        if err == nil {
            return e, nil
        }
        if !errors.Is(err, repository.ErrNotFound) {
            return model.Event{}, err
        }
    }
    e, err := s.events.GetBySlug(ctx, strings.ToLower(ref))
    if err != nil {
        return model.Event{}, storeErr(err, nil)
    }
    return e, nil
}

// GetByID returns the event with the given ID.
func (s *EventService) GetByID(ctx context.Context, id uint64) (model.Event, error) {
    e, err := s.events.GetByID(ctx, id)
    if err != nil {
        return model.Event{}, storeErr(err, nil)
    }
    return e, nil
}

// ListUpcoming returns published events that have not ended yet.
func (s *EventService) ListUpcoming(ctx context.Context, limit int) ([]model.Event, error) {
    return s.events.ListUpcoming(ctx, s.opts.now(), limit)
}

// ListRegistrations returns the registrations of an event for an actor
// allowed to manage it.
func (s *EventService) ListRegistrations(ctx context.Context, actor model.Actor, eventID uint64) ([]model.Registration, error) {
    e, err := s.events.GetByID(ctx, eventID)
    if err != nil {
        return nil, storeErr(err, nil)
    }
    if !actor.CanManage(e.CreatedBy) {
        return nil, ErrForbidden
    }
    return s.regs.ListByEvent(ctx, eventID)
}

// ListForUser returns the caller's own registrations.
func (s *EventService) ListForUser(ctx context.Context, userID uint64) ([]model.UserRegistration, error) {
    return s.regs.ListByUser(ctx, userID)
}

func (s *EventService) notify(ctx context.Context, e model.Event, action model.ChangeAction) {
    s.opts.notifier.EventChanged(context.WithoutCancel(ctx), changeFor(e, 0, action, s.opts.now()))
}
