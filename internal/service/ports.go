package service

import (
    "context"
    "time"

    "github.com/iliyamo/community-events/internal/model"
)

// Transactor runs fn inside a single database transaction carried by the
// context passed to fn.  A non-nil error from fn rolls everything back.
type Transactor interface {
    WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventStore is the event persistence used by the services.  It is
// implemented by repository.EventRepo.
type EventStore interface {
    Create(ctx context.Context, e *model.Event) error
    SlugExists(ctx context.Context, slug string) (bool, error)
    GetByID(ctx context.Context, id uint64) (model.Event, error)
    GetBySlug(ctx context.Context, slug string) (model.Event, error)
    LockForUpdate(ctx context.Context, id uint64) (model.Event, error)
    ListUpcoming(ctx context.Context, now time.Time, limit int) ([]model.Event, error)
    UpdateStatus(ctx context.Context, id uint64, status model.EventStatus) error
    Delete(ctx context.Context, id uint64) error
    IncrementSeats(ctx context.Context, id uint64) error
    DecrementSeats(ctx context.Context, id uint64) error
    SetSeatsTaken(ctx context.Context, id uint64, n uint32) error
}

// RegistrationStore is the registration persistence used by the services.
// It is implemented by repository.RegistrationRepo.
type RegistrationStore interface {
    Exists(ctx context.Context, eventID, userID uint64) (bool, error)
    Create(ctx context.Context, reg *model.Registration) error
    Delete(ctx context.Context, eventID, userID uint64) (bool, error)
    CountByEvent(ctx context.Context, eventID uint64) (uint32, error)
    ListByEvent(ctx context.Context, eventID uint64) ([]model.Registration, error)
    ListByUser(ctx context.Context, userID uint64) ([]model.UserRegistration, error)
}

// Notifier receives committed changes.  Implementations must not block
// the caller and must not report failures: the change is already durable
// and cached views expire on their own.
type Notifier interface {
    EventChanged(ctx context.Context, change model.EventChange)
}

type nopNotifier struct{}

func (nopNotifier) EventChanged(context.Context, model.EventChange) {}
