// Package service holds the business rules of the community events API.
// ReservationService owns the seat counter: it is the only writer of
// events.seats_taken and mutates it exclusively while holding the event
// row lock, so at most capacity registrations can ever be committed.
package service

import (
    "context"
    "time"

    "github.com/google/uuid"
    "go.uber.org/zap"

    "github.com/iliyamo/community-events/internal/model"
)

// ReservationService registers and cancels event seats.
type ReservationService struct {
    tx     Transactor
    events EventStore
    regs   RegistrationStore
    opts   options
}

// NewReservationService wires the service to its stores.
func NewReservationService(tx Transactor, events EventStore, regs RegistrationStore, opts ...Option) *ReservationService {
    return &ReservationService{tx: tx, events: events, regs: regs, opts: buildOptions(opts)}
}

// Register takes one seat of eventID for userID.
//
// The event row is locked first and every check runs against the locked
// row, in this order: the event must be published (ErrEventNotAvailable),
// the user must not hold a seat yet (ErrAlreadyRegistered) and a limited
// event must have a free seat (ErrCapacityExceeded).  The registration
// insert and the counter increment commit together or not at all.
func (s *ReservationService) Register(ctx context.Context, eventID, userID uint64) (model.Registration, error) {
    var (
        reg   model.Registration
        event model.Event
    )
    err := s.tx.WithTx(ctx, func(ctx context.Context) error {
        e, err := s.events.LockForUpdate(ctx, eventID)
        if err != nil {
            return err
        }
        if !e.AcceptsRegistrations() {
            return ErrEventNotAvailable
        }
        exists, err := s.regs.Exists(ctx, eventID, userID)
        if err != nil {
            return err
        }
        if exists {
            return ErrAlreadyRegistered
        }
        if e.IsFull() {
            return ErrCapacityExceeded
        }
        reg = model.Registration{EventID: eventID, UserID: userID, CreatedAt: s.opts.now().UTC()}
        if err := s.regs.Create(ctx, &reg); err != nil {
            return err
        }
        if err := s.events.IncrementSeats(ctx, eventID); err != nil {
            return err
        }
        e.SeatsTaken++
        event = e
        return nil
    })
    if err != nil {
        return model.Registration{}, storeErr(err, ErrAlreadyRegistered)
    }
    s.notify(ctx, event, userID, model.ChangeRegistered)
    return reg, nil
}

// Cancel releases the seat userID holds for eventID.  It takes the same
// row lock as Register.  The counter is decremented with a floor at zero
// so a drifted counter never goes negative.
func (s *ReservationService) Cancel(ctx context.Context, eventID, userID uint64) error {
    var event model.Event
    err := s.tx.WithTx(ctx, func(ctx context.Context) error {
        e, err := s.events.LockForUpdate(ctx, eventID)
        if err != nil {
            return err
        }
        removed, err := s.regs.Delete(ctx, eventID, userID)
        if err != nil {
            return err
        }
        if !removed {
            return ErrNotRegistered
        }
        if err := s.events.DecrementSeats(ctx, eventID); err != nil {
            return err
        }
        if e.SeatsTaken > 0 {
            e.SeatsTaken--
        }
        event = e
        return nil
    })
    if err != nil {
        return storeErr(err, nil)
    }
    s.notify(ctx, event, userID, model.ChangeCancelled)
    return nil
}

// Reconcile recounts the registrations of eventID under the row lock and
// stores the count in seats_taken.  It repairs counter drift caused by
// writes that bypassed this service and returns the corrected event.
func (s *ReservationService) Reconcile(ctx context.Context, eventID uint64) (model.Event, error) {
    var (
        event   model.Event
        changed bool
    )
    err := s.tx.WithTx(ctx, func(ctx context.Context) error {
        e, err := s.events.LockForUpdate(ctx, eventID)
        if err != nil {
            return err
        }
        n, err := s.regs.CountByEvent(ctx, eventID)
        if err != nil {
            return err
        }
        if n != e.SeatsTaken {
            if err := s.events.SetSeatsTaken(ctx, eventID, n); err != nil {
                return err
            }
            s.opts.logger.Warn("seat counter drift repaired",
                zap.Uint64("event_id", eventID),
                zap.Uint32("stored", e.SeatsTaken),
                zap.Uint32("counted", n),
            )
            e.SeatsTaken = n
            changed = true
        }
        event = e
        return nil
    })
    if err != nil {
        return model.Event{}, storeErr(err, nil)
    }
    if changed {
        s.notify(ctx, event, 0, model.ChangeReconciled)
    }
    return event, nil
}

// notify hands the committed change to the notifier.  The request context
// is detached from cancellation so delivery can outlive the request.
func (s *ReservationService) notify(ctx context.Context, e model.Event, userID uint64, action model.ChangeAction) {
    s.opts.notifier.EventChanged(context.WithoutCancel(ctx), changeFor(e, userID, action, s.opts.now()))
}

func changeFor(e model.Event, userID uint64, action model.ChangeAction, at time.Time) model.EventChange {
    return model.EventChange{
        ID:         uuid.NewString(),
        EventID:    e.ID,
        Slug:       e.Slug,
        UserID:     userID,
        Action:     action,
        SeatsTaken: e.SeatsTaken,
        Capacity:   e.Capacity,
        OccurredAt: at.UTC(),
    }
}
