package service

import (
    "errors"
    "fmt"

    "github.com/iliyamo/community-events/internal/repository"
)

// Reservation outcomes.  Handlers compare them with errors.Is and turn
// them into user-facing messages; none of them is retried internally.
var (
    ErrEventNotFound     = errors.New("event not found")
    ErrEventNotAvailable = errors.New("event not available")
    ErrAlreadyRegistered = errors.New("already registered")
    ErrCapacityExceeded  = errors.New("capacity exceeded")
    ErrNotRegistered     = errors.New("not registered")
    // ErrLockTimeout is transient: nothing was committed and the caller
    // may retry the whole operation.
    ErrLockTimeout = errors.New("lock timeout")
)

// ErrSlugTaken is returned by EventService.Create when concurrent inserts
// kept taking the generated slug.  Submitting again usually succeeds.
var ErrSlugTaken = errors.New("slug taken")

// ErrForbidden is returned when the actor's role does not allow the
// requested event administration.
var ErrForbidden = errors.New("forbidden")

// ValidationError reports an invalid input field.
type ValidationError struct {
    Field   string
    Message string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Message }

func invalid(field, msg string) error { return &ValidationError{Field: field, Message: msg} }

// storeErr translates repository errors into service errors.  dup is the
// error a unique key violation stands for in the calling operation.
func storeErr(err, dup error) error {
    switch {
    case err == nil:
        return nil
    case errors.Is(err, repository.ErrNotFound):
        return ErrEventNotFound
    case errors.Is(err, repository.ErrLockTimeout):
        return fmt.Errorf("%w: %w", ErrLockTimeout, err)
    case dup != nil && errors.Is(err, repository.ErrDuplicate):
        return dup
    }
    return err
}
