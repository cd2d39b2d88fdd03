// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow the service layer to
// distinguish between different failure scenarios without inspecting
// driver errors. For example, ErrDuplicate signals that a unique key
// rejected an insert, while ErrLockTimeout indicates that a row lock
// could not be obtained before the database gave up waiting.
package repository

import "errors"

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a unique key, such as
// a second registration for the same (event, user) pair or a slug that
// is already taken.
var ErrDuplicate = errors.New("duplicate")

// ErrLockTimeout is returned when a statement waited too long for a row
// lock (MySQL 1205), was chosen as a deadlock victim (MySQL 1213) or the
// caller's deadline expired while blocked on a lock.  Nothing was
// committed, so the whole operation is safe to retry.
var ErrLockTimeout = errors.New("lock timeout")

// ErrNoTx is returned by locking reads invoked outside of WithTx.  A
// FOR UPDATE lock outside a transaction is released immediately and
// protects nothing.
var ErrNoTx = errors.New("locking read requires a transaction")
