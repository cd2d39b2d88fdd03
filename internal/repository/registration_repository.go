package repository

import (
    "context"
    "database/sql"
    "fmt"

    "github.com/iliyamo/community-events/internal/model"
)

// RegistrationRepo manages the event_registrations table.  Writes are
// expected to run inside the transaction that holds the event row lock.
type RegistrationRepo struct {
    db *sql.DB
}

// NewRegistrationRepo returns a new RegistrationRepo bound to the given database.
func NewRegistrationRepo(db *sql.DB) *RegistrationRepo { return &RegistrationRepo{db: db} }

// Exists reports whether userID holds a registration for eventID.
func (r *RegistrationRepo) Exists(ctx context.Context, eventID, userID uint64) (bool, error) {
    const q = `SELECT EXISTS(SELECT 1 FROM event_registrations WHERE event_id = ? AND user_id = ?)`
    var exists bool
    if err := conn(ctx, r.db).QueryRowContext(ctx, q, eventID, userID).Scan(&exists); err != nil {
        return false, fmt.Errorf("check registration: %w", classifyLockWait(err))
    }
    return exists, nil
}

// Create inserts reg and populates its ID.  A second registration for the
// same (event, user) pair yields ErrDuplicate.
func (r *RegistrationRepo) Create(ctx context.Context, reg *model.Registration) error {
    const q = `INSERT INTO event_registrations (event_id, user_id, created_at) VALUES (?, ?, ?)`
    res, err := conn(ctx, r.db).ExecContext(ctx, q, reg.EventID, reg.UserID, reg.CreatedAt.UTC())
    if err != nil {
        return fmt.Errorf("insert registration: %w", classifyLockWait(err))
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    reg.ID = uint64(id)
    return nil
}

// Delete removes the registration of userID for eventID.  It reports
// whether a row was removed.
func (r *RegistrationRepo) Delete(ctx context.Context, eventID, userID uint64) (bool, error) {
    const q = `DELETE FROM event_registrations WHERE event_id = ? AND user_id = ?`
    res, err := conn(ctx, r.db).ExecContext(ctx, q, eventID, userID)
    if err != nil {
        return false, fmt.Errorf("delete registration: %w", classifyLockWait(err))
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    return n > 0, nil
}

// CountByEvent returns the number of registrations held for eventID.
func (r *RegistrationRepo) CountByEvent(ctx context.Context, eventID uint64) (uint32, error) {
    var n uint32
    err := conn(ctx, r.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM event_registrations WHERE event_id = ?`, eventID).Scan(&n)
    if err != nil {
        return 0, fmt.Errorf("count registrations: %w", classifyLockWait(err))
    }
    return n, nil
}

// ListByEvent returns the registrations of an event in sign-up order.
func (r *RegistrationRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.Registration, error) {
    const q = `SELECT id, event_id, user_id, created_at FROM event_registrations
               WHERE event_id = ? ORDER BY created_at ASC, id ASC`
    rows, err := conn(ctx, r.db).QueryContext(ctx, q, eventID)
    if err != nil {
        return nil, fmt.Errorf("list registrations: %w", err)
    }
    defer rows.Close()
    regs := make([]model.Registration, 0)
    for rows.Next() {
        var reg model.Registration
        if err := rows.Scan(&reg.ID, &reg.EventID, &reg.UserID, &reg.CreatedAt); err != nil {
            return nil, err
        }
        regs = append(regs, reg)
    }
    return regs, rows.Err()
}

// ListByUser returns the registrations of a user joined with the event
// data shown in their listing, soonest event first.
func (r *RegistrationRepo) ListByUser(ctx context.Context, userID uint64) ([]model.UserRegistration, error) {
    const q = `SELECT er.id, er.created_at, e.id, e.slug, e.title, e.start_at, e.status
               FROM event_registrations er
               JOIN events e ON e.id = er.event_id
               WHERE er.user_id = ?
               ORDER BY e.start_at ASC, er.id ASC`
    rows, err := conn(ctx, r.db).QueryContext(ctx, q, userID)
    if err != nil {
        return nil, fmt.Errorf("list user registrations: %w", err)
    }
    defer rows.Close()
    out := make([]model.UserRegistration, 0)
    for rows.Next() {
        var ur model.UserRegistration
        if err := rows.Scan(&ur.RegistrationID, &ur.RegisteredAt, &ur.EventID, &ur.Slug, &ur.Title, &ur.StartAt, &ur.Status); err != nil {
            return nil, err
        }
        out = append(out, ur)
    }
    return out, rows.Err()
}
