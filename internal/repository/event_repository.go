package repository

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "time"

    "github.com/iliyamo/community-events/internal/model"
)

// EventRepo manages persistence for events.  Methods join the
// transaction carried by ctx when there is one (see TxManager.WithTx).
// All timestamps are stored in UTC.
type EventRepo struct {
    db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

const eventColumns = `id, slug, title, summary, description, type, start_at, end_at,
       capacity, seats_taken, status, created_by, created_at, updated_at`

type rowScanner interface {
    Scan(dest ...any) error
}

func scanEvent(row rowScanner) (model.Event, error) {
    var e model.Event
    var capacity sql.NullInt64
    err := row.Scan(
        &e.ID, &e.Slug, &e.Title, &e.Summary, &e.Description, &e.Type,
        &e.StartAt, &e.EndAt, &capacity, &e.SeatsTaken, &e.Status,
        &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt,
    )
    if err != nil {
        return model.Event{}, err
    }
    if capacity.Valid {
        c := uint32(capacity.Int64)
        e.Capacity = &c
    }
    return e, nil
}

func nullableCapacity(c *uint32) any {
    if c == nil {
        return nil
    }
    return int64(*c)
}

// Create inserts a new event.  The generated ID and the DB-default
// timestamps are populated on e.  A taken slug yields ErrDuplicate.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
    const q = `INSERT INTO events (slug, title, summary, description, type, start_at, end_at, capacity, seats_taken, status, created_by)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`
    db := conn(ctx, r.db)
    res, err := db.ExecContext(ctx, q,
        e.Slug, e.Title, e.Summary, e.Description, e.Type,
        e.StartAt.UTC(), e.EndAt.UTC(), nullableCapacity(e.Capacity), e.Status, e.CreatedBy,
    )
    if err != nil {
        return fmt.Errorf("insert event: %w", classify(err))
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    created, err := scanEvent(db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
    if err != nil {
        return fmt.Errorf("reload event: %w", err)
    }
    *e = created
    return nil
}

// SlugExists reports whether slug is already used by an event.
func (r *EventRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
    var exists bool
    err := conn(ctx, r.db).QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM events WHERE slug = ?)`, slug).Scan(&exists)
    if err != nil {
        return false, fmt.Errorf("check slug: %w", err)
    }
    return exists, nil
}

// GetByID returns the event with the given ID or ErrNotFound.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (model.Event, error) {
    e, err := scanEvent(conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
    if errors.Is(err, sql.ErrNoRows) {
        return model.Event{}, ErrNotFound
    }
    if err != nil {
        return model.Event{}, fmt.Errorf("get event %d: %w", id, err)
    }
    return e, nil
}

// GetBySlug returns the event with the given slug or ErrNotFound.
func (r *EventRepo) GetBySlug(ctx context.Context, slug string) (model.Event, error) {
    e, err := scanEvent(conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE slug = ?`, slug))
    if errors.Is(err, sql.ErrNoRows) {
        return model.Event{}, ErrNotFound
    }
    if err != nil {
        return model.Event{}, fmt.Errorf("get event %q: %w", slug, err)
    }
    return e, nil
}

// LockForUpdate reads the event row with an exclusive lock held until the
// surrounding transaction ends.  Concurrent callers locking the same event
// block here; other events are unaffected.  It must run inside WithTx.
func (r *EventRepo) LockForUpdate(ctx context.Context, id uint64) (model.Event, error) {
    tx := TxFromContext(ctx)
    if tx == nil {
        return model.Event{}, ErrNoTx
    }
    e, err := scanEvent(tx.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ? FOR UPDATE`, id))
    if errors.Is(err, sql.ErrNoRows) {
        return model.Event{}, ErrNotFound
    }
    if err != nil {
        return model.Event{}, fmt.Errorf("lock event %d: %w", id, classifyLockWait(err))
    }
    return e, nil
}

// ListUpcoming returns published events that have not ended yet ordered by
// start time.  A non-positive limit defaults to 50.
func (r *EventRepo) ListUpcoming(ctx context.Context, now time.Time, limit int) ([]model.Event, error) {
    if limit <= 0 {
        limit = 50
    }
    const q = `SELECT ` + eventColumns + ` FROM events
               WHERE status = 'published' AND end_at > ?
               ORDER BY start_at ASC, id ASC
               LIMIT ?`
    rows, err := conn(ctx, r.db).QueryContext(ctx, q, now.UTC(), limit)
    if err != nil {
        return nil, fmt.Errorf("list upcoming events: %w", err)
    }
    defer rows.Close()
    events := make([]model.Event, 0)
    for rows.Next() {
        e, err := scanEvent(rows)
        if err != nil {
            return nil, err
        }
        events = append(events, e)
    }
    return events, rows.Err()
}

// UpdateStatus sets the publication status of an event.
func (r *EventRepo) UpdateStatus(ctx context.Context, id uint64, status model.EventStatus) error {
    res, err := conn(ctx, r.db).ExecContext(ctx, `UPDATE events SET status = ? WHERE id = ?`, status, id)
    if err != nil {
        return fmt.Errorf("update event status: %w", classifyLockWait(err))
    }
    return expectOneRow(res)
}

// Delete removes an event.  Registrations are removed by the
// foreign key cascade.
func (r *EventRepo) Delete(ctx context.Context, id uint64) error {
    res, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
    if err != nil {
        return fmt.Errorf("delete event: %w", classifyLockWait(err))
    }
    return expectOneRow(res)
}

// IncrementSeats adds one to seats_taken.  Callers must hold the row lock.
func (r *EventRepo) IncrementSeats(ctx context.Context, id uint64) error {
    res, err := conn(ctx, r.db).ExecContext(ctx, `UPDATE events SET seats_taken = seats_taken + 1 WHERE id = ?`, id)
    if err != nil {
        return fmt.Errorf("increment seats: %w", classifyLockWait(err))
    }
    return expectOneRow(res)
}

// DecrementSeats subtracts one from seats_taken, never going below zero.
// Callers must hold the row lock.
func (r *EventRepo) DecrementSeats(ctx context.Context, id uint64) error {
    res, err := conn(ctx, r.db).ExecContext(ctx, `UPDATE events SET seats_taken = GREATEST(seats_taken, 1) - 1 WHERE id = ?`, id)
    if err != nil {
        return fmt.Errorf("decrement seats: %w", classifyLockWait(err))
    }
    return expectOneRow(res)
}

// SetSeatsTaken overwrites seats_taken.  Callers must hold the row lock.
func (r *EventRepo) SetSeatsTaken(ctx context.Context, id uint64, n uint32) error {
    res, err := conn(ctx, r.db).ExecContext(ctx, `UPDATE events SET seats_taken = ? WHERE id = ?`, n, id)
    if err != nil {
        return fmt.Errorf("set seats taken: %w", classifyLockWait(err))
    }
    return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrNotFound
    }
    return nil
}
