package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/community-events/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		db.Close()
	})
	return db, mock
}

var eventCols = []string{
	"id", "slug", "title", "summary", "description", "type", "start_at", "end_at",
	"capacity", "seats_taken", "status", "created_by", "created_at", "updated_at",
}

func eventRow(id uint64, capacity any, taken uint32, status string) *sqlmock.Rows {
	start := time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(eventCols).AddRow(
		id, "meetup-go", "Meetup Go", "", "", "meetup", start, start.Add(2*time.Hour),
		capacity, taken, status, uint64(7), start, start,
	)
}

func TestTxManagerWithTx(t *testing.T) {
	t.Parallel()

	t.Run("commits when fn succeeds", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE events SET seats_taken = seats_taken + 1 WHERE id = ?`)).
			WithArgs(1).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		events := NewEventRepo(db)
		err := NewTxManager(db).WithTx(context.Background(), func(ctx context.Context) error {
			if TxFromContext(ctx) == nil {
				t.Fatalf("expected tx in context")
			}
			return events.IncrementSeats(ctx, 1)
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("rolls back and returns fn error", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		boom := errors.New("boom")
		err := NewTxManager(db).WithTx(context.Background(), func(context.Context) error { return boom })
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
	})

	t.Run("nested call joins outer transaction", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectCommit()

		m := NewTxManager(db)
		err := m.WithTx(context.Background(), func(ctx context.Context) error {
			outer := TxFromContext(ctx)
			return m.WithTx(ctx, func(inner context.Context) error {
				if TxFromContext(inner) != outer {
					t.Fatalf("expected nested call to reuse outer tx")
				}
				return nil
			})
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})
}

func TestEventRepoLockForUpdate(t *testing.T) {
	t.Parallel()

	lockSQL := regexp.QuoteMeta(`FROM events WHERE id = ? FOR UPDATE`)

	t.Run("requires a transaction", func(t *testing.T) {
		db, _ := newMock(t)
		_, err := NewEventRepo(db).LockForUpdate(context.Background(), 1)
		if !errors.Is(err, ErrNoTx) {
			t.Fatalf("expected ErrNoTx, got %v", err)
		}
	})

	t.Run("scans locked row", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lockSQL).WithArgs(1).WillReturnRows(eventRow(1, int64(2), 1, "published"))
		mock.ExpectCommit()

		var got model.Event
		err := NewTxManager(db).WithTx(context.Background(), func(ctx context.Context) error {
			var err error
			got, err = NewEventRepo(db).LockForUpdate(ctx, 1)
			return err
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got.Capacity == nil || *got.Capacity != 2 || got.SeatsTaken != 1 {
			t.Fatalf("unexpected event %+v", got)
		}
		if got.Status != model.EventStatusPublished || got.Type != model.EventTypeMeetup {
			t.Fatalf("unexpected enums %q %q", got.Status, got.Type)
		}
	})

	t.Run("null capacity means unlimited", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lockSQL).WithArgs(3).WillReturnRows(eventRow(3, nil, 40, "published"))
		mock.ExpectCommit()

		var got model.Event
		_ = NewTxManager(db).WithTx(context.Background(), func(ctx context.Context) error {
			var err error
			got, err = NewEventRepo(db).LockForUpdate(ctx, 3)
			return err
		})
		if got.Capacity != nil {
			t.Fatalf("expected nil capacity, got %d", *got.Capacity)
		}
	})

	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "missing row", err: sql.ErrNoRows, want: ErrNotFound},
		{name: "lock wait timeout", err: &mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"}, want: ErrLockTimeout},
		{name: "deadlock", err: &mysql.MySQLError{Number: 1213, Message: "Deadlock found"}, want: ErrLockTimeout},
		{name: "caller deadline", err: context.DeadlineExceeded, want: ErrLockTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			mock.ExpectBegin()
			mock.ExpectQuery(lockSQL).WithArgs(9).WillReturnError(tt.err)
			mock.ExpectRollback()

			err := NewTxManager(db).WithTx(context.Background(), func(ctx context.Context) error {
				_, err := NewEventRepo(db).LockForUpdate(ctx, 9)
				return err
			})
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestEventRepoSeatCounter(t *testing.T) {
	t.Parallel()

	t.Run("decrement floors at zero in SQL", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(regexp.QuoteMeta(`SET seats_taken = GREATEST(seats_taken, 1) - 1 WHERE id = ?`)).
			WithArgs(4).WillReturnResult(sqlmock.NewResult(0, 1))
		if err := NewEventRepo(db).DecrementSeats(context.Background(), 4); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("missing row is not found", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE events SET seats_taken = ? WHERE id = ?`)).
			WithArgs(uint32(3), 5).WillReturnResult(sqlmock.NewResult(0, 0))
		if err := NewEventRepo(db).SetSeatsTaken(context.Background(), 5, 3); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestEventRepoCreate(t *testing.T) {
	t.Parallel()

	t.Run("inserts and reloads", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO events`)).
			WithArgs("meetup-go", "Meetup Go", "", "", model.EventTypeMeetup, sqlmock.AnyArg(), sqlmock.AnyArg(), int64(2), model.EventStatusDraft, uint64(7)).
			WillReturnResult(sqlmock.NewResult(11, 1))
		mock.ExpectQuery(regexp.QuoteMeta(`FROM events WHERE id = ?`)).WithArgs(11).
			WillReturnRows(eventRow(11, int64(2), 0, "draft"))

		capacity := uint32(2)
		e := model.Event{
			Slug: "meetup-go", Title: "Meetup Go", Type: model.EventTypeMeetup,
			StartAt: time.Now(), EndAt: time.Now().Add(time.Hour),
			Capacity: &capacity, Status: model.EventStatusDraft, CreatedBy: 7,
		}
		if err := NewEventRepo(db).Create(context.Background(), &e); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if e.ID != 11 || e.CreatedAt.IsZero() {
			t.Fatalf("expected reloaded row, got %+v", e)
		}
	})

	t.Run("taken slug is duplicate", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO events`)).
			WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'meetup-go'"})

		e := model.Event{Slug: "meetup-go", Type: model.EventTypeMeetup, Status: model.EventStatusDraft}
		if err := NewEventRepo(db).Create(context.Background(), &e); !errors.Is(err, ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
	})
}

func TestEventRepoGetBySlugNotFound(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM events WHERE slug = ?`)).WithArgs("nope").WillReturnRows(sqlmock.NewRows(eventCols))
	if _, err := NewEventRepo(db).GetBySlug(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEventRepoListUpcoming(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	now := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	rows := eventRow(1, int64(10), 3, "published")
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE status = 'published' AND end_at > ?`)).WithArgs(now, 50).WillReturnRows(rows)

	got, err := NewEventRepo(db).ListUpcoming(context.Background(), now, 0)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("unexpected events %+v", got)
	}
}

func TestRegistrationRepo(t *testing.T) {
	t.Parallel()

	t.Run("duplicate insert maps to ErrDuplicate", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO event_registrations`)).
			WithArgs(uint64(1), uint64(2), sqlmock.AnyArg()).
			WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '1-2'"})

		reg := model.Registration{EventID: 1, UserID: 2, CreatedAt: time.Now()}
		if err := NewRegistrationRepo(db).Create(context.Background(), &reg); !errors.Is(err, ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
	})

	t.Run("create sets id", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO event_registrations`)).
			WithArgs(uint64(1), uint64(2), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(33, 1))

		reg := model.Registration{EventID: 1, UserID: 2, CreatedAt: time.Now()}
		if err := NewRegistrationRepo(db).Create(context.Background(), &reg); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if reg.ID != 33 {
			t.Fatalf("expected id 33, got %d", reg.ID)
		}
	})

	t.Run("exists", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(`FROM event_registrations WHERE event_id = ? AND user_id = ?`)).
			WithArgs(1, 2).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(1))

		ok, err := NewRegistrationRepo(db).Exists(context.Background(), 1, 2)
		if err != nil || !ok {
			t.Fatalf("expected registration to exist, got %v %v", ok, err)
		}
	})

	t.Run("delete reports whether a row went away", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM event_registrations`)).
			WithArgs(1, 2).WillReturnResult(sqlmock.NewResult(0, 0))

		removed, err := NewRegistrationRepo(db).Delete(context.Background(), 1, 2)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if removed {
			t.Fatalf("expected nothing removed")
		}
	})

	t.Run("count", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM event_registrations WHERE event_id = ?`)).
			WithArgs(1).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(int64(4)))

		n, err := NewRegistrationRepo(db).CountByEvent(context.Background(), 1)
		if err != nil || n != 4 {
			t.Fatalf("expected 4, got %d %v", n, err)
		}
	})

	t.Run("list by user", func(t *testing.T) {
		db, mock := newMock(t)
		start := time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)
		mock.ExpectQuery(regexp.QuoteMeta(`JOIN events e ON e.id = er.event_id`)).WithArgs(2).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "eid", "slug", "title", "start_at", "status"}).
				AddRow(uint64(5), start, uint64(1), "meetup-go", "Meetup Go", start, "published"))

		got, err := NewRegistrationRepo(db).ListByUser(context.Background(), 2)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(got) != 1 || got[0].Slug != "meetup-go" || got[0].Status != model.EventStatusPublished {
			t.Fatalf("unexpected registrations %+v", got)
		}
	})
}
