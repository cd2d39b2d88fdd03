package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/community-events/internal/model"
	"github.com/iliyamo/community-events/internal/repository"
)

// fakeStore is an in-memory Transactor, EventStore and RegistrationStore.
// LockForUpdate takes a real per-event lock held until the transaction
// ends, and writes made inside a failed transaction are undone, so the
// service's concurrency behaviour can be exercised without MySQL.
type fakeStore struct {
	mu        sync.Mutex
	events    map[uint64]*model.Event
	regs      map[regKey]model.Registration
	locks     map[uint64]chan struct{}
	nextEvent uint64
	nextReg   uint64

	failIncrement error
	failCreateReg error
}

type regKey struct{ eventID, userID uint64 }

type fakeTx struct {
	held []uint64
	undo []func()
}

type fakeTxKey struct{}

func newFakeStore(events ...model.Event) *fakeStore {
	f := &fakeStore{
		events: make(map[uint64]*model.Event),
		regs:   make(map[regKey]model.Registration),
		locks:  make(map[uint64]chan struct{}),
	}
	for i := range events {
		e := events[i]
		if e.ID == 0 {
			f.nextEvent++
			e.ID = f.nextEvent
		} else if e.ID > f.nextEvent {
			f.nextEvent = e.ID
		}
		if e.Slug == "" {
			e.Slug = fmt.Sprintf("event-%d", e.ID)
		}
		f.events[e.ID] = &e
	}
	return f
}

func fakeTxFrom(ctx context.Context) *fakeTx {
	tx, _ := ctx.Value(fakeTxKey{}).(*fakeTx)
	return tx
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if fakeTxFrom(ctx) != nil {
		return fn(ctx)
	}
	tx := &fakeTx{}
	err := fn(context.WithValue(ctx, fakeTxKey{}, tx))
	if err != nil {
		f.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		f.mu.Unlock()
	}
	for _, id := range tx.held {
		<-f.lockFor(id)
	}
	return err
}

func (f *fakeStore) lockFor(id uint64) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.locks[id]
	if !ok {
		ch = make(chan struct{}, 1)
		f.locks[id] = ch
	}
	return ch
}

// write applies do under the data mutex and registers undo with the
// transaction in ctx.
func (f *fakeStore) write(ctx context.Context, do func(), undo func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	do()
	if tx := fakeTxFrom(ctx); tx != nil {
		tx.undo = append(tx.undo, undo)
	}
}

func (f *fakeStore) LockForUpdate(ctx context.Context, id uint64) (model.Event, error) {
	tx := fakeTxFrom(ctx)
	if tx == nil {
		return model.Event{}, repository.ErrNoTx
	}
	held := false
	for _, h := range tx.held {
		held = held || h == id
	}
	if !held {
		select {
		case f.lockFor(id) <- struct{}{}:
			tx.held = append(tx.held, id)
		case <-ctx.Done():
			return model.Event{}, fmt.Errorf("%w: %v", repository.ErrLockTimeout, ctx.Err())
		}
	}
	return f.GetByID(ctx, id)
}

func (f *fakeStore) Create(ctx context.Context, e *model.Event) error {
	f.mu.Lock()
	for _, existing := range f.events {
		if existing.Slug == e.Slug {
			f.mu.Unlock()
			return repository.ErrDuplicate
		}
	}
	f.mu.Unlock()
	f.write(ctx, func() {
		f.nextEvent++
		e.ID = f.nextEvent
		e.CreatedAt = time.Now().UTC()
		e.UpdatedAt = e.CreatedAt
		stored := *e
		f.events[e.ID] = &stored
	}, func() { delete(f.events, e.ID) })
	return nil
}

func (f *fakeStore) SlugExists(_ context.Context, slug string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) GetByID(_ context.Context, id uint64) (model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return model.Event{}, repository.ErrNotFound
	}
	return *e, nil
}

func (f *fakeStore) GetBySlug(_ context.Context, slug string) (model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e.Slug == slug {
			return *e, nil
		}
	}
	return model.Event{}, repository.ErrNotFound
}

func (f *fakeStore) ListUpcoming(_ context.Context, now time.Time, limit int) ([]model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Event, 0)
	for _, e := range f.events {
		if e.Status == model.EventStatusPublished && e.EndAt.After(now) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) UpdateStatus(ctx context.Context, id uint64, status model.EventStatus) error {
	if _, err := f.GetByID(ctx, id); err != nil {
		return err
	}
	var prev model.EventStatus
	f.write(ctx, func() {
		prev = f.events[id].Status
		f.events[id].Status = status
	}, func() { f.events[id].Status = prev })
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, id uint64) error {
	f.mu.Lock()
	e, ok := f.events[id]
	f.mu.Unlock()
	if !ok {
		return repository.ErrNotFound
	}
	removed := map[regKey]model.Registration{}
	f.write(ctx, func() {
		delete(f.events, id)
		for k, r := range f.regs {
			if k.eventID == id {
				removed[k] = r
				delete(f.regs, k)
			}
		}
	}, func() {
		f.events[id] = e
		for k, r := range removed {
			f.regs[k] = r
		}
	})
	return nil
}

func (f *fakeStore) IncrementSeats(ctx context.Context, id uint64) error {
	if f.failIncrement != nil {
		return f.failIncrement
	}
	f.write(ctx, func() { f.events[id].SeatsTaken++ }, func() { f.events[id].SeatsTaken-- })
	return nil
}

func (f *fakeStore) DecrementSeats(ctx context.Context, id uint64) error {
	var prev uint32
	f.write(ctx, func() {
		prev = f.events[id].SeatsTaken
		if prev > 0 {
			f.events[id].SeatsTaken = prev - 1
		}
	}, func() { f.events[id].SeatsTaken = prev })
	return nil
}

func (f *fakeStore) SetSeatsTaken(ctx context.Context, id uint64, n uint32) error {
	var prev uint32
	f.write(ctx, func() {
		prev = f.events[id].SeatsTaken
		f.events[id].SeatsTaken = n
	}, func() { f.events[id].SeatsTaken = prev })
	return nil
}

func (f *fakeStore) Exists(_ context.Context, eventID, userID uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.regs[regKey{eventID, userID}]
	return ok, nil
}

func (f *fakeStore) CreateRegistration(ctx context.Context, reg *model.Registration) error {
	if f.failCreateReg != nil {
		return f.failCreateReg
	}
	key := regKey{reg.EventID, reg.UserID}
	f.mu.Lock()
	_, dup := f.regs[key]
	f.mu.Unlock()
	if dup {
		return repository.ErrDuplicate
	}
	f.write(ctx, func() {
		f.nextReg++
		reg.ID = f.nextReg
		f.regs[key] = *reg
	}, func() { delete(f.regs, key) })
	return nil
}

func (f *fakeStore) DeleteRegistration(ctx context.Context, eventID, userID uint64) (bool, error) {
	key := regKey{eventID, userID}
	f.mu.Lock()
	reg, ok := f.regs[key]
	f.mu.Unlock()
	if !ok {
		return false, nil
	}
	f.write(ctx, func() { delete(f.regs, key) }, func() { f.regs[key] = reg })
	return true, nil
}

func (f *fakeStore) CountByEvent(_ context.Context, eventID uint64) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n uint32
	for k := range f.regs {
		if k.eventID == eventID {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) ListByEvent(_ context.Context, eventID uint64) ([]model.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Registration, 0)
	for k, r := range f.regs {
		if k.eventID == eventID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) ListByUser(_ context.Context, userID uint64) ([]model.UserRegistration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.UserRegistration, 0)
	for k, r := range f.regs {
		if k.userID != userID {
			continue
		}
		e := f.events[k.eventID]
		out = append(out, model.UserRegistration{
			RegistrationID: r.ID, RegisteredAt: r.CreatedAt,
			EventID: e.ID, Slug: e.Slug, Title: e.Title, StartAt: e.StartAt, Status: e.Status,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegistrationID < out[j].RegistrationID })
	return out, nil
}

func (f *fakeStore) event(id uint64) model.Event {
	e, _ := f.GetByID(context.Background(), id)
	return e
}

func (f *fakeStore) regCount(eventID uint64) int {
	n, _ := f.CountByEvent(context.Background(), eventID)
	return int(n)
}

// fakeRegs adapts the registration half of fakeStore to RegistrationStore;
// fakeStore itself already uses Create and Delete for events.
type fakeRegs struct{ *fakeStore }

func (r fakeRegs) Create(ctx context.Context, reg *model.Registration) error {
	return r.CreateRegistration(ctx, reg)
}

func (r fakeRegs) Delete(ctx context.Context, eventID, userID uint64) (bool, error) {
	return r.DeleteRegistration(ctx, eventID, userID)
}

type recordingNotifier struct {
	mu      sync.Mutex
	changes []model.EventChange
}

func (n *recordingNotifier) EventChanged(_ context.Context, c model.EventChange) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, c)
}

func (n *recordingNotifier) actions() []model.ChangeAction {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]model.ChangeAction, 0, len(n.changes))
	for _, c := range n.changes {
		out = append(out, c.Action)
	}
	return out
}
