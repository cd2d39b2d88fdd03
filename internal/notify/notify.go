// Package notify fans committed event changes out to best-effort sinks
// such as the Redis cache and the RabbitMQ queue.  Delivery never blocks
// the caller and failures are only logged.
package notify

import (
    "context"
    "sync"
    "time"

    "go.uber.org/zap"

    "github.com/iliyamo/community-events/internal/cache"
    "github.com/iliyamo/community-events/internal/model"
)

const defaultTimeout = 3 * time.Second

// Sink receives event changes.
type Sink interface {
    Name() string
    Deliver(ctx context.Context, change model.EventChange) error
}

// Dispatcher delivers every change to each sink in its own goroutine with a
// bounded timeout.
type Dispatcher struct {
    sinks   []Sink
    timeout time.Duration
    logger  *zap.Logger
    wg      sync.WaitGroup
}

// NewDispatcher returns a Dispatcher over sinks.  Nil sinks are skipped.
func NewDispatcher(logger *zap.Logger, timeout time.Duration, sinks ...Sink) *Dispatcher {
    if logger == nil {
        logger = zap.NewNop()
    }
    if timeout <= 0 {
        timeout = defaultTimeout
    }
    d := &Dispatcher{timeout: timeout, logger: logger}
    for _, s := range sinks {
        if s != nil {
            d.sinks = append(d.sinks, s)
        }
    }
    return d
}

// EventChanged starts delivery and returns immediately.
func (d *Dispatcher) EventChanged(ctx context.Context, change model.EventChange) {
    for _, s := range d.sinks {
        d.wg.Add(1)
        go func(s Sink) {
            defer d.wg.Done()
            ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
            defer cancel()
            if err := s.Deliver(ctx, change); err != nil {
                d.logger.Warn("event change delivery failed",
                    zap.String("sink", s.Name()),
                    zap.Uint64("event_id", change.EventID),
                    zap.String("action", string(change.Action)),
                    zap.Error(err),
                )
            }
        }(s)
    }
}

// Wait blocks until in-flight deliveries finish.  It is used on shutdown.
func (d *Dispatcher) Wait() { d.wg.Wait() }

// CacheInvalidator forgets the cached views of a changed event.
type CacheInvalidator struct {
    store *cache.Store
}

// NewCacheInvalidator returns a sink over store.  It returns nil when
// store is nil so NewDispatcher skips it.
func NewCacheInvalidator(store *cache.Store) Sink {
    if store == nil {
        return nil
    }
    return &CacheInvalidator{store: store}
}

// Name implements Sink.
func (c *CacheInvalidator) Name() string { return "cache" }

// Deliver implements Sink.
func (c *CacheInvalidator) Deliver(ctx context.Context, change model.EventChange) error {
    return c.store.Forget(ctx, cache.KeysFor(change)...)
}
