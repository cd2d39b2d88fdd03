package service

import (
    "time"

    "go.uber.org/zap"
)

type options struct {
    notifier Notifier
    now      func() time.Time
    logger   *zap.Logger
}

// Option customizes a service.
type Option func(*options)

// WithNotifier sets the sink for committed changes.  The default drops them.
func WithNotifier(n Notifier) Option {
    return func(o *options) {
        if n != nil {
            o.notifier = n
        }
    }
}

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
    return func(o *options) {
        if now != nil {
            o.now = now
        }
    }
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *zap.Logger) Option {
    return func(o *options) {
        if l != nil {
            o.logger = l
        }
    }
}

func buildOptions(opts []Option) options {
    o := options{notifier: nopNotifier{}, now: time.Now, logger: zap.NewNop()}
    for _, opt := range opts {
        opt(&o)
    }
    return o
}
