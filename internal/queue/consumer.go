package queue

import (
    "context"
    "errors"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"

    "github.com/iliyamo/community-events/internal/cache"
    "github.com/iliyamo/community-events/internal/config"
)

// Forgetter removes cached keys.  *cache.Store implements it.
type Forgetter interface {
    Forget(ctx context.Context, keys ...string) error
}

// Consumer listens to the event change queue and forgets the cached views
// of every changed event.
type Consumer struct {
    url    string
    queue  string
    cache  Forgetter
    logger *zap.Logger
}

// NewConsumer returns a Consumer for cfg that invalidates through f.
func NewConsumer(cfg config.AMQPConfig, f Forgetter, logger *zap.Logger) *Consumer {
    if logger == nil {
        logger = zap.NewNop()
    }
    q := cfg.Queue
    if q == "" {
        q = DefaultQueue
    }
    return &Consumer{url: cfg.URL, queue: q, cache: f, logger: logger}
}

// Run connects to RabbitMQ, declares the queue and consumes messages until
// ctx is cancelled.  Connection failures are retried with exponential
// backoff capped at 30s.  A message that cannot be handled is rejected
// without requeue so it cannot loop.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(c.url)
        if err != nil {
            c.logger.Warn("amqp consumer dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.logger.Warn("amqp consume loop ended; reconnecting", zap.Error(err))
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.logger.Warn("amqp consumer set QoS failed", zap.Error(err))
    }
    if err := declare(ch, c.queue); err != nil {
        return err
    }
    msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }
    c.logger.Info("amqp consumer started", zap.String("queue", c.queue))

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := c.handle(ctx, d.Body); err != nil {
                c.logger.Warn("amqp consumer handle message failed", zap.String("message_id", d.MessageId), zap.Error(err))
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

func (c *Consumer) handle(ctx context.Context, body []byte) error {
    msg, err := decodeMessage(body)
    if err != nil {
        return err
    }
    ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
    defer cancel()
    if err := c.cache.Forget(ctx, cache.KeysFor(msg.EventChange)...); err != nil {
        return fmt.Errorf("forget cached views: %w", err)
    }
    c.logger.Debug("cached views invalidated",
        zap.Uint64("event_id", msg.EventID),
        zap.String("action", string(msg.Action)),
    )
    return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
