package queue

import (
    "context"
    "errors"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"

    "github.com/iliyamo/community-events/internal/config"
    "github.com/iliyamo/community-events/internal/model"
)

// Publisher sends event changes to the durable queue as persistent JSON
// messages.  The connection is opened lazily and reopened after a failure,
// so a broker outage at startup does not prevent the server from running.
type Publisher struct {
    url    string
    queue  string
    logger *zap.Logger

    // sem is a one-slot lock that callers can give up waiting for.
    sem  chan struct{}
    conn *amqp.Connection
    ch   *amqp.Channel
}

// defaultDialTimeout bounds the dial and handshake when ctx has no deadline.
const defaultDialTimeout = 5 * time.Second

// NewPublisher returns a Publisher for cfg.  It returns nil when AMQP is
// disabled.
func NewPublisher(cfg config.AMQPConfig, logger *zap.Logger) *Publisher {
    if !cfg.Enabled {
        return nil
    }
    if logger == nil {
        logger = zap.NewNop()
    }
    q := cfg.Queue
    if q == "" {
        q = DefaultQueue
    }
    return &Publisher{url: cfg.URL, queue: q, logger: logger, sem: make(chan struct{}, 1)}
}

// Name implements notify.Sink.
func (p *Publisher) Name() string { return "amqp" }

// Deliver implements notify.Sink by publishing change.
func (p *Publisher) Deliver(ctx context.Context, change model.EventChange) error {
    body, err := encodeMessage(change)
    if err != nil {
        return fmt.Errorf("marshal event change: %w", err)
    }

    if err := p.lock(ctx); err != nil {
        return err
    }
    defer p.unlock()
    ch, err := p.channel(ctx)
    if err != nil {
        return err
    }
    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        MessageId:    change.ID,
        Timestamp:    time.Now().UTC(),
        Type:         string(change.Action),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx,
        "",      // default exchange
        p.queue, // routing key = queue name
        false,   // mandatory
        false,   // immediate
        pub,
    ); err != nil {
        p.reset()
        return fmt.Errorf("publish: %w", err)
    }
    return nil
}

// lock takes the publisher lock unless ctx ends first.
func (p *Publisher) lock(ctx context.Context) error {
    if err := ctx.Err(); err != nil {
        return err
    }
    select {
    case p.sem <- struct{}{}:
    case <-ctx.Done():
        return ctx.Err()
    }
    // the lock may have been free and ctx done at the same time
    if err := ctx.Err(); err != nil {
        p.unlock()
        return err
    }
    return nil
}

func (p *Publisher) unlock() { <-p.sem }

// channel returns an open channel, dialing when needed.  The dial and the
// AMQP handshake are bounded by ctx's deadline.  The lock must be held.
func (p *Publisher) channel(ctx context.Context) (*amqp.Channel, error) {
    if p.ch != nil && !p.ch.IsClosed() {
        return p.ch, nil
    }
    p.reset()
    timeout := defaultDialTimeout
    if deadline, ok := ctx.Deadline(); ok {
        timeout = time.Until(deadline)
    }
    if timeout <= 0 {
        return nil, context.DeadlineExceeded
    }
    conn, err := amqp.DialConfig(p.url, amqp.Config{
        Heartbeat: 10 * time.Second,
        Locale:    "en_US",
        Dial:      amqp.DefaultDial(timeout),
    })
    if err != nil {
        return nil, fmt.Errorf("dial broker: %w", err)
    }
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        return nil, fmt.Errorf("channel open: %w", err)
    }
    if err := declare(ch, p.queue); err != nil {
        _ = ch.Close()
        _ = conn.Close()
        return nil, err
    }
    p.conn, p.ch = conn, ch
    p.logger.Info("amqp publisher connected", zap.String("queue", p.queue))
    return ch, nil
}

// reset drops the current connection.  The lock must be held.
func (p *Publisher) reset() {
    if p.ch != nil {
        _ = p.ch.Close()
        p.ch = nil
    }
    if p.conn != nil {
        _ = p.conn.Close()
        p.conn = nil
    }
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
    if p == nil {
        return nil
    }
    p.sem <- struct{}{}
    defer p.unlock()
    p.reset()
    return nil
}

// declare ensures the queue exists (idempotent).  Durable so messages
// survive broker restarts.
func declare(ch *amqp.Channel, name string) error {
    if name == "" {
        return errors.New("empty queue name")
    }
    if _, err := ch.QueueDeclare(
        name,  // name
        true,  // durable
        false, // autoDelete
        false, // exclusive
        false, // noWait
        nil,   // args
    ); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    return nil
}
