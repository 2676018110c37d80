package queue

import (
    "context"
    "fmt"
    "log/slog"
    "time"

    jsoniter "github.com/json-iterator/go"
    amqp "github.com/rabbitmq/amqp091-go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Publisher delivers events to a durable queue on the default exchange.
// Each call dials its own connection, so a broker outage never poisons
// later publishes; transient failures are retried with backoff.
type Publisher struct {
    url     string
    queue   string
    logger  *slog.Logger
    options []RetryOption
}

// NewPublisher returns a Publisher for the given broker URL and queue.
func NewPublisher(url, queue string, logger *slog.Logger, options ...RetryOption) *Publisher {
    if logger == nil {
        logger = slog.Default()
    }
    return &Publisher{url: url, queue: queue, logger: logger, options: options}
}

// Publish encodes ev and sends it as a persistent message.  Errors are
// logged and returned so the caller can choose to ignore them.
func (p *Publisher) Publish(ctx context.Context, ev Event) error {
    body, err := json.Marshal(ev)
    if err != nil {
        p.logger.Error("rabbitmq: marshal event failed", "type", ev.Type, "err", err)
        return err
    }
    err = retry(ctx, func(ctx context.Context) error {
        return p.publishOnce(ctx, ev, body)
    }, p.options...)
    if err != nil {
        p.logger.Error("rabbitmq: publish failed", "type", ev.Type, "event_id", ev.ID, "err", err)
        return err
    }
    p.logger.Debug("rabbitmq: event published", "type", ev.Type, "event_id", ev.ID)
    return nil
}

func (p *Publisher) publishOnce(ctx context.Context, ev Event, body []byte) error {
    conn, err := amqp.Dial(p.url)
    if err != nil {
        return fmt.Errorf("dial: %w", err)
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    // Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        MessageId:    ev.ID,
        Type:         ev.Type,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
        return fmt.Errorf("publish: %w", err)
    }
    return nil
}
