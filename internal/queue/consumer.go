package queue

import (
    "context"
    "errors"
    "fmt"
    "log/slog"
    "os"
    "path/filepath"
    "time"

    jsoniter "github.com/json-iterator/go"
    amqp "github.com/rabbitmq/amqp091-go"
)

// LogFileName is the file inside the event log directory that the
// consumer appends to.
const LogFileName = "circulation.log"

// Consumer drains the circulation queue into a line-per-event log file.
type Consumer struct {
    url    string
    queue  string
    dir    string
    logger *slog.Logger
}

func NewConsumer(url, queue, dir string, logger *slog.Logger) *Consumer {
    if logger == nil {
        logger = slog.Default()
    }
    return &Consumer{url: url, queue: queue, dir: dir, logger: logger}
}

// Run connects to RabbitMQ and consumes until ctx is cancelled.  Broker
// failures are retried forever with a capped exponential backoff; a
// message that cannot be handled is rejected without requeue so the loop
// keeps going.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        if err := ctx.Err(); err != nil {
            return err
        }
        conn, err := amqp.Dial(c.url)
        if err != nil {
            c.logger.Warn("event-consumer: failed to dial broker", "err", err, "retry_in", backoff)
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.logger.Warn("event-consumer: consume loop ended; reconnecting", "err", err)
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func sleep(ctx context.Context, d time.Duration) bool {
    select {
    case <-time.After(d):
        return true
    case <-ctx.Done():
        return false
    }
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.logger.Warn("event-consumer: set QoS failed", "err", err)
    }
    if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := c.handle(d.Body); err != nil {
                c.logger.Error("event-consumer: handle message failed", "err", err)
                _ = d.Nack(false, false) // do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

func (c *Consumer) handle(body []byte) error {
    line, err := FormatLine(body)
    if err != nil {
        return err
    }
    if err := os.MkdirAll(c.dir, 0o755); err != nil {
        return fmt.Errorf("mkdir %s: %w", c.dir, err)
    }
    f, err := os.OpenFile(filepath.Join(c.dir, LogFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()
    if _, err := f.WriteString(line); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// FormatLine renders one encoded Event as a single log line.
func FormatLine(body []byte) (string, error) {
    var ev struct {
        ID         string              `json:"id"`
        Type       string              `json:"type"`
        OccurredAt time.Time           `json:"occurred_at"`
        Data       jsoniter.RawMessage `json:"data"`
    }
    if err := json.Unmarshal(body, &ev); err != nil {
        return "", fmt.Errorf("unmarshal: %w", err)
    }
    if ev.Type == "" {
        return "", errors.New("event without type")
    }
    return fmt.Sprintf("[%s] %s | id=%s | data=%s\n",
        ev.OccurredAt.UTC().Format(time.RFC3339), ev.Type, ev.ID, string(ev.Data)), nil
}
