// Package amqp wraps RabbitMQ connections for the ledger event relay: a
// durable fanout exchange, one durable queue per consumer, manual acks.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Config names the broker and the topology used for ledger events.
type Config struct {
	URL      string
	Exchange string
	Queue    string
	// Prefetch bounds unacknowledged deliveries. One keeps delivery order.
	Prefetch int
}

// Dial connects with exponential backoff until ctx ends.
func Dial(ctx context.Context, url string, logger *slog.Logger) (*amqp.Connection, error) {
	if url == "" {
		return nil, fmt.Errorf("amqp url not configured")
	}
	if logger == nil {
		logger = slog.Default()
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxElapsedTime = 2 * time.Minute

	var conn *amqp.Connection
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		c, err := amqp.Dial(url)
		if err != nil {
			logger.WarnContext(ctx, "amqp dial failed", "attempt", attempt, "error", err)
			return err
		}
		conn = c
		return nil
	}, backoff.WithContext(b, ctx))
	if err != nil {
		return nil, fmt.Errorf("connect to amqp: %w", err)
	}
	return conn, nil
}

// declare sets up the exchange and, when queue is non-empty, binds a durable
// queue to it.
func declare(ch *amqp.Channel, exchange, queue string) error {
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	if queue == "" {
		return nil
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}
	if err := ch.QueueBind(queue, "", exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", queue, err)
	}
	return nil
}

// Publisher publishes persistent messages to the fanout exchange with
// publisher confirms.
type Publisher struct {
	ch       *amqp.Channel
	exchange string
}

func NewPublisher(conn *amqp.Connection, exchange string) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declare(ch, exchange, ""); err != nil {
		ch.Close()
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("enable confirms: %w", err)
	}
	return &Publisher{ch: ch, exchange: exchange}, nil
}

// Publish returns once the broker confirmed the message.
func (p *Publisher) Publish(ctx context.Context, messageType string, body []byte, headers map[string]any) error {
	conf, err := p.ch.PublishWithDeferredConfirmWithContext(ctx, p.exchange, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		Type:         messageType,
		Headers:      amqp.Table(headers),
		Body:         body,
		Timestamp:    time.Now(),
		DeliveryMode: amqp.Persistent,
	})
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	ok, err := conf.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("await confirm: %w", err)
	}
	if !ok {
		return errors.New("broker rejected message")
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

// Handler processes one delivery body. A nil return acks it. An error
// wrapped with backoff.Permanent rejects it without requeue; any other error
// requeues it.
type Handler func(ctx context.Context, d amqp.Delivery) error

// Consumer reads a durable queue bound to the event exchange.
type Consumer struct {
	conn   *amqp.Connection
	cfg    Config
	logger *slog.Logger
	// requeueDelay slows down redelivery of a failing message.
	requeueDelay time.Duration
}

func NewConsumer(conn *amqp.Connection, cfg Config, logger *slog.Logger) (*Consumer, error) {
	if cfg.Exchange == "" || cfg.Queue == "" {
		return nil, fmt.Errorf("amqp exchange and queue are required")
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{conn: conn, cfg: cfg, logger: logger, requeueDelay: time.Second}, nil
}

// Run consumes until ctx ends or the channel closes.
func (c *Consumer) Run(ctx context.Context, handler Handler) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := declare(ch, c.cfg.Exchange, c.cfg.Queue); err != nil {
		return err
	}
	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	deliveries, err := ch.ConsumeWithContext(ctx, c.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.cfg.Queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("amqp delivery channel closed")
			}
			c.dispatch(ctx, handler, d)
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, handler Handler, d amqp.Delivery) {
	err := handler(ctx, d)
	if err == nil {
		if ackErr := d.Ack(false); ackErr != nil {
			c.logger.ErrorContext(ctx, "amqp ack failed", "delivery_tag", d.DeliveryTag, "error", ackErr)
		}
		return
	}

	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		c.logger.ErrorContext(ctx, "rejecting unprocessable message", "delivery_tag", d.DeliveryTag, "error", err)
		if nackErr := d.Nack(false, false); nackErr != nil {
			c.logger.ErrorContext(ctx, "amqp nack failed", "delivery_tag", d.DeliveryTag, "error", nackErr)
		}
		return
	}

	c.logger.WarnContext(ctx, "failed to handle message, requeueing", "delivery_tag", d.DeliveryTag, "error", err)
	select {
	case <-ctx.Done():
	case <-time.After(c.requeueDelay):
	}
	if nackErr := d.Nack(false, true); nackErr != nil {
		c.logger.ErrorContext(ctx, "amqp nack failed", "delivery_tag", d.DeliveryTag, "error", nackErr)
	}
}

// HealthChecker reports whether the connection is open.
type HealthChecker struct {
	conn *amqp.Connection
}

func NewHealthChecker(conn *amqp.Connection) *HealthChecker {
	return &HealthChecker{conn: conn}
}

func (h *HealthChecker) Check(context.Context) error {
	if h.conn == nil || h.conn.IsClosed() {
		return errors.New("amqp connection closed")
	}
	return nil
}

func (h *HealthChecker) Name() string { return "amqp" }
