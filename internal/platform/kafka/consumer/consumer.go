package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Message represents a received Kafka message.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// Handler processes consumed messages.
type Handler interface {
	// Handle processes a message. A returned error is retried with backoff
	// unless it is wrapped with backoff.Permanent, in which case the message
	// is logged and committed past.
	Handle(ctx context.Context, msg *Message) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, msg *Message) error

func (f HandlerFunc) Handle(ctx context.Context, msg *Message) error { return f(ctx, msg) }

// Config holds consumer configuration.
type Config struct {
	Brokers         string
	GroupID         string
	Topics          []string
	AutoOffsetReset string
	// MaxRetryInterval caps the backoff between redeliveries of a failed message.
	MaxRetryInterval time.Duration
}

// Consumer is a franz-go consumer group member with manual commits. Offsets
// are committed only after the handler accepted every record before them.
type Consumer struct {
	client   *kgo.Client
	handler  Handler
	logger   *slog.Logger
	maxRetry time.Duration

	mu      sync.RWMutex
	closed  bool
	running bool
}

// New creates a new Kafka consumer.
func New(cfg Config, handler Handler, logger *slog.Logger) (*Consumer, error) {
	if cfg.Brokers == "" {
		return nil, fmt.Errorf("kafka brokers not configured")
	}
	if cfg.GroupID == "" {
		return nil, fmt.Errorf("kafka consumer group ID not configured")
	}
	if len(cfg.Topics) == 0 {
		return nil, fmt.Errorf("kafka topics not configured")
	}
	if handler == nil {
		return nil, fmt.Errorf("kafka handler is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	reset := kgo.NewOffset().AtStart()
	if cfg.AutoOffsetReset == "latest" {
		reset = kgo.NewOffset().AtEnd()
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(strings.Split(cfg.Brokers, ",")...),
		kgo.ConsumerGroup(cfg.GroupID),
		kgo.ConsumeTopics(cfg.Topics...),
		kgo.ConsumeResetOffset(reset),
		kgo.DisableAutoCommit(),
		kgo.BlockRebalanceOnPoll(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}

	maxRetry := cfg.MaxRetryInterval
	if maxRetry <= 0 {
		maxRetry = 5 * time.Second
	}
	return &Consumer{
		client:   client,
		handler:  handler,
		logger:   logger,
		maxRetry: maxRetry,
	}, nil
}

// Run polls until ctx is done. Records of one partition are handled in
// offset order.
func (c *Consumer) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("consumer is closed")
	}
	c.running = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			c.client.AllowRebalance()
			return err
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.Error("kafka fetch error",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})

		var handled []*kgo.Record
		var stopped error
		fetches.EachPartition(func(p kgo.FetchTopicPartition) {
			if stopped != nil {
				return
			}
			for _, rec := range p.Records {
				if err := c.handle(ctx, rec); err != nil {
					stopped = err
					return
				}
				handled = append(handled, rec)
			}
		})

		if len(handled) > 0 {
			if err := c.client.CommitRecords(context.WithoutCancel(ctx), handled...); err != nil {
				c.logger.Error("failed to commit offsets", "records", len(handled), "error", err)
			}
		}
		c.client.AllowRebalance()
		if stopped != nil {
			return stopped
		}
	}
}

// handle retries one record until the handler accepts it, rejects it as
// permanent, or ctx ends.
func (c *Consumer) handle(ctx context.Context, rec *kgo.Record) error {
	msg := toMessage(rec)
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = c.maxRetry
	b.MaxElapsedTime = 0

	attempt := 0
	err := backoff.Retry(func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		attempt++
		err := c.handler.Handle(ctx, msg)
		if err != nil {
			c.logger.Warn("failed to handle message",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"attempt", attempt,
				"error", err,
			)
		}
		return err
	}, backoff.WithContext(b, ctx))
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		c.logger.Error("dropping unprocessable message",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
		return nil
	}
	return err
}

func toMessage(rec *kgo.Record) *Message {
	headers := make(map[string]string, len(rec.Headers))
	for _, h := range rec.Headers {
		headers[h.Key] = string(h.Value)
	}
	return &Message{
		Topic:     rec.Topic,
		Partition: rec.Partition,
		Offset:    rec.Offset,
		Key:       rec.Key,
		Value:     rec.Value,
		Headers:   headers,
		Timestamp: rec.Timestamp,
	}
}

// Close leaves the group and releases the client. Uncommitted records are
// redelivered to the next member.
func (c *Consumer) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	c.client.Close()
}

// Healthy reports whether the consumer can reach a broker.
func (c *Consumer) Healthy(ctx context.Context) bool {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return false
	}
	c.mu.RUnlock()
	return c.client.Ping(ctx) == nil
}
