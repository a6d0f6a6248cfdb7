package reconciler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cenkalti/backoff/v4"
	amqp091 "github.com/rabbitmq/amqp091-go"

	"dim/internal/ledger"
	"dim/internal/platform/amqp"
	"dim/internal/platform/kafka/consumer"
)

// KafkaSource delivers ledger events from a topic through a consumer group.
// Offsets are committed after the handler returns nil.
type KafkaSource struct {
	cfg    consumer.Config
	logger *slog.Logger
}

func NewKafkaSource(cfg consumer.Config, logger *slog.Logger) *KafkaSource {
	return &KafkaSource{cfg: cfg, logger: logger}
}

func (s *KafkaSource) Subscribe(ctx context.Context, handler ledger.EventHandler) error {
	c, err := consumer.New(s.cfg, consumer.HandlerFunc(func(ctx context.Context, msg *consumer.Message) error {
		return decodeAndHandle(ctx, "kafka", msg.Value, handler)
	}), s.logger)
	if err != nil {
		return fmt.Errorf("kafka event source: %w", err)
	}
	defer c.Close()
	return c.Run(ctx)
}

// AMQPSource delivers ledger events from a queue bound to the event
// exchange. Deliveries are acked after the handler returns nil.
type AMQPSource struct {
	consumer *amqp.Consumer
}

func NewAMQPSource(c *amqp.Consumer) *AMQPSource {
	return &AMQPSource{consumer: c}
}

func (s *AMQPSource) Subscribe(ctx context.Context, handler ledger.EventHandler) error {
	return s.consumer.Run(ctx, func(ctx context.Context, d amqp091.Delivery) error {
		return decodeAndHandle(ctx, "amqp", d.Body, handler)
	})
}

// decodeAndHandle rejects undecodable messages as permanent: no redelivery
// can make them valid.
func decodeAndHandle(ctx context.Context, source string, body []byte, handler ledger.EventHandler) error {
	env, err := ledger.DecodeEvent(body)
	if err != nil {
		rejectedTotal.WithLabelValues(source).Inc()
		return backoff.Permanent(err)
	}
	return handler(ctx, env)
}
