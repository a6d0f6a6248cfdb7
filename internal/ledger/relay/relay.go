// Package relay forwards the ledger event log to message brokers so agents
// in other processes can reconcile against it.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"dim/internal/ledger"
	"dim/internal/platform/amqp"
	"dim/internal/platform/kafka/producer"
)

// Feed is an event log that can be replayed from a sequence.
type Feed interface {
	SubscribeFrom(ctx context.Context, after uint64, handler ledger.EventHandler) error
}

// Publisher delivers one encoded event. It returns after the broker accepted it.
type Publisher interface {
	Publish(ctx context.Context, env ledger.Envelope, raw []byte) error
}

// partitionKey pins every event to one partition so consumers see ledger order.
const partitionKey = "ledger"

// KafkaPublisher produces events to a single topic.
type KafkaPublisher struct {
	producer *producer.Producer
	topic    string
}

func NewKafkaPublisher(p *producer.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: p, topic: topic}
}

func (k *KafkaPublisher) Publish(ctx context.Context, env ledger.Envelope, raw []byte) error {
	return k.producer.Produce(ctx, &producer.Message{
		Topic: k.topic,
		Key:   []byte(partitionKey),
		Value: raw,
		Headers: map[string]string{
			"event_kind": string(env.Event.Kind()),
			"sequence":   strconv.FormatUint(env.Sequence, 10),
		},
	})
}

// AMQPPublisher publishes events to the fanout exchange.
type AMQPPublisher struct {
	publisher *amqp.Publisher
}

func NewAMQPPublisher(p *amqp.Publisher) *AMQPPublisher {
	return &AMQPPublisher{publisher: p}
}

func (a *AMQPPublisher) Publish(ctx context.Context, env ledger.Envelope, raw []byte) error {
	return a.publisher.Publish(ctx, string(env.Event.Kind()), raw, map[string]any{
		"sequence": int64(env.Sequence),
	})
}

// Relay replays the feed into every publisher. An event is retried until all
// publishers accepted it, so a publisher may see an event more than once.
type Relay struct {
	feed       Feed
	publishers []Publisher
	logger     *slog.Logger
}

func New(feed Feed, logger *slog.Logger, publishers ...Publisher) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{feed: feed, publishers: publishers, logger: logger}
}

// Run forwards events with a sequence greater than after until ctx ends.
func (r *Relay) Run(ctx context.Context, after uint64) error {
	return r.feed.SubscribeFrom(ctx, after, r.forward)
}

func (r *Relay) forward(ctx context.Context, env ledger.Envelope) error {
	raw, err := ledger.EncodeEvent(env)
	if err != nil {
		return fmt.Errorf("encode event %d: %w", env.Sequence, err)
	}
	for _, p := range r.publishers {
		if err := p.Publish(ctx, env, raw); err != nil {
			relayed.WithLabelValues("failed").Inc()
			r.logger.WarnContext(ctx, "failed to relay ledger event",
				"sequence", env.Sequence,
				"kind", env.Event.Kind(),
				"error", err,
			)
			return err
		}
	}
	relayed.WithLabelValues("ok").Inc()
	return nil
}
