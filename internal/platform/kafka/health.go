// Package kafka holds broker-level helpers shared by the producer and consumer.
package kafka

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

// HealthChecker checks that the cluster answers metadata requests and that
// the event topic exists.
type HealthChecker struct {
	brokers []string
	topic   string
	timeout time.Duration
}

func NewHealthChecker(brokers, topic string) *HealthChecker {
	return &HealthChecker{
		brokers: strings.Split(brokers, ","),
		topic:   topic,
		timeout: 5 * time.Second,
	}
}

// Check returns nil when at least one broker is reachable and the topic is known.
func (h *HealthChecker) Check(ctx context.Context) error {
	if len(h.brokers) == 0 || h.brokers[0] == "" {
		return fmt.Errorf("kafka brokers not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	client, err := kgo.NewClient(kgo.SeedBrokers(h.brokers...))
	if err != nil {
		return fmt.Errorf("kafka client: %w", err)
	}
	defer client.Close()

	admin := kadm.NewClient(client)
	brokers, err := admin.ListBrokers(ctx)
	if err != nil {
		return fmt.Errorf("no kafka brokers reachable: %w", err)
	}
	if len(brokers) == 0 {
		return fmt.Errorf("kafka cluster reports no brokers")
	}
	if h.topic == "" {
		return nil
	}
	topics, err := admin.ListTopics(ctx, h.topic)
	if err != nil {
		return fmt.Errorf("list kafka topics: %w", err)
	}
	if d, ok := topics[h.topic]; !ok || d.Err != nil {
		return fmt.Errorf("kafka topic %q does not exist", h.topic)
	}
	return nil
}

// Name returns the check name for health reporting.
func (h *HealthChecker) Name() string {
	return "kafka"
}

// EnsureTopic creates topic if it does not exist yet.
func EnsureTopic(ctx context.Context, brokers, topic string, partitions int32) error {
	client, err := kgo.NewClient(kgo.SeedBrokers(strings.Split(brokers, ",")...))
	if err != nil {
		return fmt.Errorf("kafka client: %w", err)
	}
	defer client.Close()

	admin := kadm.NewClient(client)
	topics, err := admin.ListTopics(ctx, topic)
	if err != nil {
		return fmt.Errorf("list kafka topics: %w", err)
	}
	if d, ok := topics[topic]; ok && d.Err == nil {
		return nil
	}
	resp, err := admin.CreateTopic(ctx, partitions, -1, nil, topic)
	if err != nil {
		return fmt.Errorf("create kafka topic %s: %w", topic, err)
	}
	return resp.Err
}
