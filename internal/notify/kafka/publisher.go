// Package kafka delivers notifications through a Kafka topic consumed by
// the downstream delivery pipeline (email, push).
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"talentgate/internal/candidacy/ports"
)

// DefaultTopic is the delivery topic when none is configured.
const DefaultTopic = "talentgate.notifications"

// Publisher produces notification messages to Kafka. Messages are keyed by
// dedup key so redeliveries land in the same partition and the consumer can
// discard duplicates.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// Option configures the publisher.
type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

// WithTopic overrides the delivery topic.
func WithTopic(topic string) Option {
	return func(p *Publisher) {
		if topic != "" {
			p.topic = topic
		}
	}
}

// New connects to the brokers and ensures the delivery topic exists.
func New(ctx context.Context, brokers []string, opts ...Option) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}

	p := &Publisher{
		topic:  DefaultTopic,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(p.topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}
	p.client = client

	if err := p.ensureTopic(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return p, nil
}

func (p *Publisher) ensureTopic(ctx context.Context) error {
	adm := kadm.NewClient(p.client)
	resps, err := adm.CreateTopics(ctx, 3, 1, nil, p.topic)
	if err != nil {
		return fmt.Errorf("failed to create topic %s: %w", p.topic, err)
	}
	for _, resp := range resps.Sorted() {
		if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("failed to create topic %s: %w", resp.Topic, resp.Err)
		}
	}
	return nil
}

// Send produces one notification message and waits for the broker ack.
func (p *Publisher) Send(ctx context.Context, n ports.Notification) error {
	value, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	record := &kgo.Record{
		Key:   []byte(n.DedupKey),
		Value: value,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("failed to produce notification: %w", err)
	}

	p.logger.DebugContext(ctx, "notification produced",
		"topic", p.topic,
		"template", n.Template,
		"dedup_key", n.DedupKey,
	)
	return nil
}

// Close flushes pending messages and releases the client.
func (p *Publisher) Close() {
	p.client.Close()
}
