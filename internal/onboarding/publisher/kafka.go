package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"clerk/internal/onboarding/ports"
	"clerk/pkg/platform/sentinel"
)

// Producer is the part of *kgo.Client the publisher uses.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// Kafka produces JSON decision events keyed by client id, so every event for
// one client lands on the same partition.
type Kafka struct {
	producer Producer
	topic    string
	timeout  time.Duration
	logger   *slog.Logger
}

// KafkaOption configures the Kafka publisher.
type KafkaOption func(*Kafka)

// WithKafkaLogger sets a logger for delivery reporting.
func WithKafkaLogger(logger *slog.Logger) KafkaOption {
	return func(k *Kafka) {
		if logger != nil {
			k.logger = logger
		}
	}
}

// WithPublishTimeout bounds a single synchronous produce.
func WithPublishTimeout(d time.Duration) KafkaOption {
	return func(k *Kafka) {
		if d > 0 {
			k.timeout = d
		}
	}
}

// NewKafka creates a publisher on a franz-go client for brokers.
func NewKafka(brokers []string, topic string, opts ...KafkaOption) (*Kafka, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if topic == "" {
		return nil, errors.New("kafka topic is required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.SnappyCompression(), kgo.NoCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return NewKafkaWithProducer(client, topic, opts...), nil
}

// NewKafkaWithProducer wraps an existing producer.
func NewKafkaWithProducer(producer Producer, topic string, opts ...KafkaOption) *Kafka {
	k := &Kafka{
		producer: producer,
		topic:    topic,
		timeout:  5 * time.Second,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(k)
		}
	}
	return k
}

func (k *Kafka) Name() string { return "kafka" }

// Publish produces one event and waits for the broker acknowledgement.
func (k *Kafka) Publish(ctx context.Context, event ports.DecisionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode decision event: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	record := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(event.ClientID),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "decision", Value: []byte(event.Decision)},
			{Key: "origin", Value: []byte(event.Origin)},
		},
	}
	if err := k.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce decision event: %w: %w", sentinel.ErrUnavailable, err)
	}
	k.logger.DebugContext(ctx, "decision event produced",
		"topic", k.topic,
		"client_id", event.ClientID,
	)
	return nil
}

// Close releases the producer. ProduceSync already waited for every record.
func (k *Kafka) Close() error {
	k.producer.Close()
	return nil
}

// EnsureTopic creates the topic when it is missing.
func EnsureTopic(ctx context.Context, client *kgo.Client, topic string, partitions int32, replication int16) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopic(ctx, partitions, replication, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", topic, resp.Err)
	}
	return nil
}

// Client exposes the franz-go client when the publisher owns one.
func (k *Kafka) Client() (*kgo.Client, bool) {
	c, ok := k.producer.(*kgo.Client)
	return c, ok
}
