package collector

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// KafkaConsumer defines the Kafka consumer operations used by the ingester.
// This abstraction allows dependency injection and simplifies testing.
type KafkaConsumer interface {
	SubscribeTopics(topics []string, rebalanceCb kafka.RebalanceCb) error
	ReadMessage(timeout time.Duration) (*kafka.Message, error)
	Close() error
}

func newKafkaConsumer(cfg KafkaConfig) (KafkaConsumer, error) {
	consumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Broker,
		"group.id":          cfg.ConsumerGroup,
		"auto.offset.reset": "earliest",
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create Kafka consumer: %w", err)
	}
	return consumer, nil
}

// AcceptFunc stores one raw batch.
type AcceptFunc func(ctx context.Context, source string, body []byte) (Outcome, error)

// KafkaIngester reads the batches produced by the Kafka sink and hands them to
// the same acceptance path as the HTTP endpoint.
type KafkaIngester struct {
	consumer KafkaConsumer
	config   KafkaConfig
	accept   AcceptFunc
	stopped  bool
	mu       sync.Mutex
}

// NewKafkaIngester creates an ingester around a consumer.
func NewKafkaIngester(consumer KafkaConsumer, cfg KafkaConfig, accept AcceptFunc) *KafkaIngester {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = time.Second
	}
	if cfg.MaxErrors <= 0 {
		cfg.MaxErrors = 1
	}
	return &KafkaIngester{consumer: consumer, config: cfg, accept: accept}
}

// Subscribe subscribes the consumer to the configured topic.
func (k *KafkaIngester) Subscribe() error {
	if err := k.consumer.SubscribeTopics([]string{k.config.Topic}, nil); err != nil {
		return fmt.Errorf("unable to subscribe to topic %s: %w", k.config.Topic, err)
	}
	slog.Info("kafka ingest subscribed", "topic", k.config.Topic, "group", k.config.ConsumerGroup)
	return nil
}

// Run consumes messages until Stop, ctx cancellation, or too many
// consecutive errors.
func (k *KafkaIngester) Run(ctx context.Context) {
	consecutiveErrors := 0
	for k.isRunning() && ctx.Err() == nil {
		msg, err := k.consumer.ReadMessage(k.config.ReadTimeout)
		if err != nil {
			if k.handleKafkaError(err, &consecutiveErrors) {
				return
			}
			continue
		}

		consecutiveErrors = 0
		k.processMessage(ctx, msg)
	}
}

// Stop asks the loop to exit after the current read.
func (k *KafkaIngester) Stop() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.stopped = true
}

// Close closes the consumer.
func (k *KafkaIngester) Close() {
	if err := k.consumer.Close(); err != nil {
		slog.Warn("closing kafka consumer", "error", err)
	}
}

func (k *KafkaIngester) isRunning() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return !k.stopped
}

// handleKafkaError returns true if the loop should stop.
func (k *KafkaIngester) handleKafkaError(err error, consecutiveErrors *int) bool {
	kafkaErr, ok := err.(kafka.Error)
	if ok && kafkaErr.Code() == kafka.ErrTimedOut {
		// Normal timeout, not an error
		*consecutiveErrors = 0
		return false
	}

	errorMsg := err.Error()
	brokersDown := strings.Contains(errorMsg, "brokers are down") ||
		strings.Contains(errorMsg, "Connection refused") ||
		(ok && kafkaErr.Code() == kafka.ErrAllBrokersDown)

	*consecutiveErrors++
	if !brokersDown {
		slog.Error("kafka read error", "error", err)
	}
	if *consecutiveErrors >= k.config.MaxErrors {
		slog.Error("too many consecutive kafka errors, stopping ingest",
			"consecutive_errors", *consecutiveErrors,
			"brokers_down", brokersDown,
		)
		return true
	}
	return false
}

func (k *KafkaIngester) processMessage(ctx context.Context, msg *kafka.Message) {
	source := "kafka"
	if tp := msg.TopicPartition; tp.Topic != nil {
		source = fmt.Sprintf("kafka:%s/%d@%d", *tp.Topic, tp.Partition, tp.Offset)
	}
	out, err := k.accept(ctx, source, msg.Value)
	if err != nil {
		slog.Error("kafka batch not stored", "source", source, "error", err)
		return
	}
	slog.Debug("kafka batch stored", "source", source, "stored", out.Stored, "duplicates", out.Duplicates)
}
