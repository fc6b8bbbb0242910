// Package kafka provides Kafka producer and consumer clients backed by
// segmentio/kafka-go. The producer serialises events as JSON, while the
// consumer decodes them via a pluggable MessageHandler callback.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/resilience"
)

// MessageHandler is invoked for each message. A returned error is retried
// with backoff; when the attempts run out the message is logged, counted as
// dropped and committed so the partition keeps moving.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// Reader is the subset of *kafka.Reader the consumer loop needs.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ConsumerStats summarises what a consumer has done since it started.
type ConsumerStats struct {
	Handled       int64     `json:"handled"`
	Dropped       int64     `json:"dropped"`
	LastMessageAt time.Time `json:"last_message_at"`
}

type Consumer struct {
	reader     Reader
	topic      string
	handler    MessageHandler
	retry      resilience.Backoff
	fetchPause time.Duration
	logger     *slog.Logger

	handled  atomic.Int64
	dropped  atomic.Int64
	mu       sync.Mutex
	lastMsg  time.Time
	fetchErr error
}

type ConsumerOption func(*Consumer)

// WithHandlerRetry replaces the default of three attempts 200ms apart.
func WithHandlerRetry(b resilience.Backoff) ConsumerOption {
	return func(c *Consumer) { c.retry = b }
}

// WithFetchPause sets how long the loop waits after a failed fetch.
func WithFetchPause(d time.Duration) ConsumerOption {
	return func(c *Consumer) { c.fetchPause = d }
}

// NewConsumer joins cfg.ConsumerGroup on topic, starting from the earliest
// offset when the group has none committed.
func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler, opts ...ConsumerOption) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})
	return NewConsumerWithReader(r, topic, handler, opts...)
}

func NewConsumerWithReader(r Reader, topic string, handler MessageHandler, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		reader:  r,
		topic:   topic,
		handler: handler,
		retry: resilience.Backoff{
			Attempts: 3,
			Base:     200 * time.Millisecond,
			Cap:      2 * time.Second,
		},
		fetchPause: time.Second,
		logger:     slog.Default().With("component", "kafka-consumer", "topic", topic),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.retry.Name = "handle " + topic
	return c
}

// Start runs the fetch, handle and commit loop until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", "handled", c.handled.Load(), "dropped", c.dropped.Load())
				return nil
			}
			c.setFetchErr(err)
			c.logger.Error("fetch failed", "error", err, "pause", c.fetchPause)
			select {
			case <-time.After(c.fetchPause):
				continue
			case <-ctx.Done():
				return nil
			}
		}
		c.setFetchErr(nil)
		c.process(ctx, msg)
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	log := c.logger.With("partition", msg.Partition, "offset", msg.Offset)
	if id := header(msg, HeaderRequestID); id != "" {
		ctx = logger.WithRequestID(ctx, id)
		log = log.With("request_id", id)
	}
	log.Debug("message received", "key", string(msg.Key), "type", header(msg, HeaderEventType), "value_size", len(msg.Value))

	_, err := resilience.Retry(ctx, c.retry, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.handler(ctx, msg.Key, msg.Value)
	})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		c.dropped.Add(1)
		log.Error("dropping message after failed attempts", "key", string(msg.Key), "error", err)
	} else {
		c.handled.Add(1)
	}

	c.mu.Lock()
	c.lastMsg = time.Now()
	c.mu.Unlock()

	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		log.Error("commit failed", "error", err)
	}
}

func (c *Consumer) setFetchErr(err error) {
	c.mu.Lock()
	c.fetchErr = err
	c.mu.Unlock()
}

func (c *Consumer) Stats() ConsumerStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ConsumerStats{
		Handled:       c.handled.Load(),
		Dropped:       c.dropped.Load(),
		LastMessageAt: c.lastMsg,
	}
}

// Ping reports the most recent fetch error, or nil once a fetch succeeds.
func (c *Consumer) Ping(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fetchErr != nil {
		return fmt.Errorf("kafka %s: %w", c.topic, c.fetchErr)
	}
	return nil
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

// DecodeJSON is a generic helper that unmarshals a Kafka message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("decoding kafka message: %w", err)
	}
	return result, nil
}
