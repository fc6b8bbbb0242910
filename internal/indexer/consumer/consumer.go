// Package consumer reads profile update events from Kafka and re-indexes
// the changed source through the indexer engine.
package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/metrics"
)

// IndexConsumer wraps a Kafka consumer to drive the indexing pipeline.
type IndexConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

// New creates an IndexConsumer backed by the given Kafka consumer.
func New(kafkaConsumer *kafka.Consumer) *IndexConsumer {
	return &IndexConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "index-consumer"),
	}
}

// Start begins consuming Kafka messages. It blocks until ctx is cancelled.
func (ic *IndexConsumer) Start(ctx context.Context) error {
	ic.logger.Info("index consumer starting")
	return ic.consumer.Start(ctx)
}

// HandleMessage returns a Kafka MessageHandler that re-indexes the source
// named by each event. Malformed events are logged and dropped at once;
// indexing failures are returned so the consumer retries them.
func HandleMessage(engine *indexer.Engine, m *metrics.Metrics) kafka.MessageHandler {
	log := slog.Default().With("component", "index-consumer")
	count := func(status string) {
		if m != nil {
			m.ProfileEventsTotal.WithLabelValues(status).Inc()
		}
	}
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[indexer.ProfileUpdateEvent](value)
		if err != nil {
			log.Error("failed to decode profile update", "error", err, "key", string(key))
			count("invalid")
			return nil
		}
		if event.OwnerID == "" || !event.Source.Valid() {
			log.Error("dropping profile update",
				"owner_id", event.OwnerID,
				"source", event.Source,
				"key", string(key),
			)
			count("invalid")
			return nil
		}

		ctx = logger.WithOwner(ctx, event.OwnerID)
		if event.RequestID != "" {
			ctx = logger.WithRequestID(ctx, event.RequestID)
		}

		n, err := engine.Apply(ctx, event)
		if err != nil {
			count("failed")
			return fmt.Errorf("indexing %s for %s: %w", event.Source, event.OwnerID, err)
		}

		count("indexed")
		logger.FromContext(ctx).Info("profile update indexed",
			"source", event.Source,
			"chunks", n,
		)
		return nil
	}
}
