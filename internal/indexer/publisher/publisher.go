// Package publisher queues profile updates on Kafka so the indexer service
// re-indexes them asynchronously. Events are keyed by owner, which keeps one
// owner's updates ordered on a single partition.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/indexer"
	apperrors "github.com/Adithya-Monish-Kumar-K/careermatch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/kafka"
)

// EventPublisher is satisfied by *kafka.Producer.
type EventPublisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

type Publisher struct {
	producer EventPublisher
	logger   *slog.Logger
}

func New(producer EventPublisher) *Publisher {
	return &Publisher{
		producer: producer,
		logger:   slog.Default().With("component", "profile-publisher"),
	}
}

// Enqueue publishes a profile update. A broker failure is reported as
// ErrStoreUnavailable so callers can fall back or retry.
func (p *Publisher) Enqueue(ctx context.Context, event indexer.ProfileUpdateEvent) error {
	if event.OwnerID == "" || !event.Source.Valid() {
		return apperrors.Invalidf("owner and a known source are required, got %q/%q", event.OwnerID, event.Source)
	}
	if event.UpdatedAt.IsZero() {
		event.UpdatedAt = time.Now().UTC()
	}
	if err := p.producer.Publish(ctx, kafka.Event{Key: event.OwnerID, Type: "profile_update", Value: event}); err != nil {
		p.logger.Error("failed to queue profile update",
			"owner_id", event.OwnerID,
			"source", event.Source,
			"error", err,
		)
		return fmt.Errorf("%w: queueing profile update: %v", apperrors.ErrStoreUnavailable, err)
	}
	p.logger.Debug("profile update queued", "owner_id", event.OwnerID, "source", event.Source)
	return nil
}
