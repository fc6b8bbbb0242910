package publisher

import (
	"context"
	"errors"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/indexer"
	apperrors "github.com/Adithya-Monish-Kumar-K/careermatch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/kafka"
)

type fakeProducer struct {
	events []kafka.Event
	err    error
}

func (f *fakeProducer) Publish(_ context.Context, e kafka.Event) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, e)
	return nil
}

func TestEnqueue(t *testing.T) {
	prod := &fakeProducer{}
	p := New(prod)
	err := p.Enqueue(context.Background(), indexer.ProfileUpdateEvent{OwnerID: "u1", Source: indexer.SourceResume, Text: "Go"})
	if err != nil {
		t.Fatalf("Enqueue() error: %v", err)
	}
	if len(prod.events) != 1 || prod.events[0].Key != "u1" {
		t.Fatalf("events = %+v", prod.events)
	}
	ev := prod.events[0].Value.(indexer.ProfileUpdateEvent)
	if ev.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not stamped")
	}
}

func TestEnqueueErrors(t *testing.T) {
	p := New(&fakeProducer{})
	if err := p.Enqueue(context.Background(), indexer.ProfileUpdateEvent{Source: indexer.SourceResume}); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("missing owner: error = %v", err)
	}
	p = New(&fakeProducer{err: errors.New("no brokers")})
	err := p.Enqueue(context.Background(), indexer.ProfileUpdateEvent{OwnerID: "u1", Source: indexer.SourceGitHub})
	if !errors.Is(err, apperrors.ErrStoreUnavailable) {
		t.Errorf("broker failure: error = %v, want ErrStoreUnavailable", err)
	}
}
