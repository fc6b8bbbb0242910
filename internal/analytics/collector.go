package analytics

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/kafka"
)

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Collector buffers events in a channel and publishes them in batches, so
// request handlers never wait on the broker. Events are keyed by owner.
type Collector struct {
	publisher     Publisher
	eventCh       chan kafka.Event
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger
	done          chan struct{}

	// mu guards closed; senders hold it shared so Close cannot close
	// eventCh under them.
	mu        sync.RWMutex
	closed    bool
	published atomic.Int64
	dropped   atomic.Int64
}

func NewCollector(publisher Publisher, bufferSize, batchSize int, flushInterval time.Duration) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = time.Second
	}
	return &Collector{
		publisher:     publisher,
		eventCh:       make(chan kafka.Event, bufferSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        slog.Default().With("component", "analytics-collector"),
		done:          make(chan struct{}),
	}
}

// Start launches the publish loop. It stops when ctx is cancelled or Close
// is called, flushing whatever is buffered.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.flushInterval)
		defer ticker.Stop()
		batch := make([]kafka.Event, 0, c.batchSize)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					c.flush(batch)
					return
				}
				batch = append(batch, event)
				if len(batch) >= c.batchSize {
					batch = c.flush(batch)
				}
			case <-ticker.C:
				batch = c.flush(batch)
			case <-ctx.Done():
				c.drainRemaining(batch)
				return
			}
		}
	}()
	c.logger.Info("analytics collector started",
		"buffer_size", cap(c.eventCh),
		"batch_size", c.batchSize,
	)
}

// Track enqueues an event without blocking; it is dropped when the buffer is
// full.
func (c *Collector) Track(key string, event any) {
	c.enqueue(kafka.Event{Key: key, Value: event})
}

func (c *Collector) enqueue(e kafka.Event) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.dropped.Add(1)
		return
	}
	select {
	case c.eventCh <- e:
	default:
		if c.dropped.Add(1)%100 == 1 {
			c.logger.Warn("analytics buffer full, dropping events", "type", e.Type, "dropped", c.dropped.Load())
		}
	}
}

// TrackMatch enqueues a MatchEvent.
func (c *Collector) TrackMatch(e MatchEvent) {
	e.Type = EventMatch
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	c.enqueue(kafka.Event{Key: e.OwnerID, Type: string(EventMatch), RequestID: e.RequestID, Value: e})
}

// TrackIndex enqueues an IndexEvent.
func (c *Collector) TrackIndex(e IndexEvent) {
	e.Type = EventIndex
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	c.enqueue(kafka.Event{Key: e.OwnerID, Type: string(EventIndex), RequestID: e.RequestID, Value: e})
}

// Close stops accepting events and waits for the final flush. Events
// tracked afterwards are counted as dropped. Close must follow Start.
func (c *Collector) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.eventCh)
	c.mu.Unlock()
	<-c.done
	c.logger.Info("analytics collector stopped", "published", c.published.Load(), "dropped", c.dropped.Load())
}

// Counts reports how many events were published and how many were dropped
// because the buffer was full.
func (c *Collector) Counts() (published, dropped int64) {
	return c.published.Load(), c.dropped.Load()
}

func (c *Collector) flush(batch []kafka.Event) []kafka.Event {
	if len(batch) == 0 {
		return batch
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.publisher.PublishBatch(ctx, batch); err != nil {
		c.logger.Error("failed to publish analytics events", "count", len(batch), "error", err)
	} else {
		c.published.Add(int64(len(batch)))
	}
	return batch[:0]
}

func (c *Collector) drainRemaining(batch []kafka.Event) {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				c.flush(batch)
				return
			}
			batch = append(batch, event)
		default:
			c.flush(batch)
			return
		}
	}
}
