// Package resilience guards calls to the vector store and the embedding
// backend: a circuit breaker per dependency, retries with jittered backoff
// and a deadline helper.
package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is matched by every rejection a Breaker returns.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// OpenError is returned while a breaker rejects calls. RetryIn is zero when
// the breaker is half-open and all probe slots are taken.
type OpenError struct {
	Name    string
	RetryIn time.Duration
}

func (e *OpenError) Error() string {
	if e.RetryIn > 0 {
		return fmt.Sprintf("%s: circuit open, retry in %v", e.Name, e.RetryIn.Round(time.Millisecond))
	}
	return fmt.Sprintf("%s: circuit half-open, probe in flight", e.Name)
}

func (e *OpenError) Unwrap() error { return ErrCircuitOpen }

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// BreakerOptions configures a Breaker. Zero values fall back to a threshold
// of 5, a 30s cooldown and a single probe.
type BreakerOptions struct {
	Threshold int
	Cooldown  time.Duration
	Probes    int

	// Ignore reports errors that are passed through without counting as a
	// success or a failure.
	Ignore func(error) bool

	// OnTransition is called with the breaker's lock held.
	OnTransition func(name string, to State)

	Clock func() time.Time
}

// Stats is a point-in-time view of a breaker.
type Stats struct {
	Name     string
	State    State
	Failures int
	OpenedAt time.Time
}

// Breaker counts consecutive failures of one dependency. Once Threshold is
// reached it rejects calls for Cooldown, then lets Probes calls through; a
// successful probe closes it again and a failed one reopens it.
type Breaker struct {
	name string
	opts BreakerOptions
	log  *slog.Logger

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probes   int
}

func NewBreaker(name string, opts BreakerOptions) *Breaker {
	if opts.Threshold <= 0 {
		opts.Threshold = 5
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = 30 * time.Second
	}
	if opts.Probes <= 0 {
		opts.Probes = 1
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Breaker{
		name: name,
		opts: opts,
		log:  slog.Default().With("component", "circuit-breaker", "name", name),
	}
}

// Call runs fn through b and returns its result. When b rejects the call fn
// is not run and the error matches ErrCircuitOpen.
func Call[T any](b *Breaker, fn func() (T, error)) (T, error) {
	if err := b.admit(); err != nil {
		var zero T
		return zero, err
	}
	v, err := fn()
	b.settle(err)
	return v, err
}

// Run is Call for functions without a result.
func (b *Breaker) Run(fn func() error) error {
	_, err := Call(b, func() (struct{}, error) { return struct{}{}, fn() })
	return err
}

func (b *Breaker) Name() string { return b.name }

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{Name: b.name, State: b.state, Failures: b.failures, OpenedAt: b.openedAt}
}

// Reset closes the breaker and clears its failure count.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.probes = 0
	b.moveTo(StateClosed)
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateOpen:
		if wait := b.opts.Cooldown - b.opts.Clock().Sub(b.openedAt); wait > 0 {
			return &OpenError{Name: b.name, RetryIn: wait}
		}
		b.probes = 0
		b.moveTo(StateHalfOpen)
		fallthrough
	case StateHalfOpen:
		if b.probes >= b.opts.Probes {
			return &OpenError{Name: b.name}
		}
		b.probes++
	}
	return nil
}

func (b *Breaker) settle(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil && b.opts.Ignore != nil && b.opts.Ignore(err) {
		if b.state == StateHalfOpen && b.probes > 0 {
			b.probes--
		}
		return
	}

	if err == nil {
		b.failures = 0
		if b.state == StateHalfOpen {
			b.probes = 0
			b.moveTo(StateClosed)
		}
		return
	}

	b.failures++
	switch {
	case b.state == StateHalfOpen:
		b.trip()
	case b.state == StateClosed && b.failures >= b.opts.Threshold:
		b.trip()
	}
}

func (b *Breaker) trip() {
	b.openedAt = b.opts.Clock()
	b.moveTo(StateOpen)
}

func (b *Breaker) moveTo(to State) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	switch to {
	case StateOpen:
		b.log.Warn("circuit opened", "from", from, "consecutive_failures", b.failures, "cooldown", b.opts.Cooldown)
	default:
		b.log.Info("circuit state changed", "from", from, "to", to)
	}
	if b.opts.OnTransition != nil {
		b.opts.OnTransition(b.name, to)
	}
}
