// Package ratelimit keeps one token bucket per client key on top of
// golang.org/x/time/rate and forgets keys that go idle.
package ratelimit

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type bucket struct {
	lim      *rate.Limiter
	limit    int
	lastSeen time.Time
}

// Limiter grants each key `limit` requests per window, refilled
// continuously. Idle keys are evicted after two windows.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	window  time.Duration
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

func New(window time.Duration) *Limiter {
	l := &Limiter{
		buckets: make(map[string]*bucket),
		window:  window,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go l.evictLoop()
	return l
}

// Allow consumes one token for key and reports whether one was available.
func (l *Limiter) Allow(key string, limit int) bool {
	ok, _ := l.Check(key, limit)
	return ok
}

// Check is Allow that also says how long until the next token when the
// request is refused.
func (l *Limiter) Check(key string, limit int) (bool, time.Duration) {
	if limit <= 0 {
		return true, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b := l.bucket(key, limit, now)
	b.lastSeen = now
	if b.lim.AllowN(now, 1) {
		return true, 0
	}
	missing := 1 - b.lim.TokensAt(now)
	wait := time.Duration(math.Ceil(missing / float64(b.lim.Limit()) * float64(time.Second)))
	return false, wait
}

// bucket must be called with mu held.
func (l *Limiter) bucket(key string, limit int, now time.Time) *bucket {
	every := rate.Every(l.window / time.Duration(limit))
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(every, limit), limit: limit}
		l.buckets[key] = b
		return b
	}
	if b.limit != limit {
		b.lim.SetLimitAt(now, every)
		b.lim.SetBurstAt(now, limit)
		b.limit = limit
	}
	return b
}

// Reset forgets the state for key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// Close stops the eviction goroutine.
func (l *Limiter) Close() {
	l.once.Do(func() { close(l.stop) })
}

func (l *Limiter) evictLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.evict()
		case <-l.stop:
			return
		}
	}
}

func (l *Limiter) evict() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-2 * l.window)
	for key, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}
