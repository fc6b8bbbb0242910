// Package health runs dependency probes for the liveness and readiness
// endpoints. Each dependency is registered as critical or optional: a
// failing critical dependency takes the service down, an optional one only
// degrades it.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"
)

type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

func (s Status) rank() int {
	switch s {
	case StatusDown:
		return 2
	case StatusDegraded:
		return 1
	}
	return 0
}

// Probe checks a single dependency. Ping methods on the store, the
// embedding handle and the clients all satisfy it.
type Probe func(ctx context.Context) error

type Component struct {
	Name      string `json:"name"`
	Status    Status `json:"status"`
	Critical  bool   `json:"critical"`
	Message   string `json:"message,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

type Report struct {
	Status     Status            `json:"status"`
	Service    string            `json:"service"`
	Info       map[string]string `json:"info,omitempty"`
	Uptime     string            `json:"uptime"`
	Components []Component       `json:"components"`
	CheckedAt  time.Time         `json:"checked_at"`
}

type entry struct {
	probe    Probe
	critical bool
	disabled string
}

// Checker holds the registered probes of one service.
type Checker struct {
	service      string
	info         map[string]string
	probeTimeout time.Duration
	started      time.Time
	logger       *slog.Logger

	mu      sync.RWMutex
	entries map[string]entry
}

// NewChecker creates a Checker for the named service. info is echoed in
// every report, e.g. the embedding model and the vector store driver.
func NewChecker(service string, info map[string]string) *Checker {
	return &Checker{
		service:      service,
		info:         info,
		probeTimeout: 2 * time.Second,
		started:      time.Now(),
		logger:       slog.Default().With("component", "health", "service", service),
		entries:      make(map[string]entry),
	}
}

// Register adds a probe for a dependency.
func (c *Checker) Register(name string, probe Probe, critical bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[name] = entry{probe: probe, critical: critical}
}

// Disabled records an optional dependency that is not in use; it reports
// degraded with the given reason.
func (c *Checker) Disabled(name, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[name] = entry{disabled: reason}
}

// Run probes every dependency concurrently, each under its own timeout.
// Components are sorted by name; the overall status is the worst one seen.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	entries := make(map[string]entry, len(c.entries))
	for name, e := range c.entries {
		entries[name] = e
	}
	c.mu.RUnlock()
	sort.Strings(names)

	components := make([]Component, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			components[i] = c.probe(ctx, name, entries[name])
		}()
	}
	wg.Wait()

	report := Report{
		Status:     StatusUp,
		Service:    c.service,
		Info:       c.info,
		Uptime:     time.Since(c.started).Round(time.Second).String(),
		Components: components,
		CheckedAt:  time.Now().UTC(),
	}
	for _, comp := range components {
		if comp.Status.rank() > report.Status.rank() {
			report.Status = comp.Status
		}
	}
	return report
}

func (c *Checker) probe(ctx context.Context, name string, e entry) Component {
	comp := Component{Name: name, Status: StatusUp, Critical: e.critical}
	if e.probe == nil {
		comp.Status = StatusDegraded
		comp.Message = e.disabled
		return comp
	}
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	start := time.Now()
	err := e.probe(ctx)
	comp.LatencyMS = time.Since(start).Milliseconds()
	if err != nil {
		comp.Status = StatusDegraded
		if e.critical {
			comp.Status = StatusDown
		}
		comp.Message = err.Error()
		c.logger.Warn("dependency unhealthy", "dependency", name, "critical", e.critical, "error", err)
	}
	return comp
}

// LiveHandler answers 200 while the process is serving.
func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "alive",
			"service": c.service,
			"uptime":  time.Since(c.started).Round(time.Second).String(),
		})
	}
}

// ReadyHandler answers 200 unless a critical dependency is down. A degraded
// service still takes traffic.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := c.Run(r.Context())
		status := http.StatusOK
		if report.Status == StatusDown {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, report)
	}
}

// Routes registers both probes under /health.
func (c *Checker) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health/live", c.LiveHandler())
	mux.HandleFunc("GET /health/ready", c.ReadyHandler())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
