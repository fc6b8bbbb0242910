package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func ok(context.Context) error   { return nil }
func fail(context.Context) error { return errors.New("unreachable") }

func TestRunAggregatesWorstStatus(t *testing.T) {
	type dep struct {
		probe    Probe
		critical bool
	}
	tests := []struct {
		name string
		deps map[string]dep
		want Status
	}{
		{"all up", map[string]dep{"store": {ok, true}, "cache": {ok, false}}, StatusUp},
		{"optional down", map[string]dep{"store": {ok, true}, "cache": {fail, false}}, StatusDegraded},
		{"critical down", map[string]dep{"store": {fail, true}, "cache": {fail, false}}, StatusDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker("matcher", nil)
			for name, d := range tt.deps {
				c.Register(name, d.probe, d.critical)
			}
			report := c.Run(context.Background())
			if report.Status != tt.want {
				t.Errorf("Status = %q, want %q", report.Status, tt.want)
			}
			if len(report.Components) != len(tt.deps) {
				t.Fatalf("got %d components, want %d", len(report.Components), len(tt.deps))
			}
			if report.Components[0].Name != "cache" || report.Components[1].Name != "store" {
				t.Errorf("components not sorted: %+v", report.Components)
			}
		})
	}
}

func TestDisabledDependency(t *testing.T) {
	c := NewChecker("matcher", map[string]string{"embedding_model": "text-embedding-3-small"})
	c.Register("vector_store", ok, true)
	c.Disabled("redis", "not configured")

	report := c.Run(context.Background())
	if report.Status != StatusDegraded {
		t.Errorf("Status = %q, want degraded", report.Status)
	}
	redis := report.Components[0]
	if redis.Name != "redis" || redis.Message != "not configured" || redis.Critical {
		t.Errorf("redis component = %+v", redis)
	}
	if report.Info["embedding_model"] != "text-embedding-3-small" {
		t.Errorf("Info = %v", report.Info)
	}
}

func TestProbeTimeout(t *testing.T) {
	c := NewChecker("matcher", nil)
	c.probeTimeout = 10 * time.Millisecond
	c.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, true)
	if report := c.Run(context.Background()); report.Status != StatusDown {
		t.Errorf("Status = %q, want down", report.Status)
	}
}

func TestReadyHandler(t *testing.T) {
	tests := []struct {
		name     string
		probe    Probe
		critical bool
		want     int
	}{
		{"critical down", fail, true, http.StatusServiceUnavailable},
		{"optional down", fail, false, http.StatusOK},
		{"up", ok, true, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker("matcher", nil)
			c.Register("store", tt.probe, tt.critical)
			mux := http.NewServeMux()
			c.Routes(mux)

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			var report Report
			if err := json.NewDecoder(rec.Body).Decode(&report); err != nil || report.Service != "matcher" {
				t.Errorf("body = %+v, %v", report, err)
			}
		})
	}
}

func TestLiveHandler(t *testing.T) {
	c := NewChecker("analytics", nil)
	rec := httptest.NewRecorder()
	c.LiveHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}
