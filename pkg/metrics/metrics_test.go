package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestHandlerServesOwnRegistry(t *testing.T) {
	m := NewWithRegisterer(prometheus.NewRegistry())
	m.EmbeddingRetriesTotal.Inc()
	m.ATSGradesTotal.WithLabelValues("B").Add(2)

	rec := httptest.NewRecorder()
	m.mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"embedding_retries_total 1", `ats_grades_total{grade="B"} 2`} {
		if !strings.Contains(body, want) {
			t.Errorf("scrape output missing %q", want)
		}
	}
}

func TestIndexPage(t *testing.T) {
	m := NewWithRegisterer(prometheus.NewRegistry())
	tests := []struct {
		path string
		want int
	}{
		{"/", http.StatusOK},
		{"/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		m.mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if rec.Code != tt.want {
			t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.want)
		}
	}
}
