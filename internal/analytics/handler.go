package analytics

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	apperrors "github.com/Adithya-Monish-Kumar-K/careermatch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/kafka"
)

// StatsSource is satisfied by *Aggregator.
type StatsSource interface {
	Summary(topSkills int) AggregatedStats
}

// History lists persisted snapshots, newest first.
type History interface {
	History(ctx context.Context, limit int) ([]Snapshot, error)
}

type ConsumerStatus interface {
	Stats() kafka.ConsumerStats
}

const (
	maxTopSkills         = 50
	defaultSnapshotLimit = 24
	maxSnapshotLimit     = 500
)

type Handler struct {
	source   StatsSource
	history  History
	consumer ConsumerStatus
	logger   *slog.Logger
}

type HandlerOption func(*Handler)

func WithHistory(h History) HandlerOption {
	return func(hd *Handler) { hd.history = h }
}

func WithConsumer(c ConsumerStatus) HandlerOption {
	return func(hd *Handler) { hd.consumer = c }
}

func NewHandler(source StatsSource, opts ...HandlerOption) *Handler {
	h := &Handler{
		source: source,
		logger: slog.Default().With("component", "analytics-handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/analytics", h.Stats)
	mux.HandleFunc("GET /api/v1/analytics/snapshots", h.Snapshots)
	mux.HandleFunc("GET /api/v1/analytics/consumer", h.Consumer)
}

// Stats serves the live aggregate. ?top=N (1-50) sizes the missing-skills
// list.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	top, ok := h.intParam(w, r, "top", defaultTopSkills, maxTopSkills)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, h.source.Summary(top))
}

// Snapshots serves persisted aggregates, newest first. ?limit=N caps the
// count at 500.
func (h *Handler) Snapshots(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.writeError(w, apperrors.New(apperrors.ErrNotFound, "snapshot storage is not configured"))
		return
	}
	limit, ok := h.intParam(w, r, "limit", defaultSnapshotLimit, maxSnapshotLimit)
	if !ok {
		return
	}
	snaps, err := h.history.History(r.Context(), limit)
	if err != nil {
		h.logger.Error("loading snapshots failed", "error", err)
		h.writeError(w, apperrors.New(apperrors.ErrStoreUnavailable, "snapshot storage unavailable"))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"snapshots": snaps, "count": len(snaps)})
}

func (h *Handler) Consumer(w http.ResponseWriter, r *http.Request) {
	if h.consumer == nil {
		h.writeError(w, apperrors.New(apperrors.ErrNotFound, "no consumer attached"))
		return
	}
	h.writeJSON(w, http.StatusOK, h.consumer.Stats())
}

func (h *Handler) intParam(w http.ResponseWriter, r *http.Request, name string, def, limit int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > limit {
		h.writeError(w, apperrors.Invalidf("%s must be an integer between 1 and %d", name, limit))
		return 0, false
	}
	return n, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	h.writeJSON(w, status, apperrors.Body(err, http.StatusText(status)))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to write analytics response", "error", err)
	}
}
