// Package handler exposes the matching engine over HTTP: indexing an owner's
// sources, retrieving context, scoring, keyword and skill extraction, and the
// combined analysis.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/ats"
	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/chunker"
	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/matching"
	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/retriever"
	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/skills"
	apperrors "github.com/Adithya-Monish-Kumar-K/careermatch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/logger"
)

const (
	DefaultMaxJobLength = 10000
	maxBodyBytes        = 4 << 20
)

type Indexer interface {
	IndexResume(ctx context.Context, owner, text string) (int, error)
	IndexProfile(ctx context.Context, owner string, profile indexer.ProfileSections) (int, error)
	IndexRepositories(ctx context.Context, owner string, repos []indexer.Repository) (int, error)
}

type Retriever interface {
	Retrieve(ctx context.Context, owner, query string, topK int) (*retriever.Result, error)
}

// Enqueuer hands profile updates to the asynchronous indexer.
type Enqueuer interface {
	Enqueue(ctx context.Context, event indexer.ProfileUpdateEvent) error
}

// IndexTracker receives one event per synchronous index operation.
type IndexTracker interface {
	TrackIndex(analytics.IndexEvent)
}

type Handler struct {
	indexer      Indexer
	retriever    Retriever
	service      *matching.Service
	analyzers    matching.Source
	enqueuer     Enqueuer
	tracker      IndexTracker
	maxJobLength int
	logger       *slog.Logger
}

type Option func(*Handler)

func WithEnqueuer(e Enqueuer) Option {
	return func(h *Handler) { h.enqueuer = e }
}

func WithIndexTracker(t IndexTracker) Option {
	return func(h *Handler) { h.tracker = t }
}

// WithMaxJobLength sets how many runes of a job description are kept.
func WithMaxJobLength(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxJobLength = n
		}
	}
}

func New(idx Indexer, ret Retriever, svc *matching.Service, analyzers matching.Source, opts ...Option) *Handler {
	h := &Handler{
		indexer:      idx,
		retriever:    ret,
		service:      svc,
		analyzers:    analyzers,
		maxJobLength: DefaultMaxJobLength,
		logger:       slog.Default().With("component", "matcher-handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/owners/{owner}/resume", h.IndexResume)
	mux.HandleFunc("POST /api/v1/owners/{owner}/profile", h.IndexProfile)
	mux.HandleFunc("POST /api/v1/owners/{owner}/repositories", h.IndexRepositories)
	mux.HandleFunc("GET /api/v1/owners/{owner}/context", h.Retrieve)
	mux.HandleFunc("POST /api/v1/owners/{owner}/analyze", h.Analyze)
	mux.HandleFunc("POST /api/v1/score", h.Score)
	mux.HandleFunc("POST /api/v1/keywords", h.Keywords)
	mux.HandleFunc("POST /api/v1/skills", h.Skills)
	mux.HandleFunc("POST /api/v1/skills/gap", h.Gap)
}

type resumeRequest struct {
	Text string `json:"text"`
}

type repositoriesRequest struct {
	Repositories []indexer.Repository `json:"repositories"`
}

type indexResponse struct {
	OwnerID string             `json:"owner_id"`
	Source  indexer.SourceKind `json:"source"`
	Chunks  int                `json:"chunks"`
	Status  string             `json:"status"`
}

func (h *Handler) IndexResume(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("owner")
	var req resumeRequest
	if !h.decode(w, r, &req) {
		return
	}
	v := &validator{}
	v.owner(owner)
	v.bounded("text", req.Text)
	if !h.valid(w, v) {
		return
	}
	h.index(w, r, indexer.ProfileUpdateEvent{OwnerID: owner, Source: indexer.SourceResume, Text: req.Text},
		func(ctx context.Context) (int, error) { return h.indexer.IndexResume(ctx, owner, req.Text) })
}

func (h *Handler) IndexProfile(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("owner")
	var req indexer.ProfileSections
	if !h.decode(w, r, &req) {
		return
	}
	v := &validator{}
	v.owner(owner)
	v.bounded("about", req.About)
	v.bounded("experience", req.Experience)
	v.bounded("skills", req.Skills)
	if !h.valid(w, v) {
		return
	}
	h.index(w, r, indexer.ProfileUpdateEvent{OwnerID: owner, Source: indexer.SourceLinkedIn, Profile: &req},
		func(ctx context.Context) (int, error) { return h.indexer.IndexProfile(ctx, owner, req) })
}

func (h *Handler) IndexRepositories(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("owner")
	var req repositoriesRequest
	if !h.decode(w, r, &req) {
		return
	}
	v := &validator{}
	v.owner(owner)
	if len(req.Repositories) > maxRepositories {
		v.fail("repositories", "at most "+strconv.Itoa(maxRepositories)+" repositories per request")
	}
	for i, repo := range req.Repositories {
		if repo.Name == "" {
			v.fail("repositories["+strconv.Itoa(i)+"].name", "name is required")
		}
		v.bounded("repositories["+strconv.Itoa(i)+"].readme", repo.Readme)
	}
	if !h.valid(w, v) {
		return
	}
	h.index(w, r, indexer.ProfileUpdateEvent{OwnerID: owner, Source: indexer.SourceGitHub, Repositories: req.Repositories},
		func(ctx context.Context) (int, error) { return h.indexer.IndexRepositories(ctx, owner, req.Repositories) })
}

// index runs fn inline, or queues event when the caller asks for async=true
// and an enqueuer is configured.
func (h *Handler) index(w http.ResponseWriter, r *http.Request, event indexer.ProfileUpdateEvent, fn func(context.Context) (int, error)) {
	start := time.Now()
	ctx := logger.WithOwner(r.Context(), event.OwnerID)
	log := logger.FromContext(ctx)

	if r.URL.Query().Get("async") == "true" {
		if h.enqueuer == nil {
			h.writeError(w, apperrors.New(apperrors.ErrNotEnabled, "asynchronous indexing is not enabled"))
			return
		}
		event.RequestID = logger.RequestID(ctx)
		if err := h.enqueuer.Enqueue(ctx, event); err != nil {
			h.writeFailure(w, log, err, "queueing profile update failed")
			return
		}
		h.writeJSON(w, http.StatusAccepted, indexResponse{OwnerID: event.OwnerID, Source: event.Source, Status: "queued"})
		return
	}

	n, err := fn(ctx)
	if err != nil {
		h.writeFailure(w, log, err, "indexing failed")
		return
	}
	if h.tracker != nil {
		h.tracker.TrackIndex(analytics.IndexEvent{
			OwnerID:   event.OwnerID,
			RequestID: logger.RequestID(ctx),
			Source:    string(event.Source),
			Chunks:    n,
			LatencyMs: time.Since(start).Milliseconds(),
		})
	}
	h.writeJSON(w, http.StatusOK, indexResponse{OwnerID: event.OwnerID, Source: event.Source, Chunks: n, Status: "indexed"})
}

func (h *Handler) Retrieve(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("owner")
	query := r.URL.Query().Get("q")
	v := &validator{}
	v.owner(owner)
	v.required("q", query)
	topK := 0
	if s := r.URL.Query().Get("top_k"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxTopK {
			v.fail("top_k", "top_k must be an integer between 1 and "+strconv.Itoa(maxTopK))
		}
		topK = n
	}
	if !h.valid(w, v) {
		return
	}

	ctx := logger.WithOwner(r.Context(), owner)
	res, err := h.retriever.Retrieve(ctx, owner, h.truncateJob(query), topK)
	if err != nil {
		h.writeFailure(w, logger.FromContext(ctx), err, "retrieval failed")
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req matching.AnalyzeRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.OwnerID = r.PathValue("owner")
	v := &validator{}
	v.owner(req.OwnerID)
	v.required("resume", req.Resume)
	v.required("job", req.Job)
	if req.TopK < 0 || req.TopK > maxTopK {
		v.fail("top_k", "top_k must be between 0 and "+strconv.Itoa(maxTopK))
	}
	if !h.valid(w, v) {
		return
	}
	req.Job = h.truncateJob(req.Job)

	ctx := logger.WithOwner(r.Context(), req.OwnerID)
	a, err := h.service.Analyze(ctx, req)
	if err != nil {
		h.writeFailure(w, logger.FromContext(ctx), err, "analysis failed")
		return
	}
	h.writeJSON(w, http.StatusOK, a)
}

type scoreResponse struct {
	ats.Breakdown
	Similarity *float64 `json:"similarity,omitempty"`
}

func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	var req matching.ScoreRequest
	if !h.decode(w, r, &req) {
		return
	}
	v := &validator{}
	v.required("resume", req.Resume)
	v.required("job", req.Job)
	if !h.valid(w, v) {
		return
	}
	req.Job = h.truncateJob(req.Job)

	b, sim, err := h.service.Score(r.Context(), req)
	if err != nil {
		h.writeFailure(w, logger.FromContext(r.Context()), err, "scoring failed")
		return
	}
	h.writeJSON(w, http.StatusOK, scoreResponse{Breakdown: b, Similarity: sim})
}

type jobRequest struct {
	Job        string   `json:"job"`
	UserSkills []string `json:"user_skills,omitempty"`
}

func (h *Handler) Keywords(w http.ResponseWriter, r *http.Request) {
	var req jobRequest
	if !h.decode(w, r, &req) {
		return
	}
	v := &validator{}
	v.required("job", req.Job)
	if !h.valid(w, v) {
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"keywords": h.analyzers.Current().Keywords.Extract(h.truncateJob(req.Job)),
	})
}

type skillsResponse struct {
	Skills     []skills.Record            `json:"skills"`
	ByCategory map[string][]skills.Record `json:"by_category"`
}

func (h *Handler) Skills(w http.ResponseWriter, r *http.Request) {
	var req matching.ProfileTexts
	if !h.decode(w, r, &req) {
		return
	}
	v := &validator{}
	v.bounded("resume", req.Resume)
	v.bounded("profile", req.Profile)
	v.bounded("repositories", req.Repositories)
	if !h.valid(w, v) {
		return
	}
	records := h.service.ProfileSkills(req)
	h.writeJSON(w, http.StatusOK, skillsResponse{Skills: records, ByCategory: skills.ByCategory(records)})
}

func (h *Handler) Gap(w http.ResponseWriter, r *http.Request) {
	var req jobRequest
	if !h.decode(w, r, &req) {
		return
	}
	v := &validator{}
	v.required("job", req.Job)
	if !h.valid(w, v) {
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"missing_skills": h.service.Gap(req.UserSkills, h.truncateJob(req.Job)),
	})
}

func (h *Handler) truncateJob(s string) string {
	return chunker.Truncate(s, h.maxJobLength)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, apperrors.New(apperrors.ErrPayloadTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)))
			return false
		}
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, "invalid JSON body"))
		return false
	}
	return true
}

func (h *Handler) valid(w http.ResponseWriter, v *validator) bool {
	err := v.err()
	if err == nil {
		return true
	}
	body := apperrors.Body(apperrors.New(apperrors.ErrInvalidInput, "validation failed"), "")
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		body["fields"] = validationErr.Fields
	}
	h.writeJSON(w, http.StatusBadRequest, body)
	return false
}

// writeFailure maps err onto a status and code; only AppError messages and
// dependency failures are shown, anything else is replaced by fallback.
func (h *Handler) writeFailure(w http.ResponseWriter, log *slog.Logger, err error, fallback string) {
	status := apperrors.HTTPStatusCode(err)
	log.Error(fallback, "error", err, "status_code", status)
	h.writeJSON(w, status, apperrors.Body(err, fallback))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	h.writeJSON(w, status, apperrors.Body(err, http.StatusText(status)))
}
