package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/ats"
	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/embedding"
	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/keywords"
	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/matching"
	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/retriever"
	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/skills"
	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/vectorindex"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/careermatch/pkg/errors"
)

var retrievalCfg = config.RetrievalConfig{
	TopK: 5,
	Collections: config.CollectionsConfig{
		Resume:     "resume_chunks",
		Profile:    "experiences",
		Repository: "github_repos",
	},
}

type queue struct{ events []indexer.ProfileUpdateEvent }

func (q *queue) Enqueue(_ context.Context, e indexer.ProfileUpdateEvent) error {
	q.events = append(q.events, e)
	return nil
}

type failingIndexer struct{}

func (failingIndexer) IndexResume(context.Context, string, string) (int, error) {
	return 0, apperrors.ErrModelUnavailable
}
func (failingIndexer) IndexProfile(context.Context, string, indexer.ProfileSections) (int, error) {
	return 0, apperrors.ErrModelUnavailable
}
func (failingIndexer) IndexRepositories(context.Context, string, []indexer.Repository) (int, error) {
	return 0, apperrors.ErrModelUnavailable
}

func newMux(t *testing.T, idx Indexer, opts ...Option) *http.ServeMux {
	t.Helper()
	p := embedding.NewHashProvider(64)
	store := vectorindex.NewMemoryStore()
	if idx == nil {
		idx = indexer.NewEngine(p, store, config.ChunkingConfig{}, retrievalCfg.Collections, nil)
	}
	ret := retriever.New(p, store, retrievalCfg, nil)
	a := &matching.Analyzers{Keywords: keywords.Default(), Skills: skills.Default(), Scorer: ats.NewScorer()}
	svc := matching.NewService(ret, p, a)
	mux := http.NewServeMux()
	New(idx, ret, svc, a, opts...).Register(mux)
	return mux
}

func do(t *testing.T, mux *http.ServeMux, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))
	return rec
}

func TestIndexThenRetrieve(t *testing.T) {
	mux := newMux(t, nil)

	rec := do(t, mux, http.MethodPost, "/api/v1/owners/u1/resume", map[string]string{"text": "Go engineer building Kafka pipelines"})
	if rec.Code != http.StatusOK {
		t.Fatalf("index status = %d, body %s", rec.Code, rec.Body)
	}
	var idx indexResponse
	json.Unmarshal(rec.Body.Bytes(), &idx)
	if idx.Chunks != 1 || idx.Source != indexer.SourceResume || idx.Status != "indexed" {
		t.Errorf("index response = %+v", idx)
	}

	rec = do(t, mux, http.MethodPost, "/api/v1/owners/u1/repositories", map[string]any{
		"repositories": []map[string]any{{"name": "pipeline", "language": "Go"}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("repositories status = %d, body %s", rec.Code, rec.Body)
	}

	rec = do(t, mux, http.MethodGet, "/api/v1/owners/u1/context?q=kafka&top_k=3", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("retrieve status = %d, body %s", rec.Code, rec.Body)
	}
	var res retriever.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(res.MergedContext, "### Most Relevant Resume Sections:") ||
		!strings.Contains(res.MergedContext, "### Relevant GitHub Projects:") {
		t.Errorf("MergedContext = %q", res.MergedContext)
	}
}

func TestAsyncIndexing(t *testing.T) {
	q := &queue{}
	mux := newMux(t, nil, WithEnqueuer(q))
	rec := do(t, mux, http.MethodPost, "/api/v1/owners/u9/profile?async=true", map[string]string{"about": "SRE"})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if len(q.events) != 1 || q.events[0].OwnerID != "u9" || q.events[0].Profile.About != "SRE" {
		t.Errorf("queued = %+v", q.events)
	}

	rec = do(t, newMux(t, nil), http.MethodPost, "/api/v1/owners/u9/resume?async=true", map[string]string{"text": "x"})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("async without queue: status = %d", rec.Code)
	}
}

func TestScoreEndpoint(t *testing.T) {
	mux := newMux(t, nil)
	resume := "Summary\nPython engineer.\n\nExperience\nBuilt Kafka services.\n\nProjects\nStream processor\n\nEducation\nBSc\n\nSkills\nPython, Kafka"
	rec := do(t, mux, http.MethodPost, "/api/v1/score", map[string]string{"resume": resume, "job": "Python and Kafka engineer"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var got scoreResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Grade == "" || got.Similarity == nil || got.FormatScore != 100 {
		t.Errorf("score = %+v", got)
	}
}

func TestValidationErrors(t *testing.T) {
	mux := newMux(t, nil)
	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
		code   string
	}{
		{"bad json", http.MethodPost, "/api/v1/score", "{", http.StatusBadRequest, "invalid_input"},
		{"score without job", http.MethodPost, "/api/v1/score", map[string]string{"resume": "x"}, http.StatusBadRequest, "invalid_input"},
		{"retrieve without query", http.MethodGet, "/api/v1/owners/u1/context", nil, http.StatusBadRequest, "invalid_input"},
		{"retrieve bad top_k", http.MethodGet, "/api/v1/owners/u1/context?q=go&top_k=0", nil, http.StatusBadRequest, "invalid_input"},
		{"repository without name", http.MethodPost, "/api/v1/owners/u1/repositories", map[string]any{"repositories": []map[string]string{{}}}, http.StatusBadRequest, "invalid_input"},
		{"analyze without resume", http.MethodPost, "/api/v1/owners/u1/analyze", map[string]string{"job": "Go"}, http.StatusBadRequest, "invalid_input"},
		{"body too large", http.MethodPost, "/api/v1/score", `{"resume":"` + strings.Repeat("a", maxBodyBytes) + `"}`, http.StatusRequestEntityTooLarge, "payload_too_large"},
		{"async without queue", http.MethodPost, "/api/v1/owners/u1/resume?async=true", map[string]string{"text": "x"}, http.StatusServiceUnavailable, "not_enabled"},
		{"wrong method", http.MethodGet, "/api/v1/score", nil, http.StatusMethodNotAllowed, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, mux, tt.method, tt.path, tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body)
			}
			if tt.code == "" {
				return
			}
			var body struct {
				Error string `json:"error"`
				Code  string `json:"code"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decoding %s: %v", rec.Body, err)
			}
			if body.Code != tt.code || body.Error == "" {
				t.Errorf("body = %s, want code %q", rec.Body, tt.code)
			}
		})
	}

	rec := do(t, mux, http.MethodPost, "/api/v1/score", map[string]string{"resume": "x"})
	var body struct {
		Fields map[string]string `json:"fields"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if _, ok := body.Fields["job"]; !ok {
		t.Errorf("validation body lost its fields: %s", rec.Body)
	}
}

func TestModelUnavailableIs503(t *testing.T) {
	mux := newMux(t, failingIndexer{})
	rec := do(t, mux, http.MethodPost, "/api/v1/owners/u1/resume", map[string]string{"text": "Go"})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["error"] != "embedding model unavailable" || body["code"] != "model_unavailable" {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestKeywordsSkillsAndGap(t *testing.T) {
	mux := newMux(t, nil)

	rec := do(t, mux, http.MethodPost, "/api/v1/keywords", map[string]string{"job": "Senior Python developer with Kubernetes"})
	var kw struct{ Keywords []string }
	json.Unmarshal(rec.Body.Bytes(), &kw)
	if rec.Code != http.StatusOK || len(kw.Keywords) == 0 {
		t.Errorf("keywords: status %d, body %s", rec.Code, rec.Body)
	}

	rec = do(t, mux, http.MethodPost, "/api/v1/skills", map[string]string{"resume": "Python", "profile": "Python and Docker"})
	var sk skillsResponse
	json.Unmarshal(rec.Body.Bytes(), &sk)
	if len(sk.Skills) != 2 || sk.Skills[0].Name != "Python" || len(sk.ByCategory["DevOps"]) != 1 {
		t.Errorf("skills = %+v", sk)
	}

	rec = do(t, mux, http.MethodPost, "/api/v1/skills/gap", map[string]any{"job": "Python and Docker", "user_skills": []string{"python"}})
	var gap struct {
		MissingSkills []string `json:"missing_skills"`
	}
	json.Unmarshal(rec.Body.Bytes(), &gap)
	if len(gap.MissingSkills) != 1 || gap.MissingSkills[0] != "Docker" {
		t.Errorf("gap = %+v", gap)
	}
}

func TestTruncateJob(t *testing.T) {
	h := New(nil, nil, nil, nil, WithMaxJobLength(3))
	if got := h.truncateJob("héllo"); got != "hél" {
		t.Errorf("truncateJob() = %q, want hél", got)
	}
	if got := h.truncateJob("hi"); got != "hi" {
		t.Errorf("truncateJob() = %q, want hi", got)
	}
}
