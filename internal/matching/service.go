// Package matching ties the read and scoring paths together: it retrieves an
// owner's most relevant material for a job, scores the résumé against the
// posting and reports the skill gap.
package matching

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/ats"
	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/embedding"
	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/retriever"
	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/skills"
	apperrors "github.com/Adithya-Monish-Kumar-K/careermatch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/tracing"
)

// EventSink receives one event per analysed match. *analytics.Collector
// satisfies it.
type EventSink interface {
	TrackMatch(analytics.MatchEvent)
}

type ScoreRequest struct {
	Resume     string        `json:"resume"`
	Job        string        `json:"job"`
	UserSkills []string      `json:"user_skills,omitempty"`
	Holistic   *ats.Holistic `json:"holistic,omitempty"`
}

type AnalyzeRequest struct {
	ScoreRequest
	OwnerID string `json:"owner_id"`
	TopK    int    `json:"top_k,omitempty"`
}

// Analysis is the full result of matching an owner against a job.
type Analysis struct {
	Score      ats.Breakdown                   `json:"score"`
	Similarity *float64                        `json:"similarity,omitempty"`
	SkillGap   []string                        `json:"skill_gap"`
	Context    string                          `json:"context"`
	PerSource  map[indexer.SourceKind][]string `json:"per_source"`
}

// ProfileTexts carries the raw text of each source an owner has.
type ProfileTexts struct {
	Resume       string `json:"resume,omitempty"`
	Profile      string `json:"profile,omitempty"`
	Repositories string `json:"repositories,omitempty"`
}

type Service struct {
	retriever       *retriever.Retriever
	embedder        embedding.Provider
	analyzers       Source
	events          EventSink
	similarityLimit int
	metrics         *metrics.Metrics
}

type Option func(*Service)

// WithEvents publishes a MatchEvent for every Analyze call.
func WithEvents(sink EventSink) Option {
	return func(s *Service) { s.events = sink }
}

func WithSimilarityLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.similarityLimit = n
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(r *retriever.Retriever, embedder embedding.Provider, analyzers Source, opts ...Option) *Service {
	s := &Service{
		retriever:       r,
		embedder:        embedder,
		analyzers:       analyzers,
		similarityLimit: embedding.DefaultSimilarityInputLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score computes the ATS breakdown. The semantic component uses the
// embedding similarity of résumé and job; when it cannot be computed the
// scorer falls back to its neutral value.
func (s *Service) Score(ctx context.Context, req ScoreRequest) (ats.Breakdown, *float64, error) {
	if err := validate(req); err != nil {
		return ats.Breakdown{}, nil, err
	}
	sim := s.similarity(ctx, req.Resume, req.Job)
	b := s.score(s.analyzers.Current(), req, sim)
	return b, sim, nil
}

// Analyze retrieves the owner's relevant material and scores the résumé
// concurrently. A retrieval failure is returned; a similarity failure only
// neutralises the semantic component.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) (*Analysis, error) {
	start := time.Now()
	ctx, span := tracing.Start(ctx, "analyze")
	defer func() {
		span.End()
		span.Log(ctx)
	}()
	if req.OwnerID == "" {
		return nil, apperrors.Invalidf("owner_id is required")
	}
	if err := validate(req.ScoreRequest); err != nil {
		return nil, err
	}

	var (
		retrieved *retriever.Result
		sim       *float64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rctx, rspan := tracing.Start(gctx, "retrieve")
		defer rspan.End()
		res, err := s.retriever.Retrieve(rctx, req.OwnerID, req.Job, req.TopK)
		if err != nil {
			return fmt.Errorf("retrieving context: %w", err)
		}
		retrieved = res
		return nil
	})
	g.Go(func() error {
		sctx, sspan := tracing.Start(gctx, "similarity")
		defer sspan.End()
		sim = s.similarity(sctx, req.Resume, req.Job)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	a := s.analyzers.Current()
	_, scoreSpan := tracing.Start(ctx, "score")
	b := s.score(a, req.ScoreRequest, sim)
	scoreSpan.End()
	span.SetAttr("grade", b.Grade)
	userSkills := req.UserSkills
	if len(userSkills) == 0 {
		userSkills = skills.Names(skills.Merge(a.Skills.Extract(req.Resume, skills.SourceResume)))
	}
	gap := a.Skills.Gap(userSkills, req.Job)

	if s.events != nil {
		s.events.TrackMatch(analytics.MatchEvent{
			OwnerID:       req.OwnerID,
			RequestID:     logger.RequestID(ctx),
			Total:         b.TotalScore,
			Grade:         b.Grade,
			KeywordMatch:  b.KeywordScore,
			SkillsMatch:   b.SkillScore,
			MissingSkills: gap,
			LatencyMs:     time.Since(start).Milliseconds(),
		})
	}
	logger.FromContext(ctx).Info("match analysed",
		"component", "matching",
		"owner_id", req.OwnerID,
		"total", b.TotalScore,
		"grade", b.Grade,
		"missing_skills", len(gap),
	)

	return &Analysis{
		Score:      b,
		Similarity: sim,
		SkillGap:   gap,
		Context:    retrieved.MergedContext,
		PerSource:  retrieved.PerSource,
	}, nil
}

// ProfileSkills extracts skills from every source and merges them into one
// ranked list.
func (s *Service) ProfileSkills(texts ProfileTexts) []skills.Record {
	sk := s.analyzers.Current().Skills
	return skills.Merge(
		sk.Extract(texts.Resume, skills.SourceResume),
		sk.Extract(texts.Profile, skills.SourceLinkedIn),
		sk.Extract(texts.Repositories, skills.SourceGitHub),
	)
}

// Gap lists the job's skills missing from userSkills.
func (s *Service) Gap(userSkills []string, job string) []string {
	return s.analyzers.Current().Skills.Gap(userSkills, job)
}

func (s *Service) score(a *Analyzers, req ScoreRequest, sim *float64) ats.Breakdown {
	b := a.Scorer.Score(ats.Input{
		Resume:             req.Resume,
		Job:                req.Job,
		UserSkills:         req.UserSkills,
		SemanticSimilarity: sim,
		Holistic:           req.Holistic,
	})
	if s.metrics != nil {
		s.metrics.ATSScore.Observe(b.TotalScore)
		s.metrics.ATSGradesTotal.WithLabelValues(b.Grade).Inc()
	}
	return b
}

func (s *Service) similarity(ctx context.Context, resume, job string) *float64 {
	if s.embedder == nil {
		return nil
	}
	v, err := embedding.Similarity(ctx, s.embedder, resume, job, s.similarityLimit)
	if err != nil {
		logger.FromContext(ctx).Warn("semantic similarity unavailable",
			"component", "matching",
			"error", err,
		)
		return nil
	}
	return &v
}

func validate(req ScoreRequest) error {
	if strings.TrimSpace(req.Resume) == "" {
		return apperrors.Invalidf("resume text is required")
	}
	if strings.TrimSpace(req.Job) == "" {
		return apperrors.Invalidf("job description is required")
	}
	return nil
}
