// Package ats estimates how well a résumé would fare in an applicant
// tracking system for a given job posting. Scoring is rule based and
// deterministic: four sub-scores in [0, 100] are combined by a weighted sum.
package ats

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/keywords"
)

const (
	// NoKeywordsScore is the keyword score when the job yields no keywords.
	NoKeywordsScore = 70.0
	// NeutralSemanticScore is used when neither a similarity nor a holistic
	// match percentage is supplied.
	NeutralSemanticScore = 65.0

	keywordExponent = 0.75
	skillExponent   = 0.7
	skillKeywords   = 40
	minStemRunes    = 5

	maxMatchedKeywords = 30
	maxMissingKeywords = 20
	maxMatchedSkills   = 20
	maxMissingSkills   = 15
)

type Weights struct {
	Keyword  float64 `json:"keyword"`
	Semantic float64 `json:"semantic"`
	Skill    float64 `json:"skill"`
	Format   float64 `json:"format"`
}

func DefaultWeights() Weights {
	return Weights{Keyword: 0.40, Semantic: 0.30, Skill: 0.20, Format: 0.10}
}

// Holistic is an optional externally produced critique of the résumé. Only
// its verdict and keyword-match percentage influence the breakdown.
type Holistic struct {
	KeywordMatchPct *float64 `json:"keyword_match_pct,omitempty"`
	Verdict         string   `json:"verdict,omitempty"`
	Strengths       []string `json:"strengths,omitempty"`
	Improvements    []string `json:"improvements,omitempty"`
}

type Input struct {
	Resume     string
	Job        string
	UserSkills []string
	// SemanticSimilarity is a cosine similarity in [0, 1], nil when unknown.
	SemanticSimilarity *float64
	Holistic           *Holistic
}

type Breakdown struct {
	TotalScore      float64  `json:"total_score"`
	KeywordScore    float64  `json:"keyword_score"`
	SemanticScore   float64  `json:"semantic_score"`
	SkillScore      float64  `json:"skill_score"`
	FormatScore     float64  `json:"format_score"`
	Grade           string   `json:"grade"`
	Verdict         string   `json:"verdict"`
	MatchedKeywords []string `json:"matched_keywords"`
	MissingKeywords []string `json:"missing_keywords"`
	MatchedSkills   []string `json:"matched_skills"`
	MissingSkills   []string `json:"missing_skills"`
	FormatIssues    []string `json:"format_issues"`
	Strengths       []string `json:"strengths"`
	Improvements    []string `json:"improvements"`
}

type Option func(*Scorer)

func WithWeights(w Weights) Option {
	return func(s *Scorer) { s.weights = w }
}

func WithExtractor(e *keywords.Extractor) Option {
	return func(s *Scorer) {
		if e != nil {
			s.keywords = e
		}
	}
}

func WithStemmer(st keywords.Stemmer) Option {
	return func(s *Scorer) {
		if st != nil {
			s.stemmer = st
		}
	}
}

// Scorer is stateless after construction and safe for concurrent use.
type Scorer struct {
	weights  Weights
	keywords *keywords.Extractor
	stemmer  keywords.Stemmer
}

func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		weights: DefaultWeights(),
		stemmer: keywords.SuffixStemmer{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.keywords == nil {
		s.keywords = keywords.Default()
	}
	return s
}

func (s *Scorer) Weights() Weights { return s.weights }

func (s *Scorer) Score(in Input) Breakdown {
	resumeLower := strings.ToLower(in.Resume)
	jobKeywords := s.keywords.Extract(in.Job)

	kwScore, kwMatched, kwMissing := s.keywordScore(resumeLower, jobKeywords)
	skScore, skMatched, skMissing := skillScore(resumeLower, jobKeywords, in.UserSkills)
	fmtScore, issues := formatScore(in.Resume)
	semScore := semanticScore(in.SemanticSimilarity, in.Holistic)

	total := kwScore*s.weights.Keyword +
		semScore*s.weights.Semantic +
		skScore*s.weights.Skill +
		fmtScore*s.weights.Format
	total = round1(math.Min(100, math.Max(0, total)))

	grade, verdict := Grade(total)
	b := Breakdown{
		TotalScore:      total,
		KeywordScore:    kwScore,
		SemanticScore:   semScore,
		SkillScore:      skScore,
		FormatScore:     fmtScore,
		Grade:           grade,
		Verdict:         verdict,
		MatchedKeywords: capList(kwMatched, maxMatchedKeywords),
		MissingKeywords: capList(kwMissing, maxMissingKeywords),
		MatchedSkills:   capList(skMatched, maxMatchedSkills),
		MissingSkills:   capList(skMissing, maxMissingSkills),
		FormatIssues:    issues,
		Strengths:       []string{},
		Improvements:    []string{},
	}
	if h := in.Holistic; h != nil {
		if h.Verdict != "" {
			b.Verdict = h.Verdict
		}
		b.Strengths = append(b.Strengths, h.Strengths...)
		b.Improvements = append(b.Improvements, h.Improvements...)
	}
	return b
}

func (s *Scorer) keywordScore(resumeLower string, kws []string) (float64, []string, []string) {
	matched := make([]string, 0, len(kws))
	missing := make([]string, 0)
	if len(kws) == 0 {
		return NoKeywordsScore, matched, missing
	}
	for _, kw := range kws {
		if strings.Contains(resumeLower, kw) {
			matched = append(matched, kw)
			continue
		}
		stem := s.stemmer.Stem(kw)
		if utf8.RuneCountInString(stem) >= minStemRunes && strings.Contains(resumeLower, stem) {
			matched = append(matched, kw)
			continue
		}
		missing = append(missing, kw)
	}
	ratio := float64(len(matched)) / float64(len(kws))
	return round1(math.Min(100, math.Pow(ratio, keywordExponent)*100)), matched, missing
}

// skillScore checks the first 40 job keywords, in extractor order, against
// the résumé and the candidate's declared skills.
func skillScore(resumeLower string, kws, userSkills []string) (float64, []string, []string) {
	if len(kws) > skillKeywords {
		kws = kws[:skillKeywords]
	}
	lowered := make([]string, len(userSkills))
	for i, sk := range userSkills {
		lowered[i] = strings.ToLower(sk)
	}
	candidate := resumeLower + " " + strings.Join(lowered, " ")

	matched := make([]string, 0, len(kws))
	missing := make([]string, 0)
	for _, kw := range kws {
		if strings.Contains(candidate, kw) {
			matched = append(matched, kw)
		} else {
			missing = append(missing, kw)
		}
	}
	total := len(kws)
	if total == 0 {
		total = 1
	}
	ratio := float64(len(matched)) / float64(total)
	return round1(math.Min(100, math.Pow(ratio, skillExponent)*100)), matched, missing
}

// semanticScore is always within [0, 100], whatever the caller supplied.
func semanticScore(similarity *float64, h *Holistic) float64 {
	var score float64
	switch {
	case similarity != nil:
		score = round1(*similarity * 100)
	case h != nil && h.KeywordMatchPct != nil:
		score = *h.KeywordMatchPct
	default:
		return NeutralSemanticScore
	}
	if math.IsNaN(score) {
		return NeutralSemanticScore
	}
	return math.Max(0, math.Min(100, score))
}

func capList(list []string, n int) []string {
	if len(list) > n {
		return list[:n]
	}
	return list
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
