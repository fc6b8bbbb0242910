package matching

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/ats"
	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/keywords"
	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/skills"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/config"
)

// Analyzers bundles the pure text components built from the scoring config.
type Analyzers struct {
	Keywords *keywords.Extractor
	Skills   *skills.Extractor
	Scorer   *ats.Scorer
}

// Source hands out the analyzers to use for one request. A fixed
// *Analyzers and a *Reloader both satisfy it.
type Source interface {
	Current() *Analyzers
}

func (a *Analyzers) Current() *Analyzers { return a }

// NewAnalyzers loads the lexicon and taxonomy named in cfg, falling back to
// the embedded defaults when a path is empty.
func NewAnalyzers(cfg config.ScoringConfig) (*Analyzers, error) {
	kw := keywords.Default()
	if cfg.LexiconPath != "" {
		lex, err := keywords.LoadLexicon(cfg.LexiconPath)
		if err != nil {
			return nil, err
		}
		if kw, err = keywords.NewExtractor(lex); err != nil {
			return nil, fmt.Errorf("building keyword extractor: %w", err)
		}
	}

	sk := skills.Default()
	if cfg.TaxonomyPath != "" {
		tax, err := skills.LoadTaxonomy(cfg.TaxonomyPath)
		if err != nil {
			return nil, err
		}
		if sk, err = skills.NewExtractor(tax); err != nil {
			return nil, fmt.Errorf("building skill extractor: %w", err)
		}
	}

	stemmer, err := keywords.StemmerByName(cfg.Stemmer)
	if err != nil {
		return nil, err
	}

	weights := ats.Weights{
		Keyword:  cfg.KeywordWeight,
		Semantic: cfg.SemanticWeight,
		Skill:    cfg.SkillWeight,
		Format:   cfg.FormatWeight,
	}
	if weights == (ats.Weights{}) {
		weights = ats.DefaultWeights()
	}
	return &Analyzers{
		Keywords: kw,
		Skills:   sk,
		Scorer:   ats.NewScorer(ats.WithWeights(weights), ats.WithExtractor(kw), ats.WithStemmer(stemmer)),
	}, nil
}
