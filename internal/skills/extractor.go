// Package skills maps free text onto a closed skill taxonomy and merges the
// per-source results into a ranked inventory.
package skills

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Source tags attached to extracted skills.
const (
	SourceResume   = "resume"
	SourceLinkedIn = "linkedin"
	SourceGitHub   = "github"
	SourceJob      = "jd"
)

// Skill is one taxonomy hit in one text.
type Skill struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Source   string `json:"source"`
}

type phrase struct {
	text     string
	category string
	re       *regexp.Regexp
}

type special struct {
	re       *regexp.Regexp
	name     string
	category string
}

// Extractor matches text against a compiled Taxonomy. It is immutable after
// construction and safe for concurrent use.
type Extractor struct {
	phrases   []phrase
	special   []special
	canonical map[string]string
}

// NewExtractor compiles tax. A phrase listed under several categories keeps
// the position of its first listing and the category of its last.
func NewExtractor(tax Taxonomy) (*Extractor, error) {
	if err := tax.Validate(); err != nil {
		return nil, err
	}
	e := &Extractor{canonical: make(map[string]string, len(tax.Canonical))}
	for k, v := range tax.Canonical {
		e.canonical[strings.ToLower(k)] = v
	}

	pos := make(map[string]int)
	for _, c := range tax.Categories {
		for _, s := range c.Skills {
			s = strings.ToLower(strings.TrimSpace(s))
			if s == "" {
				continue
			}
			if i, ok := pos[s]; ok {
				e.phrases[i].category = c.Name
				continue
			}
			re, err := regexp.Compile(`(?:^|[^\w])` + regexp.QuoteMeta(s) + `(?:[^\w]|$)`)
			if err != nil {
				return nil, fmt.Errorf("compiling skill %q: %w", s, err)
			}
			pos[s] = len(e.phrases)
			e.phrases = append(e.phrases, phrase{text: s, category: c.Name, re: re})
		}
	}

	for _, p := range tax.Special {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compiling special pattern %q: %w", p.Pattern, err)
		}
		e.special = append(e.special, special{re: re, name: p.Name, category: p.Category})
	}
	return e, nil
}

// Default returns an Extractor over the built-in taxonomy.
func Default() *Extractor {
	e, err := NewExtractor(DefaultTaxonomy())
	if err != nil {
		panic(fmt.Sprintf("skills: %v", err))
	}
	return e
}

// Extract returns the taxonomy skills present in text, tagged with source.
// Each canonical name appears at most once.
func (e *Extractor) Extract(text, source string) []Skill {
	lower := strings.ToLower(text)
	found := make([]Skill, 0)
	seen := make(map[string]struct{})

	add := func(name, category string) {
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		found = append(found, Skill{Name: name, Category: category, Source: source})
	}

	for _, p := range e.phrases {
		if p.re.MatchString(lower) {
			add(e.CanonicalName(p.text), p.category)
		}
	}
	for _, s := range e.special {
		if s.re.MatchString(lower) {
			add(s.name, s.category)
		}
	}
	return found
}

// Gap returns the skills the job text asks for that are absent from
// userSkills, compared case-insensitively, in taxonomy order.
func (e *Extractor) Gap(userSkills []string, jobText string) []string {
	have := make(map[string]struct{}, len(userSkills))
	for _, s := range userSkills {
		have[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	gap := make([]string, 0)
	for _, s := range e.Extract(jobText, SourceJob) {
		if _, ok := have[strings.ToLower(s.Name)]; !ok {
			gap = append(gap, s.Name)
		}
	}
	return gap
}

// CanonicalName returns the display form of a lowercase skill phrase.
func (e *Extractor) CanonicalName(skill string) string {
	if name, ok := e.canonical[strings.ToLower(skill)]; ok {
		return name
	}
	return titleCase(skill)
}

// titleCase upper-cases the first letter of every letter run and
// lower-cases the rest.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		isLetter := unicode.IsLetter(r)
		switch {
		case isLetter && !prevLetter:
			b.WriteRune(unicode.ToUpper(r))
		case isLetter:
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
		prevLetter = isLetter
	}
	return b.String()
}
