// Package keywords derives a ranked keyword list from a job posting. Terms
// are ranked by frequency, and a fixed set of technology names is always
// kept so that a tool mentioned once is never dropped.
package keywords

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultMaxRanked is how many frequency-ranked terms are kept.
	DefaultMaxRanked = 80
	minTokenLength   = 3
)

// Extractor turns job text into a KeywordSet. It is immutable after
// construction and safe for concurrent use.
type Extractor struct {
	stop      map[string]struct{}
	tech      *regexp.Regexp
	maxRanked int
}

// NewExtractor compiles a lexicon into an Extractor.
func NewExtractor(lex Lexicon) (*Extractor, error) {
	tech, err := lex.techPattern()
	if err != nil {
		return nil, err
	}
	return &Extractor{
		stop:      lex.stopSet(),
		tech:      tech,
		maxRanked: DefaultMaxRanked,
	}, nil
}

// Default returns an Extractor over the built-in lexicon.
func Default() *Extractor {
	e, err := NewExtractor(DefaultLexicon())
	if err != nil {
		panic(fmt.Sprintf("keywords: %v", err))
	}
	return e
}

// IsStopWord reports whether w is in the extractor's stop-word set.
func (e *Extractor) IsStopWord(w string) bool {
	_, ok := e.stop[w]
	return ok
}

// Extract returns the deduplicated keyword list for text: technology-term
// matches first in first-seen order, then up to 80 unigrams and bigrams in
// descending frequency.
func (e *Extractor) Extract(text string) []string {
	lower := strings.ToLower(text)

	filtered := make([]string, 0)
	for _, tok := range Tokenize(lower) {
		if utf8.RuneCountInString(tok) < minTokenLength || e.IsStopWord(tok) {
			continue
		}
		filtered = append(filtered, tok)
	}

	terms := make([]string, 0, 2*len(filtered))
	terms = append(terms, filtered...)
	for i := 0; i+1 < len(filtered); i++ {
		terms = append(terms, filtered[i]+" "+filtered[i+1])
	}
	ranked := rankByFrequency(terms, e.maxRanked)

	var tech []string
	if e.tech != nil {
		tech = e.tech.FindAllString(lower, -1)
	}

	out := make([]string, 0, len(tech)+len(ranked))
	seen := make(map[string]struct{}, cap(out))
	for _, group := range [][]string{tech, ranked} {
		for _, kw := range group {
			if _, dup := seen[kw]; dup {
				continue
			}
			seen[kw] = struct{}{}
			out = append(out, kw)
		}
	}
	return out
}

// Tokenize splits lowercase text into runs of letters, digits and the
// symbols + # . - so that terms such as "c++", "c#" and "node.js" survive.
// A token starts at its first letter; trailing dots and hyphens are trimmed.
func Tokenize(text string) []string {
	tokens := make([]string, 0, len(text)/6)
	var word strings.Builder
	flush := func() {
		w := strings.TrimLeftFunc(word.String(), func(r rune) bool { return !unicode.IsLetter(r) })
		w = strings.TrimRight(w, ".-")
		word.Reset()
		if w != "" {
			tokens = append(tokens, w)
		}
	}
	for _, r := range text {
		if isTokenRune(r) {
			word.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return tokens
}

func isTokenRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case '+', '#', '.', '-':
		return true
	}
	return false
}

// rankByFrequency counts terms and returns the limit most frequent, ties
// broken by first occurrence.
func rankByFrequency(terms []string, limit int) []string {
	counts := make(map[string]int, len(terms))
	order := make([]string, 0, len(terms))
	for _, t := range terms {
		if counts[t] == 0 {
			order = append(order, t)
		}
		counts[t]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if limit > 0 && len(order) > limit {
		order = order[:limit]
	}
	return order
}
