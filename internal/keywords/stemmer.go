package keywords

import (
	"fmt"
	"strings"

	porterstemmer "github.com/blevesearch/go-porterstemmer"
)

// Stemmer reduces a keyword to a stem used to credit inflected forms in a
// résumé. Implementations must be pure.
type Stemmer interface {
	Stem(word string) string
}

// SuffixStemmer strips a trailing "ing", then "ed", then "s". It is a
// heuristic, not a linguistic stemmer.
type SuffixStemmer struct{}

func (SuffixStemmer) Stem(word string) string {
	for _, suffix := range []string{"ing", "ed", "s"} {
		word = strings.TrimSuffix(word, suffix)
	}
	return word
}

// PorterStemmer applies the Porter algorithm to every word of a phrase.
type PorterStemmer struct{}

func (PorterStemmer) Stem(word string) string {
	fields := strings.Fields(word)
	for i, f := range fields {
		fields[i] = porterstemmer.StemString(f)
	}
	return strings.Join(fields, " ")
}

// StemmerByName resolves the configured stemming policy.
func StemmerByName(name string) (Stemmer, error) {
	switch name {
	case "", "suffix":
		return SuffixStemmer{}, nil
	case "porter":
		return PorterStemmer{}, nil
	default:
		return nil, fmt.Errorf("unknown stemmer %q", name)
	}
}
