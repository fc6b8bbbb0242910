package keywords

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var defaultLexiconYAML []byte

// Lexicon is the language data the Extractor runs on. It is loaded from YAML
// so it can be versioned and tested apart from the code.
type Lexicon struct {
	StopWords []string `yaml:"stopWords"`
	TechTerms []string `yaml:"techTerms"`
}

// DefaultLexicon returns the built-in lexicon.
func DefaultLexicon() Lexicon {
	lex, err := ParseLexicon(defaultLexiconYAML)
	if err != nil {
		panic(fmt.Sprintf("keywords: embedded lexicon is invalid: %v", err))
	}
	return lex
}

// LoadLexicon reads a lexicon YAML file.
func LoadLexicon(path string) (Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Lexicon{}, fmt.Errorf("reading lexicon %s: %w", path, err)
	}
	lex, err := ParseLexicon(data)
	if err != nil {
		return Lexicon{}, fmt.Errorf("parsing lexicon %s: %w", path, err)
	}
	return lex, nil
}

// ParseLexicon decodes lexicon YAML and checks that the technology terms
// compile.
func ParseLexicon(data []byte) (Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return Lexicon{}, err
	}
	if _, err := lex.techPattern(); err != nil {
		return Lexicon{}, err
	}
	return lex, nil
}

func (l Lexicon) stopSet() map[string]struct{} {
	set := make(map[string]struct{}, len(l.StopWords))
	for _, w := range l.StopWords {
		set[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}
	return set
}

// techPattern joins the technology terms into one word-bounded alternation.
// A nil pattern means the lexicon has no technology terms.
func (l Lexicon) techPattern() (*regexp.Regexp, error) {
	if len(l.TechTerms) == 0 {
		return nil, nil
	}
	re, err := regexp.Compile(`\b(` + strings.Join(l.TechTerms, "|") + `)\b`)
	if err != nil {
		return nil, fmt.Errorf("compiling technology terms: %w", err)
	}
	return re, nil
}
