package keywords

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

func TestExtractRanksByFrequency(t *testing.T) {
	got := Default().Extract("Python SQL AWS Python")
	for _, kw := range []string{"python", "sql", "aws"} {
		if indexOf(got, kw) < 0 {
			t.Errorf("Extract() = %q, missing %q", got, kw)
		}
	}
	if got[0] != "python" {
		t.Errorf("first keyword = %q, want python", got[0])
	}
}

func TestExtractIdempotent(t *testing.T) {
	job := `We are hiring a Data Engineer to build ETL pipelines on AWS with Airflow,
dbt and Snowflake. Experience with Kafka streaming, Python and SQL is required.
Nice to have: Kubernetes, Terraform, data modelling, data quality tooling.`
	e := Default()
	first := e.Extract(job)
	second := e.Extract(job)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Extract is not idempotent:\n%q\n%q", first, second)
	}
}

func TestExtractDropsStopWordsAndShortTokens(t *testing.T) {
	got := Default().Extract("The team and the role: go to it, we use strong experience")
	for _, kw := range got {
		for _, w := range strings.Fields(kw) {
			if Default().IsStopWord(w) {
				t.Errorf("keyword %q contains stop word %q", kw, w)
			}
		}
		if len([]rune(kw)) < 3 {
			t.Errorf("keyword %q is shorter than 3 runes", kw)
		}
	}
}

func TestExtractBigrams(t *testing.T) {
	got := Default().Extract("distributed systems design; distributed systems at scale")
	if indexOf(got, "distributed systems") < 0 {
		t.Errorf("Extract() = %q, missing bigram", got)
	}
	// "at" is a stop word, so the bigram spans it in the filtered stream.
	if indexOf(got, "systems scale") < 0 {
		t.Errorf("Extract() = %q, missing bigram over removed stop word", got)
	}
}

func TestExtractKeepsCompoundTokens(t *testing.T) {
	got := Default().Extract("Backend in C++ and Node.js. Some C# too.")
	for _, kw := range []string{"c++", "node.js"} {
		if indexOf(got, kw) < 0 {
			t.Errorf("Extract() = %q, missing %q", got, kw)
		}
	}
	if indexOf(got, "node.js.") >= 0 {
		t.Error("sentence punctuation should be trimmed from tokens")
	}
}

func TestExtractForcesTechTerms(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 100; i++ {
		b.WriteString("stakeholder communication roadmap ownership delivery ")
		b.WriteString(strings.Repeat("x", i%7+3))
		b.WriteString(" ")
	}
	b.WriteString("tableau")
	got := Default().Extract(b.String())
	if got[0] != "tableau" {
		t.Errorf("rare technology term should lead the list, got %q", got[:3])
	}
}

func TestExtractTechTermsFirstSeenOrder(t *testing.T) {
	got := Default().Extract("docker docker docker kafka python python")
	want := []string{"docker", "kafka", "python"}
	if !reflect.DeepEqual(got[:3], want) {
		t.Errorf("tech prefix = %q, want %q", got[:3], want)
	}
	seen := map[string]bool{}
	for _, kw := range got {
		if seen[kw] {
			t.Errorf("duplicate keyword %q", kw)
		}
		seen[kw] = true
	}
}

func TestExtractCapsRankedTerms(t *testing.T) {
	var words []string
	for i := 0; i < 200; i++ {
		words = append(words, "term"+strings.Repeat("q", i%50)+string(rune('a'+i%26)))
	}
	got := Default().Extract(strings.Join(words, " "))
	if len(got) > DefaultMaxRanked {
		t.Errorf("got %d keywords, want at most %d", len(got), DefaultMaxRanked)
	}
}

func TestExtractEmpty(t *testing.T) {
	for _, in := range []string{"", "   ", "a an the of", "!!! ???"} {
		if got := Default().Extract(in); len(got) != 0 {
			t.Errorf("Extract(%q) = %q, want empty", in, got)
		}
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("scikit-learn, 3d-modelling. c++/node.js -flag 2nd")
	want := []string{"scikit-learn", "d-modelling", "c++", "node.js", "flag", "nd"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize() = %q, want %q", got, want)
	}
}

func TestCustomLexicon(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	data := "stopWords: [golang]\ntechTerms: [\"terraform\"]\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	lex, err := LoadLexicon(path)
	if err != nil {
		t.Fatalf("LoadLexicon() error: %v", err)
	}
	e, err := NewExtractor(lex)
	if err != nil {
		t.Fatal(err)
	}
	got := e.Extract("golang services provisioned with terraform")
	if got[0] != "terraform" {
		t.Errorf("Extract() = %q, want terraform first", got)
	}
	if indexOf(got, "golang") >= 0 {
		t.Errorf("custom stop word leaked: %q", got)
	}
}

func TestParseLexiconRejectsBadPattern(t *testing.T) {
	if _, err := ParseLexicon([]byte("techTerms: [\"(unclosed\"]\n")); err == nil {
		t.Error("expected compile error for invalid technology term")
	}
}

func TestStemmers(t *testing.T) {
	tests := []struct {
		stemmer Stemmer
		in      string
		want    string
	}{
		{SuffixStemmer{}, "deploying", "deploy"},
		{SuffixStemmer{}, "containerized", "containeriz"},
		{SuffixStemmer{}, "pipelines", "pipeline"},
		{SuffixStemmer{}, "python", "python"},
		{PorterStemmer{}, "running pipelines", "run pipelin"},
	}
	for _, tt := range tests {
		if got := tt.stemmer.Stem(tt.in); got != tt.want {
			t.Errorf("%T.Stem(%q) = %q, want %q", tt.stemmer, tt.in, got, tt.want)
		}
	}
}

func TestStemmerByName(t *testing.T) {
	if _, err := StemmerByName("porter"); err != nil {
		t.Error(err)
	}
	if _, err := StemmerByName("lancaster"); err == nil {
		t.Error("expected error for unknown stemmer")
	}
}
