package skills

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func names(skills []Skill) []string {
	out := make([]string, len(skills))
	for i, s := range skills {
		out[i] = s.Name
	}
	return out
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"canonical casing", "PyTorch, ci/cd, machine learning", []string{"Machine Learning", "PyTorch", "CI/CD"}},
		{"short acronyms", "Experience with ML and R", []string{"R", "Machine Learning"}},
		{"symbol terms", "Systems in C++ and C#.", []string{"C++", "C#"}},
		{"no partial words", "google cloud", []string{"Cloud", "Google Cloud"}},
		{"nothing", "", []string{}},
	}
	e := Default()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := names(e.Extract(tt.text, SourceResume))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Extract(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtractTagsSource(t *testing.T) {
	for _, s := range Default().Extract("python and docker", SourceGitHub) {
		if s.Source != SourceGitHub {
			t.Errorf("skill %q has source %q", s.Name, s.Source)
		}
	}
}

func TestExtractDuplicateListingTakesLastCategory(t *testing.T) {
	got := Default().Extract("bash scripting", SourceResume)
	if len(got) != 1 || got[0].Name != "Bash" || got[0].Category != "DevOps" {
		t.Errorf("Extract() = %+v, want Bash in DevOps", got)
	}
}

func TestScikitLearnMixedCase(t *testing.T) {
	e := Default()
	resume := e.Extract("Built models with scikit-learn and Scikit-Learn pipelines", SourceResume)
	count := 0
	for _, s := range resume {
		if s.Name == "scikit-learn" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("scikit-learn extracted %d times, want 1: %+v", count, resume)
	}

	single := Merge(resume)
	if r := find(single, "scikit-learn"); r == nil || r.Frequency != 1 {
		t.Errorf("one list: record = %+v, want frequency 1", r)
	}

	profile := e.Extract("scikit-learn", SourceLinkedIn)
	both := Merge(resume, profile)
	r := find(both, "scikit-learn")
	if r == nil || r.Frequency != 2 {
		t.Fatalf("two lists: record = %+v, want frequency 2", r)
	}
	if want := []string{SourceLinkedIn, SourceResume}; !reflect.DeepEqual(r.Sources, want) {
		t.Errorf("sources = %q, want %q", r.Sources, want)
	}
}

func find(records []Record, name string) *Record {
	for i := range records {
		if records[i].Name == name {
			return &records[i]
		}
	}
	return nil
}

func TestMergeCommutative(t *testing.T) {
	a := []Skill{
		{Name: "Python", Category: "Programming", Source: SourceResume},
		{Name: "SQL", Category: "Data Engineering", Source: SourceResume},
		{Name: "Docker", Category: "DevOps", Source: SourceResume},
	}
	b := []Skill{
		{Name: "python", Category: "Programming", Source: SourceLinkedIn},
		{Name: "Kafka", Category: "", Source: SourceLinkedIn},
	}
	c := []Skill{
		{Name: "Kafka", Category: "Data Engineering", Source: SourceGitHub},
		{Name: "Docker", Category: "DevOps", Source: SourceGitHub},
	}
	ab := Merge(a, b, c)
	ba := Merge(c, b, a)
	if !reflect.DeepEqual(ab, ba) {
		t.Errorf("Merge is order dependent:\n%+v\n%+v", ab, ba)
	}
	if ab[0].Frequency != 2 {
		t.Errorf("top frequency = %d, want 2", ab[0].Frequency)
	}
	if k := find(ab, "Kafka"); k == nil || k.Category != "Data Engineering" {
		t.Errorf("Kafka record = %+v, want known category over empty", k)
	}
}

func TestMergeRanking(t *testing.T) {
	got := Merge(
		[]Skill{{Name: "SQL", Category: "Data Engineering", Source: SourceResume}, {Name: "Python", Category: "Programming", Source: SourceResume}},
		[]Skill{{Name: "python", Category: "Programming", Source: SourceLinkedIn}},
	)
	want := []Record{
		{Name: "Python", Category: "Programming", Frequency: 2, Sources: []string{SourceLinkedIn, SourceResume}, Rank: 1},
		{Name: "SQL", Category: "Data Engineering", Frequency: 1, Sources: []string{SourceResume}, Rank: 2},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Merge() = %+v, want %+v", got, want)
	}
}

func TestMergeCountsListsNotMentions(t *testing.T) {
	got := Merge([]Skill{
		{Name: "Docker", Category: "DevOps", Source: SourceResume},
		{Name: "docker", Category: "DevOps", Source: SourceResume},
	})
	if len(got) != 1 || got[0].Frequency != 1 {
		t.Errorf("Merge() = %+v, want one record with frequency 1", got)
	}
}

func TestMergeEmpty(t *testing.T) {
	if got := Merge(); len(got) != 0 {
		t.Errorf("Merge() = %+v, want empty", got)
	}
}

func TestByCategory(t *testing.T) {
	records := Merge([]Skill{
		{Name: "Python", Category: "Programming", Source: SourceResume},
		{Name: "Java", Category: "Programming", Source: SourceResume},
		{Name: "Docker", Category: "DevOps", Source: SourceResume},
	})
	groups := ByCategory(records)
	if got := Names(groups["Programming"]); !reflect.DeepEqual(got, []string{"Java", "Python"}) {
		t.Errorf("Programming = %q", got)
	}
	if len(groups["DevOps"]) != 1 {
		t.Errorf("DevOps = %+v", groups["DevOps"])
	}
}

func TestGap(t *testing.T) {
	got := Default().Gap([]string{"python", "Docker"}, "Python, Docker and Kubernetes required")
	if want := []string{"Kubernetes"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Gap() = %q, want %q", got, want)
	}
}

func TestTitleCase(t *testing.T) {
	tests := map[string]string{
		"machine learning":      "Machine Learning",
		"a/b testing":           "A/B Testing",
		"sentence-transformers": "Sentence-Transformers",
		"spring boot":           "Spring Boot",
	}
	for in, want := range tests {
		if got := titleCase(in); got != want {
			t.Errorf("titleCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadTaxonomyTOML(t *testing.T) {
	data := `
[[categories]]
name = "Cloud"
skills = ["pulumi", "aws"]

[[special]]
pattern = '\bk8s\b'
name = "Kubernetes"
category = "DevOps"

[canonical]
aws = "AWS"
`
	path := filepath.Join(t.TempDir(), "taxonomy.toml")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	tax, err := LoadTaxonomy(path)
	if err != nil {
		t.Fatalf("LoadTaxonomy() error: %v", err)
	}
	e, err := NewExtractor(tax)
	if err != nil {
		t.Fatal(err)
	}
	got := names(e.Extract("Pulumi on AWS, k8s", SourceResume))
	if want := []string{"Pulumi", "AWS", "Kubernetes"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Extract() = %q, want %q", got, want)
	}
}

func TestParseTaxonomyErrors(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format string
	}{
		{"no categories", "special: []\n", "yaml"},
		{"bad pattern", "categories: [{name: X, skills: [x]}]\nspecial: [{pattern: '(', name: X}]\n", "yaml"},
		{"unnamed category", "categories: [{skills: [x]}]\n", "yaml"},
		{"unknown format", "", "json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseTaxonomy([]byte(tt.data), tt.format); err == nil {
				t.Error("expected error")
			}
		})
	}
}
