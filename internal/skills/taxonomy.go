package skills

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

//go:embed taxonomy.yaml
var defaultTaxonomyYAML []byte

// Category is one named group of lowercase skill phrases.
type Category struct {
	Name   string   `yaml:"name" toml:"name"`
	Skills []string `yaml:"skills" toml:"skills"`
}

// Pattern is a hand-written rule for a skill that plain phrase matching gets
// wrong, usually a short acronym or a term with spelling variants.
type Pattern struct {
	Pattern  string `yaml:"pattern" toml:"pattern"`
	Name     string `yaml:"name" toml:"name"`
	Category string `yaml:"category" toml:"category"`
}

// Taxonomy is the closed vocabulary the Extractor matches against.
type Taxonomy struct {
	Categories []Category        `yaml:"categories" toml:"categories"`
	Special    []Pattern         `yaml:"special" toml:"special"`
	Canonical  map[string]string `yaml:"canonical" toml:"canonical"`
}

// DefaultTaxonomy returns the built-in taxonomy.
func DefaultTaxonomy() Taxonomy {
	tax, err := ParseTaxonomy(defaultTaxonomyYAML, "yaml")
	if err != nil {
		panic(fmt.Sprintf("skills: embedded taxonomy is invalid: %v", err))
	}
	return tax
}

// LoadTaxonomy reads a taxonomy file. Files ending in .toml are decoded as
// TOML, everything else as YAML.
func LoadTaxonomy(path string) (Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Taxonomy{}, fmt.Errorf("reading taxonomy %s: %w", path, err)
	}
	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		format = "toml"
	}
	tax, err := ParseTaxonomy(data, format)
	if err != nil {
		return Taxonomy{}, fmt.Errorf("parsing taxonomy %s: %w", path, err)
	}
	return tax, nil
}

// ParseTaxonomy decodes taxonomy data in the given format ("yaml" or "toml")
// and validates it.
func ParseTaxonomy(data []byte, format string) (Taxonomy, error) {
	var tax Taxonomy
	switch format {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &tax); err != nil {
			return Taxonomy{}, err
		}
	case "toml":
		if _, err := toml.Decode(string(data), &tax); err != nil {
			return Taxonomy{}, err
		}
	default:
		return Taxonomy{}, fmt.Errorf("unsupported taxonomy format %q", format)
	}
	if err := tax.Validate(); err != nil {
		return Taxonomy{}, err
	}
	return tax, nil
}

// Validate checks that every category is named and every special pattern
// compiles.
func (t Taxonomy) Validate() error {
	if len(t.Categories) == 0 {
		return fmt.Errorf("taxonomy has no categories")
	}
	for i, c := range t.Categories {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("category %d has no name", i)
		}
	}
	for _, p := range t.Special {
		if p.Name == "" {
			return fmt.Errorf("special pattern %q has no name", p.Pattern)
		}
		if _, err := regexp.Compile(p.Pattern); err != nil {
			return fmt.Errorf("special pattern %q: %w", p.Pattern, err)
		}
	}
	return nil
}
