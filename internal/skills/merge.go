package skills

import (
	"sort"
	"strings"
)

const otherCategory = "Other"

// Record is a merged skill across sources. Frequency counts the input lists
// the skill appeared in, not raw mentions.
type Record struct {
	Name      string   `json:"name"`
	Category  string   `json:"category"`
	Frequency int      `json:"frequency"`
	Sources   []string `json:"sources"`
	Rank      int      `json:"rank"`
}

// Merge combines skill lists keyed by case-insensitive name. The result does
// not depend on the order of lists or of skills within them: sources are
// sorted, ties in frequency are broken by name, and conflicting spellings or
// categories resolve to the lexicographically smallest value.
func Merge(lists ...[]Skill) []Record {
	merged := make(map[string]*Record)
	sources := make(map[string]map[string]struct{})

	for _, list := range lists {
		counted := make(map[string]struct{}, len(list))
		for _, s := range list {
			key := strings.ToLower(strings.TrimSpace(s.Name))
			if key == "" {
				continue
			}
			rec, ok := merged[key]
			if !ok {
				rec = &Record{Name: s.Name, Category: categoryOrOther(s.Category)}
				merged[key] = rec
				sources[key] = make(map[string]struct{})
			}
			if s.Name < rec.Name {
				rec.Name = s.Name
			}
			rec.Category = pickCategory(rec.Category, categoryOrOther(s.Category))
			if _, dup := counted[key]; !dup {
				counted[key] = struct{}{}
				rec.Frequency++
			}
			src := s.Source
			if src == "" {
				src = "unknown"
			}
			sources[key][src] = struct{}{}
		}
	}

	out := make([]Record, 0, len(merged))
	for key, rec := range merged {
		for src := range sources[key] {
			rec.Sources = append(rec.Sources, src)
		}
		sort.Strings(rec.Sources)
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// ByCategory groups records by category, keeping rank order within each.
func ByCategory(records []Record) map[string][]Record {
	groups := make(map[string][]Record)
	for _, r := range records {
		groups[r.Category] = append(groups[r.Category], r)
	}
	return groups
}

// Names returns the record names in rank order.
func Names(records []Record) []string {
	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r.Name
	}
	return names
}

func categoryOrOther(c string) string {
	if strings.TrimSpace(c) == "" {
		return otherCategory
	}
	return c
}

func pickCategory(a, b string) string {
	switch {
	case a == otherCategory:
		return b
	case b == otherCategory:
		return a
	case b < a:
		return b
	default:
		return a
	}
}
