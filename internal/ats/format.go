package ats

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

type formatPenalty struct {
	pattern *regexp.Regexp
	issue   string
	points  float64
}

var formatPenalties = []formatPenalty{
	{regexp.MustCompile(`(?i)\|.*\|.*\|`), "Tables detected – ATS may misparse", 25},
	{regexp.MustCompile(`[\x{2600}-\x{26FF}\x{2700}-\x{27BF}]`), "Emoji characters – ATS unfriendly", 15},
	{regexp.MustCompile(`(?i)(photo|image|picture|graphic)`), "Graphic/image references – remove", 10},
	{regexp.MustCompile(`(?i)<[a-z][a-z0-9]*\b[^>]*>`), "HTML tags detected", 20},
}

// RequiredSections are the headings every résumé is expected to carry.
var RequiredSections = []string{"education", "experience", "skills", "projects", "summary"}

var sectionPatterns = func() map[string]*regexp.Regexp {
	m := make(map[string]*regexp.Regexp, len(RequiredSections))
	for _, s := range RequiredSections {
		m[s] = regexp.MustCompile(`\b` + s + `\b`)
	}
	return m
}()

const (
	longLineRunes      = 180
	maxLongLines       = 5
	multiColumnPenalty = 15
	sectionPenalty     = 5
	multiColumnIssue   = "Multi-column layout detected – use single-column for ATS"
)

// formatScore starts at 100 and subtracts a fixed penalty for each layout
// problem found in the résumé. It never goes below 0.
func formatScore(resume string) (float64, []string) {
	score := 100.0
	issues := make([]string, 0)

	for _, p := range formatPenalties {
		if p.pattern.MatchString(resume) {
			issues = append(issues, p.issue)
			score -= p.points
		}
	}

	longLines := 0
	for _, line := range strings.Split(resume, "\n") {
		if utf8.RuneCountInString(line) > longLineRunes {
			longLines++
		}
	}
	if longLines > maxLongLines {
		issues = append(issues, multiColumnIssue)
		score -= multiColumnPenalty
	}

	lower := strings.ToLower(resume)
	var missing []string
	for _, s := range RequiredSections {
		if !sectionPatterns[s].MatchString(lower) {
			missing = append(missing, s)
		}
	}
	if len(missing) > 0 {
		score -= float64(len(missing)) * sectionPenalty
		issues = append(issues, fmt.Sprintf("Missing sections: %s", strings.Join(missing, ", ")))
	}

	if score < 0 {
		score = 0
	}
	return round1(score), issues
}
