// Package consistency implements the post-batch terminology enforcement
// pass (spec.md §4.8 Stage B): for every term whose key appears in a line's
// source, make sure the line's translation carries the expected target,
// auto-fixing via regex substitution when the source term's original form
// leaked into the output untranslated.
package consistency

import (
	"regexp"
	"strings"

	"github.com/doctranslate/doctranslate/pkg/models"
)

// Result is the outcome of checking one line against the term table.
type Result struct {
	GlobalIndex int
	Original    string
	Fixed       string
	Changed     bool
	// Remaining is true when an expected term translation is absent and no
	// auto-fix was possible (reported, not mutated).
	Remaining bool
}

// Line is one translated line to check, paired with its source.
type Line struct {
	GlobalIndex int
	SourceText  string
	Translated  string
}

// Enforce checks every line against terms, returning one Result per line in
// the same order. terms maps entry key -> chosen target translation.
func Enforce(lines []Line, terms []models.Term) []Result {
	out := make([]Result, len(lines))
	for i, l := range lines {
		out[i] = enforceLine(l, terms)
	}
	return out
}

func enforceLine(l Line, terms []models.Term) Result {
	current := l.Translated
	changed := false
	remaining := false

	sourceLower := strings.ToLower(l.SourceText)

	for _, term := range terms {
		key := strings.TrimSpace(term.EntryKey)
		if key == "" {
			continue
		}
		if !strings.Contains(sourceLower, strings.ToLower(key)) {
			continue
		}

		target := chosenTranslation(term)
		if target == "" {
			continue
		}

		if containsNormalized(current, target) {
			continue
		}

		pattern := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(key))
		if pattern.MatchString(current) {
			current = pattern.ReplaceAllString(current, target)
			changed = true
			continue
		}

		remaining = true
	}

	return Result{
		GlobalIndex: l.GlobalIndex,
		Original:    l.Translated,
		Fixed:       current,
		Changed:     changed,
		Remaining:   remaining,
	}
}

// chosenTranslation picks the term's best-known target: the human-confirmed
// entry value, or else its first candidate.
func chosenTranslation(term models.Term) string {
	if term.EntryVal != "" && term.HumanConfirmed {
		return term.EntryVal
	}
	if len(term.Candidates) > 0 {
		return term.Candidates[0].Text
	}
	return term.EntryVal
}

// containsNormalized reports whether text contains target after collapsing
// whitespace runs and normalizing hyphens, per spec.md §4.8's comparison
// rule.
func containsNormalized(text, target string) bool {
	return strings.Contains(normalize(text), normalize(target))
}

var whitespaceRun = regexp.MustCompile(`\s+`)

func normalize(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "-", " ")
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
