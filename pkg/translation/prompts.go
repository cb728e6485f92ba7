package translation

import (
	"fmt"
	"strings"

	"github.com/doctranslate/doctranslate/pkg/models"
)

// filterTerms keeps only the terms whose key case-insensitively appears
// somewhere in combined (spec.md §4.8 Step 1: "dynamically-filtered
// terminology table").
func filterTerms(terms []models.Term, combined string) []models.Term {
	lower := strings.ToLower(combined)
	var out []models.Term
	for _, t := range terms {
		key := strings.TrimSpace(t.EntryKey)
		if key == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(key)) {
			out = append(out, t)
		}
	}
	return out
}

func termTarget(t models.Term) string {
	if len(t.Candidates) > 0 {
		return t.Candidates[0].Text
	}
	return t.EntryVal
}

func renderTermTable(terms []models.Term) string {
	if len(terms) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Terminology table (use these translations exactly):\n")
	for _, t := range terms {
		fmt.Fprintf(&b, "- %s -> %s\n", t.EntryKey, termTarget(t))
	}
	return b.String()
}

// renderInverseTermTable builds the translation->source table used to
// prompt back-translation (spec.md §4.8 Step 2).
func renderInverseTermTable(terms []models.Term) string {
	if len(terms) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Back-translation must map these target terms to the exact source key:\n")
	for _, t := range terms {
		fmt.Fprintf(&b, "- %s -> %s\n", termTarget(t), t.EntryKey)
	}
	return b.String()
}

// referenceCueWords trigger the bibliography instruction.
var referenceCueWords = []string{"et al.", "doi:"}

// looksLikeReference implements spec.md §4.8 Step 1's reference heuristic.
func looksLikeReference(text string) bool {
	lower := strings.ToLower(text)
	for _, cue := range referenceCueWords {
		if strings.Contains(lower, cue) {
			return true
		}
	}
	if isJournalMarker(text) {
		return true
	}
	return len(text) > 500 && strings.Count(text, ",") > 5
}

func isJournalMarker(text string) bool {
	for _, marker := range []string{"vol.", "pp.", "Journal of", "Proceedings of"} {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// buildTranslateSystemPrompt builds the Step 1 system prompt per strategy
// tag, including the filtered terminology table, style hints, and the
// reference-bibliography instruction when warranted.
func buildTranslateSystemPrompt(strategy models.StrategyTag, terms []models.Term, style StyleContext, atoms []models.Atom, n int) string {
	var b strings.Builder

	switch strategy {
	case models.StrategyLiteral:
		b.WriteString("Translate literally and precisely, preserving technical terminology and formal register. Do not paraphrase.\n")
	case models.StrategyStylized:
		b.WriteString("Translate preserving the rhetorical and literary character of the source; favor natural idiom over literal word order.\n")
	default:
		b.WriteString("Translate naturally and fluently, favoring the target language's ordinary conversational register.\n")
	}

	if style.TopicDomain != "" {
		fmt.Fprintf(&b, "Domain: %s.\n", style.TopicDomain)
	}
	if style.TopicStyle != "" {
		fmt.Fprintf(&b, "Style: %s.\n", style.TopicStyle)
	}
	if style.TranslationGuide != "" {
		fmt.Fprintf(&b, "Translation guide: %s.\n", style.TranslationGuide)
	}
	if style.OverallStyle != "" {
		fmt.Fprintf(&b, "Overall register: %s (%s tone).\n", style.OverallStyle, style.Tone)
	}

	if table := renderTermTable(terms); table != "" {
		b.WriteString(table)
	}

	for _, a := range atoms {
		if looksLikeReference(a.SourceText) {
			b.WriteString("One or more lines is a bibliographic reference: preserve author names, years, and publication details verbatim; translate only surrounding prose.\n")
			break
		}
	}

	fmt.Fprintf(&b, "Reply with exactly %d numbered lines in a <textarea> block, one translation per line, no commentary.\n", n)
	return b.String()
}

const singleLinePrompt = "Translate the single line of text given. Reply with only the translation, no commentary, no numbering."

const backTranslatePromptPrefix = "Back-translate each numbered line into the original source language, preserving meaning exactly.\n"

const scorePrompt = `Score the quality of each numbered translation on a 1.0-10.0 scale, comparing it to its source meaning. Be lenient toward term-form variants when the semantics are preserved. Reply with one line per item in the exact form "N. 评分：<X.X>", nothing else.`

const refinePrompt = `Improve each of the following numbered translations, correcting any meaning or fluency problems. Reply with a clean numbered <textarea> block containing only the corrected translations, in the same order — no "原文:"/"回译:"/"修正后译文:" labels or other residue.`
