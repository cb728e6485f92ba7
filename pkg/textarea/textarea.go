// Package textarea parses numbered <textarea> replies from an LLM back into
// an index→text map. It is deliberately tolerant of skipped or renumbered
// lines: key-based extraction survives drift that positional parsing cannot.
package textarea

import (
	"regexp"
	"strings"
)

// boundaryRe matches the start of a numbered line: beginning-of-string or
// newline, then digits, then a '.' or a full-width '、', then whitespace.
var boundaryRe = regexp.MustCompile(`(?m)(^|\n)(\d+)[.、]\s*`)

// tagRe strips <textarea> wrapper tags (opening and closing, any case).
var tagRe = regexp.MustCompile(`(?is)</?textarea[^>]*>`)

// markdownPrefixRe strips a redundant leading "N." that sometimes survives
// inside an already-keyed entry (models double-number occasionally).
var markdownPrefixRe = regexp.MustCompile(`^\s*\d+[.、]\s*`)

var (
	boldDoubleStarRe = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicStarRe     = regexp.MustCompile(`\*(.*?)\*`)
	boldUnderscoreRe = regexp.MustCompile(`__(.*?)__`)
	italicUnderRe    = regexp.MustCompile(`_(.*?)_`)
)

// Extract parses raw into a map from zero-based index to cleaned text.
// It takes no expected item count and does not check the result against
// one; it never pads missing indices — callers compare the map against
// their own count and decide whether to retry, fall back, or mark failed.
func Extract(raw string) map[int]string {
	stripped := tagRe.ReplaceAllString(raw, "")

	locs := boundaryRe.FindAllStringSubmatchIndex(stripped, -1)
	if len(locs) == 0 {
		return map[int]string{}
	}

	result := make(map[int]string, len(locs))
	for i, loc := range locs {
		// loc: [fullStart, fullEnd, g1Start, g1End, g2Start, g2End]
		numStart, numEnd := loc[4], loc[5]
		n := atoiSafe(stripped[numStart:numEnd])
		if n <= 0 {
			continue
		}

		contentStart := loc[1] // end of the full boundary match
		var contentEnd int
		if i+1 < len(locs) {
			contentEnd = locs[i+1][0]
		} else {
			contentEnd = len(stripped)
		}

		text := stripped[contentStart:contentEnd]
		result[n-1] = clean(text)
	}

	return result
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return -1
		}
		n = n*10 + int(r-'0')
	}
	return n
}

// clean strips bold/italic markdown markers, a residual leading "N."
// prefix, and trims whitespace/quotes.
func clean(s string) string {
	s = strings.TrimRight(s, "\n")
	s = markdownPrefixRe.ReplaceAllString(s, "")
	s = boldDoubleStarRe.ReplaceAllString(s, "$1")
	s = boldUnderscoreRe.ReplaceAllString(s, "$1")
	s = italicStarRe.ReplaceAllString(s, "$1")
	s = italicUnderRe.ReplaceAllString(s, "$1")
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"'“”‘’")
	return s
}

// Render is the inverse of Extract: given an ordered map of index→text,
// produce a <textarea> block with lines numbered 1..N. Used by tests to
// validate the round-trip property (spec.md §8 invariant 4) and by callers
// constructing few-shot examples in prompts.
func Render(texts []string) string {
	var b strings.Builder
	b.WriteString("<textarea>\n")
	for i, t := range texts {
		b.WriteString(itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(t)
		b.WriteString("\n")
	}
	b.WriteString("</textarea>")
	return b.String()
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
