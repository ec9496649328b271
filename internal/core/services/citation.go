package services

import (
	"regexp"
	"strconv"
	"strings"
)

// Citation grammar, compiled once.
var (
	// numericMarker matches generation markers such as [1] or [1, 3].
	numericMarker = regexp.MustCompile(`\[(\d+(?:\s*,\s*\d+)*)\]`)

	// bracketGroup matches any bracketed citation group.
	bracketGroup = regexp.MustCompile(`\[([^\]]+)\]`)

	markerNumber = regexp.MustCompile(`\d+`)
)

// MapCitations rewrites 1-based numeric markers into paragraph ids, where
// sourceIDs lists ids in the exact order the passages were given to
// generation. Multi-number groups become "[id1, id2]". A marker referencing
// a number outside the table is left untouched and the result is flagged
// invalid. With no sources every answer is invalid.
func MapCitations(text string, sourceIDs []string) (string, bool) {
	if len(sourceIDs) == 0 {
		return text, true
	}

	invalid := false
	mapped := numericMarker.ReplaceAllStringFunc(text, func(marker string) string {
		numbers := markerNumber.FindAllString(marker, -1)
		ids := make([]string, 0, len(numbers))
		for _, n := range numbers {
			idx, err := strconv.Atoi(n)
			if err != nil || idx < 1 || idx > len(sourceIDs) || sourceIDs[idx-1] == "" {
				invalid = true
				return marker
			}
			ids = append(ids, sourceIDs[idx-1])
		}
		return "[" + strings.Join(ids, ", ") + "]"
	})
	return mapped, invalid
}

// ExtractCitations returns the comma-separated contents of every bracket
// group in text, trimmed, in order of appearance.
func ExtractCitations(text string) []string {
	var cited []string
	for _, m := range bracketGroup.FindAllStringSubmatch(text, -1) {
		for _, part := range strings.Split(m[1], ",") {
			if part = strings.TrimSpace(part); part != "" {
				cited = append(cited, part)
			}
		}
	}
	return cited
}

// ValidateAnswer reports whether every blank-line separated paragraph of
// text cites at least one retrieved id and no citation falls outside
// retrieved. Text with no paragraphs is invalid.
func ValidateAnswer(text string, retrieved map[string]bool) bool {
	paragraphs := answerParagraphs(text)
	if len(paragraphs) == 0 {
		return false
	}

	for _, p := range paragraphs {
		citations := ExtractCitations(p)
		if len(citations) == 0 {
			return false
		}
		for _, c := range citations {
			if !retrieved[c] {
				return false
			}
		}
	}
	return true
}

// FilterCitations returns the citations of text that are in retrieved,
// de-duplicated in order of first appearance.
func FilterCitations(text string, retrieved map[string]bool) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, c := range ExtractCitations(text) {
		if retrieved[c] && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

func answerParagraphs(text string) []string {
	var out []string
	for _, segment := range strings.Split(text, "\n\n") {
		if segment = strings.TrimSpace(segment); segment != "" {
			out = append(out, segment)
		}
	}
	return out
}

func idSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
