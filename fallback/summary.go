package fallback

import (
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	minLineChars     = 10
	minOverviewChars = 30
	overviewScan     = 20
	overviewLines    = 3
	summaryLines     = 4
)

var commonWords = map[string]struct{}{
	"what": {}, "how": {}, "when": {}, "where": {}, "who": {}, "is": {}, "are": {},
	"the": {}, "a": {}, "an": {}, "do": {}, "does": {}, "can": {}, "i": {}, "my": {},
	"about": {}, "for": {}, "with": {}, "that": {}, "this": {}, "be": {}, "to": {},
	"of": {}, "in": {}, "on": {}, "at": {}, "tell": {}, "me": {}, "company": {},
}

var broadPhrases = []string{"tell me about", "what is", "explain", "overview"}

// summarize answers from the context lines most related to the question.
// It reports false when no line qualifies.
func summarize(q, context string) (string, bool) {
	lines := contentLines(context)
	keywords := questionKeywords(q)

	if len(keywords) <= 1 || broad(q) {
		if intro := overview(lines); len(intro) > 0 {
			return withBanner(strings.Join(intro, "\n\n")), true
		}
	}

	type scored struct {
		hits int
		line string
	}
	var relevant []scored
	for _, line := range lines {
		lower := strings.ToLower(line)
		hits := 0
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		if hits > 0 {
			relevant = append(relevant, scored{hits, line})
		}
	}
	if len(relevant) == 0 {
		return "", false
	}

	sort.SliceStable(relevant, func(i, j int) bool { return relevant[i].hits > relevant[j].hits })
	best := make([]string, 0, summaryLines)
	for _, r := range relevant[:min(summaryLines, len(relevant))] {
		best = append(best, r.line)
	}
	return withBanner(strings.Join(best, "\n")), true
}

func contentLines(context string) []string {
	var out []string
	for _, line := range strings.Split(context, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "---") || utf8.RuneCountInString(line) <= minLineChars {
			continue
		}
		out = append(out, line)
	}
	return out
}

func questionKeywords(q string) []string {
	var out []string
	for _, w := range strings.Fields(q) {
		if _, common := commonWords[w]; common || utf8.RuneCountInString(w) <= 2 {
			continue
		}
		if kw := strings.Trim(w, "?.,!"); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

func broad(q string) bool {
	for _, p := range broadPhrases {
		if strings.Contains(q, p) {
			return true
		}
	}
	return false
}

// overview picks the first substantive prose lines, skipping headers and
// list items.
func overview(lines []string) []string {
	var intro []string
	for _, line := range lines[:min(overviewScan, len(lines))] {
		if strings.HasSuffix(line, ":") || strings.HasPrefix(line, "•") || strings.HasPrefix(line, "-") {
			continue
		}
		if utf8.RuneCountInString(line) > minOverviewChars {
			intro = append(intro, line)
			if len(intro) >= overviewLines {
				break
			}
		}
	}
	return intro
}
