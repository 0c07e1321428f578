package fallback

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/policyrag/core"
)

const (
	// SectionExcerptChars caps an extracted section.
	SectionExcerptChars = 500

	// headerSkip keeps the next-header search from matching the current header.
	headerSkip = 50
)

const (
	leaveProcedureAnswer = "To apply for leave, please contact your HR manager or supervisor with your leave request, " +
		"specifying the dates and type of leave (Casual, Sick, or Privilege Leave). " +
		"Medical certificates are required for sick leave exceeding 2 consecutive days."

	applyProcedureAnswer = "Please contact your HR department or supervisor to initiate the application process. " +
		"They will guide you through the required steps and documentation."

	sickEncashmentAnswer = "**No**, sick leave cannot be encashed. Any unused sick leave will lapse on December 31st of each year.\n\n" +
		"Note: Only Privilege Leave (PL) can be encashed at the end of the financial year, up to a maximum of 10 days."
)

var proceduralPhrases = []string{"how do i", "how to", "how can i", "process for", "procedure"}

var nextHeaderPattern = regexp.MustCompile(`\d+\.\s+[A-Z]`)

func procedural(q string) (string, bool) {
	if !containsAny(q, proceduralPhrases...) {
		return "", false
	}
	switch {
	case core.ContainsKeyword(q, "apply") && core.ContainsKeyword(q, "leave"):
		return leaveProcedureAnswer, true
	case core.ContainsKeyword(q, "apply"):
		return applyProcedureAnswer, true
	}
	return "", false
}

func sickEncashment(q, context string) (string, bool) {
	if !core.ContainsKeyword(q, "encash") || !core.ContainsKeyword(q, "sick") {
		return "", false
	}
	if !strings.Contains(strings.ToLower(context), "cannot be encashed") {
		return "", false
	}
	return withBanner(sickEncashmentAnswer), true
}

// sectionExtract slices the question's policy section out of the context.
func sectionExtract(q, context string) (string, bool) {
	topic, ok := core.DetectCategory(q)
	if !ok {
		return "", false
	}
	start := locate(context, topic)
	if start < 0 {
		return "", false
	}

	section := context[start:]
	if skip := runeBoundary(section, headerSkip); skip < len(section) {
		if loc := nextHeaderPattern.FindStringIndex(section[skip:]); loc != nil {
			section = section[:skip+loc[0]]
		}
	}
	if utf8.RuneCountInString(section) > SectionExcerptChars {
		section = section[:runeBoundary(section, SectionExcerptChars)] + "..."
	}

	section = strings.TrimSpace(section)
	if section == "" {
		return "", false
	}
	return withBanner(section), true
}

// locate finds the topic's anchor header in context, falling back to its
// anchor keywords. Matching ignores case.
func locate(context string, topic core.Topic) int {
	for _, needle := range append([]string{topic.Anchor}, topic.AnchorKeywords...) {
		if loc := indexFold(context, needle); loc >= 0 {
			return loc
		}
	}
	return -1
}

// anchorPatterns holds case-insensitive matchers for every taxonomy anchor
// and anchor keyword.
var anchorPatterns = compileAnchors(core.Taxonomy)

func compileAnchors(topics []core.Topic) map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp)
	for _, t := range topics {
		for _, needle := range append([]string{t.Anchor}, t.AnchorKeywords...) {
			if _, ok := patterns[needle]; !ok {
				patterns[needle] = foldPattern(needle)
			}
		}
	}
	return patterns
}

func foldPattern(substr string) *regexp.Regexp {
	return regexp.MustCompile("(?i)" + regexp.QuoteMeta(substr))
}

func indexFold(s, substr string) int {
	re, ok := anchorPatterns[substr]
	if !ok {
		re = foldPattern(substr)
	}
	if loc := re.FindStringIndex(s); loc != nil {
		return loc[0]
	}
	return -1
}

// runeBoundary returns the byte offset of the n-th rune of s, or len(s).
func runeBoundary(s string, n int) int {
	i := 0
	for pos := range s {
		if i == n {
			return pos
		}
		i++
	}
	return len(s)
}
