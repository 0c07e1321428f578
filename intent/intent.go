// Package intent labels questions as policy lookups or personal-data
// requests and proposes follow-up questions.
//
// The label is advisory. It drives suggestions and never gates retrieval or
// answering.
package intent

import (
	"strings"

	"github.com/poiesic/policyrag/core"
)

// Cue lists. Within a list, earlier cues claim their text first.
var (
	PersonalCues = []string{"my", "i have", "i want", "can i", "do i"}
	PolicyCues   = []string{"policy", "how many", "what is", "when", "who can"}
)

// Classify returns IntentPersonalData when the question carries strictly
// more personal cues than policy cues, and IntentPolicy otherwise.
//
// Each cue counts at most once. Matches are word-bounded and may not overlap
// text already claimed by another cue, so "do i have" counts as "i have" only.
func Classify(question string) core.Intent {
	lower := strings.ToLower(question)
	claimed := make([]bool, len(lower))

	personal := count(lower, PersonalCues, claimed)
	policy := count(lower, PolicyCues, claimed)
	if personal > policy {
		return core.IntentPersonalData
	}
	return core.IntentPolicy
}

func count(lower string, cues []string, claimed []bool) int {
	n := 0
	for _, cue := range cues {
		start, ok := core.IndexPhrase(lower, cue, claimed)
		if !ok {
			continue
		}
		for i := start; i < start+len(cue); i++ {
			claimed[i] = true
		}
		n++
	}
	return n
}
