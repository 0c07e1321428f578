package intent

import (
	"strings"

	"github.com/poiesic/policyrag/core"
)

type suggestionGroup struct {
	triggers    []string
	suggestions []string
}

// Groups are tried in order; the first with a trigger in the question wins.
var suggestionGroups = []suggestionGroup{
	{
		triggers: []string{"leave", "sick"},
		suggestions: []string{
			"How many sick leaves do employees get?",
			"Can sick leave be encashed?",
			"How do I apply for leave?",
			"What is the privilege leave policy?",
		},
	},
	{
		triggers: []string{"salary", "pay"},
		suggestions: []string{
			"When is the salary paid?",
			"What are the salary components?",
			"How is the bonus calculated?",
			"What deductions are made from salary?",
		},
	},
	{
		triggers: []string{"performance", "appraisal"},
		suggestions: []string{
			"How often is performance reviewed?",
			"What are the performance metrics?",
			"How is the rating decided?",
			"When is the appraisal cycle?",
		},
	},
	{
		triggers: []string{"work", "hours"},
		suggestions: []string{
			"What are the working hours?",
			"Is remote work allowed?",
			"What is the overtime policy?",
			"How many work days in a week?",
		},
	},
	{
		triggers: []string{"holiday"},
		suggestions: []string{
			"How many holidays in a year?",
			"What are the public holidays?",
			"Are holidays paid?",
			"Can we work on holidays?",
		},
	},
}

// DefaultSuggestions are offered when no topic is recognised.
var DefaultSuggestions = []string{
	"What is the leave policy?",
	"How do I apply for sick leave?",
	"What are the working hours?",
	"How is performance evaluation conducted?",
}

// Suggestions returns follow-up questions related to the question's topic.
// The returned slice is a copy.
func Suggestions(question string) []string {
	lower := strings.ToLower(question)
	for _, g := range suggestionGroups {
		for _, trigger := range g.triggers {
			if core.ContainsKeyword(lower, trigger) {
				return append([]string(nil), g.suggestions...)
			}
		}
	}
	return append([]string(nil), DefaultSuggestions...)
}
