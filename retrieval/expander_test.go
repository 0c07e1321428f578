package retrieval

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpand(t *testing.T) {
	tests := []struct {
		name     string
		question string
		want     string
	}{
		{
			name:     "no trigger",
			question: "Who is the CEO?",
			want:     "Who is the CEO?",
		},
		{
			name:     "single trigger",
			question: "Can I take WFH on Friday?",
			want:     "Can I take WFH on Friday? work from home remote hybrid",
		},
		{
			name:     "fixed order regardless of position",
			question: "Is arrival at 9:20 late?",
			want:     "Is arrival at 9:20 late? late arrival grace period 9:15 arrival time late grace period",
		},
		{
			name:     "substring triggers",
			question: "Can sick leave be encashed?",
			want:     "Can sick leave be encashed? sick leave sl medical certificate encashment cash leave balance",
		},
		{
			name:     "empty",
			question: "",
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Expand(tt.question))
		})
	}
}

func TestExpand_SupersetOfInput(t *testing.T) {
	questions := []string{
		"What is the learning allowance?",
		"How many office days are mandatory?",
		"casual leave casual leave",
	}
	for _, q := range questions {
		assert.True(t, strings.HasPrefix(Expand(q), q))
	}
}

func TestExpand_NoDeduplication(t *testing.T) {
	got := Expand("late arrival")
	assert.Equal(t, 3, strings.Count(got, "late"))
	assert.Equal(t, 2, strings.Count(got, "grace period"))
}
