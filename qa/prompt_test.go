package qa

import (
	"strings"
	"testing"

	"github.com/poiesic/policyrag/core"
	"github.com/stretchr/testify/assert"
)

func TestFullQuery(t *testing.T) {
	assert.Equal(t, "What is WFH?", FullQuery(core.Question{Text: "What is WFH?"}))

	q := core.Question{
		Text:    "And sick leave?",
		History: []core.ChatTurn{{Question: "Casual leave?", Answer: "12 days."}},
	}
	assert.Equal(t, "User: Casual leave?\nAssistant: 12 days.\nUser: And sick leave?", FullQuery(q))
}

func TestFormatHistory_KeepsLastThree(t *testing.T) {
	history := []core.ChatTurn{
		{Question: "1", Answer: "a"},
		{Question: "2", Answer: "b"},
		{Question: "3", Answer: "c"},
		{Question: "4", Answer: "d"},
	}
	assert.Equal(t, "User: 2\nAssistant: b\nUser: 3\nAssistant: c\nUser: 4\nAssistant: d", FormatHistory(history))
	assert.Equal(t, "", FormatHistory(nil))
}

func TestComposePrompt(t *testing.T) {
	assert.Equal(t,
		"Answer the question based on the context below.\n\nContext: ctx\n\nQuestion: q\n\nAnswer:",
		ComposePrompt("ctx", "q"))
}

func TestExcerpt(t *testing.T) {
	short := strings.Repeat("a", ExcerptChars)
	assert.Equal(t, short, Excerpt(short))

	long := strings.Repeat("é", ExcerptChars+5)
	got := Excerpt(long)
	assert.Equal(t, strings.Repeat("é", ExcerptChars)+"...", got)
}

func TestCitations(t *testing.T) {
	sources := []core.ScoredChunk{
		{Chunk: &core.Chunk{Text: "Leave text", SectionTitle: "4. Leave Policy", Category: core.CategoryLeavePolicy,
			Metadata: core.DocumentMetadata{Filename: "handbook.pdf"}}, Score: 23},
		{Chunk: nil},
	}
	got := Citations(sources)
	assert.Len(t, got, 1)
	assert.Equal(t, "Leave text", got[0].Excerpt)
	assert.Equal(t, "handbook.pdf", got[0].Metadata.Filename)
	assert.Equal(t, 23.0, got[0].Score)
}
