package qa

import (
	"strings"
	"unicode/utf8"

	"github.com/poiesic/policyrag/core"
)

// HistoryTurns is the number of most recent chat turns included in prompts.
const HistoryTurns = 3

// ExcerptChars caps the text shown for each cited source.
const ExcerptChars = 200

// FormatHistory renders the last HistoryTurns exchanges as a transcript.
func FormatHistory(history []core.ChatTurn) string {
	if len(history) > HistoryTurns {
		history = history[len(history)-HistoryTurns:]
	}
	lines := make([]string, len(history))
	for i, turn := range history {
		lines[i] = "User: " + turn.Question + "\nAssistant: " + turn.Answer
	}
	return strings.Join(lines, "\n")
}

// FullQuery appends the question to the rendered chat history. Without
// history it is the bare question.
func FullQuery(q core.Question) string {
	history := FormatHistory(q.History)
	if history == "" {
		return q.Text
	}
	return history + "\nUser: " + q.Text
}

// ComposePrompt builds the generator prompt from reranked context and the
// history-aware query.
func ComposePrompt(context, fullQuery string) string {
	var b strings.Builder
	b.WriteString("Answer the question based on the context below.\n\n")
	b.WriteString("Context: ")
	b.WriteString(context)
	b.WriteString("\n\nQuestion: ")
	b.WriteString(fullQuery)
	b.WriteString("\n\nAnswer:")
	return b.String()
}

// Citation is a cited source as shown to users.
type Citation struct {
	Excerpt  string
	Section  string
	Category core.Category
	Score    float64
	Metadata core.DocumentMetadata
}

// Citations builds citations from answer sources, keeping their order.
func Citations(sources []core.ScoredChunk) []Citation {
	out := make([]Citation, 0, len(sources))
	for _, sc := range sources {
		if sc.Chunk == nil {
			continue
		}
		out = append(out, Citation{
			Excerpt:  Excerpt(sc.Chunk.Text),
			Section:  sc.Chunk.SectionTitle,
			Category: sc.Chunk.Category,
			Score:    sc.Score,
			Metadata: sc.Chunk.Metadata,
		})
	}
	return out
}

// Excerpt truncates text to ExcerptChars characters, marking truncation
// with "...".
func Excerpt(text string) string {
	if utf8.RuneCountInString(text) <= ExcerptChars {
		return text
	}
	n := 0
	for i := range text {
		if n == ExcerptChars {
			return text[:i] + "..."
		}
		n++
	}
	return text
}
