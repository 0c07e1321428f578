package rerank

import (
	"testing"

	"github.com/poiesic/policyrag/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunk(title string, category core.Category, text string) core.ScoredChunk {
	return core.ScoredChunk{Chunk: &core.Chunk{SectionTitle: title, Category: category, Text: text}}
}

func TestRerank_CategoryMatchRanksFirst(t *testing.T) {
	// equal token overlap, only the category differs
	other := chunk("5. Employee Benefits", core.CategoryBenefits, "Employees get this per year.")
	match := chunk("4. Leave Policy", core.CategoryLeavePolicy, "Employees get this per year.")

	result := Rerank("How many sick days per year?", []core.ScoredChunk{other, match})

	require.Len(t, result.Ranked, 2)
	assert.Same(t, match.Chunk, result.Ranked[0].Chunk)
	assert.Equal(t, core.CategoryLeavePolicy, result.Category)
	assert.Equal(t, float64(CategoryBonus), result.Ranked[0].Score-result.Ranked[1].Score)
}

func TestRerank_ScoreComponents(t *testing.T) {
	c := chunk("4. Leave Policy", core.CategoryLeavePolicy,
		"sick leave is 10 days. Casual leave is 12 days.")

	result := Rerank("sick leave days", []core.ScoredChunk{c})

	// title 5, category 15, keywords leave/sick/casual 9, tokens sick/leave 2
	require.Len(t, result.Ranked, 1)
	assert.Equal(t, 31.0, result.Ranked[0].Score)
}

func TestRerank_NoCategoryNoKeywordScore(t *testing.T) {
	c := chunk("1. Introduction", core.CategoryGeneral, "welcome to the company handbook")

	result := Rerank("welcome message", []core.ScoredChunk{c})

	assert.Equal(t, core.Category(""), result.Category)
	assert.Equal(t, 6.0, result.Ranked[0].Score) // title + "welcome"
}

func TestRerank_SalaryQuestionHasNoCategory(t *testing.T) {
	intro := chunk("1. Introduction", core.CategoryGeneral, "Salary is paid monthly.")
	salary := chunk("6. Salary", core.CategorySalary, "Salary is paid monthly.")

	result := Rerank("when is salary paid", []core.ScoredChunk{intro, salary})

	require.Len(t, result.Ranked, 2)
	assert.Equal(t, core.Category(""), result.Category)
	assert.Equal(t, result.Ranked[0].Score, result.Ranked[1].Score)
	assert.Same(t, intro.Chunk, result.Ranked[0].Chunk)
}

func TestRerank_FiltersUntitled(t *testing.T) {
	untitled := chunk("", core.CategoryGeneral, "late arrival late arrival late arrival")
	placeholder := chunk(core.NoTitle, core.CategoryGeneral, "late arrival")
	titledChunk := chunk("2. Work Hours & Attendance", core.CategoryAttendance, "Office opens at 9:00 AM.")

	result := Rerank("late arrival", []core.ScoredChunk{untitled, placeholder, titledChunk})

	require.Len(t, result.Ranked, 1)
	assert.Same(t, titledChunk.Chunk, result.Ranked[0].Chunk)
	assert.Equal(t, "Office opens at 9:00 AM.", result.Context)
}

func TestRerank_AllUntitledScoresEverything(t *testing.T) {
	a := chunk("", "", "remote work is allowed")
	b := chunk("", "", "nothing relevant")

	result := Rerank("is remote work allowed", []core.ScoredChunk{b, a})

	require.Len(t, result.Ranked, 2)
	assert.Same(t, a.Chunk, result.Ranked[0].Chunk)
}

func TestRerank_StableTies(t *testing.T) {
	first := chunk("A. One", "", "alpha")
	second := chunk("B. Two", "", "beta")
	third := chunk("C. Three", "", "gamma")

	result := Rerank("unrelated", []core.ScoredChunk{first, second, third})

	require.Len(t, result.Ranked, 3)
	assert.Same(t, first.Chunk, result.Ranked[0].Chunk)
	assert.Same(t, second.Chunk, result.Ranked[1].Chunk)
	assert.Same(t, third.Chunk, result.Ranked[2].Chunk)
	assert.Equal(t, "alpha\n\nbeta", result.Context)
}

func TestRerank_ContextSize(t *testing.T) {
	chunks := []core.ScoredChunk{
		chunk("A. One", "", "alpha"),
		chunk("B. Two", "", "beta"),
		chunk("C. Three", "", "gamma"),
	}

	result := New(WithContextSize(3)).Rerank("x", chunks)
	assert.Equal(t, "alpha\n\nbeta\n\ngamma", result.Context)

	result = New(WithContextSize(1)).Rerank("x", chunks[:1])
	assert.Equal(t, "alpha", result.Context)
}

func TestRerank_Empty(t *testing.T) {
	result := Rerank("anything", nil)
	assert.Empty(t, result.Ranked)
	assert.Equal(t, "", result.Context)
}
