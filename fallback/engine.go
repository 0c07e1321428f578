package fallback

import (
	"log/slog"
	"strings"

	"github.com/poiesic/policyrag/core"
)

// Banner opens every policy-derived answer.
const Banner = "Based on the company policies:"

// Apology is returned when nothing in the context relates to the question.
const Apology = "I apologize, but I couldn't find specific information to answer your question in the uploaded documents. Please try rephrasing or contact HR directly."

// Stage identifies the cascade rule that produced an answer.
type Stage string

const (
	StageArrivalTime Stage = "arrival_time"
	StageLateCount   Stage = "late_count"
	StageProcedural  Stage = "procedural"
	StageEncashment  Stage = "sick_encashment"
	StageSection     Stage = "section"
	StageSummary     Stage = "summary"
	StageNoMatch     Stage = "no_match"
)

// Engine is the deterministic answer cascade. It holds no per-query state
// and is safe for concurrent use.
type Engine struct {
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{logger: slog.Default().With("component", "fallback")}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type stage struct {
	name Stage
	run  func(question, context string) (string, bool)
}

var cascade = []stage{
	{StageArrivalTime, func(q, _ string) (string, bool) { return arrivalTime(q) }},
	{StageLateCount, func(q, _ string) (string, bool) { return lateCount(q) }},
	{StageProcedural, func(q, _ string) (string, bool) { return procedural(q) }},
	{StageEncashment, sickEncashment},
	{StageSection, sectionExtract},
}

// Answer runs the cascade. When context is blank it is rebuilt from the
// texts of chunks, joined the way the reranker joins them.
func (e *Engine) Answer(question, context string, chunks []core.ScoredChunk) (string, Stage) {
	q := strings.ToLower(question)
	if strings.TrimSpace(context) == "" {
		context = joinChunks(chunks)
	}

	for _, s := range cascade {
		if text, ok := s.run(q, context); ok {
			e.logger.Debug("fallback answered", "stage", s.name)
			return text, s.name
		}
	}

	text, ok := summarize(q, context)
	if !ok {
		e.logger.Debug("fallback found nothing relevant")
		return Apology, StageNoMatch
	}
	e.logger.Debug("fallback answered", "stage", StageSummary)
	return text, StageSummary
}

// Answer runs the cascade with a default Engine.
func Answer(question, context string, chunks []core.ScoredChunk) string {
	text, _ := New().Answer(question, context, chunks)
	return text
}

func joinChunks(chunks []core.ScoredChunk) string {
	texts := make([]string, 0, len(chunks))
	for _, sc := range chunks {
		if sc.Chunk != nil {
			texts = append(texts, sc.Chunk.Text)
		}
	}
	return strings.Join(texts, "\n\n")
}

func withBanner(body string) string {
	return Banner + "\n\n" + body
}

func containsAny(lower string, words ...string) bool {
	for _, w := range words {
		if core.ContainsKeyword(lower, w) {
			return true
		}
	}
	return false
}
