package rerank

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/poiesic/policyrag/core"
)

// Score weights.
const (
	TitleBonus    = 5
	CategoryBonus = 15
	KeywordBonus  = 3
	TokenBonus    = 1
)

// DefaultContextSize is the number of top chunks joined into the context.
const DefaultContextSize = 2

// ContextSeparator joins chunk texts in the context.
const ContextSeparator = "\n\n"

// Result is the outcome of reranking.
type Result struct {
	// Context is the text of the top chunks joined by ContextSeparator.
	Context string

	// Ranked holds every scored chunk, best first. Score is the rerank score.
	Ranked []core.ScoredChunk

	// Category is the question's detected category, or "" when none matched.
	Category core.Category
}

// Reranker scores retrieved chunks against the original question.
type Reranker struct {
	contextSize int
	logger      *slog.Logger
}

// Option configures a Reranker.
type Option func(*Reranker)

// WithContextSize sets how many top chunks make up the context.
func WithContextSize(n int) Option {
	return func(r *Reranker) {
		if n > 0 {
			r.contextSize = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reranker) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a Reranker.
func New(opts ...Option) *Reranker {
	r := &Reranker{
		contextSize: DefaultContextSize,
		logger:      slog.Default().With("component", "reranker"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rerank scores chunks for question, which must be the original question
// rather than its expansion.
func (r *Reranker) Rerank(question string, chunks []core.ScoredChunk) Result {
	lower := strings.ToLower(question)
	topic, hasTopic := core.DetectQuestionCategory(lower)

	candidates := titled(chunks)
	if len(candidates) == 0 {
		candidates = withChunk(chunks)
	}

	questionTokens := tokenSet(lower)
	ranked := make([]core.ScoredChunk, 0, len(candidates))
	for _, sc := range candidates {
		ranked = append(ranked, core.ScoredChunk{
			Chunk: sc.Chunk,
			Score: float64(score(sc.Chunk, topic, hasTopic, questionTokens)),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	result := Result{Ranked: ranked}
	if hasTopic {
		result.Category = topic.Category
	}

	top := ranked[:min(r.contextSize, len(ranked))]
	texts := make([]string, len(top))
	for i, sc := range top {
		texts[i] = sc.Chunk.Text
	}
	result.Context = strings.Join(texts, ContextSeparator)

	for i, sc := range top {
		r.logger.Debug("top chunk", "rank", i+1, "score", sc.Score,
			"section", sc.Chunk.SectionTitle, "category", sc.Chunk.Category)
	}
	return result
}

// Rerank scores chunks with a default Reranker.
func Rerank(question string, chunks []core.ScoredChunk) Result {
	return New().Rerank(question, chunks)
}

func score(chunk *core.Chunk, topic core.Topic, hasTopic bool, questionTokens map[string]struct{}) int {
	total := 0
	if chunk.HasTitle() {
		total += TitleBonus
	}

	content := strings.ToLower(chunk.Text)
	if hasTopic {
		if chunk.Category == topic.Category {
			total += CategoryBonus
		}
		seen := make(map[string]struct{}, len(topic.Keywords))
		for _, kw := range topic.Keywords {
			if _, dup := seen[kw]; dup {
				continue
			}
			seen[kw] = struct{}{}
			if core.ContainsKeyword(content, kw) {
				total += KeywordBonus
			}
		}
	}

	for token := range tokenSet(content) {
		if _, ok := questionTokens[token]; ok {
			total += TokenBonus
		}
	}
	return total
}

func titled(chunks []core.ScoredChunk) []core.ScoredChunk {
	var out []core.ScoredChunk
	for _, sc := range chunks {
		if sc.Chunk != nil && sc.Chunk.HasTitle() {
			out = append(out, sc)
		}
	}
	return out
}

func withChunk(chunks []core.ScoredChunk) []core.ScoredChunk {
	out := make([]core.ScoredChunk, 0, len(chunks))
	for _, sc := range chunks {
		if sc.Chunk != nil {
			out = append(out, sc)
		}
	}
	return out
}

func tokenSet(lower string) map[string]struct{} {
	fields := strings.Fields(lower)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
