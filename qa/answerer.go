package qa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/poiesic/policyrag/ai"
	"github.com/poiesic/policyrag/core"
	"github.com/poiesic/policyrag/fallback"
	"github.com/poiesic/policyrag/intent"
	"github.com/poiesic/policyrag/rerank"
	"github.com/poiesic/policyrag/retrieval"
	"github.com/poiesic/policyrag/storage"
)

const (
	// DefaultGenerationTimeout bounds a single generator call.
	DefaultGenerationTimeout = 30 * time.Second

	// DefaultMaxResponseChars is the longest completion accepted from the
	// generator before the fallback answer is used instead.
	DefaultMaxResponseChars = 600
)

// Answerer answers questions over a chunk store. It is safe for concurrent
// use; queries share no mutable state.
type Answerer struct {
	retriever         *retrieval.Retriever
	reranker          *rerank.Reranker
	fallback          *fallback.Engine
	generator         ai.Generator // nil means always fall back
	searchOpts        storage.SearchOptions
	generationTimeout time.Duration
	maxResponseChars  int
	logger            *slog.Logger
}

// Option configures an Answerer.
type Option func(*Answerer) error

// WithSearchOptions sets the retrieval parameters.
func WithSearchOptions(opts storage.SearchOptions) Option {
	return func(a *Answerer) error {
		a.searchOpts = opts
		return nil
	}
}

// WithGenerationTimeout bounds each generator call. Zero disables the bound.
func WithGenerationTimeout(d time.Duration) Option {
	return func(a *Answerer) error {
		if d < 0 {
			return fmt.Errorf("generation timeout must not be negative, got %s", d)
		}
		a.generationTimeout = d
		return nil
	}
}

// WithMaxResponseChars sets the overlong-response threshold. Zero disables
// the check.
func WithMaxResponseChars(n int) Option {
	return func(a *Answerer) error {
		if n < 0 {
			return fmt.Errorf("max response chars must not be negative, got %d", n)
		}
		a.maxResponseChars = n
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Answerer) error {
		if logger == nil {
			logger = slog.Default()
		}
		a.logger = logger
		return nil
	}
}

// NewAnswerer creates an Answerer. The provider's generator may be nil, in
// which case every answer comes from the fallback engine.
func NewAnswerer(store retrieval.Searcher, provider ai.AIProvider, opts ...Option) (*Answerer, error) {
	if store == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	a := &Answerer{
		generator:         provider.Generator(),
		searchOpts:        retrieval.DefaultSearchOptions(),
		generationTimeout: DefaultGenerationTimeout,
		maxResponseChars:  DefaultMaxResponseChars,
		logger:            slog.Default().With("component", "qa"),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}

	retriever, err := retrieval.NewRetriever(provider.Embedder(), store,
		retrieval.WithSearchOptions(a.searchOpts),
		retrieval.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}
	a.retriever = retriever
	a.reranker = rerank.New(rerank.WithLogger(a.logger))
	a.fallback = fallback.New(fallback.WithLogger(a.logger))
	return a, nil
}

// Ask answers q.
func (a *Answerer) Ask(ctx context.Context, q core.Question) (*core.Answer, error) {
	return a.AskWithMonitor(ctx, q, nil)
}

// AskWithMonitor answers q, reporting each stage to monitor.
func (a *Answerer) AskWithMonitor(ctx context.Context, q core.Question, monitor Monitor) (*core.Answer, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if err := core.ValidateQuestion(&q); err != nil {
		return nil, err
	}

	monitor.Start(q.Text)

	expanded := retrieval.Expand(q.Text)
	a.logger.Debug("expanded query", "question", q.Text, "expanded", expanded)
	monitor.AfterExpansion(expanded)

	retrieved, err := a.retriever.Retrieve(ctx, expanded)
	if err != nil {
		a.logger.Error("retrieval failed", "err", err)
		return nil, err
	}
	monitor.AfterRetrieval(retrieved)

	ranked := a.reranker.Rerank(q.Text, retrieved)
	monitor.AfterRerank(ranked)

	answer := &core.Answer{
		Sources:  ranked.Ranked,
		Question: q.Text,
		Intent:   intent.Classify(q.Text),
	}

	text, err := a.generate(ctx, ComposePrompt(ranked.Context, FullQuery(q)))
	if err == nil {
		answer.Text = text
		answer.Origin = core.OriginModel
	} else {
		if !errors.Is(err, errNoGenerator) {
			a.logger.Warn("generation failed, using fallback", "err", err)
			monitor.GenerationFailed(err)
		}
		text, stage := a.fallback.Answer(q.Text, ranked.Context, ranked.Ranked)
		a.logger.Debug("fallback answer", "stage", stage)
		answer.Text = text
		answer.Origin = core.OriginFallback
	}

	monitor.Finish(answer)
	return answer, nil
}

var errNoGenerator = errors.New("no generator configured")

// generate calls the generator once under the generation timeout and
// rejects blank or overlong completions.
func (a *Answerer) generate(ctx context.Context, prompt string) (string, error) {
	if a.generator == nil {
		return "", errNoGenerator
	}
	if a.generationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.generationTimeout)
		defer cancel()
	}

	type reply struct {
		text string
		err  error
	}
	done := make(chan reply, 1)
	go func() {
		text, err := a.generator.Generate(ctx, prompt)
		done <- reply{text, err}
	}()

	var completion string
	select {
	case r := <-done:
		if r.err != nil {
			return "", r.err
		}
		completion = r.text
	case <-ctx.Done():
		// generators that ignore cancellation are abandoned
		return "", ctx.Err()
	}
	completion = strings.TrimSpace(completion)
	if completion == "" {
		return "", ErrBlankResponse
	}
	if n := utf8.RuneCountInString(completion); a.maxResponseChars > 0 && n > a.maxResponseChars {
		return "", fmt.Errorf("%w: %d chars", ErrResponseTooLong, n)
	}
	return completion, nil
}
