package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/policyrag/ai"
	"github.com/poiesic/policyrag/core"
	"github.com/poiesic/policyrag/storage"
)

// Default search parameters.
const (
	DefaultK      = 5
	DefaultFetchK = 10
	DefaultLambda = 0.7
)

// DefaultSearchOptions returns the default k=5, fetch_k=10, lambda=0.7 search.
func DefaultSearchOptions() storage.SearchOptions {
	return storage.SearchOptions{K: DefaultK, FetchK: DefaultFetchK, Lambda: DefaultLambda}
}

// ValidateSearchOptions checks that k >= 1, fetch_k >= k and lambda is in [0,1].
func ValidateSearchOptions(opts storage.SearchOptions) error {
	switch {
	case opts.K < 1:
		return fmt.Errorf("%w: k must be positive, got %d", core.ErrInvalidSearch, opts.K)
	case opts.FetchK < opts.K:
		return fmt.Errorf("%w: fetch_k %d is smaller than k %d", core.ErrInvalidSearch, opts.FetchK, opts.K)
	case opts.Lambda < 0 || opts.Lambda > 1:
		return fmt.Errorf("%w: lambda %v outside [0,1]", core.ErrInvalidSearch, opts.Lambda)
	}
	return nil
}

// Searcher is the part of the chunk store used for retrieval.
type Searcher interface {
	SearchMMR(ctx context.Context, vector []float32, opts storage.SearchOptions) ([]core.ScoredChunk, error)
}

// Retriever embeds questions and searches the chunk store.
type Retriever struct {
	embedder ai.Embedder
	store    Searcher
	opts     storage.SearchOptions
	logger   *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithSearchOptions replaces all search parameters.
func WithSearchOptions(opts storage.SearchOptions) Option {
	return func(r *Retriever) error {
		r.opts = opts
		return nil
	}
}

// WithK sets the number of chunks returned.
func WithK(k int) Option {
	return func(r *Retriever) error {
		r.opts.K = k
		return nil
	}
}

// WithFetchK sets the candidate pool size.
func WithFetchK(fetchK int) Option {
	return func(r *Retriever) error {
		r.opts.FetchK = fetchK
		return nil
	}
}

// WithLambda sets the relevance/diversity trade-off.
func WithLambda(lambda float64) Option {
	return func(r *Retriever) error {
		r.opts.Lambda = lambda
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger != nil {
			r.logger = logger
		}
		return nil
	}
}

// NewRetriever creates a Retriever. Options are validated after all have
// been applied.
func NewRetriever(embedder ai.Embedder, store Searcher, opts ...Option) (*Retriever, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if store == nil {
		return nil, ErrStoreRequired
	}
	r := &Retriever{
		embedder: embedder,
		store:    store,
		opts:     DefaultSearchOptions(),
		logger:   slog.Default().With("component", "retriever"),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	if err := ValidateSearchOptions(r.opts); err != nil {
		return nil, err
	}
	return r, nil
}

// Options returns the search parameters in use.
func (r *Retriever) Options() storage.SearchOptions {
	return r.opts
}

// Retrieve returns up to k chunks for the expanded question, in the
// store's diversity-aware order.
func (r *Retriever) Retrieve(ctx context.Context, expanded string) ([]core.ScoredChunk, error) {
	vector, err := r.embedder.EmbedText(ctx, expanded)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding query: %w", core.ErrUpstreamUnavailable, err)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: embedder returned an empty vector", core.ErrUpstreamUnavailable)
	}

	results, err := r.store.SearchMMR(ctx, vector, r.opts)
	if err != nil {
		return nil, fmt.Errorf("%w: searching chunks: %w", core.ErrUpstreamUnavailable, err)
	}

	r.logger.Debug("retrieved chunks", "count", len(results), "k", r.opts.K, "fetch_k", r.opts.FetchK, "lambda", r.opts.Lambda)
	return results, nil
}
