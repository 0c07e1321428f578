package openai

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/poiesic/policyrag/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder implements ai.Embedder using OpenAI-compatible embedding APIs.
// Single-text embeddings are cached, since the same questions tend to be
// asked repeatedly.
type Embedder struct {
	embedder embeddings.Embedder
	cache    *lru.Cache[string, []float32] // nil when caching is disabled
	logger   *slog.Logger
}

// newEmbedder is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken(config.APIToken),
		openai.WithEmbeddingModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, err
	}

	// Wrap in langchaingo embedder
	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	return wrapEmbedder(embedder, config.EmbeddingCacheSize)
}

// wrapEmbedder builds an Embedder around any langchaingo embedder.
func wrapEmbedder(embedder embeddings.Embedder, cacheSize int) (*Embedder, error) {
	e := &Embedder{
		embedder: embedder,
		logger:   slog.Default().With("component", "openai-embedder"),
	}
	if cacheSize > 0 {
		cache, err := lru.New[string, []float32](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("init embedding cache: %w", err)
		}
		e.cache = cache
	}
	return e, nil
}

// NewEmbedder creates a new embedder using the provided configuration.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if e.cache != nil {
		if vector, ok := e.cache.Get(text); ok {
			e.logger.Debug("embedding cache hit", "length", len(text))
			return slices.Clone(vector), nil
		}
	}

	e.logger.Debug("generating embedding for single text", "length", len(text))
	vector, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		e.logger.Error("failed to generate embedding", "err", err)
		return nil, err
	}
	if len(vector) == 0 {
		e.logger.Warn("embedder returned empty result")
		return []float32{}, nil
	}

	if e.cache != nil {
		e.cache.Add(text, slices.Clone(vector))
	}
	return vector, nil
}

// EmbedTexts generates vector embeddings for multiple text strings in a batch.
// Batches are document chunks and bypass the cache.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding result mismatch: expected %d, received %d", len(texts), len(vectors))
	}

	return vectors, nil
}
