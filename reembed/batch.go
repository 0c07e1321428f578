package reembed

import (
	"context"
	"fmt"

	"github.com/poiesic/policyrag/ai"
	"github.com/poiesic/policyrag/core"
)

// chunkUpdater is the part of the chunk repository the processor writes.
type chunkUpdater interface {
	UpdateChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error)
}

// BatchProcessor embeds batches of chunks and writes the vectors back.
type BatchProcessor struct {
	repo     chunkUpdater
	embedder ai.Embedder
	backoff  Backoff
}

// NewBatchProcessor creates a batch processor retrying embedding calls on
// the given schedule.
func NewBatchProcessor(repo chunkUpdater, embedder ai.Embedder, backoff Backoff) *BatchProcessor {
	return &BatchProcessor{repo: repo, embedder: embedder, backoff: backoff}
}

// Process generates normalized embeddings for a batch of chunks and updates
// them in the repository.
func (bp *BatchProcessor) Process(ctx context.Context, chunks []*core.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	embeddings, err := Retry(ctx, bp.backoff, func(ctx context.Context) ([][]float32, error) {
		return bp.embedder.EmbedTexts(ctx, texts)
	})
	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", bp.backoff.MaxAttempts, err)
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(chunks), len(embeddings))
	}

	for i := range chunks {
		chunks[i].Vector = NormalizeVector(embeddings[i])
	}

	if _, err := bp.repo.UpdateChunks(ctx, chunks...); err != nil {
		return fmt.Errorf("failed to update chunks: %w", err)
	}
	return nil
}
