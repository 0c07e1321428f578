package ingestion

import (
	"context"
	"fmt"
	"sync"

	"github.com/poiesic/policyrag/core"
)

// embedChunks fills the Vector of every chunk. Batches run on the embedding
// pool; the first failure cancels the batches not yet started.
func (p *Pipeline) embedChunks(ctx context.Context, chunks []*core.Chunk) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
	}

	for start := 0; start < len(chunks); start += p.batchSize {
		batch := chunks[start:min(start+p.batchSize, len(chunks))]
		wg.Add(1)
		err := p.embeddingPool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			if err := p.embedBatch(ctx, batch); err != nil {
				fail(err)
			}
		})
		if err != nil {
			wg.Done()
			fail(fmt.Errorf("submitting embedding batch: %w", err))
			break
		}
	}

	wg.Wait()
	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}

func (p *Pipeline) embedBatch(ctx context.Context, batch []*core.Chunk) error {
	texts := make([]string, len(batch))
	for i, chunk := range batch {
		texts[i] = chunk.Text
	}

	p.logger.Debug("generating embeddings for chunks", "chunks", len(texts))
	embeddings, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		p.logger.Error("error generating embeddings", "err", err)
		return fmt.Errorf("embedding chunks: %w", err)
	}
	if len(embeddings) != len(batch) {
		return fmt.Errorf("embedding result mismatch. expected %d, received %d", len(batch), len(embeddings))
	}

	for i := range embeddings {
		batch[i].Vector = embeddings[i]
	}
	return nil
}
