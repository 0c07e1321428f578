package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/policyrag/ai"
	"github.com/poiesic/policyrag/chunking"
	"github.com/poiesic/policyrag/core"
	"github.com/poiesic/policyrag/storage"
)

// DefaultBatchSize is the number of chunks sent to the embedder per call.
const DefaultBatchSize = 32

// Result summarizes one ingested document.
type Result struct {
	DocumentID        string
	ChunksCreated     int
	SectionsProcessed int
	PagesProcessed    int
}

// Pipeline chunks, embeds and stores documents.
type Pipeline struct {
	repository    storage.ChunkRepository
	embedder      ai.Embedder
	chunker       *chunking.Chunker
	embeddingPool *ants.Pool
	batchSize     int
	logger        *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent embedding.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if p.embeddingPool != nil {
			p.embeddingPool.Release()
		}
		p.embeddingPool = pool
		return nil
	}
}

// WithBatchSize sets how many chunks are embedded per call.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("batch size must be positive, got %d", size)
		}
		p.batchSize = size
		return nil
	}
}

// WithChunker replaces the default chunker.
func WithChunker(c *chunking.Chunker) Option {
	return func(p *Pipeline) error {
		if c != nil {
			p.chunker = c
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(repository storage.ChunkRepository, provider ai.AIProvider, opts ...Option) (*Pipeline, error) {
	if repository == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if provider == nil || provider.Embedder() == nil {
		return nil, ErrAIProviderRequired
	}

	chunker, err := chunking.New()
	if err != nil {
		return nil, err
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		repository:    repository,
		embedder:      provider.Embedder(),
		chunker:       chunker,
		embeddingPool: pool,
		batchSize:     DefaultBatchSize,
		logger:        slog.Default().With("component", "ingestion"),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	return p, nil
}

// Ingest chunks, embeds and stores doc. Nothing is stored unless every
// chunk embedded successfully.
func (p *Pipeline) Ingest(ctx context.Context, doc *core.Document) (Result, error) {
	if err := core.ValidateDocument(doc); err != nil {
		return Result{}, err
	}
	if doc.Metadata.UploadDate.IsZero() {
		doc.Metadata.UploadDate = time.Now().UTC()
	}

	chunked := p.chunker.Chunk(doc)
	result := Result{
		DocumentID:        doc.ID,
		SectionsProcessed: chunked.Sections,
		PagesProcessed:    1,
	}
	chunks := storable(chunked.Chunks)
	if len(chunks) == 0 {
		p.logger.Warn("document produced no chunks", "document", doc.ID)
		return result, nil
	}

	start := time.Now()
	if err := p.embedChunks(ctx, chunks); err != nil {
		return Result{}, fmt.Errorf("ingesting %s: %w", doc.ID, err)
	}

	added, err := p.repository.AddChunks(ctx, chunks...)
	if err != nil {
		return Result{}, fmt.Errorf("storing chunks of %s: %w", doc.ID, err)
	}
	result.ChunksCreated = len(added)

	p.logger.Info("ingested document",
		"document", doc.ID,
		"chunks", result.ChunksCreated,
		"sections", result.SectionsProcessed,
		"duration", time.Since(start))
	return result, nil
}

// storable drops whitespace-only chunks, which carry nothing to embed.
func storable(chunks []*core.Chunk) []*core.Chunk {
	out := make([]*core.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if strings.TrimSpace(c.Text) != "" {
			out = append(out, c)
		}
	}
	return out
}

// IngestFile loads path and ingests its text. meta.DocumentID defaults to
// the file name, and meta.Filename and meta.Source are filled from path
// when empty.
func (p *Pipeline) IngestFile(ctx context.Context, path string, meta core.DocumentMetadata) (Result, error) {
	loaded, err := LoadFile(path)
	if err != nil {
		return Result{}, err
	}

	base := filepath.Base(path)
	if meta.DocumentID == "" {
		meta.DocumentID = base
	}
	if meta.Filename == "" {
		meta.Filename = core.OriginalFilename(base)
	}
	if meta.Source == "" {
		meta.Source = path
	}

	result, err := p.Ingest(ctx, &core.Document{ID: meta.DocumentID, Text: loaded.Text, Metadata: meta})
	if err != nil {
		return Result{}, err
	}
	result.PagesProcessed = loaded.Pages
	return result, nil
}

// Release releases resources including worker pools.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.embeddingPool != nil {
		p.embeddingPool.Release()
	}
}
