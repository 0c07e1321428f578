package storage

import (
	"context"

	"github.com/poiesic/policyrag/core"
)

// SearchOptions tunes a maximal marginal relevance query.
type SearchOptions struct {
	// K is the number of chunks returned.
	K int
	// FetchK is the size of the candidate pool ranked by pure similarity
	// before diversity selection. Must be >= K.
	FetchK int
	// Lambda trades relevance (1.0) against diversity (0.0).
	Lambda float64
}

// ChunkRepository provides operations for managing document chunks.
// Implementations must be thread-safe and support concurrent access.
type ChunkRepository interface {
	// AddChunks stores one or more chunks.
	// Chunks with ID=0 receive a content-derived ID.
	// Sets InsertedAt and UpdatedAt timestamps.
	AddChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error)

	// UpdateChunks replaces existing chunks.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if any chunk doesn't exist.
	UpdateChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error)

	// GetChunk retrieves a single chunk by ID.
	// Returns ErrNotFound if the chunk doesn't exist.
	GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error)

	// ListChunks returns every stored chunk ordered by document and ordinal.
	ListChunks(ctx context.Context) ([]*core.Chunk, error)

	// DeleteChunks removes chunks by their IDs.
	// Returns ErrNotFound if any chunk doesn't exist.
	DeleteChunks(ctx context.Context, ids ...core.ID) error

	// DeleteDocument removes every chunk whose metadata matches the document id.
	DeleteDocument(ctx context.Context, documentID string) DeleteResult

	// DeleteAll removes every chunk.
	DeleteAll(ctx context.Context) DeleteResult

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)

	// SearchMMR ranks stored chunks against vector and selects opts.K of
	// them by maximal marginal relevance.
	SearchMMR(ctx context.Context, vector []float32, opts SearchOptions) ([]core.ScoredChunk, error)

	// Close releases resources held by the repository.
	Close() error
}
