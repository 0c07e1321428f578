package badger

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/policyrag/core"
	"github.com/poiesic/policyrag/storage"
)

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
type ChunkRepository struct {
	backend *Backend
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository on top of an open backend.
func NewChunkRepository(backend *Backend) *ChunkRepository {
	return &ChunkRepository{backend: backend}
}

// NewRepository opens a file-backed store at path.
// Closing the repository closes the underlying database.
func NewRepository(path string) (storage.ChunkRepository, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	return &ownedRepository{ChunkRepository: NewChunkRepository(backend)}, nil
}

// ownedRepository closes its backend on Close.
type ownedRepository struct {
	*ChunkRepository
}

func (r *ownedRepository) Close() error {
	return r.backend.Close()
}

// Close is a no-op; the backend is owned by the caller.
func (r *ChunkRepository) Close() error {
	return nil
}

// AddChunks stores one or more chunks, overwriting chunks with the same ID.
func (r *ChunkRepository) AddChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, chunk := range chunks {
		if err := core.ValidateChunk(chunk); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	wb := r.backend.db.NewWriteBatch()
	defer wb.Cancel()
	for _, chunk := range chunks {
		if chunk.Id == 0 {
			chunk.Id = core.ChunkID(chunk.Metadata.DocumentID, chunk.Ordinal, chunk.Text)
		}
		if chunk.InsertedAt.IsZero() {
			chunk.InsertedAt = now
		}
		chunk.UpdatedAt = now
		if err := wb.Set(makeChunkKey(chunk.Id), storage.MarshalChunk(chunk)); err != nil {
			return nil, fmt.Errorf("%w: %w", storage.ErrTransactionFailed, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrTransactionFailed, err)
	}
	return chunks, nil
}

// UpdateChunks replaces existing chunks.
func (r *ChunkRepository) UpdateChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, chunk := range chunks {
			key := makeChunkKey(chunk.Id)
			if _, err := tx.Get(key); err != nil {
				if err == badger.ErrKeyNotFound {
					return fmt.Errorf("%w: chunk %d", storage.ErrNotFound, chunk.Id)
				}
				return err
			}
			chunk.UpdatedAt = time.Now().UTC()
			if err := tx.Set(key, storage.MarshalChunk(chunk)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

// GetChunk retrieves a single chunk by ID.
func (r *ChunkRepository) GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error) {
	var result *core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readChunk(tx, makeChunkKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// ListChunks returns every stored chunk ordered by document and ordinal.
func (r *ChunkRepository) ListChunks(ctx context.Context) ([]*core.Chunk, error) {
	var chunks []*core.Chunk
	err := r.scan(ctx, func(_ []byte, chunk *core.Chunk) {
		chunks = append(chunks, chunk)
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(chunks, func(a, b *core.Chunk) int {
		return cmp.Or(
			cmp.Compare(a.Metadata.DocumentID, b.Metadata.DocumentID),
			cmp.Compare(a.Ordinal, b.Ordinal),
		)
	})
	return chunks, nil
}

// DeleteChunks removes chunks by their IDs.
func (r *ChunkRepository) DeleteChunks(ctx context.Context, ids ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeChunkKey(id)
			if _, err := tx.Get(key); err != nil {
				if err == badger.ErrKeyNotFound {
					return fmt.Errorf("%w: chunk %d", storage.ErrNotFound, id)
				}
				return err
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// DeleteDocument removes every chunk whose metadata matches documentID.
func (r *ChunkRepository) DeleteDocument(ctx context.Context, documentID string) storage.DeleteResult {
	var keys [][]byte
	err := r.scan(ctx, func(key []byte, chunk *core.Chunk) {
		if chunk.Metadata.Matches(documentID) {
			keys = append(keys, key)
		}
	})
	if err != nil {
		return storage.DeleteFailed(err)
	}
	return r.deleteKeys(documentID, keys)
}

// DeleteAll removes every chunk.
func (r *ChunkRepository) DeleteAll(ctx context.Context) storage.DeleteResult {
	keys, err := r.keys(ctx)
	if err != nil {
		return storage.DeleteFailed(err)
	}
	return r.deleteKeys("*", keys)
}

func (r *ChunkRepository) deleteKeys(target string, keys [][]byte) storage.DeleteResult {
	n, err := r.backend.DeleteKeys(keys)
	if err != nil {
		r.backend.logger.Warn("delete interrupted", "target", target, "deleted", n, "pending", len(keys)-n, "err", err)
		return storage.DeleteFailed(err)
	}
	r.backend.logger.Debug("deleted chunks", "target", target, "count", n)
	return storage.Deleted(n)
}

// Count returns the number of stored chunks.
func (r *ChunkRepository) Count(ctx context.Context) (int, error) {
	keys, err := r.keys(ctx)
	return len(keys), err
}

// SearchMMR ranks stored chunks against vector and selects opts.K of them
// by maximal marginal relevance.
func (r *ChunkRepository) SearchMMR(ctx context.Context, vector []float32, opts storage.SearchOptions) ([]core.ScoredChunk, error) {
	if opts.K <= 0 || opts.FetchK < opts.K || opts.Lambda < 0 || opts.Lambda > 1 {
		return nil, fmt.Errorf("%w: k=%d fetch_k=%d lambda=%v", storage.ErrInvalidQuery, opts.K, opts.FetchK, opts.Lambda)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", storage.ErrInvalidQuery)
	}

	var candidates []*core.Chunk
	err := r.scan(ctx, func(_ []byte, chunk *core.Chunk) {
		if len(chunk.Vector) > 0 {
			candidates = append(candidates, chunk)
		}
	})
	if err != nil {
		return nil, err
	}
	return selectMMR(vector, candidates, opts), nil
}

// scan visits every chunk in key order.
func (r *ChunkRepository) scan(ctx context.Context, fn func(key []byte, chunk *core.Chunk)) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := iter.Item()
			var chunk *core.Chunk
			err := item.Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalChunk(val)
				return err
			})
			if err != nil {
				return err
			}
			fn(item.KeyCopy(nil), chunk)
		}
		return nil
	}, false)
}

func (r *ChunkRepository) keys(ctx context.Context) ([][]byte, error) {
	var keys [][]byte
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			keys = append(keys, iter.Item().KeyCopy(nil))
		}
		return nil
	}, false)
	return keys, err
}

// readChunk returns nil without error when the key is absent.
func readChunk(tx *badger.Txn, key []byte) (*core.Chunk, error) {
	item, err := tx.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var chunk *core.Chunk
	err = item.Value(func(val []byte) error {
		chunk, err = storage.UnmarshalChunk(val)
		return err
	})
	return chunk, err
}
