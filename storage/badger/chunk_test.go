package badger

import (
	"context"
	"testing"

	"github.com/poiesic/policyrag/core"
	"github.com/poiesic/policyrag/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) storage.ChunkRepository {
	t.Helper()
	repo, err := NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func makeChunk(docID, filename string, ordinal int, text string, vector ...float32) *core.Chunk {
	return &core.Chunk{
		Text:     text,
		Ordinal:  ordinal,
		Category: core.CategoryGeneral,
		Metadata: core.DocumentMetadata{
			DocumentID: docID,
			Filename:   filename,
			Source:     "/uploads/" + docID,
		},
		Vector: vector,
	}
}

func TestChunkRepository_AddAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	chunk := makeChunk("1700_handbook.pdf", "handbook.pdf", 0, "Work hours are 9:00 AM to 6:00 PM.", 1, 0)
	added, err := repo.AddChunks(ctx, chunk)
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.NotZero(t, added[0].Id)
	assert.False(t, added[0].InsertedAt.IsZero())
	assert.Equal(t, core.ChunkID("1700_handbook.pdf", 0, chunk.Text), added[0].Id)

	got, err := repo.GetChunk(ctx, added[0].Id)
	require.NoError(t, err)
	assert.Equal(t, chunk.Text, got.Text)
	assert.Equal(t, []float32{1, 0}, got.Vector)
	assert.Equal(t, "handbook.pdf", got.Metadata.Filename)
}

func TestChunkRepository_AddRejectsInvalid(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.AddChunks(context.Background(), &core.Chunk{Text: "no document"})
	assert.ErrorIs(t, err, core.ErrInvalidChunk)

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestChunkRepository_AddIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.AddChunks(ctx, makeChunk("d", "d.txt", 0, "same text"))
	require.NoError(t, err)
	_, err = repo.AddChunks(ctx, makeChunk("d", "d.txt", 0, "same text"))
	require.NoError(t, err)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestChunkRepository_GetMissing(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.GetChunk(context.Background(), core.ID(42))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestChunkRepository_Update(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	added, err := repo.AddChunks(ctx, makeChunk("d", "d.txt", 0, "text", 1, 0))
	require.NoError(t, err)

	added[0].Vector = []float32{0, 1}
	_, err = repo.UpdateChunks(ctx, added[0])
	require.NoError(t, err)

	got, err := repo.GetChunk(ctx, added[0].Id)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, got.Vector)

	_, err = repo.UpdateChunks(ctx, &core.Chunk{Id: 99, Text: "ghost"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestChunkRepository_ListOrdersByDocumentAndOrdinal(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.AddChunks(ctx,
		makeChunk("b", "b.txt", 1, "b1"),
		makeChunk("a", "a.txt", 1, "a1"),
		makeChunk("b", "b.txt", 0, "b0"),
		makeChunk("a", "a.txt", 0, "a0"),
	)
	require.NoError(t, err)

	chunks, err := repo.ListChunks(ctx)
	require.NoError(t, err)
	var texts []string
	for _, c := range chunks {
		texts = append(texts, c.Text)
	}
	assert.Equal(t, []string{"a0", "a1", "b0", "b1"}, texts)
}

func TestChunkRepository_DeleteChunks(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	added, err := repo.AddChunks(ctx, makeChunk("d", "d.txt", 0, "one"), makeChunk("d", "d.txt", 1, "two"))
	require.NoError(t, err)

	require.NoError(t, repo.DeleteChunks(ctx, added[0].Id))
	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.ErrorIs(t, repo.DeleteChunks(ctx, added[0].Id), storage.ErrNotFound)
}

func TestChunkRepository_DeleteDocument(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.AddChunks(ctx,
		makeChunk("1700_handbook.pdf", "handbook.pdf", 0, "h0"),
		makeChunk("1700_handbook.pdf", "handbook.pdf", 1, "h1"),
		makeChunk("1800_benefits.pdf", "benefits.pdf", 0, "b0"),
	)
	require.NoError(t, err)

	tests := []struct {
		name string
		id   string
		want int
	}{
		{"unknown id removes nothing", "missing.pdf", 0},
		{"original filename", "handbook.pdf", 2},
		{"already removed", "1700_handbook.pdf", 0},
		{"exact id", "1800_benefits.pdf", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := repo.DeleteDocument(ctx, tt.id)
			require.True(t, res.Known())
			assert.Equal(t, tt.want, res.Count())
		})
	}

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestChunkRepository_DeleteAll(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i := range 25 {
		_, err := repo.AddChunks(ctx, makeChunk("d", "d.txt", i, "chunk text"))
		require.NoError(t, err)
	}

	res := repo.DeleteAll(ctx)
	require.True(t, res.Known())
	assert.Equal(t, 25, res.Count())

	res = repo.DeleteAll(ctx)
	assert.Equal(t, 0, res.Count())
}

func TestChunkRepository_DeleteCancelled(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.AddChunks(context.Background(), makeChunk("d", "d.txt", 0, "x"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := repo.DeleteDocument(ctx, "d")
	assert.False(t, res.Known())
	assert.ErrorIs(t, res.Err, context.Canceled)
}

func TestChunkRepository_SearchMMR(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.AddChunks(ctx,
		makeChunk("d", "d.txt", 0, "exact", 1, 0, 0),
		makeChunk("d", "d.txt", 1, "near duplicate", 0.99, 0.01, 0),
		makeChunk("d", "d.txt", 2, "different angle", 0.6, 0, 0.8),
		makeChunk("d", "d.txt", 3, "unrelated", 0, 1, 0),
		makeChunk("d", "d.txt", 4, "no vector"),
	)
	require.NoError(t, err)

	t.Run("pure relevance", func(t *testing.T) {
		results, err := repo.SearchMMR(ctx, []float32{1, 0, 0}, storage.SearchOptions{K: 2, FetchK: 4, Lambda: 1})
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "exact", results[0].Chunk.Text)
		assert.Equal(t, "near duplicate", results[1].Chunk.Text)
	})

	t.Run("diversity penalizes duplicates", func(t *testing.T) {
		results, err := repo.SearchMMR(ctx, []float32{1, 0, 0.2}, storage.SearchOptions{K: 2, FetchK: 4, Lambda: 0.5})
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "exact", results[0].Chunk.Text)
		assert.Equal(t, "different angle", results[1].Chunk.Text)
	})

	t.Run("fewer chunks than k", func(t *testing.T) {
		results, err := repo.SearchMMR(ctx, []float32{1, 0, 0}, storage.SearchOptions{K: 10, FetchK: 10, Lambda: 0.7})
		require.NoError(t, err)
		assert.Len(t, results, 4)
		for _, r := range results {
			assert.GreaterOrEqual(t, r.Score, 0.0)
		}
	})

	t.Run("invalid options", func(t *testing.T) {
		_, err := repo.SearchMMR(ctx, []float32{1, 0, 0}, storage.SearchOptions{K: 5, FetchK: 3, Lambda: 0.7})
		assert.ErrorIs(t, err, storage.ErrInvalidQuery)

		_, err = repo.SearchMMR(ctx, []float32{1, 0, 0}, storage.SearchOptions{K: 5, FetchK: 10, Lambda: 1.5})
		assert.ErrorIs(t, err, storage.ErrInvalidQuery)
	})
}
