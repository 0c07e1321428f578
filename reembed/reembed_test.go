package reembed

import (
	"bytes"
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/policyrag/ai/mock"
	"github.com/poiesic/policyrag/core"
	"github.com/poiesic/policyrag/storage"
	"github.com/poiesic/policyrag/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepository(t *testing.T, docs map[string]int) storage.ChunkRepository {
	repo, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	var chunks []*core.Chunk
	for doc, n := range docs {
		meta := core.DocumentMetadata{DocumentID: doc, Filename: doc}
		for i := 0; i < n; i++ {
			text := doc + " passage " + string(rune('a'+i))
			chunks = append(chunks, &core.Chunk{
				Id:       core.ChunkID(doc, i, text),
				Text:     text,
				Ordinal:  i,
				Metadata: meta,
				Vector:   []float32{1, 0},
			})
		}
	}
	_, err = repo.AddChunks(context.Background(), chunks...)
	require.NoError(t, err)
	return repo
}

func fastConfig() *Config {
	return &Config{BatchSize: 2, ReportInterval: 1, MaxRetries: 3, RetryDelay: time.Millisecond}
}

func TestReembedder_Run(t *testing.T) {
	ctx := context.Background()
	repo := setupRepository(t, map[string]int{"a.pdf": 3, "b.pdf": 2})

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{3, 4}
		}
		return out, nil
	}

	var progress bytes.Buffer
	r, err := NewReembedder(repo, embedder, fastConfig(), &progress)
	require.NoError(t, err)

	summary, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Chunks)
	assert.Equal(t, 3, summary.Batches)
	assert.Contains(t, progress.String(), "Starting reembedding of 5 chunks (batch size: 2)")
	assert.Contains(t, progress.String(), "Reembedding complete. Processed 5 chunks")

	chunks, err := repo.ListChunks(ctx)
	require.NoError(t, err)
	for _, c := range chunks {
		assert.InDeltaSlice(t, []float32{0.6, 0.8}, c.Vector, 1e-6)
	}
}

func TestReembedder_SingleDocument(t *testing.T) {
	ctx := context.Background()
	repo := setupRepository(t, map[string]int{"a.pdf": 3, "b.pdf": 2})

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{0, 2}
		}
		return out, nil
	}

	config := fastConfig()
	config.DocumentID = "b.pdf"
	r, err := NewReembedder(repo, embedder, config, nil)
	require.NoError(t, err)

	summary, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Chunks)

	chunks, err := repo.ListChunks(ctx)
	require.NoError(t, err)
	for _, c := range chunks {
		if c.Metadata.DocumentID == "b.pdf" {
			assert.Equal(t, []float32{0, 1}, c.Vector)
		} else {
			assert.Equal(t, []float32{1, 0}, c.Vector)
		}
	}
}

func TestReembedder_EmptyRepository(t *testing.T) {
	repo := setupRepository(t, nil)
	var progress bytes.Buffer
	r, err := NewReembedder(repo, mock.NewMockEmbedder(), fastConfig(), &progress)
	require.NoError(t, err)

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Chunks)
	assert.Contains(t, progress.String(), "No chunks found")
}

func TestReembedder_RetriesThenFails(t *testing.T) {
	repo := setupRepository(t, map[string]int{"a.pdf": 1})
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("rate limited")
	}

	r, err := NewReembedder(repo, embedder, fastConfig(), nil)
	require.NoError(t, err)

	_, err = r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
	assert.Equal(t, 3, embedder.CallCount())
}

func TestNewReembedder_Validation(t *testing.T) {
	repo := setupRepository(t, nil)

	_, err := NewReembedder(nil, mock.NewMockEmbedder(), nil, nil)
	assert.ErrorIs(t, err, ErrRepositoryRequired)

	_, err = NewReembedder(repo, nil, nil, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = NewReembedder(repo, mock.NewMockEmbedder(), &Config{MaxRetries: 0}, nil)
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
}

func TestRetry(t *testing.T) {
	ctx := context.Background()
	b := Backoff{MaxAttempts: 3, BaseDelay: time.Millisecond}

	var calls atomic.Int32
	got, err := Retry(ctx, b, func(ctx context.Context) (string, error) {
		if calls.Add(1) < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, int32(3), calls.Load())

	_, err = Retry(ctx, Backoff{}, func(ctx context.Context) (int, error) { return 0, nil })
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Retry(ctx, Backoff{MaxAttempts: 3, BaseDelay: time.Hour}, func(ctx context.Context) (int, error) {
		return 0, errors.New("never called")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoff_Delay(t *testing.T) {
	b := Backoff{BaseDelay: time.Second, MaxDelay: 5 * time.Second}
	assert.Equal(t, time.Second, b.Delay(1))
	assert.Equal(t, 2*time.Second, b.Delay(2))
	assert.Equal(t, 4*time.Second, b.Delay(3))
	assert.Equal(t, 5*time.Second, b.Delay(4))

	uncapped := Backoff{BaseDelay: time.Second}
	assert.Equal(t, 8*time.Second, uncapped.Delay(4))
}

func TestNormalizeVector(t *testing.T) {
	assert.Equal(t, []float32{0.6, 0.8}, NormalizeVector([]float32{3, 4}))
	assert.Equal(t, []float32{0, 0}, NormalizeVector([]float32{0, 0}))
	assert.Empty(t, NormalizeVector(nil))

	v := NormalizeVector([]float32{1, 2, 3, 4})
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-6)
}

func TestChunkIterator_Batches(t *testing.T) {
	it := NewChunkIterator(nil, 2, "")
	chunks := make([]*core.Chunk, 5)
	var sizes []int
	for batch := range it.Batches(chunks) {
		sizes = append(sizes, len(batch))
	}
	assert.Equal(t, []int{2, 2, 1}, sizes)

	assert.Equal(t, DefaultBatchSize, NewChunkIterator(nil, 0, "").batchSize)
}

func TestProgressTracker(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressTracker(&buf, 10, 5)

	p.Add(3) // ignored before Start
	assert.Zero(t, p.Current())

	p.Start()
	p.Add(3)
	assert.Empty(t, buf.String())
	p.Add(3)
	assert.Contains(t, buf.String(), "Progress: 6/10 chunks (60.0%)")

	p.Add(100)
	assert.Equal(t, 10, p.Current())
	p.Finish()
	assert.Contains(t, buf.String(), "10/10 chunks (100.0%)")
}
