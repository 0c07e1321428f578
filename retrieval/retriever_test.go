package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/policyrag/ai/mock"
	"github.com/poiesic/policyrag/core"
	"github.com/poiesic/policyrag/storage"
	"github.com/poiesic/policyrag/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSearcher struct {
	got  storage.SearchOptions
	vec  []float32
	resp []core.ScoredChunk
	err  error
}

func (s *stubSearcher) SearchMMR(ctx context.Context, vector []float32, opts storage.SearchOptions) ([]core.ScoredChunk, error) {
	s.got = opts
	s.vec = vector
	return s.resp, s.err
}

func TestNewRetriever_Defaults(t *testing.T) {
	r, err := NewRetriever(mock.NewMockEmbedder(), &stubSearcher{})
	require.NoError(t, err)
	assert.Equal(t, storage.SearchOptions{K: 5, FetchK: 10, Lambda: 0.7}, r.Options())
}

func TestNewRetriever_RequiresDependencies(t *testing.T) {
	_, err := NewRetriever(nil, &stubSearcher{})
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = NewRetriever(mock.NewMockEmbedder(), nil)
	assert.ErrorIs(t, err, ErrStoreRequired)
}

func TestNewRetriever_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"zero k", []Option{WithK(0)}},
		{"fetch_k below k", []Option{WithK(8), WithFetchK(4)}},
		{"negative lambda", []Option{WithLambda(-0.1)}},
		{"lambda above one", []Option{WithLambda(1.5)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRetriever(mock.NewMockEmbedder(), &stubSearcher{}, tt.opts...)
			assert.ErrorIs(t, err, core.ErrInvalidSearch)
		})
	}
}

func TestNewRetriever_OptionsAppliedBeforeValidation(t *testing.T) {
	// k above the default fetch_k is fine once fetch_k is raised too
	r, err := NewRetriever(mock.NewMockEmbedder(), &stubSearcher{}, WithK(12), WithFetchK(20))
	require.NoError(t, err)
	assert.Equal(t, 12, r.Options().K)
}

func TestRetrieve_PassesOptionsAndVector(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 2, 3}, nil
	}
	searcher := &stubSearcher{resp: []core.ScoredChunk{{Chunk: &core.Chunk{Text: "a"}, Score: 0.5}}}

	r, err := NewRetriever(embedder, searcher, WithLambda(0.3))
	require.NoError(t, err)

	results, err := r.Retrieve(context.Background(), "late arrival")
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, []float32{1, 2, 3}, searcher.vec)
	assert.Equal(t, 0.3, searcher.got.Lambda)
}

func TestRetrieve_UpstreamFailures(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("connection refused")
	}
	r, err := NewRetriever(embedder, &stubSearcher{})
	require.NoError(t, err)

	_, err = r.Retrieve(context.Background(), "q")
	assert.ErrorIs(t, err, core.ErrUpstreamUnavailable)

	r, err = NewRetriever(mock.NewMockEmbedder(), &stubSearcher{err: errors.New("disk gone")})
	require.NoError(t, err)
	_, err = r.Retrieve(context.Background(), "q")
	assert.ErrorIs(t, err, core.ErrUpstreamUnavailable)
}

func TestRetrieve_AgainstMemoryStore(t *testing.T) {
	ctx := context.Background()
	repo, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	defer repo.Close()

	embedder := mock.NewMockEmbedder()
	meta := core.DocumentMetadata{DocumentID: "handbook.pdf", Filename: "handbook.pdf"}
	texts := []string{"Employees may work remotely.", "Sick leave is 10 days.", "Salary is paid monthly."}

	var chunks []*core.Chunk
	for i, text := range texts {
		vector, err := embedder.EmbedText(ctx, text)
		require.NoError(t, err)
		chunks = append(chunks, &core.Chunk{
			Id:       core.ChunkID(meta.DocumentID, i, text),
			Text:     text,
			Ordinal:  i,
			Metadata: meta,
			Vector:   vector,
		})
	}
	_, err = repo.AddChunks(ctx, chunks...)
	require.NoError(t, err)

	r, err := NewRetriever(embedder, repo, WithK(2), WithFetchK(3))
	require.NoError(t, err)

	results, err := r.Retrieve(ctx, "Sick leave is 10 days.")
	require.NoError(t, err)
	require.Len(t, results, 2)
	// identical text embeds identically so it ranks first
	assert.Equal(t, "Sick leave is 10 days.", results[0].Chunk.Text)
	for _, sc := range results {
		assert.GreaterOrEqual(t, sc.Score, 0.0)
	}
}
