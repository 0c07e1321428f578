package openai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	queries int
}

func (c *countingEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), 1}
	}
	return out, nil
}

func (c *countingEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	c.queries++
	return []float32{float32(len(text)), 1}, nil
}

func TestEmbedder_CachesSingleTexts(t *testing.T) {
	inner := &countingEmbedder{}
	e, err := wrapEmbedder(inner, 4)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := e.EmbedText(ctx, "sick leave")
	require.NoError(t, err)
	first[0] = 99 // callers must not be able to poison the cache

	second, err := e.EmbedText(ctx, "sick leave")
	require.NoError(t, err)
	assert.Equal(t, []float32{10, 1}, second)
	assert.Equal(t, 1, inner.queries)
}

func TestEmbedder_NoCache(t *testing.T) {
	inner := &countingEmbedder{}
	e, err := wrapEmbedder(inner, 0)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = e.EmbedText(ctx, "x")
	require.NoError(t, err)
	_, err = e.EmbedText(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.queries)
}

func TestEmbedder_EmbedTexts(t *testing.T) {
	e, err := wrapEmbedder(&countingEmbedder{}, 0)
	require.NoError(t, err)

	vectors, err := e.EmbedTexts(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Len(t, vectors, 3)
}
