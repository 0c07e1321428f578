package mock

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedder_DeterministicUnitVectors(t *testing.T) {
	e := NewMockEmbedder()
	ctx := context.Background()

	a, err := e.EmbedText(ctx, "grace period")
	require.NoError(t, err)
	b, err := e.EmbedText(ctx, "grace period")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, DefaultDimensions)

	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-4)
	assert.Equal(t, 2, e.CallCount())

	e.Reset()
	assert.Equal(t, 0, e.CallCount())
}

func TestMockGenerator_RecordsPrompts(t *testing.T) {
	g := NewMockGenerator()
	ctx := context.Background()

	out, err := g.Generate(ctx, "first")
	require.NoError(t, err)
	assert.Equal(t, DefaultCompletion, out)

	g.GenerateFunc = func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("offline")
	}
	_, err = g.Generate(ctx, "second")
	assert.Error(t, err)
	assert.Equal(t, 2, g.CallCount())
	assert.Equal(t, "second", g.LastPrompt())
}

func TestMockProvider_NilGenerator(t *testing.T) {
	p := NewMockProviderWithServices(NewMockEmbedder(), nil)
	assert.Nil(t, p.Generator())
	assert.NotNil(t, p.Embedder())
	assert.NoError(t, p.Close())
}
