package policyrag

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/policyrag/ai"
	"github.com/poiesic/policyrag/ai/mock"
	"github.com/poiesic/policyrag/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const handbook = `1. Introduction
This handbook describes company policies for all employees.

4. Leave Policy
Employees receive 12 casual leaves and 10 sick leaves per year.
Unused sick leaves can be encashed at the end of the year.
`

func newTestSystem(t *testing.T, opts ...SystemOption) *System {
	t.Helper()
	opts = append([]SystemOption{WithInMemory(), WithProvider(mock.NewMockProvider())}, opts...)
	sys, err := NewSystem("", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { sys.Close() })
	return sys
}

func ingest(t *testing.T, sys *System, id string) {
	t.Helper()
	pipeline, err := sys.NewIngestionPipeline()
	require.NoError(t, err)
	defer pipeline.Release()

	_, err = pipeline.Ingest(context.Background(), &core.Document{
		ID:   id,
		Text: handbook,
		Metadata: core.DocumentMetadata{
			DocumentID: id,
			Filename:   core.OriginalFilename(id),
			UploadedBy: "hr",
		},
	})
	require.NoError(t, err)
}

func TestNewSystem(t *testing.T) {
	t.Run("create on disk", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "test_db")
		sys, err := NewSystem(dir, WithProvider(mock.NewMockProvider()))
		require.NoError(t, err)
		require.NotNil(t, sys)
		defer sys.Close()

		assert.NotNil(t, sys.Repository())
		assert.NotNil(t, sys.Provider())
		assert.NotNil(t, sys.logger)
	})

	t.Run("error with invalid path", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0644))

		sys, err := NewSystem(tmpFile, WithProvider(mock.NewMockProvider()))
		assert.Error(t, err)
		assert.Nil(t, sys)
	})

	t.Run("invalid ai config", func(t *testing.T) {
		cfg := ai.NewConfig(ai.WithEmbeddingModel(""))
		sys, err := NewSystem("", WithInMemory(), WithAIConfig(cfg))
		assert.Error(t, err)
		assert.Nil(t, sys)
	})
}

func TestSystem_Close(t *testing.T) {
	sys, err := NewSystem(t.TempDir(), WithProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	assert.NoError(t, sys.Close())
}

func TestSystem_FactoryMethods(t *testing.T) {
	sys := newTestSystem(t)

	t.Run("ingestion pipeline", func(t *testing.T) {
		pipeline, err := sys.NewIngestionPipeline()
		require.NoError(t, err)
		require.NotNil(t, pipeline)
		pipeline.Release()
	})

	t.Run("answerer", func(t *testing.T) {
		answerer, err := sys.NewAnswerer()
		require.NoError(t, err)
		require.NotNil(t, answerer)
	})

	t.Run("reembedder", func(t *testing.T) {
		reembedder, err := sys.NewReembedder(nil, nil)
		require.NoError(t, err)
		require.NotNil(t, reembedder)
	})
}

func TestSystem_Stats(t *testing.T) {
	sys := newTestSystem(t, WithCollectionName("policies"))
	ctx := context.Background()

	stats, err := sys.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "policies", stats.Collection)
	assert.Zero(t, stats.ChunkCount)
	assert.Zero(t, stats.DocumentCount)
	assert.Equal(t, ai.DefaultConfig().EmbeddingModel, stats.EmbeddingModel)

	ingest(t, sys, "1700000000_handbook.txt")
	ingest(t, sys, "1700000001_benefits.txt")

	stats, err = sys.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.DocumentCount)
	assert.Greater(t, stats.ChunkCount, 2)
}

func TestSystem_Documents(t *testing.T) {
	sys := newTestSystem(t)
	ctx := context.Background()

	assert.Empty(t, sys.Documents(ctx))

	ingest(t, sys, "1700000001_b.txt")
	ingest(t, sys, "1700000000_a.txt")

	docs := sys.Documents(ctx)
	require.Len(t, docs, 2)
	assert.Equal(t, "1700000000_a.txt", docs[0].DocumentID)
	assert.Equal(t, "a.txt", docs[0].Filename)
	assert.Equal(t, "hr", docs[0].UploadedBy)
	assert.Positive(t, docs[0].Chunks)
	assert.False(t, docs[0].UploadDate.IsZero())
}

func TestSystem_Delete(t *testing.T) {
	sys := newTestSystem(t)
	ctx := context.Background()

	ingest(t, sys, "1700000000_handbook.txt")
	ingest(t, sys, "1700000001_benefits.txt")

	t.Run("by original filename", func(t *testing.T) {
		result := sys.DeleteDocument(ctx, "handbook.txt")
		assert.True(t, result.Known())
		assert.Positive(t, result.Count())
		assert.Len(t, sys.Documents(ctx), 1)
	})

	t.Run("unknown document", func(t *testing.T) {
		result := sys.DeleteDocument(ctx, "missing.pdf")
		assert.True(t, result.Known())
		assert.Zero(t, result.Count())
	})

	t.Run("all", func(t *testing.T) {
		result := sys.DeleteAll(ctx)
		assert.True(t, result.Known())
		assert.Positive(t, result.Count())

		count, err := sys.Repository().Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}

func TestSystem_AskEndToEnd(t *testing.T) {
	sys := newTestSystem(t)
	ingest(t, sys, "1700000000_handbook.txt")

	answerer, err := sys.NewAnswerer()
	require.NoError(t, err)

	answer, err := answerer.Ask(context.Background(), core.Question{Text: "How many sick leaves do I get?"})
	require.NoError(t, err)
	assert.Equal(t, core.OriginModel, answer.Origin)
	assert.Equal(t, mock.DefaultCompletion, answer.Text)
	assert.NotEmpty(t, answer.Sources)
}
