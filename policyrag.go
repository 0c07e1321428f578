// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package policyrag answers questions about company policy documents.
//
// A System owns the chunk store and the AI provider and hands out the
// pipelines built on them:
//
//	sys, err := policyrag.NewSystem("./policyrag.db",
//	    policyrag.WithAIConfig(ai.NewConfig(ai.WithGeneratorModel("llama3.2"))))
//	defer sys.Close()
//
//	pipeline, _ := sys.NewIngestionPipeline()
//	pipeline.IngestFile(ctx, "handbook.pdf", core.DocumentMetadata{UploadedBy: "hr"})
//
//	answerer, _ := sys.NewAnswerer()
//	answer, _ := answerer.Ask(ctx, core.Question{Text: "How many sick leaves do I get?"})
package policyrag

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/poiesic/policyrag/ai"
	"github.com/poiesic/policyrag/ai/openai"
	"github.com/poiesic/policyrag/core"
	"github.com/poiesic/policyrag/ingestion"
	"github.com/poiesic/policyrag/qa"
	"github.com/poiesic/policyrag/reembed"
	"github.com/poiesic/policyrag/storage"
	"github.com/poiesic/policyrag/storage/badger"
)

// DefaultCollectionName labels the chunk store in stats.
const DefaultCollectionName = "hr_documents"

// System is the explicitly constructed policy QA engine. It is safe for
// concurrent use until Close is called.
type System struct {
	backend    *badger.Backend
	repo       storage.ChunkRepository
	provider   ai.AIProvider
	config     *ai.Config
	collection string
	logger     *slog.Logger
}

// SystemOption configures a System.
type SystemOption func(*systemOptions)

type systemOptions struct {
	aiConfig   *ai.Config
	provider   ai.AIProvider
	collection string
	inMemory   bool
	logger     *slog.Logger
}

// WithAIConfig sets the configuration of the OpenAI-compatible provider.
func WithAIConfig(config *ai.Config) SystemOption {
	return func(o *systemOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithProvider supplies a ready AI provider instead of building one from
// the AI config. The System takes ownership and closes it.
func WithProvider(provider ai.AIProvider) SystemOption {
	return func(o *systemOptions) {
		o.provider = provider
	}
}

// WithCollectionName sets the collection name reported by Stats.
func WithCollectionName(name string) SystemOption {
	return func(o *systemOptions) {
		if name != "" {
			o.collection = name
		}
	}
}

// WithInMemory keeps the chunk store in memory. The path is ignored.
func WithInMemory() SystemOption {
	return func(o *systemOptions) {
		o.inMemory = true
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) SystemOption {
	return func(o *systemOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewSystem opens the chunk store at path and connects the AI provider.
func NewSystem(path string, opts ...SystemOption) (*System, error) {
	options := &systemOptions{
		aiConfig:   ai.DefaultConfig(),
		collection: DefaultCollectionName,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(path, options.inMemory)
	if err != nil {
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			backend.Close()
			return nil, err
		}
	}

	return &System{
		backend:    backend,
		repo:       badger.NewChunkRepository(backend),
		provider:   provider,
		config:     options.aiConfig,
		collection: options.collection,
		logger:     options.logger,
	}, nil
}

// Close releases the provider and the chunk store.
func (s *System) Close() error {
	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
	}
	if err := s.repo.Close(); err != nil {
		s.logger.Error("error closing chunk repository", "err", err)
		return err
	}
	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// Repository returns the chunk store.
func (s *System) Repository() storage.ChunkRepository {
	return s.repo
}

// Provider returns the AI provider.
func (s *System) Provider() ai.AIProvider {
	return s.provider
}

// NewIngestionPipeline creates a pipeline writing to the System's store.
// The caller must Release it.
func (s *System) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	return ingestion.NewPipeline(s.repo, s.provider, opts...)
}

// NewAnswerer creates an answerer over the System's store.
func (s *System) NewAnswerer(opts ...qa.Option) (*qa.Answerer, error) {
	return qa.NewAnswerer(s.repo, s.provider, opts...)
}

// NewReembedder creates a reembedder for the System's store.
func (s *System) NewReembedder(config *reembed.Config, progress io.Writer) (*reembed.Reembedder, error) {
	return reembed.NewReembedder(s.repo, s.provider.Embedder(), config, progress)
}

// DeleteDocument removes every chunk of a document. See
// core.DocumentMetadata.Matches for the accepted identifiers.
func (s *System) DeleteDocument(ctx context.Context, documentID string) storage.DeleteResult {
	result := s.repo.DeleteDocument(ctx, documentID)
	s.logger.Info("deleted document", "document", documentID, "result", result.String())
	return result
}

// DeleteAll removes every chunk.
func (s *System) DeleteAll(ctx context.Context) storage.DeleteResult {
	result := s.repo.DeleteAll(ctx)
	s.logger.Info("deleted all documents", "result", result.String())
	return result
}

// DocumentInfo summarizes one stored document.
type DocumentInfo struct {
	DocumentID string
	Filename   string
	UploadedBy string
	UploadDate time.Time
	Chunks     int
}

// Documents lists stored documents ordered by ID. Listing failures are
// logged and yield an empty list.
func (s *System) Documents(ctx context.Context) []DocumentInfo {
	chunks, err := s.repo.ListChunks(ctx)
	if err != nil {
		s.logger.Warn("listing chunks failed", "err", err)
		return []DocumentInfo{}
	}

	byID := make(map[string]*DocumentInfo)
	for _, c := range chunks {
		info, ok := byID[c.Metadata.DocumentID]
		if !ok {
			info = &DocumentInfo{
				DocumentID: c.Metadata.DocumentID,
				Filename:   c.Metadata.Filename,
				UploadedBy: c.Metadata.UploadedBy,
				UploadDate: c.Metadata.UploadDate,
			}
			byID[c.Metadata.DocumentID] = info
		}
		info.Chunks++
	}

	docs := make([]DocumentInfo, 0, len(byID))
	for _, info := range byID {
		docs = append(docs, *info)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].DocumentID < docs[j].DocumentID })
	return docs
}

// Stats reports store contents and the configured models.
func (s *System) Stats(ctx context.Context) (core.Stats, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return core.Stats{}, err
	}
	return core.Stats{
		Collection:     s.collection,
		ChunkCount:     count,
		DocumentCount:  len(s.Documents(ctx)),
		EmbeddingModel: s.config.EmbeddingModel,
		GeneratorModel: s.config.GeneratorModel,
	}, nil
}
