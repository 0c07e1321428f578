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


package reembed

import (
	"context"
	"iter"

	"github.com/poiesic/policyrag/core"
)

// DefaultBatchSize is the default number of chunks per batch.
const DefaultBatchSize = 100

// chunkLister is the part of the chunk repository the iterator reads.
type chunkLister interface {
	ListChunks(ctx context.Context) ([]*core.Chunk, error)
}

// ChunkIterator walks stored chunks in batches, optionally restricted to
// one document.
type ChunkIterator struct {
	repo       chunkLister
	batchSize  int
	documentID string
}

// NewChunkIterator creates an iterator. Non-positive batch sizes use
// DefaultBatchSize. An empty documentID selects every chunk.
func NewChunkIterator(repo chunkLister, batchSize int, documentID string) *ChunkIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &ChunkIterator{repo: repo, batchSize: batchSize, documentID: documentID}
}

// Chunks returns the selected chunks in document and ordinal order.
func (it *ChunkIterator) Chunks(ctx context.Context) ([]*core.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	all, err := it.repo.ListChunks(ctx)
	if err != nil {
		return nil, err
	}
	if it.documentID == "" {
		return all, nil
	}
	var selected []*core.Chunk
	for _, c := range all {
		if c.Metadata.Matches(it.documentID) {
			selected = append(selected, c)
		}
	}
	return selected, nil
}

// Batches splits chunks into consecutive batches of the iterator's size.
func (it *ChunkIterator) Batches(chunks []*core.Chunk) iter.Seq[[]*core.Chunk] {
	return func(yield func([]*core.Chunk) bool) {
		for i := 0; i < len(chunks); i += it.batchSize {
			if !yield(chunks[i:min(i+it.batchSize, len(chunks))]) {
				return
			}
		}
	}
}
