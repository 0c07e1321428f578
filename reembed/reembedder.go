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
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/policyrag/ai"
	"github.com/poiesic/policyrag/storage"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of chunks embedded per call.
	BatchSize int

	// ReportInterval is how often progress is reported, in chunks.
	ReportInterval int

	// MaxRetries is the number of attempts per batch.
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff.
	RetryDelay time.Duration

	// MaxRetryDelay caps the backoff delay. Zero means uncapped.
	MaxRetryDelay time.Duration

	// DocumentID restricts the run to one document when set.
	DocumentID string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     time.Second,
		MaxRetryDelay:  30 * time.Second,
	}
}

// Summary describes a finished run.
type Summary struct {
	Chunks  int
	Batches int
	Elapsed time.Duration
}

// Reembedder re-embeds the chunks of a repository.
type Reembedder struct {
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
	iterator  *ChunkIterator
	logger    *slog.Logger
}

// NewReembedder creates a new reembedder writing progress to progress
// (typically os.Stderr).
func NewReembedder(repo storage.ChunkRepository, embedder ai.Embedder, config *Config, progress io.Writer) (*Reembedder, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}

	backoff := Backoff{MaxAttempts: config.MaxRetries, BaseDelay: config.RetryDelay, MaxDelay: config.MaxRetryDelay}
	if backoff.MaxAttempts <= 0 {
		return nil, ErrInvalidMaxAttempts
	}

	return &Reembedder{
		config:    config,
		progress:  progress,
		processor: NewBatchProcessor(repo, embedder, backoff),
		iterator:  NewChunkIterator(repo, config.BatchSize, config.DocumentID),
		logger:    slog.Default().With("component", "reembed"),
	}, nil
}

// Run re-embeds every selected chunk. It stops at the first batch that
// fails after all retries; batches before it stay updated.
func (r *Reembedder) Run(ctx context.Context) (Summary, error) {
	chunks, err := r.iterator.Chunks(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to list chunks: %w", err)
	}
	if len(chunks) == 0 {
		fmt.Fprintf(r.progress, "No chunks found in database (0 chunks)\n")
		return Summary{}, nil
	}

	fmt.Fprintf(r.progress, "Starting reembedding of %d chunks (batch size: %d)\n",
		len(chunks), r.iterator.batchSize)

	tracker := NewProgressTracker(r.progress, len(chunks), r.config.ReportInterval)
	tracker.Start()

	summary := Summary{}
	for batch := range r.iterator.Batches(chunks) {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := r.processor.Process(ctx, batch); err != nil {
			r.logger.Error("batch failed", "batch", summary.Batches+1, "err", err)
			return summary, fmt.Errorf("failed to process batch: %w", err)
		}
		summary.Batches++
		summary.Chunks += len(batch)
		tracker.Add(len(batch))
	}

	tracker.Finish()
	summary.Elapsed = tracker.Elapsed()

	rate := 0.0
	if secs := summary.Elapsed.Seconds(); secs > 0 {
		rate = float64(summary.Chunks) / secs
	}
	fmt.Fprintf(r.progress, "Reembedding complete. Processed %d chunks in %v (%.1f chunks/sec)\n",
		summary.Chunks, summary.Elapsed.Round(time.Millisecond), rate)
	return summary, nil
}
