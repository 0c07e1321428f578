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


package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/poiesic/policyrag"
	"github.com/poiesic/policyrag/ai"
	"github.com/poiesic/policyrag/ai/openai"
	"github.com/poiesic/policyrag/api"
	"github.com/poiesic/policyrag/core"
	"github.com/poiesic/policyrag/ingestion"
	"github.com/poiesic/policyrag/qa"
	"github.com/poiesic/policyrag/reembed"
	"github.com/urfave/cli/v2"
)

// newProvider builds the AI provider for every command. Tests replace it.
var newProvider = openai.NewProvider

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	defaults := ai.DefaultConfig()
	return &cli.App{
		Name:  "policyrag",
		Usage: "Answer questions about company policy documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"POLICYRAG_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory",
				Value:   "./policyrag.db",
				EnvVars: []string{"POLICYRAG_DB"},
			},
			&cli.StringFlag{
				Name:    "collection",
				Usage:   "Collection name reported by stats",
				Value:   policyrag.DefaultCollectionName,
				EnvVars: []string{"POLICYRAG_COLLECTION"},
			},
			&cli.StringFlag{
				Name:    "embedding-host",
				Usage:   "Embedding service host URL",
				Value:   defaults.EmbeddingHost,
				EnvVars: []string{"POLICYRAG_EMBEDDING_HOST"},
			},
			&cli.StringFlag{
				Name:    "embedding-model",
				Usage:   "Embedding model name",
				Value:   defaults.EmbeddingModel,
				EnvVars: []string{"POLICYRAG_EMBEDDING_MODEL"},
			},
			&cli.StringFlag{
				Name:    "generator-host",
				Usage:   "Generator service host URL (defaults to embedding-host)",
				EnvVars: []string{"POLICYRAG_GENERATOR_HOST"},
			},
			&cli.StringFlag{
				Name:    "generator-model",
				Usage:   "Generator model name; empty answers from the fallback engine only",
				Value:   defaults.GeneratorModel,
				EnvVars: []string{"POLICYRAG_GENERATOR_MODEL"},
			},
			&cli.StringFlag{
				Name:    "api-token",
				Usage:   "Token for the AI services",
				Value:   defaults.APIToken,
				EnvVars: []string{"POLICYRAG_API_TOKEN"},
			},
			&cli.Float64Flag{
				Name:    "temperature",
				Usage:   "Generator sampling temperature",
				Value:   defaults.Temperature,
				EnvVars: []string{"POLICYRAG_TEMPERATURE"},
			},
			&cli.IntFlag{
				Name:    "max-tokens",
				Usage:   "Maximum tokens per generated answer",
				Value:   defaults.MaxTokens,
				EnvVars: []string{"POLICYRAG_MAX_TOKENS"},
			},
			&cli.IntFlag{
				Name:    "embedding-cache-size",
				Usage:   "Query embeddings kept in memory (0 disables)",
				Value:   defaults.EmbeddingCacheSize,
				EnvVars: []string{"POLICYRAG_EMBEDDING_CACHE_SIZE"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "addr",
						Usage:   "Listen address",
						Value:   ":8000",
						EnvVars: []string{"POLICYRAG_ADDR"},
					},
					&cli.StringFlag{
						Name:    "api-key",
						Usage:   "Bearer key required on /api routes (empty disables auth)",
						EnvVars: []string{"POLICYRAG_API_KEY"},
					},
					&cli.StringFlag{
						Name:    "upload-dir",
						Usage:   "Directory for uploaded documents",
						Value:   api.DefaultConfig().UploadDir,
						EnvVars: []string{"POLICYRAG_UPLOAD_DIR"},
					},
					&cli.Int64Flag{
						Name:    "max-upload-bytes",
						Usage:   "Maximum size of an uploaded document",
						Value:   api.DefaultMaxUploadBytes,
						EnvVars: []string{"POLICYRAG_MAX_UPLOAD_BYTES"},
					},
					generationTimeoutFlag(),
					maxResponseCharsFlag(),
				},
			},
			{
				Name:      "ingest",
				Usage:     "Ingest policy documents (.pdf, .txt, .md)",
				ArgsUsage: "FILE...",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "uploaded-by",
						Usage: "Uploader recorded with each document",
						Value: "cli",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks embedded per call",
						Value: ingestion.DefaultBatchSize,
					},
					&cli.IntFlag{
						Name:  "pool-size",
						Usage: "Concurrent embedding calls (0 uses half the CPUs)",
					},
				},
			},
			{
				Name:      "ask",
				Usage:     "Answer a question from the ingested documents",
				ArgsUsage: "QUESTION",
				Action:    askCommand,
				Flags: []cli.Flag{
					generationTimeoutFlag(),
					maxResponseCharsFlag(),
				},
			},
			{
				Name:   "stats",
				Usage:  "Show collection statistics and stored documents",
				Action: statsCommand,
			},
			{
				Name:      "delete",
				Usage:     "Delete a document by ID or filename",
				ArgsUsage: "ID",
				Action:    deleteCommand,
			},
			{
				Name:   "clear",
				Usage:  "Delete every stored document",
				Action: clearCommand,
			},
			{
				Name:   "reembed",
				Usage:  "Reembed stored chunks with the configured embedding model",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks to process in each batch",
						Value: reembed.DefaultBatchSize,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N chunks",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
					&cli.StringFlag{
						Name:  "document",
						Usage: "Only reembed chunks of this document",
					},
				},
			},
		},
	}
}

func generationTimeoutFlag() cli.Flag {
	return &cli.DurationFlag{
		Name:    "generation-timeout",
		Usage:   "Time allowed for the generator before falling back",
		Value:   qa.DefaultGenerationTimeout,
		EnvVars: []string{"POLICYRAG_GENERATION_TIMEOUT"},
	}
}

func maxResponseCharsFlag() cli.Flag {
	return &cli.IntFlag{
		Name:    "max-response-chars",
		Usage:   "Longest accepted generated answer (0 disables the check)",
		Value:   qa.DefaultMaxResponseChars,
		EnvVars: []string{"POLICYRAG_MAX_RESPONSE_CHARS"},
	}
}

func aiConfig(c *cli.Context) *ai.Config {
	generatorHost := c.String("generator-host")
	if generatorHost == "" {
		generatorHost = c.String("embedding-host")
	}
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithGeneratorHost(generatorHost),
		ai.WithGeneratorModel(c.String("generator-model")),
		ai.WithAPIToken(c.String("api-token")),
		ai.WithTemperature(c.Float64("temperature")),
		ai.WithMaxTokens(c.Int("max-tokens")),
		ai.WithEmbeddingCacheSize(c.Int("embedding-cache-size")),
	)
}

func openSystem(c *cli.Context) (*policyrag.System, error) {
	dbPath := c.String("db")
	if dbPath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	cfg := aiConfig(c)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}
	provider, err := newProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AI provider: %w", err)
	}

	system, err := policyrag.NewSystem(dbPath,
		policyrag.WithAIConfig(cfg),
		policyrag.WithProvider(provider),
		policyrag.WithCollectionName(c.String("collection")),
		policyrag.WithLogger(slog.Default()),
	)
	if err != nil {
		provider.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return system, nil
}

func answererOptions(c *cli.Context) []qa.Option {
	return []qa.Option{
		qa.WithGenerationTimeout(c.Duration("generation-timeout")),
		qa.WithMaxResponseChars(c.Int("max-response-chars")),
	}
}

func serveCommand(c *cli.Context) error {
	system, err := openSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	srv, err := api.NewServer(system, slog.Default().With("component", "api"), api.Config{
		APIKey:          c.String("api-key"),
		UploadDir:       c.String("upload-dir"),
		MaxUploadBytes:  c.Int64("max-upload-bytes"),
		AnswererOptions: answererOptions(c),
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer srv.Close()

	httpServer := &http.Server{
		Addr:              c.String("addr"),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", httpServer.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one file is required")
	}
	for _, path := range c.Args().Slice() {
		if !ingestion.IsSupported(path) {
			return fmt.Errorf("%w: %s", ingestion.ErrUnsupportedFormat, path)
		}
	}

	system, err := openSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	opts := []ingestion.Option{ingestion.WithBatchSize(c.Int("batch-size"))}
	if n := c.Int("pool-size"); n > 0 {
		opts = append(opts, ingestion.WithPoolSize(n))
	}
	pipeline, err := system.NewIngestionPipeline(opts...)
	if err != nil {
		return fmt.Errorf("failed to create ingestion pipeline: %w", err)
	}
	defer pipeline.Release()

	out := c.App.Writer
	for _, path := range c.Args().Slice() {
		result, err := pipeline.IngestFile(c.Context, path, core.DocumentMetadata{UploadedBy: c.String("uploaded-by")})
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", path, err)
		}
		fmt.Fprintf(out, "%s: %d chunks, %d sections, %d pages\n",
			result.DocumentID, result.ChunksCreated, result.SectionsProcessed, result.PagesProcessed)
	}
	return nil
}

func askCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return fmt.Errorf("a question is required")
	}

	system, err := openSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	answerer, err := system.NewAnswerer(answererOptions(c)...)
	if err != nil {
		return fmt.Errorf("failed to create answerer: %w", err)
	}

	answer, err := answerer.Ask(c.Context, core.Question{Text: question})
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	printAnswer(c.App.Writer, answer)
	return nil
}

func printAnswer(w io.Writer, answer *core.Answer) {
	fmt.Fprintln(w, answer.Text)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Origin: %s\n", answer.Origin)
	fmt.Fprintf(w, "Intent: %s\n", answer.Intent)
	citations := qa.Citations(answer.Sources)
	if len(citations) == 0 {
		return
	}
	fmt.Fprintln(w, "Sources:")
	for i, cite := range citations {
		fmt.Fprintf(w, "  [%d] %s", i+1, cite.Metadata.Filename)
		if cite.Section != "" {
			fmt.Fprintf(w, " / %s", cite.Section)
		}
		fmt.Fprintf(w, " (score %.0f)\n", cite.Score)
	}
}

func statsCommand(c *cli.Context) error {
	system, err := openSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	stats, err := system.Stats(c.Context)
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	out := c.App.Writer
	fmt.Fprintf(out, "Collection: %s\n", stats.Collection)
	fmt.Fprintf(out, "Documents: %d\n", stats.DocumentCount)
	fmt.Fprintf(out, "Chunks: %d\n", stats.ChunkCount)
	fmt.Fprintf(out, "Embedding model: %s\n", stats.EmbeddingModel)
	if stats.GeneratorModel != "" {
		fmt.Fprintf(out, "Generator model: %s\n", stats.GeneratorModel)
	}
	for _, doc := range system.Documents(c.Context) {
		fmt.Fprintf(out, "  %s  %d chunks  uploaded by %s on %s\n",
			doc.DocumentID, doc.Chunks, doc.UploadedBy, doc.UploadDate.Format(time.DateOnly))
	}
	return nil
}

func deleteCommand(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("a document ID is required")
	}

	system, err := openSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	result := system.DeleteDocument(c.Context, id)
	if !result.Known() {
		return fmt.Errorf("deleting %s: %w", id, result.Err)
	}
	fmt.Fprintf(c.App.Writer, "Document %s deleted (%d chunks)\n", id, result.Count())
	return nil
}

func clearCommand(c *cli.Context) error {
	system, err := openSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	result := system.DeleteAll(c.Context)
	if !result.Known() {
		return fmt.Errorf("deleting all documents: %w", result.Err)
	}
	fmt.Fprintf(c.App.Writer, "All documents deleted (%d chunks)\n", result.Count())
	return nil
}

func reembedCommand(c *cli.Context) error {
	reembedConfig := reembed.DefaultConfig()
	reembedConfig.BatchSize = c.Int("batch-size")
	reembedConfig.ReportInterval = c.Int("report-interval")
	reembedConfig.MaxRetries = c.Int("max-retries")
	reembedConfig.RetryDelay = c.Duration("retry-delay")
	reembedConfig.DocumentID = c.String("document")

	if reembedConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if reembedConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if reembedConfig.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	system, err := openSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	progress := c.App.ErrWriter
	reembedder, err := system.NewReembedder(reembedConfig, progress)
	if err != nil {
		return fmt.Errorf("failed to create reembedder: %w", err)
	}

	fmt.Fprintf(progress, "Database: %s\n", c.String("db"))
	fmt.Fprintf(progress, "Embedding host: %s\n", c.String("embedding-host"))
	fmt.Fprintf(progress, "Embedding model: %s\n", c.String("embedding-model"))
	fmt.Fprintln(progress)

	summary, err := reembedder.Run(c.Context)
	if err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Reembedded %d chunks in %d batches (%s)\n",
		summary.Chunks, summary.Batches, summary.Elapsed.Round(time.Millisecond))
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
