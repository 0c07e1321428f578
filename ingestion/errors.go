package ingestion

import "errors"

var (
	// ErrChunkRepositoryRequired is returned when a chunk repository is not provided.
	ErrChunkRepositoryRequired = errors.New("chunk repository required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrUnsupportedFormat is returned for files other than PDF, text or markdown.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrNoText is returned when a file yields no extractable text.
	ErrNoText = errors.New("no text could be extracted")
)
