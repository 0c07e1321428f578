package reembed

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when a backoff allows no attempts.
	ErrInvalidMaxAttempts = errors.New("max attempts must be greater than 0")

	// ErrRepositoryRequired is returned when no chunk repository is given.
	ErrRepositoryRequired = errors.New("chunk repository required")

	// ErrEmbedderRequired is returned when no embedder is given.
	ErrEmbedderRequired = errors.New("embedder required")
)
