package ingestion

import "errors"

var (
	// ErrSplitterRequired is returned when a chunk splitter is not provided.
	ErrSplitterRequired = errors.New("chunk splitter required")

	// ErrEmbedderRequired is returned when a dense embedder is not provided.
	ErrEmbedderRequired = errors.New("dense embedder required")

	// ErrEncoderRequired is returned when a sparse encoder is not provided.
	ErrEncoderRequired = errors.New("sparse encoder required")

	// ErrStoreRequired is returned when a vector store is not provided.
	ErrStoreRequired = errors.New("vector store required")

	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")
)
