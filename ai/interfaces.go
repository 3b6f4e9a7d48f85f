package ai

import "context"

// Embedder generates dense vector embeddings from text for semantic
// similarity search. Implementations must be thread-safe for concurrent
// use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Used for search queries.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings.
	// The implementation batches texts into as few upstream API calls as
	// practical. The returned slice contains embeddings in the same order
	// as the input texts.
	// Returns an error if any embedding generation fails; errors are
	// propagated unmodified so the caller decides retry policy.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}
