// Package ai defines the embedding service abstraction used by the
// ingestion and search paths.
//
// The Embedder interface covers dense semantic embeddings only; sparse
// lexical vectors are computed locally by the sparse package and never
// leave the process.
package ai
