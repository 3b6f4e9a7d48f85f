// Copyright 2025 The taxrag Authors
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

// Package search provides the query side of the retrieval pipeline:
// it embeds a query with the same dense and sparse encoders used at
// ingestion time and runs a fused hybrid search against the vector
// store.
package search

import (
	"context"
	"log/slog"
	"strings"

	"github.com/nathanfarq/taxrag/ai"
	"github.com/nathanfarq/taxrag/core"
)

// DefaultLimit is the number of results returned when the caller does
// not specify one.
const DefaultLimit = 5

// VectorStore is the slice of the vector store the searcher needs.
// A nil sparse vector requests a dense-only search.
type VectorStore interface {
	Search(ctx context.Context, dense []float32, sparse *core.SparseVector, limit int) ([]core.SearchResult, error)
}

// SparseEncoder produces the lexical query vector for hybrid search.
type SparseEncoder interface {
	EmbedQuery(text string) core.SparseVector
}

// Searcher answers queries against an ingested collection. Searches
// are hybrid by default; construct with WithDenseOnly to skip the
// sparse stage.
type Searcher struct {
	store     VectorStore
	embedder  ai.Embedder
	encoder   SparseEncoder
	denseOnly bool
	logger    *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithDenseOnly disables the sparse stage. The searcher then queries
// the dense slot alone and no sparse encoder is required.
func WithDenseOnly() Option {
	return func(s *Searcher) error {
		s.denseOnly = true
		return nil
	}
}

// NewSearcher creates a new searcher. encoder may be nil only when
// WithDenseOnly is given.
func NewSearcher(store VectorStore, embedder ai.Embedder, encoder SparseEncoder, opts ...Option) (*Searcher, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		store:    store,
		embedder: embedder,
		encoder:  encoder,
		logger:   slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if !s.denseOnly && s.encoder == nil {
		return nil, ErrEncoderRequired
	}

	return s, nil
}

// Search embeds the query and returns up to limit results ranked by
// fused relevance score. A limit of zero or less falls back to
// DefaultLimit.
func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]core.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	dense, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "err", err)
		return nil, err
	}

	var sparse *core.SparseVector
	if !s.denseOnly {
		sv := s.encoder.EmbedQuery(query)
		if !sv.IsEmpty() {
			sparse = &sv
		} else {
			// Nothing lexical to match on (stopwords only);
			// fall back to the dense stage alone.
			s.logger.Debug("query produced empty sparse vector", "query", query)
		}
	}

	results, err := s.store.Search(ctx, dense, sparse, limit)
	if err != nil {
		s.logger.Error("error querying vector store", "err", err)
		return nil, err
	}

	s.logger.Info("search complete", "hits", len(results), "hybrid", sparse != nil)
	return results, nil
}
