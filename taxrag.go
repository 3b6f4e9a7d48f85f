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

// Package taxrag assembles the ingestion and retrieval pipeline for
// crawled tax documentation: word-window chunking, dense and sparse
// query/document embedding, batched upserts into a hybrid Qdrant
// collection, and fused hybrid search over it.
package taxrag

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nathanfarq/taxrag/ai"
	"github.com/nathanfarq/taxrag/ai/openai"
	"github.com/nathanfarq/taxrag/chunk"
	"github.com/nathanfarq/taxrag/ingestion"
	"github.com/nathanfarq/taxrag/qdrant"
	"github.com/nathanfarq/taxrag/search"
	"github.com/nathanfarq/taxrag/sparse"
	"github.com/nathanfarq/taxrag/spool"
)

// DefaultBatchSize is the number of documents accumulated before a
// flush is triggered during ingestion.
const DefaultBatchSize = 50

// ErrNoSpool is returned by IngestSpool when the system was built
// without WithSpool.
var ErrNoSpool = errors.New("system has no document spool")

// System wires the pipeline components around a single source
// collection. Construct one per ingestion or search session and Close
// it when done.
type System struct {
	store    *qdrant.Store
	embedder ai.Embedder
	encoder  *sparse.Encoder
	splitter *chunk.Splitter
	spool    *spool.Spool
	logger   *slog.Logger
}

// SystemOption configures a System.
type SystemOption func(*systemOptions)

type systemOptions struct {
	aiConfig  *ai.Config
	spoolPath string
	splitter  []chunk.Option
}

// WithAIConfig overrides the embedding provider configuration.
// Default is ai.DefaultConfig().
func WithAIConfig(cfg *ai.Config) SystemOption {
	return func(o *systemOptions) {
		if cfg != nil {
			o.aiConfig = cfg
		}
	}
}

// WithSpool opens a durable document spool at filePath so crawled
// documents survive a restart between crawl and ingestion. Without
// this option Spool() returns nil.
func WithSpool(filePath string) SystemOption {
	return func(o *systemOptions) {
		o.spoolPath = filePath
	}
}

// WithSplitterOptions overrides the chunking thresholds.
func WithSplitterOptions(opts ...chunk.Option) SystemOption {
	return func(o *systemOptions) {
		o.splitter = opts
	}
}

// NewSystem connects to the vector store, validates the collection
// schema, and builds the shared embedding components. Returns before
// any document is accepted if the collection is missing or
// misconfigured.
func NewSystem(ctx context.Context, storeCfg qdrant.Config, opts ...SystemOption) (*System, error) {
	// Apply options
	options := &systemOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	store, err := qdrant.New(ctx, storeCfg)
	if err != nil {
		return nil, err
	}

	embedder, err := openai.NewEmbedder(options.aiConfig)
	if err != nil {
		return nil, err
	}

	s := &System{
		store:    store,
		embedder: embedder,
		encoder:  sparse.NewEncoder(),
		splitter: chunk.NewSplitter(options.splitter...),
		logger:   slog.Default(),
	}

	if options.spoolPath != "" {
		sp, err := spool.Open(options.spoolPath, false)
		if err != nil {
			return nil, err
		}
		s.spool = sp
	}

	return s, nil
}

func (s *System) Close() error {
	if s.spool != nil {
		if err := s.spool.Close(); err != nil {
			s.logger.Error("error closing document spool", "err", err)
			return err
		}
	}
	return nil
}

// Store exposes the underlying vector store.
func (s *System) Store() *qdrant.Store {
	return s.store
}

// Spool returns the durable document spool, or nil when the system was
// built without one.
func (s *System) Spool() *spool.Spool {
	return s.spool
}

// NewAccumulator builds the batching ingestion front end. batchSize 0
// falls back to DefaultBatchSize.
func (s *System) NewAccumulator(batchSize int, opts ...ingestion.AccumulatorOption) (*ingestion.Accumulator, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	docEmbedder, err := ingestion.NewDocumentEmbedder(s.splitter, s.embedder)
	if err != nil {
		return nil, err
	}
	return ingestion.NewAccumulator(batchSize, docEmbedder, s.encoder, s.store, opts...)
}

// NewSearcher builds the query-side service over the same embedders
// and store.
func (s *System) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	return search.NewSearcher(s.store, s.embedder, s.encoder, opts...)
}

// IngestSpool drains the document spool through acc, flushes the
// remainder, and clears the spool only if every document was persisted.
// Returns the number of documents fed to the accumulator.
func (s *System) IngestSpool(ctx context.Context, acc *ingestion.Accumulator) (int, error) {
	if s.spool == nil {
		return 0, ErrNoSpool
	}

	it := s.spool.Iter()
	defer it.Close()

	fed := 0
	for {
		doc, err := it.Next()
		if errors.Is(err, spool.ErrSpoolDrained) {
			break
		}
		if err != nil {
			return fed, err
		}
		fed++
		if res := acc.Add(ctx, *doc); res.Err != nil {
			s.logger.Warn("batch flush failed, documents retained",
				"retained", res.Retained, "consecutive_failures", res.ConsecutiveFailures, "err", res.Err)
		}
	}

	if res := acc.Flush(ctx); res.Err != nil {
		return fed, res.Err
	}
	if acc.Len() > 0 {
		// Retained documents have not been persisted; keep the
		// spool so a rerun can pick them up.
		return fed, nil
	}

	if err := s.spool.Clear(); err != nil {
		return fed, err
	}
	return fed, nil
}
