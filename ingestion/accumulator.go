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


package ingestion

import (
	"context"
	"log/slog"
	"time"

	"github.com/nathanfarq/taxrag/core"
	"github.com/nathanfarq/taxrag/sparse"
)

// Store is the persistence surface the accumulator flushes into.
type Store interface {
	Store(ctx context.Context, points []core.Point) error
}

// FlushResult reports the outcome of one flush attempt so callers can
// escalate after repeated failures instead of looping silently.
type FlushResult struct {
	// Flushed is the number of points persisted; zero when nothing was
	// flushed or the flush failed.
	Flushed int

	// Retained is true when the flush failed and the batch was kept for
	// retry on the next trigger.
	Retained bool

	// Err is the failure that caused retention, nil on success. The error
	// is reported, never raised: the crawl loop keeps running.
	Err error

	// ConsecutiveFailures counts flush attempts that have failed in a row,
	// reset on any success.
	ConsecutiveFailures int
}

// Accumulator owns an ordered batch of documents awaiting flush.
//
// Delivery is at-least-once: a failed flush retains the batch, and the
// retried flush generates fresh point ids, so duplicates in storage are
// possible. No dedup key exists.
//
// The accumulator is not internally synchronized. One producer feeds it
// sequentially; concurrent callers must serialize externally.
type Accumulator struct {
	batchSize      int
	batch          []core.Document
	embedder       *DocumentEmbedder
	encoder        *sparse.Encoder
	store          Store
	maxRetries     int
	retryBaseDelay time.Duration
	failures       int
	logger         *slog.Logger
}

// AccumulatorOption configures an Accumulator.
type AccumulatorOption func(*Accumulator)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) AccumulatorOption {
	return func(a *Accumulator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithRetry sets the retry policy applied to the store upsert inside a
// flush. Defaults to 3 attempts with a 1s base delay. The batch-retained
// policy still applies when attempts are exhausted.
func WithRetry(maxAttempts int, baseDelay time.Duration) AccumulatorOption {
	return func(a *Accumulator) {
		if maxAttempts > 0 {
			a.maxRetries = maxAttempts
		}
		if baseDelay > 0 {
			a.retryBaseDelay = baseDelay
		}
	}
}

// NewAccumulator creates an accumulator that flushes every batchSize
// documents. batchSize 0 disables size-triggered flushing entirely: the
// batch grows until the owning crawl loop calls Flush at end-of-crawl.
func NewAccumulator(batchSize int, embedder *DocumentEmbedder, encoder *sparse.Encoder, store Store, opts ...AccumulatorOption) (*Accumulator, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if encoder == nil {
		return nil, ErrEncoderRequired
	}
	if store == nil {
		return nil, ErrStoreRequired
	}

	a := &Accumulator{
		batchSize:      batchSize,
		embedder:       embedder,
		encoder:        encoder,
		store:          store,
		maxRetries:     3,
		retryBaseDelay: time.Second,
		logger:         slog.Default().With("component", "accumulator"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Len returns the number of documents awaiting flush.
func (a *Accumulator) Len() int {
	return len(a.batch)
}

// Add appends a document to the batch. When batching is enabled and the
// batch reaches the configured size, Add synchronously flushes before
// returning; the returned FlushResult describes that flush. When no
// flush was triggered the zero FlushResult is returned.
func (a *Accumulator) Add(ctx context.Context, doc core.Document) FlushResult {
	a.batch = append(a.batch, doc)

	if a.batchSize > 0 && len(a.batch) >= a.batchSize {
		a.logger.Debug("batch threshold reached", "size", len(a.batch))
		return a.Flush(ctx)
	}
	return FlushResult{}
}

// Flush embeds and persists the current batch. A no-op on an empty
// batch. On success the batch is cleared; on any failure the error is
// logged if retention applies, the batch is kept intact for the next
// trigger, and the failure is reported in the result rather than raised.
//
// The owning crawl loop must call Flush unconditionally after the last
// document, regardless of the threshold, so a partial batch is never
// silently dropped.
func (a *Accumulator) Flush(ctx context.Context) FlushResult {
	if len(a.batch) == 0 {
		return FlushResult{}
	}

	points, err := a.assemblePoints(ctx)
	if err == nil {
		err = RetryWithBackoff(ctx, func() error {
			return a.store.Store(ctx, points)
		}, a.maxRetries, a.retryBaseDelay)
	}

	if err != nil {
		a.failures++
		a.logger.Error("flush failed, batch retained for retry",
			"documents", len(a.batch), "consecutiveFailures", a.failures, "err", err)
		return FlushResult{
			Retained:            true,
			Err:                 err,
			ConsecutiveFailures: a.failures,
		}
	}

	flushed := len(points)
	a.batch = a.batch[:0]
	a.failures = 0
	a.logger.Info("flushed batch", "points", flushed)
	return FlushResult{Flushed: flushed}
}

// assemblePoints runs the embedding sequence for the batch: chunk and
// dense-embed the documents, sparse-encode the chunk texts, then zip
// both outputs with chunk metadata into points.
func (a *Accumulator) assemblePoints(ctx context.Context) ([]core.Point, error) {
	embedded, err := a.embedder.EmbedDocuments(ctx, a.batch)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(embedded))
	for i := range embedded {
		texts[i] = embedded[i].Text
	}
	sparseVectors := a.encoder.EmbedTexts(texts)

	points := make([]core.Point, len(embedded))
	for i := range embedded {
		points[i] = core.Point{
			Dense:  embedded[i].Vector,
			Sparse: sparseVectors[i],
			Chunk:  embedded[i].Chunk,
		}
	}
	return points, nil
}
