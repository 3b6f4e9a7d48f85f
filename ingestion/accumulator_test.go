package ingestion

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nathanfarq/taxrag/ai/mock"
	"github.com/nathanfarq/taxrag/chunk"
	"github.com/nathanfarq/taxrag/core"
	"github.com/nathanfarq/taxrag/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockStore records upserts and allows failure injection.
type mockStore struct {
	storeFunc func(ctx context.Context, points []core.Point) error
	upserts   [][]core.Point
}

func (m *mockStore) Store(ctx context.Context, points []core.Point) error {
	if m.storeFunc != nil {
		if err := m.storeFunc(ctx, points); err != nil {
			return err
		}
	}
	m.upserts = append(m.upserts, points)
	return nil
}

func newTestAccumulator(t *testing.T, batchSize int, embedder *mock.MockEmbedder, store Store) *Accumulator {
	t.Helper()
	de, err := NewDocumentEmbedder(chunk.NewSplitter(), embedder)
	require.NoError(t, err)
	acc, err := NewAccumulator(batchSize, de, sparse.NewEncoder(), store,
		WithRetry(1, time.Millisecond))
	require.NoError(t, err)
	return acc
}

func doc(i int) core.Document {
	return core.Document{
		Title:     fmt.Sprintf("Doc %d", i),
		Content:   fmt.Sprintf("Content %d about tax deductions", i),
		URL:       fmt.Sprintf("https://example.ca/%d", i),
		Source:    "cra",
		DocType:   "page",
		ScrapedAt: "2025-11-02T10:00:00Z",
	}
}

func TestAddBelowThresholdDoesNotFlush(t *testing.T) {
	store := &mockStore{}
	acc := newTestAccumulator(t, 5, mock.NewMockEmbedder(), store)

	for i := 1; i <= 4; i++ {
		result := acc.Add(context.Background(), doc(i))
		assert.Zero(t, result.Flushed)
		assert.Equal(t, i, acc.Len())
	}
	assert.Empty(t, store.upserts, "store must not be called below threshold")
}

func TestAddAtThresholdFlushesOnce(t *testing.T) {
	store := &mockStore{}
	embedder := mock.NewMockEmbedder()
	acc := newTestAccumulator(t, 3, embedder, store)

	acc.Add(context.Background(), doc(1))
	acc.Add(context.Background(), doc(2))
	result := acc.Add(context.Background(), doc(3))

	assert.Equal(t, 3, result.Flushed)
	assert.Equal(t, 0, acc.Len(), "batch clears after a successful flush")
	require.Len(t, store.upserts, 1)
	require.Len(t, store.upserts[0], 3)
}

func TestBatchingDisabledNeverSizeFlushes(t *testing.T) {
	store := &mockStore{}
	acc := newTestAccumulator(t, 0, mock.NewMockEmbedder(), store)

	for i := 1; i <= 10; i++ {
		acc.Add(context.Background(), doc(i))
	}
	assert.Equal(t, 10, acc.Len())
	assert.Empty(t, store.upserts)

	// The bulk completion path still persists everything.
	result := acc.Flush(context.Background())
	assert.Equal(t, 10, result.Flushed)
	assert.Equal(t, 0, acc.Len())
}

func TestFlushEmptyBatchIsNoOp(t *testing.T) {
	store := &mockStore{}
	acc := newTestAccumulator(t, 3, mock.NewMockEmbedder(), store)

	result := acc.Flush(context.Background())

	assert.Zero(t, result.Flushed)
	assert.False(t, result.Retained)
	assert.NoError(t, result.Err)
	assert.Empty(t, store.upserts)
}

func TestFlushEmbeddingFailureRetainsBatch(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	wantErr := errors.New("embedding API down")
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, wantErr
	}
	store := &mockStore{}
	acc := newTestAccumulator(t, 5, embedder, store)

	acc.Add(context.Background(), doc(1))
	acc.Add(context.Background(), doc(2))
	result := acc.Flush(context.Background())

	assert.True(t, result.Retained)
	assert.ErrorIs(t, result.Err, wantErr)
	assert.Equal(t, 2, acc.Len(), "batch length unchanged after failed flush")
	assert.Empty(t, store.upserts)
}

func TestFlushStoreFailureRetainsThenRetrySucceeds(t *testing.T) {
	store := &mockStore{}
	calls := 0
	store.storeFunc = func(ctx context.Context, points []core.Point) error {
		calls++
		if calls == 1 {
			return errors.New("connection reset")
		}
		return nil
	}
	acc := newTestAccumulator(t, 5, mock.NewMockEmbedder(), store)

	acc.Add(context.Background(), doc(1))

	first := acc.Flush(context.Background())
	assert.True(t, first.Retained)
	assert.Equal(t, 1, first.ConsecutiveFailures)
	assert.Equal(t, 1, acc.Len())

	second := acc.Flush(context.Background())
	assert.Equal(t, 1, second.Flushed)
	assert.Zero(t, second.ConsecutiveFailures)
	assert.Equal(t, 0, acc.Len())
	require.Len(t, store.upserts, 1)
}

func TestConsecutiveFailuresAccumulate(t *testing.T) {
	store := &mockStore{}
	store.storeFunc = func(ctx context.Context, points []core.Point) error {
		return errors.New("still down")
	}
	acc := newTestAccumulator(t, 0, mock.NewMockEmbedder(), store)

	acc.Add(context.Background(), doc(1))

	for want := 1; want <= 3; want++ {
		result := acc.Flush(context.Background())
		assert.True(t, result.Retained)
		assert.Equal(t, want, result.ConsecutiveFailures)
	}
}

func TestEndToEndThreeDocumentBatch(t *testing.T) {
	store := &mockStore{}
	embedder := mock.NewMockEmbedder()
	encoderSpy := sparse.NewEncoder()
	de, err := NewDocumentEmbedder(chunk.NewSplitter(), embedder)
	require.NoError(t, err)
	acc, err := NewAccumulator(3, de, encoderSpy, store, WithRetry(1, time.Millisecond))
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		acc.Add(context.Background(), doc(i))
	}

	// Exactly one dense batch call carrying all three chunk texts.
	require.Equal(t, 1, embedder.CallCount())
	require.Len(t, embedder.Batches()[0], 3)

	// One upsert with three points, all sparse vectors populated.
	require.Len(t, store.upserts, 1)
	points := store.upserts[0]
	require.Len(t, points, 3)
	for i, p := range points {
		assert.Contains(t, p.Chunk.Title, fmt.Sprintf("Doc %d", i+1))
		assert.False(t, p.Sparse.IsEmpty())
		assert.NoError(t, core.ValidatePoint(&p))
	}

	assert.Equal(t, 0, acc.Len())
}
