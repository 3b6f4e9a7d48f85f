package search

import (
	"context"
	"errors"
	"testing"

	"github.com/nathanfarq/taxrag/ai/mock"
	"github.com/nathanfarq/taxrag/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	searchFunc func(ctx context.Context, dense []float32, sparse *core.SparseVector, limit int) ([]core.SearchResult, error)

	lastDense  []float32
	lastSparse *core.SparseVector
	lastLimit  int
	calls      int
}

func (m *mockStore) Search(ctx context.Context, dense []float32, sparse *core.SparseVector, limit int) ([]core.SearchResult, error) {
	m.calls++
	m.lastDense = dense
	m.lastSparse = sparse
	m.lastLimit = limit
	if m.searchFunc != nil {
		return m.searchFunc(ctx, dense, sparse, limit)
	}
	return nil, nil
}

type mockEncoder struct {
	embedQueryFunc func(text string) core.SparseVector
}

func (m *mockEncoder) EmbedQuery(text string) core.SparseVector {
	if m.embedQueryFunc != nil {
		return m.embedQueryFunc(text)
	}
	return core.SparseVector{Indices: []uint32{7}, Values: []float32{1.0}}
}

func TestNewSearcherValidation(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	encoder := &mockEncoder{}

	_, err := NewSearcher(nil, embedder, encoder)
	assert.ErrorIs(t, err, ErrStoreRequired)

	_, err = NewSearcher(&mockStore{}, nil, encoder)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = NewSearcher(&mockStore{}, embedder, nil)
	assert.ErrorIs(t, err, ErrEncoderRequired)

	_, err = NewSearcher(&mockStore{}, embedder, nil, WithDenseOnly())
	assert.NoError(t, err)
}

func TestSearchHybridPassesBothVectors(t *testing.T) {
	store := &mockStore{
		searchFunc: func(ctx context.Context, dense []float32, sparse *core.SparseVector, limit int) ([]core.SearchResult, error) {
			return []core.SearchResult{
				{ID: "a", Score: 0.9, Chunk: core.Chunk{Text: "RRSP contribution room"}},
			}, nil
		},
	}

	s, err := NewSearcher(store, mock.NewMockEmbedder(), &mockEncoder{})
	require.NoError(t, err)

	results, err := s.Search(context.Background(), "rrsp deduction limit", 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)

	assert.Equal(t, 1, store.calls)
	assert.Equal(t, 3, store.lastLimit)
	assert.Len(t, store.lastDense, 1536)
	require.NotNil(t, store.lastSparse)
	assert.Equal(t, []uint32{7}, store.lastSparse.Indices)
}

func TestSearchDenseOnlySkipsSparse(t *testing.T) {
	store := &mockStore{}

	s, err := NewSearcher(store, mock.NewMockEmbedder(), nil, WithDenseOnly())
	require.NoError(t, err)

	_, err = s.Search(context.Background(), "capital gains inclusion rate", 0)
	require.NoError(t, err)

	assert.Nil(t, store.lastSparse)
	assert.Equal(t, DefaultLimit, store.lastLimit)
}

func TestSearchEmptySparseFallsBackToDense(t *testing.T) {
	store := &mockStore{}
	encoder := &mockEncoder{
		embedQueryFunc: func(string) core.SparseVector { return core.SparseVector{} },
	}

	s, err := NewSearcher(store, mock.NewMockEmbedder(), encoder)
	require.NoError(t, err)

	_, err = s.Search(context.Background(), "the of and", 5)
	require.NoError(t, err)
	assert.Nil(t, store.lastSparse)
}

func TestSearchEmptyQuery(t *testing.T) {
	s, err := NewSearcher(&mockStore{}, mock.NewMockEmbedder(), &mockEncoder{})
	require.NoError(t, err)

	_, err = s.Search(context.Background(), "   ", 5)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestSearchEmbedderErrorPropagates(t *testing.T) {
	embedErr := errors.New("rate limited")
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, embedErr
	}

	store := &mockStore{}
	s, err := NewSearcher(store, embedder, &mockEncoder{})
	require.NoError(t, err)

	_, err = s.Search(context.Background(), "tuition credits", 5)
	assert.ErrorIs(t, err, embedErr)
	assert.Equal(t, 0, store.calls)
}

func TestSearchStoreErrorPropagates(t *testing.T) {
	storeErr := errors.New("connection refused")
	store := &mockStore{
		searchFunc: func(context.Context, []float32, *core.SparseVector, int) ([]core.SearchResult, error) {
			return nil, storeErr
		},
	}

	s, err := NewSearcher(store, mock.NewMockEmbedder(), &mockEncoder{})
	require.NoError(t, err)

	_, err = s.Search(context.Background(), "gst credit", 5)
	assert.ErrorIs(t, err, storeErr)
}
