package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDocument(t *testing.T) {
	t.Run("nil document", func(t *testing.T) {
		assert.ErrorIs(t, ValidateDocument(nil), ErrEmptyDocument)
	})

	t.Run("no title and no content", func(t *testing.T) {
		doc := Document{URL: "https://example.ca/blank"}
		assert.ErrorIs(t, ValidateDocument(&doc), ErrEmptyDocument)
	})

	t.Run("title only is valid", func(t *testing.T) {
		doc := Document{Title: "Notice of Assessment"}
		require.NoError(t, ValidateDocument(&doc))
	})

	t.Run("content only is valid", func(t *testing.T) {
		doc := Document{Content: "body text"}
		require.NoError(t, ValidateDocument(&doc))
	})
}

func TestValidateChunk(t *testing.T) {
	tests := []struct {
		name    string
		chunk   *Chunk
		wantErr error
	}{
		{
			name:  "valid single chunk",
			chunk: &Chunk{Text: "some text", Index: 0, Total: 1},
		},
		{
			name:  "valid middle chunk",
			chunk: &Chunk{Text: "middle", Index: 2, Total: 5},
		},
		{
			name:  "empty text is allowed",
			chunk: &Chunk{Text: "", Index: 0, Total: 1},
		},
		{
			name:    "nil chunk",
			chunk:   nil,
			wantErr: ErrInvalidChunk,
		},
		{
			name:    "zero total",
			chunk:   &Chunk{Index: 0, Total: 0},
			wantErr: ErrInvalidChunk,
		},
		{
			name:    "negative index",
			chunk:   &Chunk{Index: -1, Total: 3},
			wantErr: ErrChunkIndexRange,
		},
		{
			name:    "index equal to total",
			chunk:   &Chunk{Index: 3, Total: 3},
			wantErr: ErrChunkIndexRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChunk(tt.chunk)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidateChunkSequence(t *testing.T) {
	valid := []Chunk{
		{Text: "a", Index: 0, Total: 3},
		{Text: "b", Index: 1, Total: 3},
		{Text: "c", Index: 2, Total: 3},
	}
	require.NoError(t, ValidateChunkSequence(valid))

	t.Run("gap in indices", func(t *testing.T) {
		chunks := []Chunk{
			{Index: 0, Total: 2},
			{Index: 2, Total: 2},
		}
		assert.ErrorIs(t, ValidateChunkSequence(chunks), ErrChunkSequence)
	})

	t.Run("total disagrees with length", func(t *testing.T) {
		chunks := []Chunk{
			{Index: 0, Total: 3},
			{Index: 1, Total: 3},
		}
		assert.ErrorIs(t, ValidateChunkSequence(chunks), ErrInvalidChunk)
	})

	t.Run("empty sequence is valid", func(t *testing.T) {
		assert.NoError(t, ValidateChunkSequence(nil))
	})
}

func TestValidateSparseVector(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		v := &SparseVector{Indices: []uint32{1, 5, 9}, Values: []float32{0.3, 1.2, 0.1}}
		assert.NoError(t, ValidateSparseVector(v))
	})

	t.Run("empty is valid", func(t *testing.T) {
		assert.NoError(t, ValidateSparseVector(&SparseVector{}))
	})

	t.Run("length mismatch", func(t *testing.T) {
		v := &SparseVector{Indices: []uint32{1, 2}, Values: []float32{0.5}}
		assert.ErrorIs(t, ValidateSparseVector(v), ErrSparseShape)
	})

	t.Run("duplicate index", func(t *testing.T) {
		v := &SparseVector{Indices: []uint32{3, 3}, Values: []float32{0.5, 0.5}}
		assert.ErrorIs(t, ValidateSparseVector(v), ErrSparseOrder)
	})

	t.Run("descending indices", func(t *testing.T) {
		v := &SparseVector{Indices: []uint32{9, 3}, Values: []float32{0.5, 0.5}}
		assert.ErrorIs(t, ValidateSparseVector(v), ErrSparseOrder)
	})

	t.Run("non-positive value", func(t *testing.T) {
		v := &SparseVector{Indices: []uint32{1, 2}, Values: []float32{0.5, 0}}
		assert.ErrorIs(t, ValidateSparseVector(v), ErrSparseValue)
	})
}

func TestValidatePoint(t *testing.T) {
	valid := &Point{
		Dense:  []float32{0.1, 0.2},
		Sparse: SparseVector{Indices: []uint32{4}, Values: []float32{0.7}},
		Chunk:  Chunk{Text: "text", Index: 0, Total: 1},
	}
	require.NoError(t, ValidatePoint(valid))

	t.Run("missing dense vector", func(t *testing.T) {
		p := *valid
		p.Dense = nil
		assert.ErrorIs(t, ValidatePoint(&p), ErrInvalidPoint)
	})

	t.Run("bad chunk metadata", func(t *testing.T) {
		p := *valid
		p.Chunk.Index = 7
		err := ValidatePoint(&p)
		assert.ErrorIs(t, err, ErrInvalidPoint)
		assert.ErrorIs(t, err, ErrChunkIndexRange)
	})

	t.Run("bad sparse vector", func(t *testing.T) {
		p := *valid
		p.Sparse = SparseVector{Indices: []uint32{2, 1}, Values: []float32{0.5, 0.5}}
		assert.ErrorIs(t, ValidatePoint(&p), ErrSparseOrder)
	})
}
