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


package core

import "fmt"

// ValidateDocument rejects documents with neither title nor content.
// Such documents embed to nothing useful and usually indicate a broken
// crawl artifact.
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrEmptyDocument)
	}
	if doc.Title == "" && doc.Content == "" {
		return ErrEmptyDocument
	}
	return nil
}

// ValidateChunk validates a single Chunk's metadata.
//
// Validation rules:
//   - Total must be at least 1
//   - Index must be within [0, Total)
//
// Text is NOT validated: an empty document legitimately yields one
// empty chunk.
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.Total < 1 {
		return fmt.Errorf("%w: total %d", ErrInvalidChunk, chunk.Total)
	}

	if chunk.Index < 0 || chunk.Index >= chunk.Total {
		return fmt.Errorf("%w: %w: index %d, total %d",
			ErrInvalidChunk, ErrChunkIndexRange, chunk.Index, chunk.Total)
	}

	return nil
}

// ValidateChunkSequence validates that chunks form a complete document:
// indices are exactly 0..Total-1 in order and Total agrees everywhere.
func ValidateChunkSequence(chunks []Chunk) error {
	for i := range chunks {
		if err := ValidateChunk(&chunks[i]); err != nil {
			return err
		}
		if chunks[i].Index != i {
			return fmt.Errorf("%w: %w: position %d has index %d",
				ErrInvalidChunk, ErrChunkSequence, i, chunks[i].Index)
		}
		if chunks[i].Total != len(chunks) {
			return fmt.Errorf("%w: total %d for a sequence of %d chunks",
				ErrInvalidChunk, chunks[i].Total, len(chunks))
		}
	}
	return nil
}

// ValidateSparseVector validates a SparseVector's structural invariants:
// matched lengths, strictly ascending indices, strictly positive values.
func ValidateSparseVector(v *SparseVector) error {
	if v == nil {
		return fmt.Errorf("%w: vector is nil", ErrSparseShape)
	}

	if len(v.Indices) != len(v.Values) {
		return fmt.Errorf("%w: %d indices, %d values",
			ErrSparseShape, len(v.Indices), len(v.Values))
	}

	for i := range v.Indices {
		if i > 0 && v.Indices[i] <= v.Indices[i-1] {
			return fmt.Errorf("%w: index %d follows %d",
				ErrSparseOrder, v.Indices[i], v.Indices[i-1])
		}
		if v.Values[i] <= 0 {
			return fmt.Errorf("%w: value %f at position %d",
				ErrSparseValue, v.Values[i], i)
		}
	}

	return nil
}

// ValidatePoint validates a Point before persistence. Malformed chunk
// metadata is never silently dropped: a bad point aborts the upsert.
func ValidatePoint(p *Point) error {
	if p == nil {
		return fmt.Errorf("%w: point is nil", ErrInvalidPoint)
	}

	if len(p.Dense) == 0 {
		return fmt.Errorf("%w: missing dense vector", ErrInvalidPoint)
	}

	if err := ValidateChunk(&p.Chunk); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPoint, err)
	}

	if err := ValidateSparseVector(&p.Sparse); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPoint, err)
	}

	return nil
}
