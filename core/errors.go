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

import "errors"

// Domain validation errors
var (
	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrInvalidPoint indicates a Point failed validation.
	ErrInvalidPoint = errors.New("invalid point")

	// ErrEmptyDocument indicates a Document has no title and no content.
	ErrEmptyDocument = errors.New("document has no title or content")

	// ErrChunkIndexRange indicates a chunk index is outside [0, Total).
	ErrChunkIndexRange = errors.New("chunk index out of range")

	// ErrChunkSequence indicates chunk indices are not contiguous from 0.
	ErrChunkSequence = errors.New("chunk indices not contiguous")

	// ErrSparseShape indicates a sparse vector's indices and values differ
	// in length.
	ErrSparseShape = errors.New("sparse indices and values length mismatch")

	// ErrSparseOrder indicates sparse indices are not strictly ascending.
	ErrSparseOrder = errors.New("sparse indices not strictly ascending")

	// ErrSparseValue indicates a sparse value is not strictly positive.
	ErrSparseValue = errors.New("sparse values must be positive")
)
