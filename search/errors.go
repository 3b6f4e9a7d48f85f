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

package search

import "errors"

var (
	// ErrStoreRequired is returned when a Searcher is constructed
	// without a vector store.
	ErrStoreRequired = errors.New("vector store is required")

	// ErrEmbedderRequired is returned when a Searcher is constructed
	// without a dense embedder.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrEncoderRequired is returned when a hybrid Searcher is
	// constructed without a sparse encoder.
	ErrEncoderRequired = errors.New("sparse encoder is required")

	// ErrEmptyQuery is returned when Search is called with a blank
	// query string.
	ErrEmptyQuery = errors.New("query must not be empty")
)
