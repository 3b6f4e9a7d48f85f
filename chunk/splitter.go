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


// Package chunk splits crawled documents into bounded word-count
// chunks for embedding.
package chunk

import "strings"

const (
	// defaultMaxWords is the word count below which a document stays a
	// single chunk.
	defaultMaxWords = 1200

	// defaultChunkWords is the target word count per chunk when a
	// document is split.
	defaultChunkWords = 1000
)

// Splitter splits title-prefixed document text into bounded word-count
// chunks. Splitting is deterministic and lossless: the concatenated word
// sequence of all chunks reproduces the input's word sequence exactly,
// with no overlap.
type Splitter struct {
	maxWords   int
	chunkWords int
}

// Option configures a Splitter.
type Option func(*Splitter)

// WithMaxWords sets the single-chunk threshold.
func WithMaxWords(n int) Option {
	return func(s *Splitter) {
		if n > 0 {
			s.maxWords = n
		}
	}
}

// WithChunkWords sets the target word count per chunk.
func WithChunkWords(n int) Option {
	return func(s *Splitter) {
		if n > 0 {
			s.chunkWords = n
		}
	}
}

// NewSplitter creates a Splitter with the default thresholds.
func NewSplitter(opts ...Option) *Splitter {
	s := &Splitter{
		maxWords:   defaultMaxWords,
		chunkWords: defaultChunkWords,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Split chunks a document's text. The title is prefixed to the content
// so every chunk's document carries its heading context into retrieval.
//
// Always returns at least one chunk: an empty document yields a single
// (possibly empty) chunk rather than an empty sequence.
func (s *Splitter) Split(title, content string) []string {
	text := content
	if title != "" {
		text = title + "\n\n" + content
	}

	words := strings.Fields(text)
	if len(words) <= s.maxWords {
		return []string{text}
	}

	chunks := make([]string, 0, (len(words)+s.chunkWords-1)/s.chunkWords)
	for start := 0; start < len(words); start += s.chunkWords {
		end := start + s.chunkWords
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}
