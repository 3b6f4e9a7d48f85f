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


// Package sparse encodes chunk texts and queries as lexical sparse
// vectors for the hybrid search prefetch stage.
package sparse

import (
	"encoding/binary"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/go-crypt/x/blake2b"
	"github.com/nathanfarq/taxrag/core"
)

// Encoder computes local lexical sparse vectors for chunk texts and
// search queries. Each present term is hashed to a stable index and
// weighted by saturated term frequency; the store's IDF modifier
// supplies the corpus-level weighting at query time.
//
// Encoding is a pure local computation with no network calls, safe for
// concurrent use.
type Encoder struct {
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

// NewEncoder creates a sparse lexical encoder.
func NewEncoder() *Encoder {
	return &Encoder{
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`),
		stopwords:    defaultStopwords(),
	}
}

// EmbedTexts encodes a batch of texts, one vector per text, order
// preserved. An empty input yields an empty output.
func (e *Encoder) EmbedTexts(texts []string) []core.SparseVector {
	vectors := make([]core.SparseVector, len(texts))
	for i, text := range texts {
		vectors[i] = e.encode(text)
	}
	return vectors
}

// EmbedQuery encodes a single search query.
func (e *Encoder) EmbedQuery(text string) core.SparseVector {
	return e.encode(text)
}

func (e *Encoder) encode(text string) core.SparseVector {
	tokens := e.tokenize(text)
	if len(tokens) == 0 {
		return core.SparseVector{}
	}

	// Term frequencies keyed by hashed index. Hash collisions merge their
	// counts, which is harmless at 32 bits for vocabulary-sized inputs.
	tf := make(map[uint32]int, len(tokens))
	for _, tok := range tokens {
		tf[termIndex(tok)]++
	}

	indices := make([]uint32, 0, len(tf))
	for idx := range tf {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	values := make([]float32, len(indices))
	for i, idx := range indices {
		// Sublinear TF saturation; always > 0 for present terms.
		values[i] = float32(1 + math.Log(float64(tf[idx])))
	}

	return core.SparseVector{Indices: indices, Values: values}
}

func (e *Encoder) tokenize(text string) []string {
	raw := e.tokenPattern.FindAllString(strings.ToLower(text), -1)
	if len(raw) == 0 {
		return nil
	}
	out := raw[:0]
	for _, tok := range raw {
		if _, isStop := e.stopwords[tok]; isStop {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// termIndex hashes a term to a stable 32-bit vocabulary index using
// BLAKE2b. The same term always maps to the same index across processes,
// so document-side and query-side vectors align.
func termIndex(term string) uint32 {
	h, _ := blake2b.New(4, nil)
	h.Write([]byte(term))
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint32(sum)
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for",
		"to", "of", "in", "on", "at", "by", "with", "as", "is", "are",
		"was", "were", "be", "been", "being", "it", "this", "that",
		"these", "those", "from", "up", "down", "over", "under", "again",
		"further", "than", "so", "such", "into", "about", "between",
		"through", "during", "before", "after", "above", "below", "out",
		"off", "own", "same", "too", "very", "can", "will", "just",
		"should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
