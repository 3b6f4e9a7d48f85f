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


package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nathanfarq/taxrag/core"
)

const defaultVectorSize = 1536

// Store is a REST client for a Qdrant collection configured for hybrid
// retrieval. The collection must pre-exist with two named vector slots,
// "<source>-dense" (cosine) and "<source>-sparse" (IDF modifier); this
// pipeline never creates collections.
type Store struct {
	url        string
	apiKey     string
	collection string
	source     string
	vectorSize int
	denseSlot  string
	sparseSlot string
	client     *http.Client
	logger     *slog.Logger
}

// Config holds connection and schema settings for a Store.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Source     string
	VectorSize int           // Default: 1536
	Timeout    time.Duration // Default: 30s
}

// New connects to the store and validates the collection schema before
// any read or write. Returns a *ConfigError if the collection is missing
// or either named vector slot does not match expectations; the pipeline
// must not start accepting documents against a misconfigured collection.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URL == "" {
		return nil, ErrURLRequired
	}
	if cfg.Collection == "" {
		return nil, ErrCollectionRequired
	}
	if cfg.Source == "" {
		return nil, ErrSourceRequired
	}

	vectorSize := cfg.VectorSize
	if vectorSize == 0 {
		vectorSize = defaultVectorSize
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	s := &Store{
		url:        strings.TrimSuffix(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		source:     cfg.Source,
		vectorSize: vectorSize,
		denseSlot:  cfg.Source + "-dense",
		sparseSlot: cfg.Source + "-sparse",
		client:     &http.Client{Timeout: timeout},
		logger:     slog.Default().With("component", "qdrant", "collection", cfg.Collection),
	}

	if err := s.validateCollection(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("collection validated",
		"dense", s.denseSlot, "size", s.vectorSize, "sparse", s.sparseSlot)
	return s, nil
}

// collectionConfig mirrors the parts of the collection description the
// validation inspects.
type collectionConfig struct {
	PointsCount uint64 `json:"points_count"`
	Config      struct {
		Params struct {
			Vectors map[string]struct {
				Size     int    `json:"size"`
				Distance string `json:"distance"`
			} `json:"vectors"`
			SparseVectors map[string]json.RawMessage `json:"sparse_vectors"`
		} `json:"params"`
	} `json:"config"`
}

func (s *Store) validateCollection(ctx context.Context) error {
	// 1. Confirm the collection exists at all, so a missing collection
	// gets the full remediation message rather than a bare 404.
	var listing struct {
		Result struct {
			Collections []struct {
				Name string `json:"name"`
			} `json:"collections"`
		} `json:"result"`
	}
	if err := s.getJSON(ctx, s.url+"/collections", &listing); err != nil {
		return fmt.Errorf("listing collections: %w", err)
	}

	exists := false
	for _, c := range listing.Result.Collections {
		if c.Name == s.collection {
			exists = true
			break
		}
	}
	if !exists {
		return configErrorf(
			"collection %q does not exist; create it manually with a named dense vector %q (size=%d, distance=Cosine) and a named sparse vector %q (modifier=IDF)",
			s.collection, s.denseSlot, s.vectorSize, s.sparseSlot)
	}

	// 2. Inspect the vector schema.
	var info struct {
		Result collectionConfig `json:"result"`
	}
	if err := s.getJSON(ctx, s.url+"/collections/"+s.collection, &info); err != nil {
		return fmt.Errorf("fetching collection config: %w", err)
	}

	dense, ok := info.Result.Config.Params.Vectors[s.denseSlot]
	if !ok {
		return configErrorf(
			"dense vector %q not found in collection %q; recreate the collection with a named dense vector %q",
			s.denseSlot, s.collection, s.denseSlot)
	}
	if dense.Size != s.vectorSize {
		return configErrorf(
			"dense vector %q has size=%d but expected size=%d; recreate the collection with the correct vector size",
			s.denseSlot, dense.Size, s.vectorSize)
	}
	if !strings.EqualFold(dense.Distance, "cosine") {
		return configErrorf(
			"dense vector %q has distance=%q but Cosine distance is required; recreate the collection with distance=Cosine",
			s.denseSlot, dense.Distance)
	}

	// The IDF modifier is not surfaced in the collection config response,
	// so only slot presence can be verified here.
	if _, ok := info.Result.Config.Params.SparseVectors[s.sparseSlot]; !ok {
		return configErrorf(
			"sparse vector %q not found in collection %q; recreate the collection with a named sparse vector %q and modifier=IDF",
			s.sparseSlot, s.collection, s.sparseSlot)
	}

	return nil
}

// Store persists points in one bulk upsert. Each point receives a
// freshly generated unique id; retried flushes therefore produce new
// records rather than overwriting earlier attempts. Points are validated
// before the request is issued — malformed chunk metadata aborts the
// whole upsert rather than being dropped silently.
func (s *Store) Store(ctx context.Context, points []core.Point) error {
	if len(points) == 0 {
		return nil
	}

	records := make([]map[string]any, len(points))
	for i := range points {
		if err := core.ValidatePoint(&points[i]); err != nil {
			return err
		}

		points[i].ID = uuid.NewString()
		records[i] = map[string]any{
			"id": points[i].ID,
			"vector": map[string]any{
				s.denseSlot: points[i].Dense,
				s.sparseSlot: map[string]any{
					"indices": points[i].Sparse.Indices,
					"values":  points[i].Sparse.Values,
				},
			},
			"payload": chunkPayload(&points[i].Chunk),
		}
	}

	body := map[string]any{"points": records}
	url := fmt.Sprintf("%s/collections/%s/points?wait=true", s.url, s.collection)
	if err := s.putJSON(ctx, url, body); err != nil {
		return err
	}

	s.logger.Info("stored chunks", "points", len(records))
	return nil
}

// chunkPayload flattens a chunk and its provenance into the persisted
// payload shape: parent_* fields are renamed to their plain names.
func chunkPayload(chunk *core.Chunk) map[string]any {
	return map[string]any{
		"chunk_text":   chunk.Text,
		"chunk_index":  chunk.Index,
		"total_chunks": chunk.Total,
		"title":        chunk.Title,
		"url":          chunk.URL,
		"source":       chunk.Source,
		"doc_type":     chunk.DocType,
		"scraped_at":   chunk.ScrapedAt,
	}
}

// Search runs a top-limit query. With a sparse query it issues one
// hybrid request carrying two prefetch stages, dense and sparse, each at
// twice the requested limit; the store fuses and reranks the candidates
// into the final ranking. Without a sparse query it issues a dense-only
// request with no prefetch stage.
func (s *Store) Search(ctx context.Context, dense []float32, sparse *core.SparseVector, limit int) ([]core.SearchResult, error) {
	if limit <= 0 {
		limit = 5
	}

	req := map[string]any{
		"query":        dense,
		"using":        s.denseSlot,
		"limit":        limit,
		"with_payload": true,
	}
	if sparse != nil {
		req["prefetch"] = []map[string]any{
			{
				"query": dense,
				"using": s.denseSlot,
				"limit": limit * 2,
			},
			{
				"query": map[string]any{
					"indices": sparse.Indices,
					"values":  sparse.Values,
				},
				"using": s.sparseSlot,
				"limit": limit * 2,
			},
		}
	}

	var resp struct {
		Result struct {
			Points []struct {
				ID      any            `json:"id"`
				Score   float32        `json:"score"`
				Payload map[string]any `json:"payload"`
			} `json:"points"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/query", s.url, s.collection)
	if err := s.postJSON(ctx, url, req, &resp); err != nil {
		return nil, err
	}

	results := make([]core.SearchResult, 0, len(resp.Result.Points))
	for _, p := range resp.Result.Points {
		results = append(results, core.SearchResult{
			ID:    fmt.Sprintf("%v", p.ID),
			Score: p.Score,
			Chunk: chunkFromPayload(p.Payload),
		})
	}
	return results, nil
}

func chunkFromPayload(payload map[string]any) core.Chunk {
	chunk := core.Chunk{}
	if v, ok := payload["chunk_text"].(string); ok {
		chunk.Text = v
	}
	if v, ok := payload["chunk_index"].(float64); ok {
		chunk.Index = int(v)
	}
	if v, ok := payload["total_chunks"].(float64); ok {
		chunk.Total = int(v)
	}
	if v, ok := payload["title"].(string); ok {
		chunk.Title = v
	}
	if v, ok := payload["url"].(string); ok {
		chunk.URL = v
	}
	if v, ok := payload["source"].(string); ok {
		chunk.Source = v
	}
	if v, ok := payload["doc_type"].(string); ok {
		chunk.DocType = v
	}
	if v, ok := payload["scraped_at"].(string); ok {
		chunk.ScrapedAt = v
	}
	return chunk
}

// Count returns the exact number of points in the collection.
func (s *Store) Count(ctx context.Context) (uint64, error) {
	var resp struct {
		Result struct {
			Count uint64 `json:"count"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/count", s.url, s.collection)
	if err := s.postJSON(ctx, url, map[string]any{"exact": true}, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

// Info returns read-only collection metadata.
func (s *Store) Info(ctx context.Context) (*core.CollectionInfo, error) {
	var info struct {
		Result collectionConfig `json:"result"`
	}
	if err := s.getJSON(ctx, s.url+"/collections/"+s.collection, &info); err != nil {
		return nil, err
	}

	return &core.CollectionInfo{
		Name:       s.collection,
		Source:     s.source,
		Points:     info.Result.PointsCount,
		DenseSlot:  s.denseSlot,
		SparseSlot: s.sparseSlot,
	}, nil
}

// DeleteCollection permanently deletes the collection and every point in
// it. Intended for test and teardown paths only.
func (s *Store) DeleteCollection(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		s.url+"/collections/"+s.collection, nil)
	if err != nil {
		return err
	}
	s.setHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant DELETE %s failed: %s", req.URL, resp.Status)
	}

	s.logger.Info("collection deleted")
	return nil
}

func (s *Store) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
}

func (s *Store) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	s.setHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant GET %s failed: %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (s *Store) putJSON(ctx context.Context, url string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	s.setHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant PUT %s failed: %s", url, resp.Status)
	}
	return nil
}

func (s *Store) postJSON(ctx context.Context, url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	s.setHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant POST %s failed: %s", url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
