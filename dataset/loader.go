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


// Package dataset loads crawl dataset directories of one-document-per-file
// JSON artifacts.
package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/nathanfarq/taxrag/core"
	"github.com/panjf2000/ants/v2"
)

// document is the on-disk JSON shape of one crawl export record.
type document struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	URL       string `json:"url"`
	Source    string `json:"source"`
	DocType   string `json:"doc_type"`
	ScrapedAt string `json:"scraped_at"`
}

// Loader reads crawl dataset directories: one JSON file per scraped
// document, the layout crawl frameworks write their default dataset in.
// Files are parsed concurrently on a worker pool but always delivered
// to the consumer sequentially, in file-name order, so the consumer
// needs no synchronization of its own.
type Loader struct {
	pool   *ants.Pool
	logger *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader) error

// WithPoolSize sets the worker pool size for concurrent parsing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(l *Loader) error {
		if size < 1 {
			size = 1
		}
		if l.pool != nil {
			l.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		l.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) error {
		if logger == nil {
			logger = slog.Default()
		}
		l.logger = logger
		return nil
	}
}

// NewLoader creates a dataset loader.
func NewLoader(opts ...Option) (*Loader, error) {
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	l := &Loader{
		pool:   pool,
		logger: slog.Default().With("component", "dataset-loader"),
	}
	for _, opt := range opts {
		if optErr := opt(l); optErr != nil {
			l.Release()
			return nil, optErr
		}
	}
	return l, nil
}

// Release releases the worker pool. The loader should not be used after
// calling Release.
func (l *Loader) Release() {
	if l.pool != nil {
		l.pool.Release()
	}
}

// Load reads every .json file under dir and delivers the parsed
// documents to fn one at a time, in file-name order. A parse error or a
// non-nil return from fn aborts the load; malformed crawl artifacts are
// reported, not skipped.
func (l *Loader) Load(ctx context.Context, dir string, fn func(core.Document) error) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	if len(files) == 0 {
		l.logger.Warn("no dataset files found", "dir", dir)
		return nil
	}

	l.logger.Info("loading dataset", "dir", dir, "files", len(files))

	docs := make([]core.Document, len(files))
	errs := make([]error, len(files))
	var wg sync.WaitGroup
	for i, path := range files {
		wg.Add(1)
		submitErr := l.pool.Submit(func() {
			defer wg.Done()
			docs[i], errs[i] = parseFile(path)
		})
		if submitErr != nil {
			wg.Done()
			errs[i] = submitErr
		}
	}
	wg.Wait()

	for i, path := range files {
		if errs[i] != nil {
			return fmt.Errorf("parsing %s: %w", path, errs[i])
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := fn(docs[i]); err != nil {
			return err
		}
	}
	return nil
}

func parseFile(path string) (core.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.Document{}, err
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return core.Document{}, err
	}

	out := core.Document{
		Title:     doc.Title,
		Content:   doc.Content,
		URL:       doc.URL,
		Source:    doc.Source,
		DocType:   doc.DocType,
		ScrapedAt: doc.ScrapedAt,
	}
	if err := core.ValidateDocument(&out); err != nil {
		return core.Document{}, err
	}
	return out, nil
}
