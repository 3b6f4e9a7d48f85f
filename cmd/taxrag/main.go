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

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/nathanfarq/taxrag"
	"github.com/nathanfarq/taxrag/ai"
	"github.com/nathanfarq/taxrag/core"
	"github.com/nathanfarq/taxrag/dataset"
	"github.com/nathanfarq/taxrag/ingestion"
	"github.com/nathanfarq/taxrag/qdrant"
	"github.com/nathanfarq/taxrag/search"
	"github.com/urfave/cli/v2"
)

// storeFlags are shared by every command that talks to the vector store.
var storeFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "qdrant-url",
		Usage:   "Qdrant server URL",
		Value:   "http://localhost:6333",
		EnvVars: []string{"QDRANT_URL"},
	},
	&cli.StringFlag{
		Name:    "qdrant-api-key",
		Usage:   "Qdrant API key",
		EnvVars: []string{"QDRANT_API_KEY"},
	},
	&cli.StringFlag{
		Name:     "collection",
		Aliases:  []string{"c"},
		Usage:    "Qdrant collection name",
		Required: true,
	},
	&cli.StringFlag{
		Name:     "source",
		Aliases:  []string{"s"},
		Usage:    "Document source tag, selects the named vector slots",
		Required: true,
	},
}

// embeddingFlags configure the dense embedding provider.
var embeddingFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "embedding-host",
		Usage:   "Embedding service host URL",
		Value:   "https://api.openai.com/v1",
		EnvVars: []string{"OPENAI_BASE_URL"},
	},
	&cli.StringFlag{
		Name:    "embedding-model",
		Usage:   "Embedding model name",
		Value:   "text-embedding-3-small",
		EnvVars: []string{"EMBEDDING_MODEL"},
	},
	&cli.StringFlag{
		Name:    "api-key",
		Usage:   "Embedding service API key",
		EnvVars: []string{"OPENAI_API_KEY"},
	},
}

func main() {
	app := &cli.App{
		Name:  "taxrag",
		Usage: "Ingest crawled tax documentation into a hybrid vector collection and search it",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "ingest",
				Usage:  "Embed and upsert crawled documents from a dataset directory or spool",
				Action: ingestCommand,
				Flags: append(append([]cli.Flag{}, storeFlags...), append(embeddingFlags,
					&cli.StringFlag{
						Name:  "dataset",
						Usage: "Directory of crawl dataset JSON files (one document per file)",
					},
					&cli.StringFlag{
						Name:  "spool",
						Usage: "Path to a durable document spool to drain",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of documents accumulated before each flush",
						Value: taxrag.DefaultBatchSize,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum upsert attempts per flush",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				)...),
			},
			{
				Name:      "search",
				Usage:     "Run a hybrid search against an ingested collection",
				Action:    searchCommand,
				ArgsUsage: "<query>",
				Flags: append(append([]cli.Flag{}, storeFlags...), append(embeddingFlags,
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of results",
						Value:   search.DefaultLimit,
					},
					&cli.BoolFlag{
						Name:  "dense-only",
						Usage: "Skip the sparse stage and query the dense slot alone",
					},
				)...),
			},
			{
				Name:   "info",
				Usage:  "Show collection schema and point count",
				Action: infoCommand,
				Flags:  storeFlags,
			},
			{
				Name:   "count",
				Usage:  "Show the exact number of points in the collection",
				Action: countCommand,
				Flags:  storeFlags,
			},
			{
				Name:   "drop",
				Usage:  "Delete the collection",
				Action: dropCommand,
				Flags: append(append([]cli.Flag{}, storeFlags...),
					&cli.BoolFlag{
						Name:  "yes",
						Usage: "Confirm deletion without prompting",
					},
				),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func storeConfig(c *cli.Context) qdrant.Config {
	return qdrant.Config{
		URL:        c.String("qdrant-url"),
		APIKey:     c.String("qdrant-api-key"),
		Collection: c.String("collection"),
		Source:     c.String("source"),
	}
}

func aiConfig(c *cli.Context) *ai.Config {
	opts := []ai.ConfigOption{
		ai.WithHost(c.String("embedding-host")),
		ai.WithModel(c.String("embedding-model")),
	}
	// Keep the "none" placeholder for local OpenAI-compatible servers
	// when no key is supplied.
	if key := c.String("api-key"); key != "" {
		opts = append(opts, ai.WithToken(key))
	}
	return ai.NewConfig(opts...)
}

func ingestCommand(c *cli.Context) error {
	ctx := context.Background()

	datasetDir := c.String("dataset")
	spoolPath := c.String("spool")
	if datasetDir == "" && spoolPath == "" {
		return fmt.Errorf("either --dataset or --spool is required")
	}

	cfg := aiConfig(c)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid embedding configuration: %w", err)
	}

	sysOpts := []taxrag.SystemOption{taxrag.WithAIConfig(cfg)}
	if spoolPath != "" {
		sysOpts = append(sysOpts, taxrag.WithSpool(spoolPath))
	}

	sys, err := taxrag.NewSystem(ctx, storeConfig(c), sysOpts...)
	if err != nil {
		return fmt.Errorf("failed to initialize pipeline: %w", err)
	}
	defer sys.Close()

	acc, err := sys.NewAccumulator(c.Int("batch-size"),
		ingestion.WithRetry(c.Int("max-retries"), c.Duration("retry-delay")))
	if err != nil {
		return fmt.Errorf("failed to create accumulator: %w", err)
	}

	total := 0
	if datasetDir != "" {
		loader, err := dataset.NewLoader()
		if err != nil {
			return fmt.Errorf("failed to create dataset loader: %w", err)
		}
		defer loader.Release()

		err = loader.Load(ctx, datasetDir, func(doc core.Document) error {
			total++
			if res := acc.Add(ctx, doc); res.Err != nil {
				slog.Warn("batch flush failed, documents retained",
					"retained", res.Retained, "err", res.Err)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("loading dataset: %w", err)
		}

		if res := acc.Flush(ctx); res.Err != nil {
			return fmt.Errorf("final flush failed with documents retained=%v: %w", res.Retained, res.Err)
		}
	}

	if spoolPath != "" {
		fed, err := sys.IngestSpool(ctx, acc)
		total += fed
		if err != nil {
			return fmt.Errorf("draining spool: %w", err)
		}
	}

	// The closing count is informational; a failed count must not fail
	// an otherwise successful ingest.
	count, err := sys.Store().Count(ctx)
	if err != nil {
		slog.Warn("failed to count points after ingest", "err", err)
		count = 0
	}

	fmt.Fprintf(os.Stderr, "Ingested %d documents; collection now holds %d points\n", total, count)
	return nil
}

func searchCommand(c *cli.Context) error {
	ctx := context.Background()

	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("a query argument is required")
	}

	cfg := aiConfig(c)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid embedding configuration: %w", err)
	}

	sys, err := taxrag.NewSystem(ctx, storeConfig(c), taxrag.WithAIConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to initialize pipeline: %w", err)
	}
	defer sys.Close()

	var searchOpts []search.Option
	if c.Bool("dense-only") {
		searchOpts = append(searchOpts, search.WithDenseOnly())
	}

	searcher, err := sys.NewSearcher(searchOpts...)
	if err != nil {
		return fmt.Errorf("failed to create searcher: %w", err)
	}

	results, err := searcher.Search(ctx, query, c.Int("limit"))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}

	for i, r := range results {
		fmt.Printf("%d. [%.4f] %s\n", i+1, r.Score, r.Chunk.Title)
		fmt.Printf("   %s (chunk %d/%d)\n", r.Chunk.URL, r.Chunk.Index+1, r.Chunk.Total)
		fmt.Printf("   %s\n\n", excerpt(r.Chunk.Text, 240))
	}
	return nil
}

func infoCommand(c *cli.Context) error {
	ctx := context.Background()

	store, err := qdrant.New(ctx, storeConfig(c))
	if err != nil {
		return fmt.Errorf("failed to connect to store: %w", err)
	}

	info, err := store.Info(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch collection info: %w", err)
	}

	fmt.Printf("Collection: %s\n", info.Name)
	fmt.Printf("Source:     %s\n", info.Source)
	fmt.Printf("Points:     %d\n", info.Points)
	fmt.Printf("Dense:      %s\n", info.DenseSlot)
	fmt.Printf("Sparse:     %s\n", info.SparseSlot)
	return nil
}

func countCommand(c *cli.Context) error {
	ctx := context.Background()

	store, err := qdrant.New(ctx, storeConfig(c))
	if err != nil {
		return fmt.Errorf("failed to connect to store: %w", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count points: %w", err)
	}

	fmt.Println(count)
	return nil
}

func dropCommand(c *cli.Context) error {
	ctx := context.Background()

	if !c.Bool("yes") {
		return fmt.Errorf("refusing to delete collection %q without --yes", c.String("collection"))
	}

	store, err := qdrant.New(ctx, storeConfig(c))
	if err != nil {
		return fmt.Errorf("failed to connect to store: %w", err)
	}

	if err := store.DeleteCollection(ctx); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Deleted collection %q\n", c.String("collection"))
	return nil
}

// excerpt trims s to at most n runes, on a word boundary where possible.
func excerpt(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	cut := string(runes[:n])
	if i := strings.LastIndex(cut, " "); i > n/2 {
		cut = cut[:i]
	}
	return cut + "…"
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
