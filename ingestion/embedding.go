package ingestion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nathanfarq/taxrag/ai"
	"github.com/nathanfarq/taxrag/chunk"
	"github.com/nathanfarq/taxrag/core"
)

// EmbeddedChunk pairs a chunk and its provenance metadata with the dense
// embedding computed for it.
type EmbeddedChunk struct {
	Text   string
	Vector []float32
	Chunk  core.Chunk
}

// DocumentEmbedder chunks documents and computes dense embeddings for
// the resulting chunk texts. Chunk texts from all documents of a batch
// are embedded together so the upstream API sees as few calls as
// practical.
type DocumentEmbedder struct {
	splitter *chunk.Splitter
	embedder ai.Embedder
	logger   *slog.Logger
}

// NewDocumentEmbedder creates a document embedder.
func NewDocumentEmbedder(splitter *chunk.Splitter, embedder ai.Embedder) (*DocumentEmbedder, error) {
	if splitter == nil {
		return nil, ErrSplitterRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	return &DocumentEmbedder{
		splitter: splitter,
		embedder: embedder,
		logger:   slog.Default().With("component", "document-embedder"),
	}, nil
}

// EmbedDocuments chunks every document and returns one EmbeddedChunk per
// chunk, preserving document order then chunk order. Provenance fields
// are copied verbatim from the source document onto every chunk.
//
// Any upstream embedding failure propagates to the caller unmodified;
// this layer performs no suppression or retry — the flush boundary owns
// that policy.
func (de *DocumentEmbedder) EmbedDocuments(ctx context.Context, docs []core.Document) ([]EmbeddedChunk, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	var chunks []core.Chunk
	for _, doc := range docs {
		texts := de.splitter.Split(doc.Title, doc.Content)
		for i, text := range texts {
			chunks = append(chunks, core.Chunk{
				Text:      text,
				Index:     i,
				Total:     len(texts),
				Title:     doc.Title,
				URL:       doc.URL,
				Source:    doc.Source,
				DocType:   doc.DocType,
				ScrapedAt: doc.ScrapedAt,
			})
		}
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}

	de.logger.Debug("generating embeddings for chunks",
		"documents", len(docs), "chunks", len(texts))
	vectors, err := de.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, err
	}

	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedding result mismatch. expected %d, received %d",
			len(chunks), len(vectors))
	}

	embedded := make([]EmbeddedChunk, len(chunks))
	for i := range chunks {
		embedded[i] = EmbeddedChunk{
			Text:   chunks[i].Text,
			Vector: vectors[i],
			Chunk:  chunks[i],
		}
	}
	return embedded, nil
}
