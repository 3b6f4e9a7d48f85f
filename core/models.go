package core

// Document is a single crawled page handed off by the crawler.
// Documents are transient: they live in the spool or in an ingestion
// batch until chunked, embedded and persisted.
type Document struct {
	Title     string
	Content   string
	URL       string
	Source    string
	DocType   string
	ScrapedAt string // Timestamp string as recorded by the crawler
}

// Chunk is a bounded contiguous slice of a document's text, the unit of
// embedding and storage. Provenance fields are copied verbatim from the
// parent document.
//
// Invariant: 0 <= Index < Total, indices for one document are contiguous
// starting at 0, and Total is identical across all chunks of the document.
type Chunk struct {
	Text      string
	Index     int
	Total     int
	Title     string
	URL       string
	Source    string
	DocType   string
	ScrapedAt string
}

// SparseVector is a term-indexed lexical weight vector. Indices are
// strictly ascending with no duplicates; values are strictly positive
// and pair one-to-one with indices.
type SparseVector struct {
	Indices []uint32
	Values  []float32
}

// IsEmpty reports whether the vector carries no term mass.
func (v SparseVector) IsEmpty() bool {
	return len(v.Indices) == 0
}

// Point is one record persisted to the vector store: a chunk with its
// dense and sparse embeddings. ID is assigned by the store client at
// upsert time, freshly generated per attempt and never content-derived.
type Point struct {
	ID     string
	Dense  []float32
	Sparse SparseVector
	Chunk  Chunk
}

// SearchResult is a ranked hit returned by the store.
type SearchResult struct {
	ID    string
	Score float32
	Chunk Chunk
}

// CollectionInfo describes the store collection this pipeline writes to.
type CollectionInfo struct {
	Name       string
	Source     string
	Points     uint64
	DenseSlot  string
	SparseSlot string
}
