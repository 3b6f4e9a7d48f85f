// Package ingestion turns batches of crawled documents into persisted
// hybrid-vector points.
//
// The DocumentEmbedder chunks documents and computes dense embeddings in
// batched upstream calls. The Accumulator owns the batch lifecycle:
// documents accumulate until a size threshold or end-of-crawl flush,
// and a failed flush retains the batch for retry on the next trigger
// (at-least-once delivery, duplicates possible on retry).
package ingestion
