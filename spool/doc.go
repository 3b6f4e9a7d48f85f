// Package spool provides the durable hand-off between the crawl
// framework and the ingestion pipeline.
//
// A crawl appends documents as it scrapes; an ingest run opens an
// iterator and feeds the accumulator one document at a time, in arrival
// order. The spool is the only place a document exists between being
// scraped and being chunked.
package spool
