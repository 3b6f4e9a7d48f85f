// Package qdrant provides the hybrid vector store client.
//
// The Store validates its collection's named-vector schema at
// construction, persists dual-vector points in bulk upserts, and issues
// hybrid (prefetch + fusion) or dense-only search requests. The
// collection itself is owned externally: it must pre-exist with the
// expected schema, and the store's indexing and fusion algorithms are
// treated as opaque.
package qdrant
