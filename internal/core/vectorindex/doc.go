// Package vectorindex implements the in-memory nearest-neighbour index
// built over one document's chunks.
//
// An Index is immutable once built or loaded and is safe for concurrent
// searches. Similarity is cosine similarity, used for both build-time
// normalisation and query-time scoring. Equal scores keep insertion order.
//
// Persistence goes through a driven.IndexStore; the live embedder is never
// persisted and is re-attached on Load.
package vectorindex
