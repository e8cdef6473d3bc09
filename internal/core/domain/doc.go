// Package domain defines the core entities for docqa.
//
// This package is the innermost layer of the hexagonal architecture.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: normalised plain text of one source file
//   - Chunk: an overlapping window of a document's text
//   - SearchHit: a chunk returned by similarity search
//   - Answer: a grounded completion with the chunks it was built from
//   - IndexManifest: the persisted header of a vector index
//   - RawDocument: opaque bytes read from a source file
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
