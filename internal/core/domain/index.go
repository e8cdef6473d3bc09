package domain

import "time"

// IndexManifest is the persisted header of a vector index.
type IndexManifest struct {
	// DocumentID identifies the indexed document.
	DocumentID string

	// Model is the embedding model that produced the vectors.
	Model string

	// Dimensions is the length of every stored vector.
	Dimensions int

	// Count is the number of stored entries.
	Count int

	// ContentHash is the hash of the document content at build time.
	ContentHash string

	// ChunkSize and ChunkOverlap record the chunker parameters.
	ChunkSize    int
	ChunkOverlap int

	// CreatedAt is when the index was built.
	CreatedAt time.Time
}

// IndexSnapshot is the serialisable form of a vector index.
// Texts and Vectors are parallel and in insertion order.
type IndexSnapshot struct {
	Manifest IndexManifest
	Texts    []string
	Vectors  [][]float32
}

// DocumentInfo describes a document available for questioning.
type DocumentInfo struct {
	// ID is the derived document identifier.
	ID string `json:"id" yaml:"id"`

	// Name is the file name.
	Name string `json:"name" yaml:"name"`

	// Path is the full file path.
	Path string `json:"path" yaml:"path"`

	// Size is the file size in bytes.
	Size int64 `json:"size" yaml:"size"`

	// Indexed reports whether a persisted index exists.
	Indexed bool `json:"indexed" yaml:"indexed"`
}
