package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// IndexStore persists vector index snapshots, one location per document.
type IndexStore interface {
	// Exists reports whether an index is stored for the document.
	Exists(ctx context.Context, documentID string) (bool, error)

	// Save writes the snapshot atomically, replacing any previous one.
	// Concurrent saves of the same document are last-writer-wins.
	Save(ctx context.Context, documentID string, snapshot *domain.IndexSnapshot) error

	// Load reads the snapshot. Missing data returns domain.ErrNotFound and
	// undecodable data returns domain.ErrCorruptIndex.
	Load(ctx context.Context, documentID string) (*domain.IndexSnapshot, error)

	// Manifest reads only the manifest of a stored index.
	Manifest(ctx context.Context, documentID string) (*domain.IndexManifest, error)

	// Remove deletes the stored index. Removing a missing index is not an error.
	Remove(ctx context.Context, documentID string) error

	// Location returns where the document's index lives.
	Location(documentID string) string
}
