package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// DocumentSource lists and loads documents from a directory.
type DocumentSource interface {
	// Dir returns the documents directory.
	Dir() string

	// List returns the supported documents in the directory, sorted by name.
	// Indexed is left false; callers fill it from the index store.
	List(ctx context.Context) ([]domain.DocumentInfo, error)

	// Load reads and normalises the document at path. Failures wrap
	// domain.ErrExtraction together with domain.ErrUnsupportedFormat or
	// domain.ErrUnreadableFile.
	Load(ctx context.Context, path string) (*domain.Document, error)

	// Resolve maps a file name, document ID or path to a file path.
	// Unknown references return domain.ErrNotFound.
	Resolve(ref string) (string, error)
}
