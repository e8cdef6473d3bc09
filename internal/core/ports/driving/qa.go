package driving

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// QAService answers questions about documents.
type QAService interface {
	// Ask answers a question about the document at path, building its index
	// on first use. k <= 0 uses the configured top-K.
	Ask(ctx context.Context, path, question string, k int) (*domain.Answer, error)

	// Index builds (or loads) the document's index and returns its manifest.
	// rebuild discards any stored index first.
	Index(ctx context.Context, path string, rebuild bool) (*domain.IndexManifest, error)

	// Documents lists the supported documents in the documents directory.
	Documents(ctx context.Context) ([]domain.DocumentInfo, error)

	// Resolve maps a document name, ID or path to a file path.
	Resolve(ctx context.Context, ref string) (string, error)
}
