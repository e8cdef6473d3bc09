package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// Chunker splits a document into overlapping chunks.
type Chunker interface {
	// Chunk returns the document's chunks in order.
	Chunk(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)

	// Size returns the window length in characters.
	Size() int

	// Overlap returns the characters shared by neighbouring chunks.
	Overlap() int
}
