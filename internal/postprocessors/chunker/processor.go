// Package chunker provides a fixed-size, overlapping text window chunker.
//
// Windows are measured in characters (runes), never bytes, so multi-byte
// text is never split inside a character.
package chunker

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = domain.DefaultChunkSize

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = domain.DefaultChunkOverlap

// Window is one chunk window over a text, in rune offsets.
type Window struct {
	// Start is the rune offset of the first character.
	Start int

	// Text is the window content.
	Text string
}

// Split slides a window of size runes across text, advancing by
// size-overlap each step. The last window may be shorter than size.
// Iteration stops at the window that reaches the end of the text, so no
// empty or fully overlapped trailing window is produced. Empty text yields
// no windows.
func Split(text string, size, overlap int) ([]Window, error) {
	if err := validate(size, overlap); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, nil
	}

	runes := []rune(text)
	n := len(runes)
	step := size - overlap

	windows := make([]Window, 0, estimate(n, size, overlap))
	for start := 0; ; start += step {
		end := min(start+size, n)
		windows = append(windows, Window{Start: start, Text: string(runes[start:end])})
		if end == n {
			break
		}
	}

	return windows, nil
}

// Count returns the number of windows Split produces for a text of n runes.
func Count(n, size, overlap int) int {
	if n == 0 {
		return 0
	}
	if n <= size {
		return 1
	}
	step := size - overlap
	return (n-overlap+step-1)/step
}

func estimate(n, size, overlap int) int {
	if size <= overlap {
		return 1
	}
	return Count(n, size, overlap)
}

func validate(size, overlap int) error {
	return domain.ChunkerSettings{Size: size, Overlap: overlap}.Validate()
}

// Processor splits document content into chunks.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		p.chunkSize = size
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		p.overlap = overlap
	}
}

// New creates a chunker processor. Invalid parameters (size <= 0 or an
// overlap outside [0, size)) return domain.ErrInvalidInput.
func New(opts ...Option) (*Processor, error) {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	if err := validate(p.chunkSize, p.overlap); err != nil {
		return nil, fmt.Errorf("chunker: %w", err)
	}

	return p, nil
}

// Size returns the chunk size in characters.
func (p *Processor) Size() int {
	return p.chunkSize
}

// Overlap returns the overlap in characters.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Chunk splits the document content into chunks owned by doc.ID.
func (p *Processor) Chunk(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	windows, err := Split(doc.Content, p.chunkSize, p.overlap)
	if err != nil {
		return nil, err
	}

	chunks := make([]domain.Chunk, len(windows))
	for i, w := range windows {
		chunks[i] = domain.Chunk{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			Position:   i,
			Offset:     w.Start,
			Content:    w.Text,
		}
	}

	return chunks, nil
}
