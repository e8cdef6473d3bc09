package vectorindex

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Embedder is the embedding boundary the index is built with.
type Embedder interface {
	// Embed returns one vector per text, in order, all of one dimension.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedOne embeds a single query text.
	EmbedOne(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the vector size, or 0 if not known in advance.
	Dimensions() int

	// ModelName returns the embedding model name.
	ModelName() string
}

// Index is a cosine-similarity index over the chunks of one document.
type Index struct {
	manifest domain.IndexManifest
	texts    []string
	vectors  [][]float32
	norms    []float64
	embedder Embedder
}

// BuildOption configures manifest fields recorded at build time.
type BuildOption func(*domain.IndexManifest)

// WithContentHash records the source document's content hash.
func WithContentHash(hash string) BuildOption {
	return func(m *domain.IndexManifest) {
		m.ContentHash = hash
	}
}

// WithChunking records the chunker parameters used.
func WithChunking(size, overlap int) BuildOption {
	return func(m *domain.IndexManifest) {
		m.ChunkSize = size
		m.ChunkOverlap = overlap
	}
}

// Build embeds all chunk texts in one batched call and returns the index.
// Chunks must belong to one document. No chunks returns domain.ErrEmptyDocument.
func Build(ctx context.Context, chunks []domain.Chunk, embedder Embedder, opts ...BuildOption) (*Index, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("build index: %w", domain.ErrEmptyDocument)
	}
	if embedder == nil {
		return nil, fmt.Errorf("build index: %w: no embedder", domain.ErrInvalidInput)
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Content
	}

	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("build index: %w: got %d vectors for %d chunks",
			domain.ErrEmbeddingService, len(vectors), len(texts))
	}

	dims := len(vectors[0])
	if dims == 0 {
		return nil, fmt.Errorf("build index: %w: empty vector", domain.ErrEmbeddingService)
	}
	for i, v := range vectors {
		if len(v) != dims {
			return nil, fmt.Errorf("build index: %w: vector %d has %d dimensions, expected %d",
				domain.ErrEmbeddingDimension, i, len(v), dims)
		}
	}
	if want := embedder.Dimensions(); want > 0 && want != dims {
		return nil, fmt.Errorf("build index: %w: embedder reports %d dimensions, vectors have %d",
			domain.ErrEmbeddingDimension, want, dims)
	}

	manifest := domain.IndexManifest{
		DocumentID: chunks[0].DocumentID,
		Model:      embedder.ModelName(),
		Dimensions: dims,
		Count:      len(texts),
		CreatedAt:  time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&manifest)
	}

	return newIndex(manifest, texts, vectors, embedder), nil
}

func newIndex(manifest domain.IndexManifest, texts []string, vectors [][]float32, embedder Embedder) *Index {
	norms := make([]float64, len(vectors))
	for i, v := range vectors {
		norms[i] = norm(v)
	}
	return &Index{
		manifest: manifest,
		texts:    texts,
		vectors:  vectors,
		norms:    norms,
		embedder: embedder,
	}
}

// Len returns the number of entries.
func (x *Index) Len() int {
	return len(x.texts)
}

// Dimensions returns the vector dimension shared by every entry.
func (x *Index) Dimensions() int {
	return x.manifest.Dimensions
}

// DocumentID returns the indexed document's identifier.
func (x *Index) DocumentID() string {
	return x.manifest.DocumentID
}

// Manifest returns a copy of the index header.
func (x *Index) Manifest() domain.IndexManifest {
	return x.manifest
}

// Embedder returns the live embedder attached to the index.
func (x *Index) Embedder() Embedder {
	return x.embedder
}

// Text returns the chunk text at insertion position i.
func (x *Index) Text(i int) string {
	return x.texts[i]
}

// Search returns the min(k, Len()) entries most similar to query, in
// descending cosine similarity. Equal scores keep insertion order.
// A query of the wrong dimension or k <= 0 returns domain.ErrInvalidQuery.
func (x *Index) Search(query []float32, k int) ([]domain.SearchHit, error) {
	if len(query) != x.manifest.Dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrInvalidQuery, len(query), x.manifest.Dimensions)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidQuery, k)
	}

	qn := norm(query)
	hits := make([]domain.SearchHit, len(x.vectors))
	for i, v := range x.vectors {
		hits[i] = domain.SearchHit{
			Position:   i,
			Content:    x.texts[i],
			Similarity: cosine(query, v, qn, x.norms[i]),
		}
	}

	slices.SortStableFunc(hits, func(a, b domain.SearchHit) int {
		return cmp.Compare(b.Similarity, a.Similarity)
	})

	return hits[:min(k, len(hits))], nil
}

// SearchText embeds query with the attached embedder and searches.
func (x *Index) SearchText(ctx context.Context, query string, k int) ([]domain.SearchHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidQuery)
	}
	if x.embedder == nil {
		return nil, fmt.Errorf("%w: index has no embedder attached", domain.ErrInvalidQuery)
	}

	vec, err := x.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return x.Search(vec, k)
}

// Snapshot returns the serialisable form of the index.
// The returned slices are copies and may be modified by the caller.
func (x *Index) Snapshot() *domain.IndexSnapshot {
	texts := slices.Clone(x.texts)
	vectors := make([][]float32, len(x.vectors))
	for i, v := range x.vectors {
		vectors[i] = slices.Clone(v)
	}
	return &domain.IndexSnapshot{
		Manifest: x.manifest,
		Texts:    texts,
		Vectors:  vectors,
	}
}

// Persist writes the index to store under key. Stores replace the previous
// data atomically. I/O failures return domain.ErrPersistence.
func (x *Index) Persist(ctx context.Context, store driven.IndexStore, key string) error {
	if err := store.Save(ctx, key, x.Snapshot()); err != nil {
		if errors.Is(err, domain.ErrPersistence) {
			return fmt.Errorf("persist index %s: %w", key, err)
		}
		return fmt.Errorf("persist index %s: %w: %w", key, domain.ErrPersistence, err)
	}
	return nil
}

// Load reads the index stored under key and attaches embedder.
//
// Snapshots whose entries disagree with their declared dimension or count
// return domain.ErrCorruptIndex. A snapshot built by an embedder of another
// dimension or model returns domain.ErrEmbedderMismatch.
func Load(ctx context.Context, store driven.IndexStore, key string, embedder Embedder) (*Index, error) {
	snap, err := store.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load index %s: %w", key, err)
	}
	x, err := FromSnapshot(snap, embedder)
	if err != nil {
		return nil, fmt.Errorf("load index %s: %w", key, err)
	}
	return x, nil
}

// FromSnapshot validates a snapshot and builds an index from it.
func FromSnapshot(snap *domain.IndexSnapshot, embedder Embedder) (*Index, error) {
	if err := Validate(snap); err != nil {
		return nil, err
	}

	m := snap.Manifest
	if embedder != nil {
		if want := embedder.Dimensions(); want > 0 && want != m.Dimensions {
			return nil, fmt.Errorf("%w: index has %d dimensions (%s), embedder has %d (%s)",
				domain.ErrEmbedderMismatch, m.Dimensions, m.Model, want, embedder.ModelName())
		}
		if name := embedder.ModelName(); m.Model != "" && name != "" && name != m.Model {
			return nil, fmt.Errorf("%w: index built with %q, embedder is %q",
				domain.ErrEmbedderMismatch, m.Model, name)
		}
	}

	return newIndex(m, snap.Texts, snap.Vectors, embedder), nil
}

// Validate checks a snapshot's internal consistency.
func Validate(snap *domain.IndexSnapshot) error {
	if snap == nil {
		return fmt.Errorf("%w: nil snapshot", domain.ErrCorruptIndex)
	}
	m := snap.Manifest
	if m.Dimensions <= 0 {
		return fmt.Errorf("%w: declared dimension %d", domain.ErrCorruptIndex, m.Dimensions)
	}
	if len(snap.Texts) != len(snap.Vectors) {
		return fmt.Errorf("%w: %d texts but %d vectors", domain.ErrCorruptIndex, len(snap.Texts), len(snap.Vectors))
	}
	if len(snap.Texts) != m.Count {
		return fmt.Errorf("%w: manifest declares %d entries, found %d", domain.ErrCorruptIndex, m.Count, len(snap.Texts))
	}
	if m.Count == 0 {
		return fmt.Errorf("%w: no entries", domain.ErrCorruptIndex)
	}
	for i, v := range snap.Vectors {
		if len(v) != m.Dimensions {
			return fmt.Errorf("%w: vector %d has %d dimensions, manifest declares %d",
				domain.ErrCorruptIndex, i, len(v), m.Dimensions)
		}
	}
	return nil
}

func norm(v []float32) float64 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}

// cosine returns 0 when either vector has zero norm.
func cosine(a, b []float32, na, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (na * nb)
}
