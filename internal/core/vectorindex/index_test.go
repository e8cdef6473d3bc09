package vectorindex

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/postprocessors/chunker"
)

// --- Test embedders ---

// bowEmbedder is a deterministic bag-of-words embedder using feature hashing.
type bowEmbedder struct {
	dims  int
	model string
	calls int
}

func newBOW() *bowEmbedder {
	return &bowEmbedder{dims: 1024, model: "bow-test"}
}

func (e *bowEmbedder) vector(text string) []float32 {
	v := make([]float32, e.dims)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[int(h.Sum32())%e.dims]++
	}
	return v
}

func (e *bowEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *bowEmbedder) EmbedOne(_ context.Context, text string) ([]float32, error) {
	return e.vector(text), nil
}

func (e *bowEmbedder) Dimensions() int   { return e.dims }
func (e *bowEmbedder) ModelName() string { return e.model }

// fixedEmbedder returns preset vectors in order.
type fixedEmbedder struct {
	vectors [][]float32
	query   []float32
	dims    int
	model   string
	err     error
}

func (e *fixedEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.vectors[:min(len(texts), len(e.vectors))], nil
}

func (e *fixedEmbedder) EmbedOne(_ context.Context, _ string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.query, nil
}

func (e *fixedEmbedder) Dimensions() int   { return e.dims }
func (e *fixedEmbedder) ModelName() string { return e.model }

func chunksOf(docID string, texts ...string) []domain.Chunk {
	chunks := make([]domain.Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = domain.Chunk{DocumentID: docID, Position: i, Content: t}
	}
	return chunks
}

// --- Build ---

func TestBuild_EmptyChunks(t *testing.T) {
	_, err := Build(context.Background(), nil, newBOW())
	assert.ErrorIs(t, err, domain.ErrEmptyDocument)
}

func TestBuild_RecordsManifest(t *testing.T) {
	emb := newBOW()
	x, err := Build(context.Background(), chunksOf("doc_txt", "alpha", "beta"), emb,
		WithContentHash("abc123"), WithChunking(30, 5))
	require.NoError(t, err)

	m := x.Manifest()
	assert.Equal(t, "doc_txt", m.DocumentID)
	assert.Equal(t, "bow-test", m.Model)
	assert.Equal(t, 1024, m.Dimensions)
	assert.Equal(t, 2, m.Count)
	assert.Equal(t, "abc123", m.ContentHash)
	assert.Equal(t, 30, m.ChunkSize)
	assert.Equal(t, 5, m.ChunkOverlap)
	assert.False(t, m.CreatedAt.IsZero())
	assert.Equal(t, 1, emb.calls, "all chunks are embedded in one batched call")
}

func TestBuild_EmbedderErrors(t *testing.T) {
	t.Run("service error propagates", func(t *testing.T) {
		emb := &fixedEmbedder{err: domain.ErrEmbeddingService}
		_, err := Build(context.Background(), chunksOf("d", "a"), emb)
		assert.ErrorIs(t, err, domain.ErrEmbeddingService)
	})

	t.Run("wrong vector count", func(t *testing.T) {
		emb := &fixedEmbedder{vectors: [][]float32{{1, 0}}}
		_, err := Build(context.Background(), chunksOf("d", "a", "b"), emb)
		assert.ErrorIs(t, err, domain.ErrEmbeddingService)
	})

	t.Run("mixed dimensions", func(t *testing.T) {
		emb := &fixedEmbedder{vectors: [][]float32{{1, 0}, {1, 0, 0}}}
		_, err := Build(context.Background(), chunksOf("d", "a", "b"), emb)
		assert.ErrorIs(t, err, domain.ErrEmbeddingDimension)
	})

	t.Run("dimension differs from embedder", func(t *testing.T) {
		emb := &fixedEmbedder{vectors: [][]float32{{1, 0}}, dims: 3}
		_, err := Build(context.Background(), chunksOf("d", "a"), emb)
		assert.ErrorIs(t, err, domain.ErrEmbeddingDimension)
	})
}

// --- Search ---

func bruteForce(vectors [][]float32, q []float32, k int) []int {
	type scored struct {
		i int
		s float64
	}
	var all []scored
	for i, v := range vectors {
		var dot, nv, nq float64
		for j := range v {
			dot += float64(v[j]) * float64(q[j])
			nv += float64(v[j]) * float64(v[j])
			nq += float64(q[j]) * float64(q[j])
		}
		all = append(all, scored{i, dot / (math.Sqrt(nv) * math.Sqrt(nq))})
	}
	sort.SliceStable(all, func(a, b int) bool { return all[a].s > all[b].s })
	out := make([]int, 0, k)
	for _, s := range all[:k] {
		out = append(out, s.i)
	}
	return out
}

func TestSearch_MatchesBruteForce(t *testing.T) {
	vectors := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0.9, 0.1, 0},
		{0, 0, 1},
		{0.5, 0.5, 0.1},
	}
	query := []float32{1, 0.2, 0}
	emb := &fixedEmbedder{vectors: vectors, dims: 3, model: "fixed"}

	x, err := Build(context.Background(), chunksOf("d", "v0", "v1", "v2", "v3", "v4"), emb)
	require.NoError(t, err)

	hits, err := x.Search(query, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	want := bruteForce(vectors, query, 3)
	for i, h := range hits {
		assert.Equal(t, want[i], h.Position)
		assert.Equal(t, x.Text(want[i]), h.Content)
		if i > 0 {
			assert.GreaterOrEqual(t, hits[i-1].Similarity, h.Similarity)
		}
	}
}

func TestSearch_TiesKeepInsertionOrder(t *testing.T) {
	vectors := [][]float32{{1, 0}, {0, 1}, {1, 0}, {1, 0}}
	emb := &fixedEmbedder{vectors: vectors, dims: 2}
	x, err := Build(context.Background(), chunksOf("d", "a", "b", "c", "d"), emb)
	require.NoError(t, err)

	hits, err := x.Search([]float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 3}, []int{hits[0].Position, hits[1].Position, hits[2].Position})
}

func TestSearch_KLargerThanIndex(t *testing.T) {
	emb := &fixedEmbedder{vectors: [][]float32{{1, 0}, {0, 1}}, dims: 2}
	x, err := Build(context.Background(), chunksOf("d", "a", "b"), emb)
	require.NoError(t, err)

	hits, err := x.Search([]float32{1, 1}, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestSearch_InvalidQuery(t *testing.T) {
	emb := &fixedEmbedder{vectors: [][]float32{{1, 0}}, dims: 2}
	x, err := Build(context.Background(), chunksOf("d", "a"), emb)
	require.NoError(t, err)

	_, err = x.Search([]float32{1, 0, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidQuery)

	_, err = x.Search([]float32{1, 0}, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidQuery)

	_, err = x.SearchText(context.Background(), "   ", 1)
	assert.ErrorIs(t, err, domain.ErrInvalidQuery)
}

func TestSearch_ZeroVectorScoresZero(t *testing.T) {
	emb := &fixedEmbedder{vectors: [][]float32{{0, 0}, {1, 0}}, dims: 2}
	x, err := Build(context.Background(), chunksOf("d", "zero", "one"), emb)
	require.NoError(t, err)

	hits, err := x.Search([]float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, "one", hits[0].Content)
	assert.Equal(t, 0.0, hits[1].Similarity)
}

func TestEndToEnd_SkyIsBlue(t *testing.T) {
	ctx := context.Background()
	p, err := chunker.New(chunker.WithChunkSize(30), chunker.WithOverlap(5))
	require.NoError(t, err)

	doc := &domain.Document{
		ID:      "facts_txt",
		Content: "The sky is blue. The grass is green. Paris is in France.",
	}
	chunks, err := p.Chunk(ctx, doc)
	require.NoError(t, err)

	x, err := Build(ctx, chunks, newBOW())
	require.NoError(t, err)

	hits, err := x.SearchText(ctx, "What color is the sky?", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Contains(t, hits[0].Content, "sky is blue")
}

// --- Persist / Load ---

func TestPersistLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memory.NewIndexStore()
	emb := newBOW()

	x, err := Build(ctx, chunksOf("doc", "first chunk", "second chunk", "third chunk"), emb)
	require.NoError(t, err)
	require.NoError(t, x.Persist(ctx, store, "doc"))

	loaded, err := Load(ctx, store, "doc", emb)
	require.NoError(t, err)

	assert.Equal(t, x.Snapshot().Texts, loaded.Snapshot().Texts)
	assert.Equal(t, x.Snapshot().Vectors, loaded.Snapshot().Vectors)
	assert.Equal(t, x.Manifest().Count, loaded.Manifest().Count)
	assert.Same(t, emb, loaded.Embedder())
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(context.Background(), memory.NewIndexStore(), "nope", newBOW())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLoad_EmbedderMismatch(t *testing.T) {
	ctx := context.Background()
	store := memory.NewIndexStore()

	x, err := Build(ctx, chunksOf("doc", "text"), newBOW())
	require.NoError(t, err)
	require.NoError(t, x.Persist(ctx, store, "doc"))

	t.Run("different dimension", func(t *testing.T) {
		other := &bowEmbedder{dims: 512, model: "bow-test"}
		_, err := Load(ctx, store, "doc", other)
		assert.ErrorIs(t, err, domain.ErrEmbedderMismatch)
	})

	t.Run("different model", func(t *testing.T) {
		other := &bowEmbedder{dims: 1024, model: "another-model"}
		_, err := Load(ctx, store, "doc", other)
		assert.ErrorIs(t, err, domain.ErrEmbedderMismatch)
	})
}

func TestFromSnapshot_Corrupt(t *testing.T) {
	base := func() *domain.IndexSnapshot {
		return &domain.IndexSnapshot{
			Manifest: domain.IndexManifest{DocumentID: "d", Dimensions: 2, Count: 2},
			Texts:    []string{"a", "b"},
			Vectors:  [][]float32{{1, 0}, {0, 1}},
		}
	}

	tests := []struct {
		name   string
		mutate func(*domain.IndexSnapshot)
	}{
		{"zero dimension", func(s *domain.IndexSnapshot) { s.Manifest.Dimensions = 0 }},
		{"count mismatch", func(s *domain.IndexSnapshot) { s.Manifest.Count = 3 }},
		{"texts and vectors differ", func(s *domain.IndexSnapshot) { s.Texts = s.Texts[:1] }},
		{"vector dimension differs", func(s *domain.IndexSnapshot) { s.Vectors[1] = []float32{1} }},
		{"empty", func(s *domain.IndexSnapshot) { s.Texts, s.Vectors, s.Manifest.Count = nil, nil, 0 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			snap := base()
			tc.mutate(snap)
			_, err := FromSnapshot(snap, nil)
			assert.ErrorIs(t, err, domain.ErrCorruptIndex)
		})
	}

	_, err := FromSnapshot(nil, nil)
	assert.ErrorIs(t, err, domain.ErrCorruptIndex)

	x, err := FromSnapshot(base(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, x.Len())
}

type failingStore struct {
	*memory.IndexStore
}

func (failingStore) Save(context.Context, string, *domain.IndexSnapshot) error {
	return errors.New("disk full")
}

func TestPersist_WrapsStoreErrors(t *testing.T) {
	x, err := Build(context.Background(), chunksOf("d", "a"), newBOW())
	require.NoError(t, err)

	err = x.Persist(context.Background(), failingStore{memory.NewIndexStore()}, "d")
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.Contains(t, err.Error(), "disk full")
}
