package services

import (
	"context"
	"errors"
	"hash/fnv"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// --- Embedding service ---

// mockEmbeddingService embeds by feature-hashed bag of words.
type mockEmbeddingService struct {
	dims   int
	model  string
	err    error
	calls  atomic.Int32
	texts  atomic.Int32
	block  chan struct{}
	mu     sync.Mutex
	sizes  []int
	short  bool
	ragged bool
}

func newMockEmbedding() *mockEmbeddingService {
	return &mockEmbeddingService{dims: 1024, model: "mock-embed"}
}

func (m *mockEmbeddingService) vector(text string) []float32 {
	v := make([]float32, m.dims)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[h.Sum32()%uint32(m.dims)]++
	}
	return v
}

func (m *mockEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (m *mockEmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.calls.Add(1)
	m.texts.Add(int32(len(texts)))
	m.mu.Lock()
	m.sizes = append(m.sizes, len(texts))
	m.mu.Unlock()

	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}

	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vector(t)
	}
	if m.ragged && len(out) > 1 {
		out[1] = out[1][:m.dims-1]
	}
	if m.short {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (m *mockEmbeddingService) Dimensions() int              { return m.dims }
func (m *mockEmbeddingService) ModelName() string            { return m.model }
func (m *mockEmbeddingService) Ping(_ context.Context) error { return m.err }
func (m *mockEmbeddingService) Close() error                 { return nil }

// --- LLM service ---

type mockLLM struct {
	mu       sync.Mutex
	response string
	err      error
	prompts  []string
	opts     []driven.GenerateOptions
	during   func()
}

func (m *mockLLM) Generate(_ context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	m.opts = append(m.opts, opts)
	if m.during != nil {
		m.during()
	}
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *mockLLM) ModelName() string            { return "mock-llm" }
func (m *mockLLM) Ping(_ context.Context) error { return m.err }
func (m *mockLLM) Close() error                 { return nil }

func (m *mockLLM) lastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}

// --- Prompt store ---

type mockPromptStore struct {
	prompts map[string]string
}

func (m *mockPromptStore) Load(name string) (string, error) {
	if p, ok := m.prompts[name]; ok {
		return p, nil
	}
	return "", errors.New("prompt not found")
}


// --- Document source ---

type mockSource struct {
	dir   string
	docs  map[string]string // file name -> content
	loads atomic.Int32
}

func (m *mockSource) Dir() string { return m.dir }

func (m *mockSource) List(_ context.Context) ([]domain.DocumentInfo, error) {
	var out []domain.DocumentInfo
	for name, content := range m.docs {
		path := filepath.Join(m.dir, name)
		out = append(out, domain.DocumentInfo{
			ID:   domain.DocumentIDFromPath(path),
			Name: name,
			Path: path,
			Size: int64(len(content)),
		})
	}
	return out, nil
}

func (m *mockSource) Load(_ context.Context, path string) (*domain.Document, error) {
	m.loads.Add(1)
	content, ok := m.docs[filepath.Base(path)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &domain.Document{
		ID:          domain.DocumentIDFromPath(path),
		Path:        path,
		Content:     content,
		ContentHash: domain.ContentHash(content),
	}, nil
}

func (m *mockSource) Resolve(ref string) (string, error) {
	if _, ok := m.docs[filepath.Base(ref)]; ok {
		return filepath.Join(m.dir, filepath.Base(ref)), nil
	}
	return "", domain.ErrNotFound
}

// --- Credential provider ---

type mockCredentialProvider struct {
	name   string
	values map[string]string
	err    error
	calls  int
}

func (m *mockCredentialProvider) Name() string { return m.name }

func (m *mockCredentialProvider) Lookup(key string) (string, bool, error) {
	m.calls++
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.values[key]
	return v, ok, nil
}

// --- AI validator ---

type mockValidator struct {
	embeddingErr error
	llmErr       error
	embedding    *domain.EmbeddingSettings
	llm          *domain.LLMSettings
}

func (m *mockValidator) ValidateEmbedding(cfg *domain.EmbeddingSettings) error {
	m.embedding = cfg
	return m.embeddingErr
}

func (m *mockValidator) ValidateLLM(cfg *domain.LLMSettings) error {
	m.llm = cfg
	return m.llmErr
}
