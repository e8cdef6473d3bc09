package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

func TestNewSettingsService(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	require.NotNil(t, service)
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	settings, err := service.Get()
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultAppSettings(), *settings)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStoreWith(map[string]any{
		"documents.dir":                 "/srv/docs",
		"embedding.provider":            "ollama",
		"embedding.model":               "all-minilm",
		"embedding.base_url":            "http://gpu:11434",
		"embedding.requests_per_second": int64(5),
		"llm.provider":                  "anthropic",
		"llm.max_tokens":                int64(1024),
		"chunker.size":                  int64(500),
		"chunker.overlap":               int64(0),
		"retrieval.top_k":               int64(5),
		"index.root":                    "/var/indexes",
		"index.verify_content_hash":     true,
		"watch.rescan_schedule":         "@hourly",
	})
	service := NewSettingsService(store, nil)

	s, err := service.Get()
	require.NoError(t, err)

	assert.Equal(t, "/srv/docs", s.DocumentsDir)
	assert.Equal(t, domain.AIProviderOllama, s.Embedding.Provider)
	assert.Equal(t, "all-minilm", s.Embedding.Model)
	assert.Equal(t, "http://gpu:11434", s.Embedding.BaseURL)
	assert.InDelta(t, 5.0, s.Embedding.RequestsPerSecond, 1e-9)
	assert.Equal(t, domain.AIProviderAnthropic, s.LLM.Provider)
	assert.Equal(t, 1024, s.LLM.MaxTokens)
	assert.Equal(t, 500, s.Chunker.Size)
	assert.Equal(t, 0, s.Chunker.Overlap, "explicit zero overlap is kept")
	assert.Equal(t, 5, s.Retrieval.TopK)
	assert.Equal(t, "/var/indexes", s.Index.Root)
	assert.True(t, s.Index.VerifyContentHash)
	assert.Equal(t, "@hourly", s.Watch.RescanSchedule)
}

func TestSettingsService_Get_InvalidValuesReturnDefaults(t *testing.T) {
	store := memory.NewConfigStoreWith(map[string]any{
		"embedding.provider": "anthropic", // no embeddings API
		"llm.provider":       "invalid_provider",
	})
	service := NewSettingsService(store, nil)

	s, err := service.Get()
	require.NoError(t, err)

	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Embedding.Provider, s.Embedding.Provider)
	assert.Equal(t, defaults.LLM.Provider, s.LLM.Provider)
}

func TestSettingsService_SaveRoundTrip(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	want := domain.DefaultAppSettings()
	want.DocumentsDir = "/data"
	want.Chunker = domain.ChunkerSettings{Size: 400, Overlap: 40}
	want.Retrieval.TopK = 4
	want.Embedding.APIKey = "sk-embed"
	want.Embedding.RequestsPerSecond = 2.5
	want.Index.VerifyContentHash = true

	require.NoError(t, service.Save(&want))

	got, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, want, *got)
}

func TestSettingsService_Save_SkipsEmptyAPIKeys(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	s := domain.DefaultAppSettings()
	require.NoError(t, service.Save(&s))

	_, ok := store.Get("embedding.api_key")
	assert.False(t, ok)
	_, ok = store.Get("llm.api_key")
	assert.False(t, ok)
}

func TestSettingsService_Save_RejectsInvalid(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	s := domain.DefaultAppSettings()
	s.Chunker.Overlap = s.Chunker.Size

	err := service.Save(&s)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 0, store.Saves())
}

func TestSettingsService_Set(t *testing.T) {
	tests := []struct {
		key   string
		value string
		check func(t *testing.T, s *domain.AppSettings)
	}{
		{"chunker.size", "800", func(t *testing.T, s *domain.AppSettings) { assert.Equal(t, 800, s.Chunker.Size) }},
		{"chunker.overlap", "0", func(t *testing.T, s *domain.AppSettings) { assert.Equal(t, 0, s.Chunker.Overlap) }},
		{"retrieval.top_k", " 7 ", func(t *testing.T, s *domain.AppSettings) { assert.Equal(t, 7, s.Retrieval.TopK) }},
		{"embedding.requests_per_second", "1.5", func(t *testing.T, s *domain.AppSettings) {
			assert.InDelta(t, 1.5, s.Embedding.RequestsPerSecond, 1e-9)
		}},
		{"index.verify_content_hash", "true", func(t *testing.T, s *domain.AppSettings) {
			assert.True(t, s.Index.VerifyContentHash)
		}},
		{"embedding.provider", "ollama", func(t *testing.T, s *domain.AppSettings) {
			assert.Equal(t, domain.AIProviderOllama, s.Embedding.Provider)
		}},
		{"llm.model", "gpt-4o", func(t *testing.T, s *domain.AppSettings) { assert.Equal(t, "gpt-4o", s.LLM.Model) }},
		{"documents.dir", "/tmp/docs", func(t *testing.T, s *domain.AppSettings) { assert.Equal(t, "/tmp/docs", s.DocumentsDir) }},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			service := NewSettingsService(memory.NewConfigStore(), nil)
			require.NoError(t, service.Set(tt.key, tt.value))

			s, err := service.Get()
			require.NoError(t, err)
			tt.check(t, s)
		})
	}
}

func TestSettingsService_Set_Errors(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown key", "search.mode", "hybrid"},
		{"not an int", "chunker.size", "big"},
		{"not a bool", "index.verify_content_hash", "maybe"},
		{"overlap too large", "chunker.overlap", "1000"},
		{"zero top k", "retrieval.top_k", "0"},
		{"embedding provider without embeddings", "embedding.provider", "anthropic"},
		{"unknown llm provider", "llm.provider", "bard"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewConfigStore()
			service := NewSettingsService(store, nil)

			err := service.Set(tt.key, tt.value)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Equal(t, 0, store.Saves())
		})
	}
}

func TestSettableKeys(t *testing.T) {
	keys := SettableKeys()
	assert.Contains(t, keys, "chunker.size")
	assert.Contains(t, keys, "index.verify_content_hash")
	assert.IsIncreasing(t, keys)
}

func TestSettingsService_SetEmbeddingProvider(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	require.NoError(t, service.SetEmbeddingProvider(domain.AIProviderOllama, "", ""))
	s, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOllama, s.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", s.Embedding.Model)
	assert.Equal(t, "http://localhost:11434", s.Embedding.BaseURL)

	require.NoError(t, service.SetEmbeddingProvider(domain.AIProviderOpenAI, "text-embedding-3-large", "sk-test"))
	s, err = service.Get()
	require.NoError(t, err)
	assert.Equal(t, "text-embedding-3-large", s.Embedding.Model)
	assert.Empty(t, s.Embedding.BaseURL)
	assert.Equal(t, "sk-test", s.Embedding.APIKey)
}

func TestSettingsService_SetEmbeddingProvider_Invalid(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	err := service.SetEmbeddingProvider(domain.AIProvider("bogus"), "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = service.SetEmbeddingProvider(domain.AIProviderAnthropic, "", "key")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSettingsService_SetLLMProvider(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	require.NoError(t, service.SetLLMProvider(domain.AIProviderAnthropic, "", ""))
	s, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderAnthropic, s.LLM.Provider)
	assert.Equal(t, "claude-3-5-sonnet-latest", s.LLM.Model)
	assert.Empty(t, s.LLM.BaseURL)

	require.NoError(t, service.SetLLMProvider(domain.AIProviderOllama, "mistral", ""))
	s, err = service.Get()
	require.NoError(t, err)
	assert.Equal(t, "mistral", s.LLM.Model)
	assert.Equal(t, "http://localhost:11434", s.LLM.BaseURL)

	err = service.SetLLMProvider(domain.AIProvider("bogus"), "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSettingsService_GetDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)
	assert.Equal(t, domain.DefaultAppSettings(), service.GetDefaults())
}

func TestSettingsService_Validate(t *testing.T) {
	t.Run("no validator", func(t *testing.T) {
		service := NewSettingsService(memory.NewConfigStore(), nil)
		assert.NoError(t, service.ValidateEmbeddingConfig())
		assert.NoError(t, service.ValidateLLMConfig())
	})

	t.Run("delegates to validator", func(t *testing.T) {
		v := &mockValidator{llmErr: errors.New("unreachable")}
		service := NewSettingsService(memory.NewConfigStore(), v)

		assert.NoError(t, service.ValidateEmbeddingConfig())
		require.NotNil(t, v.embedding)
		assert.Equal(t, domain.AIProviderOpenAI, v.embedding.Provider)

		assert.EqualError(t, service.ValidateLLMConfig(), "unreachable")
		require.NotNil(t, v.llm)
	})
}
