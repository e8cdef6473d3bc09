package services

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyDocumentsDir      = "documents.dir"
	keyEmbedProvider     = "embedding.provider"
	keyEmbedModel        = "embedding.model"
	keyEmbedBaseURL      = "embedding.base_url"
	keyEmbedAPIKey       = "embedding.api_key"
	keyEmbedDimensions   = "embedding.dimensions"
	keyEmbedBatchSize    = "embedding.batch_size"
	keyEmbedConcurrency  = "embedding.concurrency"
	keyEmbedRPS          = "embedding.requests_per_second"
	keyEmbedTimeout      = "embedding.timeout_seconds"
	keyLLMProvider       = "llm.provider"
	keyLLMModel          = "llm.model"
	keyLLMBaseURL        = "llm.base_url"
	keyLLMAPIKey         = "llm.api_key"
	keyLLMMaxTokens      = "llm.max_tokens"
	keyLLMTimeout        = "llm.timeout_seconds"
	keyChunkSize         = "chunker.size"
	keyChunkOverlap      = "chunker.overlap"
	keyTopK              = "retrieval.top_k"
	keyMaxContextChars   = "retrieval.max_context_chars"
	keyIndexRoot         = "index.root"
	keyVerifyContentHash = "index.verify_content_hash"
	keyRescanSchedule    = "watch.rescan_schedule"
)

// defaultOllamaURL is the base URL set when switching to a local provider.
const defaultOllamaURL = "http://localhost:11434"

// settingKind is the value type of a settable key.
type settingKind int

const (
	kindString settingKind = iota
	kindInt
	kindFloat
	kindBool
	kindEmbedProvider
	kindLLMProvider
)

// settableKeys lists every key accepted by Set.
var settableKeys = map[string]settingKind{
	keyDocumentsDir:      kindString,
	keyEmbedProvider:     kindEmbedProvider,
	keyEmbedModel:        kindString,
	keyEmbedBaseURL:      kindString,
	keyEmbedAPIKey:       kindString,
	keyEmbedDimensions:   kindInt,
	keyEmbedBatchSize:    kindInt,
	keyEmbedConcurrency:  kindInt,
	keyEmbedRPS:          kindFloat,
	keyEmbedTimeout:      kindInt,
	keyLLMProvider:       kindLLMProvider,
	keyLLMModel:          kindString,
	keyLLMBaseURL:        kindString,
	keyLLMAPIKey:         kindString,
	keyLLMMaxTokens:      kindInt,
	keyLLMTimeout:        kindInt,
	keyChunkSize:         kindInt,
	keyChunkOverlap:      kindInt,
	keyTopK:              kindInt,
	keyMaxContextChars:   kindInt,
	keyIndexRoot:         kindString,
	keyVerifyContentHash: kindBool,
	keyRescanSchedule:    kindString,
}

// SettableKeys returns the keys accepted by Set, sorted.
func SettableKeys() []string {
	keys := make([]string, 0, len(settableKeys))
	for k := range settableKeys {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings.
// Missing or invalid values fall back to defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		DocumentsDir: s.getString(keyDocumentsDir, d.DocumentsDir),
		Embedding: domain.EmbeddingSettings{
			Provider:          s.getProvider(keyEmbedProvider, d.Embedding.Provider),
			Model:             s.getString(keyEmbedModel, d.Embedding.Model),
			BaseURL:           s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:            s.configStore.GetString(keyEmbedAPIKey),
			Dimensions:        s.getInt(keyEmbedDimensions, d.Embedding.Dimensions),
			BatchSize:         s.getInt(keyEmbedBatchSize, d.Embedding.BatchSize),
			Concurrency:       s.getInt(keyEmbedConcurrency, d.Embedding.Concurrency),
			RequestsPerSecond: s.getFloat(keyEmbedRPS, d.Embedding.RequestsPerSecond),
			TimeoutSeconds:    s.getInt(keyEmbedTimeout, d.Embedding.TimeoutSeconds),
		},
		LLM: domain.LLMSettings{
			Provider:       s.getProvider(keyLLMProvider, d.LLM.Provider),
			Model:          s.getString(keyLLMModel, d.LLM.Model),
			BaseURL:        s.configStore.GetString(keyLLMBaseURL),
			APIKey:         s.configStore.GetString(keyLLMAPIKey),
			MaxTokens:      s.getInt(keyLLMMaxTokens, d.LLM.MaxTokens),
			TimeoutSeconds: s.getInt(keyLLMTimeout, d.LLM.TimeoutSeconds),
		},
		Chunker: domain.ChunkerSettings{
			Size:    s.getInt(keyChunkSize, d.Chunker.Size),
			Overlap: s.getInt(keyChunkOverlap, d.Chunker.Overlap),
		},
		Retrieval: domain.RetrievalSettings{
			TopK:            s.getInt(keyTopK, d.Retrieval.TopK),
			MaxContextChars: s.getInt(keyMaxContextChars, d.Retrieval.MaxContextChars),
		},
		Index: domain.IndexSettings{
			Root:              s.getString(keyIndexRoot, d.Index.Root),
			VerifyContentHash: s.getBool(keyVerifyContentHash, d.Index.VerifyContentHash),
		},
		Watch: domain.WatchSettings{
			RescanSchedule: s.getString(keyRescanSchedule, d.Watch.RescanSchedule),
		},
	}

	if !settings.Embedding.Provider.SupportsEmbeddings() {
		settings.Embedding.Provider = d.Embedding.Provider
	}

	return settings, nil
}

// Save persists application settings.
// API keys are only written when set.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	values := []struct {
		key   string
		value any
	}{
		{keyDocumentsDir, settings.DocumentsDir},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedDimensions, settings.Embedding.Dimensions},
		{keyEmbedBatchSize, settings.Embedding.BatchSize},
		{keyEmbedConcurrency, settings.Embedding.Concurrency},
		{keyEmbedRPS, settings.Embedding.RequestsPerSecond},
		{keyEmbedTimeout, settings.Embedding.TimeoutSeconds},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLLMMaxTokens, settings.LLM.MaxTokens},
		{keyLLMTimeout, settings.LLM.TimeoutSeconds},
		{keyChunkSize, settings.Chunker.Size},
		{keyChunkOverlap, settings.Chunker.Overlap},
		{keyTopK, settings.Retrieval.TopK},
		{keyMaxContextChars, settings.Retrieval.MaxContextChars},
		{keyIndexRoot, settings.Index.Root},
		{keyVerifyContentHash, settings.Index.VerifyContentHash},
		{keyRescanSchedule, settings.Watch.RescanSchedule},
	}
	if settings.Embedding.APIKey != "" {
		values = append(values, struct {
			key   string
			value any
		}{keyEmbedAPIKey, settings.Embedding.APIKey})
	}
	if settings.LLM.APIKey != "" {
		values = append(values, struct {
			key   string
			value any
		}{keyLLMAPIKey, settings.LLM.APIKey})
	}

	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	return nil
}

// Set parses value for a single key and stores it.
// The resulting settings must still validate.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settableKeys[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	parsed, err := parseSetting(kind, strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
	}

	current, err := s.Get()
	if err != nil {
		return err
	}
	applySetting(current, key, parsed)
	if err := current.Validate(); err != nil {
		return err
	}

	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// SetEmbeddingProvider configures the embedding provider.
// An empty model selects the provider's default model.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid embedding provider: %s", domain.ErrInvalidInput, provider)
	}
	if !provider.SupportsEmbeddings() {
		return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.Embedding.Model = model
	} else if m, ok := domain.DefaultEmbeddingModels()[provider]; ok {
		settings.Embedding.Model = m
	}

	if provider.IsLocal() {
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = defaultOllamaURL
		}
	} else {
		settings.Embedding.BaseURL = ""
	}

	settings.Embedding.APIKey = apiKey

	// A dimension override only applies to the model it was set for.
	settings.Embedding.Dimensions = 0

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid LLM provider: %s", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider

	if model != "" {
		settings.LLM.Model = model
	} else if m, ok := domain.DefaultLLMModels()[provider]; ok {
		settings.LLM.Model = m
	}

	if provider.IsLocal() {
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = defaultOllamaURL
		}
	} else {
		settings.LLM.BaseURL = ""
	}

	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

func parseSetting(kind settingKind, value string) (any, error) {
	switch kind {
	case kindInt:
		return strconv.Atoi(value)
	case kindFloat:
		return strconv.ParseFloat(value, 64)
	case kindBool:
		return strconv.ParseBool(value)
	case kindEmbedProvider:
		p := domain.AIProvider(value)
		if !p.SupportsEmbeddings() {
			return nil, fmt.Errorf("%q does not provide embeddings", value)
		}
		return value, nil
	case kindLLMProvider:
		if !domain.AIProvider(value).IsValid() {
			return nil, fmt.Errorf("unknown provider %q", value)
		}
		return value, nil
	default:
		return value, nil
	}
}

//nolint:gocyclo // One case per key.
func applySetting(s *domain.AppSettings, key string, v any) {
	switch key {
	case keyDocumentsDir:
		s.DocumentsDir = v.(string)
	case keyEmbedProvider:
		s.Embedding.Provider = domain.AIProvider(v.(string))
	case keyEmbedModel:
		s.Embedding.Model = v.(string)
	case keyEmbedBaseURL:
		s.Embedding.BaseURL = v.(string)
	case keyEmbedAPIKey:
		s.Embedding.APIKey = v.(string)
	case keyEmbedDimensions:
		s.Embedding.Dimensions = v.(int)
	case keyEmbedBatchSize:
		s.Embedding.BatchSize = v.(int)
	case keyEmbedConcurrency:
		s.Embedding.Concurrency = v.(int)
	case keyEmbedRPS:
		s.Embedding.RequestsPerSecond = v.(float64)
	case keyEmbedTimeout:
		s.Embedding.TimeoutSeconds = v.(int)
	case keyLLMProvider:
		s.LLM.Provider = domain.AIProvider(v.(string))
	case keyLLMModel:
		s.LLM.Model = v.(string)
	case keyLLMBaseURL:
		s.LLM.BaseURL = v.(string)
	case keyLLMAPIKey:
		s.LLM.APIKey = v.(string)
	case keyLLMMaxTokens:
		s.LLM.MaxTokens = v.(int)
	case keyLLMTimeout:
		s.LLM.TimeoutSeconds = v.(int)
	case keyChunkSize:
		s.Chunker.Size = v.(int)
	case keyChunkOverlap:
		s.Chunker.Overlap = v.(int)
	case keyTopK:
		s.Retrieval.TopK = v.(int)
	case keyMaxContextChars:
		s.Retrieval.MaxContextChars = v.(int)
	case keyIndexRoot:
		s.Index.Root = v.(string)
	case keyVerifyContentHash:
		s.Index.VerifyContentHash = v.(bool)
	case keyRescanSchedule:
		s.Watch.RescanSchedule = v.(string)
	}
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
