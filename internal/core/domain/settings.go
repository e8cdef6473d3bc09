package domain

import "fmt"

const unknownDescription = "Unknown"

// Default pipeline values.
const (
	// DefaultChunkSize is the chunk window length in characters.
	DefaultChunkSize = 1000

	// DefaultChunkOverlap is the number of characters shared by neighbouring chunks.
	DefaultChunkOverlap = 200

	// DefaultTopK is the number of chunks retrieved per question.
	DefaultTopK = 3

	// DefaultMaxContextChars bounds the retrieved context sent to the LLM.
	DefaultMaxContextChars = 6000

	// DefaultEmbeddingBatchSize is the number of texts per embedding request.
	DefaultEmbeddingBatchSize = 64

	// DefaultEmbeddingConcurrency is the number of embedding requests in flight per build.
	DefaultEmbeddingConcurrency = 2

	// DefaultEmbeddingTimeoutSeconds bounds a single embedding request.
	DefaultEmbeddingTimeoutSeconds = 60

	// DefaultLLMTimeoutSeconds bounds a single completion request.
	DefaultLLMTimeoutSeconds = 120

	// DefaultLLMMaxTokens caps the completion length.
	DefaultLLMMaxTokens = 512

	// DefaultDocumentsDir is where documents are listed from.
	DefaultDocumentsDir = "documents"

	// DefaultRescanSchedule is the cron schedule for watch rescans.
	DefaultRescanSchedule = "@every 10m"
)

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// SupportsEmbeddings returns true if the provider offers an embedding API.
func (p AIProvider) SupportsEmbeddings() bool {
	return p == AIProviderOllama || p == AIProviderOpenAI
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if the provider runs on the user's machine.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// APIKeyEnvVar is the environment variable consulted for this provider's key.
func (p AIProvider) APIKeyEnvVar() string {
	switch p {
	case AIProviderOpenAI:
		return "OPENAI_API_KEY"
	case AIProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	default:
		return ""
	}
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL overrides the provider's API endpoint.
	BaseURL string

	// APIKey is resolved through the credential chain, never persisted by default.
	APIKey string

	// Dimensions overrides the model's native dimension where supported.
	Dimensions int

	// BatchSize is the number of texts sent per request.
	BatchSize int

	// Concurrency is the number of batch requests in flight during a build.
	Concurrency int

	// RequestsPerSecond throttles requests client-side. Zero disables throttling.
	RequestsPerSecond float64

	// TimeoutSeconds bounds each request.
	TimeoutSeconds int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.SupportsEmbeddings() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds completion provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL overrides the provider's API endpoint.
	BaseURL string

	// APIKey is resolved through the credential chain.
	APIKey string

	// MaxTokens caps the completion length.
	MaxTokens int

	// TimeoutSeconds bounds each request.
	TimeoutSeconds int
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// ChunkerSettings holds chunk window parameters.
type ChunkerSettings struct {
	// Size is the window length in characters.
	Size int

	// Overlap is the number of characters shared by neighbouring windows.
	Overlap int
}

// Validate checks 0 <= Overlap < Size.
func (c ChunkerSettings) Validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidInput, c.Size)
	}
	if c.Overlap < 0 || c.Overlap >= c.Size {
		return fmt.Errorf("%w: chunk overlap must be in [0, %d), got %d", ErrInvalidInput, c.Size, c.Overlap)
	}
	return nil
}

// RetrievalSettings holds query-time parameters.
type RetrievalSettings struct {
	// TopK is the number of chunks retrieved per question.
	TopK int

	// MaxContextChars bounds the concatenated context.
	MaxContextChars int
}

// IndexSettings holds index storage configuration.
type IndexSettings struct {
	// Root is the directory holding one subdirectory per document.
	// Empty means ~/.docqa/indexes.
	Root string

	// VerifyContentHash rebuilds an index whose source content changed.
	VerifyContentHash bool
}

// WatchSettings holds documents directory watcher configuration.
type WatchSettings struct {
	// RescanSchedule is a cron expression for periodic rescans.
	RescanSchedule string
}

// AppSettings holds all application settings.
type AppSettings struct {
	// DocumentsDir is the directory documents are listed from.
	DocumentsDir string

	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// LLM holds completion provider settings.
	LLM LLMSettings

	// Chunker holds chunk window settings.
	Chunker ChunkerSettings

	// Retrieval holds query-time settings.
	Retrieval RetrievalSettings

	// Index holds storage settings.
	Index IndexSettings

	// Watch holds watcher settings.
	Watch WatchSettings
}

// Validate checks the settings that the pipeline cannot run without.
func (s AppSettings) Validate() error {
	if err := s.Chunker.Validate(); err != nil {
		return err
	}
	if s.Retrieval.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive, got %d", ErrInvalidInput, s.Retrieval.TopK)
	}
	if s.Embedding.Provider != "" && !s.Embedding.Provider.SupportsEmbeddings() {
		return fmt.Errorf("%w: %q does not provide embeddings", ErrInvalidInput, s.Embedding.Provider)
	}
	if s.LLM.Provider != "" && !s.LLM.Provider.IsValid() {
		return fmt.Errorf("%w: unknown LLM provider %q", ErrInvalidInput, s.LLM.Provider)
	}
	return nil
}

// DefaultAppSettings returns settings with the pipeline defaults.
// Both AI roles default to OpenAI; keys come from the credential chain.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		DocumentsDir: DefaultDocumentsDir,
		Embedding: EmbeddingSettings{
			Provider:       AIProviderOpenAI,
			Model:          DefaultEmbeddingModels()[AIProviderOpenAI],
			BatchSize:      DefaultEmbeddingBatchSize,
			Concurrency:    DefaultEmbeddingConcurrency,
			TimeoutSeconds: DefaultEmbeddingTimeoutSeconds,
		},
		LLM: LLMSettings{
			Provider:       AIProviderOpenAI,
			Model:          DefaultLLMModels()[AIProviderOpenAI],
			MaxTokens:      DefaultLLMMaxTokens,
			TimeoutSeconds: DefaultLLMTimeoutSeconds,
		},
		Chunker: ChunkerSettings{
			Size:    DefaultChunkSize,
			Overlap: DefaultChunkOverlap,
		},
		Retrieval: RetrievalSettings{
			TopK:            DefaultTopK,
			MaxContextChars: DefaultMaxContextChars,
		},
		Watch: WatchSettings{
			RescanSchedule: DefaultRescanSchedule,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
