// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/docqa/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/docqa/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/docqa/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/docqa/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/docqa/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// CredentialResolver looks up a credential such as OPENAI_API_KEY.
// services.CredentialChain satisfies it.
type CredentialResolver interface {
	Resolve(key string) (string, error)
}

// Services holds the AI adapters used by one command.
type Services struct {
	Embedding driven.EmbeddingService
	LLM       driven.LLMService
}

// Close releases all resources held by Services.
func (s *Services) Close() {
	if s.Embedding != nil {
		s.Embedding.Close()
	}
	if s.LLM != nil {
		s.LLM.Close()
	}
}

// Factory creates AI adapters from settings. API keys missing from settings
// are resolved through the credential resolver.
type Factory struct {
	creds       CredentialResolver
	pingTimeout time.Duration
}

// NewFactory creates a factory. creds may be nil, in which case only keys
// present in settings are used.
func NewFactory(creds CredentialResolver) *Factory {
	return &Factory{creds: creds, pingTimeout: pingTimeout}
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func (f *Factory) CreateAndValidateEmbeddingService(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := f.CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'docqa settings embedding' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	// Validate connectivity.
	pingCtx, cancel := context.WithTimeout(ctx, f.pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'docqa settings embedding' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}

	logger.Debug("Embedding provider %s (%s) ready", settings.Provider, svc.ModelName())
	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func (f *Factory) CreateAndValidateLLMService(ctx context.Context, settings *domain.LLMSettings) (driven.LLMService, error) {
	svc, err := f.CreateLLMService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'docqa settings llm' to fix",
			domain.ErrLLMUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	// Validate connectivity.
	pingCtx, cancel := context.WithTimeout(ctx, f.pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'docqa settings llm' to fix",
			domain.ErrLLMUnavailable, err)
	}

	logger.Debug("LLM provider %s (%s) ready", settings.Provider, svc.ModelName())
	return svc, nil
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a service and pinging it.
// This is intended for use in the settings command to validate credentials on configuration.
func (f *Factory) ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	svc, err := f.CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), f.pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateLLMConfig validates an LLM configuration by creating a service and pinging it.
// This is intended for use in the settings command to validate credentials on configuration.
func (f *Factory) ValidateLLMConfig(settings *domain.LLMSettings) error {
	svc, err := f.CreateLLMService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), f.pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if no provider is set.
func (f *Factory) CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || settings.Provider == "" {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings), nil

	case domain.AIProviderOpenAI:
		key, err := f.apiKey(settings.Provider, settings.APIKey)
		if err != nil {
			return nil, err
		}
		return createOpenAIEmbedding(settings, key)

	case domain.AIProviderAnthropic:
		// Anthropic does not support embeddings.
		return nil, fmt.Errorf("%w: anthropic does not support embeddings, use ollama or openai", domain.ErrInvalidInput)

	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider: %s", domain.ErrInvalidInput, settings.Provider)
	}
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if no provider is set.
func (f *Factory) CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || settings.Provider == "" {
		return nil, nil
	}
	if !settings.Provider.IsValid() {
		return nil, fmt.Errorf("%w: unsupported LLM provider: %s", domain.ErrInvalidInput, settings.Provider)
	}

	if settings.Provider == domain.AIProviderOllama {
		return createOllamaLLM(settings), nil
	}

	key, err := f.apiKey(settings.Provider, settings.APIKey)
	if err != nil {
		return nil, err
	}

	if settings.Provider == domain.AIProviderAnthropic {
		return createAnthropicLLM(settings, key)
	}
	return createOpenAILLM(settings, key)
}

// apiKey returns the configured key, falling back to the credential chain
// under the provider's environment variable name.
func (f *Factory) apiKey(provider domain.AIProvider, configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	if f.creds == nil {
		return "", fmt.Errorf("%w: %s", domain.ErrMissingCredential, provider.APIKeyEnvVar())
	}
	return f.creds.Resolve(provider.APIKeyEnvVar())
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: settings.Dimensions,
		Timeout:    seconds(settings.TimeoutSeconds),
	})
}

// createOpenAIEmbedding creates an OpenAI embedding service.
func createOpenAIEmbedding(settings *domain.EmbeddingSettings, apiKey string) (driven.EmbeddingService, error) {
	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     apiKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: settings.Dimensions,
		Timeout:    seconds(settings.TimeoutSeconds),
	})
}

// createOllamaLLM creates an Ollama LLM service.
func createOllamaLLM(settings *domain.LLMSettings) driven.LLMService {
	return ollamallm.NewLLMService(ollamallm.Config{
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
		Timeout: seconds(settings.TimeoutSeconds),
	})
}

// createOpenAILLM creates an OpenAI LLM service.
func createOpenAILLM(settings *domain.LLMSettings, apiKey string) (driven.LLMService, error) {
	return openaillm.NewLLMService(openaillm.Config{
		APIKey:  apiKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
		Timeout: seconds(settings.TimeoutSeconds),
	})
}

// createAnthropicLLM creates an Anthropic LLM service.
func createAnthropicLLM(settings *domain.LLMSettings, apiKey string) (driven.LLMService, error) {
	return anthropicllm.NewLLMService(anthropicllm.Config{
		APIKey:  apiKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
		Timeout: seconds(settings.TimeoutSeconds),
	})
}
