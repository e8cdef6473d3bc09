package driven

import "github.com/custodia-labs/docqa/internal/core/domain"

// AIConfigValidator validates AI provider configurations by testing
// connectivity to the underlying services.
type AIConfigValidator interface {
	// ValidateEmbedding pings the configured embedding provider.
	ValidateEmbedding(config *domain.EmbeddingSettings) error

	// ValidateLLM pings the configured LLM provider.
	ValidateLLM(config *domain.LLMSettings) error
}
