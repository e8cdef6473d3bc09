package ai

import (
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator validates AI provider configurations.
type ConfigValidator struct {
	factory *Factory
}

// NewConfigValidator creates a new AI config validator.
func NewConfigValidator(factory *Factory) *ConfigValidator {
	if factory == nil {
		factory = NewFactory(nil)
	}
	return &ConfigValidator{factory: factory}
}

// ValidateEmbedding validates an embedding configuration by pinging the provider.
func (v *ConfigValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	return v.factory.ValidateEmbeddingConfig(config)
}

// ValidateLLM validates an LLM configuration by pinging the provider.
func (v *ConfigValidator) ValidateLLM(config *domain.LLMSettings) error {
	return v.factory.ValidateLLMConfig(config)
}
