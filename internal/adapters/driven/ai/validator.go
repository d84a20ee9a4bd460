package ai

import (
	"github.com/custodia-labs/kairoscope/internal/core/domain"
	"github.com/custodia-labs/kairoscope/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator validates AI provider configurations.
type ConfigValidator struct{}

// NewConfigValidator creates a new AI config validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// ValidateEmbedding pings the embedding provider. Keys missing from the
// settings are taken from the environment first.
func (v *ConfigValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	if config == nil {
		return nil
	}
	resolved := ResolveEmbeddingKey(*config)
	return ValidateEmbeddingConfig(&resolved)
}

// ValidateLLM pings the LLM provider. Keys missing from the settings are
// taken from the environment first.
func (v *ConfigValidator) ValidateLLM(config *domain.LLMSettings) error {
	if config == nil {
		return nil
	}
	resolved := ResolveLLMKey(*config)
	return ValidateLLMConfig(&resolved)
}
