package ai

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/kairoscope/internal/core/domain"
	"github.com/custodia-labs/kairoscope/internal/core/ports/driven"
)

func TestConfigValidator_ImplementsInterface(t *testing.T) {
	var _ driven.AIConfigValidator = (*ConfigValidator)(nil)
}

func TestConfigValidator_NothingToValidate(t *testing.T) {
	validator := NewConfigValidator()

	assert.NoError(t, validator.ValidateEmbedding(nil))
	assert.NoError(t, validator.ValidateLLM(nil))
	assert.NoError(t, validator.ValidateEmbedding(&domain.EmbeddingSettings{Model: "m"}))
	assert.NoError(t, validator.ValidateLLM(&domain.LLMSettings{Model: "m"}))
}

func TestConfigValidator_Ollama(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer up.Close()
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer down.Close()

	validator := NewConfigValidator()

	assert.NoError(t, validator.ValidateEmbedding(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama, BaseURL: up.URL,
	}))
	assert.NoError(t, validator.ValidateLLM(&domain.LLMSettings{
		Provider: domain.AIProviderOllama, BaseURL: up.URL,
	}))
	assert.Error(t, validator.ValidateEmbedding(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama, BaseURL: down.URL,
	}))
	assert.Error(t, validator.ValidateLLM(&domain.LLMSettings{
		Provider: domain.AIProviderOllama, BaseURL: down.URL,
	}))
}
