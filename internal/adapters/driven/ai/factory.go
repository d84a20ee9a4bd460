// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/custodia-labs/kairoscope/internal/adapters/driven/embedding/cache"
	geminiembed "github.com/custodia-labs/kairoscope/internal/adapters/driven/embedding/gemini"
	ollamaembed "github.com/custodia-labs/kairoscope/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/kairoscope/internal/adapters/driven/embedding/openai"
	geminillm "github.com/custodia-labs/kairoscope/internal/adapters/driven/llm/gemini"
	ollamallm "github.com/custodia-labs/kairoscope/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/kairoscope/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/kairoscope/internal/core/domain"
	"github.com/custodia-labs/kairoscope/internal/core/ports/driven"
	"github.com/custodia-labs/kairoscope/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// fixHint is appended to configuration errors.
const fixHint = "Run 'kairoscope settings' to review the configuration"

// Options controls service creation.
type Options struct {
	// CacheDir holds the embedding cache. Empty disables caching regardless
	// of the embedding settings.
	CacheDir string

	// SkipPing creates services without checking connectivity.
	SkipPing bool
}

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService
	Warnings         []string // Non-fatal issues; the affected service is nil.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		if err := r.EmbeddingService.Close(); err != nil {
			logger.Warn("closing embedding service: %v", err)
		}
	}
	if r.LLMService != nil {
		if err := r.LLMService.Close(); err != nil {
			logger.Warn("closing LLM service: %v", err)
		}
	}
}

// Initialise creates both services. A service that cannot be created or
// reached is left nil and reported in Warnings, so commands that do not
// need it keep working.
func Initialise(ctx context.Context, settings domain.AppSettings, opts Options) *InitResult {
	result := &InitResult{}

	embedding := ResolveEmbeddingKey(settings.Embedding)
	svc, err := CreateAndValidateEmbeddingService(ctx, &embedding, opts)
	switch {
	case err != nil:
		result.Warnings = append(result.Warnings, err.Error())
	case svc == nil:
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("embedding provider %s is not configured (missing API key?)", embedding.Provider))
	default:
		result.EmbeddingService = svc
	}

	llmSettings := ResolveLLMKey(settings.LLM)
	llm, err := CreateAndValidateLLMService(ctx, &llmSettings, opts)
	switch {
	case err != nil:
		result.Warnings = append(result.Warnings, err.Error())
	case llm == nil:
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("LLM provider %s is not configured (missing API key?)", llmSettings.Provider))
	default:
		result.LLMService = llm
	}

	for _, w := range result.Warnings {
		logger.Warn("%s", w)
	}
	return result
}

// ResolveEmbeddingKey fills an empty API key from the provider's
// environment variables.
func ResolveEmbeddingKey(s domain.EmbeddingSettings) domain.EmbeddingSettings {
	if s.APIKey == "" {
		s.APIKey = keyFromEnv(s.Provider)
	}
	return s
}

// ResolveLLMKey fills an empty API key from the provider's environment variables.
func ResolveLLMKey(s domain.LLMSettings) domain.LLMSettings {
	if s.APIKey == "" {
		s.APIKey = keyFromEnv(s.Provider)
	}
	return s
}

func keyFromEnv(p domain.AIProvider) string {
	for _, name := range p.APIKeyEnvVars() {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns nil, nil when the provider is not configured.
func CreateAndValidateEmbeddingService(ctx context.Context, settings *domain.EmbeddingSettings, opts Options) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(ctx, settings, opts.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. %s", domain.ErrEmbeddingUnavailable, err, fixHint)
	}
	if svc == nil || opts.SkipPing {
		return svc, nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). %s", domain.ErrEmbeddingUnavailable, err, fixHint)
	}
	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
// Returns nil, nil when the provider is not configured.
func CreateAndValidateLLMService(ctx context.Context, settings *domain.LLMSettings, opts Options) (driven.LLMService, error) {
	svc, err := CreateLLMService(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. %s", domain.ErrLLMUnavailable, err, fixHint)
	}
	if svc == nil || opts.SkipPing {
		return svc, nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). %s", domain.ErrLLMUnavailable, err, fixHint)
	}
	return svc, nil
}

// ValidateEmbeddingConfig creates a service for settings and pings it.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}
	ctx := context.Background()

	svc, err := CreateEmbeddingService(ctx, settings, "")
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateLLMConfig creates a service for settings and pings it.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}
	ctx := context.Background()

	svc, err := CreateLLMService(ctx, settings)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// CreateEmbeddingService creates the embedding service for settings,
// wrapped in the persistent cache when enabled and cacheDir is set.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(ctx context.Context, settings *domain.EmbeddingSettings, cacheDir string) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	dimensions := domain.EmbeddingDimensions()[settings.Model]

	var svc driven.EmbeddingService
	var err error
	switch settings.Provider {
	case domain.AIProviderGemini:
		svc, err = geminiembed.NewEmbeddingService(ctx, geminiembed.Config{
			APIKey:     settings.APIKey,
			Model:      settings.Model,
			Dimensions: dimensions,
		})

	case domain.AIProviderOpenAI:
		svc, err = openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: dimensions,
		})

	case domain.AIProviderOllama:
		svc, err = ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: dimensions,
		})

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
	if err != nil {
		return nil, err
	}

	if !settings.CacheEnabled || cacheDir == "" {
		return svc, nil
	}
	cached, err := cache.Open(cacheDir, svc)
	if err != nil {
		// Another process may hold the cache lock; run uncached.
		logger.Warn("embedding cache unavailable, continuing without it: %v", err)
		return svc, nil
	}
	return cached, nil
}

// CreateLLMService creates the LLM service for settings.
// Returns nil if the provider is not configured.
func CreateLLMService(ctx context.Context, settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderGemini:
		return geminillm.NewLLMService(ctx, geminillm.LLMConfig{
			APIKey: settings.APIKey,
			Model:  settings.Model,
		})

	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, errors.New("unsupported LLM provider: " + settings.Provider.String())
	}
}
