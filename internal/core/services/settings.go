package services

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/kairoscope/internal/core/domain"
	"github.com/custodia-labs/kairoscope/internal/core/ports/driven"
	"github.com/custodia-labs/kairoscope/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider    = "embedding.provider"
	keyEmbedModel       = "embedding.model"
	keyEmbedBaseURL     = "embedding.base_url"
	keyEmbedAPIKey      = "embedding.api_key"
	keyEmbedCache       = "embedding.cache"
	keyEmbedConcurrency = "embedding.concurrency"
	keyEmbedRPS         = "embedding.requests_per_second"
	keyLLMProvider      = "llm.provider"
	keyLLMModel         = "llm.model"
	keyLLMBaseURL       = "llm.base_url"
	keyLLMAPIKey        = "llm.api_key"
	keyLLMTemperature   = "llm.temperature"
	keyKSimilarity      = "retrieval.k_similarity"
	keyKDivergence      = "retrieval.k_divergence"
	keyKRandom          = "retrieval.k_random"
	keyKBPath           = "knowledge_base.path"
	keyKBIndexPath      = "knowledge_base.index_path"
	keyKBChunkSize      = "knowledge_base.chunk_size"
	keyKBChunkOverlap   = "knowledge_base.chunk_overlap"
	keyKBMinChunk       = "knowledge_base.min_chunk_length"
	keyDeckCards        = "deck.cards_per_deck"
	keyDeckMax          = "deck.max_decks_per_owner"
)

// keyKind is the value type stored under a config key.
type keyKind int

const (
	kindString keyKind = iota
	kindInt
	kindFloat
	kindBool
	kindProvider
)

// knownKeys lists every key SetValue accepts.
var knownKeys = map[string]keyKind{
	keyEmbedProvider:    kindProvider,
	keyEmbedModel:       kindString,
	keyEmbedBaseURL:     kindString,
	keyEmbedAPIKey:      kindString,
	keyEmbedCache:       kindBool,
	keyEmbedConcurrency: kindInt,
	keyEmbedRPS:         kindFloat,
	keyLLMProvider:      kindProvider,
	keyLLMModel:         kindString,
	keyLLMBaseURL:       kindString,
	keyLLMAPIKey:        kindString,
	keyLLMTemperature:   kindFloat,
	keyKSimilarity:      kindInt,
	keyKDivergence:      kindInt,
	keyKRandom:          kindInt,
	keyKBPath:           kindString,
	keyKBIndexPath:      kindString,
	keyKBChunkSize:      kindInt,
	keyKBChunkOverlap:   kindInt,
	keyKBMinChunk:       kindInt,
	keyDeckCards:        kindInt,
	keyDeckMax:          kindInt,
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

// Get retrieves current application settings. Unset keys take their defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:          s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			BaseURL:           s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:            s.configStore.GetString(keyEmbedAPIKey),
			CacheEnabled:      s.getBool(keyEmbedCache, defaults.Embedding.CacheEnabled),
			Concurrency:       s.getInt(keyEmbedConcurrency, defaults.Embedding.Concurrency),
			RequestsPerSecond: s.getFloat(keyEmbedRPS, defaults.Embedding.RequestsPerSecond),
		},
		LLM: domain.LLMSettings{
			Provider:    s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			BaseURL:     s.configStore.GetString(keyLLMBaseURL),
			APIKey:      s.configStore.GetString(keyLLMAPIKey),
			Temperature: s.getFloat(keyLLMTemperature, defaults.LLM.Temperature),
		},
		Retrieval: domain.RetrievalSettings{
			KSimilarity: s.getCount(keyKSimilarity, defaults.Retrieval.KSimilarity),
			KDivergence: s.getCount(keyKDivergence, defaults.Retrieval.KDivergence),
			KRandom:     s.getCount(keyKRandom, defaults.Retrieval.KRandom),
		},
		KnowledgeBase: domain.KnowledgeBaseSettings{
			Path:           s.getString(keyKBPath, defaults.KnowledgeBase.Path),
			IndexPath:      s.getString(keyKBIndexPath, defaults.KnowledgeBase.IndexPath),
			ChunkSize:      s.getInt(keyKBChunkSize, defaults.KnowledgeBase.ChunkSize),
			ChunkOverlap:   s.getCount(keyKBChunkOverlap, defaults.KnowledgeBase.ChunkOverlap),
			MinChunkLength: s.getCount(keyKBMinChunk, defaults.KnowledgeBase.MinChunkLength),
		},
		Deck: domain.DeckSettings{
			CardsPerDeck:     s.getInt(keyDeckCards, defaults.Deck.CardsPerDeck),
			MaxDecksPerOwner: s.getCount(keyDeckMax, defaults.Deck.MaxDecksPerOwner),
		},
	}

	// A model only defaults once the provider is known.
	settings.Embedding.Model = s.getString(keyEmbedModel, domain.DefaultEmbeddingModels()[settings.Embedding.Provider])
	settings.LLM.Model = s.getString(keyLLMModel, domain.DefaultLLMModels()[settings.LLM.Provider])

	return settings, nil
}

// Save persists application settings. Empty API keys are not written so
// keys from the environment are never copied into the file.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
		skip  bool
	}{
		{keyEmbedProvider, settings.Embedding.Provider.String(), false},
		{keyEmbedModel, settings.Embedding.Model, false},
		{keyEmbedBaseURL, settings.Embedding.BaseURL, false},
		{keyEmbedAPIKey, settings.Embedding.APIKey, settings.Embedding.APIKey == ""},
		{keyEmbedCache, settings.Embedding.CacheEnabled, false},
		{keyEmbedConcurrency, settings.Embedding.Concurrency, false},
		{keyEmbedRPS, settings.Embedding.RequestsPerSecond, false},
		{keyLLMProvider, settings.LLM.Provider.String(), false},
		{keyLLMModel, settings.LLM.Model, false},
		{keyLLMBaseURL, settings.LLM.BaseURL, false},
		{keyLLMAPIKey, settings.LLM.APIKey, settings.LLM.APIKey == ""},
		{keyLLMTemperature, settings.LLM.Temperature, false},
		{keyKSimilarity, settings.Retrieval.KSimilarity, false},
		{keyKDivergence, settings.Retrieval.KDivergence, false},
		{keyKRandom, settings.Retrieval.KRandom, false},
		{keyKBPath, settings.KnowledgeBase.Path, false},
		{keyKBIndexPath, settings.KnowledgeBase.IndexPath, false},
		{keyKBChunkSize, settings.KnowledgeBase.ChunkSize, false},
		{keyKBChunkOverlap, settings.KnowledgeBase.ChunkOverlap, false},
		{keyKBMinChunk, settings.KnowledgeBase.MinChunkLength, false},
		{keyDeckCards, settings.Deck.CardsPerDeck, false},
		{keyDeckMax, settings.Deck.MaxDecksPerOwner, false},
	}

	for _, v := range values {
		if v.skip {
			continue
		}
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid embedding provider: %s", domain.ErrInvalidRequest, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.Embedding.Model = model
	} else {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}

	// Set base URL based on provider type
	if provider.IsLocal() {
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = "http://localhost:11434"
		}
	} else {
		settings.Embedding.BaseURL = ""
	}

	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid LLM provider: %s", domain.ErrInvalidRequest, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider

	if model != "" {
		settings.LLM.Model = model
	} else {
		settings.LLM.Model = domain.DefaultLLMModels()[provider]
	}

	if provider.IsLocal() {
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = "http://localhost:11434"
		}
	} else {
		settings.LLM.BaseURL = ""
	}

	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// SetRetrievalCounts updates the default strategy counts.
func (s *SettingsService) SetRetrievalCounts(kSim, kDiv, kRandom int) error {
	query := domain.RetrievalQuery{KSimilarity: kSim, KDivergence: kDiv, KRandom: kRandom}
	if err := query.Validate(); err != nil {
		return err
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	settings.Retrieval = domain.RetrievalSettings{KSimilarity: kSim, KDivergence: kDiv, KRandom: kRandom}
	return s.Save(settings)
}

// SetValue parses value for a known key and persists it.
func (s *SettingsService) SetValue(key, value string) error {
	kind, ok := knownKeys[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidRequest, key)
	}

	var parsed any
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: %s must be a non-negative integer", domain.ErrInvalidRequest, key)
		}
		parsed = n
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("%w: %s must be a non-negative number", domain.ErrInvalidRequest, key)
		}
		parsed = f
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be true or false", domain.ErrInvalidRequest, key)
		}
		parsed = b
	case kindProvider:
		if !domain.AIProvider(value).IsValid() {
			return fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidRequest, value)
		}
		parsed = value
	default:
		parsed = value
	}

	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Keys returns every settable key, sorted.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(knownKeys))
	for k := range knownKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks if current settings are usable.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	embedding := settings.Embedding
	if embedding.APIKey == "" {
		embedding.APIKey = envKey(embedding.Provider)
	}

	var problems []string
	if !embedding.IsConfigured() {
		problems = append(problems, fmt.Sprintf("embedding provider %s is not configured", settings.Embedding.Provider))
	}
	if err := settings.Retrieval.Query("").Validate(); err != nil {
		problems = append(problems, "retrieval counts are all zero")
	}
	if settings.KnowledgeBase.ChunkOverlap >= settings.KnowledgeBase.ChunkSize {
		problems = append(problems, "chunk overlap must be smaller than chunk size")
	}
	if settings.Deck.CardsPerDeck <= 0 {
		problems = append(problems, "cards per deck must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
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

// GetPipelineConfig returns the chunking pipeline configuration derived
// from the knowledge base settings.
func (s *SettingsService) GetPipelineConfig() domain.PipelineConfig {
	settings, err := s.Get()
	if err != nil {
		return domain.DefaultPipelineConfig()
	}
	return domain.PipelineConfigFor(settings.KnowledgeBase)
}

// envKey returns the first API key set in the provider's environment variables.
func envKey(p domain.AIProvider) string {
	for _, name := range p.APIKeyEnvVars() {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
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
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

// getCount is getInt for keys where zero is a meaningful value.
func (s *SettingsService) getCount(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	if val := s.configStore.GetInt(key); val >= 0 {
		return val
	}
	return defaultVal
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
