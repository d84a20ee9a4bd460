package domain

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderGemini is the Google Gemini API.
	AIProviderGemini AIProvider = "gemini"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderGemini, AIProviderOpenAI, AIProviderOllama:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderGemini || p == AIProviderOpenAI
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderGemini:
		return "Google Gemini (cloud)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderOllama:
		return "Ollama (local)"
	default:
		return unknownDescription
	}
}

// APIKeyEnvVars returns the environment variables consulted, in order,
// when no API key is configured for the provider.
func (p AIProvider) APIKeyEnvVars() []string {
	switch p {
	case AIProviderGemini:
		return []string{"GOOGLE_API_KEY", "GEMINI_API_KEY"}
	case AIProviderOpenAI:
		return []string{"OPENAI_API_KEY"}
	default:
		return nil
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama and OpenAI-compatible servers).
	BaseURL string

	// APIKey is the API key (for Gemini and OpenAI).
	APIKey string

	// CacheEnabled keeps computed vectors in a local cache keyed by text.
	CacheEnabled bool

	// Concurrency bounds parallel embedding calls during a build.
	Concurrency int

	// RequestsPerSecond throttles embedding calls during a build. Zero disables throttling.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama and OpenAI-compatible servers).
	BaseURL string

	// APIKey is the API key (for Gemini and OpenAI).
	APIKey string

	// Temperature is the sampling temperature for deck generation.
	Temperature float64
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

// RetrievalSettings holds the default per-strategy counts.
type RetrievalSettings struct {
	KSimilarity int
	KDivergence int
	KRandom     int
}

// Query builds a retrieval query for text using these counts.
func (r RetrievalSettings) Query(text string) RetrievalQuery {
	return RetrievalQuery{
		Text:        text,
		KSimilarity: r.KSimilarity,
		KDivergence: r.KDivergence,
		KRandom:     r.KRandom,
	}
}

// KnowledgeBaseSettings locates sources and the persisted index.
type KnowledgeBaseSettings struct {
	// Path is the knowledge base root holding structured/ and unstructured/.
	Path string

	// IndexPath is the directory the index is persisted to.
	IndexPath string

	// ChunkSize is the target chunk length in characters.
	ChunkSize int

	// ChunkOverlap is the overlap between consecutive chunks.
	ChunkOverlap int

	// MinChunkLength drops chunks shorter than this after trimming.
	MinChunkLength int
}

// DeckSettings holds deck generation limits.
type DeckSettings struct {
	// CardsPerDeck caps the cards kept from a generation.
	CardsPerDeck int

	// MaxDecksPerOwner limits stored decks per owner. Zero disables the limit.
	MaxDecksPerOwner int
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// LLM holds LLM provider settings.
	LLM LLMSettings

	// Retrieval holds default strategy counts.
	Retrieval RetrievalSettings

	// KnowledgeBase holds source and index locations.
	KnowledgeBase KnowledgeBaseSettings

	// Deck holds deck generation limits.
	Deck DeckSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// API keys are left empty and resolved from the environment at startup.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider:          AIProviderGemini,
			Model:             DefaultEmbeddingModels()[AIProviderGemini],
			CacheEnabled:      true,
			Concurrency:       4,
			RequestsPerSecond: 10,
		},
		LLM: LLMSettings{
			Provider:    AIProviderOpenAI,
			Model:       DefaultLLMModels()[AIProviderOpenAI],
			Temperature: 0.85,
		},
		Retrieval: RetrievalSettings{
			KSimilarity: 10,
			KDivergence: 15,
			KRandom:     10,
		},
		KnowledgeBase: KnowledgeBaseSettings{
			Path:           "knowledge_base",
			ChunkSize:      400,
			ChunkOverlap:   0,
			MinChunkLength: 25,
		},
		Deck: DeckSettings{
			CardsPerDeck:     123,
			MaxDecksPerOwner: 8,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderGemini,
		AIProviderOpenAI,
		AIProviderOllama,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOpenAI,
		AIProviderGemini,
		AIProviderOllama,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderGemini: "text-embedding-004",
		AIProviderOpenAI: "text-embedding-3-small",
		AIProviderOllama: "nomic-embed-text",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOpenAI: "gpt-4.1",
		AIProviderGemini: "gemini-2.5-flash",
		AIProviderOllama: "llama3.2",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Gemini models
		"text-embedding-004":   768,
		"gemini-embedding-001": 768,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
	}
}

// PipelineConfig holds post-processor pipeline configuration.
// Uses generic map-based config for extensibility - new processors can be added
// without modifying this struct.
type PipelineConfig struct {
	// Processors is the ordered list of processor names to run.
	Processors []string

	// ProcessorConfigs holds per-processor configuration as generic maps.
	// Key is processor name, value is processor-specific config.
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns config for a specific processor, or nil if not set.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	if c.ProcessorConfigs == nil {
		return nil
	}
	return c.ProcessorConfigs[name]
}

// PipelineConfigFor returns the chunking pipeline configured from
// knowledge base settings.
func PipelineConfigFor(kb KnowledgeBaseSettings) PipelineConfig {
	return PipelineConfig{
		Processors: []string{"chunker"},
		ProcessorConfigs: map[string]map[string]any{
			"chunker": {
				"chunk_size":       kb.ChunkSize,
				"overlap":          kb.ChunkOverlap,
				"min_chunk_length": kb.MinChunkLength,
			},
		},
	}
}

// DefaultPipelineConfig returns the default pipeline configuration.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfigFor(DefaultAppSettings().KnowledgeBase)
}
