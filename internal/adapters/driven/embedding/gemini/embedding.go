// Package gemini provides an embedding service adapter for Google Gemini
// embedding models through the Google Gen AI SDK.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/custodia-labs/kairoscope/internal/core/domain"
	"github.com/custodia-labs/kairoscope/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultModel      = "text-embedding-004"
	DefaultDimensions = 768

	// DefaultTaskType asks for vectors tuned for comparing texts with each other.
	DefaultTaskType = "SEMANTIC_SIMILARITY"

	// maxBatch is the API's per-request content limit.
	maxBatch = 100
)

// Config holds configuration for the Gemini embedding service.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// Model is the embedding model (default: text-embedding-004).
	Model string

	// Dimensions is the expected vector size (default: 768).
	Dimensions int

	// TaskType is sent with every request (default: SEMANTIC_SIMILARITY).
	TaskType string
}

// contentEmbedder is the slice of the SDK used here.
type contentEmbedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content,
		config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// EmbeddingService generates embeddings using the Gemini API.
type EmbeddingService struct {
	models     contentEmbedder
	model      string
	dimensions int
	taskType   string
}

// NewEmbeddingService creates a Gemini embedding service.
func NewEmbeddingService(ctx context.Context, cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini: API key is required", domain.ErrConfiguration)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return newEmbeddingService(client.Models, cfg), nil
}

func newEmbeddingService(models contentEmbedder, cfg Config) *EmbeddingService {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}
	if cfg.TaskType == "" {
		cfg.TaskType = DefaultTaskType
	}
	return &EmbeddingService{
		models:     models,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		taskType:   cfg.TaskType,
	}
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in requests of at most 100 contents.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += maxBatch {
		end := min(start+maxBatch, len(texts))

		contents := make([]*genai.Content, 0, end-start)
		for _, text := range texts[start:end] {
			contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
		}

		// gemini-embedding-001 returns 3072 values unless asked for fewer.
		result, err := s.models.EmbedContent(ctx, s.model, contents, &genai.EmbedContentConfig{
			TaskType:             s.taskType,
			OutputDimensionality: genai.Ptr(int32(s.dimensions)),
		})
		if err != nil {
			return nil, fmt.Errorf("%w: gemini: %w", domain.ErrEmbeddingUnavailable, err)
		}
		if result == nil || len(result.Embeddings) != len(contents) {
			got := 0
			if result != nil {
				got = len(result.Embeddings)
			}
			return nil, fmt.Errorf("gemini: %d embeddings returned for %d inputs", got, len(contents))
		}

		for _, emb := range result.Embeddings {
			if emb == nil || len(emb.Values) != s.dimensions {
				return nil, fmt.Errorf("gemini: model %s returned a vector of unexpected size, expected %d",
					s.model, s.dimensions)
			}
			out = append(out, emb.Values)
		}
	}

	return out, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping embeds a single short text. The Gemini API has no cheaper
// authenticated endpoint for embedding models.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	_, err := s.Embed(ctx, "ping")
	return err
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
