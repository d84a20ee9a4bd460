package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/custodia-labs/kairoscope/internal/core/domain"
	"github.com/custodia-labs/kairoscope/internal/core/ports/driven"
)

type fakeModels struct {
	prompt string
	config *genai.GenerateContentConfig
	resp   *genai.GenerateContentResponse
	err    error
}

func (f *fakeModels) GenerateContent(_ context.Context, _ string, contents []*genai.Content,
	config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.prompt = contents[0].Parts[0].Text
	f.config = config
	return f.resp, f.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func TestNewLLMService_RequiresKey(t *testing.T) {
	_, err := NewLLMService(context.Background(), LLMConfig{})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestLLMService_Generate(t *testing.T) {
	fake := &fakeModels{resp: textResponse(" Prismas Lentos \n")}
	svc := newLLMService(fake, "")

	out, err := svc.Generate(context.Background(), "nombre", driven.GenerateOptions{
		Temperature: 0.85,
		MaxTokens:   20,
		StopWords:   []string{"\n\n"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Prismas Lentos", out)
	assert.Equal(t, "nombre", fake.prompt)
	require.NotNil(t, fake.config.Temperature)
	assert.InDelta(t, 0.85, *fake.config.Temperature, 1e-6)
	assert.Equal(t, int32(20), fake.config.MaxOutputTokens)
	assert.Equal(t, []string{"\n\n"}, fake.config.StopSequences)
	assert.Equal(t, DefaultLLMModel, svc.ModelName())
}

func TestLLMService_Generate_Errors(t *testing.T) {
	svc := newLLMService(&fakeModels{err: errors.New("quota")}, "m")
	_, err := svc.Generate(context.Background(), "p", driven.GenerateOptions{})
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	assert.Error(t, svc.Ping(context.Background()))

	svc = newLLMService(&fakeModels{resp: &genai.GenerateContentResponse{}}, "m")
	_, err = svc.Generate(context.Background(), "p", driven.GenerateOptions{})
	assert.ErrorIs(t, err, domain.ErrLLMResponse)
	assert.NoError(t, svc.Ping(context.Background()))
}
