package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kairoscope/internal/core/domain"
)

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Short key",
			input:    "abc123",
			expected: "****",
		},
		{
			name:     "Exactly 8 chars",
			input:    "12345678",
			expected: "****",
		},
		{
			name:     "Long key",
			input:    "sk-1234567890abcdef",
			expected: "sk-1...cdef",
		},
		{
			name:     "Very long key",
			input:    "sk-proj-1234567890abcdefghijklmnop",
			expected: "sk-p...mnop",
		},
		{
			name:     "Empty key",
			input:    "",
			expected: "****",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := maskAPIKey(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseChoice(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		maxVal     int
		defaultVal int
		expected   int
	}{
		{
			name:       "Empty input returns default",
			input:      "",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Valid choice within range",
			input:      "3",
			maxVal:     5,
			defaultVal: 1,
			expected:   3,
		},
		{
			name:       "Choice below minimum returns default",
			input:      "0",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Choice above maximum returns default",
			input:      "6",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Invalid input returns default",
			input:      "abc",
			maxVal:     5,
			defaultVal: 2,
			expected:   2,
		},
		{
			name:       "Negative number returns default",
			input:      "-1",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Whitespace returns default",
			input:      "   ",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Maximum value is valid",
			input:      "5",
			maxVal:     5,
			defaultVal: 1,
			expected:   5,
		},
		{
			name:       "Minimum value is valid",
			input:      "1",
			maxVal:     5,
			defaultVal: 3,
			expected:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseChoice(tt.input, tt.maxVal, tt.defaultVal)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestSettingsShow(t *testing.T) {
	withServices(t, Services{Settings: &MockSettingsService{}})

	out, err := runCmd(t, "", "settings")

	require.NoError(t, err)
	assert.Contains(t, out, "[Embedding]")
	assert.Contains(t, out, "[Retrieval]")
	assert.Contains(t, out, "Divergence: 15")
	assert.Contains(t, out, "Max decks per owner: 8")
	assert.Contains(t, out, "Configuration is valid.")
}

func TestSettingsShow_ValidationWarning(t *testing.T) {
	withServices(t, Services{Settings: &MockSettingsService{ValidateErr: domain.ErrConfiguration}})

	out, err := runCmd(t, "", "settings", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "Warning:")
}

func TestSettings_NotConfigured(t *testing.T) {
	withServices(t, Services{})

	for _, args := range [][]string{{"settings"}, {"settings", "get", "llm.model"}, {"settings", "keys"}} {
		_, err := runCmd(t, "", args...)
		assert.EqualError(t, err, "settings service not configured")
	}
}

func TestSettingsGet(t *testing.T) {
	settings := domain.DefaultAppSettings()
	settings.LLM.APIKey = "sk-1234567890abcdef"
	withServices(t, Services{Settings: &MockSettingsService{Settings: &settings}})

	out, err := runCmd(t, "", "settings", "get", "retrieval.k_random")
	require.NoError(t, err)
	assert.Equal(t, "10\n", out)

	out, err = runCmd(t, "", "settings", "get", "llm.api_key")
	require.NoError(t, err)
	assert.Equal(t, "sk-1...cdef\n", out)

	_, err = runCmd(t, "", "settings", "get", "nope")
	assert.EqualError(t, err, `unknown setting "nope"`)
}

func TestSettingsSet(t *testing.T) {
	var gotKey, gotValue string
	svc := &MockSettingsService{
		SetValueFunc: func(key, value string) error {
			gotKey, gotValue = key, value
			return nil
		},
	}
	withServices(t, Services{Settings: svc})

	out, err := runCmd(t, "", "settings", "set", "retrieval.k_divergence", "20")
	require.NoError(t, err)
	assert.Equal(t, "retrieval.k_divergence", gotKey)
	assert.Equal(t, "20", gotValue)
	assert.Contains(t, out, "retrieval.k_divergence = 20")

	out, err = runCmd(t, "", "settings", "set", "embedding.api_key", "AIzaSy-secret-value")
	require.NoError(t, err)
	assert.Contains(t, out, "embedding.api_key = AIza...alue")
	assert.NotContains(t, out, "secret")
}

func TestSettingsSet_Error(t *testing.T) {
	svc := &MockSettingsService{
		SetValueFunc: func(string, string) error {
			return errors.New("not a number")
		},
	}
	withServices(t, Services{Settings: svc})

	_, err := runCmd(t, "", "settings", "set", "retrieval.k_random", "many")

	assert.EqualError(t, err, "failed to set retrieval.k_random: not a number")
}

func TestSettingsKeys(t *testing.T) {
	withServices(t, Services{Settings: &MockSettingsService{}})

	out, err := runCmd(t, "", "settings", "keys")

	require.NoError(t, err)
	assert.Equal(t, "embedding.provider\nretrieval.k_similarity\n", out)
}

func TestSettingValues_CoversEveryKey(t *testing.T) {
	s := domain.DefaultAppSettings()

	values := settingValues(&s)

	assert.Len(t, values, 22)
	assert.Equal(t, "gemini", values["embedding.provider"])
	assert.Equal(t, "", values["embedding.api_key"])
	assert.Equal(t, "0.85", values["llm.temperature"])
	assert.Equal(t, "123", values["deck.cards_per_deck"])
}

func TestSettingsLLM_Interactive(t *testing.T) {
	svc := &MockSettingsService{}
	withServices(t, Services{Settings: svc})

	// Ollama needs no key.
	out, err := runCmd(t, "3\nllama3.2\n", "settings", "llm")

	require.NoError(t, err)
	assert.Contains(t, out, "Validating configuration... OK")
	assert.Equal(t, domain.AIProviderOllama, svc.Settings.LLM.Provider)
	assert.Equal(t, "llama3.2", svc.Settings.LLM.Model)
}

func TestSettingsEmbedding_RequiresKey(t *testing.T) {
	for _, v := range domain.AIProviderOpenAI.APIKeyEnvVars() {
		t.Setenv(v, "")
	}
	svc := &MockSettingsService{}
	withServices(t, Services{Settings: svc})

	// OpenAI is the second embedding provider; blank model and key.
	_, err := runCmd(t, "2\n\n\n", "settings", "embedding")

	assert.EqualError(t, err, "API key is required for this provider")
}

func TestSettingsEmbedding_KeyFromEnv(t *testing.T) {
	envVars := domain.AIProviderOpenAI.APIKeyEnvVars()
	require.NotEmpty(t, envVars)
	t.Setenv(envVars[0], "sk-from-env")
	svc := &MockSettingsService{}
	withServices(t, Services{Settings: svc})

	_, err := runCmd(t, "2\n\n\n", "settings", "embedding")

	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOpenAI, svc.Settings.Embedding.Provider)
	assert.Equal(t, domain.DefaultEmbeddingModels()[domain.AIProviderOpenAI], svc.Settings.Embedding.Model)
	assert.Empty(t, svc.Settings.Embedding.APIKey)
}
