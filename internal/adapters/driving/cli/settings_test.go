package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// Test helper functions in settings.go

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

func TestSettingsShow_Text(t *testing.T) {
	settings := newMockSettingsService()
	settings.settings.LLM.APIKey = "sk-1234567890abcdef"
	cleanup := setupTestServices(&mockQAService{}, settings)
	defer cleanup()

	out, err := executeCommand(t, "", "settings", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "[Embedding]")
	assert.Contains(t, out, "Model: text-embedding-3-small")
	assert.Contains(t, out, "API Key: (from OPENAI_API_KEY)")
	assert.Contains(t, out, "API Key: sk-1...cdef")
	assert.Contains(t, out, "Size: 1000")
	assert.Contains(t, out, "Overlap: 200")
	assert.Contains(t, out, "Top K: 3")
	assert.Contains(t, out, "Configuration is valid.")
	assert.NotContains(t, out, "sk-1234567890abcdef")
}

func TestSettingsShow_YAML(t *testing.T) {
	settings := newMockSettingsService()
	settings.settings.Embedding.APIKey = "sk-1234567890abcdef"
	cleanup := setupTestServices(&mockQAService{}, settings)
	defer cleanup()

	out, err := executeCommand(t, "", "settings", "show", "--yaml")
	require.NoError(t, err)

	var got settingsView
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, "openai", got.Embedding.Provider)
	assert.Equal(t, "sk-1...cdef", got.Embedding.APIKey)
	assert.Equal(t, 1000, got.Chunker.Size)
	assert.Equal(t, 3, got.Retrieval.TopK)
}

func TestSettingsShow_InvalidWarns(t *testing.T) {
	settings := newMockSettingsService()
	settings.settings.Chunker.Overlap = settings.settings.Chunker.Size
	cleanup := setupTestServices(&mockQAService{}, settings)
	defer cleanup()

	out, err := executeCommand(t, "", "settings")

	require.NoError(t, err)
	assert.Contains(t, out, "Warning:")
}

func TestSettingsSet(t *testing.T) {
	settings := newMockSettingsService()
	cleanup := setupTestServices(&mockQAService{}, settings)
	defer cleanup()

	out, err := executeCommand(t, "", "settings", "set", "chunker.size", "800")

	require.NoError(t, err)
	assert.Equal(t, "800", settings.set["chunker.size"])
	assert.Contains(t, out, "Set chunker.size = 800")
}

func TestSettingsSet_Error(t *testing.T) {
	settings := newMockSettingsService()
	settings.setErr = domain.ErrInvalidInput
	cleanup := setupTestServices(&mockQAService{}, settings)
	defer cleanup()

	_, err := executeCommand(t, "", "settings", "set", "nope", "1")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSettingsEmbedding_Prompts(t *testing.T) {
	settings := newMockSettingsService()
	cleanup := setupTestServices(&mockQAService{}, settings)
	defer cleanup()

	// Provider 2 (openai), default model, key typed in.
	out, err := executeCommand(t, "2\n\nsk-test-key-123456\n", "settings", "embedding")

	require.NoError(t, err)
	require.NotNil(t, settings.embedding)
	assert.Equal(t, domain.AIProviderOpenAI, settings.embedding.provider)
	assert.Equal(t, "text-embedding-3-small", settings.embedding.model)
	assert.Equal(t, "sk-test-key-123456", settings.embedding.apiKey)
	assert.Contains(t, out, "Validating configuration... OK")
}

func TestSettingsLLM_LocalProviderSkipsKey(t *testing.T) {
	settings := newMockSettingsService()
	cleanup := setupTestServices(&mockQAService{}, settings)
	defer cleanup()

	out, err := executeCommand(t, "1\nmistral\n", "settings", "llm")

	require.NoError(t, err)
	require.NotNil(t, settings.llm)
	assert.Equal(t, domain.AIProviderOllama, settings.llm.provider)
	assert.Equal(t, "mistral", settings.llm.model)
	assert.Empty(t, settings.llm.apiKey)
	assert.NotContains(t, out, "API key")
}

func TestSettingsLLM_ValidationFailure(t *testing.T) {
	settings := newMockSettingsService()
	settings.validateErr = domain.ErrMissingCredential
	cleanup := setupTestServices(&mockQAService{}, settings)
	defer cleanup()

	out, err := executeCommand(t, "2\n\n\n", "settings", "llm")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMissingCredential)
	assert.Contains(t, out, "FAILED")
}
