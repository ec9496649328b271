package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexgraph/internal/core/domain"
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

func TestSettingsCmd_Show(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "", "settings")
	require.NoError(t, err)

	assert.Contains(t, out, "In-memory (seeded at startup)")
	assert.Contains(t, out, "Feature hashing (offline)")
	assert.Contains(t, out, "Top K: 6")
	assert.Contains(t, out, "Configuration is valid.")
}

func TestSettingsCmd_ShowMasksSecrets(t *testing.T) {
	env := setupTestServices(t)
	require.NoError(t, env.settings.SetLLMProvider(domain.AIProviderOpenAI, "", "sk-1234567890abcdef"))

	out, err := execute(t, "", "settings", "show")
	require.NoError(t, err)

	assert.Contains(t, out, "sk-1...cdef")
	assert.NotContains(t, out, "sk-1234567890abcdef")
}

func TestSettingsCmd_Set(t *testing.T) {
	env := setupTestServices(t)

	out, err := execute(t, "", "settings", "set", "retrieval.top_k", "8")
	require.NoError(t, err)
	assert.Contains(t, out, "Set retrieval.top_k = 8")

	settings, err := env.settings.Get()
	require.NoError(t, err)
	assert.Equal(t, 8, settings.Retrieval.TopK)
}

func TestSettingsCmd_SetRejectsUnknownKey(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "", "settings", "set", "search.mode", "hybrid")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSettingsCmd_Unset(t *testing.T) {
	env := setupTestServices(t)
	require.NoError(t, env.settings.Set("retrieval.top_k", "8"))

	out, err := execute(t, "", "settings", "unset", "retrieval.top_k")
	require.NoError(t, err)
	assert.Contains(t, out, "Unset retrieval.top_k")

	settings, err := env.settings.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultTopK, settings.Retrieval.TopK)

	_, err = execute(t, "", "settings", "unset", "search.mode")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSettingsCmd_Keys(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "", "settings", "keys")
	require.NoError(t, err)

	assert.Contains(t, out, "store.backend\n")
	assert.Contains(t, out, "server.rate_limit_per_minute\n")
}

func TestSettingsCmd_Validate(t *testing.T) {
	env := setupTestServices(t)

	out, err := execute(t, "", "settings", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid.")

	require.NoError(t, env.settings.Set("vector_index.dimensions", "768"))
	_, err = execute(t, "", "settings", "validate")
	require.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestSettingsCmd_StoreSelectsSQLite(t *testing.T) {
	env := setupTestServices(t)
	dir := t.TempDir()

	out, err := execute(t, "2\n"+dir+"\n", "settings", "store")
	require.NoError(t, err)
	assert.Contains(t, out, "Graph store set to: SQLite (local file)")

	settings, err := env.settings.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.StoreSQLite, settings.Store.Backend)
	assert.Equal(t, dir, settings.Store.Path)
}

func TestSettingsCmd_WizardDefaults(t *testing.T) {
	env := setupTestServices(t)

	// memory store, hash embeddings, no LLM
	out, err := execute(t, "1\n1\nn\n", "settings", "wizard")
	require.NoError(t, err)

	assert.Contains(t, out, "Embedding provider configured: Feature hashing (offline)")
	assert.Contains(t, out, "Skipped.")
	assert.Contains(t, out, "All settings are valid and saved.")

	settings, err := env.settings.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.StoreMemory, settings.Store.Backend)
	assert.Equal(t, domain.AIProviderHash, settings.Embedding.Provider)
}

func TestSettingsCmd_LLMRequiresAPIKey(t *testing.T) {
	setupTestServices(t)

	// openai is the second LLM provider; the empty line is the missing key
	_, err := execute(t, "2\n\n\n", "settings", "llm")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")
}

func TestSettingsCmd_NotConfigured(t *testing.T) {
	prev, prevBoot := settingsService, boot
	Configure(nil, nil)
	defer Configure(prev, prevBoot)

	_, err := execute(t, "", "settings", "keys")
	require.ErrorIs(t, err, errNoSettings)
}
