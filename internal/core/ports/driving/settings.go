package driving

import "github.com/custodia-labs/lexgraph/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings, including environment overrides.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// Set updates a single setting by its dotted key.
	Set(key, value string) error

	// Unset removes a stored setting, restoring its default.
	Unset(key string) error

	// Keys returns every supported dotted key.
	Keys() []string

	// SetStoreBackend selects the graph store.
	SetStoreBackend(backend domain.StoreBackend, path string) error

	// SetEmbeddingProvider configures the embedding provider.
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error

	// SetLLMProvider configures the LLM provider.
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error

	// Validate checks that the current settings can be started with.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
	ValidateEmbeddingConfig() error

	// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
	ValidateLLMConfig() error
}
