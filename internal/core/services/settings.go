package services

import (
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/custodia-labs/lexgraph/internal/core/domain"
	"github.com/custodia-labs/lexgraph/internal/core/ports/driven"
	"github.com/custodia-labs/lexgraph/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyStoreBackend     = "store.backend"
	keyStorePath        = "store.path"
	keyStoreTimeout     = "store.query_timeout_seconds"
	keyNeo4jURI         = "neo4j.uri"
	keyNeo4jUser        = "neo4j.user"
	keyNeo4jPassword    = "neo4j.password"
	keyNeo4jDatabase    = "neo4j.database"
	keyEmbedProvider    = "embedding.provider"
	keyEmbedModel       = "embedding.model"
	keyEmbedBaseURL     = "embedding.base_url"
	keyEmbedAPIKey      = "embedding.api_key"
	keyEmbedDims        = "embedding.dimensions"
	keyLLMProvider      = "llm.provider"
	keyLLMModel         = "llm.model"
	keyLLMBaseURL       = "llm.base_url"
	keyLLMAPIKey        = "llm.api_key"
	keyVectorDims       = "vector_index.dimensions"
	keyTopK             = "retrieval.top_k"
	keyItemLimit        = "retrieval.item_limit"
	keyMaxAttempts      = "retrieval.max_attempts"
	keyGenTimeout       = "generation.timeout_seconds"
	keyGenRetries       = "generation.max_retries"
	keyGenRPS           = "generation.requests_per_second"
	keyGuardrailScorer  = "guardrail.scorer"
	keyGuardrailMinimum = "guardrail.threshold"
	keyServerAddr       = "server.addr"
	keyServerTimeout    = "server.request_timeout_seconds"
	keyServerRateLimit  = "server.rate_limit_per_minute"
	keyLogLevel         = "log.level"
)

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
)

// settingKinds lists every supported key and how its value is parsed.
var settingKinds = map[string]valueKind{
	keyStoreBackend:     kindString,
	keyStorePath:        kindString,
	keyStoreTimeout:     kindInt,
	keyNeo4jURI:         kindString,
	keyNeo4jUser:        kindString,
	keyNeo4jPassword:    kindString,
	keyNeo4jDatabase:    kindString,
	keyEmbedProvider:    kindString,
	keyEmbedModel:       kindString,
	keyEmbedBaseURL:     kindString,
	keyEmbedAPIKey:      kindString,
	keyEmbedDims:        kindInt,
	keyLLMProvider:      kindString,
	keyLLMModel:         kindString,
	keyLLMBaseURL:       kindString,
	keyLLMAPIKey:        kindString,
	keyVectorDims:       kindInt,
	keyTopK:             kindInt,
	keyItemLimit:        kindInt,
	keyMaxAttempts:      kindInt,
	keyGenTimeout:       kindInt,
	keyGenRetries:       kindInt,
	keyGenRPS:           kindFloat,
	keyGuardrailScorer:  kindString,
	keyGuardrailMinimum: kindFloat,
	keyServerAddr:       kindString,
	keyServerTimeout:    kindInt,
	keyServerRateLimit:  kindInt,
	keyLogLevel:         kindString,
}

// providerKeyEnv maps providers to the conventional API key variables used
// when no key is configured.
var providerKeyEnv = map[domain.AIProvider]string{
	domain.AIProviderOpenAI:    "OPENAI_API_KEY",
	domain.AIProviderAnthropic: "ANTHROPIC_API_KEY",
	domain.AIProviderGemini:    "GEMINI_API_KEY",
}

const localBaseURL = "http://localhost:11434"

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
// aiValidator may be nil, in which case provider validation is skipped.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Store: domain.StoreSettings{
			Backend:             domain.StoreBackend(s.getString(keyStoreBackend, string(d.Store.Backend))),
			Path:                s.configStore.GetString(keyStorePath),
			QueryTimeoutSeconds: s.getInt(keyStoreTimeout, d.Store.QueryTimeoutSeconds),
		},
		Neo4j: domain.Neo4jSettings{
			URI:      s.getString(keyNeo4jURI, d.Neo4j.URI),
			User:     s.getString(keyNeo4jUser, d.Neo4j.User),
			Password: s.configStore.GetString(keyNeo4jPassword),
			Database: s.getString(keyNeo4jDatabase, d.Neo4j.Database),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:   domain.AIProvider(s.getString(keyEmbedProvider, string(d.Embedding.Provider))),
			Model:      s.configStore.GetString(keyEmbedModel),
			BaseURL:    s.configStore.GetString(keyEmbedBaseURL),
			APIKey:     s.configStore.GetString(keyEmbedAPIKey),
			Dimensions: s.getInt(keyEmbedDims, d.Embedding.Dimensions),
		},
		LLM: domain.LLMSettings{
			Provider: domain.AIProvider(s.configStore.GetString(keyLLMProvider)),
			Model:    s.configStore.GetString(keyLLMModel),
			BaseURL:  s.configStore.GetString(keyLLMBaseURL),
			APIKey:   s.configStore.GetString(keyLLMAPIKey),
		},
		VectorIndex: domain.VectorIndexSettings{
			Dimensions: s.getInt(keyVectorDims, d.VectorIndex.Dimensions),
		},
		Retrieval: domain.RetrievalSettings{
			TopK:        s.getInt(keyTopK, d.Retrieval.TopK),
			ItemLimit:   s.getInt(keyItemLimit, d.Retrieval.ItemLimit),
			MaxAttempts: s.getInt(keyMaxAttempts, d.Retrieval.MaxAttempts),
		},
		Generation: domain.GenerationSettings{
			TimeoutSeconds:    s.getInt(keyGenTimeout, d.Generation.TimeoutSeconds),
			MaxRetries:        s.getIntAllowZero(keyGenRetries, d.Generation.MaxRetries),
			RequestsPerSecond: s.configStore.GetFloat(keyGenRPS),
		},
		Guardrail: domain.GuardrailSettings{
			Scorer:    s.getString(keyGuardrailScorer, d.Guardrail.Scorer),
			Threshold: s.getFloatAllowZero(keyGuardrailMinimum, d.Guardrail.Threshold),
		},
		Server: domain.ServerSettings{
			Addr:                  s.getString(keyServerAddr, d.Server.Addr),
			RequestTimeoutSeconds: s.getInt(keyServerTimeout, d.Server.RequestTimeoutSeconds),
			RateLimitPerMinute:    s.getIntAllowZero(keyServerRateLimit, d.Server.RateLimitPerMinute),
		},
		LogLevel: s.getString(keyLogLevel, d.LogLevel),
	}

	applyProviderDefaults(&settings.Embedding.Model, &settings.Embedding.BaseURL, &settings.Embedding.APIKey,
		settings.Embedding.Provider, domain.DefaultEmbeddingModels())
	applyProviderDefaults(&settings.LLM.Model, &settings.LLM.BaseURL, &settings.LLM.APIKey,
		settings.LLM.Provider, domain.DefaultLLMModels())

	return settings, nil
}

// applyProviderDefaults fills the model, base URL and API key from defaults
// and the conventional provider environment variables.
func applyProviderDefaults(model, baseURL, apiKey *string, provider domain.AIProvider, models map[domain.AIProvider]string) {
	if *model == "" {
		*model = models[provider]
	}
	if *apiKey == "" {
		if env, ok := providerKeyEnv[provider]; ok {
			*apiKey = os.Getenv(env)
		}
	}
	if *baseURL == "" {
		switch provider {
		case domain.AIProviderOllama:
			*baseURL = localBaseURL
		case domain.AIProviderOpenAI:
			*baseURL = os.Getenv("OPENAI_BASE_URL")
		}
	}
}

// Save persists application settings.
// API keys and the Neo4j password are only written when set.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := map[string]any{
		keyStoreBackend:     settings.Store.Backend.String(),
		keyStorePath:        settings.Store.Path,
		keyStoreTimeout:     settings.Store.QueryTimeoutSeconds,
		keyNeo4jURI:         settings.Neo4j.URI,
		keyNeo4jUser:        settings.Neo4j.User,
		keyNeo4jDatabase:    settings.Neo4j.Database,
		keyEmbedProvider:    settings.Embedding.Provider.String(),
		keyEmbedModel:       settings.Embedding.Model,
		keyEmbedBaseURL:     settings.Embedding.BaseURL,
		keyEmbedDims:        settings.Embedding.Dimensions,
		keyLLMProvider:      settings.LLM.Provider.String(),
		keyLLMModel:         settings.LLM.Model,
		keyLLMBaseURL:       settings.LLM.BaseURL,
		keyVectorDims:       settings.VectorIndex.Dimensions,
		keyTopK:             settings.Retrieval.TopK,
		keyItemLimit:        settings.Retrieval.ItemLimit,
		keyMaxAttempts:      settings.Retrieval.MaxAttempts,
		keyGenTimeout:       settings.Generation.TimeoutSeconds,
		keyGenRetries:       settings.Generation.MaxRetries,
		keyGenRPS:           settings.Generation.RequestsPerSecond,
		keyGuardrailScorer:  settings.Guardrail.Scorer,
		keyGuardrailMinimum: settings.Guardrail.Threshold,
		keyServerAddr:       settings.Server.Addr,
		keyServerTimeout:    settings.Server.RequestTimeoutSeconds,
		keyServerRateLimit:  settings.Server.RateLimitPerMinute,
		keyLogLevel:         settings.LogLevel,
	}
	secrets := map[string]string{
		keyNeo4jPassword: settings.Neo4j.Password,
		keyEmbedAPIKey:   settings.Embedding.APIKey,
		keyLLMAPIKey:     settings.LLM.APIKey,
	}
	for key, secret := range secrets {
		if secret != "" {
			values[key] = secret
		}
	}

	for _, key := range sortedKeys(values) {
		if err := s.configStore.Set(key, values[key]); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
	}
	return nil
}

// Set updates a single setting, parsing value according to the key's type.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settingKinds[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	var parsed any = value
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s expects an integer", domain.ErrInvalidInput, key)
		}
		parsed = n
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%w: %s expects a number", domain.ErrInvalidInput, key)
		}
		parsed = f
	}

	return s.configStore.Set(key, parsed)
}

// Unset removes a stored setting so its default applies again.
func (s *SettingsService) Unset(key string) error {
	if _, ok := settingKinds[key]; !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	return s.configStore.Delete(key)
}

// Keys returns every supported key in sorted order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingKinds))
	for k := range settingKinds {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// SetStoreBackend selects the graph store.
func (s *SettingsService) SetStoreBackend(backend domain.StoreBackend, path string) error {
	if !backend.IsValid() {
		return fmt.Errorf("%w: invalid store backend: %s", domain.ErrInvalidInput, backend)
	}
	if err := s.configStore.Set(keyStoreBackend, backend.String()); err != nil {
		return err
	}
	if path != "" {
		return s.configStore.Set(keyStorePath, path)
	}
	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !slices.Contains(domain.AllEmbeddingProviders(), provider) {
		return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidInput, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = model
	if model == "" {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}
	settings.Embedding.BaseURL = ""
	if provider == domain.AIProviderOllama {
		settings.Embedding.BaseURL = localBaseURL
	}
	settings.Embedding.APIKey = apiKey

	// The vector index must match what the model produces
	if d, ok := domain.EmbeddingDimensions()[settings.Embedding.Model]; ok {
		settings.Embedding.Dimensions = d
		settings.VectorIndex.Dimensions = d
	}
	if provider == domain.AIProviderHash {
		settings.VectorIndex.Dimensions = settings.Embedding.Dimensions
	}

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !slices.Contains(domain.AllLLMProviders(), provider) {
		return fmt.Errorf("%w: invalid LLM provider: %s", domain.ErrInvalidInput, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	settings.LLM.Model = model
	if model == "" {
		settings.LLM.Model = domain.DefaultLLMModels()[provider]
	}
	settings.LLM.BaseURL = ""
	if provider == domain.AIProviderOllama {
		settings.LLM.BaseURL = localBaseURL
	}
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// Validate checks that the current settings can be started with.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return settings.Validate()
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
	if val == 0 {
		return defaultVal
	}
	return val
}

// getIntAllowZero treats an explicit 0 as a value rather than "unset".
func (s *SettingsService) getIntAllowZero(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloatAllowZero(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
