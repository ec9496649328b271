package domain

import "fmt"

const unknownDescription = "Unknown"

// StoreBackend identifies the graph store implementation.
type StoreBackend string

// Available graph store backends.
const (
	// StoreMemory keeps the graph in process. Useful for demos and tests.
	StoreMemory StoreBackend = "memory"

	// StoreSQLite persists the graph to a local SQLite database.
	StoreSQLite StoreBackend = "sqlite"

	// StoreNeo4j queries a Neo4j property graph with a vector index.
	StoreNeo4j StoreBackend = "neo4j"
)

// IsValid returns true if the backend is recognised.
func (b StoreBackend) IsValid() bool {
	switch b {
	case StoreMemory, StoreSQLite, StoreNeo4j:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b StoreBackend) String() string {
	return string(b)
}

// Description returns a human-readable description of the backend.
func (b StoreBackend) Description() string {
	switch b {
	case StoreMemory:
		return "In-memory (seeded at startup)"
	case StoreSQLite:
		return "SQLite (local file)"
	case StoreNeo4j:
		return "Neo4j (property graph)"
	default:
		return unknownDescription
	}
}

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderGemini is Google Gemini cloud API.
	AIProviderGemini AIProvider = "gemini"

	// AIProviderHash is the offline feature-hashing embedder.
	AIProviderHash AIProvider = "hash"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderGemini, AIProviderHash:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic || p == AIProviderGemini
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama || p == AIProviderHash
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderGemini:
		return "Gemini (cloud)"
	case AIProviderHash:
		return "Feature hashing (offline)"
	default:
		return unknownDescription
	}
}

// StoreSettings selects and locates the graph store.
type StoreSettings struct {
	Backend StoreBackend

	// Path is the SQLite database directory.
	Path string

	// QueryTimeoutSeconds bounds each graph query.
	QueryTimeoutSeconds int
}

// Neo4jSettings holds Neo4j connection details.
type Neo4jSettings struct {
	URI      string
	User     string
	Password string
	Database string
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama and OpenAI-compatible servers).
	BaseURL string

	// APIKey is the API key (for OpenAI/Gemini).
	APIKey string

	// Dimensions is the vector size the embedder produces. The hash embedder
	// uses it directly; remote providers receive it where they accept one.
	Dimensions int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
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

	// APIKey is the API key (for OpenAI/Anthropic/Gemini).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() || l.Provider == AIProviderHash {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// VectorIndexSettings holds vector index configuration.
type VectorIndexSettings struct {
	// Dimensions is the size of the store's paragraph vector index.
	Dimensions int
}

// RetrievalSettings holds the default retrieval budgets.
type RetrievalSettings struct {
	TopK        int
	ItemLimit   int
	MaxAttempts int
}

// GenerationSettings bounds calls to the generation capability.
type GenerationSettings struct {
	TimeoutSeconds int
	MaxRetries     int

	// RequestsPerSecond throttles outgoing LLM calls. Zero disables throttling.
	RequestsPerSecond float64
}

// Faithfulness scorer names.
const (
	ScorerStub     = "stub"
	ScorerLLMJudge = "llm"
)

// GuardrailSettings configures the output guardrail.
type GuardrailSettings struct {
	Scorer    string
	Threshold float64
}

// ServerSettings configures the HTTP server.
type ServerSettings struct {
	Addr string

	// RequestTimeoutSeconds bounds each HTTP request.
	RequestTimeoutSeconds int

	// RateLimitPerMinute caps /actions requests per client. Zero disables it.
	RateLimitPerMinute int
}

// AppSettings holds all application settings.
type AppSettings struct {
	Store       StoreSettings
	Neo4j       Neo4jSettings
	Embedding   EmbeddingSettings
	LLM         LLMSettings
	VectorIndex VectorIndexSettings
	Retrieval   RetrievalSettings
	Generation  GenerationSettings
	Guardrail   GuardrailSettings
	Server      ServerSettings
	LogLevel    string
}

// Default budgets.
const (
	DefaultMaxAttempts       = 3
	DefaultGenerationTimeout = 30
	DefaultGenerationRetries = 2
	DefaultGuardrailScore    = 0.9
	DefaultVectorDimensions  = 384
	DefaultServerAddr        = "127.0.0.1:8080"
	DefaultRequestTimeout    = 60
	DefaultQueryTimeout      = 10
)

// DefaultAppSettings returns settings with sensible defaults.
// Embeddings default to the offline hash embedder so retrieval works without
// network access. The LLM is left unconfigured until the user sets it up.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Store: StoreSettings{Backend: StoreMemory, QueryTimeoutSeconds: DefaultQueryTimeout},
		Neo4j: Neo4jSettings{
			URI:      "neo4j://localhost:7687",
			User:     "neo4j",
			Database: "neo4j",
		},
		Embedding: EmbeddingSettings{
			Provider:   AIProviderHash,
			Dimensions: DefaultVectorDimensions,
		},
		LLM:         LLMSettings{},
		VectorIndex: VectorIndexSettings{Dimensions: DefaultVectorDimensions},
		Retrieval: RetrievalSettings{
			TopK:        DefaultTopK,
			ItemLimit:   DefaultItemLimit,
			MaxAttempts: DefaultMaxAttempts,
		},
		Generation: GenerationSettings{
			TimeoutSeconds: DefaultGenerationTimeout,
			MaxRetries:     DefaultGenerationRetries,
		},
		Guardrail: GuardrailSettings{
			Scorer:    ScorerStub,
			Threshold: DefaultGuardrailScore,
		},
		Server: ServerSettings{
			Addr:                  DefaultServerAddr,
			RequestTimeoutSeconds: DefaultRequestTimeout,
		},
		LogLevel: "warn",
	}
}

// Validate rejects settings the application cannot start with.
// Every failure wraps ErrConfiguration.
func (s AppSettings) Validate() error {
	if !s.Store.Backend.IsValid() {
		return fmt.Errorf("%w: unknown store backend %q", ErrConfiguration, s.Store.Backend)
	}
	if s.Store.QueryTimeoutSeconds <= 0 {
		return fmt.Errorf("%w: store.query_timeout_seconds must be positive", ErrConfiguration)
	}
	if s.Embedding.Provider != "" && !s.Embedding.Provider.IsValid() {
		return fmt.Errorf("%w: unknown embedding provider %q", ErrConfiguration, s.Embedding.Provider)
	}
	if s.LLM.Provider != "" && !s.LLM.Provider.IsValid() {
		return fmt.Errorf("%w: unknown llm provider %q", ErrConfiguration, s.LLM.Provider)
	}
	if s.VectorIndex.Dimensions <= 0 {
		return fmt.Errorf("%w: vector_index.dimensions must be positive", ErrConfiguration)
	}
	if s.Embedding.Provider == AIProviderHash && s.Embedding.Dimensions != s.VectorIndex.Dimensions {
		return fmt.Errorf("%w: embedding %d, index %d",
			ErrDimensionMismatch, s.Embedding.Dimensions, s.VectorIndex.Dimensions)
	}
	if s.Retrieval.TopK < 1 || s.Retrieval.TopK > MaxTopK {
		return fmt.Errorf("%w: retrieval.top_k must be between 1 and %d", ErrConfiguration, MaxTopK)
	}
	if s.Retrieval.ItemLimit < 1 || s.Retrieval.ItemLimit > MaxItemLimit {
		return fmt.Errorf("%w: retrieval.item_limit must be between 1 and %d", ErrConfiguration, MaxItemLimit)
	}
	if s.Retrieval.MaxAttempts < 1 {
		return fmt.Errorf("%w: retrieval.max_attempts must be positive", ErrConfiguration)
	}
	if s.Generation.TimeoutSeconds <= 0 {
		return fmt.Errorf("%w: generation.timeout_seconds must be positive", ErrConfiguration)
	}
	if s.Generation.MaxRetries < 0 {
		return fmt.Errorf("%w: generation.max_retries must not be negative", ErrConfiguration)
	}
	if s.Guardrail.Scorer != ScorerStub && s.Guardrail.Scorer != ScorerLLMJudge {
		return fmt.Errorf("%w: unknown guardrail scorer %q", ErrConfiguration, s.Guardrail.Scorer)
	}
	if s.Guardrail.Threshold < 0 || s.Guardrail.Threshold > 1 {
		return fmt.Errorf("%w: guardrail.threshold must be within [0, 1]", ErrConfiguration)
	}
	if s.Server.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("%w: server.request_timeout_seconds must be positive", ErrConfiguration)
	}
	if s.Server.RateLimitPerMinute < 0 {
		return fmt.Errorf("%w: server.rate_limit_per_minute must not be negative", ErrConfiguration)
	}
	return nil
}

// AllStoreBackends returns all available store backends.
func AllStoreBackends() []StoreBackend {
	return []StoreBackend{StoreMemory, StoreSQLite, StoreNeo4j}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderHash,
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderGemini,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
		AIProviderGemini,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
		AIProviderGemini: "text-embedding-004",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
		AIProviderGemini:    "gemini-2.0-flash",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		// Gemini models
		"text-embedding-004": 768,
	}
}
