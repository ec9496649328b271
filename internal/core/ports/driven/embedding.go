package driven

import "context"

// EmbeddingService generates vector embeddings from text.
// This is an optional service - when nil, retrieval is keyword-only.
//
// Embeddings must be deterministic for a given configuration so that query
// vectors are comparable with the paragraph vectors stored in the graph.
//
// Implementations may include:
//   - Feature hashing (offline, blake2b)
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Gemini (text-embedding-004)
//   - Ollama (nomic-embed-text, all-minilm)
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently.
	// This is more efficient than calling Embed in a loop for large batches.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 1536, 3072).
	// This is determined by the model and must match the store's vector index.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	// This is used at startup to verify connectivity before serving requests.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
