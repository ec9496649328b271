package driven

// ConfigStore holds flat dotted-key configuration values such as
// "retrieval.top_k". Typed getters return the zero value for missing keys
// and for values that cannot be converted.
type ConfigStore interface {
	// Get returns the raw value and whether key is set.
	Get(key string) (any, bool)

	GetString(key string) string
	GetInt(key string) int
	GetFloat(key string) float64

	// Set stores a value and persists it immediately.
	Set(key string, value any) error

	// Delete removes key so that readers fall back to the default.
	// Deleting a missing key is not an error.
	Delete(key string) error

	// Save persists the current configuration.
	Save() error

	// Load replaces the in-memory values with the persisted ones.
	Load() error

	// Path identifies where the configuration lives.
	Path() string
}
