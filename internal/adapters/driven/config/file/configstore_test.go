package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfigStore(t *testing.T) *ConfigStore {
	t.Helper()
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestNewConfigStore_DefaultDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	store, err := NewConfigStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".lexgraph", "config.toml"), store.Path())
}

func TestConfigStore_SetAndGet(t *testing.T) {
	store := newTestConfigStore(t)

	require.NoError(t, store.Set("store.backend", "sqlite"))

	val, ok := store.Get("store.backend")
	assert.True(t, ok)
	assert.Equal(t, "sqlite", val)
	assert.Equal(t, "sqlite", store.GetString("store.backend"))
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := newTestConfigStore(t)

	require.NoError(t, store.Set("retrieval.top_k", 8))
	require.NoError(t, store.Set("guardrail.threshold", 0.75))
	require.NoError(t, store.Set("name", "lexgraph"))

	assert.Equal(t, 8, store.GetInt("retrieval.top_k"))
	assert.InDelta(t, 0.75, store.GetFloat("guardrail.threshold"), 1e-9)
	assert.InDelta(t, 8.0, store.GetFloat("retrieval.top_k"), 1e-9)

	// Wrong types and missing keys fall back to zero values
	assert.Equal(t, 0, store.GetInt("name"))
	assert.Equal(t, "", store.GetString("retrieval.top_k"))
	assert.Zero(t, store.GetFloat("missing"))
}

func TestConfigStore_EnvOverride(t *testing.T) {
	store := newTestConfigStore(t)
	require.NoError(t, store.Set("llm.api_key", "from-file"))
	require.NoError(t, store.Set("retrieval.top_k", 4))

	t.Setenv("LEXGRAPH_LLM_API_KEY", "from-env")
	t.Setenv("LEXGRAPH_RETRIEVAL_TOP_K", "12")
	t.Setenv("LEXGRAPH_GUARDRAIL_THRESHOLD", "0.95")

	assert.Equal(t, "from-env", store.GetString("llm.api_key"))
	assert.Equal(t, 12, store.GetInt("retrieval.top_k"))
	assert.InDelta(t, 0.95, store.GetFloat("guardrail.threshold"), 1e-9)
}

func TestConfigStore_EnvOverrideNotPersisted(t *testing.T) {
	store := newTestConfigStore(t)
	t.Setenv("LEXGRAPH_NEO4J_PASSWORD", "secret")

	require.NoError(t, store.Set("neo4j.user", "neo4j"))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "LEXGRAPH_VECTOR_INDEX_DIMENSIONS", EnvKey("vector_index.dimensions"))
	assert.Equal(t, "LEXGRAPH_SERVER_ADDR", EnvKey("server.addr"))
}

func TestConfigStore_Delete(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	require.NoError(t, store.Set("llm.model", "llama3.2"))
	require.NoError(t, store.Set("llm.provider", "ollama"))

	require.NoError(t, store.Delete("llm.model"))
	require.NoError(t, store.Delete("never.set"))

	reopened, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	_, ok := reopened.Get("llm.model")
	assert.False(t, ok)
	assert.Equal(t, "ollama", reopened.GetString("llm.provider"))
}

func TestConfigStore_WritesNestedTables(t *testing.T) {
	store := newTestConfigStore(t)
	require.NoError(t, store.Set("store.backend", "sqlite"))
	require.NoError(t, store.Set("store.path", "/tmp/graph.db"))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "[store]")
	assert.Regexp(t, `backend = .sqlite.`, string(data))
}

func TestConfigStore_LoadsNestedTables(t *testing.T) {
	tmpDir := t.TempDir()
	content := `
[store]
backend = "neo4j"

[retrieval]
top_k = 9

[guardrail]
threshold = 0.8
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "neo4j", store.GetString("store.backend"))
	assert.Equal(t, 9, store.GetInt("retrieval.top_k"))
	assert.InDelta(t, 0.8, store.GetFloat("guardrail.threshold"), 1e-9)
}

func TestConfigStore_Persistence(t *testing.T) {
	tmpDir := t.TempDir()

	store1, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	require.NoError(t, store1.Set("server.addr", "0.0.0.0:9000"))
	require.NoError(t, store1.Set("retrieval.item_limit", 3))

	store2, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", store2.GetString("server.addr"))
	assert.Equal(t, 3, store2.GetInt("retrieval.item_limit"))
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store := newTestConfigStore(t)
	require.NoError(t, store.Set("k", "v"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestNewConfigStore_LoadCorruptedFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("not [valid toml"), 0600))

	_, err := NewConfigStore(tmpDir)
	assert.Error(t, err)
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := newTestConfigStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("counter", n)
		}(i)
		go func() {
			defer wg.Done()
			_ = store.GetInt("counter")
		}()
	}
	wg.Wait()

	_, ok := store.Get("counter")
	assert.True(t, ok)
}
