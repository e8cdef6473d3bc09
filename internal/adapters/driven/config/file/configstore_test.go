package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "config")

	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.toml"), store.Path())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
}

func TestNewConfigStore_DefaultDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	store, err := NewConfigStore("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".docqa", "config.toml"), store.Path())
}

func TestNewConfigStore_MkdirAllError(t *testing.T) {
	store, err := NewConfigStore("/dev/null/cannot/create")
	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestNewConfigStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("not toml {{[["), 0600))

	store, err := NewConfigStore(dir)
	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("embedding.provider", "ollama"))
	require.NoError(t, store.Set("chunker.size", 1000))
	require.NoError(t, store.Set("embedding.requests_per_second", 2.5))
	require.NoError(t, store.Set("index.verify_content_hash", true))
	require.NoError(t, store.Set("watch.extensions", []string{".pdf", ".txt"}))

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"string", store.GetString("embedding.provider"), "ollama"},
		{"int", store.GetInt("chunker.size"), 1000},
		{"float", store.GetFloat("embedding.requests_per_second"), 2.5},
		{"int as float", store.GetFloat("chunker.size"), 1000.0},
		{"bool", store.GetBool("index.verify_content_hash"), true},
		{"slice", store.GetStringSlice("watch.extensions"), []string{".pdf", ".txt"}},
		{"wrong type string", store.GetString("chunker.size"), ""},
		{"wrong type int", store.GetInt("embedding.provider"), 0},
		{"wrong type float", store.GetFloat("embedding.provider"), 0.0},
		{"wrong type bool", store.GetBool("embedding.provider"), false},
		{"missing slice", store.GetStringSlice("missing"), []string(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestConfigStore_GetMissing(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	val, ok := store.Get("chunker.size")
	assert.False(t, ok)
	assert.Nil(t, val)
}

func TestConfigStore_PersistsNestedTables(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set("documents.dir", "docs"))
	require.NoError(t, store.Set("chunker.size", 500))
	require.NoError(t, store.Set("chunker.overlap", 50))
	require.NoError(t, store.Set("retrieval.top_k", int64(5)))
	require.NoError(t, store.Set("embedding.requests_per_second", 0.5))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "[chunker]")
	assert.Contains(t, string(data), "[documents]")
	assert.NotContains(t, string(data), "'chunker.size'")

	reloaded, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "docs", reloaded.GetString("documents.dir"))
	assert.Equal(t, 500, reloaded.GetInt("chunker.size"))
	assert.Equal(t, 50, reloaded.GetInt("chunker.overlap"))
	assert.Equal(t, 5, reloaded.GetInt("retrieval.top_k"))
	assert.InDelta(t, 0.5, reloaded.GetFloat("embedding.requests_per_second"), 0)
}

func TestConfigStore_HandWrittenFile(t *testing.T) {
	dir := t.TempDir()
	content := `
[embedding]
provider = "openai"
model = "text-embedding-3-large"
dimensions = 256

[chunker]
size = 800
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "openai", store.GetString("embedding.provider"))
	assert.Equal(t, 256, store.GetInt("embedding.dimensions"))
	assert.Equal(t, 800, store.GetInt("chunker.size"))
}

func TestConfigStore_CommentOnlyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("# nothing yet\n"), 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	_, ok := store.Get("anything")
	assert.False(t, ok)
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("llm.provider", "anthropic"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_SetFailureKeepsPreviousValue(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("llm.model", "gpt-4o-mini"))

	// Channels cannot be encoded as TOML.
	assert.Error(t, store.Set("llm.model", make(chan int)))
	assert.Equal(t, "gpt-4o-mini", store.GetString("llm.model"))

	assert.Error(t, store.Set("llm.extra", make(chan int)))
	_, ok := store.Get("llm.extra")
	assert.False(t, ok)
}

func TestConfigStore_WriteError(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("a", "b"))

	require.NoError(t, os.Remove(store.Path()))
	require.NoError(t, os.Mkdir(store.Path(), 0700))

	assert.Error(t, store.Set("c", "d"))
	assert.Error(t, store.Save())
}

func TestConfigStore_LoadAfterExternalEdit(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("retrieval.top_k", 3))

	require.NoError(t, os.WriteFile(store.Path(), []byte("[retrieval]\ntop_k = 7\n"), 0600))
	require.NoError(t, store.Load())
	assert.Equal(t, 7, store.GetInt("retrieval.top_k"))

	require.NoError(t, os.WriteFile(store.Path(), []byte("][ broken"), 0600))
	assert.Error(t, store.Load())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("retrieval.top_k", n)
		}(i)
		go func() {
			defer wg.Done()
			_ = store.GetInt("retrieval.top_k")
		}()
	}
	wg.Wait()

	_, ok := store.Get("retrieval.top_k")
	assert.True(t, ok)
}

func TestUnflattenMap(t *testing.T) {
	got := unflattenMap(map[string]any{
		"a":        1,
		"a.b":      2,
		"x.y.z":    "deep",
		"x.y.w":    true,
		"toplevel": "v",
	})

	assert.Equal(t, map[string]any{
		"a":        1,
		"a.b":      2,
		"x":        map[string]any{"y": map[string]any{"z": "deep", "w": true}},
		"toplevel": "v",
	}, got)
}

func TestFlattenMap(t *testing.T) {
	got := flattenMap(map[string]any{
		"chunker": map[string]any{"size": int64(10)},
		"top":     "v",
	}, "")

	assert.Equal(t, map[string]any{"chunker.size": int64(10), "top": "v"}, got)
}
