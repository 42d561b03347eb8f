package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"mangaba/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// APPLICATION CONFIG TESTS
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "mangaba", cfg.Name)
	assert.Equal(t, "json", cfg.Context.Backend)
	assert.Equal(t, 10, cfg.Context.MaxConversations)
	assert.Equal(t, 500, cfg.Context.PreviewLength)
	require.NoError(t, cfg.Validate())
}

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("MANGABA_DEBUG", "")
	t.Setenv("MANGABA_CONTEXT_BACKEND", "")
	t.Setenv("MANGABA_MAX_CONVERSATIONS", "")

	path := filepath.Join(t.TempDir(), "mangaba.yaml")

	cfg := DefaultConfig()
	cfg.Context.Backend = "sqlite"
	cfg.Logging.DebugMode = true
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", loaded.Context.Backend)
	assert.True(t, loaded.Logging.DebugMode)
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("MANGABA_CONTEXT_BACKEND", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Context, cfg.Context)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mangaba.yaml")
	require.NoError(t, os.WriteFile(path, []byte("context: [unclosed"), 0644))
	_, err := Load(path)
	require.Error(t, err)
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("MANGABA_DEBUG", "true")
	t.Setenv("MANGABA_CONTEXT_BACKEND", "SQLite")
	t.Setenv("MANGABA_MAX_CONVERSATIONS", "25")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.True(t, cfg.Logging.DebugMode)
	assert.Equal(t, "sqlite", cfg.Context.Backend)
	assert.Equal(t, 25, cfg.Context.MaxConversations)
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Context.Backend = "redis"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Context.MaxConversations = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Timeouts.Ollama = "soon"
	assert.Error(t, cfg.Validate())
}

func TestConfig_Paths(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, filepath.Join("/home/u/.mangaba", "context.json"), cfg.ContextPath("/home/u/.mangaba"))
	cfg.Context.Path = "/var/lib/ctx.json"
	assert.Equal(t, "/var/lib/ctx.json", cfg.ContextPath("/home/u/.mangaba"))
}

// =============================================================================
// TIMEOUT TESTS
// =============================================================================

func TestTimeouts_LocalMuchLongerThanCloud(t *testing.T) {
	tm := DefaultTimeouts()
	cloud := tm.For(types.ProviderOpenAI)
	assert.Equal(t, 30*time.Second, cloud)

	for _, id := range []types.ProviderID{types.ProviderOllama, types.ProviderLocalAI} {
		local := tm.For(id)
		assert.GreaterOrEqual(t, local, 10*cloud, "%s timeout too short", id)
		assert.LessOrEqual(t, local, 20*cloud, "%s timeout too long", id)
	}
	assert.Equal(t, 60*time.Second, tm.For(types.ProviderTogether))
}

func TestTimeouts_FallbackOnGarbage(t *testing.T) {
	tm := TimeoutsConfig{Cloud: "banana", Probe: ""}
	assert.Equal(t, 30*time.Second, tm.For(types.ProviderGroq))
	assert.Equal(t, 10*time.Second, tm.ProbeTimeout())
}

// =============================================================================
// PROVIDER DOCUMENT TESTS
// =============================================================================

func TestProviderStore_SetMergesFields(t *testing.T) {
	store := NewProviderStore(filepath.Join(t.TempDir(), "config.json"))
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	require.NoError(t, store.Set(types.ProviderOpenAI, ProviderConfig{APIKey: "sk-one", DefaultModel: "gpt-4"}))
	require.NoError(t, store.Set(types.ProviderOpenAI, ProviderConfig{DefaultModel: "gpt-4o"}))

	doc, err := store.Load()
	require.NoError(t, err)
	got := doc.Get(types.ProviderOpenAI)
	assert.Equal(t, "sk-one", got.APIKey, "unset fields must be preserved")
	assert.Equal(t, "gpt-4o", got.DefaultModel)
	assert.True(t, got.UpdatedAt.Equal(fixed))
}

func TestProviderStore_WriteIsAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	store := NewProviderStore(path)

	require.NoError(t, store.Set(types.ProviderGroq, ProviderConfig{APIKey: "gsk_one"}))
	require.NoError(t, store.SetDefault(types.ProviderGroq))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files may be left behind")
	assert.Equal(t, "config.json", entries[0].Name())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	doc, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "gsk_one", doc.Get(types.ProviderGroq).APIKey)
	assert.Equal(t, types.ProviderGroq, doc.DefaultProvider)
}

func TestProviderStore_PreservesUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"providers":{},"theme":"dark"}`), 0600))

	store := NewProviderStore(path)
	require.NoError(t, store.Set(types.ProviderGroq, ProviderConfig{APIKey: "gsk"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"theme":"dark"`)
}

func TestProviderStore_RemoveAndDefault(t *testing.T) {
	store := NewProviderStore(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, store.Set(types.ProviderOllama, ProviderConfig{BaseURL: "http://localhost:11434"}))
	require.NoError(t, store.SetDefault(types.ProviderOllama))

	doc, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, types.ProviderOllama, doc.DefaultProvider)

	removed, err := store.Remove(types.ProviderOllama)
	require.NoError(t, err)
	assert.True(t, removed)

	doc, err = store.Load()
	require.NoError(t, err)
	assert.Empty(t, doc.Providers)
	assert.Empty(t, doc.DefaultProvider)

	removed, err = store.Remove(types.ProviderOllama)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestProviderStore_Clear(t *testing.T) {
	store := NewProviderStore(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, store.Set(types.ProviderCohere, ProviderConfig{APIKey: "co"}))
	require.NoError(t, store.Clear())

	doc, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, doc.Providers)
}

func TestProviderStore_RejectsUnknownProvider(t *testing.T) {
	store := NewProviderStore(filepath.Join(t.TempDir(), "config.json"))
	assert.Error(t, store.Set("skynet", ProviderConfig{APIKey: "x"}))
	assert.Error(t, store.SetDefault("skynet"))
}

func TestValidateProvider(t *testing.T) {
	tests := []struct {
		name    string
		id      types.ProviderID
		cfg     ProviderConfig
		wantErr bool
	}{
		{"keyed complete", types.ProviderOpenAI, ProviderConfig{APIKey: "k", DefaultModel: "gpt-4"}, false},
		{"keyed missing model", types.ProviderOpenAI, ProviderConfig{APIKey: "k"}, true},
		{"keyed with url only", types.ProviderGroq, ProviderConfig{BaseURL: "http://x", DefaultModel: "m"}, true},
		{"local complete", types.ProviderOllama, ProviderConfig{BaseURL: "http://localhost:11434", DefaultModel: "llama2"}, false},
		{"local missing url", types.ProviderLocalAI, ProviderConfig{APIKey: "k", DefaultModel: "m"}, true},
		{"unknown", "skynet", ProviderConfig{APIKey: "k", DefaultModel: "m"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProvider(tt.id, tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "", MaskKey(""))
	assert.Equal(t, "****", MaskKey("abc"))
	assert.Equal(t, "****cdef", MaskKey("sk-abcdef"))
}

func TestWithEnvKeys(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "env-groq")
	t.Setenv("OPENAI_API_KEY", "env-openai")

	doc := &ProviderDocument{Providers: map[types.ProviderID]ProviderConfig{
		types.ProviderOpenAI: {APIKey: "file-key"},
	}}
	merged := doc.WithEnvKeys()

	assert.Equal(t, "file-key", merged.Get(types.ProviderOpenAI).APIKey, "file wins over env")
	assert.Equal(t, "env-groq", merged.Get(types.ProviderGroq).APIKey)
	_, touched := doc.Providers[types.ProviderGroq]
	assert.False(t, touched, "original document must not change")
}
