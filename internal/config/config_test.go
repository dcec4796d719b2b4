package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "artifacts", cfg.Corpus.ArtifactDir)
	assert.Equal(t, ProviderNone, cfg.Embeddings.Provider)
	assert.Equal(t, 10, cfg.Search.TopK)
	assert.Equal(t, 2.0, cfg.Search.BM25Weight)
	assert.Equal(t, []string{"处罚", "违法", "罚款"}, cfg.Search.TriggerTerms)
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "artifacts", cfg.Corpus.ArtifactDir)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
corpus:
  artifact_dir: /data/pbc
embeddings:
  provider: openai
  base_url: https://api.example.com/v1
  model: text-embedding-v3
  cache_path: /data/cache/embeddings.json
search:
  top_k: 20
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/pbc", cfg.Corpus.ArtifactDir)
	assert.Equal(t, ProviderOpenAI, cfg.Embeddings.Provider)
	assert.Equal(t, "text-embedding-v3", cfg.Embeddings.Model)
	assert.Equal(t, 20, cfg.Search.TopK)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Unset sections keep their defaults.
	assert.Equal(t, 2.0, cfg.Search.BM25Weight)
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("corpus: ["), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PBCSEARCH_ARTIFACT_DIR", "/env/artifacts")
	t.Setenv("PBCSEARCH_EMBEDDING_PROVIDER", "static")
	t.Setenv("PBCSEARCH_TOP_K", "7")
	t.Setenv("PBCSEARCH_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/env/artifacts", cfg.Corpus.ArtifactDir)
	assert.Equal(t, "static", cfg.Embeddings.Provider)
	assert.Equal(t, 7, cfg.Search.TopK)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default ok", func(*Config) {}, false},
		{"static ok", func(c *Config) { c.Embeddings.Provider = ProviderStatic }, false},
		{"openai missing base url", func(c *Config) {
			c.Embeddings.Provider = ProviderOpenAI
			c.Embeddings.Model = "m"
		}, true},
		{"openai missing model", func(c *Config) {
			c.Embeddings.Provider = ProviderOpenAI
			c.Embeddings.BaseURL = "https://api.example.com"
		}, true},
		{"openai complete", func(c *Config) {
			c.Embeddings.Provider = ProviderOpenAI
			c.Embeddings.BaseURL = "https://api.example.com"
			c.Embeddings.Model = "m"
		}, false},
		{"unknown provider", func(c *Config) { c.Embeddings.Provider = "quantum" }, true},
		{"empty artifact dir", func(c *Config) { c.Corpus.ArtifactDir = "" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
