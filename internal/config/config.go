// Package config loads the engine configuration from YAML with environment
// overrides. Missing config files fall back to defaults so the binary runs
// with nothing but an artifact directory.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/angelala00/pbc-regulations-sub001/internal/logging"
)

// Embedding provider names.
const (
	ProviderOpenAI = "openai"
	ProviderStatic = "static"
	ProviderNone   = "none"
)

// Config is the complete engine configuration.
type Config struct {
	Corpus     CorpusConfig     `yaml:"corpus"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Search     SearchConfig     `yaml:"search"`
	Logging    logging.Config   `yaml:"logging"`
}

// CorpusConfig locates the extraction artifacts.
type CorpusConfig struct {
	// ArtifactDir holds structured/manifest.json and the extract fallback.
	ArtifactDir string `yaml:"artifact_dir"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider is "openai" (any OpenAI-compatible endpoint), "static"
	// (offline hash embeddings), or "none" (lexical-only search).
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	// TimeoutSeconds bounds each embedding request.
	TimeoutSeconds int `yaml:"timeout_seconds"`
	// CachePath is the on-disk embedding cache. Empty disables persistence.
	CachePath string `yaml:"cache_path"`
}

// SearchConfig tunes hybrid ranking.
type SearchConfig struct {
	TopK            int      `yaml:"top_k"`
	BM25Weight      float64  `yaml:"bm25_weight"`
	VectorWeight    float64  `yaml:"vector_weight"`
	TriggerTerms    []string `yaml:"trigger_terms"`
	AuxiliaryQuery  string   `yaml:"auxiliary_query"`
	AuxiliaryWeight float64  `yaml:"auxiliary_weight"`
}

// Default returns the built-in configuration: lexical-only search over
// ./artifacts with the fusion defaults.
func Default() *Config {
	return &Config{
		Corpus: CorpusConfig{ArtifactDir: "artifacts"},
		Embeddings: EmbeddingsConfig{
			Provider:       ProviderNone,
			TimeoutSeconds: 30,
		},
		Search: SearchConfig{
			TopK:            10,
			BM25Weight:      2.0,
			VectorWeight:    1.0,
			TriggerTerms:    []string{"处罚", "违法", "罚款"},
			AuxiliaryQuery:  "罚款 责令 违反",
			AuxiliaryWeight: 1.0,
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load reads the config file at path over the defaults, then applies
// environment overrides. A missing file is fine; a malformed one is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays PBCSEARCH_* environment variables, the highest-priority
// source.
func (c *Config) applyEnv() {
	if v := os.Getenv("PBCSEARCH_ARTIFACT_DIR"); v != "" {
		c.Corpus.ArtifactDir = v
	}
	if v := os.Getenv("PBCSEARCH_EMBEDDING_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("PBCSEARCH_EMBEDDING_BASE_URL"); v != "" {
		c.Embeddings.BaseURL = v
	}
	if v := os.Getenv("PBCSEARCH_EMBEDDING_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("PBCSEARCH_EMBEDDING_API_KEY"); v != "" {
		c.Embeddings.APIKey = v
	}
	if v := os.Getenv("PBCSEARCH_EMBEDDING_CACHE"); v != "" {
		c.Embeddings.CachePath = v
	}
	if v := os.Getenv("PBCSEARCH_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.TopK = n
		}
	}
	if v := os.Getenv("PBCSEARCH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks provider selection and its required fields.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Embeddings.Provider) {
	case ProviderNone, ProviderStatic, "":
	case ProviderOpenAI:
		if c.Embeddings.BaseURL == "" {
			return fmt.Errorf("embeddings.base_url is required for the openai provider")
		}
		if c.Embeddings.Model == "" {
			return fmt.Errorf("embeddings.model is required for the openai provider")
		}
	default:
		return fmt.Errorf("unknown embeddings provider %q", c.Embeddings.Provider)
	}
	if c.Corpus.ArtifactDir == "" {
		return fmt.Errorf("corpus.artifact_dir is required")
	}
	return nil
}
