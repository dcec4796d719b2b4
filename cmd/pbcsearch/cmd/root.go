// Package cmd provides the CLI commands for pbcsearch.
package cmd

import (
	"context"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/angelala00/pbc-regulations-sub001/internal/config"
	"github.com/angelala00/pbc-regulations-sub001/internal/embed"
	"github.com/angelala00/pbc-regulations-sub001/internal/logging"
	"github.com/angelala00/pbc-regulations-sub001/internal/search"
	"github.com/angelala00/pbc-regulations-sub001/internal/service"
	"github.com/angelala00/pbc-regulations-sub001/pkg/version"
)

var (
	cfgFile        string
	loggingCleanup func()
)

// NewRootCmd creates the root command for the pbcsearch CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pbcsearch",
		Short: "Hybrid search over extracted regulatory documents",
		Long: `pbcsearch answers retrieval queries over a corpus of extracted
regulatory documents: hybrid BM25 + embedding search at article
granularity, a metadata query DSL, and document content access.

Point it at an artifact directory (--config or PBCSEARCH_ARTIFACT_DIR)
produced by the extraction pipeline.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("pbcsearch version {{.Version}}\n")
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file path (YAML)")

	cmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		// .env is optional developer convenience; absence is not an error.
		_ = godotenv.Load()

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cleanup, err := logging.Setup(cfg.Logging)
		if err != nil {
			return err
		}
		loggingCleanup = cleanup
		loadedConfig = cfg
		return nil
	}
	cmd.PersistentPostRun = func(_ *cobra.Command, _ []string) {
		if loggingCleanup != nil {
			loggingCleanup()
		}
	}

	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newMetadataCmd())
	cmd.AddCommand(newContentCmd())
	cmd.AddCommand(newDescribeCmd())

	return cmd
}

// loadedConfig is populated by the root PersistentPreRunE before any
// subcommand runs.
var loadedConfig *config.Config

// buildEngine constructs the retrieval engine from the loaded config.
func buildEngine(ctx context.Context) (*service.Engine, error) {
	cfg := loadedConfig

	embedder, err := embed.NewEmbedder(cfg.Embeddings.Provider, embed.OpenAIConfig{
		BaseURL: cfg.Embeddings.BaseURL,
		Model:   cfg.Embeddings.Model,
		APIKey:  cfg.Embeddings.APIKey,
		Timeout: time.Duration(cfg.Embeddings.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, err
	}

	ranker := search.RankerConfig{
		BM25Weight:      cfg.Search.BM25Weight,
		VectorWeight:    cfg.Search.VectorWeight,
		TriggerTerms:    cfg.Search.TriggerTerms,
		AuxiliaryQuery:  cfg.Search.AuxiliaryQuery,
		AuxiliaryWeight: cfg.Search.AuxiliaryWeight,
	}

	return service.NewEngine(ctx, service.Options{
		ArtifactDir:        cfg.Corpus.ArtifactDir,
		Embedder:           embedder,
		EmbeddingCachePath: cfg.Embeddings.CachePath,
		Ranker:             &ranker,
	})
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
