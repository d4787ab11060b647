// Package pipeline assembles lubebot components from a resolved Config.
// Commands share it so "lubebot serve" and "lubebot index" build the index
// the same way.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/ecofes/lubebot/pkg/classifier"
	"github.com/ecofes/lubebot/pkg/config"
	"github.com/ecofes/lubebot/pkg/dotdir"
	embeddingutils "github.com/ecofes/lubebot/pkg/embeddings/utils"
	generationutils "github.com/ecofes/lubebot/pkg/generation/utils"
	"github.com/ecofes/lubebot/pkg/retrieval"
	"github.com/ecofes/lubebot/pkg/router"
	vectorutils "github.com/ecofes/lubebot/pkg/vector/utils"
)

// LoadConfig resolves the effective configuration for cmd: defaults, the
// config file, LUBEBOT_* environment and the registered flags in flagKeys.
// Data files default into the dot directory, which is created on demand
// when a sqlite store is in use.
func LoadConfig(cmd *cobra.Command, flagKeys []string) (*config.Config, string, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}
	config.BindRegisteredFlags(v, cmd, config.DefaultFlags, flagKeys)

	cfg, err := config.Resolve(v)
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}

	needsDir := (cfg.VectorStore.Provider == "sqlite" && cfg.VectorStore.Target == "") ||
		(cfg.Storage.Provider == "sqlite" && cfg.Storage.SQLitePath == "")
	if !needsDir {
		return cfg, configDir, nil
	}

	dir, err := dotdir.NewManager().Ensure(configDir)
	if err != nil {
		return nil, "", fmt.Errorf("preparing data directory: %w", err)
	}
	cfg.FillDataPaths(dir)

	return cfg, configDir, nil
}

// NewEngine builds the embedder, opens the vector index and returns an
// engine over them. Closing the engine closes both.
func NewEngine(ctx context.Context, cfg *config.Config, log *slog.Logger) (*retrieval.Engine, error) {
	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType:  cfg.Embedding.Provider,
		TargetURL:     cfg.Embedding.Target,
		Model:         cfg.Embedding.Model,
		Dimensions:    cfg.Embedding.Dimensions,
		APIKey:        cfg.Embedding.APIKey,
		Timeout:       seconds(cfg.Embedding.TimeoutSeconds),
		MaxInputChars: cfg.Embedding.MaxInputChars,
		TokenURL:      cfg.Embedding.Auth.TokenURL,
		ClientID:      cfg.Embedding.Auth.ClientID,
		ClientSecret:  cfg.Embedding.Auth.ClientSecret,
		Scope:         cfg.Embedding.Auth.Scope,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	driver, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
		ProviderType: cfg.VectorStore.Provider,
		TargetURL:    cfg.VectorStore.Target,
		Collection:   cfg.VectorStore.Collection,
		Dimensions:   cfg.Embedding.Dimensions,
		Logger:       log,
	})
	if err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("opening vector index: %w", err)
	}

	engine := retrieval.NewEngine(embedder, driver,
		retrieval.WithCorpusRoot(cfg.Corpus.Root),
		retrieval.WithChunkSize(int(cfg.Corpus.ChunkSize)),
		retrieval.WithMinContentChars(int(cfg.Corpus.MinContentChars)),
		retrieval.WithMaxChunkChars(int(cfg.Corpus.MaxChunkChars)),
		retrieval.WithEmbedDelay(time.Duration(cfg.Corpus.EmbedDelayMS)*time.Millisecond),
		retrieval.WithBatchSize(int(cfg.Corpus.BatchSize)),
		retrieval.WithTopK(int(cfg.Retrieval.TopK)),
		retrieval.WithMaxDistance(cfg.Retrieval.MaxDistance),
		retrieval.WithLogger(log),
	)

	return engine, nil
}

// NewClassifier loads the built-in rules or the configured rules file.
func NewClassifier(cfg *config.Config) (*classifier.Classifier, error) {
	var opts []classifier.Option
	if cfg.Classifier.RulesPath != "" {
		opts = append(opts, classifier.WithRulesFile(cfg.Classifier.RulesPath))
	}

	c, err := classifier.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("loading classifier rules: %w", err)
	}
	return c, nil
}

// NewRouter builds the configured generator and a router over c and r.
func NewRouter(cfg *config.Config, c *classifier.Classifier, r router.Retriever, log *slog.Logger) (*router.Router, error) {
	gen, err := generationutils.NewGenerator(&generationutils.NewGeneratorOpts{
		ProviderType: cfg.Generation.Provider,
		TargetURL:    cfg.Generation.Target,
		Model:        cfg.Generation.Model,
		APIKey:       cfg.Generation.APIKey,
		Temperature:  cfg.Generation.Temperature,
		MaxTokens:    int(cfg.Generation.MaxTokens),
		Timeout:      seconds(cfg.Generation.TimeoutSeconds),
		Referer:      cfg.Generation.Referer,
		Title:        cfg.Generation.Title,
	})
	if err != nil {
		return nil, fmt.Errorf("creating generator: %w", err)
	}

	return router.New(c, r, gen,
		router.WithMessages(router.DefaultMessages(cfg.Contact.Phone)),
		router.WithTopK(int(cfg.Retrieval.TopK)),
		router.WithContextChunks(int(cfg.Retrieval.ContextChunks)),
		router.WithMaxAnswerChars(int(cfg.Generation.MaxAnswerChars)),
		router.WithLogger(log),
	), nil
}

func seconds(n uint) time.Duration {
	return time.Duration(n) * time.Second
}

// SaveBuildState records report in the dot directory so "lubebot index"
// can show the last build across restarts.
func SaveBuildState(report *retrieval.BuildReport, configDir string) error {
	return dotdir.NewManager().SaveBuildState(&dotdir.BuildState{
		CorpusRoot:    report.CorpusRoot,
		BuiltAt:       report.BuiltAt,
		Files:         report.Files,
		Chunks:        report.Chunks,
		Indexed:       report.Indexed,
		EmbedFailures: report.EmbedFailures,
		Skipped:       report.Skipped,
	}, configDir)
}
