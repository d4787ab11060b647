// Package servecmder provides the serve command that runs the lubebot API.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ecofes/lubebot/api"
	"github.com/ecofes/lubebot/cmd/lubebot/pipeline"
	"github.com/ecofes/lubebot/pkg/config"
	eventutils "github.com/ecofes/lubebot/pkg/eventstream/utils"
	"github.com/ecofes/lubebot/pkg/logger"
	storageutils "github.com/ecofes/lubebot/pkg/storage/utils"
	"github.com/ecofes/lubebot/pkg/worker"
)

type ServeCommander struct {
	flags serveFlags

	disableMCP bool
	configDir  string
	debug      bool
	logger     *slog.Logger
}

// serveFlags only exist so cobra has somewhere to write; values are read
// back through viper.
type serveFlags struct {
	listen, corpus                         string
	storageProvider, sqlitePath            string
	vectorProvider, vectorTarget           string
	embeddingProvider, embeddingTarget     string
	embeddingModel                         string
	generationProvider, generationModel    string
	rulesPath, eventsProvider, kafkaBroker string
	topK, embeddingDims                    uint
}

var serveFlagKeys = []string{
	config.FlagAPIListen,
	config.FlagCorpusRoot,
	config.FlagTopK,
	config.FlagStorageProv,
	config.FlagSQLite,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagGenerationProv,
	config.FlagGenerationModel,
	config.FlagRulesPath,
	config.FlagEventsProv,
	config.FlagEventsBrokers,
}

const serveLongDesc string = `Run the lubebot API server.

On startup the corpus is indexed unless the vector index is already
populated. The server then answers questions, classifies queries, captures
leads and exposes search over MCP at /mcp.

Examples:
  lubebot serve
  lubebot serve --listen :9000 --corpus ./docs
  lubebot serve --storage-provider postgres --events-provider kafka --kafka-brokers localhost:9092`

const serveShortDesc string = "Run the lubebot API server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cfg, configDir, err := pipeline.LoadConfig(cmd, serveFlagKeys)
			if err != nil {
				return err
			}
			cmder.configDir = configDir

			return cmder.run(cmd.Context(), cfg)
		},
	}

	f := &cmder.flags
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagAPIListen, &f.listen)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagCorpusRoot, &f.corpus)
	config.AddUintFlag(cmd, config.DefaultFlags, config.FlagTopK, &f.topK)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagStorageProv, &f.storageProvider)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagSQLite, &f.sqlitePath)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagVectorStoreProv, &f.vectorProvider)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagVectorStoreTgt, &f.vectorTarget)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagEmbeddingProv, &f.embeddingProvider)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagEmbeddingTgt, &f.embeddingTarget)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagEmbeddingModel, &f.embeddingModel)
	config.AddUintFlag(cmd, config.DefaultFlags, config.FlagEmbeddingDims, &f.embeddingDims)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagGenerationProv, &f.generationProvider)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagGenerationModel, &f.generationModel)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagRulesPath, &f.rulesPath)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagEventsProv, &f.eventsProvider)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagEventsBrokers, &f.kafkaBroker)
	cmd.Flags().BoolVar(&cmder.disableMCP, "no-mcp", false, "Do not mount the MCP endpoint")

	return cmd
}

func (c *ServeCommander) run(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	c.logger = logger.NewCLI(c.debug)

	engine, err := pipeline.NewEngine(ctx, cfg, c.logger)
	if err != nil {
		return err
	}
	defer engine.Close()

	report, err := engine.Build(ctx)
	if err != nil {
		return fmt.Errorf("building index: %w", err)
	}
	if report.Empty() {
		c.logger.Warn("index is empty, every question will be escalated", "corpus", cfg.Corpus.Root)
	}
	if err := pipeline.SaveBuildState(report, c.configDir); err != nil {
		c.logger.Warn("could not record build state", "error", err)
	}

	cls, err := pipeline.NewClassifier(cfg)
	if err != nil {
		return err
	}

	rt, err := pipeline.NewRouter(cfg, cls, engine, c.logger)
	if err != nil {
		return err
	}

	store, err := storageutils.NewStorageDriver(ctx, &storageutils.NewStorageDriverOpts{
		ProviderType: cfg.Storage.Provider,
		SQLitePath:   cfg.Storage.SQLitePath,
		PostgresDSN:  cfg.Storage.PostgresDSN,
	})
	if err != nil {
		return fmt.Errorf("opening record store: %w", err)
	}
	defer store.Close()

	publisher, err := eventutils.NewPublisher(&eventutils.NewPublisherOpts{
		ProviderType: cfg.Events.Provider,
		Brokers:      cfg.Events.Brokers,
		Topic:        cfg.Events.Topic,
		Logger:       c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating event publisher: %w", err)
	}
	defer publisher.Close()

	pool, err := worker.NewPool(&worker.Config{
		Driver:    store,
		Publisher: publisher,
		Logger:    c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating worker pool: %w", err)
	}
	defer pool.Close()

	server, err := api.NewServer(api.Config{
		ListenAddr: cfg.API.Listen,
		Index:      engine,
		Classifier: cls,
		Router:     rt,
		Storage:    store,
		Pool:       pool,
		DisableMCP: c.disableMCP,
	}, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	c.logger.Info("starting api server",
		"api_addr", cfg.API.Listen,
		"storage", cfg.Storage.Provider,
		"vector_store", cfg.VectorStore.Provider,
		"embedding", cfg.Embedding.Provider,
		"generation", cfg.Generation.Provider,
		"events", cfg.Events.Provider,
	)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		if err := server.Shutdown(); err != nil {
			c.logger.Warn("shutting down API server", "error", err)
		}
		return nil
	}
}
