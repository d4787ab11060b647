// Package indexcmder provides the index command that builds the vector index
// from the document corpus.
package indexcmder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/ecofes/lubebot/cmd/lubebot/pipeline"
	"github.com/ecofes/lubebot/pkg/cliui"
	"github.com/ecofes/lubebot/pkg/config"
	"github.com/ecofes/lubebot/pkg/logger"
	"github.com/ecofes/lubebot/pkg/retrieval"
)

// defaultDebounce collapses editor save bursts into one rebuild.
const defaultDebounce = 2 * time.Second

type indexCommander struct {
	corpus, vectorProvider, vectorTarget string
	embeddingProvider, embeddingModel    string
	chunkSize, embedDelay, embeddingDims uint

	rebuild  bool
	watch    bool
	debounce time.Duration

	configDir string
	debug     bool
	logger    *slog.Logger
}

var indexFlagKeys = []string{
	config.FlagCorpusRoot,
	config.FlagChunkSize,
	config.FlagEmbedDelay,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
}

const indexLongDesc string = `Index the document corpus.

Every regular file under the corpus root is read, split into chunks and
embedded into the vector index. An index that is already populated is left
as is; pass --rebuild to empty it first.

With --watch the command keeps running and rebuilds the index whenever a
file under the corpus root changes.

Examples:
  lubebot index
  lubebot index --corpus ./docs --rebuild
  lubebot index --watch`

const indexShortDesc string = "Index the document corpus"

func NewIndexCmd() *cobra.Command {
	cmder := &indexCommander{}

	cmd := &cobra.Command{
		Use:   "index",
		Short: indexShortDesc,
		Long:  indexLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cfg, configDir, err := pipeline.LoadConfig(cmd, indexFlagKeys)
			if err != nil {
				return err
			}
			cmder.configDir = configDir

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return cmder.run(ctx, cmd.OutOrStdout(), cfg)
		},
	}

	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagCorpusRoot, &cmder.corpus)
	config.AddUintFlag(cmd, config.DefaultFlags, config.FlagChunkSize, &cmder.chunkSize)
	config.AddUintFlag(cmd, config.DefaultFlags, config.FlagEmbedDelay, &cmder.embedDelay)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagVectorStoreProv, &cmder.vectorProvider)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagVectorStoreTgt, &cmder.vectorTarget)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagEmbeddingProv, &cmder.embeddingProvider)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddUintFlag(cmd, config.DefaultFlags, config.FlagEmbeddingDims, &cmder.embeddingDims)
	cmd.Flags().BoolVar(&cmder.rebuild, "rebuild", false, "Empty the index before building")
	cmd.Flags().BoolVarP(&cmder.watch, "watch", "w", false, "Rebuild the index when the corpus changes")
	cmd.Flags().DurationVar(&cmder.debounce, "debounce", defaultDebounce, "Quiet period before a watched change triggers a rebuild")

	return cmd
}

func (c *indexCommander) run(ctx context.Context, w io.Writer, cfg *config.Config) error {
	c.logger = logger.NewCLI(c.debug)

	engine, err := pipeline.NewEngine(ctx, cfg, c.logger)
	if err != nil {
		return err
	}
	defer engine.Close()

	build := engine.Build
	if c.rebuild {
		build = engine.Rebuild
	}
	if err := c.buildOnce(ctx, w, build); err != nil {
		return err
	}

	if !c.watch {
		return nil
	}

	lipgloss.Fprintf(w, "\n  %s %s\n\n",
		cliui.KeyStyle.Render("Watching"),
		cliui.DimStyle.Render(cfg.Corpus.Root),
	)

	err = WatchCorpus(ctx, cfg.Corpus.Root, c.debounce, c.logger, func() error {
		return c.buildOnce(ctx, w, engine.Rebuild)
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (c *indexCommander) buildOnce(ctx context.Context, w io.Writer, build func(context.Context) (*retrieval.BuildReport, error)) error {
	var report *retrieval.BuildReport
	err := cliui.Step(w, "Indexing corpus", func() error {
		var err error
		report, err = build(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("building index: %w", err)
	}

	printReport(w, report)

	if err := pipeline.SaveBuildState(report, c.configDir); err != nil {
		c.logger.Warn("could not record build state", "error", err)
	}
	return nil
}

func printReport(w io.Writer, r *retrieval.BuildReport) {
	if r.Skipped {
		lipgloss.Fprintf(w, "  %s\n",
			cliui.DimStyle.Render(fmt.Sprintf("index already holds %d entries, nothing to do (use --rebuild)", r.Existing)),
		)
		return
	}

	rows := []struct {
		key string
		val int
	}{
		{"files", r.Files},
		{"chunks", r.Chunks},
		{"indexed", r.Indexed},
		{"skipped files", r.SkippedFiles},
		{"read errors", r.ReadErrors},
		{"oversized", r.Oversized},
		{"embed failures", r.EmbedFailures},
	}
	for _, row := range rows {
		lipgloss.Fprintf(w, "  %s %s\n",
			cliui.KeyStyle.Render(fmt.Sprintf("%-15s", row.key)),
			cliui.ValueStyle.Render(fmt.Sprintf("%d", row.val)),
		)
	}

	if r.Empty() {
		lipgloss.Fprintf(w, "\n  %s\n", cliui.WarnStyle.Render("nothing was indexed; searches will return no results"))
	}
}
