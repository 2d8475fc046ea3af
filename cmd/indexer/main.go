package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/app"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/metrics"
)

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "indexer",
	Short:         "Build fieldsearch index stores",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		logger.Setup(os.Stderr, cfg.Logging)
		return nil
	},
}

var (
	buildSource  string
	buildDest    string
	buildAdapter string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Index a collection into a new store",
	Long: `Reads every document of --source through the chosen collection adapter
and commits them as a new store at --dest, replacing the previous one.
A malformed record aborts the build and leaves the previous store in place.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

var listLimit int

var buildsCmd = &cobra.Command{
	Use:   "builds",
	Short: "List builds recorded in the catalog",
	Args:  cobra.NoArgs,
	RunE:  runBuilds,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML or TOML config file")
	buildCmd.Flags().StringVar(&buildSource, "source", "", "collection directory or file")
	buildCmd.Flags().StringVar(&buildDest, "dest", "", "store location (default indexer.dataDir)")
	buildCmd.Flags().StringVar(&buildAdapter, "adapter", "", "whole_file or delimited_record (default indexer.adapter)")
	buildCmd.MarkFlagRequired("source")
	buildsCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "maximum number of builds")
	rootCmd.AddCommand(buildCmd, buildsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "indexer: %v\n", err)
		os.Exit(1)
	}
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	m := metrics.New()
	opts := []app.Option{app.WithMetrics(m)}

	if cfg.Metrics.Enabled {
		shutdown, err := metrics.StartServer(fmt.Sprintf(":%d", cfg.Metrics.Port), m)
		if err != nil {
			return err
		}
		defer shutdown(context.Background())
	}
	if cfg.Catalog.Driver != "" {
		cat, err := catalog.Open(ctx, cfg.Catalog)
		if err != nil {
			return err
		}
		defer cat.Close()
		opts = append(opts, app.WithRecorder(cat))
	}
	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
		defer producer.Close()
		opts = append(opts, app.WithPublisher(producer))
	}

	res, err := app.New(cfg, opts...).BuildIndex(ctx, app.BuildRequest{
		Source:  buildSource,
		Dest:    buildDest,
		Adapter: buildAdapter,
	})
	if err != nil {
		return err
	}
	slog.Info("index built",
		"build_id", res.BuildID,
		"location", res.Location,
		"adapter", res.Adapter,
		"docs", res.DocCount,
		"terms", res.TermCount,
		"duration", res.Duration,
	)
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d docs\t%d terms\n", res.BuildID, res.Location, res.DocCount, res.TermCount)
	return nil
}

func runBuilds(cmd *cobra.Command, args []string) error {
	if cfg.Catalog.Driver == "" {
		return fmt.Errorf("catalog.driver is not configured")
	}
	cat, err := catalog.Open(cmd.Context(), cfg.Catalog)
	if err != nil {
		return err
	}
	defer cat.Close()

	builds, err := cat.List(cmd.Context(), listLimit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, b := range builds {
		fmt.Fprintf(out, "%s\t%s\t%s\t%s\t%d\n",
			b.CreatedAt.Format("2006-01-02T15:04:05Z07:00"), b.BuildID, b.Adapter, b.Location, b.DocCount)
	}
	return nil
}
