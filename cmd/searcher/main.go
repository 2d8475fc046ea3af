package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/logger"
)

var (
	configPath string
	storePath  string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "searcher",
	Short:         "Query fieldsearch index stores",
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

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML or TOML config file")
	rootCmd.PersistentFlags().StringVar(&storePath, "store", "", "store location (default: latest catalog build, then indexer.dataDir)")
	rootCmd.AddCommand(queryCmd, batchCmd, serveCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "searcher: %v\n", err)
		os.Exit(1)
	}
}

// resolveStore returns --store, else the location of the newest build in
// the catalog, else indexer.dataDir.
func resolveStore(ctx context.Context) (string, error) {
	if storePath != "" {
		return storePath, nil
	}
	if cfg.Catalog.Driver == "" {
		return cfg.Indexer.DataDir, nil
	}
	cat, err := catalog.Open(ctx, cfg.Catalog)
	if err != nil {
		return "", err
	}
	defer cat.Close()
	latest, err := cat.Latest(ctx, "")
	if errors.Is(err, catalog.ErrNoBuilds) {
		return cfg.Indexer.DataDir, nil
	}
	if err != nil {
		return "", err
	}
	return latest.Location, nil
}
