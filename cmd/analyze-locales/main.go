// analyze-locales downloads and unpacks every add-on in the metadata store
// and records the locales each package ships.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"addonlocales/internal/analyzer"
	"addonlocales/internal/logging"
	"addonlocales/internal/xpi"
	"addonlocales/pkg/metastore"
	"addonlocales/pkg/utils"
)

var (
	configPath string
	storePath  string
	cacheDir   string
	workers    int
)

var rootCmd = &cobra.Command{
	Use:          "analyze-locales",
	Short:        "Annotate the metadata store with each package's locales",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runAnalyze,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&configPath, "config", "", "Optional YAML config file")
	f.StringVar(&storePath, "store", "", "Metadata store path (overrides config)")
	f.StringVar(&cacheDir, "cache-dir", "", "Package cache directory (overrides config)")
	f.IntVar(&workers, "workers", 0, "Concurrent package downloads (overrides config, default 1)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	cfg, err := utils.LoadPipelineConfig(configPath)
	if err != nil {
		return err
	}
	if storePath != "" {
		cfg.StorePath = storePath
	}
	if cacheDir != "" {
		cfg.CacheDir = cacheDir
	}
	if workers > 0 {
		cfg.Workers = workers
	}

	logging.Init(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)
	logger := logging.WithRun(logging.New("analyzer"))

	storeCfg := metastore.Config{Path: cfg.StorePath}
	store, err := metastore.Load(storeCfg)
	if err != nil {
		return err
	}

	cache := xpi.NewCache(cfg.CacheDir, &http.Client{Timeout: cfg.HTTPTimeout}, logger)
	rep, err := analyzer.New(cache, cfg.Workers, logger).Run(cmd.Context(), store)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if err := metastore.Save(storeCfg, store); err != nil {
		return fmt.Errorf("save store: %w", err)
	}

	logger.Info("analysis complete",
		slog.Int("analyzed", rep.Analyzed),
		slog.Int("extracted", rep.Extracted),
		slog.Int("skipped", len(rep.Skipped)),
		slog.String("store", cfg.StorePath),
	)
	return nil
}
