// import-ranking builds the metadata store from a ranking CSV of add-on
// GUIDs, resolving each against the registry's search API.
//
// Usage:
//
//	import-ranking --csv <ranking.csv> [--config addons.yaml] [--store data/metadata.json]
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"addonlocales/internal/logging"
	"addonlocales/internal/ranking"
	"addonlocales/internal/registry"
	"addonlocales/pkg/metastore"
	"addonlocales/pkg/utils"
)

var (
	csvPath     string
	configPath  string
	storePath   string
	registryURL string
)

var rootCmd = &cobra.Command{
	Use:          "import-ranking",
	Short:        "Resolve a ranked add-on list against the registry",
	SilenceUsage: true,
	RunE:         runImport,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&csvPath, "csv", "", "Path to the ranking CSV (required, needs a guid column)")
	f.StringVar(&configPath, "config", "", "Optional YAML config file")
	f.StringVar(&storePath, "store", "", "Metadata store path (overrides config)")
	f.StringVar(&registryURL, "registry-url", "", "Registry base URL (overrides config)")
	_ = rootCmd.MarkFlagRequired("csv")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runImport(cmd *cobra.Command, _ []string) error {
	cfg, err := utils.LoadPipelineConfig(configPath)
	if err != nil {
		return err
	}
	if storePath != "" {
		cfg.StorePath = storePath
	}
	if registryURL != "" {
		cfg.RegistryURL = registryURL
	}

	logging.Init(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)
	logger := logging.WithRun(logging.New("importer"))

	f, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("open ranking csv: %w", err)
	}
	defer f.Close()

	client := registry.NewClient(cfg.RegistryURL, &http.Client{Timeout: cfg.HTTPTimeout})
	client.PageSize = cfg.PageSize
	client.MaxPages = cfg.MaxPages
	client.Logger = logger

	store, rep, err := ranking.NewImporter(client, logger).Run(cmd.Context(), f)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	if err := metastore.Save(metastore.Config{Path: cfg.StorePath}, store); err != nil {
		return fmt.Errorf("save store: %w", err)
	}

	logger.Info("import complete",
		slog.Int("ranked", rep.Ranked),
		slog.Int("resolved", rep.Resolved),
		slog.Int("dropped", len(rep.Dropped)),
		slog.Int("pages", client.FetchedPages()),
		slog.String("store", cfg.StorePath),
	)
	return nil
}
