// export-csv flattens the metadata store into a wide CSV: one row per
// add-on and one column per locale seen anywhere in the dataset.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"addonlocales/internal/export"
	"addonlocales/internal/logging"
	"addonlocales/pkg/metastore"
	"addonlocales/pkg/utils"
)

var (
	csvPath    string
	configPath string
	storePath  string
)

var rootCmd = &cobra.Command{
	Use:          "export-csv",
	Short:        "Export the metadata store as a per-locale CSV table",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runExport,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&csvPath, "csv", "", "Path to the output CSV (required)")
	f.StringVar(&configPath, "config", "", "Optional YAML config file")
	f.StringVar(&storePath, "store", "", "Metadata store path (overrides config)")
	_ = rootCmd.MarkFlagRequired("csv")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runExport(_ *cobra.Command, _ []string) error {
	cfg, err := utils.LoadPipelineConfig(configPath)
	if err != nil {
		return err
	}
	if storePath != "" {
		cfg.StorePath = storePath
	}

	logging.Init(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)
	logger := logging.WithRun(logging.New("exporter"))

	store, err := metastore.Load(metastore.Config{Path: cfg.StorePath})
	if err != nil {
		return err
	}

	if err := export.WriteFile(csvPath, store); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	logger.Info("export complete",
		slog.Int("rows", store.Len()),
		slog.Int("locales", len(export.Columns(store))),
		slog.String("csv", csvPath),
	)
	return nil
}
