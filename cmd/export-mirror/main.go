// export-mirror writes the metadata store out as a registry-mirror fixture,
// so a later import can be replayed without the live registry.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"addonlocales/internal/logging"
	"addonlocales/pkg/metastore"
	"addonlocales/pkg/models"
	"addonlocales/pkg/utils"
)

var (
	outPath    string
	configPath string
	storePath  string
	baseURL    string
	limit      int
)

var rootCmd = &cobra.Command{
	Use:          "export-mirror",
	Short:        "Export the metadata store as a registry-mirror fixture",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runExportMirror,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&outPath, "out", "data/mirror.json", "Output JSON path")
	f.StringVar(&configPath, "config", "", "Optional YAML config file")
	f.StringVar(&storePath, "store", "", "Metadata store path (overrides config)")
	f.StringVar(&baseURL, "base-url", "", "Rewrite package URLs to <base-url>/downloads/<file>")
	f.IntVar(&limit, "limit", 0, "How many add-ons to export, by ranking (0 = all)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runExportMirror(_ *cobra.Command, _ []string) error {
	cfg, err := utils.LoadPipelineConfig(configPath)
	if err != nil {
		return err
	}
	if storePath != "" {
		cfg.StorePath = storePath
	}

	logging.Init(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)
	logger := logging.New("export-mirror")

	store, err := metastore.Load(metastore.Config{Path: cfg.StorePath})
	if err != nil {
		return err
	}
	out := toFixture(store, baseURL, limit)

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(outPath, b, 0o644); err != nil {
		return fmt.Errorf("write fixture: %w", err)
	}

	logger.Info(fmt.Sprintf("exported %d add-ons to %s", len(out), outPath))
	return nil
}

// toFixture maps records back to the registry's search result shape,
// ranking order first.
func toFixture(store *metastore.Store, base string, limit int) []models.SearchResult {
	store.SortByRanking()

	out := []models.SearchResult{}
	_ = store.Each(func(guid string, ext *models.Extension) error {
		if limit > 0 && len(out) >= limit {
			return nil
		}
		url := ext.XPIURL
		if base != "" && ext.PackageFileName() != "" {
			url = strings.TrimRight(base, "/") + "/downloads/" + ext.PackageFileName()
		}
		out = append(out, models.SearchResult{
			GUID:              guid,
			Slug:              ext.Slug,
			Name:              models.LocalizedText{"en-US": ext.Name},
			AverageDailyUsers: ext.AverageDailyUsers,
			CurrentVersion: models.CurrentVersion{
				Version: ext.Version,
				File:    models.VersionFile{URL: url},
			},
		})
		return nil
	})
	return out
}
