// registry-mirror serves a local copy of the add-on registry: the search
// endpoint over a JSON fixture (see export-mirror) and package files from
// a directory. Point ADDONS_REGISTRY_URL at it for offline imports.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"addonlocales/internal/logging"
	"addonlocales/internal/mirror"
)

var (
	addr        string
	fixturePath string
	packageDir  string
)

var rootCmd = &cobra.Command{
	Use:          "registry-mirror",
	Short:        "Serve a local registry mirror for offline runs",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runMirror,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&addr, "addr", ":9000", "Listen address")
	f.StringVar(&fixturePath, "fixture", "data/mirror.json", "JSON array of search results to serve")
	f.StringVar(&packageDir, "packages", "support_files", "Directory served under /downloads/")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runMirror(_ *cobra.Command, _ []string) error {
	logging.Init(slog.LevelInfo, "text")
	logger := logging.New("mirror")

	results, err := mirror.LoadFixture(fixturePath)
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	router := mirror.NewEngine(mirror.NewHandler(results, packageDir))
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	logger.Info("registry mirror listening",
		slog.String("addr", addr),
		slog.Int("results", len(results)),
		slog.String("packages", packageDir),
	)
	return router.Run(addr)
}
