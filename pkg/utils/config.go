package utils

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"addonlocales/pkg/metastore"
)

// PipelineConfig holds every path and knob the stages need. Paths are
// explicit values; nothing is derived from the executable's location.
type PipelineConfig struct {
	StorePath   string        `yaml:"store_path"`
	CacheDir    string        `yaml:"cache_dir"`
	RegistryURL string        `yaml:"registry_url"`
	PageSize    int           `yaml:"page_size"`
	MaxPages    int           `yaml:"max_pages"`
	Workers     int           `yaml:"workers"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	LogLevel    string        `yaml:"log_level"`
	LogFormat   string        `yaml:"log_format"`
}

func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		StorePath:   metastore.DefaultPath,
		CacheDir:    "support_files",
		RegistryURL: "https://addons.mozilla.org",
		PageSize:    50,
		MaxPages:    4,
		Workers:     1,
		LogLevel:    "info",
		LogFormat:   "text",
	}
}

// LoadPipelineConfig layers defaults, the optional YAML file at path,
// a .env file in the working directory and ADDONS_* environment variables,
// later layers winning. An empty path skips the YAML layer.
func LoadPipelineConfig(path string) (PipelineConfig, error) {
	cfg := DefaultPipelineConfig()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config yaml: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	applyEnv(&cfg)

	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 4
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return cfg, nil
}

func applyEnv(cfg *PipelineConfig) {
	if v := env("ADDONS_STORE_PATH"); v != "" {
		cfg.StorePath = v
	}
	if v := env("ADDONS_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := env("ADDONS_REGISTRY_URL"); v != "" {
		cfg.RegistryURL = strings.TrimRight(v, "/")
	}
	if n, ok := envInt("ADDONS_PAGE_SIZE"); ok {
		cfg.PageSize = n
	}
	if n, ok := envInt("ADDONS_MAX_PAGES"); ok {
		cfg.MaxPages = n
	}
	if n, ok := envInt("ADDONS_WORKERS"); ok {
		cfg.Workers = n
	}
	if v := env("ADDONS_HTTP_TIMEOUT"); v != "" {
		// unparsable durations keep the previous value
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HTTPTimeout = d
		}
	}
	if v := env("ADDONS_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := env("ADDONS_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envInt(key string) (int, bool) {
	raw := env(key)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}
