package xpi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"addonlocales/pkg/models"
)

// ErrUnavailable means a package could not be obtained or placed for a
// record, e.g. a missing URL, a non-2xx response or an empty body.
// Callers skip the record.
var ErrUnavailable = errors.New("xpi: package unavailable")

// Cache keeps one archive and one extraction directory per extension
// under Dir. Nothing is ever evicted. Archives are named after the package
// URL's file name and directories after the record's local folder; both
// carry the version, so a new release lands next to the old one.
type Cache struct {
	Dir    string
	Client *http.Client
	Logger *slog.Logger
}

func NewCache(dir string, client *http.Client, logger *slog.Logger) *Cache {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{Dir: dir, Client: client, Logger: logger}
}

func (c *Cache) ArchivePath(ext models.Extension) string {
	return filepath.Join(c.Dir, ext.PackageFileName())
}

func (c *Cache) ExtractDir(ext models.Extension) string {
	return filepath.Join(c.Dir, ext.LocalFolder)
}

// Acquire makes sure the archive for ext is on disk and non-empty,
// downloading it when needed, and returns its path.
func (c *Cache) Acquire(ctx context.Context, ext models.Extension) (string, error) {
	file := ext.PackageFileName()
	if ext.XPIURL == "" || file == "" {
		return "", fmt.Errorf("%w: no package url", ErrUnavailable)
	}
	if ext.LocalFolder == "" {
		return "", fmt.Errorf("%w: %s has no local folder", ErrUnavailable, file)
	}
	path := c.ArchivePath(ext)

	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		return path, nil
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}

	c.Logger.Info(fmt.Sprintf("Downloading latest version for %s ...", ext.Name), slog.String("url", ext.XPIURL))
	n, err := c.download(ctx, ext.XPIURL, path)
	if err != nil {
		return "", err
	}
	c.Logger.Debug("downloaded package", slog.String("file", file), slog.String("size", humanize.Bytes(uint64(n))))
	return path, nil
}

// download streams url into path through a temp file in the same
// directory, so an interrupted transfer never leaves a truncated archive.
func (c *Cache) download(ctx context.Context, url, path string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("xpi: build request: %w", err)
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("xpi: download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("%w: %s: status %d", ErrUnavailable, url, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.part")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("xpi: download %s: %w", url, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: %s: empty body", ErrUnavailable, url)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, err
	}
	return n, nil
}
