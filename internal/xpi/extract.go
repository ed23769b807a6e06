package xpi

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"addonlocales/pkg/models"
)

// Extract unpacks the archive for ext into its extraction directory.
// An existing non-empty directory is a cache hit and is left alone,
// whatever version it holds. It reports whether anything was extracted.
func (c *Cache) Extract(ext models.Extension) (bool, error) {
	dir := c.ExtractDir(ext)
	if ext.LocalFolder == "" {
		return false, fmt.Errorf("%w: %s has no local folder", ErrUnavailable, ext.Slug)
	}
	if nonEmptyDir(dir) {
		return false, nil
	}

	c.Logger.Info(fmt.Sprintf("Extracting %s for %s", ext.Version, ext.Name), slog.String("dir", dir))
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return false, err
	}
	staging, err := os.MkdirTemp(c.Dir, "."+ext.LocalFolder+".*.extract")
	if err != nil {
		return false, err
	}
	defer os.RemoveAll(staging)

	if err := Unzip(c.ArchivePath(ext), staging); err != nil {
		return false, err
	}
	if err := os.RemoveAll(dir); err != nil {
		return false, err
	}
	if err := os.Rename(staging, dir); err != nil {
		return false, err
	}
	return true, nil
}

// Unzip extracts every entry of the archive at src under dst. Entries
// that resolve outside dst are rejected.
func Unzip(src, dst string) error {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("xpi: open %s: %w", src, err)
	}
	defer zr.Close()

	root, err := filepath.Abs(dst)
	if err != nil {
		return err
	}
	for _, f := range zr.File {
		target, err := entryPath(root, f.Name)
		if err != nil {
			return fmt.Errorf("xpi: %s: %w", src, err)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := writeEntry(f, target); err != nil {
			return fmt.Errorf("xpi: %s: %s: %w", src, f.Name, err)
		}
	}
	return nil
}

func entryPath(root, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("illegal entry path %q", name)
	}
	target := filepath.Join(root, clean)
	if target != root && !strings.HasPrefix(target, root+string(filepath.Separator)) {
		return "", fmt.Errorf("illegal entry path %q", name)
	}
	return target, nil
}

func writeEntry(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func nonEmptyDir(dir string) bool {
	f, err := os.Open(dir)
	if err != nil {
		return false
	}
	defer f.Close()
	names, err := f.Readdirnames(1)
	if err != nil && !errors.Is(err, io.EOF) {
		return false
	}
	return len(names) > 0
}
