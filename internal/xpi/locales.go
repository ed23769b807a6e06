package xpi

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// LocalesDir is the folder inside a WebExtension that holds one
// subfolder per supported locale.
const LocalesDir = "_locales"

// DiscoverLocales lists the locales shipped in an extracted package:
// every non-hidden subdirectory of _locales, with '_' normalised to '-',
// deduplicated and sorted. A missing _locales yields an empty list.
func DiscoverLocales(extractDir string) ([]string, error) {
	root := filepath.Join(extractDir, LocalesDir)
	entries, err := os.ReadDir(root)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	locales := []string{}
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") || !isDir(root, e) {
			continue
		}
		locales = append(locales, NormalizeLocale(name))
	}
	slices.Sort(locales)
	return slices.Compact(locales), nil
}

// NormalizeLocale turns a folder-style code (en_US) into a tag (en-US).
func NormalizeLocale(name string) string {
	return strings.ReplaceAll(name, "_", "-")
}

func isDir(root string, e os.DirEntry) bool {
	if e.IsDir() {
		return true
	}
	if e.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(root, e.Name()))
	return err == nil && info.IsDir()
}
