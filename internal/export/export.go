package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"addonlocales/pkg/metastore"
	"addonlocales/pkg/models"
)

// Present marks a supported locale in the wide table.
const Present = "X"

var fixedHeader = []string{"Add-on", "Avg Daily Users", "Ranking", "GUID", "Version", "Locales"}

// Columns returns the sorted union of every record's locales.
func Columns(store *metastore.Store) []string {
	var all []string
	_ = store.Each(func(_ string, ext *models.Extension) error {
		all = append(all, ext.Locales...)
		return nil
	})
	slices.Sort(all)
	return slices.Compact(all)
}

// Header returns the fixed columns followed by one column per locale.
func Header(locales []string) []Cell {
	row := make([]Cell, 0, len(fixedHeader)+len(locales))
	for _, h := range fixedHeader {
		row = append(row, Text(h))
	}
	for _, l := range locales {
		row = append(row, Text(l))
	}
	return row
}

// Row flattens one record against the locale columns.
func Row(guid string, ext models.Extension, locales []string) []Cell {
	row := []Cell{
		Text(ext.Name),
		Int(ext.AverageDailyUsers),
		Int(int64(ext.Ranking)),
		Text(guid),
		Text(ext.Version),
		Int(int64(len(ext.Locales))),
	}
	for _, l := range locales {
		if slices.Contains(ext.Locales, l) {
			row = append(row, Text(Present))
		} else {
			row = append(row, Text(""))
		}
	}
	return row
}

// Write emits the header and one row per record in store order. The store
// is only read.
func Write(w io.Writer, store *metastore.Store) error {
	locales := Columns(store)
	cw := NewWriter(w)
	if err := cw.Write(Header(locales)); err != nil {
		return err
	}
	err := store.Each(func(guid string, ext *models.Extension) error {
		return cw.Write(Row(guid, *ext, locales))
	})
	if err != nil {
		return err
	}
	return cw.Flush()
}

// WriteFile overwrites path with the CSV export of store.
func WriteFile(path string, store *metastore.Store) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, store); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
