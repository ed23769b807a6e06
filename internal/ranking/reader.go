package ranking

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Entry is one ranked GUID. Row is its 1-based data row in the CSV.
type Entry struct {
	GUID string
	Row  int
}

// ReadRanking returns the entries of a ranking CSV in file order. The
// header must contain a guid column. Blank GUIDs are skipped and repeated
// GUIDs keep their first row, but every data row counts toward Row.
func ReadRanking(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := readHeader(cr)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("ranking csv: empty file")
		}
		return nil, fmt.Errorf("ranking csv: read header: %w", err)
	}
	if _, ok := header["guid"]; !ok {
		return nil, fmt.Errorf("ranking csv: missing guid column")
	}

	var entries []Entry
	seen := make(map[string]bool)
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ranking csv: %w", err)
		}
		guid := valueAt(header, rec, "guid")
		if guid == "" || seen[guid] {
			continue
		}
		seen[guid] = true
		entries = append(entries, Entry{GUID: guid, Row: row})
	}
	return entries, nil
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, err
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		name = strings.TrimPrefix(name, "\ufeff")
		header[strings.TrimSpace(strings.ToLower(name))] = idx
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
