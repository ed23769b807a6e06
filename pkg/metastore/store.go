package metastore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sort"

	"addonlocales/pkg/models"
)

// Store is the metadata store: GUID -> Extension, in insertion order.
// The JSON object's key order on disk is the iteration order in memory.
type Store struct {
	order   []string
	records map[string]*models.Extension
}

func New() *Store {
	return &Store{records: make(map[string]*models.Extension)}
}

// Put stores ext under guid. New GUIDs are appended; existing ones keep
// their position.
func (s *Store) Put(guid string, ext models.Extension) {
	if s.records == nil {
		s.records = make(map[string]*models.Extension)
	}
	if cur, ok := s.records[guid]; ok {
		*cur = ext
		return
	}
	e := ext
	s.records[guid] = &e
	s.order = append(s.order, guid)
}

// Get returns the live record for guid; mutations are visible to Save.
func (s *Store) Get(guid string) (*models.Extension, bool) {
	e, ok := s.records[guid]
	return e, ok
}

func (s *Store) Delete(guid string) {
	if _, ok := s.records[guid]; !ok {
		return
	}
	delete(s.records, guid)
	s.order = slices.DeleteFunc(s.order, func(g string) bool { return g == guid })
}

func (s *Store) Len() int { return len(s.order) }

// GUIDs returns a copy of the keys in iteration order.
func (s *Store) GUIDs() []string {
	return slices.Clone(s.order)
}

// Each calls fn for every record in order, stopping at the first error.
func (s *Store) Each(fn func(guid string, ext *models.Extension) error) error {
	for _, guid := range s.order {
		if err := fn(guid, s.records[guid]); err != nil {
			return err
		}
	}
	return nil
}

// SortByRanking reorders the store by ascending ranking, keeping the
// current relative order for equal rankings.
func (s *Store) SortByRanking() {
	sort.SliceStable(s.order, func(i, j int) bool {
		return s.records[s.order[i]].Ranking < s.records[s.order[j]].Ranking
	})
}

// MarshalJSON writes the records as one object in iteration order.
// HTML escaping is off so names keep '<', '>' and '&' literally.
func (s *Store) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	var out bytes.Buffer
	out.WriteByte('{')
	for i, guid := range s.order {
		if i > 0 {
			out.WriteByte(',')
		}
		buf.Reset()
		if err := enc.Encode(guid); err != nil {
			return nil, fmt.Errorf("encode key %q: %w", guid, err)
		}
		out.Write(bytes.TrimRight(buf.Bytes(), "\n"))
		out.WriteByte(':')

		buf.Reset()
		if err := enc.Encode(s.records[guid]); err != nil {
			return nil, fmt.Errorf("encode record %q: %w", guid, err)
		}
		out.Write(bytes.TrimRight(buf.Bytes(), "\n"))
	}
	out.WriteByte('}')
	return out.Bytes(), nil
}

// UnmarshalJSON reads an object of records, keeping key order. A repeated
// key replaces the earlier value in place.
func (s *Store) UnmarshalJSON(b []byte) error {
	fresh := New()
	dec := json.NewDecoder(bytes.NewReader(b))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("read store: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("read store: expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("read store key: %w", err)
		}
		guid, ok := tok.(string)
		if !ok {
			return fmt.Errorf("read store: unexpected key %v", tok)
		}
		var ext models.Extension
		if err := dec.Decode(&ext); err != nil {
			return fmt.Errorf("decode record %q: %w", guid, err)
		}
		fresh.Put(guid, ext)
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("read store end: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("read store: trailing data after object")
	}

	*s = *fresh
	return nil
}

// Encode writes the store indented by two spaces with a trailing newline.
func (s *Store) Encode(w io.Writer) error {
	compact, err := s.MarshalJSON()
	if err != nil {
		return err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "  "); err != nil {
		return fmt.Errorf("indent store: %w", err)
	}
	out.WriteByte('\n')
	_, err = w.Write(out.Bytes())
	return err
}

// Decode replaces the store's contents with the object read from r.
func (s *Store) Decode(r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return s.UnmarshalJSON(b)
}
