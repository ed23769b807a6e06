package metastore

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"addonlocales/pkg/models"
)

func sampleStore() *Store {
	s := New()
	s.Put("zeta@example.com", models.Extension{Ranking: 1, Slug: "zeta@example.com", Name: "Zeta"})
	s.Put("alpha@example.com", models.Extension{Ranking: 2, Slug: "alpha@example.com", Name: "Ålpha <&> ツール"})
	s.Put("mid@example.com", models.Extension{Ranking: 3, Slug: "mid@example.com", Name: "Mid", Locales: []string{}})
	return s
}

func TestStoreKeepsInsertionOrderThroughRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleStore().Encode(&buf))

	got := New()
	require.NoError(t, got.Decode(&buf))
	assert.Equal(t, []string{"zeta@example.com", "alpha@example.com", "mid@example.com"}, got.GUIDs())
}

func TestEncodeIsIndentedAndLiteral(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleStore().Encode(&buf))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "{\n  \"zeta@example.com\": {\n    \"ranking\": 1,"), out)
	assert.Contains(t, out, `"name": "Ålpha <&> ツール"`)
	assert.True(t, strings.HasSuffix(out, "}\n"))
}

func TestLocalesKeyOnlyAfterAnalysis(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleStore().Encode(&buf))
	out := buf.String()

	// only "mid" carries a locales key, and it is an empty list
	assert.Equal(t, 1, strings.Count(out, `"locales"`))
	assert.Contains(t, out, `"locales": []`)

	got := New()
	require.NoError(t, got.Decode(strings.NewReader(out)))
	mid, ok := got.Get("mid@example.com")
	require.True(t, ok)
	assert.NotNil(t, mid.Locales)
	zeta, _ := got.Get("zeta@example.com")
	assert.Nil(t, zeta.Locales)
}

func TestPutReplacesInPlace(t *testing.T) {
	s := sampleStore()
	s.Put("alpha@example.com", models.Extension{Ranking: 2, Name: "Alpha v2"})

	assert.Equal(t, []string{"zeta@example.com", "alpha@example.com", "mid@example.com"}, s.GUIDs())
	got, _ := s.Get("alpha@example.com")
	assert.Equal(t, "Alpha v2", got.Name)
}

func TestDeleteAndSortByRanking(t *testing.T) {
	s := New()
	s.Put("c", models.Extension{Ranking: 3})
	s.Put("a", models.Extension{Ranking: 1})
	s.Put("b", models.Extension{Ranking: 2})
	s.Delete("c")
	s.Delete("missing")
	s.Put("d", models.Extension{Ranking: 0})

	s.SortByRanking()
	assert.Equal(t, []string{"d", "a", "b"}, s.GUIDs())
	assert.Equal(t, 3, s.Len())
}

func TestDecodeRejectsNonObject(t *testing.T) {
	err := New().Decode(strings.NewReader(`[1,2]`))
	require.Error(t, err)

	err = New().Decode(strings.NewReader(`{} {}`))
	require.Error(t, err)
}

func TestSaveReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{Path: filepath.Join(dir, "data", "metadata.json")}

	require.NoError(t, Save(cfg, sampleStore()))

	s, err := Load(cfg)
	require.NoError(t, err)
	s.Delete("zeta@example.com")
	require.NoError(t, Save(cfg, s))

	reloaded, err := Load(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha@example.com", "mid@example.com"}, reloaded.GUIDs())

	entries, err := os.ReadDir(filepath.Dir(cfg.Path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
	assert.Equal(t, "metadata.json", entries[0].Name())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(Config{Path: filepath.Join(t.TempDir(), "nope.json")})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
