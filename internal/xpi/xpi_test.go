package xpi

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"addonlocales/pkg/models"
)

func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

var sampleFiles = map[string]string{
	"manifest.json":                  `{"manifest_version":2,"default_locale":"en"}`,
	"_locales/en/messages.json":      `{}`,
	"_locales/fr_FR/messages.json":   `{}`,
	"_locales/.hidden/messages.json": `{}`,
	"_locales/README.txt":            "not a locale",
}

// packageServer serves body at /my_ext-1.2.xpi and counts requests.
func packageServer(t *testing.T, status int, body []byte) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func record(url string) models.Extension {
	return models.Extension{
		Slug:        "abc@example.com",
		Name:        "My Ext",
		Version:     "1.2",
		XPIURL:      url,
		LocalFolder: models.LocalFolderName(url),
	}
}

func TestAcquireDownloadsOnce(t *testing.T) {
	srv, hits := packageServer(t, http.StatusOK, zipBytes(t, sampleFiles))
	c := NewCache(filepath.Join(t.TempDir(), "support_files"), srv.Client(), nil)
	ext := record(srv.URL + "/files/my_ext-1.2.xpi")

	path, err := c.Acquire(context.Background(), ext)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(c.Dir, "my_ext-1.2.xpi"), path)
	assert.EqualValues(t, 1, hits.Load())

	_, err = c.Acquire(context.Background(), ext)
	require.NoError(t, err)
	assert.EqualValues(t, 1, hits.Load(), "cached archive must not be fetched again")

	// a zero-length archive counts as missing
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	_, err = c.Acquire(context.Background(), ext)
	require.NoError(t, err)
	assert.EqualValues(t, 2, hits.Load())
}

func TestAcquireUnavailable(t *testing.T) {
	for name, tc := range map[string]struct {
		status int
		body   []byte
	}{
		"not found":  {http.StatusNotFound, []byte("gone")},
		"empty body": {http.StatusOK, nil},
	} {
		t.Run(name, func(t *testing.T) {
			srv, _ := packageServer(t, tc.status, tc.body)
			c := NewCache(t.TempDir(), srv.Client(), nil)
			ext := record(srv.URL + "/my_ext-1.2.xpi")

			_, err := c.Acquire(context.Background(), ext)
			require.ErrorIs(t, err, ErrUnavailable)
			_, statErr := os.Stat(c.ArchivePath(ext))
			assert.True(t, errors.Is(statErr, os.ErrNotExist), "no archive may be left behind")
		})
	}

	_, err := NewCache(t.TempDir(), nil, nil).Acquire(context.Background(), models.Extension{})
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestBareXPINameIsUnavailable(t *testing.T) {
	srv, hits := packageServer(t, http.StatusOK, zipBytes(t, sampleFiles))
	c := NewCache(t.TempDir(), srv.Client(), nil)
	ext := record(srv.URL + "/files/.xpi")
	require.Empty(t, ext.LocalFolder)

	_, err := c.Acquire(context.Background(), ext)
	require.ErrorIs(t, err, ErrUnavailable)
	assert.EqualValues(t, 0, hits.Load())

	_, err = c.Extract(ext)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestAcquireTransportErrorIsFatal(t *testing.T) {
	srv, _ := packageServer(t, http.StatusOK, []byte("x"))
	url := srv.URL + "/my_ext-1.2.xpi"
	srv.Close()

	_, err := NewCache(t.TempDir(), nil, nil).Acquire(context.Background(), record(url))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestExtractAndDiscover(t *testing.T) {
	srv, _ := packageServer(t, http.StatusOK, zipBytes(t, sampleFiles))
	c := NewCache(t.TempDir(), srv.Client(), nil)
	ext := record(srv.URL + "/my_ext-1.2.xpi")

	_, err := c.Acquire(context.Background(), ext)
	require.NoError(t, err)

	extracted, err := c.Extract(ext)
	require.NoError(t, err)
	assert.True(t, extracted)
	assert.FileExists(t, filepath.Join(c.Dir, "my_ext_1_2", "manifest.json"))

	locales, err := DiscoverLocales(c.ExtractDir(ext))
	require.NoError(t, err)
	assert.Equal(t, []string{"en", "fr-FR"}, locales)
}

func TestExtractSkipsNonEmptyDirectory(t *testing.T) {
	c := NewCache(t.TempDir(), nil, nil)
	ext := record("https://example.com/my_ext-1.2.xpi")

	dir := c.ExtractDir(ext)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "_locales", "de"), 0o755))

	// no archive exists; a cache hit must not need one
	extracted, err := c.Extract(ext)
	require.NoError(t, err)
	assert.False(t, extracted)

	locales, err := DiscoverLocales(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"de"}, locales)
}

func TestExtractFillsEmptyDirectory(t *testing.T) {
	c := NewCache(t.TempDir(), nil, nil)
	ext := record("https://example.com/my_ext-1.2.xpi")
	require.NoError(t, os.WriteFile(c.ArchivePath(ext), zipBytes(t, sampleFiles), 0o644))
	require.NoError(t, os.MkdirAll(c.ExtractDir(ext), 0o755))

	extracted, err := c.Extract(ext)
	require.NoError(t, err)
	assert.True(t, extracted)
	assert.DirExists(t, filepath.Join(c.ExtractDir(ext), "_locales", "fr_FR"))
}

func TestExtractCorruptArchive(t *testing.T) {
	c := NewCache(t.TempDir(), nil, nil)
	ext := record("https://example.com/my_ext-1.2.xpi")
	require.NoError(t, os.WriteFile(c.ArchivePath(ext), []byte("not a zip"), 0o644))

	_, err := c.Extract(ext)
	require.Error(t, err)
	assert.NoDirExists(t, c.ExtractDir(ext))
}

func TestUnzipRejectsEscapingEntries(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "evil.xpi")
	require.NoError(t, os.WriteFile(src, zipBytes(t, map[string]string{"../escaped.txt": "x"}), 0o644))

	dst := filepath.Join(root, "out")
	require.NoError(t, os.MkdirAll(dst, 0o755))
	require.Error(t, Unzip(src, dst))
	assert.NoFileExists(t, filepath.Join(root, "escaped.txt"))
}

func TestDiscoverLocales(t *testing.T) {
	t.Run("missing locales folder", func(t *testing.T) {
		got, err := DiscoverLocales(t.TempDir())
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("empty locales folder", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(dir, LocalesDir), 0o755))
		got, err := DiscoverLocales(dir)
		require.NoError(t, err)
		assert.Equal(t, []string{}, got)
	})

	t.Run("normalised, deduplicated and sorted", func(t *testing.T) {
		dir := t.TempDir()
		for _, l := range []string{"zh_TW", "en_US", "en-US", "de", ".git", "pt_BR"} {
			require.NoError(t, os.MkdirAll(filepath.Join(dir, LocalesDir, l), 0o755))
		}
		got, err := DiscoverLocales(dir)
		require.NoError(t, err)
		assert.Equal(t, []string{"de", "en-US", "pt-BR", "zh-TW"}, got)
	})
}
