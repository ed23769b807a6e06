package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"addonlocales/pkg/metastore"
	"addonlocales/pkg/models"
)

func twoRecordStore() *metastore.Store {
	s := metastore.New()
	s.Put("one@example.com", models.Extension{
		Ranking: 1, Name: "One", Version: "1.0", AverageDailyUsers: 900,
		Locales: []string{"en", "fr"},
	})
	s.Put("two@example.com", models.Extension{
		Ranking: 2, Name: `Two "quoted", name`, Version: "2.1", AverageDailyUsers: 400,
		Locales: []string{"en"},
	})
	return s
}

func TestWriteTwoRecords(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, twoRecordStore()))

	want := `"Add-on","Avg Daily Users","Ranking","GUID","Version","Locales","en","fr"` + "\r\n" +
		`"One",900,1,"one@example.com","1.0",2,"X","X"` + "\r\n" +
		`"Two ""quoted"", name",400,2,"two@example.com","2.1",1,"X",""` + "\r\n"
	assert.Equal(t, want, buf.String())

	// the output is still plain CSV
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Empty(t, rows[2][7], "second record has no fr")
}

func TestColumnsSortedUnion(t *testing.T) {
	s := metastore.New()
	s.Put("a", models.Extension{Locales: []string{"pt-BR", "de"}})
	s.Put("b", models.Extension{})
	s.Put("c", models.Extension{Locales: []string{"de", "ar", "zh-CN"}})

	want := []string{"ar", "de", "pt-BR", "zh-CN"}
	assert.Equal(t, want, Columns(s))
}

func TestRowWithoutLocales(t *testing.T) {
	row := Row("g", models.Extension{Name: "N", Ranking: 7}, []string{"en"})
	want := []Cell{Text("N"), Int(0), Int(7), Text("g"), Text(""), Int(0), Text("")}
	assert.Equal(t, want, row)
}

func TestWriteFileDoesNotMutateStore(t *testing.T) {
	s := twoRecordStore()
	var before bytes.Buffer
	require.NoError(t, s.Encode(&before))

	path := filepath.Join(t.TempDir(), "out", "analysis.csv")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("stale\n", 100)), 0o644))
	require.NoError(t, WriteFile(path, s))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "stale", "export overwrites the previous file")

	var after bytes.Buffer
	require.NoError(t, s.Encode(&after))
	assert.Equal(t, before.String(), after.String(), "store changed by export")
}
