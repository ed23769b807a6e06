package ranking

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"addonlocales/internal/registry"
	"addonlocales/pkg/metastore"
	"addonlocales/pkg/models"
)

// Resolver looks a GUID up in the registry. registry.Client implements it.
type Resolver interface {
	Lookup(ctx context.Context, guid string) (models.SearchResult, error)
}

// Report summarises an import run.
type Report struct {
	Ranked   int
	Resolved int
	Dropped  []string
}

type Importer struct {
	Resolver Resolver
	Logger   *slog.Logger
}

func NewImporter(resolver Resolver, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{Resolver: resolver, Logger: logger}
}

// Run builds a fresh store from a ranking CSV. A record's ranking is its
// data row in the CSV. GUIDs the registry cannot resolve are dropped; any
// other lookup error aborts the run.
func (im *Importer) Run(ctx context.Context, rankingCSV io.Reader) (*metastore.Store, Report, error) {
	entries, err := ReadRanking(rankingCSV)
	if err != nil {
		return nil, Report{}, err
	}

	store := metastore.New()
	for _, e := range entries {
		store.Put(e.GUID, models.Extension{Ranking: e.Row, Slug: e.GUID})
	}

	rep := Report{Ranked: len(entries)}
	for _, e := range entries {
		guid := e.GUID
		res, err := im.Resolver.Lookup(ctx, guid)
		if errors.Is(err, registry.ErrNotFound) {
			im.Logger.Warn(fmt.Sprintf("Skipping %s, not found in API", guid), slog.String("guid", guid))
			store.Delete(guid)
			rep.Dropped = append(rep.Dropped, guid)
			continue
		}
		if err != nil {
			return nil, rep, fmt.Errorf("resolve %s: %w", guid, err)
		}

		ext, _ := store.Get(guid)
		Apply(ext, guid, res)
		rep.Resolved++
	}
	return store, rep, nil
}

// Apply copies registry metadata for guid onto ext.
func Apply(ext *models.Extension, guid string, res models.SearchResult) {
	ext.Version = res.CurrentVersion.Version
	ext.XPIURL = res.CurrentVersion.File.URL
	ext.Name = res.Name.Pick("en-US", guid)
	ext.AverageDailyUsers = res.AverageDailyUsers
	ext.LocalFolder = models.LocalFolderName(res.CurrentVersion.File.URL)
}
