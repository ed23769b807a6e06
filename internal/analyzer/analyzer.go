package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"addonlocales/internal/xpi"
	"addonlocales/pkg/metastore"
	"addonlocales/pkg/models"
)

// Report summarises an analyzer run.
type Report struct {
	Analyzed  int
	Extracted int
	Skipped   []string
}

type Analyzer struct {
	Cache   *xpi.Cache
	Workers int
	Logger  *slog.Logger
}

func New(cache *xpi.Cache, workers int, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{Cache: cache, Workers: workers, Logger: logger}
}

type outcome struct {
	locales   []string
	skipped   bool
	extracted bool
}

// Run acquires, extracts and inspects the package of every record, then
// sets each analyzed record's Locales. Records whose package cannot be
// obtained keep their previous Locales. On error the store is left
// untouched.
//
// With Workers > 1 packages are processed concurrently; results are
// applied in store order, so the store ends up as after a sequential run.
func (a *Analyzer) Run(ctx context.Context, store *metastore.Store) (Report, error) {
	guids := store.GUIDs()
	results := make([]outcome, len(guids))

	work := func(ctx context.Context, i int) error {
		ext, _ := store.Get(guids[i])
		out, err := a.analyze(ctx, *ext)
		if err != nil {
			return fmt.Errorf("analyze %s: %w", guids[i], err)
		}
		results[i] = out
		return nil
	}

	if a.Workers > 1 {
		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(a.Workers)
		for i := range guids {
			g.Go(func() error { return work(gCtx, i) })
		}
		if err := g.Wait(); err != nil {
			return Report{}, err
		}
	} else {
		for i := range guids {
			if err := ctx.Err(); err != nil {
				return Report{}, err
			}
			if err := work(ctx, i); err != nil {
				return Report{}, err
			}
		}
	}

	var rep Report
	for i, guid := range guids {
		out := results[i]
		if out.skipped {
			rep.Skipped = append(rep.Skipped, guid)
			continue
		}
		ext, _ := store.Get(guid)
		ext.Locales = out.locales
		rep.Analyzed++
		if out.extracted {
			rep.Extracted++
		}
	}
	return rep, nil
}

func (a *Analyzer) analyze(ctx context.Context, ext models.Extension) (outcome, error) {
	if _, err := a.Cache.Acquire(ctx, ext); err != nil {
		if errors.Is(err, xpi.ErrUnavailable) {
			a.Logger.Warn(fmt.Sprintf("File is missing and can't be downloaded: %s", ext.PackageFileName()),
				slog.String("guid", ext.Slug), slog.String("reason", err.Error()))
			return outcome{skipped: true}, nil
		}
		return outcome{}, err
	}

	extracted, err := a.Cache.Extract(ext)
	if err != nil {
		return outcome{}, err
	}

	locales, err := xpi.DiscoverLocales(a.Cache.ExtractDir(ext))
	if err != nil {
		return outcome{}, err
	}
	return outcome{locales: locales, extracted: extracted}, nil
}
