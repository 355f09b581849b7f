// Package core wires the pipeline stages into the archive operations the
// command line and server expose.
package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/agenthands/ambridge/internal/core/cleanup"
	"github.com/agenthands/ambridge/internal/core/ingest"
	"github.com/agenthands/ambridge/internal/core/link"
	"github.com/agenthands/ambridge/internal/core/model"
	"github.com/agenthands/ambridge/internal/core/reconcile"
	"github.com/agenthands/ambridge/internal/core/segment"
	"github.com/agenthands/ambridge/internal/logger"
	"github.com/agenthands/ambridge/internal/store"
)

// ErrEmptyCache is returned when a rebuild from cache finds no records.
var ErrEmptyCache = errors.New("no cached episodes to rebuild from")

// RescrapeWindow is how far back thin episodes are refetched.
const RescrapeWindow = 7 * 24 * time.Hour

// Fetcher delivers raw episode records.
type Fetcher interface {
	All(ctx context.Context) ([]model.RawEpisode, error)
	Since(ctx context.Context, last time.Time) ([]model.RawEpisode, error)
	Episodes(ctx context.Context, pids []string) ([]model.RawEpisode, error)
}

// RecordCache persists fetched records, newest first.
type RecordCache interface {
	Load() ([]model.RawEpisode, *time.Time, error)
	Save(recs []model.RawEpisode) error
	Merge(fresh []model.RawEpisode) error
}

type Archive struct {
	Store      store.Store
	Fetcher    Fetcher
	Cache      RecordCache
	Segmenter  *segment.Segmenter
	Ingester   *ingest.Ingester
	Cleaner    *cleanup.Cleaner
	Linker     *link.Linker
	Reconciler *reconcile.Reconciler
	Now        func() time.Time
	log        *logger.Logger
}

func NewArchive(s store.Store, fetcher Fetcher, cache RecordCache, chunkSize int, log *logger.Logger) *Archive {
	log = logger.OrNop(log)
	return &Archive{
		Store:      s,
		Fetcher:    fetcher,
		Cache:      cache,
		Segmenter:  segment.NewSegmenter(log),
		Ingester:   ingest.NewIngester(s, chunkSize, log),
		Cleaner:    cleanup.NewCleaner(s, log),
		Linker:     link.NewLinker(s, log),
		Reconciler: reconcile.NewReconciler(s, log),
		Now:        time.Now,
		log:        log,
	}
}

// Report collects the counts of one pipeline run.
type Report struct {
	Records   int
	Segmented int
	Skipped   int
	Ingest    ingest.Result
	Cleanup   cleanup.Report
	Link      link.Result
}

// SplitStatements splits a setup script on semicolons, dropping blanks.
func SplitStatements(script string) []string {
	var out []string
	for _, stmt := range strings.Split(script, ";") {
		if s := strings.TrimSpace(stmt); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Setup loads the base dataset into an empty store and ensures the schema.
// A populated store is left alone; a missing file only warns.
func (a *Archive) Setup(ctx context.Context, path string) (int, error) {
	empty, err := a.Store.IsEmpty(ctx)
	if err != nil {
		return 0, fmt.Errorf("check store: %w", err)
	}
	applied := 0
	if empty {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			a.log.Warn("setup file not found; proceeding with empty store", "file", path)
		case err != nil:
			return 0, fmt.Errorf("read setup file: %w", err)
		default:
			stmts := SplitStatements(string(data))
			if err := a.Store.ApplyStatements(ctx, stmts); err != nil {
				return 0, fmt.Errorf("load base dataset: %w", err)
			}
			applied = len(stmts)
			a.log.Info("base dataset loaded", "file", path, "statements", applied)
		}
	}
	if err := a.Store.BuildIndices(ctx); err != nil {
		return applied, fmt.Errorf("build indices: %w", err)
	}
	return applied, nil
}

// Process runs records through segmentation, ingestion, cleanup and linking
// scoped to the ingested episodes.
func (a *Archive) Process(ctx context.Context, recs []model.RawEpisode) (Report, error) {
	rep := Report{Records: len(recs)}
	if len(recs) == 0 {
		return rep, nil
	}
	segmented, skipped := a.Segmenter.SegmentBatch(recs)
	rep.Segmented, rep.Skipped = len(segmented), skipped
	if len(segmented) == 0 {
		return rep, nil
	}

	var err error
	if rep.Ingest, err = a.Ingester.Ingest(ctx, segmented); err != nil {
		return rep, err
	}
	if rep.Cleanup, err = a.Cleaner.Run(ctx); err != nil {
		return rep, err
	}
	if rep.Cleanup.Total() > 0 {
		a.log.Info("cleanup complete", "orphans", rep.Cleanup.Orphans, "exact_duplicates", rep.Cleanup.ExactDuplicates,
			"thin_repeats", rep.Cleanup.ThinRepeats, "date_shifts", rep.Cleanup.DateShifts)
	}
	if rep.Link, err = a.Linker.Run(ctx, rep.Ingest.PIDs); err != nil {
		return rep, err
	}
	return rep, nil
}

// Update fetches what is new since the cache was last written, or replays
// the whole cache when fromCache is set, and processes it.
func (a *Archive) Update(ctx context.Context, fromCache bool) (Report, error) {
	cached, newest, err := a.Cache.Load()
	if err != nil {
		return Report{}, err
	}
	if fromCache {
		if len(cached) == 0 {
			return Report{}, ErrEmptyCache
		}
		a.log.Info("rebuilding from cache", "records", len(cached))
		return a.Process(ctx, cached)
	}
	if a.Fetcher == nil {
		return Report{}, errors.New("no fetcher configured")
	}

	var recs []model.RawEpisode
	if newest == nil {
		a.log.Info("no cache found; performing full crawl")
		if recs, err = a.Fetcher.All(ctx); err != nil {
			return Report{}, fmt.Errorf("crawl: %w", err)
		}
		if err := a.Cache.Save(recs); err != nil {
			return Report{}, err
		}
	} else {
		a.log.Info("searching for new episodes", "newer_than", model.FormatDate(*newest))
		if recs, err = a.Fetcher.Since(ctx, *newest); err != nil {
			return Report{}, fmt.Errorf("crawl: %w", err)
		}
		if len(recs) == 0 {
			a.log.Info("no new episodes found")
			return Report{}, nil
		}
		if err := a.Cache.Merge(recs); err != nil {
			return Report{}, err
		}
	}
	a.log.Info("processing episodes", "records", len(recs))
	return a.Process(ctx, recs)
}

// Relink rebuilds appearances across the whole corpus.
func (a *Archive) Relink(ctx context.Context) (link.Result, error) {
	return a.Linker.Run(ctx, nil)
}

// Rescrape refetches recent episodes that ended up with a single scene,
// usually because the listing was published before its full description.
func (a *Archive) Rescrape(ctx context.Context) (Report, error) {
	since := model.Day(a.Now().Add(-RescrapeWindow))
	pids, err := a.Store.SingleSceneEpisodes(ctx, since)
	if err != nil {
		return Report{}, err
	}
	if len(pids) == 0 {
		a.log.Info("no thin episodes to rescrape", "since", model.FormatDate(since))
		return Report{}, nil
	}
	if a.Fetcher == nil {
		return Report{}, errors.New("no fetcher configured")
	}
	// Only episodes that came back are replaced; a pid the fetcher dropped
	// keeps its thin version.
	recs, err := a.Fetcher.Episodes(ctx, pids)
	if err != nil {
		return Report{}, fmt.Errorf("refetch: %w", err)
	}
	fetched := make([]string, 0, len(recs))
	for _, r := range recs {
		fetched = append(fetched, r.PID)
	}
	if missing := len(pids) - len(fetched); missing > 0 {
		a.log.Warn("keeping thin episodes that could not be refetched", "count", missing)
	}
	if len(recs) == 0 {
		return Report{}, nil
	}

	deleted, err := a.Store.DeleteEpisodes(ctx, fetched)
	if err != nil {
		return Report{}, err
	}
	a.log.Info("deleted episodes for rescrape", "count", deleted, "pids", fetched)

	if a.Cache != nil {
		if err := a.Cache.Merge(recs); err != nil {
			return Report{}, err
		}
	}
	return a.Process(ctx, recs)
}
