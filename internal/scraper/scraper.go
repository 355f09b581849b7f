// Package scraper fetches raw episode records from the BBC programme pages.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agenthands/ambridge/internal/config"
	"github.com/agenthands/ambridge/internal/core/model"
	"github.com/agenthands/ambridge/internal/logger"
)

type Scraper struct {
	baseURL        string
	seriesID       string
	userAgent      string
	workers        int
	maxTries       uint
	initialBackoff time.Duration
	client         *http.Client
	log            *logger.Logger

	// Now supplies the current time; future episodes are skipped.
	Now func() time.Time
}

func New(cfg config.ScraperConfig, log *logger.Logger) *Scraper {
	workers := cfg.MaxWorkers
	if workers <= 0 {
		workers = 3
	}
	tries := cfg.MaxRetries
	if tries <= 0 {
		tries = 3
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Scraper{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		seriesID:       cfg.SeriesID,
		userAgent:      cfg.UserAgent,
		workers:        workers,
		maxTries:       uint(tries),
		initialBackoff: time.Second,
		client:         newClient(timeout),
		log:            logger.OrNop(log),
		Now:            time.Now,
	}
}

// WithBackoff overrides the first retry delay.
func (s *Scraper) WithBackoff(d time.Duration) *Scraper {
	s.initialBackoff = d
	return s
}

func (s *Scraper) guideURL(page int) string {
	u := fmt.Sprintf("%s/%s/episodes/guide", s.baseURL, s.seriesID)
	if page > 0 {
		u += fmt.Sprintf("?page=%d", page)
	}
	return u
}

// Episode fetches one episode page. Specials, repeats and future episodes
// are reported as ErrSpecial, ErrRepeat and ErrFuture.
func (s *Scraper) Episode(ctx context.Context, pid string) (model.RawEpisode, error) {
	doc, err := s.document(ctx, fmt.Sprintf("%s/%s", s.baseURL, pid))
	if err != nil {
		return model.RawEpisode{}, err
	}
	return parseEpisode(pid, doc, model.Day(s.Now()))
}

// Episodes fetches the given pids concurrently and returns the usable
// records newest first. Failed and skipped pids are logged and dropped.
func (s *Scraper) Episodes(ctx context.Context, pids []string) ([]model.RawEpisode, error) {
	seen := make(map[string]bool, len(pids))
	var unique []string
	for _, pid := range pids {
		if !seen[pid] {
			seen[pid] = true
			unique = append(unique, pid)
		}
	}

	var (
		mu   sync.Mutex
		out  []model.RawEpisode
		done int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, pid := range unique {
		g.Go(func() error {
			rec, err := s.Episode(gctx, pid)
			mu.Lock()
			defer mu.Unlock()
			done++
			switch {
			case err == nil:
				out = append(out, rec)
			case errors.Is(err, ErrSpecial), errors.Is(err, ErrFuture), errors.Is(err, ErrRepeat):
				s.log.Debug("ignoring episode", "pid", pid, "reason", err.Error())
			default:
				s.log.Warn("failed to fetch episode", "pid", pid, "error", err)
			}
			if done%50 == 0 || done == len(unique) {
				s.log.Info("scraping episodes", "done", done, "total", len(unique))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	SortNewestFirst(out)
	return out, nil
}

// Pages crawls guide pages first..last inclusive and returns their episodes
// newest first.
func (s *Scraper) Pages(ctx context.Context, first, last int) ([]model.RawEpisode, error) {
	if first < 1 {
		first = 1
	}
	var (
		mu   sync.Mutex
		pids []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for page := first; page <= last; page++ {
		g.Go(func() error {
			doc, err := s.document(gctx, s.guideURL(page))
			if err != nil {
				s.log.Warn("failed to fetch guide page", "page", page, "error", err)
				return nil
			}
			found := guidePIDs(doc)
			mu.Lock()
			pids = append(pids, found...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	s.log.Info("indexed guide pages", "pages", last-first+1, "episodes", len(pids))
	return s.Episodes(ctx, pids)
}

// All crawls the whole episode guide.
func (s *Scraper) All(ctx context.Context) ([]model.RawEpisode, error) {
	doc, err := s.document(ctx, s.guideURL(0))
	if err != nil {
		return nil, err
	}
	return s.Pages(ctx, 1, lastPage(doc))
}

// Since walks the guide one page at a time and returns the episodes newer
// than last, stopping at the first one that is not.
func (s *Scraper) Since(ctx context.Context, last time.Time) ([]model.RawEpisode, error) {
	cutoff := model.FormatDate(last)
	var fresh []model.RawEpisode
	for page := 1; ; page++ {
		s.log.Info("checking guide page", "page", page, "newer_than", cutoff)
		recs, err := s.Pages(ctx, page, page)
		if err != nil {
			return nil, err
		}
		if len(recs) == 0 {
			break
		}
		for _, rec := range recs {
			if rec.Date <= cutoff {
				return fresh, nil
			}
			fresh = append(fresh, rec)
		}
	}
	return fresh, nil
}

// SortNewestFirst orders records by date descending, then pid.
func SortNewestFirst(recs []model.RawEpisode) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Date != recs[j].Date {
			return recs[i].Date > recs[j].Date
		}
		return recs[i].PID < recs[j].PID
	})
}
