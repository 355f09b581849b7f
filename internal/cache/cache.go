// Package cache keeps the crawled records on disk as a JSON array, newest
// first, so the store can be rebuilt without crawling again.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"

	"github.com/agenthands/ambridge/internal/core/model"
)

type Cache struct {
	Path string
	lock *flock.Flock
}

func New(path string) *Cache {
	return &Cache{Path: path, lock: flock.New(path + ".lock")}
}

// Load returns the cached records and the date of the newest one. A missing
// file is an empty cache with a nil date.
func (c *Cache) Load() ([]model.RawEpisode, *time.Time, error) {
	if _, err := os.Stat(c.Path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil, nil
	}
	if err := c.lock.RLock(); err != nil {
		return nil, nil, fmt.Errorf("lock cache: %w", err)
	}
	defer c.lock.Unlock()

	data, err := os.ReadFile(c.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read cache %s: %w", c.Path, err)
	}
	var recs []model.RawEpisode
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, nil, fmt.Errorf("parse cache %s: %w", c.Path, err)
	}
	if len(recs) == 0 {
		return recs, nil, nil
	}
	newest, err := model.ParseDate(recs[0].Date)
	if err != nil {
		return nil, nil, fmt.Errorf("cache %s: newest record %s: %w", c.Path, recs[0].PID, err)
	}
	return recs, &newest, nil
}

// Save replaces the cache file with recs.
func (c *Cache) Save(recs []model.RawEpisode) error {
	if err := os.MkdirAll(filepath.Dir(c.Path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	if err := c.lock.Lock(); err != nil {
		return fmt.Errorf("lock cache: %w", err)
	}
	defer c.lock.Unlock()

	if recs == nil {
		recs = []model.RawEpisode{}
	}
	data, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(c.Path), filepath.Base(c.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.Path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace cache: %w", err)
	}
	return nil
}

// Merge folds fresh records into the cache, replacing records with the
// same pid, and keeps the file ordered newest first.
func (c *Cache) Merge(fresh []model.RawEpisode) error {
	existing, _, err := c.Load()
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(fresh))
	merged := make([]model.RawEpisode, 0, len(fresh)+len(existing))
	for _, r := range fresh {
		if !seen[r.PID] {
			seen[r.PID] = true
			merged = append(merged, r)
		}
	}
	for _, r := range existing {
		if !seen[r.PID] {
			merged = append(merged, r)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Date > merged[j].Date })
	return c.Save(merged)
}
