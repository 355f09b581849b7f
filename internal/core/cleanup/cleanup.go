// Package cleanup repairs artefacts of the source listings: orphans,
// duplicate listings, placeholder repeats and colliding dates.
package cleanup

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/agenthands/ambridge/internal/core/model"
	"github.com/agenthands/ambridge/internal/logger"
	"github.com/agenthands/ambridge/internal/store"
)

// genericPhrases mark a synopsis that only describes the programme.
var genericPhrases = []string{
	"The week's events in Ambridge",
	"Contemporary drama in a rural setting",
	"Rural drama series set in Ambridge",
}

// Report counts the episodes each detector touched.
type Report struct {
	Orphans         int
	ExactDuplicates int
	ThinRepeats     int
	DateShifts      int
}

func (r Report) Total() int {
	return r.Orphans + r.ExactDuplicates + r.ThinRepeats + r.DateShifts
}

type Cleaner struct {
	Store store.Store
	log   *logger.Logger
}

func NewCleaner(s store.Store, log *logger.Logger) *Cleaner {
	return &Cleaner{Store: s, log: logger.OrNop(log)}
}

// Run executes the detectors in order, each against the state the previous
// one left behind.
func (c *Cleaner) Run(ctx context.Context) (Report, error) {
	var rep Report
	steps := []struct {
		name string
		dst  *int
		fn   func(context.Context) (int, error)
	}{
		{"orphans", &rep.Orphans, c.Orphans},
		{"exact duplicates", &rep.ExactDuplicates, c.ExactDuplicates},
		{"thin repeats", &rep.ThinRepeats, c.ThinRepeats},
		{"date shifts", &rep.DateShifts, c.DateShifts},
	}
	for _, step := range steps {
		n, err := step.fn(ctx)
		if err != nil {
			return rep, fmt.Errorf("cleanup %s: %w", step.name, err)
		}
		*step.dst = n
		c.log.Info("cleanup step done", "step", step.name, "episodes", n)
	}
	return rep, nil
}

func isGeneric(synopsis string) bool {
	for _, p := range genericPhrases {
		if strings.Contains(synopsis, p) {
			return true
		}
	}
	return false
}

// Orphans deletes scene-less episodes whose synopsis is a programme
// description.
func (c *Cleaner) Orphans(ctx context.Context) (int, error) {
	digests, err := c.Store.EpisodeDigests(ctx)
	if err != nil {
		return 0, err
	}
	var doomed []string
	for _, d := range digests {
		if len(d.SceneTexts) == 0 && isGeneric(d.Synopsis) {
			doomed = append(doomed, d.PID)
		}
	}
	return c.delete(ctx, doomed)
}

func earlier(a, b model.EpisodeDigest) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.Before(b.Date)
	}
	return a.PID < b.PID
}

// ExactDuplicates keeps the earliest of every group of episodes sharing a
// synopsis and scene sequence.
func (c *Cleaner) ExactDuplicates(ctx context.Context) (int, error) {
	digests, err := c.Store.EpisodeDigests(ctx)
	if err != nil {
		return 0, err
	}
	groups := make(map[string][]model.EpisodeDigest)
	var keys []string
	for _, d := range digests {
		if len(d.SceneTexts) == 0 {
			continue
		}
		key := d.Synopsis + "\x00" + strings.Join(d.SceneTexts, "\x00")
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], d)
	}

	var doomed []string
	for _, key := range keys {
		group := groups[key]
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(i, j int) bool { return earlier(group[i], group[j]) })
		for _, d := range group[1:] {
			c.log.Debug("duplicate listing", "pid", d.PID, "kept", group[0].PID)
			doomed = append(doomed, d.PID)
		}
	}
	return c.delete(ctx, doomed)
}

func byDate(digests []model.EpisodeDigest, withScenes bool) (map[time.Time][]model.EpisodeDigest, []time.Time) {
	out := make(map[time.Time][]model.EpisodeDigest)
	var dates []time.Time
	for _, d := range digests {
		if withScenes && len(d.SceneTexts) == 0 {
			continue
		}
		if _, ok := out[d.Date]; !ok {
			dates = append(dates, d.Date)
		}
		out[d.Date] = append(out[d.Date], d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return out, dates
}

// ThinRepeats deletes the one-scene episode of a date shared by exactly two
// episodes when the other has several scenes.
func (c *Cleaner) ThinRepeats(ctx context.Context) (int, error) {
	digests, err := c.Store.EpisodeDigests(ctx)
	if err != nil {
		return 0, err
	}
	groups, dates := byDate(digests, true)
	var doomed []string
	for _, day := range dates {
		pair := groups[day]
		if len(pair) != 2 {
			continue
		}
		sort.SliceStable(pair, func(i, j int) bool { return len(pair[i].SceneTexts) > len(pair[j].SceneTexts) })
		if len(pair[0].SceneTexts) > 1 && len(pair[1].SceneTexts) == 1 {
			c.log.Debug("thin repeat", "pid", pair[1].PID, "date", model.FormatDate(day), "kept", pair[0].PID)
			doomed = append(doomed, pair[1].PID)
		}
	}
	return c.delete(ctx, doomed)
}

// DateShifts moves the second of two episodes sharing a date onto the
// previous day when that day is free and is not a Saturday. Shifts are
// computed from the state at entry.
func (c *Cleaner) DateShifts(ctx context.Context) (int, error) {
	digests, err := c.Store.EpisodeDigests(ctx)
	if err != nil {
		return 0, err
	}
	groups, dates := byDate(digests, false)
	var changes []model.DateChange
	for _, day := range dates {
		pair := groups[day]
		if len(pair) != 2 {
			continue
		}
		prev := model.PreviousDay(day)
		if _, taken := groups[prev]; taken {
			continue
		}
		if prev.Weekday() == time.Saturday {
			c.log.Debug("date collision left unresolved", "date", model.FormatDate(day))
			continue
		}
		sort.Slice(pair, func(i, j int) bool { return pair[i].PID < pair[j].PID })
		changes = append(changes, model.DateChange{PID: pair[1].PID, From: day, To: prev})
	}
	if len(changes) == 0 {
		return 0, nil
	}
	return c.Store.SetEpisodeDates(ctx, changes)
}

func (c *Cleaner) delete(ctx context.Context, pids []string) (int, error) {
	if len(pids) == 0 {
		return 0, nil
	}
	return c.Store.DeleteEpisodes(ctx, pids)
}
