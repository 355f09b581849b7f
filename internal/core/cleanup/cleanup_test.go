package cleanup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/ambridge/internal/core/model"
	"github.com/agenthands/ambridge/internal/store/memstore"
)

type ep struct {
	pid, date, synopsis string
	scenes              []string
}

func seed(t *testing.T, eps ...ep) *memstore.Store {
	t.Helper()
	s := memstore.New()
	var batch []model.EpisodeInput
	for _, e := range eps {
		in := model.EpisodeInput{PID: e.pid, Date: e.date, Synopsis: e.synopsis}
		for i, text := range e.scenes {
			in.Scenes = append(in.Scenes, model.SceneInput{ID: model.SceneID(e.pid, i), Index: i, Text: text})
		}
		batch = append(batch, in)
	}
	_, err := s.UpsertEpisodes(context.Background(), batch)
	require.NoError(t, err)
	return s
}

func dates(t *testing.T, s *memstore.Store) map[string]string {
	t.Helper()
	digests, err := s.EpisodeDigests(context.Background())
	require.NoError(t, err)
	out := make(map[string]string)
	for _, d := range digests {
		out[d.PID] = model.FormatDate(d.Date)
	}
	return out
}

func TestThinRepeatDeletedBeforeDateShift(t *testing.T) {
	s := seed(t,
		ep{"a", "2024-03-02", "A", []string{"one", "two", "three"}},
		ep{"b", "2024-03-02", "B", []string{"only"}},
	)

	rep, err := NewCleaner(s, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.ThinRepeats)
	assert.Zero(t, rep.DateShifts)
	assert.Equal(t, map[string]string{"a": "2024-03-02"}, dates(t, s))
}

func TestDateShiftNeverTargetsSaturday(t *testing.T) {
	sunday := model.MustDate("2024-03-10")
	require.Equal(t, time.Saturday, model.PreviousDay(sunday).Weekday())

	s := seed(t,
		ep{"a", "2024-03-10", "A", []string{"one", "two"}},
		ep{"b", "2024-03-10", "B", []string{"three", "four"}},
	)
	n, err := NewCleaner(s, nil).DateShifts(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, map[string]string{"a": "2024-03-10", "b": "2024-03-10"}, dates(t, s))
}

func TestDateShiftMovesSecondEpisode(t *testing.T) {
	s := seed(t,
		ep{"m002", "2024-03-05", "B", []string{"three"}},
		ep{"m001", "2024-03-05", "A", []string{"one"}},
	)
	n, err := NewCleaner(s, nil).DateShifts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, map[string]string{"m001": "2024-03-05", "m002": "2024-03-04"}, dates(t, s))
}

func TestDateShiftNeedsFreePreviousDay(t *testing.T) {
	s := seed(t,
		ep{"m000", "2024-03-04", "Z", []string{"zero"}},
		ep{"m001", "2024-03-05", "A", []string{"one"}},
		ep{"m002", "2024-03-05", "B", []string{"two"}},
	)
	n, err := NewCleaner(s, nil).DateShifts(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDateShiftIgnoresThreeWayCollision(t *testing.T) {
	s := seed(t,
		ep{"m001", "2024-03-05", "A", []string{"one"}},
		ep{"m002", "2024-03-05", "B", []string{"two"}},
		ep{"m003", "2024-03-05", "C", []string{"three"}},
	)
	n, err := NewCleaner(s, nil).DateShifts(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestExactDuplicatesKeepEarliest(t *testing.T) {
	s := seed(t,
		ep{"m009", "2024-03-04", "Same", []string{"x", "y"}},
		ep{"m003", "2024-03-05", "Same", []string{"x", "y"}},
		ep{"m001", "2024-03-04", "Same", []string{"x", "y"}},
		ep{"m004", "2024-03-04", "Same", []string{"x"}},
	)
	n, err := NewCleaner(s, nil).ExactDuplicates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, map[string]string{"m001": "2024-03-04", "m004": "2024-03-04"}, dates(t, s))
}

func TestOrphansNeedGenericSynopsisAndNoScenes(t *testing.T) {
	s := seed(t,
		ep{"m001", "2024-03-01", "The week's events in Ambridge.", nil},
		ep{"m002", "2024-03-02", "The week's events in Ambridge.", []string{"real scene"}},
		ep{"m003", "2024-03-03", "Lynda rehearses.", nil},
	)
	n, err := NewCleaner(s, nil).Orphans(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NotContains(t, dates(t, s), "m001")
}

func TestRunIsNoOpWhenNothingMatches(t *testing.T) {
	s := seed(t,
		ep{"m001", "2024-03-04", "A", []string{"one"}},
		ep{"m002", "2024-03-05", "B", []string{"two"}},
	)
	writes := 0
	s.BeforeOp = func(op string) error {
		if op == "delete episodes" || op == "set episode dates" {
			writes++
		}
		return nil
	}
	rep, err := NewCleaner(s, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, rep.Total())
	assert.Zero(t, writes)
}

func TestRunWrapsStoreFailure(t *testing.T) {
	s := seed(t)
	boom := errors.New("down")
	s.BeforeOp = func(string) error { return boom }
	_, err := NewCleaner(s, nil).Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "cleanup orphans")
}
