package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/ambridge/internal/core/model"
	"github.com/agenthands/ambridge/internal/driver"
)

func TestUpsertEpisodesSendsBatchAndCountsNodes(t *testing.T) {
	m := &MockDriver{Results: []*driver.Result{{Counters: driver.Counters{NodesCreated: 3}}}}
	s := NewCypherStore(m)

	n, err := s.UpsertEpisodes(context.Background(), []model.EpisodeInput{{
		PID:      "m001",
		Date:     "2024-03-01",
		Synopsis: "Jill bakes.",
		Scenes:   []model.SceneInput{{ID: "m001_0", Index: 0, Text: "Jill bakes."}},
	}})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.Len(t, m.Calls, 1)
	assert.Equal(t, driver.UpsertEpisodesQuery, m.Calls[0].Query)
	batch := m.Calls[0].Params["batch"].([]map[string]interface{})
	require.Len(t, batch, 1)
	assert.Equal(t, "m001", batch[0]["pid"])
	assert.Equal(t, "2024-03-01", batch[0]["date"])
	scenes := batch[0]["scenes"].([]map[string]interface{})
	assert.Equal(t, "m001_0", scenes[0]["sid"])
}

func TestOperationErrorWrapsCause(t *testing.T) {
	m := &MockDriver{Err: errRejected}
	s := NewCypherStore(m)

	_, err := s.UpsertEpisodes(context.Background(), []model.EpisodeInput{{PID: "m001", Date: "2024-03-01"}})
	require.Error(t, err)

	var opErr *OperationError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, "upsert episodes", opErr.Op)
	assert.ErrorIs(t, err, errRejected)
}

func TestEpisodeDigestsParsesDates(t *testing.T) {
	m := &MockDriver{Results: []*driver.Result{rows(
		record("pid", "m001", "date", "2024-03-02", "synopsis", "S", "texts", []interface{}{"a", "b"}),
	)}}
	s := NewCypherStore(m)

	digests, err := s.EpisodeDigests(context.Background())
	require.NoError(t, err)
	require.Len(t, digests, 1)
	assert.Equal(t, model.MustDate("2024-03-02"), digests[0].Date)
	assert.Equal(t, []string{"a", "b"}, digests[0].SceneTexts)
}

func TestEpisodeDigestsRejectsBadDate(t *testing.T) {
	m := &MockDriver{Results: []*driver.Result{rows(record("pid", "m001", "date", "March 2"))}}
	_, err := NewCypherStore(m).EpisodeDigests(context.Background())
	var opErr *OperationError
	assert.True(t, errors.As(err, &opErr))
}

func TestDeleteEpisodesSkipsEmptyInput(t *testing.T) {
	m := &MockDriver{}
	n, err := NewCypherStore(m).DeleteEpisodes(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, m.Calls)
}

func TestSetEpisodeDatesFormatsTargets(t *testing.T) {
	m := &MockDriver{Results: []*driver.Result{rows(record("count", int64(1)))}}
	n, err := NewCypherStore(m).SetEpisodeDates(context.Background(), []model.DateChange{{
		PID:  "m002",
		From: model.MustDate("2024-03-05"),
		To:   model.MustDate("2024-03-04"),
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	changes := m.Calls[0].Params["changes"].([]map[string]interface{})
	assert.Equal(t, "2024-03-04", changes[0]["date"])
}

func TestLoadSnapshotBuildsGraph(t *testing.T) {
	m := &MockDriver{Results: []*driver.Result{
		rows(
			record("name", "Jill Archer", "aliases", []interface{}{"Jill"}, "dob", "1930-10-03",
				"dod", nil, "first_appearance", nil, "last_appearance", nil, "keywords", []interface{}{}),
			record("name", "David Archer", "aliases", []interface{}{"David"}, "dob", nil,
				"dod", nil, "first_appearance", nil, "last_appearance", nil, "keywords", []interface{}{"cows"}),
		),
		rows(record("kind", "CHILD_OF", "source", "David Archer", "target", "Jill Archer")),
		rows(record("kind", "LIVES_AT", "character", "Jill Archer", "location", "Brookfield",
			"valid_from", "1957-01-01", "valid_to", nil)),
		rows(
			record("pid", "m001", "date", "2024-03-01", "synopsis", "S", "id", "m001_0", "scene_order", int64(0), "text", "Jill bakes."),
			record("pid", "m001", "date", "2024-03-01", "synopsis", "S", "id", "m001_1", "scene_order", int64(1), "text", "David milks."),
		),
		rows(record("character", "Jill Archer", "scene_id", "m001_0")),
	}}
	s := NewCypherStore(m)

	g, err := s.LoadSnapshot(context.Background(), []string{"m001"})
	require.NoError(t, err)

	jill, ok := g.Character("Jill Archer")
	require.True(t, ok)
	assert.Equal(t, model.DatePtr("1930-10-03"), jill.DOB)
	assert.Nil(t, jill.DOD)

	assert.True(t, g.CloseFamily("Jill Archer", "David Archer"))
	assert.Len(t, g.ScenesOf("m001"), 2)
	assert.True(t, g.Appears("Jill Archer", "m001_0"))
	sc, ok := g.SceneAt("m001", 1)
	require.True(t, ok)
	assert.Equal(t, "m001_1", sc.ID)

	assert.Equal(t, []string{"m001"}, m.Calls[3].Params["pids"])
}

func TestLoadSnapshotAllEpisodesPassesNilScope(t *testing.T) {
	m := &MockDriver{}
	_, err := NewCypherStore(m).LoadSnapshot(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, m.Calls, 5)
	assert.Nil(t, m.Calls[3].Params["pids"])
}

func TestCreateAppearancesUsesRelationshipCounter(t *testing.T) {
	m := &MockDriver{Results: []*driver.Result{{Counters: driver.Counters{RelationshipsCreated: 1}}}}
	n, err := NewCypherStore(m).CreateAppearances(context.Background(), []model.Appearance{
		{Character: "Jill Archer", SceneID: "m001_0"},
		{Character: "Jill Archer", SceneID: "m001_1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMergeScenesReportsMissing(t *testing.T) {
	m := &MockDriver{Results: []*driver.Result{rows(record("merged", int64(0)))}}
	ok, err := NewCypherStore(m).MergeScenes(context.Background(), "m001_0", "m001_1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "m001_1", m.Calls[0].Params["empty_id"])
}

func TestEpisodeByDateDecodesScenes(t *testing.T) {
	m := &MockDriver{Results: []*driver.Result{rows(record(
		"pid", "m001", "date", "2024-03-01", "synopsis", "S",
		"scenes", []interface{}{
			map[string]interface{}{"id": "m001_0", "text": "Jill bakes.", "characters": []interface{}{"Jill Archer"}},
		},
	))}}
	view, err := NewCypherStore(m).EpisodeByDate(context.Background(), model.MustDate("2024-03-01"))
	require.NoError(t, err)
	require.NotNil(t, view)
	require.Len(t, view.Scenes, 1)
	assert.Equal(t, []string{"Jill Archer"}, view.Scenes[0].Characters)
	assert.Equal(t, "2024-03-01", m.Calls[0].Params["date"])
}

func TestEpisodeByDateMissing(t *testing.T) {
	view, err := NewCypherStore(&MockDriver{}).EpisodeByDate(context.Background(), model.MustDate("2024-03-01"))
	require.NoError(t, err)
	assert.Nil(t, view)
}

func TestApplyStatementsStopsAtFirstFailure(t *testing.T) {
	m := &MockDriver{Err: errRejected, FailOn: 2}
	err := NewCypherStore(m).ApplyStatements(context.Background(), []string{"CREATE (a)", "  ", "BROKEN", "CREATE (b)"})
	require.Error(t, err)
	assert.Len(t, m.Calls, 2)
	assert.Contains(t, err.Error(), "setup statement 3")
}

func TestIsEmpty(t *testing.T) {
	empty, err := NewCypherStore(&MockDriver{}).IsEmpty(context.Background())
	require.NoError(t, err)
	assert.True(t, empty)

	m := &MockDriver{Results: []*driver.Result{rows(record("found", true))}}
	empty, err = NewCypherStore(m).IsEmpty(context.Background())
	require.NoError(t, err)
	assert.False(t, empty)
}
