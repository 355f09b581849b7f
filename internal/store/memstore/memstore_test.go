package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/ambridge/internal/core/model"
	"github.com/agenthands/ambridge/internal/store"
)

func episode(pid, date string, texts ...string) model.EpisodeInput {
	in := model.EpisodeInput{PID: pid, Date: date, Synopsis: pid + " synopsis"}
	for i, t := range texts {
		in.Scenes = append(in.Scenes, model.SceneInput{ID: model.SceneID(pid, i), Index: i, Text: t})
	}
	return in
}

func TestUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New()

	n, err := s.UpsertEpisodes(ctx, []model.EpisodeInput{episode("m001", "2024-03-01", "a", "b")})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = s.UpsertEpisodes(ctx, []model.EpisodeInput{episode("m001", "2024-03-09", "a2", "b")})
	require.NoError(t, err)
	assert.Zero(t, n)

	digests, err := s.EpisodeDigests(ctx)
	require.NoError(t, err)
	require.Len(t, digests, 1)
	assert.Equal(t, model.MustDate("2024-03-01"), digests[0].Date, "episode properties are first-write-wins")
	assert.Equal(t, []string{"a2", "b"}, digests[0].SceneTexts, "scene text is overwritten")
}

func TestUpsertRejectsWholeChunkOnBadDate(t *testing.T) {
	s := New()
	_, err := s.UpsertEpisodes(context.Background(), []model.EpisodeInput{
		episode("m001", "2024-03-01", "a"),
		episode("m002", "yesterday", "b"),
	})
	var opErr *store.OperationError
	require.True(t, errors.As(err, &opErr))

	empty, err := s.IsEmpty(context.Background())
	require.NoError(t, err)
	assert.True(t, empty)
}

func TestBeforeOpFailure(t *testing.T) {
	s := New()
	boom := errors.New("boom")
	s.BeforeOp = func(op string) error {
		if op == "delete episodes" {
			return boom
		}
		return nil
	}
	_, err := s.DeleteEpisodes(context.Background(), []string{"m001"})
	assert.ErrorIs(t, err, boom)
}

func TestDeleteCascades(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.AddCharacter(model.Character{Name: "Jill Archer"})
	_, err := s.UpsertEpisodes(ctx, []model.EpisodeInput{episode("m001", "2024-03-01", "a")})
	require.NoError(t, err)
	_, err = s.CreateAppearances(ctx, []model.Appearance{{Character: "Jill Archer", SceneID: "m001_0"}})
	require.NoError(t, err)

	n, err := s.DeleteEpisodes(ctx, []string{"m001", "missing"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	timeline, err := s.CharacterTimeline(ctx, "Jill Archer")
	require.NoError(t, err)
	assert.Empty(t, timeline)
}

func TestLinkCharacterCountsResolvedLinks(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.AddCharacter(model.Character{Name: "Jill Archer"})
	_, err := s.UpsertEpisodes(ctx, []model.EpisodeInput{episode("m001", "2024-03-01", "a", "b")})
	require.NoError(t, err)

	n, err := s.LinkCharacter(ctx, "Jill Archer", []string{"m001_0", "m001_1", "m009_0"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.LinkCharacter(ctx, "Jill Archer", []string{"m001_0"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.LinkCharacter(ctx, "Nobody", []string{"m001_0"})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEmptySceneCandidatesAndMerge(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.AddCharacter(model.Character{Name: "Jill Archer"})
	_, err := s.UpsertEpisodes(ctx, []model.EpisodeInput{episode("m001", "2024-03-01", "Jill bakes.", "More cake.")})
	require.NoError(t, err)
	_, err = s.CreateAppearances(ctx, []model.Appearance{{Character: "Jill Archer", SceneID: "m001_0"}})
	require.NoError(t, err)

	cands, err := s.EmptySceneCandidates(ctx)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "m001_1", cands[0].EmptyID)
	assert.Equal(t, "m001_0", cands[0].TargetID)

	ok, err := s.MergeScenes(ctx, "m001_0", "m001_1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.MergeScenes(ctx, "m001_0", "m001_1")
	require.NoError(t, err)
	assert.False(t, ok)

	view, err := s.EpisodeByDate(ctx, model.MustDate("2024-03-01"))
	require.NoError(t, err)
	require.Len(t, view.Scenes, 1)
	assert.Equal(t, "Jill bakes. More cake.", view.Scenes[0].Text)
	assert.Equal(t, []string{"Jill Archer"}, view.Scenes[0].Characters)
}

func TestSingleSceneEpisodesSince(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, err := s.UpsertEpisodes(ctx, []model.EpisodeInput{
		episode("m001", "2024-02-01", "old"),
		episode("m002", "2024-03-01", "thin"),
		episode("m003", "2024-03-02", "a", "b"),
	})
	require.NoError(t, err)

	pids, err := s.SingleSceneEpisodes(ctx, model.MustDate("2024-02-25"))
	require.NoError(t, err)
	assert.Equal(t, []string{"m002"}, pids)
}

func TestSetEpisodeDatesKeepsScenes(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, err := s.UpsertEpisodes(ctx, []model.EpisodeInput{episode("m002", "2024-03-05", "a")})
	require.NoError(t, err)

	n, err := s.SetEpisodeDates(ctx, []model.DateChange{{PID: "m002", To: model.MustDate("2024-03-04")}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	view, err := s.EpisodeByDate(ctx, model.MustDate("2024-03-04"))
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Len(t, view.Scenes, 1)
}

func TestApplyStatementsUnsupported(t *testing.T) {
	err := New().ApplyStatements(context.Background(), []string{"CREATE (n)"})
	assert.ErrorIs(t, err, ErrStatementsUnsupported)
}
