// Package store defines the typed operations the engine needs from the
// graph persistence layer.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/agenthands/ambridge/internal/core/graph"
	"github.com/agenthands/ambridge/internal/core/model"
)

// Store is the graph store adapter. Every method is one independent
// request; a failing call leaves earlier calls committed.
type Store interface {
	// UpsertEpisodes writes one chunk atomically and returns the number of
	// nodes it created.
	UpsertEpisodes(ctx context.Context, chunk []model.EpisodeInput) (int, error)
	EpisodeDigests(ctx context.Context) ([]model.EpisodeDigest, error)
	DeleteEpisodes(ctx context.Context, pids []string) (int, error)
	SetEpisodeDates(ctx context.Context, changes []model.DateChange) (int, error)

	// LoadSnapshot returns the cast with its relations plus the scenes of
	// the given episodes (all episodes when pids is nil) and their committed
	// appearances.
	LoadSnapshot(ctx context.Context, pids []string) (*graph.Graph, error)
	CreateAppearances(ctx context.Context, apps []model.Appearance) (int, error)
	LinkCharacter(ctx context.Context, name string, sceneIDs []string) (int, error)

	EmptySceneCandidates(ctx context.Context) ([]model.MergeCandidate, error)
	// MergeScenes reports false when either scene no longer exists.
	MergeScenes(ctx context.Context, targetID, emptyID string) (bool, error)
	SingleSceneEpisodes(ctx context.Context, since time.Time) ([]string, error)

	EpisodeByDate(ctx context.Context, date time.Time) (*model.EpisodeView, error)
	CharacterTimeline(ctx context.Context, name string) ([]model.SceneView, error)

	IsEmpty(ctx context.Context) (bool, error)
	ApplyStatements(ctx context.Context, statements []string) error
	BuildIndices(ctx context.Context) error
	Close(ctx context.Context) error
}

// OperationError is a store request the persistence engine rejected.
type OperationError struct {
	Op  string
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

func opError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &OperationError{Op: op, Err: err}
}

// OpError wraps err as an OperationError for implementations outside this
// package.
func OpError(op string, err error) error {
	return opError(op, err)
}
