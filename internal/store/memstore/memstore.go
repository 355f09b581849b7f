// Package memstore is an in-process Store over the graph arena, used by
// tests and dry runs.
package memstore

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/agenthands/ambridge/internal/core/graph"
	"github.com/agenthands/ambridge/internal/core/model"
	"github.com/agenthands/ambridge/internal/store"
)

// ErrStatementsUnsupported is returned by ApplyStatements; seed the store
// through its Add methods instead.
var ErrStatementsUnsupported = errors.New("memstore cannot execute query statements")

type Store struct {
	mu sync.RWMutex
	g  *graph.Graph

	// BeforeOp, when set, runs before every operation; a non-nil error
	// aborts it and is reported as an OperationError.
	BeforeOp func(op string) error
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{g: graph.New()}
}

func (s *Store) check(op string) error {
	if s.BeforeOp == nil {
		return nil
	}
	return store.OpError(op, s.BeforeOp(op))
}

func (s *Store) AddCharacter(c model.Character) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.g.AddCharacter(c)
}

func (s *Store) AddRelation(r model.Relation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.g.AddRelation(r)
}

func (s *Store) AddResidence(r model.Residence) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.g.AddResidence(r)
}

// Graph returns a copy of everything held.
func (s *Store) Graph() *graph.Graph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.g.Clone(nil)
}

func (s *Store) UpsertEpisodes(ctx context.Context, chunk []model.EpisodeInput) (int, error) {
	if err := s.check("upsert episodes"); err != nil {
		return 0, err
	}
	dates := make([]time.Time, len(chunk))
	for i, ep := range chunk {
		d, err := model.ParseDate(ep.Date)
		if err != nil {
			return 0, store.OpError("upsert episodes", err)
		}
		dates[i] = d
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	created := 0
	for i, ep := range chunk {
		if _, ok := s.g.Episode(ep.PID); !ok {
			s.g.PutEpisode(model.Episode{PID: ep.PID, Date: dates[i], Synopsis: ep.Synopsis})
			created++
		}
		for _, sc := range ep.Scenes {
			if _, ok := s.g.Scene(sc.ID); !ok {
				created++
			}
			s.g.PutScene(model.Scene{ID: sc.ID, EpisodePID: ep.PID, Order: sc.Index, Text: sc.Text})
		}
	}
	return created, nil
}

func (s *Store) EpisodeDigests(ctx context.Context) ([]model.EpisodeDigest, error) {
	if err := s.check("episode digests"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	eps := s.g.Episodes()
	out := make([]model.EpisodeDigest, 0, len(eps))
	for _, e := range eps {
		d := model.EpisodeDigest{PID: e.PID, Date: e.Date, Synopsis: e.Synopsis, SceneTexts: []string{}}
		for _, sc := range s.g.ScenesOf(e.PID) {
			d.SceneTexts = append(d.SceneTexts, sc.Text)
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *Store) DeleteEpisodes(ctx context.Context, pids []string) (int, error) {
	if err := s.check("delete episodes"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, pid := range pids {
		if s.g.RemoveEpisode(pid) {
			n++
		}
	}
	return n, nil
}

func (s *Store) SetEpisodeDates(ctx context.Context, changes []model.DateChange) (int, error) {
	if err := s.check("set episode dates"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, ch := range changes {
		e, ok := s.g.Episode(ch.PID)
		if !ok {
			continue
		}
		moved := *e
		moved.Date = model.Day(ch.To)
		s.g.PutEpisode(moved)
		n++
	}
	return n, nil
}

func (s *Store) LoadSnapshot(ctx context.Context, pids []string) (*graph.Graph, error) {
	if err := s.check("load snapshot"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.g.Clone(pids), nil
}

func (s *Store) CreateAppearances(ctx context.Context, apps []model.Appearance) (int, error) {
	if err := s.check("create appearances"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range apps {
		if s.g.AddAppearance(a.Character, a.SceneID) {
			n++
		}
	}
	return n, nil
}

// LinkCharacter counts every resolved link, including ones that already
// existed.
func (s *Store) LinkCharacter(ctx context.Context, name string, sceneIDs []string) (int, error) {
	if err := s.check("link character"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.g.Character(name); !ok {
		return 0, nil
	}
	n := 0
	for _, id := range sceneIDs {
		if _, ok := s.g.Scene(id); !ok {
			continue
		}
		s.g.AddAppearance(name, id)
		n++
	}
	return n, nil
}

func (s *Store) EmptySceneCandidates(ctx context.Context) ([]model.MergeCandidate, error) {
	if err := s.check("find empty scenes"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.MergeCandidate
	for _, sc := range s.g.Scenes() {
		if len(s.g.Appearing(sc.ID)) > 0 {
			continue
		}
		target, ok := s.g.SceneAt(sc.EpisodePID, sc.Order-1)
		if !ok {
			continue
		}
		out = append(out, model.MergeCandidate{
			EmptyID:    sc.ID,
			EmptyText:  sc.Text,
			TargetID:   target.ID,
			TargetText: target.Text,
			EpisodePID: sc.EpisodePID,
		})
	}
	return out, nil
}

func (s *Store) MergeScenes(ctx context.Context, targetID, emptyID string) (bool, error) {
	if err := s.check("merge scenes"); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.g.Scene(targetID)
	if !ok {
		return false, nil
	}
	empty, ok := s.g.Scene(emptyID)
	if !ok {
		return false, nil
	}
	merged := *target
	merged.Text = target.Text + " " + empty.Text
	s.g.RemoveScene(emptyID)
	s.g.PutScene(merged)
	return true, nil
}

func (s *Store) SingleSceneEpisodes(ctx context.Context, since time.Time) ([]string, error) {
	if err := s.check("find single-scene episodes"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var pids []string
	for _, e := range s.g.Episodes() {
		if e.Date.Before(model.Day(since)) {
			continue
		}
		if len(s.g.ScenesOf(e.PID)) == 1 {
			pids = append(pids, e.PID)
		}
	}
	return pids, nil
}

func (s *Store) sceneView(sc *model.Scene) model.SceneView {
	e, _ := s.g.Episode(sc.EpisodePID)
	return model.SceneView{
		SceneID:    sc.ID,
		EpisodePID: sc.EpisodePID,
		Date:       model.FormatDate(e.Date),
		Text:       sc.Text,
		Characters: s.g.Appearing(sc.ID),
	}
}

func (s *Store) EpisodeByDate(ctx context.Context, date time.Time) (*model.EpisodeView, error) {
	if err := s.check("episode by date"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	day := model.Day(date)
	for _, e := range s.g.Episodes() {
		if !e.Date.Equal(day) {
			continue
		}
		view := &model.EpisodeView{
			PID:      e.PID,
			Date:     model.FormatDate(e.Date),
			Synopsis: e.Synopsis,
			Scenes:   []model.SceneView{},
		}
		for _, sc := range s.g.ScenesOf(e.PID) {
			v := s.sceneView(sc)
			v.EpisodePID, v.Date = "", ""
			view.Scenes = append(view.Scenes, v)
		}
		return view, nil
	}
	return nil, nil
}

func (s *Store) CharacterTimeline(ctx context.Context, name string) ([]model.SceneView, error) {
	if err := s.check("character timeline"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.SceneView
	for _, sc := range s.g.Scenes() {
		if s.g.Appears(name, sc.ID) {
			out = append(out, s.sceneView(sc))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

func (s *Store) IsEmpty(ctx context.Context) (bool, error) {
	if err := s.check("check empty"); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	episodes, _ := s.g.Counts()
	return episodes == 0 && len(s.g.Characters()) == 0, nil
}

func (s *Store) ApplyStatements(ctx context.Context, statements []string) error {
	return store.OpError("apply statements", ErrStatementsUnsupported)
}

func (s *Store) BuildIndices(ctx context.Context) error {
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return nil
}
