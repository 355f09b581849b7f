// Package link attributes scenes to characters. Pass 1 links characters
// whose names and aliases nobody else uses; pass 2 scores the characters
// that share a name or alias and links only a clear winner.
package link

import (
	"context"
	"fmt"
	"sort"

	"github.com/agenthands/ambridge/internal/core/graph"
	"github.com/agenthands/ambridge/internal/core/model"
	"github.com/agenthands/ambridge/internal/logger"
	"github.com/agenthands/ambridge/internal/store"
)

// PassResult counts one pass. Unresolved candidates were matched by text
// but not linked; that is an expected outcome, not a failure.
type PassResult struct {
	Scenes     int
	Candidates int
	Linked     int
	Created    int
	Unresolved int
}

type Result struct {
	Pass1 PassResult
	Pass2 PassResult
}

func (r Result) Created() int {
	return r.Pass1.Created + r.Pass2.Created
}

type Linker struct {
	Store store.Store
	log   *logger.Logger
}

func NewLinker(s store.Store, log *logger.Logger) *Linker {
	return &Linker{Store: s, log: logger.OrNop(log)}
}

func scopeEmpty(pids []string) bool {
	return pids != nil && len(pids) == 0
}

// Run executes both passes over the given episodes, or over every episode
// when pids is nil. Pass 2 sees the links pass 1 committed.
func (l *Linker) Run(ctx context.Context, pids []string) (Result, error) {
	var res Result
	if scopeEmpty(pids) {
		return res, nil
	}
	g, err := l.Store.LoadSnapshot(ctx, pids)
	if err != nil {
		return res, fmt.Errorf("load link snapshot: %w", err)
	}
	idx := NewIndex(g.Characters(), l.log)

	var apps []model.Appearance
	apps, res.Pass1 = Pass1(g, idx)
	if res.Pass1.Created, err = l.commit(ctx, apps); err != nil {
		return res, fmt.Errorf("commit pass 1: %w", err)
	}
	for _, a := range apps {
		g.AddAppearance(a.Character, a.SceneID)
	}
	l.log.Info("link pass 1 done", "scenes", res.Pass1.Scenes, "linked", res.Pass1.Linked, "created", res.Pass1.Created)

	apps, res.Pass2 = Pass2(g, idx, l.log)
	if res.Pass2.Created, err = l.commit(ctx, apps); err != nil {
		return res, fmt.Errorf("commit pass 2: %w", err)
	}
	l.log.Info("link pass 2 done", "scenes", res.Pass2.Scenes, "candidates", res.Pass2.Candidates,
		"linked", res.Pass2.Linked, "created", res.Pass2.Created, "unresolved", res.Pass2.Unresolved)
	return res, nil
}

// RunPass1 runs only the unique-character pass.
func (l *Linker) RunPass1(ctx context.Context, pids []string) (PassResult, error) {
	return l.runOne(ctx, pids, func(g *graph.Graph, idx *Index) ([]model.Appearance, PassResult) {
		return Pass1(g, idx)
	})
}

// RunPass2 runs only the scoring pass against the links already committed.
func (l *Linker) RunPass2(ctx context.Context, pids []string) (PassResult, error) {
	return l.runOne(ctx, pids, func(g *graph.Graph, idx *Index) ([]model.Appearance, PassResult) {
		return Pass2(g, idx, l.log)
	})
}

func (l *Linker) runOne(ctx context.Context, pids []string, pass func(*graph.Graph, *Index) ([]model.Appearance, PassResult)) (PassResult, error) {
	if scopeEmpty(pids) {
		return PassResult{}, nil
	}
	g, err := l.Store.LoadSnapshot(ctx, pids)
	if err != nil {
		return PassResult{}, fmt.Errorf("load link snapshot: %w", err)
	}
	apps, res := pass(g, NewIndex(g.Characters(), l.log))
	if res.Created, err = l.commit(ctx, apps); err != nil {
		return res, err
	}
	return res, nil
}

func (l *Linker) commit(ctx context.Context, apps []model.Appearance) (int, error) {
	if len(apps) == 0 {
		return 0, nil
	}
	return l.Store.CreateAppearances(ctx, apps)
}

func sortAppearances(apps []model.Appearance) {
	sort.Slice(apps, func(i, j int) bool {
		if apps[i].SceneID != apps[j].SceneID {
			return apps[i].SceneID < apps[j].SceneID
		}
		return apps[i].Character < apps[j].Character
	})
}

// Pass1 links every unique-token character to the scenes naming it on a
// date inside its windows.
func Pass1(g *graph.Graph, idx *Index) ([]model.Appearance, PassResult) {
	var res PassResult
	var apps []model.Appearance
	unique := idx.unique()
	for _, sc := range g.Scenes() {
		ep, ok := g.Episode(sc.EpisodePID)
		if !ok {
			continue
		}
		res.Scenes++
		for _, m := range unique {
			if !m.matches(sc.Text) {
				continue
			}
			res.Candidates++
			if !m.char.ActiveOn(ep.Date) {
				res.Unresolved++
				continue
			}
			apps = append(apps, model.Appearance{Character: m.char.Name, SceneID: sc.ID})
		}
	}
	sortAppearances(apps)
	res.Linked = len(apps)
	return apps, res
}

// Pass2 scores the ambiguous characters matched in each scene. All
// decisions read the links present in g on entry; none of the pass's own
// results feed back into its scores.
func Pass2(g *graph.Graph, idx *Index, log *logger.Logger) ([]model.Appearance, PassResult) {
	log = logger.OrNop(log)
	var res PassResult
	var apps []model.Appearance
	ambiguous := idx.ambiguous()
	contexts := make(map[string]*episodeContext)

	for _, sc := range g.Scenes() {
		ep, ok := g.Episode(sc.EpisodePID)
		if !ok {
			continue
		}
		res.Scenes++

		var cands []*candidate
		for _, m := range ambiguous {
			if !m.matches(sc.Text) {
				continue
			}
			sig := gather(g, m, sc, ep.Date)
			cands = append(cands, &candidate{m: m, signals: sig, score: sig.Total()})
		}
		if len(cands) == 0 {
			continue
		}
		for _, c := range cands {
			for _, r := range cands {
				if r != c && c.m.char.SharesAlias(r.m.char) {
					c.rivals = append(c.rivals, r)
				}
			}
		}

		ec, ok := contexts[ep.PID]
		if !ok {
			ec = &episodeContext{g: g, pid: ep.PID, date: ep.Date}
			contexts[ep.PID] = ec
		}
		for _, c := range cands {
			res.Candidates++
			v := resolve(ec, c)
			if v != verdictLinked {
				res.Unresolved++
				log.Debug("candidate not linked", "scene", sc.ID, "character", c.name(), "reason", string(v), "score", c.score)
				continue
			}
			apps = append(apps, model.Appearance{Character: c.name(), SceneID: sc.ID})
		}
	}
	sortAppearances(apps)
	res.Linked = len(apps)
	return apps, res
}
