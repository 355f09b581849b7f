// Package reconcile holds the operator repair tools: forcing a link and
// folding unattributed scenes back into their predecessors.
package reconcile

import (
	"context"
	"fmt"
	"sort"

	"github.com/agenthands/ambridge/internal/core/model"
	"github.com/agenthands/ambridge/internal/logger"
	"github.com/agenthands/ambridge/internal/store"
)

// ApproveFunc decides one merge candidate. Returning an error stops the
// merge loop.
type ApproveFunc func(ctx context.Context, c model.MergeCandidate) (bool, error)

// MergeResult counts a merge run. Skipped candidates vanished before they
// could be merged, usually because an earlier merge consumed them.
type MergeResult struct {
	Candidates int
	Merged     int
	Rejected   int
	Skipped    int
}

type Reconciler struct {
	Store store.Store
	log   *logger.Logger
}

func NewReconciler(s store.Store, log *logger.Logger) *Reconciler {
	return &Reconciler{Store: s, log: logger.OrNop(log)}
}

// ManualLink links the character to the given scenes without scoring.
func (r *Reconciler) ManualLink(ctx context.Context, name string, sceneIDs []string) (int, error) {
	ids := make([]string, 0, len(sceneIDs))
	seen := make(map[string]bool)
	for _, id := range sceneIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if name == "" || len(ids) == 0 {
		r.log.Warn("manual link has nothing to do", "character", name, "scenes", len(ids))
		return 0, nil
	}
	n, err := r.Store.LinkCharacter(ctx, name, ids)
	if err != nil {
		return 0, fmt.Errorf("manual link %q: %w", name, err)
	}
	if n == 0 {
		r.log.Warn("no links created; check the character name and scene ids", "character", name, "scenes", ids)
		return 0, nil
	}
	r.log.Info("manual link", "character", name, "links", n)
	return n, nil
}

// MergeEmptyScenes offers every unattributed scene with a predecessor to
// approve, in ascending scene id order, and merges the approved ones.
func (r *Reconciler) MergeEmptyScenes(ctx context.Context, approve ApproveFunc) (MergeResult, error) {
	var res MergeResult
	cands, err := r.Store.EmptySceneCandidates(ctx)
	if err != nil {
		return res, fmt.Errorf("find empty scenes: %w", err)
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].EmptyID < cands[j].EmptyID })
	res.Candidates = len(cands)
	if len(cands) == 0 {
		r.log.Info("no empty scenes to merge")
		return res, nil
	}

	gone := make(map[string]bool)
	for _, c := range cands {
		if gone[c.EmptyID] || gone[c.TargetID] {
			res.Skipped++
			continue
		}
		ok, err := approve(ctx, c)
		if err != nil {
			return res, fmt.Errorf("approve %s: %w", c.EmptyID, err)
		}
		if !ok {
			res.Rejected++
			continue
		}
		merged, err := r.Store.MergeScenes(ctx, c.TargetID, c.EmptyID)
		if err != nil {
			return res, fmt.Errorf("merge %s into %s: %w", c.EmptyID, c.TargetID, err)
		}
		if !merged {
			res.Skipped++
			continue
		}
		gone[c.EmptyID] = true
		res.Merged++
		r.log.Info("merged scene", "empty", c.EmptyID, "target", c.TargetID)
	}
	return res, nil
}

// ApproveAll accepts every candidate.
func ApproveAll(context.Context, model.MergeCandidate) (bool, error) {
	return true, nil
}
