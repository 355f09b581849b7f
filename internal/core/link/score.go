package link

import (
	"regexp"
	"strings"
	"time"

	"github.com/agenthands/ambridge/internal/core/graph"
	"github.com/agenthands/ambridge/internal/core/model"
)

const (
	closeFamilyWeight   = 3
	cohabitantWeight    = 2
	friendWeight        = 2
	distantFamilyWeight = 1
	keywordWeight       = 2

	// minScore is the least total a candidate with rivals needs to win.
	minScore = 1
)

var memorialPattern = regexp.MustCompile(wordStart + `(?:death|died|funeral|memorial|footsteps|passed away|loss of|mourning)` + wordEnd)

// Signals are the evidence gathered for one candidate in one scene.
type Signals struct {
	Active            bool
	FullNameInEpisode bool
	CloseFamily       int
	DistantFamily     int
	Friends           int
	Cohabitants       int
	KeywordScore      int
	Definite          bool
}

func (s Signals) Total() int {
	return closeFamilyWeight*s.CloseFamily +
		cohabitantWeight*s.Cohabitants +
		friendWeight*s.Friends +
		distantFamilyWeight*s.DistantFamily +
		s.KeywordScore
}

type candidate struct {
	m       *matcher
	signals Signals
	score   int
	rivals  []*candidate
}

func (c *candidate) name() string {
	return c.m.char.Name
}

// gather computes the signals of m for a scene from the committed links in g.
func gather(g *graph.Graph, m *matcher, sc *model.Scene, date time.Time) Signals {
	c := m.char
	s := Signals{
		Active:            c.ActiveOn(date),
		FullNameInEpisode: g.EpisodeMentions(sc.EpisodePID, c.Name),
		KeywordScore:      m.keywordScore(sc.Text),
	}
	for _, other := range g.Appearing(sc.ID) {
		if other == c.Name {
			continue
		}
		if g.CloseFamily(c.Name, other) {
			s.CloseFamily++
		}
		if g.DistantFamily(c.Name, other) {
			s.DistantFamily++
		}
		if g.Friends(c.Name, other) {
			s.Friends++
		}
		if g.Cohabitants(c.Name, other, date) {
			s.Cohabitants++
		}
	}
	s.Definite = strings.Contains(sc.Text, c.Name) || s.FullNameInEpisode || c.BornOrDiedOn(date)
	return s
}

// episodeContext caches per-episode facts shared by every candidate.
type episodeContext struct {
	g        *graph.Graph
	pid      string
	date     time.Time
	memorial *bool
}

func (e *episodeContext) hasMemorial() bool {
	if e.memorial == nil {
		found := false
		for _, sc := range e.g.ScenesOf(e.pid) {
			if memorialPattern.MatchString(sc.Text) {
				found = true
				break
			}
		}
		e.memorial = &found
	}
	return *e.memorial
}

// verdict is the reason a candidate was or was not linked.
type verdict string

const (
	verdictLinked       verdict = "linked"
	verdictInactive     verdict = "inactive"
	verdictRivalNamed   verdict = "rival named in episode"
	verdictMemorial     verdict = "memorial for rival"
	verdictInsufficient verdict = "insufficient evidence"
)

// resolve applies the exclusion and winning rules to one candidate whose
// rivals are already attached.
func resolve(ep *episodeContext, cand *candidate) verdict {
	if !cand.signals.Active {
		return verdictInactive
	}
	deceasedRival, rivalDiedToday := false, false
	for _, r := range cand.rivals {
		if ep.g.EpisodeMentions(ep.pid, r.name()) {
			return verdictRivalNamed
		}
		if dod := r.m.char.DOD; dod != nil {
			deceasedRival = true
			if dod.Equal(ep.date) {
				rivalDiedToday = true
			}
		}
	}
	if rivalDiedToday || (deceasedRival && ep.hasMemorial()) {
		return verdictMemorial
	}
	if cand.signals.Definite || len(cand.rivals) == 0 {
		return verdictLinked
	}
	if cand.score < minScore {
		return verdictInsufficient
	}
	for _, r := range cand.rivals {
		if r.score >= cand.score {
			return verdictInsufficient
		}
	}
	return verdictLinked
}
