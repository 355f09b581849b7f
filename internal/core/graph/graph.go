// Package graph holds the archive as an in-memory arena of nodes keyed by
// their stable identifiers, with adjacency kept in maps.
package graph

import (
	"sort"
	"strings"

	"github.com/agenthands/ambridge/internal/core/model"
)

type set map[string]struct{}

func (s set) add(v string) bool {
	if _, ok := s[v]; ok {
		return false
	}
	s[v] = struct{}{}
	return true
}

func (s set) has(v string) bool {
	_, ok := s[v]
	return ok
}

func (s set) sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

type Graph struct {
	characters map[string]*model.Character
	locations  map[string]*model.Location

	relations  []model.Relation
	parents    map[string]set // child -> parents
	children   map[string]set // parent -> children
	partners   map[string]set // spouse or romantic, both directions
	friends    map[string]set // both directions
	residences map[string][]model.Residence

	episodes      map[string]*model.Episode
	scenes        map[string]*model.Scene
	episodeScenes map[string]set
	appearances   map[string]set // scene id -> character names
}

func New() *Graph {
	return &Graph{
		characters:    make(map[string]*model.Character),
		locations:     make(map[string]*model.Location),
		parents:       make(map[string]set),
		children:      make(map[string]set),
		partners:      make(map[string]set),
		friends:       make(map[string]set),
		residences:    make(map[string][]model.Residence),
		episodes:      make(map[string]*model.Episode),
		scenes:        make(map[string]*model.Scene),
		episodeScenes: make(map[string]set),
		appearances:   make(map[string]set),
	}
}

func link(m map[string]set, from, to string) {
	if m[from] == nil {
		m[from] = make(set)
	}
	m[from].add(to)
}

// AddCharacter inserts or replaces a character keyed by name.
func (g *Graph) AddCharacter(c model.Character) {
	cp := c
	cp.Aliases = append([]string(nil), c.Aliases...)
	cp.Keywords = append([]string(nil), c.Keywords...)
	g.characters[c.Name] = &cp
}

func (g *Graph) AddLocation(name string) {
	if _, ok := g.locations[name]; !ok {
		g.locations[name] = &model.Location{Name: name}
	}
}

// AddRelation records a biographical edge. Symmetric kinds are indexed in
// both directions.
func (g *Graph) AddRelation(r model.Relation) {
	g.relations = append(g.relations, r)
	switch r.Kind {
	case model.RelChildOf:
		link(g.parents, r.From, r.To)
		link(g.children, r.To, r.From)
	case model.RelSpouse, model.RelRomantic:
		link(g.partners, r.From, r.To)
		link(g.partners, r.To, r.From)
	case model.RelFriendOf:
		link(g.friends, r.From, r.To)
		link(g.friends, r.To, r.From)
	}
}

func (g *Graph) AddResidence(r model.Residence) {
	g.AddLocation(r.Location)
	g.residences[r.Character] = append(g.residences[r.Character], r)
}

// PutEpisode inserts or replaces an episode node.
func (g *Graph) PutEpisode(e model.Episode) {
	cp := e
	g.episodes[e.PID] = &cp
	if g.episodeScenes[e.PID] == nil {
		g.episodeScenes[e.PID] = make(set)
	}
}

// PutScene inserts or replaces a scene and its PART_OF edge. The owning
// episode must already exist.
func (g *Graph) PutScene(s model.Scene) bool {
	if _, ok := g.episodes[s.EpisodePID]; !ok {
		return false
	}
	if old, ok := g.scenes[s.ID]; ok && old.EpisodePID != s.EpisodePID {
		g.episodeScenes[old.EpisodePID] = withoutKey(g.episodeScenes[old.EpisodePID], s.ID)
	}
	cp := s
	g.scenes[s.ID] = &cp
	g.episodeScenes[s.EpisodePID].add(s.ID)
	return true
}

func withoutKey(s set, key string) set {
	delete(s, key)
	return s
}

// RemoveScene deletes a scene with its APPEARS_IN edges.
func (g *Graph) RemoveScene(id string) bool {
	s, ok := g.scenes[id]
	if !ok {
		return false
	}
	delete(g.scenes, id)
	delete(g.appearances, id)
	if ids := g.episodeScenes[s.EpisodePID]; ids != nil {
		delete(ids, id)
	}
	return true
}

// RemoveEpisode deletes an episode and cascades to its scenes.
func (g *Graph) RemoveEpisode(pid string) bool {
	if _, ok := g.episodes[pid]; !ok {
		return false
	}
	for id := range g.episodeScenes[pid] {
		g.RemoveScene(id)
	}
	delete(g.episodeScenes, pid)
	delete(g.episodes, pid)
	return true
}

// AddAppearance creates an APPEARS_IN edge and reports whether it is new.
func (g *Graph) AddAppearance(character, sceneID string) bool {
	if _, ok := g.characters[character]; !ok {
		return false
	}
	if _, ok := g.scenes[sceneID]; !ok {
		return false
	}
	if g.appearances[sceneID] == nil {
		g.appearances[sceneID] = make(set)
	}
	return g.appearances[sceneID].add(character)
}

func (g *Graph) Character(name string) (*model.Character, bool) {
	c, ok := g.characters[name]
	return c, ok
}

// Characters returns every character ordered by name.
func (g *Graph) Characters() []*model.Character {
	out := make([]*model.Character, 0, len(g.characters))
	for _, c := range g.characters {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (g *Graph) Relations() []model.Relation {
	return append([]model.Relation(nil), g.relations...)
}

// RelationsOf returns the relations with name at either end.
func (g *Graph) RelationsOf(name string) []model.Relation {
	var out []model.Relation
	for _, r := range g.relations {
		if r.From == name || r.To == name {
			out = append(out, r)
		}
	}
	return out
}

func (g *Graph) Residences(character string) []model.Residence {
	return g.residences[character]
}

func (g *Graph) Episode(pid string) (*model.Episode, bool) {
	e, ok := g.episodes[pid]
	return e, ok
}

// Episodes returns every episode ordered by pid.
func (g *Graph) Episodes() []*model.Episode {
	out := make([]*model.Episode, 0, len(g.episodes))
	for _, e := range g.episodes {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
	return out
}

func (g *Graph) Scene(id string) (*model.Scene, bool) {
	s, ok := g.scenes[id]
	return s, ok
}

// Scenes returns every scene ordered by id.
func (g *Graph) Scenes() []*model.Scene {
	out := make([]*model.Scene, 0, len(g.scenes))
	for _, s := range g.scenes {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ScenesOf returns the scenes of an episode ordered by id as a string.
func (g *Graph) ScenesOf(pid string) []*model.Scene {
	ids := g.episodeScenes[pid].sorted()
	out := make([]*model.Scene, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.scenes[id])
	}
	return out
}

// SceneAt finds the scene of an episode at the given order.
func (g *Graph) SceneAt(pid string, order int) (*model.Scene, bool) {
	for id := range g.episodeScenes[pid] {
		if s := g.scenes[id]; s.Order == order {
			return s, true
		}
	}
	return nil, false
}

// Appearing returns the names linked to a scene, ordered.
func (g *Graph) Appearing(sceneID string) []string {
	return g.appearances[sceneID].sorted()
}

func (g *Graph) Appears(character, sceneID string) bool {
	return g.appearances[sceneID].has(character)
}

// EpisodeMentions reports whether any scene of the episode contains needle
// verbatim.
func (g *Graph) EpisodeMentions(pid, needle string) bool {
	for id := range g.episodeScenes[pid] {
		if strings.Contains(g.scenes[id].Text, needle) {
			return true
		}
	}
	return false
}

// Counts reports the number of episodes and scenes held.
func (g *Graph) Counts() (episodes, scenes int) {
	return len(g.episodes), len(g.scenes)
}

// Clone copies the cast, its relations and the given episodes with their
// scenes and appearances. A nil pids slice copies every episode.
func (g *Graph) Clone(pids []string) *Graph {
	out := New()
	for _, c := range g.characters {
		out.AddCharacter(*c)
	}
	for name := range g.locations {
		out.AddLocation(name)
	}
	for _, r := range g.relations {
		out.AddRelation(r)
	}
	for _, rs := range g.residences {
		for _, r := range rs {
			out.AddResidence(r)
		}
	}

	scope := g.episodes
	if pids != nil {
		scope = make(map[string]*model.Episode, len(pids))
		for _, pid := range pids {
			if e, ok := g.episodes[pid]; ok {
				scope[pid] = e
			}
		}
	}
	for pid, e := range scope {
		out.PutEpisode(*e)
		for id := range g.episodeScenes[pid] {
			out.PutScene(*g.scenes[id])
			for name := range g.appearances[id] {
				out.AddAppearance(name, id)
			}
		}
	}
	return out
}
