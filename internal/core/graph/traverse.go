package graph

import (
	"time"

	"github.com/agenthands/ambridge/internal/core/model"
)

// CloseFamily reports a spouse or romantic partnership, a direct parent or
// child, or a sibling sharing at least one parent.
func (g *Graph) CloseFamily(a, b string) bool {
	if a == b {
		return false
	}
	if g.partners[a].has(b) || g.parents[a].has(b) || g.children[a].has(b) {
		return true
	}
	for p := range g.parents[a] {
		if g.children[p].has(b) {
			return true
		}
	}
	return false
}

// DistantFamily reports a grandparent or grandchild, two CHILD_OF hops in
// either direction.
func (g *Graph) DistantFamily(a, b string) bool {
	if a == b {
		return false
	}
	for p := range g.parents[a] {
		if g.parents[p].has(b) {
			return true
		}
	}
	for c := range g.children[a] {
		if g.children[c].has(b) {
			return true
		}
	}
	return false
}

func (g *Graph) Friends(a, b string) bool {
	return a != b && g.friends[a].has(b)
}

// Cohabitants reports whether a and b both have a LIVES_AT or WORKS_AT edge
// to one location, each valid on the given day.
func (g *Graph) Cohabitants(a, b string, on time.Time) bool {
	if a == b {
		return false
	}
	places := make(set)
	for _, r := range g.residences[a] {
		if r.ValidOn(on) {
			places.add(r.Location)
		}
	}
	if len(places) == 0 {
		return false
	}
	for _, r := range g.residences[b] {
		if r.ValidOn(on) && places.has(r.Location) {
			return true
		}
	}
	return false
}

// Family collects everyone within depth CHILD_OF or partner hops of name.
// The named character comes first, the rest follow by name. Unknown names
// yield nil.
func (g *Graph) Family(name string, depth int) []model.FamilyMember {
	if _, ok := g.characters[name]; !ok {
		return nil
	}
	members := set{name: {}}
	frontier := []string{name}
	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		var next []string
		for _, n := range frontier {
			for _, rel := range []set{g.parents[n], g.children[n], g.partners[n]} {
				for m := range rel {
					if _, ok := g.characters[m]; ok && members.add(m) {
						next = append(next, m)
					}
				}
			}
		}
		frontier = next
	}

	within := func(s set) []string {
		out := []string{}
		for _, v := range s.sorted() {
			if members.has(v) {
				out = append(out, v)
			}
		}
		return out
	}
	names := members.sorted()
	out := make([]model.FamilyMember, 0, len(names))
	for _, n := range append([]string{name}, names...) {
		if n == name && len(out) > 0 {
			continue
		}
		c := g.characters[n]
		out = append(out, model.FamilyMember{
			Name:     n,
			DOB:      c.DOB,
			DOD:      c.DOD,
			Parents:  within(g.parents[n]),
			Partners: within(g.partners[n]),
			Children: within(g.children[n]),
		})
	}
	return out
}
