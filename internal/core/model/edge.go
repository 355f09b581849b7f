package model

import "time"

// RelationKind names a biographical edge between two characters.
type RelationKind string

const (
	RelSpouse   RelationKind = "SPOUSE"
	RelRomantic RelationKind = "ROMANTIC_RELATIONSHIP"
	RelChildOf  RelationKind = "CHILD_OF" // From is the child, To the parent
	RelFriendOf RelationKind = "FRIEND_OF"
)

// Relation is a static edge of the base dataset.
type Relation struct {
	Kind RelationKind `json:"kind"`
	From string       `json:"from"`
	To   string       `json:"to"`
}

// ResidenceKind names a character→location edge.
type ResidenceKind string

const (
	LivesAt ResidenceKind = "LIVES_AT"
	WorksAt ResidenceKind = "WORKS_AT"
)

// Residence ties a character to a location for an optional validity window.
type Residence struct {
	Kind      ResidenceKind `json:"kind"`
	Character string        `json:"character"`
	Location  string        `json:"location"`
	From      *time.Time    `json:"from,omitempty"`
	To        *time.Time    `json:"to,omitempty"`
}

// ValidOn reports whether the residence holds on d.
func (r Residence) ValidOn(d time.Time) bool {
	return Within(d, r.From, r.To)
}

// Appearance is an APPEARS_IN edge from a character to a scene.
type Appearance struct {
	Character string `json:"character"`
	SceneID   string `json:"scene_id"`
}
