package model

import (
	"fmt"
	"time"
)

// Episode is one broadcast, keyed by its programme id.
type Episode struct {
	PID      string    `json:"pid"`
	Date     time.Time `json:"date"`
	Synopsis string    `json:"synopsis"`
}

// Scene is one narrative segment of an episode. Its ID encodes the owning
// episode and the zero-based position within it.
type Scene struct {
	ID         string `json:"id"`
	EpisodePID string `json:"episode_pid"`
	Order      int    `json:"order"`
	Text       string `json:"text"`
}

// SceneID derives the stable scene identity from an episode pid and index.
func SceneID(pid string, index int) string {
	return fmt.Sprintf("%s_%d", pid, index)
}

// Character is a member of the cast. Characters come from the base dataset
// and are never created by the pipeline.
type Character struct {
	Name            string     `json:"name"`
	Aliases         []string   `json:"aliases,omitempty"`
	DOB             *time.Time `json:"dob,omitempty"`
	DOD             *time.Time `json:"dod,omitempty"`
	FirstAppearance *time.Time `json:"first_appearance,omitempty"`
	LastAppearance  *time.Time `json:"last_appearance,omitempty"`
	Keywords        []string   `json:"keywords,omitempty"`
}

// Terms returns the aliases followed by the name.
func (c *Character) Terms() []string {
	terms := make([]string, 0, len(c.Aliases)+1)
	terms = append(terms, c.Aliases...)
	return append(terms, c.Name)
}

// ActiveOn reports whether the date falls inside both the biological and
// the narrative window of the character. Unset bounds are open.
func (c *Character) ActiveOn(d time.Time) bool {
	return Within(d, c.DOB, c.DOD) && Within(d, c.FirstAppearance, c.LastAppearance)
}

// BornOrDiedOn reports whether d is exactly the dob or dod.
func (c *Character) BornOrDiedOn(d time.Time) bool {
	return SameDay(c.DOB, d) || SameDay(c.DOD, d)
}

// SharesAlias reports whether the two alias sets intersect. Names are not
// considered.
func (c *Character) SharesAlias(other *Character) bool {
	for _, a := range c.Aliases {
		for _, b := range other.Aliases {
			if a == b {
				return true
			}
		}
	}
	return false
}

// Location is a place characters live or work at.
type Location struct {
	Name string `json:"name"`
}
