package model

import "time"

// EpisodeView is the read model of one episode.
type EpisodeView struct {
	PID      string      `json:"pid"`
	Date     string      `json:"date"`
	Synopsis string      `json:"synopsis"`
	Scenes   []SceneView `json:"scenes"`
}

// SceneView is a scene with the characters linked to it.
type SceneView struct {
	SceneID    string   `json:"sceneId"`
	EpisodePID string   `json:"pid,omitempty"`
	Date       string   `json:"date,omitempty"`
	Text       string   `json:"text"`
	Characters []string `json:"characters"`
}

// CharacterProfile is a character with the base-dataset edges touching it.
type CharacterProfile struct {
	Character
	Relations  []Relation  `json:"relations"`
	Residences []Residence `json:"residences"`
}

// FamilyMember is one person of a family tree. The name lists only hold
// members of the same tree.
type FamilyMember struct {
	Name     string     `json:"name"`
	DOB      *time.Time `json:"dob,omitempty"`
	DOD      *time.Time `json:"dod,omitempty"`
	Parents  []string   `json:"parents"`
	Partners []string   `json:"partners"`
	Children []string   `json:"children"`
}
