package model

import "time"

// RawEpisode is the record delivered by the fetch collaborator and stored in
// the cache file.
type RawEpisode struct {
	PID      string `json:"pid"`
	Date     string `json:"date"`
	Blurb    string `json:"blurb,omitempty"`
	Synopsis string `json:"synopsis"`
}

// SegmentedEpisode is a raw record together with its scene texts.
type SegmentedEpisode struct {
	RawEpisode
	Scenes []string `json:"scenes"`
}

// EpisodeInput is the store-facing shape of one episode write.
type EpisodeInput struct {
	PID      string       `json:"pid"`
	Date     string       `json:"date"`
	Synopsis string       `json:"synopsis"`
	Scenes   []SceneInput `json:"scenes"`
}

type SceneInput struct {
	ID    string `json:"sid"`
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// EpisodeDigest summarises an episode for the cleanup detectors. SceneTexts
// are ordered by scene id as a string.
type EpisodeDigest struct {
	PID        string
	Date       time.Time
	Synopsis   string
	SceneTexts []string
}

// DateChange reassigns an episode's date.
type DateChange struct {
	PID  string
	From time.Time
	To   time.Time
}

// MergeCandidate pairs a scene nobody appears in with its predecessor.
type MergeCandidate struct {
	EmptyID    string `json:"empty_id"`
	EmptyText  string `json:"empty_text"`
	TargetID   string `json:"target_id"`
	TargetText string `json:"target_text"`
	EpisodePID string `json:"episode_pid"`
}
