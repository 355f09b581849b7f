// Package segment splits an episode's free text into ordered scenes.
package segment

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agenthands/ambridge/internal/core/model"
	"github.com/agenthands/ambridge/internal/logger"
)

// ErrNoText is returned for a record with neither blurb nor synopsis.
var ErrNoText = errors.New("episode has no usable text")

// shortFragment is the length, in characters, under which a fragment with an
// ellipsis run is treated as a trailer and ends the scan.
const shortFragment = 100

var (
	ellipsisPattern    = regexp.MustCompile(`\.{3,}|…{2,}|…\.|\.…`)
	boilerplatePattern = regexp.MustCompile(`^\s*(?:` +
		`Rural drama(?: series)?(?: set in Ambridge)?|` +
		`Contemporary drama in a rural setting|` +
		`The week's events in Ambridge|` +
		`)\.?\s*$`)

	transitionCues = []string{"Meanwhile", "Back at", "Elsewhere"}

	creditMarkers = []string{
		"Written by", "Writer", "WRITER", "Episode written by",
		"Directed by", "Director", "DIRECTOR",
		"Edited by", "Editor", "EDITED BY",
		"Repeated on",
		"If you are feeling",
		"If you have been affected",
	}
)

type Segmenter struct {
	log *logger.Logger
}

func NewSegmenter(log *logger.Logger) *Segmenter {
	return &Segmenter{log: logger.OrNop(log)}
}

// Segment returns the scene texts of one record. The result may be empty when
// every fragment is boilerplate.
func (s *Segmenter) Segment(rec model.RawEpisode) ([]string, error) {
	text := rec.Blurb
	if strings.TrimSpace(text) == "" {
		text = rec.Synopsis
	}
	fragments := Split(text)
	if len(fragments) == 0 {
		return nil, ErrNoText
	}

	var scenes []string
	for _, f := range fragments {
		if isTrailer(f) {
			break
		}
		if len(scenes) > 0 && startsLower(f) {
			scenes[len(scenes)-1] += " " + f
			continue
		}
		scenes = append(scenes, f)
	}

	if len(scenes) == 0 {
		scenes = []string{strings.TrimSpace(rec.Synopsis)}
	}

	out := scenes[:0]
	for _, sc := range scenes {
		if !IsBoilerplate(sc) {
			out = append(out, sc)
		}
	}
	return out, nil
}

// SegmentBatch segments every record, dropping those without usable text.
func (s *Segmenter) SegmentBatch(recs []model.RawEpisode) ([]model.SegmentedEpisode, int) {
	out := make([]model.SegmentedEpisode, 0, len(recs))
	skipped := 0
	for _, rec := range recs {
		scenes, err := s.Segment(rec)
		if err != nil {
			s.log.Warn("skipping episode", "pid", rec.PID, "error", err)
			skipped++
			continue
		}
		out = append(out, model.SegmentedEpisode{RawEpisode: rec, Scenes: scenes})
	}
	return out, skipped
}

// IsBoilerplate reports whether the whole text is a programme description.
func IsBoilerplate(text string) bool {
	return boilerplatePattern.MatchString(strings.TrimSpace(text))
}

func isTrailer(f string) bool {
	if utf8.RuneCountInString(f) < shortFragment && ellipsisPattern.MatchString(f) {
		return true
	}
	for _, m := range creditMarkers {
		if strings.HasPrefix(f, m) {
			return true
		}
	}
	return false
}

func startsLower(f string) bool {
	r, _ := utf8.DecodeRuneInString(f)
	return unicode.IsLower(r)
}
