package segment

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Split breaks text into trimmed, non-empty fragments. It cuts at line
// breaks and at the whitespace after a sentence end when a transition cue
// follows: one of the cue words, "At " plus a capital, or further whitespace
// (a run of three or more).
func Split(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		for _, f := range splitSentences(line) {
			if f = strings.TrimSpace(f); f != "" {
				out = append(out, f)
			}
		}
	}
	return out
}

func splitSentences(line string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		j := i + 1
		run := 0
		for j < len(line) {
			r, size := utf8.DecodeRuneInString(line[j:])
			if !unicode.IsSpace(r) {
				break
			}
			j += size
			run++
		}
		if run == 0 {
			continue
		}
		if run >= 3 || hasCue(line[j:]) {
			parts = append(parts, line[start:i+1])
			start = j
		}
		i = j - 1
	}
	return append(parts, line[start:])
}

func hasCue(rest string) bool {
	for _, cue := range transitionCues {
		if strings.HasPrefix(rest, cue) {
			return true
		}
	}
	if !strings.HasPrefix(rest, "At") {
		return false
	}
	r, size := utf8.DecodeRuneInString(rest[2:])
	if size == 0 || !unicode.IsSpace(r) {
		return false
	}
	next := rest[2+size:]
	return next != "" && next[0] >= 'A' && next[0] <= 'Z'
}
