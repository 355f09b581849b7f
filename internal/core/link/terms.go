package link

import (
	"regexp"
	"strings"

	"github.com/agenthands/ambridge/internal/core/model"
	"github.com/agenthands/ambridge/internal/logger"
)

// Word guards. RE2's \b only knows ASCII word characters, so names such as
// "Zoë" need explicit Unicode letter and digit classes on either side.
const (
	wordStart = `(?:^|[^\p{L}\p{N}_])`
	wordEnd   = `(?:$|[^\p{L}\p{N}_])`
)

func wordPattern(alternatives string) (*regexp.Regexp, error) {
	return regexp.Compile(wordStart + `(?:` + alternatives + `)` + wordEnd)
}

// matcher is the precompiled form of one character.
type matcher struct {
	char     *model.Character
	pattern  *regexp.Regexp
	keywords []*regexp.Regexp
	shared   bool
}

// Index classifies every name and alias as unique or shared and compiles
// one word-boundary pattern per character.
type Index struct {
	usage    map[string]int
	matchers []*matcher
}

func terms(c *model.Character) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range c.Terms() {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// NewIndex builds the index over the cast. Keywords are regular expression
// fragments; one that does not compile is skipped with a warning.
func NewIndex(cast []*model.Character, log *logger.Logger) *Index {
	log = logger.OrNop(log)
	idx := &Index{usage: make(map[string]int)}
	for _, c := range cast {
		for _, t := range terms(c) {
			idx.usage[t]++
		}
	}
	for _, c := range cast {
		ts := terms(c)
		if len(ts) == 0 {
			continue
		}
		quoted := make([]string, len(ts))
		m := &matcher{char: c}
		for i, t := range ts {
			quoted[i] = regexp.QuoteMeta(t)
			if idx.usage[t] > 1 {
				m.shared = true
			}
		}
		pattern, err := wordPattern(strings.Join(quoted, "|"))
		if err != nil {
			log.Warn("skipping character with unusable terms", "character", c.Name, "error", err)
			continue
		}
		m.pattern = pattern
		for _, kw := range c.Keywords {
			re, err := wordPattern(kw)
			if err != nil {
				log.Warn("skipping invalid keyword", "character", c.Name, "keyword", kw, "error", err)
				continue
			}
			m.keywords = append(m.keywords, re)
		}
		idx.matchers = append(idx.matchers, m)
	}
	return idx
}

// Shared reports whether more than one character uses the term.
func (idx *Index) Shared(term string) bool {
	return idx.usage[term] > 1
}

// unique returns the characters whose every term is unique.
func (idx *Index) unique() []*matcher {
	var out []*matcher
	for _, m := range idx.matchers {
		if !m.shared {
			out = append(out, m)
		}
	}
	return out
}

// ambiguous returns the characters holding at least one shared term.
func (idx *Index) ambiguous() []*matcher {
	var out []*matcher
	for _, m := range idx.matchers {
		if m.shared {
			out = append(out, m)
		}
	}
	return out
}

func (m *matcher) matches(text string) bool {
	return m.pattern.MatchString(text)
}

func (m *matcher) keywordScore(text string) int {
	score := 0
	for _, re := range m.keywords {
		if re.MatchString(text) {
			score += keywordWeight
		}
	}
	return score
}
