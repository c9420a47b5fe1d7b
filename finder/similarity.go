package finder

import (
	"sort"

	"github.com/pmezard/go-difflib/difflib"
)

// Matcher scores candidate names against a fixed target name using the
// longest matching block ratio 2*M/T over the characters of both names.
// A Matcher is not safe for concurrent use.
type Matcher struct {
	sm *difflib.SequenceMatcher
}

// NewMatcher prepares a Matcher for target. The target side is indexed once
// and reused for every candidate.
func NewMatcher(target string) *Matcher {
	return &Matcher{sm: difflib.NewMatcher(nil, runes(target))}
}

// Score returns the similarity of candidate to the target in [0, 1].
func (m *Matcher) Score(candidate string) float64 {
	m.sm.SetSeq1(runes(candidate))
	return m.sm.Ratio()
}

// Match reports whether candidate scores at least cutoff, checking the cheap
// upper bounds before computing the full ratio.
func (m *Matcher) Match(candidate string, cutoff float64) (float64, bool) {
	m.sm.SetSeq1(runes(candidate))
	if m.sm.RealQuickRatio() < cutoff || m.sm.QuickRatio() < cutoff {
		return 0, false
	}
	score := m.sm.Ratio()
	return score, score >= cutoff
}

// Similarity is a one-shot Score.
func Similarity(a, b string) float64 {
	return NewMatcher(b).Score(a)
}

// Scored is a candidate together with its similarity score.
type Scored struct {
	Name  string
	Score float64
}

// CloseMatches returns the candidates scoring at least cutoff against word,
// best first. Equal scores keep the order of candidates. n <= 0 means no limit.
func CloseMatches(word string, candidates []string, n int, cutoff float64) []Scored {
	return NewMatcher(word).Rank(candidates, n, cutoff)
}

// Rank is CloseMatches against the Matcher's target.
func (m *Matcher) Rank(candidates []string, n int, cutoff float64) []Scored {
	var matches []Scored
	for _, c := range candidates {
		if score, ok := m.Match(c, cutoff); ok {
			matches = append(matches, Scored{Name: c, Score: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if n > 0 && len(matches) > n {
		matches = matches[:n]
	}
	return matches
}

func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
