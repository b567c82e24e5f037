package calendar

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/kyleyee20/aevum/core"
)

// Matcher decides whether an external entry title duplicates an assignment title.
// The same-day constraint is enforced by the Reconciler, not by matchers.
type Matcher interface {
	Match(assignmentTitle, entryTitle string) bool
}

// MatcherFunc adapts a plain function into a Matcher.
type MatcherFunc func(assignmentTitle, entryTitle string) bool

func (f MatcherFunc) Match(a, e string) bool { return f(a, e) }

// FuzzyMatcher matches when either normalized title contains the other (with or without
// spacing) or when both share a word of two characters or more.
type FuzzyMatcher struct{}

func (FuzzyMatcher) Match(a, e string) bool {
	if core.ContainsEither(core.NormalizeTitle(a), core.NormalizeTitle(e)) {
		return true
	}
	if core.ContainsEither(core.CompactTitle(a), core.CompactTitle(e)) {
		return true
	}
	words := make(map[string]struct{})
	for _, tok := range core.Tokens(a) {
		words[tok] = struct{}{}
	}
	for _, tok := range core.Tokens(e) {
		if _, ok := words[tok]; ok {
			return true
		}
	}
	return false
}

// SimilarityMatcher matches when the similarity ratio of the normalized titles reaches Threshold
// (0 to 1). It is stricter than FuzzyMatcher on titles that share only a common word.
type SimilarityMatcher struct {
	Threshold float64
}

func (m SimilarityMatcher) Match(a, e string) bool {
	na, ne := core.NormalizeTitle(a), core.NormalizeTitle(e)
	if na == "" || ne == "" {
		return false
	}
	sm := difflib.NewMatcher(strings.Split(na, ""), strings.Split(ne, ""))
	return sm.Ratio() >= m.Threshold
}

// AnyMatcher matches when at least one of its matchers does.
type AnyMatcher []Matcher

func (ms AnyMatcher) Match(a, e string) bool {
	for _, m := range ms {
		if m.Match(a, e) {
			return true
		}
	}
	return false
}
