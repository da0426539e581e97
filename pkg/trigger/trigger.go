// Package trigger evaluates ordered free-text rules against user input.
//
// Patterns are regular expressions with search semantics: they match
// anywhere in the trimmed input rather than anchoring to the whole
// string. Rule order is part of a flow document's meaning, so the
// matcher is strictly first-match-wins.
package trigger

import (
	"regexp"
	"strings"
	"sync"

	"github.com/branchwork/bramble/pkg/domain"
)

// Matcher compiles and evaluates trigger patterns. Compiled patterns
// are cached, so a session can re-evaluate the same rules on every
// message without recompiling. Safe for concurrent use.
type Matcher struct {
	mu    sync.Mutex
	cache map[string]*regexp.Regexp
	bad   map[string]string // pattern -> compile error, reported once
}

// NewMatcher creates an empty matcher.
func NewMatcher() *Matcher {
	return &Matcher{
		cache: make(map[string]*regexp.Regexp),
		bad:   make(map[string]string),
	}
}

// Match evaluates triggers in declared order against the trimmed input
// and returns the destination of the first matching pattern. The bool
// reports whether anything matched. Malformed patterns are treated as
// non-matches; each is reported through the returned diagnostics the
// first time it is seen.
func (m *Matcher) Match(text string, triggers []domain.Trigger) (string, bool, []domain.Diagnostic) {
	var diags []domain.Diagnostic

	for _, t := range triggers {
		re, diag := m.compile(t.Pattern)
		if diag != nil {
			diags = append(diags, *diag)
			continue
		}
		if re == nil {
			continue // known-bad pattern, already reported
		}
		if re.MatchString(strings.TrimSpace(text)) {
			return t.Destination, true, diags
		}
	}
	return "", false, diags
}

// MatchValue reports whether a single pattern matches the trimmed
// input. Used for branch-local transition keys, which double as
// patterns for free text.
func (m *Matcher) MatchValue(text, pattern string) (bool, *domain.Diagnostic) {
	re, diag := m.compile(pattern)
	if diag != nil || re == nil {
		return false, diag
	}
	return re.MatchString(strings.TrimSpace(text)), nil
}

func (m *Matcher) compile(pattern string) (*regexp.Regexp, *domain.Diagnostic) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if re, ok := m.cache[pattern]; ok {
		return re, nil
	}
	if _, ok := m.bad[pattern]; ok {
		return nil, nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		m.bad[pattern] = err.Error()
		return nil, &domain.Diagnostic{
			Code:    domain.DiagBadPattern,
			Subject: pattern,
			Detail:  err.Error(),
		}
	}
	m.cache[pattern] = re
	return re, nil
}
