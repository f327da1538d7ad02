package treesync

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher decides which directory entries a recursive transfer skips.
// A pattern matches when it matches either the entry's base name or its
// slash-separated path relative to the transfer root.
type Matcher struct {
	patterns []string
}

// NewMatcher validates patterns and returns a Matcher for them.
func NewMatcher(patterns []string) (*Matcher, error) {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern %q", p)
		}
	}
	return &Matcher{patterns: append([]string(nil), patterns...)}, nil
}

// Excluded reports whether the entry called name at rel is skipped.
func (m *Matcher) Excluded(name, rel string) bool {
	if m == nil {
		return false
	}
	for _, p := range m.patterns {
		if doublestar.MatchUnvalidated(p, name) || doublestar.MatchUnvalidated(p, rel) {
			return true
		}
	}
	return false
}
