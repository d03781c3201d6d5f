package state

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Match reports whether the state's name matches a glob pattern.
//
// Names are dot-separated segments. "*" matches exactly one segment and "**"
// matches any number of segments, so "users.*" matches "users.list" and
// "users.**" matches "users", "users.list" and "users.detail.edit".
func Match(s *State, pattern string) bool {
	if s == nil {
		return false
	}
	return MatchName(s.Name, pattern)
}

// MatchName is Match for a bare state name.
func MatchName(name, pattern string) bool {
	if !strings.ContainsAny(pattern, "*?[{") {
		return name == pattern
	}
	ok, err := doublestar.Match(toSlashes(pattern), toSlashes(name))
	return err == nil && ok
}

func toSlashes(s string) string {
	return strings.ReplaceAll(s, ".", "/")
}
