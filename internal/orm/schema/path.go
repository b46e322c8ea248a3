package schema

import (
	"strings"

	"golang.org/x/text/cases"

	utilstrings "github.com/pawbazaar/querykit/internal/util/strings"
)

// PathDelimiters are the characters that separate segments of a field path
const PathDelimiters = ".:"

// SplitPath splits a field path like "owner.homeCity" or "owner:homeCity"
// into PascalCase segments. Empty segments are dropped.
func SplitPath(path string) []string {
	raw := strings.FieldsFunc(path, func(r rune) bool {
		return strings.ContainsRune(PathDelimiters, r)
	})

	segments := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		segments = append(segments, utilstrings.ToPascalCase(s))
	}
	return segments
}

// foldName returns the case-folded form of a field name. A new Caser is
// created per call because Casers carry state and are not safe to share.
func foldName(s string) string {
	return cases.Fold().String(strings.ReplaceAll(s, "_", ""))
}
