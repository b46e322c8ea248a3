// Package strings converts identifiers between the Go, JSON and SQL naming
// conventions.
package strings

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ToSnakeCase converts CamelCase to snake_case
// Handles acronyms properly (OwnerID -> owner_id, HTTPRequest -> http_request)
func ToSnakeCase(s string) string {
	var result strings.Builder
	runes := []rune(s)

	for i, r := range runes {
		if !unicode.IsUpper(r) {
			result.WriteRune(r)
			continue
		}
		if i > 0 {
			prev := runes[i-1]
			if unicode.IsLower(prev) || unicode.IsDigit(prev) {
				result.WriteRune('_')
			} else if i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
				result.WriteRune('_')
			}
		}
		result.WriteRune(unicode.ToLower(r))
	}
	return result.String()
}

// ToPascalCase converts a camelCase, snake_case or kebab-case identifier to
// the PascalCase used by exported Go fields (ownerName -> OwnerName,
// owner_name -> OwnerName).
func ToPascalCase(s string) string {
	if s == "" {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	upper := true
	for _, r := range s {
		if r == '_' || r == '-' {
			upper = true
			continue
		}
		if upper {
			b.WriteRune(unicode.ToUpper(r))
			upper = false
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ToCamelCase converts a Go field name to the camelCase used in request
// payloads (OwnerName -> ownerName)
func ToCamelCase(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
