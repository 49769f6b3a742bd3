package utils

import (
	"strings"
	"unicode"
)

// MakeSlug builds a URL-friendly slug from a channel name, falling back to
// the id when the name yields nothing usable.
func MakeSlug(name, id string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	s := strings.Trim(b.String(), "-")
	if s == "" {
		return id
	}
	return s + "-" + shortID(id)
}

// shortID returns the trailing segment of a generated id.
func shortID(id string) string {
	if i := strings.LastIndex(id, "-"); i >= 0 && i+1 < len(id) {
		return id[i+1:]
	}
	return id
}
