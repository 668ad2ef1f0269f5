package filename

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxKeyBytes bounds the sanitized key length in bytes. Long keys are cut on
// a rune boundary so a multi-byte character is never split.
const MaxKeyBytes = 100

// EmptyKeyToken is the bucket name for keys that sanitize to nothing.
const EmptyKeyToken = "__empty__"

// unsafeRuns matches runs of whitespace and characters that are unsafe in
// file names on at least one supported platform.
var unsafeRuns = regexp.MustCompile(`[\s*\\/:?"<>|]+`)

// Sanitize renders a raw key value safe for use as a filename component:
// surrounding whitespace is dropped, unsafe runs collapse to a single
// underscore, edge underscores are trimmed, and the result is bounded to
// MaxKeyBytes. A value with nothing left after cleaning maps to
// EmptyKeyToken, never to an empty string.
func Sanitize(raw string) string {
	s := strings.TrimSpace(raw)
	s = unsafeRuns.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return EmptyKeyToken
	}
	return truncateRunes(s, MaxKeyBytes)
}

// truncateRunes cuts s to at most max bytes without splitting a rune.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
