// Package util provides common utility functions and constants used across
// the lpf application. It imports no other internal/* package.
package util

import (
	"regexp"
	"strings"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SanitizeFileName replaces every character outside [A-Za-z0-9._-] with an
// underscore, making an arbitrary tunnel id (which contains "@" and ":")
// safe to use as a filename.
//
// Examples:
//
//	SanitizeFileName("user@host:9000") → "user_host_9000"
//	SanitizeFileName("db.internal:5432") → "db.internal_5432"
func SanitizeFileName(name string) string {
	return unsafeFileChars.ReplaceAllString(name, "_")
}

// DefaultString returns the fallback value if v is empty or consists entirely
// of whitespace; otherwise it returns v unchanged.
func DefaultString(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

// EmptyDash returns "-" if s is empty or consists entirely of whitespace;
// otherwise it returns s unchanged. Used by the CLI and TUI to display a
// visible placeholder for optional fields in table output.
func EmptyDash(s string) string {
	return DefaultString(s, "-")
}
