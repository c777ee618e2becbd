// Package imagegen implements the multi-provider image generation engine.
//
// atoms.go contains pure utility functions with no dependencies.
package imagegen

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// IsDataURL checks whether the given reference is an inline data URL
// (e.g. "data:image/png;base64,...") rather than an externally hosted image.
// Inline references bypass the reachability check entirely.
func IsDataURL(ref string) bool {
	return strings.HasPrefix(ref, "data:")
}

// truncateText truncates text to a maximum length with ellipsis.
func truncateText(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return truncateBytes(text, maxLen)
	}
	return truncateBytes(text, maxLen-3) + "..."
}

// truncateBytes cuts s to at most maxLen bytes without splitting a rune.
func truncateBytes(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// collapseWhitespace replaces runs of whitespace with a single space and
// trims leading/trailing whitespace.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// stripForURL removes characters outside letters, digits, spaces and basic
// punctuation. Public text-to-image endpoints choke on exotic characters
// even after percent-encoding, so the prompt is reduced before encoding.
func stripForURL(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == ' ':
			b.WriteRune(r)
		case r == ',' || r == '.' || r == '-' || r == '\'':
			b.WriteRune(r)
		}
	}
	return collapseWhitespace(b.String())
}

// shortenAtWord truncates s to at most maxLen characters, cutting at the
// last word boundary when one exists within the limit.
func shortenAtWord(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := s[:maxLen]
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut)
}

// containsFold reports whether substr occurs in s, case-insensitively.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
