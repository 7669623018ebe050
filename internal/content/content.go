// Package content provides content hashing and text cleanup helpers
// shared by the ingest and publish paths.
package content

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var (
	spacesRe   = regexp.MustCompile(` {2,}`)
	newlinesRe = regexp.MustCompile(`\n{3,}`)
	usernameRe = regexp.MustCompile(`@([a-zA-Z0-9_]{5,})`)
	tmeLinkRe  = regexp.MustCompile(`(?:t\.me|telegram\.me)/([a-zA-Z0-9_]{5,})`)
)

// Hash computes a deterministic SHA-256 hex digest over the UTF-8 bytes
// of text plus an optional media locator. It is used for the stored
// content hash and as a fallback external ID when a source item carries
// no native identifier.
func Hash(text, mediaLocator string) string {
	sum := sha256.Sum256([]byte(text + mediaLocator))
	return fmt.Sprintf("%x", sum)
}

// Clean strips non-printable characters, preserving newlines and tabs,
// and trims surrounding whitespace.
func Clean(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsPrint(r) || r == '\n' || r == '\r' || r == '\t' {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// Normalize cleans text and collapses excessive blank lines and spaces,
// leaving at most one empty line between paragraphs.
func Normalize(s string) string {
	s = Clean(s)
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = newlinesRe.ReplaceAllString(s, "\n\n")
	s = spacesRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Truncate shortens s to at most max runes, appending "..." when
// anything was cut.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

// ExtractChannelUsername pulls a channel username out of free-form text,
// accepting both @name and t.me/name forms.
func ExtractChannelUsername(s string) string {
	if m := usernameRe.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	if m := tmeLinkRe.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}
