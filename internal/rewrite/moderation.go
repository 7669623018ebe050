package rewrite

import "strings"

const minContentLength = 10

// Moderate checks whether content may enter the rewrite pipeline. The
// only rule in place is a minimum-length check; rejected content is
// terminal for its message and produces no posts.
func Moderate(text string) (bool, string) {
	if len(strings.TrimSpace(text)) < minContentLength {
		return false, "content too short"
	}
	return true, ""
}
