// Package htmlsanitize cleans text that came from outside the console
// before it is shown to a user.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict removes every element. The contents of script and style are
// dropped along with the tags.
var strict = bluemonday.StrictPolicy()

// IsPlainText reports whether s contains no markup.
func IsPlainText(s string) bool {
	return !strings.ContainsAny(s, "<>")
}

// PlainText strips all markup from s and returns the remaining text,
// unescaped, so html/template can escape it exactly once.
func PlainText(s string) string {
	if IsPlainText(s) {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}
