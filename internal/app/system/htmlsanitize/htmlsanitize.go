// Package htmlsanitize strips markup from user-supplied text before it is
// stored. Task, event and message bodies are plain text on the wire.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict removes every tag and attribute. bluemonday policies are safe for
// concurrent use once built.
var strict = bluemonday.StrictPolicy()

// maxPasses bounds PlainText for input that is entity-encoded many times over.
const maxPasses = 8

// PlainText removes all HTML from s, leaving the text content. bluemonday
// escapes the text it keeps, so its output is unescaped to let "Tom & Jerry"
// round-trip. Unescaping can surface markup that arrived entity-encoded, so
// the pair is repeated until the text stops changing. Input that never
// settles is returned in its escaped form.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	for i := 0; i < maxPasses; i++ {
		out := html.UnescapeString(strict.Sanitize(s))
		if out == s {
			return strings.TrimSpace(out)
		}
		s = out
	}
	return strings.TrimSpace(strict.Sanitize(s))
}
