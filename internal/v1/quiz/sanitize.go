package quiz

import (
	"regexp"
	"strings"
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// Externally sourced question text arrives wrapped in presentation markup.
// We only need the handful of entities the provider actually emits.
var entityReplacer = strings.NewReplacer(
	"&nbsp;", " ",
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&apos;", "'",
	"&ndash;", "-",
	"&mdash;", "-",
	"&hellip;", "...",
)

// Sanitize strips HTML tags, decodes the common named entities, and
// collapses surrounding whitespace.
func Sanitize(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	s = entityReplacer.Replace(s)
	return strings.TrimSpace(s)
}
