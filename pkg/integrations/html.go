package integrations

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var spaceRe = regexp.MustCompile(`\s+`)

// StripHTML flattens rich-text markup to plain text, unescaping entities and
// collapsing whitespace.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
	}

	tok := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	for {
		switch tok.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(spaceRe.ReplaceAllString(b.String(), " "))
		case html.TextToken:
			b.Write(tok.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			// Block-ish tags become word boundaries so "a</p><p>b" does
			// not collapse into "ab".
			b.WriteByte(' ')
		}
	}
}

// TruncateRunes cuts s to at most n runes. Ellipsis semantics are owned by
// the consumer, so none is appended.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
