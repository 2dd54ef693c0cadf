package wahapedia

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var blankRuns = regexp.MustCompile(`\n{3,}`)

// ScrubHTML turns a Wahapedia description fragment into plain text.
// Line breaks become newlines, list items become "- " lines, every other tag
// is dropped and entities are decoded. Plain text passes through unchanged.
func ScrubHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(blankRuns.ReplaceAllString(s, "\n\n"))
	}
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF or a malformed tail; either way keep what was read.
			return strings.TrimSpace(blankRuns.ReplaceAllString(b.String(), "\n\n"))
		case html.TextToken:
			b.WriteString(strings.ReplaceAll(string(z.Text()), "\u00a0", " "))
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "br":
				b.WriteByte('\n')
			case "li":
				b.WriteString("- ")
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if string(name) == "li" {
				b.WriteByte('\n')
			}
		}
	}
}
