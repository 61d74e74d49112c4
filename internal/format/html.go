package format

import (
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// MarkdownifyHTML converts HTML-looking text to markdown so tool responses
// carrying raw pages stay readable in a preview. Non-HTML text and conversion
// failures pass through unchanged.
func MarkdownifyHTML(s string) string {
	if !looksLikeHTML(s) {
		return s
	}
	md, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		return s
	}
	return strings.TrimSpace(md)
}

func looksLikeHTML(s string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(trimmed, "<!doctype html") ||
		strings.HasPrefix(trimmed, "<html") ||
		strings.HasPrefix(trimmed, "<body")
}
