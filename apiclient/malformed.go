package apiclient

import (
	"bytes"
	"mime"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

const snippetLength = 200

var stripMarkup = bluemonday.StrictPolicy()

// looksLikeHTMLDocument reports whether body is an HTML page (a proxy or
// framework fallback page) rather than an API payload.
func looksLikeHTMLDocument(contentType string, body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] == '{' || trimmed[0] == '[' {
		return false
	}

	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil && mediaType == "text/html" {
		return true
	}

	z := html.NewTokenizer(bytes.NewReader(trimmed))
	for {
		switch z.Next() {
		case html.CommentToken:
			continue
		case html.TextToken:
			if len(bytes.TrimSpace(z.Text())) == 0 {
				continue
			}
			return false
		case html.DoctypeToken:
			return strings.HasPrefix(strings.ToLower(z.Token().Data), "html")
		case html.StartTagToken:
			name, _ := z.TagName()
			return string(name) == "html"
		default:
			return false
		}
	}
}

// htmlSnippet returns the visible text at the start of an HTML body
func htmlSnippet(body []byte) string {
	text := stripMarkup.SanitizeBytes(body)
	collapsed := strings.Join(strings.Fields(string(text)), " ")
	if len(collapsed) <= snippetLength {
		return collapsed
	}
	cut := snippetLength
	for cut > 0 && !utf8.RuneStart(collapsed[cut]) {
		cut--
	}
	return collapsed[:cut]
}
