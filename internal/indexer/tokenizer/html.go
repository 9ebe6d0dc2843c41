package tokenizer

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

var skippedElements = map[string]struct{}{
	"script": {}, "style": {}, "noscript": {}, "template": {},
}

// ExtractText returns the visible text of an HTML document, one space
// between text nodes. Plain text passes through unchanged.
func ExtractText(r io.Reader) (string, error) {
	z := html.NewTokenizer(r)
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return "", err
			}
			return strings.TrimSpace(b.String()), nil
		case html.StartTagToken:
			name, _ := z.TagName()
			if _, ok := skippedElements[string(name)]; ok {
				skip++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if _, ok := skippedElements[string(name)]; ok && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip > 0 {
				continue
			}
			text := strings.TrimSpace(string(z.Text()))
			if text == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(text)
		}
	}
}
