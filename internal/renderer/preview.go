package renderer

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/gravyprompts/gravyprompts/internal/models"
)

// DefaultPreviewLength is the preview size in runes
const DefaultPreviewLength = 200

const ellipsis = "..."

// Preview returns the first n runes of content, with "..." appended when
// anything was cut. HTML content is reduced to its text first.
func Preview(content, format string, n int) string {
	if n <= 0 {
		n = DefaultPreviewLength
	}
	if format == models.FormatHTML {
		content = HTMLToText(content)
	}

	runes := 0
	for i := range content {
		if runes == n {
			return content[:i] + ellipsis
		}
		runes++
	}
	return content
}

// HTMLToText strips markup, keeping text and turning block elements into
// line breaks. Script and style bodies are dropped.
func HTMLToText(src string) string {
	z := html.NewTokenizer(strings.NewReader(src))
	var b strings.Builder
	skip := 0

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF or malformed markup; either way keep what was collected.
			return collapse(b.String())
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.DataAtom {
			case atom.Script, atom.Style:
				if tt == html.StartTagToken {
					skip++
				}
			case atom.Br, atom.P, atom.Div, atom.Li, atom.H1, atom.H2, atom.H3, atom.H4, atom.Tr:
				b.WriteByte('\n')
			}
		case html.EndTagToken:
			tok := z.Token()
			switch tok.DataAtom {
			case atom.Script, atom.Style:
				if skip > 0 {
					skip--
				}
			case atom.P, atom.Div, atom.Li, atom.H1, atom.H2, atom.H3, atom.H4, atom.Tr:
				b.WriteByte('\n')
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

// collapse trims each line and drops blank runs
func collapse(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
