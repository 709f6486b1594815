package export

import (
	"bytes"
	"html"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
)

var markdown = goldmark.New()

// renderMessageBody renders a thread message for the export appendix. AI
// replies are Markdown; user messages are plain text and only get escaped.
func renderMessageBody(body string, ai bool) template.HTML {
	if !ai {
		escaped := html.EscapeString(body)
		escaped = strings.ReplaceAll(escaped, "\n", "<br>")
		return template.HTML("<span>" + escaped + "</span>")
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(body), &buf); err != nil {
		return template.HTML("<span>" + html.EscapeString(body) + "</span>")
	}
	return template.HTML(buf.String())
}
