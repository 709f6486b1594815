package export

import (
	"fmt"
	"html"
	"strings"

	"inkwell/api/internal/doc"
)

// RenderHTML converts a document tree to HTML.
func RenderHTML(d *doc.Document) string {
	if d == nil {
		return ""
	}
	return renderNode(d.Root())
}

func renderNode(n *doc.Node) string {
	if n == nil {
		return ""
	}
	switch n.Type {
	case "doc":
		return renderContent(n.Content)
	case "paragraph":
		return fmt.Sprintf("<p>%s</p>\n", renderContent(n.Content))
	case "heading":
		level := 1
		if lvl, ok := n.Attrs["level"].(float64); ok {
			level = int(lvl)
		}
		return fmt.Sprintf("<h%d>%s</h%d>\n", level, renderContent(n.Content), level)
	case "bulletList":
		return fmt.Sprintf("<ul>\n%s</ul>\n", renderContent(n.Content))
	case "orderedList":
		return fmt.Sprintf("<ol>\n%s</ol>\n", renderContent(n.Content))
	case "listItem":
		return fmt.Sprintf("<li>%s</li>\n", renderContent(n.Content))
	case "blockquote":
		return fmt.Sprintf("<blockquote>\n%s</blockquote>\n", renderContent(n.Content))
	case "codeBlock":
		return fmt.Sprintf("<pre><code>%s</code></pre>\n", html.EscapeString(plainContent(n)))
	case "text":
		return renderTextWithMarks(n.Text, n.Marks)
	case "hardBreak":
		return "<br>"
	case "horizontalRule":
		return "<hr>\n"
	case "image":
		src, _ := n.Attrs["src"].(string)
		alt, _ := n.Attrs["alt"].(string)
		return fmt.Sprintf(`<img src="%s" alt="%s">`, html.EscapeString(src), html.EscapeString(alt))
	default:
		// Unknown node type: render its children.
		return renderContent(n.Content)
	}
}

func renderContent(content []*doc.Node) string {
	var result strings.Builder
	for _, child := range content {
		result.WriteString(renderNode(child))
	}
	return result.String()
}

func plainContent(n *doc.Node) string {
	var result strings.Builder
	for _, child := range n.Content {
		if child.Type == "text" {
			result.WriteString(child.Text)
		}
	}
	return result.String()
}

func renderTextWithMarks(text string, marks []doc.Mark) string {
	if text == "" {
		return ""
	}

	htmlText := html.EscapeString(text)

	// Apply marks from outside in. Comment marks are editor-internal and do
	// not appear in exports.
	for i := len(marks) - 1; i >= 0; i-- {
		switch marks[i].Type {
		case "bold":
			htmlText = fmt.Sprintf("<strong>%s</strong>", htmlText)
		case "italic":
			htmlText = fmt.Sprintf("<em>%s</em>", htmlText)
		case "code":
			htmlText = fmt.Sprintf("<code>%s</code>", htmlText)
		case "link":
			href, _ := marks[i].Attrs["href"].(string)
			htmlText = fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(href), htmlText)
		case "strike":
			htmlText = fmt.Sprintf("<s>%s</s>", htmlText)
		case "underline":
			htmlText = fmt.Sprintf("<u>%s</u>", htmlText)
		}
	}

	return htmlText
}
