package export

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var documentTemplate *template.Template

func init() {
	funcMap := template.FuncMap{
		"lower": strings.ToLower,
		"formatDate": func(t time.Time, layout string) string {
			return t.Format(layout)
		},
	}

	templateContent, err := templateFS.ReadFile("templates/document.html")
	if err != nil {
		documentTemplate = template.Must(template.New("document").Funcs(funcMap).Parse(fallbackTemplate))
		return
	}
	documentTemplate = template.Must(template.New("document").Funcs(funcMap).Parse(string(templateContent)))
}

// TemplateData holds data for document template rendering.
type TemplateData struct {
	Title       string
	ContentHTML template.HTML
	Author      string
	UpdatedAt   time.Time
	Threads     []TemplateThread
}

// TemplateThread holds thread data for the export appendix.
type TemplateThread struct {
	AnchorText string
	Resolved   bool
	Messages   []TemplateMessage
}

// TemplateMessage holds one rendered thread message.
type TemplateMessage struct {
	Author   string
	BodyHTML template.HTML
}

// RenderDocumentHTML renders the document template with provided data.
func RenderDocumentHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// fallbackTemplate is used if the embedded template fails to load.
const fallbackTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
</head>
<body>
  <h1>{{.Title}}</h1>
  <div>{{.ContentHTML}}</div>
  {{if .Threads}}
  <h2>Comments</h2>
  {{range .Threads}}<div class="thread">{{.AnchorText}}</div>{{end}}
  {{end}}
</body>
</html>`
