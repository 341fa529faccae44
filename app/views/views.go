// Package views holds the embedded HTML templates and the helpers they use.
package views

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"taskboard/app/models"
)

//go:embed templates/*.html
var templatesFS embed.FS

var (
	md        = goldmark.New(goldmark.WithExtensions(extension.GFM))
	sanitizer = bluemonday.UGCPolicy()

	templates = template.Must(template.New("").Funcs(funcs()).ParseFS(templatesFS, "templates/*.html"))
)

// Render executes the named template into w.
func Render(w io.Writer, name string, data any) error {
	return templates.ExecuteTemplate(w, name, data)
}

func funcs() template.FuncMap {
	return template.FuncMap{
		"markdown":   markdown,
		"formatTime": formatTime,
		"formatDate": formatDate,
		"dict":       dict,
	}
}

// markdown renders user text as sanitized HTML.
func markdown(s string) template.HTML {
	if s == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := md.Convert([]byte(s), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(s))
	}
	return template.HTML(sanitizer.SanitizeBytes(buf.Bytes()))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("Jan 2, 2006 15:04")
}

// formatDate renders a YYYY-MM-DD deadline as e.g. "Mon Jun 3 2024".
func formatDate(s string) string {
	d, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return s
	}
	return d.Format("Mon Jan 2 2006")
}

// dict builds a map from key/value pairs for passing several values to a
// nested template.
func dict(values ...any) map[string]any {
	if len(values)%2 != 0 {
		return nil
	}
	out := make(map[string]any, len(values)/2)
	for i := 0; i < len(values); i += 2 {
		key, ok := values[i].(string)
		if !ok {
			continue
		}
		out[key] = values[i+1]
	}
	return out
}
