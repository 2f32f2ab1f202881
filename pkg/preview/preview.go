// Package preview renders markdown fields and file bodies to HTML.
package preview

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	ghtml "github.com/yuin/goldmark/renderer/html"

	"github.com/strategycontent/contentdesk/pkg/form"
	"github.com/strategycontent/contentdesk/pkg/models"
)

// Section is one rendered piece of a file.
type Section struct {
	Path  string
	Label string
	HTML  string
}

type Renderer struct {
	md goldmark.Markdown
}

// New returns a renderer with tables enabled. Raw HTML is passed through
// since markdown fields commonly hold HTML.
func New() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.Table),
			goldmark.WithRendererOptions(ghtml.WithUnsafe()),
		),
	}
}

func (r *Renderer) Markdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return buf.String(), nil
}

// Fields renders every markdown control of f in form order.
func (r *Renderer) Fields(f *form.Form) ([]Section, error) {
	var out []Section
	for _, row := range f.Rows() {
		if row.Control == nil || row.Control.Schema().Widget != models.WidgetMarkdown {
			continue
		}
		h, err := r.Markdown(row.Control.Text())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", row.Path, err)
		}
		out = append(out, Section{Path: row.Path, Label: row.Label, HTML: h})
	}
	return out, nil
}

// Page renders a standalone HTML document: the markdown fields followed
// by the body.
func (r *Renderer) Page(title string, sections []Section, body string) (string, error) {
	bodyHTML, err := r.Markdown(body)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n</head>\n<body>\n", html.EscapeString(title))
	for _, s := range sections {
		fmt.Fprintf(&b, "<section data-field=%q>\n<h2>%s</h2>\n%s</section>\n", s.Path, html.EscapeString(s.Label), s.HTML)
	}
	if strings.TrimSpace(body) != "" {
		fmt.Fprintf(&b, "<article>\n%s</article>\n", bodyHTML)
	}
	b.WriteString("</body>\n</html>\n")
	return b.String(), nil
}
