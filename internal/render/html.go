// Package render turns references into the HTML served by the proxy:
// bibliography fragments and publication pages.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/matsen/bibproxy/internal/bibtex"
	"github.com/matsen/bibproxy/internal/citation"
	"github.com/matsen/bibproxy/internal/reference"
	"github.com/yuin/goldmark"
)

// compiledTemplates are parsed at init time to fail fast on template errors.
var compiledTemplates *template.Template

func init() {
	compiledTemplates = template.Must(template.New("render").Funcs(template.FuncMap{
		"authors": FormatAuthors,
		"pubURL":  citation.PublicationURL,
	}).Parse(templates))
}

// entryData is one reference as the templates see it.
type entryData struct {
	Ref    reference.Reference
	Note   template.HTML
	BibTeX string
}

// Fragment renders the bibliography list for the proxy endpoint. The result
// is an HTML fragment meant to be placed inside an existing element.
func Fragment(refs []reference.Reference) (string, error) {
	return execute("fragment", refs)
}

// Page renders the publication page of a single reference.
func Page(ref reference.Reference) (string, error) {
	note, err := Markdown(ref.Note)
	if err != nil {
		return "", fmt.Errorf("rendering note for %s: %w", ref.Key, err)
	}
	return execute("page", entryData{
		Ref:    ref,
		Note:   note,
		BibTeX: bibtex.ToBibTeX(ref),
	})
}

// Index renders the publication index page.
func Index(refs []reference.Reference) (string, error) {
	return execute("index", refs)
}

// NotFound renders the page shown for an unknown publication key.
func NotFound(key string) (string, error) {
	return execute("notfound", key)
}

// Markdown converts a Markdown note to HTML. Raw HTML in the note is
// omitted by goldmark's default renderer.
func Markdown(md string) (template.HTML, error) {
	if strings.TrimSpace(md) == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// FormatAuthors joins author names for display: "A", "A and B", "A, B and C".
func FormatAuthors(authors []reference.Author) string {
	names := make([]string, len(authors))
	for i, a := range authors {
		names[i] = a.String()
	}
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	default:
		return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
	}
}

func execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := compiledTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("executing %s template: %w", name, err)
	}
	return buf.String(), nil
}

const templates = `
{{- define "entry" -}}
<li class="bib-entry" id="{{.Slug}}">
  <span class="bib-authors">{{authors .Authors}}</span>.
  <a class="bib-title" href="{{pubURL .Key}}">{{.Title}}</a>.
  {{- with .Venue}} <span class="bib-venue">{{.}}</span>{{end}}
  {{- if .Year}}, {{.Year}}{{end}}.
  {{- with .DOI}} <a class="bib-doi" href="https://doi.org/{{.}}">doi</a>{{end}}
</li>
{{- end -}}

{{- define "fragment" -}}
{{- if . -}}
<ul class="bibliography">
{{range .}}{{template "entry" .}}
{{end -}}
</ul>
{{- else -}}
<p class="bib-empty">No publications.</p>
{{- end -}}
{{- end -}}

{{- define "head" -}}
<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.}}</title>
</head>
<body>
{{- end -}}

{{- define "page" -}}
{{template "head" .Ref.Title}}
<article class="publication">
  <h1>{{.Ref.Title}}</h1>
  <p class="bib-authors">{{authors .Ref.Authors}}</p>
  {{- if or .Ref.Venue .Ref.Year}}
  <p class="bib-venue">{{.Ref.Venue}}{{if and .Ref.Venue .Ref.Year}}, {{end}}{{with .Ref.Month}}{{.}} {{end}}{{if .Ref.Year}}{{.Ref.Year}}{{end}}</p>
  {{- end}}
  {{- with .Ref.DOI}}
  <p class="bib-doi"><a href="https://doi.org/{{.}}">doi:{{.}}</a></p>
  {{- end}}
  {{- with .Ref.URL}}
  <p class="bib-url"><a href="{{.}}">{{.}}</a></p>
  {{- end}}
  {{- with .Ref.Abstract}}
  <section class="bib-abstract"><h2>Abstract</h2><p>{{.}}</p></section>
  {{- end}}
  {{- with .Note}}
  <section class="bib-note">{{.}}</section>
  {{- end}}
  <pre class="bibtex">{{.BibTeX}}</pre>
</article>
</body>
</html>
{{end -}}

{{- define "index" -}}
{{template "head" "Publications"}}
<h1>Publications</h1>
<p class="bib-export"><a href="publications.bib">BibTeX</a></p>
{{template "fragment" .}}
</body>
</html>
{{end -}}

{{- define "notfound" -}}
{{template "head" "Publication not found"}}
<h1>Publication not found</h1>
<p>No publication with key <code>{{.}}</code>.</p>
</body>
</html>
{{end -}}
`
