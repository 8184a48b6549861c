package visuals

import (
	"fmt"
	"html/template"
	"io"
	"os"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
)

// Section is one block of the standalone viewer. Mermaid may be fenced or
// bare; Text is shown preformatted.
type Section struct {
	Heading string
	Mermaid string
	Text    string
}

// Page is a standalone HTML document rendering one or more diagrams.
type Page struct {
	Title    string
	Sections []Section
}

const viewerSource = `
import mermaid from "https://cdn.jsdelivr.net/npm/mermaid@11/dist/mermaid.esm.min.mjs";

const darkMode = window.matchMedia("(prefers-color-scheme: dark)").matches;
mermaid.initialize({
  startOnLoad: false,
  theme: darkMode ? "dark" : "default",
  securityLevel: "strict",
});

mermaid.run({ querySelector: ".mermaid" }).then(() => {
  for (const button of document.querySelectorAll("[data-toggle]")) {
    button.addEventListener("click", () => {
      const target = document.getElementById(button.dataset.toggle);
      target.hidden = !target.hidden;
      button.textContent = target.hidden ? "show" : "hide";
    });
  }
});
`

var viewerScript = sync.OnceValues(func() (template.JS, error) {
	result := api.Transform(viewerSource, api.TransformOptions{
		Loader:            api.LoaderJS,
		Format:            api.FormatESModule,
		Target:            api.ES2020,
		MinifyWhitespace:  true,
		MinifyIdentifiers: true,
		MinifySyntax:      true,
	})
	if len(result.Errors) > 0 {
		return "", fmt.Errorf("failed to minify viewer script: %s", result.Errors[0].Text)
	}
	return template.JS(result.Code), nil
})

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem; }
section { border: 1px solid #e2e8f0; border-radius: 6px; padding: 1rem; margin-bottom: 1.5rem; }
h2 button { font-size: 0.7rem; margin-left: 0.5rem; }
pre.panel { background: #f7fafc; padding: 0.75rem; overflow-x: auto; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{range $i, $s := .Sections}}<section>
<h2>{{$s.Heading}}<button data-toggle="section-{{$i}}">hide</button></h2>
<div id="section-{{$i}}">
{{if $s.Mermaid}}<pre class="mermaid">{{$s.Mermaid}}</pre>
{{end}}{{if $s.Text}}<pre class="panel">{{$s.Text}}</pre>
{{end}}</div>
</section>
{{end}}<script type="module">{{.Script}}</script>
</body>
</html>
`))

// RenderHTML writes p as a self-contained HTML document.
func RenderHTML(w io.Writer, p Page) error {
	script, err := viewerScript()
	if err != nil {
		return err
	}

	sections := make([]Section, len(p.Sections))
	for i, s := range p.Sections {
		s.Mermaid = unfence(s.Mermaid)
		sections[i] = s
	}

	data := struct {
		Title    string
		Sections []Section
		Script   template.JS
	}{p.Title, sections, script}

	if err := pageTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("failed to render page: %w", err)
	}
	return nil
}

// WriteHTML renders p into the file at path.
func WriteHTML(path string, p Page) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := RenderHTML(f, p); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

var openFile = browser.OpenFile

// Open shows a rendered page in the default browser.
func Open(path string) error {
	log.Info().Str("path", path).Msg("Opening viewer")
	if err := openFile(path); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
