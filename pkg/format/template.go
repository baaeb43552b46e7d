package format

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// TemplateEngine renders title templates with Sprig functions
type TemplateEngine struct {
	funcMap template.FuncMap
	cache   map[string]*template.Template
}

// NewTemplateEngine creates a new template engine with Sprig functions
func NewTemplateEngine() *TemplateEngine {
	return &TemplateEngine{
		funcMap: sprig.TxtFuncMap(),
		cache:   make(map[string]*template.Template),
	}
}

// Register parses a template under name
func (t *TemplateEngine) Register(name, content string) error {
	tmpl, err := template.New(name).Funcs(t.funcMap).Option("missingkey=zero").Parse(content)
	if err != nil {
		return fmt.Errorf("failed to parse template %s: %w", name, err)
	}

	t.cache[name] = tmpl
	return nil
}

// Render executes a registered template with the given variables
func (t *TemplateEngine) Render(name string, variables map[string]interface{}) (string, error) {
	tmpl, ok := t.cache[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, variables); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}

	return buf.String(), nil
}
