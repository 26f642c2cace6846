package script

import (
	"fmt"
	"reflect"
	"strings"
	"text/template"
)

// Template renders another script as a text/template. Parameters that are
// functions become template functions; every other parameter is available
// as `{{ .name }}`. Referencing an unknown parameter fails the render.
type Template struct {
	base   Script
	params map[string]any
}

// NewTemplate wraps base with the given parameters.
func NewTemplate(base Script, params map[string]any) *Template {
	t := &Template{base: base, params: map[string]any{}}
	return t.AddParameters(params)
}

// NewTemplateFile reads the template from path.
func NewTemplateFile(path string, params map[string]any) *Template {
	return NewTemplate(NewFile(path), params)
}

// AddParameters adds or replaces template parameters.
func (t *Template) AddParameters(params map[string]any) *Template {
	for k, v := range params {
		t.params[k] = v
	}
	return t
}

// RequiredExportables implements Script. Exportable parameters are always
// required.
func (t *Template) RequiredExportables() []string {
	set := map[string]struct{}{}
	for _, n := range t.base.RequiredExportables() {
		set[n] = struct{}{}
	}
	for _, v := range t.params {
		if e, ok := v.(Exportable); ok {
			set[e.ExportName()] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// Stub implements Script.
func (t *Template) Stub() ([]string, error) {
	lines, err := t.base.Stub()
	if err != nil {
		return nil, err
	}

	funcs := template.FuncMap{}
	data := map[string]any{}
	for k, v := range t.params {
		switch x := v.(type) {
		case Exportable:
			data[k] = "$" + x.ExportName()
		default:
			if v != nil && reflect.TypeOf(v).Kind() == reflect.Func {
				funcs[k] = v
				continue
			}
			data[k] = v
		}
	}

	tmpl, err := template.New("script").Option("missingkey=error").Funcs(funcs).Parse(strings.Join(lines, "\n"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse script template: %w", err)
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return nil, fmt.Errorf("failed to render script template: %w", err)
	}
	return strings.Split(sb.String(), "\n"), nil
}
