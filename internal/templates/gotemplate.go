package templates

import (
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// GoTemplate evaluates text/template expressions with the sprig function
// map. Variables are exposed both as the dot context and as top-level
// fields, so {{ .temp }} reads a variable named temp. Evaluation is strict:
// a reference to a missing key is an error, never an empty substitution.
type GoTemplate struct {
	funcs template.FuncMap
}

// NewGoTemplate creates the default template evaluator.
func NewGoTemplate() *GoTemplate {
	return &GoTemplate{funcs: sprig.HermeticTxtFuncMap()}
}

// Render implements Evaluator.
func (g *GoTemplate) Render(tmpl string, vars map[string]any) (any, error) {
	t, err := template.New("expr").
		Funcs(g.funcs).
		Option("missingkey=error").
		Parse(tmpl)
	if err != nil {
		return nil, &EvalError{Template: tmpl, Err: err}
	}

	if vars == nil {
		vars = map[string]any{}
	}

	var sb strings.Builder
	if err := t.Execute(&sb, vars); err != nil {
		return nil, &EvalError{Template: tmpl, Err: err}
	}
	return sb.String(), nil
}
