package templates

import (
	"fmt"
	"strings"
)

// Evaluator renders a template string against a variable context. The
// result is usually a string but implementations may return native values
// for single-expression templates.
type Evaluator interface {
	Render(tmpl string, vars map[string]any) (any, error)
}

// EvalError reports a malformed template or an undefined reference.
type EvalError struct {
	Template string
	Err      error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("template evaluation failed for %q: %v", e.Template, e.Err)
}

func (e *EvalError) Unwrap() error { return e.Err }

// HasSyntax reports whether a string contains template expressions.
func HasSyntax(s string) bool {
	return strings.Contains(s, "{{")
}
