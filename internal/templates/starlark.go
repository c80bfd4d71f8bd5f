package templates

import (
	"fmt"
	"strings"

	"go.starlark.net/starlark"
)

// Starlark evaluates the expressions between {{ and }} as Starlark code
// with the variable context as the global environment. A template that is a
// single expression returns the expression's native value; mixed text and
// expressions concatenate into a string.
type Starlark struct{}

// NewStarlark creates the Starlark expression evaluator.
func NewStarlark() *Starlark {
	return &Starlark{}
}

// Render implements Evaluator.
func (s *Starlark) Render(tmpl string, vars map[string]any) (any, error) {
	env := starlark.StringDict{}
	for k, v := range vars {
		sv, err := toStarlark(v)
		if err != nil {
			return nil, &EvalError{Template: tmpl, Err: err}
		}
		env[k] = sv
	}

	trimmed := strings.TrimSpace(tmpl)
	if strings.HasPrefix(trimmed, "{{") && strings.HasSuffix(trimmed, "}}") &&
		strings.Count(trimmed, "{{") == 1 {
		expr := strings.TrimSpace(trimmed[2 : len(trimmed)-2])
		val, err := s.eval(expr, env)
		if err != nil {
			return nil, &EvalError{Template: tmpl, Err: err}
		}
		return fromStarlark(val), nil
	}

	var sb strings.Builder
	rest := tmpl
	for {
		start := strings.Index(rest, "{{")
		if start < 0 {
			sb.WriteString(rest)
			break
		}
		sb.WriteString(rest[:start])
		end := strings.Index(rest[start:], "}}")
		if end < 0 {
			return nil, &EvalError{Template: tmpl, Err: fmt.Errorf("unterminated expression")}
		}
		expr := strings.TrimSpace(rest[start+2 : start+end])
		val, err := s.eval(expr, env)
		if err != nil {
			return nil, &EvalError{Template: tmpl, Err: err}
		}
		sb.WriteString(stringify(val))
		rest = rest[start+end+2:]
	}
	return sb.String(), nil
}

func (s *Starlark) eval(expr string, env starlark.StringDict) (starlark.Value, error) {
	thread := &starlark.Thread{Name: "expr"}
	return starlark.Eval(thread, "expr", expr, env)
}

func stringify(v starlark.Value) string {
	if s, ok := v.(starlark.String); ok {
		return string(s)
	}
	return v.String()
}

func toStarlark(v any) (starlark.Value, error) {
	switch t := v.(type) {
	case nil:
		return starlark.None, nil
	case bool:
		return starlark.Bool(t), nil
	case int:
		return starlark.MakeInt(t), nil
	case int64:
		return starlark.MakeInt64(t), nil
	case float64:
		return starlark.Float(t), nil
	case string:
		return starlark.String(t), nil
	case []any:
		elems := make([]starlark.Value, 0, len(t))
		for _, e := range t {
			se, err := toStarlark(e)
			if err != nil {
				return nil, err
			}
			elems = append(elems, se)
		}
		return starlark.NewList(elems), nil
	case map[string]any:
		dict := starlark.NewDict(len(t))
		for k, e := range t {
			se, err := toStarlark(e)
			if err != nil {
				return nil, err
			}
			if err := dict.SetKey(starlark.String(k), se); err != nil {
				return nil, err
			}
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("unsupported variable type %T", v)
	}
}

func fromStarlark(v starlark.Value) any {
	switch t := v.(type) {
	case starlark.NoneType:
		return nil
	case starlark.Bool:
		return bool(t)
	case starlark.Int:
		if n, ok := t.Int64(); ok {
			return n
		}
		return t.String()
	case starlark.Float:
		return float64(t)
	case starlark.String:
		return string(t)
	case *starlark.List:
		out := make([]any, 0, t.Len())
		for i := 0; i < t.Len(); i++ {
			out = append(out, fromStarlark(t.Index(i)))
		}
		return out
	case *starlark.Dict:
		out := make(map[string]any, t.Len())
		for _, item := range t.Items() {
			key := stringify(item[0])
			out[key] = fromStarlark(item[1])
		}
		return out
	default:
		return v.String()
	}
}
