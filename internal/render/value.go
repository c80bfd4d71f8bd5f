package render

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pixeldeck/pixeldeck/internal/colors"
	"github.com/pixeldeck/pixeldeck/pkg/pages"
)

// resolveInt produces the final integer for a geometry field, evaluating a
// deferred template if one survived structure resolution.
func (r *Renderer) resolveInt(v pages.IntValue, vars map[string]any) (int, error) {
	if !v.IsSet() {
		return 0, nil
	}
	if !v.IsTemplate() {
		return v.Int(), nil
	}
	rendered, err := r.eval.Render(v.Template(), vars)
	if err != nil {
		return 0, err
	}
	n, err := coerceInt(rendered)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", v.Template(), err)
	}
	return n, nil
}

// resolveBool evaluates an enabled flag. An absent flag is true; template
// results coerce through the fixed truthiness table.
func (r *Renderer) resolveBool(v pages.BoolValue, vars map[string]any) (bool, error) {
	if !v.IsSet() {
		return true, nil
	}
	if !v.IsTemplate() {
		return v.Bool(), nil
	}
	rendered, err := r.eval.Render(v.Template(), vars)
	if err != nil {
		return false, err
	}
	switch t := rendered.(type) {
	case bool:
		return t, nil
	case string:
		return pages.Truthy(t), nil
	case int64:
		return t != 0, nil
	case float64:
		return t != 0, nil
	default:
		return rendered != nil, nil
	}
}

// resolveValue produces the numeric value of an intensity-capable widget
// from its literal, entity-reference or template source. The second result
// reports whether a value was present at all.
func (r *Renderer) resolveValue(ctx context.Context, v pages.ValueSource, vars map[string]any) (float64, bool, error) {
	switch v.Kind() {
	case pages.ValueNone:
		return 0, false, nil
	case pages.ValueLiteral:
		return v.Literal(), true, nil
	case pages.ValueEntity:
		raw, err := r.state.GetState(ctx, v.Entity())
		if err != nil {
			return 0, false, err
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return 0, false, fmt.Errorf("entity %s state %q is not numeric", v.Entity(), raw)
		}
		return f, true, nil
	case pages.ValueTemplate:
		rendered, err := r.eval.Render(v.Template(), vars)
		if err != nil {
			return 0, false, err
		}
		f, err := coerceFloat(rendered)
		if err != nil {
			return 0, false, fmt.Errorf("%q: %w", v.Template(), err)
		}
		return f, true, nil
	default:
		return 0, false, fmt.Errorf("unknown value source kind %d", v.Kind())
	}
}

// widgetColor picks the draw color for an intensity-capable widget: the
// threshold lookup when breakpoints are declared, else the explicit color,
// else white.
func (r *Renderer) widgetColor(ctx context.Context, spec pages.ColorSpec, value pages.ValueSource, thresholds []pages.ColorThreshold, transition pages.Transition, vars map[string]any) (colors.RGB, error) {
	def := colors.RGB{R: 255, G: 255, B: 255}
	if !spec.IsZero() {
		c, err := colors.Resolve(r.eval, spec, vars)
		if err != nil {
			return colors.RGB{}, err
		}
		def = c
	}
	if len(thresholds) == 0 {
		return def, nil
	}

	v, ok, err := r.resolveValue(ctx, value, vars)
	if err != nil {
		return colors.RGB{}, err
	}
	if !ok {
		return def, nil
	}
	return colors.ResolveThreshold(r.eval, v, thresholds, transition, def, vars)
}

func coerceInt(v any) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case float64:
		return int(t), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("not an integer: %q", t)
		}
		return int(f), nil
	default:
		return 0, fmt.Errorf("not an integer: %v (%T)", v, v)
	}
}

func coerceFloat(v any) (float64, error) {
	switch t := v.(type) {
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case float64:
		return t, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", t)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("not a number: %v (%T)", v, v)
	}
}
