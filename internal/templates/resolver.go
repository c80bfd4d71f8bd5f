package templates

import (
	"fmt"
	"reflect"
	"sort"

	"go.uber.org/zap"
)

// maxResolvePasses bounds the variable fixpoint iteration. Chains of
// variables referencing each other deeper than this stay unresolved.
const maxResolvePasses = 10

// ResolveVariables expands template expressions inside a variable mapping.
// Each pass re-renders every string value containing template syntax; the
// render context for a value is the previous pass's full result plus the
// values already rendered earlier in the current pass (keys iterate in
// sorted order), so variables may reference each other regardless of
// declaration order. Iteration stops once a pass changes nothing or no
// template syntax remains. A failing render keeps the original string.
func ResolveVariables(ev Evaluator, vars map[string]any, logger *zap.Logger) map[string]any {
	result := make(map[string]any, len(vars))
	for k, v := range vars {
		result[k] = v
	}

	keys := make([]string, 0, len(result))
	for k := range result {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for pass := 0; pass < maxResolvePasses; pass++ {
		next := make(map[string]any, len(result))
		for k, v := range result {
			next[k] = v
		}

		changed := false
		for _, k := range keys {
			s, ok := next[k].(string)
			if !ok || !HasSyntax(s) {
				continue
			}
			rendered, err := ev.Render(s, next)
			if err != nil {
				// Tolerated inside the fixpoint: the raw template string
				// surfaces downstream as a literal.
				logger.Debug("Variable render failed",
					zap.String("variable", k),
					zap.Error(err))
				continue
			}
			if !reflect.DeepEqual(rendered, next[k]) {
				next[k] = rendered
				changed = true
			}
		}

		result = next
		if !changed || !anyTemplates(result) {
			break
		}
	}

	return result
}

func anyTemplates(vars map[string]any) bool {
	for _, v := range vars {
		if s, ok := v.(string); ok && HasSyntax(s) {
			return true
		}
	}
	return false
}

// ResolveStructure renders every string leaf of a nested value in place,
// recursing into mappings and sequences. Non-string scalars pass through.
// Unlike the variable fixpoint, render failures propagate.
func ResolveStructure(ev Evaluator, value any, vars map[string]any) (any, error) {
	switch t := value.(type) {
	case string:
		if !HasSyntax(t) {
			return t, nil
		}
		rendered, err := ev.Render(t, vars)
		if err != nil {
			return nil, err
		}
		return rendered, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, v := range t {
			resolved, err := ResolveStructure(ev, v, vars)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, v := range t {
			resolved, err := ResolveStructure(ev, v, vars)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return value, nil
	}
}
