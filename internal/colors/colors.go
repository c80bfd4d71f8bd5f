// Package colors resolves page color specifications into RGB triples:
// literal triples, hex or named color strings, and template strings that
// evaluate to either form.
package colors

import (
	"encoding/json"
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"

	"github.com/pixeldeck/pixeldeck/internal/templates"
	"github.com/pixeldeck/pixeldeck/pkg/pages"
)

// RGB is a display color. The frame buffer is opaque, so there is no alpha.
type RGB struct {
	R, G, B uint8
}

// InvalidColorError reports a color specification that could not be parsed.
type InvalidColorError struct {
	Spec any
}

func (e *InvalidColorError) Error() string {
	return fmt.Sprintf("invalid color: %v", e.Spec)
}

// Resolve parses a color specification into an RGB triple, evaluating
// template strings first. Channels of literal triples clamp to [0, 255].
func Resolve(ev templates.Evaluator, spec pages.ColorSpec, vars map[string]any) (RGB, error) {
	return resolveRaw(ev, spec.Raw, vars)
}

func resolveRaw(ev templates.Evaluator, raw any, vars map[string]any) (RGB, error) {
	switch t := raw.(type) {
	case []any:
		return tripleOf(t)
	case string:
		if templates.HasSyntax(t) {
			rendered, err := ev.Render(t, vars)
			if err != nil {
				return RGB{}, err
			}
			return parseRendered(rendered)
		}
		return parseString(t)
	default:
		return RGB{}, &InvalidColorError{Spec: raw}
	}
}

func parseRendered(rendered any) (RGB, error) {
	switch t := rendered.(type) {
	case []any:
		return tripleOf(t)
	case string:
		s := strings.TrimSpace(t)
		// A rendered JSON array of 3 numbers counts as a triple.
		if strings.HasPrefix(s, "[") {
			var nums []float64
			if err := json.Unmarshal([]byte(s), &nums); err == nil && len(nums) == 3 {
				return RGB{clampChannel(nums[0]), clampChannel(nums[1]), clampChannel(nums[2])}, nil
			}
		}
		return parseString(s)
	default:
		return RGB{}, &InvalidColorError{Spec: rendered}
	}
}

func parseString(s string) (RGB, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		return parseHex(s)
	}
	if c, ok := colornames.Map[strings.ToLower(s)]; ok {
		return fromColor(c), nil
	}
	return RGB{}, &InvalidColorError{Spec: s}
}

func parseHex(s string) (RGB, error) {
	hex := s[1:]
	if len(hex) != 6 {
		return RGB{}, &InvalidColorError{Spec: s}
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return RGB{}, &InvalidColorError{Spec: s}
	}
	return RGB{uint8(n >> 16), uint8(n >> 8), uint8(n)}, nil
}

func tripleOf(list []any) (RGB, error) {
	if len(list) != 3 {
		return RGB{}, &InvalidColorError{Spec: list}
	}
	var ch [3]uint8
	for i, item := range list {
		f, ok := numberOf(item)
		if !ok {
			return RGB{}, &InvalidColorError{Spec: list}
		}
		ch[i] = clampChannel(f)
	}
	return RGB{ch[0], ch[1], ch[2]}, nil
}

func numberOf(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func clampChannel(f float64) uint8 {
	if f < 0 {
		return 0
	}
	if f > 255 {
		return 255
	}
	return uint8(math.Round(f))
}

func fromColor(c color.RGBA) RGB {
	return RGB{c.R, c.G, c.B}
}
