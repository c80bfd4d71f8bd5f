package pages

import (
	"fmt"
	"strconv"
	"strings"
)

// HasTemplateSyntax reports whether a string contains embedded template
// expressions that still need evaluation.
func HasTemplateSyntax(s string) bool {
	return strings.Contains(s, "{{")
}

// IntValue holds an integer field that may still be an unresolved template
// string. Geometry fields keep their template form until render time so the
// bounds validator can defer checking them.
type IntValue struct {
	n    int
	tmpl string
	set  bool
}

// Int creates a resolved integer value.
func Int(n int) IntValue {
	return IntValue{n: n, set: true}
}

// IntTemplate creates an unresolved template value.
func IntTemplate(tmpl string) IntValue {
	return IntValue{tmpl: tmpl, set: true}
}

// IsSet reports whether the field was present at all.
func (v IntValue) IsSet() bool { return v.set }

// IsTemplate reports whether the value is an unresolved template string.
func (v IntValue) IsTemplate() bool { return v.set && v.tmpl != "" }

// Template returns the raw template string.
func (v IntValue) Template() string { return v.tmpl }

// Int returns the resolved integer. Only meaningful when !IsTemplate().
func (v IntValue) Int() int { return v.n }

func intValueOf(raw any) (IntValue, error) {
	switch t := raw.(type) {
	case nil:
		return IntValue{}, nil
	case int:
		return Int(t), nil
	case int64:
		return Int(int(t)), nil
	case float64:
		return Int(int(t)), nil
	case string:
		if HasTemplateSyntax(t) {
			return IntTemplate(t), nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return IntValue{}, fmt.Errorf("not an integer: %q", t)
		}
		return Int(n), nil
	default:
		return IntValue{}, fmt.Errorf("not an integer: %v (%T)", raw, raw)
	}
}

// BoolValue holds a boolean field that may be a template string evaluated to
// a boolean at render time via the truthiness table.
type BoolValue struct {
	b    bool
	tmpl string
	set  bool
}

// Bool creates a resolved boolean value.
func Bool(b bool) BoolValue {
	return BoolValue{b: b, set: true}
}

// BoolTemplate creates an unresolved template value.
func BoolTemplate(tmpl string) BoolValue {
	return BoolValue{tmpl: tmpl, set: true}
}

// IsSet reports whether the field was present at all.
func (v BoolValue) IsSet() bool { return v.set }

// IsTemplate reports whether the value is an unresolved template string.
func (v BoolValue) IsTemplate() bool { return v.set && v.tmpl != "" }

// Template returns the raw template string.
func (v BoolValue) Template() string { return v.tmpl }

// Bool returns the resolved boolean. Only meaningful when !IsTemplate().
func (v BoolValue) Bool() bool { return v.b }

func boolValueOf(raw any) (BoolValue, error) {
	switch t := raw.(type) {
	case nil:
		return BoolValue{}, nil
	case bool:
		return Bool(t), nil
	case string:
		if HasTemplateSyntax(t) {
			return BoolTemplate(t), nil
		}
		return Bool(Truthy(t)), nil
	default:
		return BoolValue{}, fmt.Errorf("not a boolean: %v (%T)", raw, raw)
	}
}

// Truthy coerces a rendered template result to a boolean. The falsy set is
// fixed; anything else is true.
func Truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "false", "0", "no", "off", "none", "":
		return false
	}
	return true
}

// ValueSourceKind discriminates how a widget value is obtained.
type ValueSourceKind int

const (
	ValueNone ValueSourceKind = iota
	ValueLiteral
	ValueEntity
	ValueTemplate
)

// ValueSource is the value input of intensity-capable widgets: a numeric
// literal, an entity reference resolved through the state store, or a
// template string.
type ValueSource struct {
	kind   ValueSourceKind
	lit    float64
	entity string
	tmpl   string
}

// LiteralValue creates a literal value source.
func LiteralValue(f float64) ValueSource {
	return ValueSource{kind: ValueLiteral, lit: f}
}

// EntityValue creates an entity-reference value source.
func EntityValue(id string) ValueSource {
	return ValueSource{kind: ValueEntity, entity: id}
}

// TemplateValue creates a template value source.
func TemplateValue(tmpl string) ValueSource {
	return ValueSource{kind: ValueTemplate, tmpl: tmpl}
}

// Kind returns the source discriminator.
func (v ValueSource) Kind() ValueSourceKind { return v.kind }

// Literal returns the literal number.
func (v ValueSource) Literal() float64 { return v.lit }

// Entity returns the entity id.
func (v ValueSource) Entity() string { return v.entity }

// Template returns the raw template string.
func (v ValueSource) Template() string { return v.tmpl }

func valueSourceOf(raw any) (ValueSource, error) {
	switch t := raw.(type) {
	case nil:
		return ValueSource{}, nil
	case int:
		return LiteralValue(float64(t)), nil
	case int64:
		return LiteralValue(float64(t)), nil
	case float64:
		return LiteralValue(t), nil
	case string:
		if HasTemplateSyntax(t) {
			return TemplateValue(t), nil
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return LiteralValue(f), nil
		}
		// A bare non-numeric string names an entity.
		return EntityValue(t), nil
	case map[string]any:
		id, _ := t["entity"].(string)
		if id == "" {
			return ValueSource{}, fmt.Errorf("value mapping requires an entity key")
		}
		return EntityValue(id), nil
	default:
		return ValueSource{}, fmt.Errorf("invalid value source: %v (%T)", raw, raw)
	}
}

// ColorSpec is an unparsed color specification: an RGB triple, a hex or
// named color string, or a template string. Parsing happens in the colors
// package at render time.
type ColorSpec struct {
	Raw any
}

// IsZero reports whether no color was specified.
func (c ColorSpec) IsZero() bool { return c.Raw == nil }

// Transition selects how threshold colors blend between breakpoints.
type Transition string

const (
	TransitionHard   Transition = "hard"
	TransitionSmooth Transition = "smooth"
)

// ColorThreshold maps a numeric breakpoint to a color.
type ColorThreshold struct {
	Value float64
	Color ColorSpec
}

func thresholdsOf(raw any) ([]ColorThreshold, error) {
	if raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("color_thresholds must be a list")
	}
	out := make([]ColorThreshold, 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("color_thresholds[%d] must be a mapping", i)
		}
		val, err := floatOf(m["value"])
		if err != nil {
			return nil, fmt.Errorf("color_thresholds[%d]: %w", i, err)
		}
		if m["color"] == nil {
			return nil, fmt.Errorf("color_thresholds[%d]: color is required", i)
		}
		out = append(out, ColorThreshold{Value: val, Color: ColorSpec{Raw: m["color"]}})
	}
	return out, nil
}

func floatOf(raw any) (float64, error) {
	switch t := raw.(type) {
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
		return 0, fmt.Errorf("not a number: %v (%T)", raw, raw)
	}
}

func intOf(raw any, def int) (int, error) {
	if raw == nil {
		return def, nil
	}
	v, err := intValueOf(raw)
	if err != nil {
		return 0, err
	}
	if v.IsTemplate() {
		return 0, fmt.Errorf("unexpected template: %q", v.Template())
	}
	return v.Int(), nil
}

func stringOf(raw any, def string) string {
	if s, ok := raw.(string); ok && s != "" {
		return s
	}
	return def
}
