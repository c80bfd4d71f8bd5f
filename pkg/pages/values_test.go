package pages

import (
	"testing"
)

func TestTruthy(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"true", true},
		{"1", true},
		{"yes", true},
		{"on", true},
		{"anything", true},
		{"  True  ", true},
		{"false", false},
		{"FALSE", false},
		{"0", false},
		{"no", false},
		{"off", false},
		{"none", false},
		{"", false},
		{"   ", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Truthy(tt.in); got != tt.want {
				t.Errorf("Truthy(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestIntValueOf(t *testing.T) {
	t.Run("absent", func(t *testing.T) {
		v, err := intValueOf(nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v.IsSet() {
			t.Error("nil should decode unset")
		}
	})

	t.Run("numeric forms", func(t *testing.T) {
		for _, raw := range []any{12, int64(12), 12.0, "12", " 12 "} {
			v, err := intValueOf(raw)
			if err != nil {
				t.Fatalf("intValueOf(%v): %v", raw, err)
			}
			if v.IsTemplate() || v.Int() != 12 {
				t.Errorf("intValueOf(%v) = %+v, want resolved 12", raw, v)
			}
		}
	})

	t.Run("template deferred", func(t *testing.T) {
		v, err := intValueOf("{{ x + 2 }}")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !v.IsTemplate() {
			t.Fatal("template string should stay unresolved")
		}
		if v.Template() != "{{ x + 2 }}" {
			t.Errorf("Template() = %q", v.Template())
		}
	})

	t.Run("garbage rejected", func(t *testing.T) {
		if _, err := intValueOf("twelve"); err == nil {
			t.Error("expected error for non-numeric string")
		}
		if _, err := intValueOf([]any{1}); err == nil {
			t.Error("expected error for list")
		}
	})
}

func TestBoolValueOf(t *testing.T) {
	v, err := boolValueOf("off")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Bool() {
		t.Error(`"off" should decode false`)
	}

	v, err = boolValueOf("{{ show }}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.IsTemplate() {
		t.Error("template string should stay unresolved")
	}

	if _, err := boolValueOf(3); err == nil {
		t.Error("expected error for integer")
	}
}

func TestValueSourceOf(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		kind ValueSourceKind
	}{
		{"absent", nil, ValueNone},
		{"int literal", 40, ValueLiteral},
		{"float literal", 7.5, ValueLiteral},
		{"numeric string", "33.5", ValueLiteral},
		{"template", "{{ temp }}", ValueTemplate},
		{"bare entity name", "sensor.kitchen_temp", ValueEntity},
		{"entity mapping", map[string]any{"entity": "sensor.cpu"}, ValueEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := valueSourceOf(tt.raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if v.Kind() != tt.kind {
				t.Errorf("kind = %v, want %v", v.Kind(), tt.kind)
			}
		})
	}

	t.Run("mapping without entity key", func(t *testing.T) {
		if _, err := valueSourceOf(map[string]any{"foo": "bar"}); err == nil {
			t.Error("expected error")
		}
	})
}

func TestThresholdsOf(t *testing.T) {
	raw := []any{
		map[string]any{"value": 0, "color": "red"},
		map[string]any{"value": 50.5, "color": []any{0, 255, 0}},
	}
	got, err := thresholdsOf(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d thresholds, want 2", len(got))
	}
	if got[1].Value != 50.5 {
		t.Errorf("Value = %v, want 50.5", got[1].Value)
	}

	bad := []any{map[string]any{"value": 10}}
	if _, err := thresholdsOf(bad); err == nil {
		t.Error("expected error for threshold without color")
	}
}
