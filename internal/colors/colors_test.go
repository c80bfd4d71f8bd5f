package colors

import (
	"testing"

	"github.com/pixeldeck/pixeldeck/internal/templates"
	"github.com/pixeldeck/pixeldeck/pkg/pages"
)

func spec(raw any) pages.ColorSpec {
	return pages.ColorSpec{Raw: raw}
}

func TestResolve(t *testing.T) {
	ev := templates.NewGoTemplate()

	tests := []struct {
		name    string
		raw     any
		vars    map[string]any
		want    RGB
		wantErr bool
	}{
		{name: "triple", raw: []any{255, 128, 0}, want: RGB{255, 128, 0}},
		{name: "triple clamps high", raw: []any{300, -5, 100}, want: RGB{255, 0, 100}},
		{name: "triple float rounds", raw: []any{127.6, 0.4, 0}, want: RGB{128, 0, 0}},
		{name: "triple numeric strings", raw: []any{"10", "20", "30"}, want: RGB{10, 20, 30}},
		{name: "hex", raw: "#FF8800", want: RGB{255, 136, 0}},
		{name: "hex lowercase", raw: "#00ff00", want: RGB{0, 255, 0}},
		{name: "named", raw: "red", want: RGB{255, 0, 0}},
		{name: "named case folded", raw: "DarkOrange", want: RGB{255, 140, 0}},
		{name: "template to name", raw: "{{ .c }}", vars: map[string]any{"c": "blue"}, want: RGB{0, 0, 255}},
		{name: "template to json triple", raw: "{{ .c }}", vars: map[string]any{"c": "[12, 34, 56]"}, want: RGB{12, 34, 56}},
		{name: "wrong length triple", raw: []any{1, 2}, wantErr: true},
		{name: "short hex", raw: "#FFF", wantErr: true},
		{name: "unknown name", raw: "notacolor", wantErr: true},
		{name: "unsupported type", raw: 42, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(ev, spec(tt.raw), tt.vars)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Resolve(%v) succeeded with %v, want error", tt.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%v): %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%v) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestResolveThreshold(t *testing.T) {
	ev := templates.NewGoTemplate()
	white := RGB{255, 255, 255}

	thresholds := []pages.ColorThreshold{
		{Value: 0, Color: spec([]any{0, 255, 0})},    // green
		{Value: 50, Color: spec([]any{255, 255, 0})}, // yellow
		{Value: 80, Color: spec([]any{255, 0, 0})},   // red
	}

	t.Run("hard picks highest breakpoint at or below", func(t *testing.T) {
		cases := []struct {
			value float64
			want  RGB
		}{
			{0, RGB{0, 255, 0}},
			{49.9, RGB{0, 255, 0}},
			{50, RGB{255, 255, 0}},
			{79, RGB{255, 255, 0}},
			{80, RGB{255, 0, 0}},
			{200, RGB{255, 0, 0}},
		}
		for _, c := range cases {
			got, err := ResolveThreshold(ev, c.value, thresholds, pages.TransitionHard, white, nil)
			if err != nil {
				t.Fatalf("value %v: %v", c.value, err)
			}
			if got != c.want {
				t.Errorf("value %v = %v, want %v", c.value, got, c.want)
			}
		}
	})

	t.Run("declaration order does not matter", func(t *testing.T) {
		shuffled := []pages.ColorThreshold{thresholds[2], thresholds[0], thresholds[1]}
		got, err := ResolveThreshold(ev, 60, shuffled, pages.TransitionHard, white, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != (RGB{255, 255, 0}) {
			t.Errorf("got %v, want yellow", got)
		}
	})

	t.Run("smooth interpolates toward next breakpoint", func(t *testing.T) {
		// 75 sits 5/6 of the way from the yellow breakpoint (50) to the
		// red one (80): only the green channel moves, 255*(1-5/6) ≈ 43.
		got, err := ResolveThreshold(ev, 75, thresholds, pages.TransitionSmooth, white, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := RGB{255, 43, 0}
		if got != want {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("smooth midpoint", func(t *testing.T) {
		two := []pages.ColorThreshold{
			{Value: 0, Color: spec([]any{0, 0, 0})},
			{Value: 100, Color: spec([]any{200, 100, 50})},
		}
		got, err := ResolveThreshold(ev, 50, two, pages.TransitionSmooth, white, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != (RGB{100, 50, 25}) {
			t.Errorf("got %v", got)
		}
	})

	t.Run("smooth at top breakpoint stays put", func(t *testing.T) {
		got, err := ResolveThreshold(ev, 95, thresholds, pages.TransitionSmooth, white, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != (RGB{255, 0, 0}) {
			t.Errorf("got %v, want red", got)
		}
	})

	t.Run("below all breakpoints uses lowest unmodified", func(t *testing.T) {
		shifted := []pages.ColorThreshold{
			{Value: 10, Color: spec([]any{0, 255, 0})},
			{Value: 50, Color: spec([]any{255, 0, 0})},
		}
		got, err := ResolveThreshold(ev, 3, shifted, pages.TransitionSmooth, white, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != (RGB{0, 255, 0}) {
			t.Errorf("got %v, want lowest threshold color", got)
		}
	})

	t.Run("empty list returns default", func(t *testing.T) {
		got, err := ResolveThreshold(ev, 10, nil, pages.TransitionHard, white, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != white {
			t.Errorf("got %v, want default", got)
		}
	})
}
