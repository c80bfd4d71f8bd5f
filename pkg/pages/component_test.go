package pages

import (
	"testing"
	"time"
)

// Every variant must satisfy Component through the promoted Common accessor.
var _ = []Component{
	&Text{}, &Rectangle{}, &Image{}, &ProgressBar{}, &Graph{},
	&Icon{}, &Line{}, &Circle{}, &Arc{}, &Arrow{},
}

func TestDecodeComponent(t *testing.T) {
	t.Run("type is required", func(t *testing.T) {
		if _, err := DecodeComponent(map[string]any{"x": 1}, 0); err == nil {
			t.Error("expected error for missing type")
		}
	})

	t.Run("unknown type rejected", func(t *testing.T) {
		if _, err := DecodeComponent(map[string]any{"type": "sparkles"}, 0); err == nil {
			t.Error("expected error for unknown type")
		}
	})

	t.Run("text defaults", func(t *testing.T) {
		c, err := DecodeComponent(map[string]any{
			"type": "text", "text": "HI", "x": 2, "y": 3,
		}, 4)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		txt := c.(*Text)
		if txt.Align != AlignLeft {
			t.Errorf("Align = %q, want left", txt.Align)
		}
		if txt.ScrollSpeed != 100 {
			t.Errorf("ScrollSpeed = %d, want 100", txt.ScrollSpeed)
		}
		if txt.Index != 4 {
			t.Errorf("Index = %d, want 4", txt.Index)
		}
	})

	t.Run("progress bar defaults", func(t *testing.T) {
		c, err := DecodeComponent(map[string]any{
			"type": "progress_bar", "x": 0, "y": 0,
			"width": 10, "height": 4, "value": 50,
		}, 0)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		bar := c.(*ProgressBar)
		if bar.Min != 0 || bar.Max != 100 {
			t.Errorf("range = [%v,%v], want [0,100]", bar.Min, bar.Max)
		}
		if bar.Vertical {
			t.Error("default orientation should be horizontal")
		}
		if bar.Transition != TransitionHard {
			t.Errorf("Transition = %q, want hard", bar.Transition)
		}
	})

	t.Run("graph defaults", func(t *testing.T) {
		c, err := DecodeComponent(map[string]any{
			"type": "graph", "x": 0, "y": 0,
			"width": 32, "height": 16, "entity": "sensor.temp",
		}, 0)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		g := c.(*Graph)
		if g.Window != time.Hour {
			t.Errorf("Window = %v, want 1h", g.Window)
		}
		if g.Mode != GraphLine || g.Aggregate != AggregateAvg {
			t.Errorf("mode/aggregate = %v/%v, want line/avg", g.Mode, g.Aggregate)
		}
	})

	t.Run("graph requires entity", func(t *testing.T) {
		_, err := DecodeComponent(map[string]any{
			"type": "graph", "width": 32, "height": 16,
		}, 0)
		if err == nil {
			t.Error("expected error for missing entity")
		}
	})

	t.Run("graph rejects nonpositive duration", func(t *testing.T) {
		for _, dur := range []int{0, -60} {
			_, err := DecodeComponent(map[string]any{
				"type": "graph", "entity": "sensor.temp",
				"width": 32, "height": 16, "duration": dur,
			}, 0)
			if err == nil {
				t.Errorf("duration %d should be rejected", dur)
			}
		}
	})

	t.Run("arrow defaults", func(t *testing.T) {
		c, err := DecodeComponent(map[string]any{
			"type": "arrow", "x": 16, "y": 16, "length": 10,
		}, 0)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		a := c.(*Arrow)
		if a.Thickness != 1 || a.HeadSize != 3 {
			t.Errorf("thickness/head = %d/%d, want 1/3", a.Thickness, a.HeadSize)
		}
	})

	t.Run("circle requires radius", func(t *testing.T) {
		_, err := DecodeComponent(map[string]any{
			"type": "circle", "x": 5, "y": 5,
		}, 0)
		if err == nil {
			t.Error("expected error for missing radius")
		}
	})

	t.Run("template coordinates deferred", func(t *testing.T) {
		c, err := DecodeComponent(map[string]any{
			"type": "text", "text": "T", "x": "{{ col * 8 }}", "y": 0,
		}, 0)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !c.Common().X.IsTemplate() {
			t.Error("template x should stay unresolved")
		}
	})
}

func TestRenderOrder(t *testing.T) {
	mk := func(z IntValue, index int) Component {
		return &Rectangle{Base: Base{Z: z, Index: index}, Width: Int(1), Height: Int(1)}
	}

	t.Run("explicit z wins over list order", func(t *testing.T) {
		comps := []Component{
			mk(Int(5), 0),
			mk(Int(1), 1),
			mk(Int(3), 2),
		}
		got := RenderOrder(comps)
		want := []int{1, 2, 0}
		for i, c := range got {
			if c.Common().Index != want[i] {
				t.Fatalf("order[%d] = index %d, want %d", i, c.Common().Index, want[i])
			}
		}
	})

	t.Run("equal z keeps list order", func(t *testing.T) {
		// Two components at the same z: the earlier one draws first and
		// the later one paints over it.
		comps := []Component{
			mk(Int(2), 0), // "A"
			mk(Int(2), 1), // "B"
		}
		got := RenderOrder(comps)
		if got[0].Common().Index != 0 || got[1].Common().Index != 1 {
			t.Error("stable sort must keep insertion order for equal z")
		}
	})

	t.Run("unset z falls back to index", func(t *testing.T) {
		comps := []Component{
			mk(IntValue{}, 0),
			mk(Int(0), 1),
			mk(IntValue{}, 2),
		}
		got := RenderOrder(comps)
		want := []int{0, 1, 2}
		for i, c := range got {
			if c.Common().Index != want[i] {
				t.Fatalf("order[%d] = index %d, want %d", i, c.Common().Index, want[i])
			}
		}
	})

	t.Run("template z treated as index", func(t *testing.T) {
		comps := []Component{
			mk(IntTemplate("{{ z }}"), 0),
			mk(Int(0), 1),
		}
		got := RenderOrder(comps)
		// Index 0 has an unresolved z, so its key is its index 0, tying
		// with the explicit z=0; stability keeps list order.
		if got[0].Common().Index != 0 {
			t.Error("unresolved z should sort by insertion index")
		}
	})

	t.Run("input slice untouched", func(t *testing.T) {
		comps := []Component{mk(Int(9), 0), mk(Int(1), 1)}
		RenderOrder(comps)
		if comps[0].Common().Index != 0 {
			t.Error("RenderOrder must not mutate its input")
		}
	})
}
