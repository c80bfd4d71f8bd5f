package render

import (
	"context"
	"testing"
	"time"

	"github.com/pixeldeck/pixeldeck/internal/images"
	"github.com/pixeldeck/pixeldeck/internal/state"
	"github.com/pixeldeck/pixeldeck/internal/surface"
	"github.com/pixeldeck/pixeldeck/pkg/pages"
)

func TestBinSamples(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	window := 100 * time.Second
	at := func(sec int) time.Time { return start.Add(time.Duration(sec) * time.Second) }

	samples := []state.Sample{
		{At: at(5), Value: 10},
		{At: at(15), Value: 20},
		{At: at(18), Value: 40},
		{At: at(95), Value: 7},
	}

	t.Run("avg", func(t *testing.T) {
		bins := binSamples(samples, 10, start, window, pages.AggregateAvg)
		if !bins[0].ok || bins[0].value != 10 {
			t.Errorf("bin 0 = %+v, want 10", bins[0])
		}
		if !bins[1].ok || bins[1].value != 30 {
			t.Errorf("bin 1 = %+v, want the 20/40 average", bins[1])
		}
		if bins[5].ok {
			t.Error("empty span should stay a gap")
		}
		if !bins[9].ok || bins[9].value != 7 {
			t.Errorf("bin 9 = %+v, want 7", bins[9])
		}
	})

	t.Run("min max last", func(t *testing.T) {
		for _, tt := range []struct {
			agg  pages.Aggregate
			want float64
		}{
			{pages.AggregateMin, 20},
			{pages.AggregateMax, 40},
			{pages.AggregateLast, 40},
		} {
			bins := binSamples(samples, 10, start, window, tt.agg)
			if bins[1].value != tt.want {
				t.Errorf("%s: bin 1 = %v, want %v", tt.agg, bins[1].value, tt.want)
			}
		}
	})

	t.Run("samples outside the window are dropped", func(t *testing.T) {
		out := []state.Sample{
			{At: start.Add(-time.Second), Value: 1},
			{At: start.Add(window + time.Second), Value: 2},
		}
		bins := binSamples(out, 4, start, window, pages.AggregateAvg)
		for i, b := range bins {
			if b.ok {
				t.Errorf("bin %d collected an out-of-window sample", i)
			}
		}
	})

	t.Run("sample at the window end lands in the last bin", func(t *testing.T) {
		bins := binSamples([]state.Sample{{At: at(100), Value: 3}}, 4, start, window, pages.AggregateAvg)
		if !bins[3].ok || bins[3].value != 3 {
			t.Errorf("bin 3 = %+v, want 3", bins[3])
		}
	})

	t.Run("zero window collects nothing", func(t *testing.T) {
		bins := binSamples([]state.Sample{{At: start, Value: 5}}, 5, start, 0, pages.AggregateAvg)
		if len(bins) != 5 {
			t.Fatalf("got %d bins, want 5", len(bins))
		}
		for i, b := range bins {
			if b.ok {
				t.Errorf("bin %d collected a sample from a zero window", i)
			}
		}
	})
}

func TestGraphBounds(t *testing.T) {
	bins := []graphBin{
		{value: 5, ok: true},
		{ok: false},
		{value: -2, ok: true},
		{value: 9, ok: true},
	}

	lo, hi := graphBounds(bins, nil, nil)
	if lo != -2 || hi != 9 {
		t.Errorf("bounds = (%v, %v), want (-2, 9)", lo, hi)
	}

	minV, maxV := 0.0, 100.0
	lo, hi = graphBounds(bins, &minV, &maxV)
	if lo != 0 || hi != 100 {
		t.Errorf("explicit bounds = (%v, %v), want (0, 100)", lo, hi)
	}
}

func TestRenderGraph(t *testing.T) {
	graphDoc := func(extra map[string]any) map[string]any {
		doc := map[string]any{
			"type": "graph", "x": 0, "y": 0,
			"width": 16, "height": 16,
			"entity": "sensor.temp", "duration": 600,
			"color": "red",
		}
		for k, v := range extra {
			doc[k] = v
		}
		return map[string]any{
			"background": "black",
			"components": []any{doc},
		}
	}

	t.Run("empty history draws nothing", func(t *testing.T) {
		f := newFixture(t)
		if err := f.renderer.Render(context.Background(), graphDoc(nil), nil, images.AllowlistStrict); err != nil {
			t.Fatalf("Render: %v", err)
		}
		for y := 0; y < 16; y++ {
			for x := 0; x < 16; x++ {
				if f.bitmap.At(surface.Pt(x, y)) == red {
					t.Fatalf("pixel (%d,%d) drawn with no data", x, y)
				}
			}
		}
	})

	t.Run("bar mode draws columns to the base", func(t *testing.T) {
		f := newFixture(t)
		now := time.Now()
		// Recent samples; explicit bounds pin the scale.
		f.store.AddSample("sensor.temp", now.Add(-5*time.Minute), 100)
		f.store.AddSample("sensor.temp", now.Add(-1*time.Minute), 100)

		doc := graphDoc(map[string]any{
			"mode": "bar", "min_value": 0, "max_value": 100,
		})
		if err := f.renderer.Render(context.Background(), doc, nil, images.AllowlistStrict); err != nil {
			t.Fatalf("Render: %v", err)
		}

		// A max-value bar spans the full height of its column.
		found := false
		for x := 0; x < 16 && !found; x++ {
			if f.bitmap.At(surface.Pt(x, 0)) == red && f.bitmap.At(surface.Pt(x, 15)) == red {
				found = true
			}
		}
		if !found {
			t.Error("no full-height bar column found")
		}
	})

	t.Run("line mode connects points", func(t *testing.T) {
		f := newFixture(t)
		now := time.Now()
		// Constant series across the window draws a horizontal line at
		// mid-height once bounds are pinned to [0, 100].
		for i := 0; i < 10; i++ {
			f.store.AddSample("sensor.temp", now.Add(-time.Duration(i)*time.Minute), 50)
		}

		doc := graphDoc(map[string]any{"min_value": 0, "max_value": 100})
		if err := f.renderer.Render(context.Background(), doc, nil, images.AllowlistStrict); err != nil {
			t.Fatalf("Render: %v", err)
		}

		// frac 0.5 of a 16 pixel column puts the row at 15-round(7.5)=7.
		count := 0
		for x := 0; x < 16; x++ {
			if f.bitmap.At(surface.Pt(x, 7)) == red {
				count++
			}
		}
		if count < 8 {
			t.Errorf("connected line covers %d columns, want most of the width", count)
		}
	})
}
