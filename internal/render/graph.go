package render

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/pixeldeck/pixeldeck/internal/colors"
	"github.com/pixeldeck/pixeldeck/internal/state"
	"github.com/pixeldeck/pixeldeck/internal/surface"
	"github.com/pixeldeck/pixeldeck/pkg/pages"
)

func (r *Renderer) renderGraph(ctx context.Context, t *pages.Graph, vars map[string]any) error {
	x, y, w, h, err := r.resolveBox(t.X, t.Y, t.Width, t.Height, vars)
	if err != nil {
		return err
	}

	now := time.Now()
	samples, err := r.state.GetHistory(ctx, t.Entity, now.Add(-t.Window), now)
	if err != nil {
		return fmt.Errorf("history for %q: %w", t.Entity, err)
	}
	if len(samples) == 0 {
		// No data in the window draws an empty frame, not an error.
		return nil
	}

	points := t.Points
	if points <= 0 || points > w {
		points = w
	}

	bins := binSamples(samples, points, now.Add(-t.Window), t.Window, t.Aggregate)

	lo, hi := graphBounds(bins, t.MinValue, t.MaxValue)
	if hi <= lo {
		hi = lo + 1
	}

	// Map bin index to a column and value to a row, y grows downward.
	colOf := func(i int) int {
		if points == 1 {
			return x + w/2
		}
		return x + i*(w-1)/(points-1)
	}
	rowOf := func(v float64) int {
		frac := (v - lo) / (hi - lo)
		if frac < 0 {
			frac = 0
		} else if frac > 1 {
			frac = 1
		}
		return y + h - 1 - int(math.Round(frac*float64(h-1)))
	}

	def := colors.RGB{R: 255, G: 255, B: 255}
	if !t.Color.IsZero() {
		if def, err = colors.Resolve(r.eval, t.Color, vars); err != nil {
			return err
		}
	}
	colorFor := func(v float64) (colors.RGB, error) {
		if len(t.Thresholds) == 0 {
			return def, nil
		}
		return colors.ResolveThreshold(r.eval, v, t.Thresholds, t.Transition, def, vars)
	}

	switch t.Mode {
	case pages.GraphBar:
		for i, bin := range bins {
			if !bin.ok {
				continue
			}
			c, err := colorFor(bin.value)
			if err != nil {
				return err
			}
			col := colOf(i)
			top := rowOf(bin.value)
			r.surface.DrawLine(surface.Pt(col, top), surface.Pt(col, y+h-1), c)
		}
	default:
		prev := -1
		for i, bin := range bins {
			if !bin.ok {
				continue
			}
			c, err := colorFor(bin.value)
			if err != nil {
				return err
			}
			col := colOf(i)
			row := rowOf(bin.value)
			if prev >= 0 {
				pcol := colOf(prev)
				prow := rowOf(bins[prev].value)
				r.surface.DrawLine(surface.Pt(pcol, prow), surface.Pt(col, row), c)
			} else {
				r.surface.DrawPixel(surface.Pt(col, row), c)
			}
			if t.Fill {
				r.surface.DrawLine(surface.Pt(col, row), surface.Pt(col, y+h-1), c)
			}
			prev = i
		}
	}
	return nil
}

type graphBin struct {
	value float64
	ok    bool
}

// binSamples partitions the window into count equal spans and reduces each
// span's samples with the aggregate. Empty spans stay unset so gaps in the
// history show as gaps in the plot.
func binSamples(samples []state.Sample, count int, start time.Time, window time.Duration, agg pages.Aggregate) []graphBin {
	bins := make([]graphBin, count)
	// A degenerate window would map edge samples to NaN indices.
	if window <= 0 || count <= 0 {
		return bins
	}
	sums := make([]float64, count)
	counts := make([]int, count)

	for _, s := range samples {
		offset := s.At.Sub(start)
		if offset < 0 || offset > window {
			continue
		}
		i := int(float64(offset) / float64(window) * float64(count))
		if i >= count {
			i = count - 1
		}

		switch agg {
		case pages.AggregateMin:
			if !bins[i].ok || s.Value < bins[i].value {
				bins[i].value = s.Value
			}
		case pages.AggregateMax:
			if !bins[i].ok || s.Value > bins[i].value {
				bins[i].value = s.Value
			}
		case pages.AggregateLast:
			bins[i].value = s.Value
		default: // avg
			sums[i] += s.Value
			counts[i]++
		}
		bins[i].ok = true
	}

	if agg == pages.AggregateAvg || agg == "" {
		for i := range bins {
			if counts[i] > 0 {
				bins[i].value = sums[i] / float64(counts[i])
			}
		}
	}
	return bins
}

// graphBounds derives the plot range: explicit min/max win, otherwise the
// observed data extent.
func graphBounds(bins []graphBin, minV, maxV *float64) (lo, hi float64) {
	first := true
	for _, b := range bins {
		if !b.ok {
			continue
		}
		if first {
			lo, hi = b.value, b.value
			first = false
			continue
		}
		lo = min(lo, b.value)
		hi = max(hi, b.value)
	}
	if minV != nil {
		lo = *minV
	}
	if maxV != nil {
		hi = *maxV
	}
	return lo, hi
}
