package colors

import (
	"sort"

	"github.com/pixeldeck/pixeldeck/internal/templates"
	"github.com/pixeldeck/pixeldeck/pkg/pages"
)

// ResolveThreshold maps a numeric value to a color through an ordered
// breakpoint list. Thresholds sort descending by value; the first whose
// value is at or below the input wins. With a smooth transition the result
// interpolates per channel toward the next higher threshold. A value below
// every threshold returns the lowest threshold's color unmodified.
func ResolveThreshold(ev templates.Evaluator, value float64, thresholds []pages.ColorThreshold, transition pages.Transition, def RGB, vars map[string]any) (RGB, error) {
	if len(thresholds) == 0 {
		return def, nil
	}

	sorted := make([]pages.ColorThreshold, len(thresholds))
	copy(sorted, thresholds)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Value > sorted[j].Value
	})

	matched := -1
	for i, t := range sorted {
		if t.Value <= value {
			matched = i
			break
		}
	}
	if matched < 0 {
		// No extrapolation below the lowest breakpoint.
		return Resolve(ev, sorted[len(sorted)-1].Color, vars)
	}

	matchedColor, err := Resolve(ev, sorted[matched].Color, vars)
	if err != nil {
		return RGB{}, err
	}
	if transition != pages.TransitionSmooth || matched == 0 {
		return matchedColor, nil
	}

	next := sorted[matched-1]
	nextColor, err := Resolve(ev, next.Color, vars)
	if err != nil {
		return RGB{}, err
	}

	span := next.Value - sorted[matched].Value
	factor := 0.0
	if span > 0 {
		factor = (value - sorted[matched].Value) / span
	}
	if factor < 0 {
		factor = 0
	} else if factor > 1 {
		factor = 1
	}

	return RGB{
		R: lerpChannel(matchedColor.R, nextColor.R, factor),
		G: lerpChannel(matchedColor.G, nextColor.G, factor),
		B: lerpChannel(matchedColor.B, nextColor.B, factor),
	}, nil
}

func lerpChannel(a, b uint8, factor float64) uint8 {
	return clampChannel(float64(a) + (float64(b)-float64(a))*factor)
}
