// Package bounds decides whether a positioned component is visible on the
// square canvas before any rendering work is attempted.
package bounds

import (
	"github.com/pixeldeck/pixeldeck/pkg/pages"
)

// InBounds reports whether a component can produce visible output on a
// size×size canvas. Geometry fields still holding unresolved template
// strings make the component provisionally in-bounds; the check happens
// again at render time once the value is known. Box widgets must fit
// entirely; stroke widgets only need their bounding extent to overlap the
// canvas. Unrecognized components are rejected.
func InBounds(c pages.Component, size int) bool {
	switch t := c.(type) {
	case *pages.Text:
		return anchorInBounds(t.X, t.Y, size)
	case *pages.Image:
		return anchorInBounds(t.X, t.Y, size)
	case *pages.Rectangle:
		return boxInBounds(t.X, t.Y, t.Width, t.Height, size)
	case *pages.ProgressBar:
		return boxInBounds(t.X, t.Y, t.Width, t.Height, size)
	case *pages.Graph:
		return boxInBounds(t.X, t.Y, t.Width, t.Height, size)
	case *pages.Icon:
		return boxInBounds(t.X, t.Y, pages.Int(t.Size), pages.Int(t.Size), size)
	case *pages.Line:
		if anyTemplate(t.X, t.Y, t.X2, t.Y2) {
			return true
		}
		return extentOverlaps(
			min(t.X.Int(), t.X2.Int()), min(t.Y.Int(), t.Y2.Int()),
			max(t.X.Int(), t.X2.Int()), max(t.Y.Int(), t.Y2.Int()),
			size)
	case *pages.Circle:
		return radialInBounds(t.X, t.Y, t.Radius, size)
	case *pages.Arc:
		return radialInBounds(t.X, t.Y, t.Radius, size)
	case *pages.Arrow:
		return radialInBounds(t.X, t.Y, t.Length, size)
	default:
		return false
	}
}

func anyTemplate(values ...pages.IntValue) bool {
	for _, v := range values {
		if v.IsTemplate() {
			return true
		}
	}
	return false
}

func anchorInBounds(x, y pages.IntValue, size int) bool {
	if anyTemplate(x, y) {
		return true
	}
	return x.Int() >= 0 && x.Int() < size && y.Int() >= 0 && y.Int() < size
}

func boxInBounds(x, y, w, h pages.IntValue, size int) bool {
	if anyTemplate(x, y, w, h) {
		return true
	}
	if w.Int() <= 0 || h.Int() <= 0 {
		return false
	}
	return x.Int() >= 0 && y.Int() >= 0 &&
		x.Int()+w.Int() <= size && y.Int()+h.Int() <= size
}

func radialInBounds(x, y, r pages.IntValue, size int) bool {
	if anyTemplate(x, y, r) {
		return true
	}
	return extentOverlaps(
		x.Int()-r.Int(), y.Int()-r.Int(),
		x.Int()+r.Int(), y.Int()+r.Int(),
		size)
}

// extentOverlaps accepts partial visibility: the extent only has to touch
// the canvas somewhere.
func extentOverlaps(minX, minY, maxX, maxY, size int) bool {
	return maxX >= 0 && minX < size && maxY >= 0 && minY < size
}
