// Package surface abstracts the pixel-addressable display target. One
// capability interface carries both native shape primitives and guaranteed
// pixel-level behavior, so the renderer never branches on which adapter it
// is drawing into.
package surface

import (
	"context"
	"image"
	"unicode/utf8"

	"github.com/pixeldeck/pixeldeck/internal/colors"
)

// Point addresses a pixel on the square canvas.
type Point struct {
	X, Y int
}

// Pt is a convenience constructor.
func Pt(x, y int) Point {
	return Point{X: x, Y: y}
}

// ScrollText is the device's scrolling-text primitive. Channel is a stable
// per-component slot so repeated renders update the same scroller instead
// of stacking new ones.
type ScrollText struct {
	Text      string
	At        Point
	Color     colors.RGB
	Channel   int
	Width     int
	Speed     int
	Direction string
}

// Surface is the display target. Drawing calls mutate a pending frame;
// Push commits it to the physical device. Arc angles are degrees from the
// positive x axis increasing clockwise on screen.
type Surface interface {
	Size() int

	Clear()
	Fill(c colors.RGB)
	DrawPixel(p Point, c colors.RGB)
	DrawLine(a, b Point, c colors.RGB)
	DrawFilledRect(tl, br Point, c colors.RGB)
	DrawText(text string, at Point, c colors.RGB)
	DrawImage(img image.Image, at Point)
	FillEllipse(center Point, rx, ry int, c colors.RGB)
	DrawEllipse(center Point, rx, ry int, c colors.RGB)
	FillArc(center Point, r int, startDeg, endDeg float64, c colors.RGB)
	DrawArc(center Point, r int, startDeg, endDeg float64, thickness int, c colors.RGB)

	SendText(ctx context.Context, msg ScrollText) error
	Push(ctx context.Context) error

	SetChannel(ctx context.Context, name string) error
	SetSubpage(ctx context.Context, id int) error
}

// TextWidth returns the pixel width of a string in the fixed-pitch display
// font: 3 pixel glyphs with 1 pixel spacing. Width counts glyphs, so
// multibyte runes measure the same as the single cell they draw into.
func TextWidth(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return 4*n - 1
}
