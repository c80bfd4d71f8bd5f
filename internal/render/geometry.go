package render

import (
	"context"
	"fmt"
	"math"

	"github.com/pixeldeck/pixeldeck/internal/colors"
	"github.com/pixeldeck/pixeldeck/internal/images"
	"github.com/pixeldeck/pixeldeck/internal/surface"
	"github.com/pixeldeck/pixeldeck/pkg/pages"
)

// scrollChannels is the number of scrolling-text slots the display offers.
const scrollChannels = 20

func (r *Renderer) renderText(ctx context.Context, t *pages.Text, vars map[string]any) error {
	x, err := r.resolveInt(t.X, vars)
	if err != nil {
		return fmt.Errorf("x: %w", err)
	}
	y, err := r.resolveInt(t.Y, vars)
	if err != nil {
		return fmt.Errorf("y: %w", err)
	}

	c := colors.RGB{R: 255, G: 255, B: 255}
	if !t.Color.IsZero() {
		if c, err = colors.Resolve(r.eval, t.Color, vars); err != nil {
			return err
		}
	}

	if t.Scroll {
		width := t.ScrollWidth
		if width <= 0 {
			width = r.surface.Size()
		}
		return r.surface.SendText(ctx, surface.ScrollText{
			Text:      t.Content,
			At:        surface.Pt(x, y),
			Color:     c,
			Channel:   t.Index % scrollChannels,
			Width:     width,
			Speed:     t.ScrollSpeed,
			Direction: t.ScrollDirection,
		})
	}

	width := surface.TextWidth(t.Content)
	switch t.Align {
	case pages.AlignCenter:
		x -= width / 2
	case pages.AlignRight:
		x -= width
	}
	r.surface.DrawText(t.Content, surface.Pt(x, y), c)
	return nil
}

func (r *Renderer) renderRectangle(t *pages.Rectangle, vars map[string]any) error {
	x, y, w, h, err := r.resolveBox(t.X, t.Y, t.Width, t.Height, vars)
	if err != nil {
		return err
	}

	c, err := colors.Resolve(r.eval, t.Color, vars)
	if err != nil {
		return err
	}

	tl := surface.Pt(x, y)
	br := surface.Pt(x+w-1, y+h-1)
	if t.Filled {
		r.surface.DrawFilledRect(tl, br, c)
		return nil
	}
	r.drawOutline(tl, br, c)
	return nil
}

func (r *Renderer) renderImage(ctx context.Context, t *pages.Image, vars map[string]any, mode images.AllowlistMode) error {
	x, err := r.resolveInt(t.X, vars)
	if err != nil {
		return fmt.Errorf("x: %w", err)
	}
	y, err := r.resolveInt(t.Y, vars)
	if err != nil {
		return fmt.Errorf("y: %w", err)
	}

	img, err := r.images.Resolve(ctx, t.Source, mode)
	if err != nil {
		return err
	}
	if img == nil {
		// Blank source: nothing to draw, not an error.
		return nil
	}
	r.surface.DrawImage(img, surface.Pt(x, y))
	return nil
}

func (r *Renderer) renderProgressBar(ctx context.Context, t *pages.ProgressBar, vars map[string]any) error {
	x, y, w, h, err := r.resolveBox(t.X, t.Y, t.Width, t.Height, vars)
	if err != nil {
		return err
	}

	value, ok, err := r.resolveValue(ctx, t.Value, vars)
	if err != nil {
		return err
	}
	if !ok {
		value = t.Min
	}

	frac := 0.0
	if span := t.Max - t.Min; span != 0 {
		frac = (value - t.Min) / span
	}
	if frac < 0 {
		frac = 0
	} else if frac > 1 {
		frac = 1
	}

	tl := surface.Pt(x, y)
	br := surface.Pt(x+w-1, y+h-1)

	if !t.Background.IsZero() {
		bg, err := colors.Resolve(r.eval, t.Background, vars)
		if err != nil {
			return err
		}
		r.surface.DrawFilledRect(tl, br, bg)
	}

	fill, err := r.widgetColor(ctx, t.Color, t.Value, t.Thresholds, t.Transition, vars)
	if err != nil {
		return err
	}

	if t.Vertical {
		// Grows from the bottom edge upward.
		fh := int(math.Round(frac * float64(h)))
		if fh > 0 {
			r.surface.DrawFilledRect(surface.Pt(x, y+h-fh), br, fill)
		}
	} else {
		// Grows from the left edge.
		fw := int(math.Round(frac * float64(w)))
		if fw > 0 {
			r.surface.DrawFilledRect(tl, surface.Pt(x+fw-1, y+h-1), fill)
		}
	}

	if !t.Border.IsZero() {
		border, err := colors.Resolve(r.eval, t.Border, vars)
		if err != nil {
			return err
		}
		r.drawOutline(tl, br, border)
	}
	return nil
}

func (r *Renderer) renderIcon(ctx context.Context, t *pages.Icon, vars map[string]any) error {
	x, err := r.resolveInt(t.X, vars)
	if err != nil {
		return fmt.Errorf("x: %w", err)
	}
	y, err := r.resolveInt(t.Y, vars)
	if err != nil {
		return fmt.Errorf("y: %w", err)
	}

	c, err := r.widgetColor(ctx, t.Color, t.Value, t.Thresholds, t.Transition, vars)
	if err != nil {
		return err
	}

	img := r.icons.Render(t.Name, t.Size, c)
	r.surface.DrawImage(img, surface.Pt(x, y))
	return nil
}

func (r *Renderer) renderLine(ctx context.Context, t *pages.Line, vars map[string]any) error {
	x1, err := r.resolveInt(t.X, vars)
	if err != nil {
		return fmt.Errorf("x: %w", err)
	}
	y1, err := r.resolveInt(t.Y, vars)
	if err != nil {
		return fmt.Errorf("y: %w", err)
	}
	x2, err := r.resolveInt(t.X2, vars)
	if err != nil {
		return fmt.Errorf("x2: %w", err)
	}
	y2, err := r.resolveInt(t.Y2, vars)
	if err != nil {
		return fmt.Errorf("y2: %w", err)
	}

	c, err := r.widgetColor(ctx, t.Color, t.Value, t.Thresholds, t.Transition, vars)
	if err != nil {
		return err
	}

	r.drawThickLine(surface.Pt(x1, y1), surface.Pt(x2, y2), t.Thickness, c)
	return nil
}

func (r *Renderer) renderCircle(ctx context.Context, t *pages.Circle, vars map[string]any) error {
	x, err := r.resolveInt(t.X, vars)
	if err != nil {
		return fmt.Errorf("x: %w", err)
	}
	y, err := r.resolveInt(t.Y, vars)
	if err != nil {
		return fmt.Errorf("y: %w", err)
	}
	radius, err := r.resolveInt(t.Radius, vars)
	if err != nil {
		return fmt.Errorf("radius: %w", err)
	}
	if radius <= 0 {
		return fmt.Errorf("radius must be positive, got %d", radius)
	}

	c, err := r.widgetColor(ctx, t.Color, t.Value, t.Thresholds, t.Transition, vars)
	if err != nil {
		return err
	}

	center := surface.Pt(x, y)
	if t.Filled {
		r.surface.FillEllipse(center, radius, radius, c)
	} else {
		r.surface.DrawEllipse(center, radius, radius, c)
	}
	return nil
}

func (r *Renderer) renderArc(ctx context.Context, t *pages.Arc, vars map[string]any) error {
	x, err := r.resolveInt(t.X, vars)
	if err != nil {
		return fmt.Errorf("x: %w", err)
	}
	y, err := r.resolveInt(t.Y, vars)
	if err != nil {
		return fmt.Errorf("y: %w", err)
	}
	radius, err := r.resolveInt(t.Radius, vars)
	if err != nil {
		return fmt.Errorf("radius: %w", err)
	}
	if radius <= 0 {
		return fmt.Errorf("radius must be positive, got %d", radius)
	}

	c, err := r.widgetColor(ctx, t.Color, t.Value, t.Thresholds, t.Transition, vars)
	if err != nil {
		return err
	}

	// Page angles put 0 at 12 o'clock running clockwise; the surface
	// measures from the positive x axis.
	start := t.StartAngle - 90
	end := t.EndAngle - 90

	center := surface.Pt(x, y)
	if t.Filled {
		r.surface.FillArc(center, radius, start, end, c)
	} else {
		r.surface.DrawArc(center, radius, start, end, t.Thickness, c)
	}
	return nil
}

func (r *Renderer) renderArrow(ctx context.Context, t *pages.Arrow, vars map[string]any) error {
	x, err := r.resolveInt(t.X, vars)
	if err != nil {
		return fmt.Errorf("x: %w", err)
	}
	y, err := r.resolveInt(t.Y, vars)
	if err != nil {
		return fmt.Errorf("y: %w", err)
	}
	length, err := r.resolveInt(t.Length, vars)
	if err != nil {
		return fmt.Errorf("length: %w", err)
	}
	if length <= 0 {
		return fmt.Errorf("length must be positive, got %d", length)
	}

	c, err := r.widgetColor(ctx, t.Color, t.Value, t.Thresholds, t.Transition, vars)
	if err != nil {
		return err
	}

	center := surface.Pt(x, y)
	tip := polar(center, float64(length), t.Angle)
	r.drawThickLine(center, tip, t.Thickness, c)

	// Arrowhead strokes fan back from the tip at ±150°.
	left := polar(tip, float64(t.HeadSize), t.Angle+150)
	right := polar(tip, float64(t.HeadSize), t.Angle-150)
	r.surface.DrawLine(tip, left, c)
	r.surface.DrawLine(tip, right, c)

	if t.Thickness > 1 {
		r.fillTriangle(tip, left, right, c)
	}
	return nil
}

func (r *Renderer) resolveBox(xv, yv, wv, hv pages.IntValue, vars map[string]any) (x, y, w, h int, err error) {
	if x, err = r.resolveInt(xv, vars); err != nil {
		return 0, 0, 0, 0, fmt.Errorf("x: %w", err)
	}
	if y, err = r.resolveInt(yv, vars); err != nil {
		return 0, 0, 0, 0, fmt.Errorf("y: %w", err)
	}
	if w, err = r.resolveInt(wv, vars); err != nil {
		return 0, 0, 0, 0, fmt.Errorf("width: %w", err)
	}
	if h, err = r.resolveInt(hv, vars); err != nil {
		return 0, 0, 0, 0, fmt.Errorf("height: %w", err)
	}
	if w <= 0 || h <= 0 {
		return 0, 0, 0, 0, fmt.Errorf("box %dx%d is empty", w, h)
	}
	return x, y, w, h, nil
}

// drawOutline draws a box outline as four line calls.
func (r *Renderer) drawOutline(tl, br surface.Point, c colors.RGB) {
	r.surface.DrawLine(tl, surface.Pt(br.X, tl.Y), c)
	r.surface.DrawLine(surface.Pt(br.X, tl.Y), br, c)
	r.surface.DrawLine(br, surface.Pt(tl.X, br.Y), c)
	r.surface.DrawLine(surface.Pt(tl.X, br.Y), tl, c)
}

// drawThickLine emulates stroke thickness with parallel lines offset along
// the unit perpendicular, centered on the ideal line.
func (r *Renderer) drawThickLine(a, b surface.Point, thickness int, c colors.RGB) {
	if thickness <= 1 {
		r.surface.DrawLine(a, b, c)
		return
	}

	dx := float64(b.X - a.X)
	dy := float64(b.Y - a.Y)
	length := math.Hypot(dx, dy)
	if length == 0 {
		r.surface.DrawPixel(a, c)
		return
	}
	px := -dy / length
	py := dx / length

	for i := 0; i < thickness; i++ {
		off := float64(i) - float64(thickness-1)/2
		ox := int(math.Round(px * off))
		oy := int(math.Round(py * off))
		r.surface.DrawLine(
			surface.Pt(a.X+ox, a.Y+oy),
			surface.Pt(b.X+ox, b.Y+oy),
			c)
	}
}

// fillTriangle rasterizes the arrowhead by sweeping lines from the apex
// across the base edge.
func (r *Renderer) fillTriangle(apex, b1, b2 surface.Point, c colors.RGB) {
	steps := int(math.Hypot(float64(b2.X-b1.X), float64(b2.Y-b1.Y))) * 2
	if steps < 2 {
		steps = 2
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		x := int(math.Round(float64(b1.X) + t*float64(b2.X-b1.X)))
		y := int(math.Round(float64(b1.Y) + t*float64(b2.Y-b1.Y)))
		r.surface.DrawLine(apex, surface.Pt(x, y), c)
	}
}

// polar offsets a point by distance at the page angle convention:
// 0° points up, increasing clockwise.
func polar(from surface.Point, distance, angleDeg float64) surface.Point {
	rad := angleDeg * math.Pi / 180
	return surface.Pt(
		from.X+int(math.Round(distance*math.Sin(rad))),
		from.Y-int(math.Round(distance*math.Cos(rad))),
	)
}
