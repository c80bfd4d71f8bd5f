package surface

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/pixeldeck/pixeldeck/internal/colors"
)

// Bitmap is the in-memory surface adapter: a square RGBA frame buffer with
// pixel-level implementations of every primitive. It backs tests and the
// drawing half of the remote device adapter.
type Bitmap struct {
	size int
	img  *image.RGBA

	scrolls []ScrollText
	channel string
	subpage int
}

// NewBitmap creates a size×size frame buffer, cleared to black.
func NewBitmap(size int) *Bitmap {
	b := &Bitmap{
		size: size,
		img:  image.NewRGBA(image.Rect(0, 0, size, size)),
	}
	b.Clear()
	return b
}

// Size implements Surface.
func (b *Bitmap) Size() int { return b.size }

// Image exposes the current frame.
func (b *Bitmap) Image() *image.RGBA { return b.img }

// At returns the color of one pixel.
func (b *Bitmap) At(p Point) colors.RGB {
	c := b.img.RGBAAt(p.X, p.Y)
	return colors.RGB{R: c.R, G: c.G, B: c.B}
}

// Scrolls returns the scroll-text directives issued since the last Clear.
func (b *Bitmap) Scrolls() []ScrollText { return b.scrolls }

// Channel returns the last channel directive.
func (b *Bitmap) Channel() string { return b.channel }

// Subpage returns the last subpage directive.
func (b *Bitmap) Subpage() int { return b.subpage }

// Clear implements Surface.
func (b *Bitmap) Clear() {
	b.Fill(colors.RGB{})
	b.scrolls = nil
}

// Fill implements Surface.
func (b *Bitmap) Fill(c colors.RGB) {
	draw.Draw(b.img, b.img.Bounds(), &image.Uniform{rgba(c)}, image.Point{}, draw.Src)
}

// DrawPixel implements Surface. Out-of-canvas pixels are discarded, which
// is what lets stroke widgets hang partially off the edge.
func (b *Bitmap) DrawPixel(p Point, c colors.RGB) {
	if p.X < 0 || p.X >= b.size || p.Y < 0 || p.Y >= b.size {
		return
	}
	b.img.SetRGBA(p.X, p.Y, rgba(c))
}

// DrawLine implements Surface with the integer midpoint algorithm.
func (b *Bitmap) DrawLine(a, p Point, c colors.RGB) {
	dx := abs(p.X - a.X)
	dy := -abs(p.Y - a.Y)
	sx, sy := 1, 1
	if a.X > p.X {
		sx = -1
	}
	if a.Y > p.Y {
		sy = -1
	}
	err := dx + dy

	x, y := a.X, a.Y
	for {
		b.DrawPixel(Pt(x, y), c)
		if x == p.X && y == p.Y {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

// DrawFilledRect implements Surface. Both corners are inclusive.
func (b *Bitmap) DrawFilledRect(tl, br Point, c colors.RGB) {
	for y := tl.Y; y <= br.Y; y++ {
		for x := tl.X; x <= br.X; x++ {
			b.DrawPixel(Pt(x, y), c)
		}
	}
}

// DrawText implements Surface with the built-in 3x5 fixed-pitch font.
func (b *Bitmap) DrawText(text string, at Point, c colors.RGB) {
	x := at.X
	for _, r := range text {
		g := glyphFor(r)
		for row := 0; row < 5; row++ {
			for col := 0; col < 3; col++ {
				if g[row]&(1<<(2-col)) != 0 {
					b.DrawPixel(Pt(x+col, at.Y+row), c)
				}
			}
		}
		x += 4
	}
}

// DrawImage implements Surface.
func (b *Bitmap) DrawImage(img image.Image, at Point) {
	if img == nil {
		return
	}
	r := img.Bounds()
	dst := image.Rect(at.X, at.Y, at.X+r.Dx(), at.Y+r.Dy())
	draw.Draw(b.img, dst, img, r.Min, draw.Over)
}

// FillEllipse implements Surface by scanning the bounding box and testing
// dx²/rx² + dy²/ry² <= 1 per pixel.
func (b *Bitmap) FillEllipse(center Point, rx, ry int, c colors.RGB) {
	if rx <= 0 || ry <= 0 {
		return
	}
	rx2 := float64(rx * rx)
	ry2 := float64(ry * ry)
	for dy := -ry; dy <= ry; dy++ {
		for dx := -rx; dx <= rx; dx++ {
			if float64(dx*dx)/rx2+float64(dy*dy)/ry2 <= 1 {
				b.DrawPixel(Pt(center.X+dx, center.Y+dy), c)
			}
		}
	}
}

// DrawEllipse implements Surface by sampling perimeter points. The angular
// step scales with the radius so larger circles stay gap-free.
func (b *Bitmap) DrawEllipse(center Point, rx, ry int, c colors.RGB) {
	if rx <= 0 || ry <= 0 {
		return
	}
	steps := perimeterSteps(max(rx, ry))
	for i := 0; i < steps; i++ {
		a := 2 * math.Pi * float64(i) / float64(steps)
		x := center.X + int(math.Round(float64(rx)*math.Cos(a)))
		y := center.Y + int(math.Round(float64(ry)*math.Sin(a)))
		b.DrawPixel(Pt(x, y), c)
	}
}

// FillArc implements Surface: a pie slice from startDeg to endDeg.
func (b *Bitmap) FillArc(center Point, r int, startDeg, endDeg float64, c colors.RGB) {
	if r <= 0 {
		return
	}
	r2 := float64(r * r)
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if float64(dx*dx)+float64(dy*dy) > r2 {
				continue
			}
			if dx == 0 && dy == 0 {
				b.DrawPixel(center, c)
				continue
			}
			a := math.Atan2(float64(dy), float64(dx)) * 180 / math.Pi
			if angleWithin(a, startDeg, endDeg) {
				b.DrawPixel(Pt(center.X+dx, center.Y+dy), c)
			}
		}
	}
}

// DrawArc implements Surface: an arc outline of the given stroke thickness,
// drawn inward from radius r.
func (b *Bitmap) DrawArc(center Point, r int, startDeg, endDeg float64, thickness int, c colors.RGB) {
	if r <= 0 {
		return
	}
	if thickness < 1 {
		thickness = 1
	}
	sweep := normalizeSweep(startDeg, endDeg)
	steps := int(float64(perimeterSteps(r)) * sweep / 360)
	if steps < 2 {
		steps = 2
	}
	for ring := 0; ring < thickness && r-ring > 0; ring++ {
		radius := float64(r - ring)
		for i := 0; i <= steps; i++ {
			a := (startDeg + sweep*float64(i)/float64(steps)) * math.Pi / 180
			x := center.X + int(math.Round(radius*math.Cos(a)))
			y := center.Y + int(math.Round(radius*math.Sin(a)))
			b.DrawPixel(Pt(x, y), c)
		}
	}
}

// SendText implements Surface. The in-memory buffer has no hardware
// scroller, so the text draws statically and the directive is recorded.
func (b *Bitmap) SendText(_ context.Context, msg ScrollText) error {
	b.scrolls = append(b.scrolls, msg)
	b.DrawText(msg.Text, msg.At, msg.Color)
	return nil
}

// Push implements Surface. The frame is already in memory; nothing to do.
func (b *Bitmap) Push(context.Context) error { return nil }

// SetChannel implements Surface.
func (b *Bitmap) SetChannel(_ context.Context, name string) error {
	b.channel = name
	return nil
}

// SetSubpage implements Surface.
func (b *Bitmap) SetSubpage(_ context.Context, id int) error {
	b.subpage = id
	return nil
}

// perimeterSteps picks the angular sampling density for outline fallbacks:
// 8 samples per pixel of radius keeps adjacent samples under a pixel apart.
func perimeterSteps(r int) int {
	steps := 8 * r
	if steps < 32 {
		steps = 32
	}
	return steps
}

func normalizeSweep(startDeg, endDeg float64) float64 {
	sweep := math.Mod(endDeg-startDeg, 360)
	if sweep < 0 {
		sweep += 360
	}
	if sweep == 0 && endDeg != startDeg {
		sweep = 360
	}
	return sweep
}

// angleWithin tests membership of angle a in the clockwise sweep from
// start to end, all in degrees, tolerant of wraparound.
func angleWithin(a, start, end float64) bool {
	norm := func(x float64) float64 {
		x = math.Mod(x, 360)
		if x < 0 {
			x += 360
		}
		return x
	}
	a = norm(a)
	start = norm(start)
	sweep := normalizeSweep(start, end)
	rel := norm(a - start)
	return rel <= sweep
}

func rgba(c colors.RGB) color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

