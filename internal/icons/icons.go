// Package icons rasterizes named vector icons into small anti-aliased
// bitmaps. Icons render at 4x the target size and downscale with a
// high-quality filter, which is what keeps curved edges smooth at
// matrix-display resolutions.
package icons

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/nfnt/resize"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"go.uber.org/zap"

	"github.com/pixeldeck/pixeldeck/internal/colors"
)

// supersample is the oversampling factor for anti-aliased rasterization.
const supersample = 4

// Source fetches vector icon data by name.
type Source interface {
	FetchVector(name string) ([]byte, error)
}

// DirSource loads icons as <name>.svg files from a directory.
type DirSource struct {
	dir string
}

// NewDirSource creates a filesystem icon source.
func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

// FetchVector implements Source.
func (s *DirSource) FetchVector(name string) ([]byte, error) {
	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("invalid icon name: %s", name)
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name+".svg"))
	if err != nil {
		return nil, fmt.Errorf("icon %q not found: %w", name, err)
	}
	return data, nil
}

type cacheKey struct {
	name  string
	size  int
	color colors.RGB
}

// Rasterizer renders icons through a Source and caches the results by
// (name, size, color).
type Rasterizer struct {
	source Source
	logger *zap.Logger

	mu    sync.Mutex
	cache map[cacheKey]*image.RGBA
}

// NewRasterizer creates an icon rasterizer.
func NewRasterizer(source Source, logger *zap.Logger) *Rasterizer {
	return &Rasterizer{
		source: source,
		logger: logger,
		cache:  make(map[cacheKey]*image.RGBA),
	}
}

// Render returns the icon as a size×size bitmap tinted with the given
// color. Unresolvable icons render a placeholder glyph instead of failing.
func (r *Rasterizer) Render(name string, size int, c colors.RGB) *image.RGBA {
	key := cacheKey{name: name, size: size, color: c}

	r.mu.Lock()
	cached, ok := r.cache[key]
	r.mu.Unlock()
	if ok {
		return cached
	}

	img, err := r.rasterize(name, size, c)
	if err != nil {
		r.logger.Warn("Icon rasterization failed, using placeholder",
			zap.String("icon", name),
			zap.Error(err))
		img = placeholder(size, c)
	}

	r.mu.Lock()
	r.cache[key] = img
	r.mu.Unlock()
	return img
}

func (r *Rasterizer) rasterize(name string, size int, c colors.RGB) (*image.RGBA, error) {
	data, err := r.source.FetchVector(name)
	if err != nil {
		return nil, err
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse icon %q: %w", name, err)
	}

	big := size * supersample
	icon.SetTarget(0, 0, float64(big), float64(big))
	canvas := image.NewRGBA(image.Rect(0, 0, big, big))
	scanner := rasterx.NewScannerGV(big, big, canvas, canvas.Bounds())
	dasher := rasterx.NewDasher(big, big, scanner)
	icon.Draw(dasher, 1.0)

	tint(canvas, c)

	small := resize.Resize(uint(size), uint(size), canvas, resize.Lanczos3)
	out := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			out.Set(x, y, small.At(x, y))
		}
	}
	return out, nil
}

// tint replaces the color of every covered pixel while keeping its alpha,
// so the icon's anti-aliased coverage survives recoloring.
func tint(img *image.RGBA, c colors.RGB) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			a := img.RGBAAt(x, y).A
			if a == 0 {
				continue
			}
			// Premultiplied alpha: scale channels by coverage.
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(uint16(c.R) * uint16(a) / 255),
				G: uint8(uint16(c.G) * uint16(a) / 255),
				B: uint8(uint16(c.B) * uint16(a) / 255),
				A: a,
			})
		}
	}
}

// placeholder is the fixed glyph for unknown icons: an outlined box with a
// diagonal, visibly wrong but never blank.
func placeholder(size int, c colors.RGB) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	col := color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
	for i := 0; i < size; i++ {
		img.SetRGBA(i, 0, col)
		img.SetRGBA(i, size-1, col)
		img.SetRGBA(0, i, col)
		img.SetRGBA(size-1, i, col)
		img.SetRGBA(i, i, col)
	}
	return img
}
