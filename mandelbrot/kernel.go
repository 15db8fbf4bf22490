// Package mandelbrot implements the per-tile Mandelbrot escape-time kernel:
// a representative pixel producer plugging into the launcher.Launch
// contract. Other kernels (any per-pixel scalar field) would plug in the
// same way.
package mandelbrot

import (
	"math"
	"sync/atomic"

	"github.com/fractaltile/asynctiled/launcher"
	"github.com/fractaltile/asynctiled/tile"
)

// Bounds is the rectangle of the complex plane a generation covers.
type Bounds struct {
	Left, Right, Top, Bottom float64
}

// New returns a launcher.Kernel computing the Mandelbrot set over bounds,
// for a framebuffer of the given pixel dimensions. originTxn is the
// transaction id this generation was launched under; newest is the
// process-wide atomic the kernel polls once per scanline — when it no
// longer equals originTxn, the kernel abandons the tile immediately,
// leaving it partially written with no further guarantees on its pixel
// contents.
//
// The divergence test is |z.real * z.imag| >= 4.0, not the classical
// |z|^2 >= 4. This is intentional, not a bug — see DESIGN.md.
func New(bounds Bounds, maxIters int, framebufferWidthPx, framebufferHeightPx int, originTxn uint16, newest *atomic.Uint32) launcher.Kernel {
	return func(spec tile.TileSpec, t tile.Tile) tile.Tile {
		originX, originY := t.Origin(spec)
		for y := 0; y < int(spec.TileHeight); y++ {
			if uint16(newest.Load()) != originTxn {
				break
			}
			framebufferY := originY + y
			j := bounds.Top + (bounds.Bottom-bounds.Top)/float64(framebufferHeightPx)*float64(framebufferY)
			row := t.RowAddress(spec, y)
			for x := 0; x < int(spec.TileWidth); x++ {
				framebufferX := originX + x
				i := bounds.Left + (bounds.Right-bounds.Left)/float64(framebufferWidthPx)*float64(framebufferX)

				zr, zi := 0.0, 0.0
				iter := 0
				for ; iter < maxIters; iter++ {
					zr, zi = zr*zr-zi*zi+i, 2*zr*zi+j
					if math.Abs(zr*zi) >= 4.0 {
						break
					}
				}

				grey := uint8(255.0 / float64(maxIters) * float64(maxIters-iter))
				o := x * 4
				row[o+0], row[o+1], row[o+2], row[o+3] = grey, grey, grey, 255
			}
		}
		return t
	}
}
