package mandelbrot_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fractaltile/asynctiled/launcher"
	"github.com/fractaltile/asynctiled/mandelbrot"
	"github.com/fractaltile/asynctiled/tile"
)

// --- Scenario 2: Mandelbrot 2048x1536 @ maxIters=32 ---

// TestMandelbrotFullFrame checks that after every tile completes, the
// number of pixels that escaped on the first iteration (value
// (255,255,255,255)) is strictly between 0 and the total pixel count, and
// the pixel at the framebuffer centre is interior to the set (grey == 0).
func TestMandelbrotFullFrame(t *testing.T) {
	const width, height = 2048, 1536
	const tileW, tileH = 32, 32
	const maxIters = 32

	spec := tile.TileSpec{Format: tile.RGBA8888, TileWidth: tileW, TileHeight: tileH, StrideBytes: width * 4}
	grid := tile.GridDims{TilesX: width / tileW, TilesY: height / tileH}
	fb := tile.NewFramebuffer(width, height, 1)

	var newest atomic.Uint32
	kernel := mandelbrot.New(mandelbrot.Bounds{Left: -2, Right: 1, Top: 1.5001, Bottom: -1.4999}, maxIters, width, height, 0, &newest)

	_, handles, err := launcher.Launch(context.Background(), spec, grid, fb, kernel)
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	for _, h := range handles {
		<-h
	}

	var escapedFirstIter, total int
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			total++
			if fb.At(x, y) == (tile.Pixel{R: 255, G: 255, B: 255, A: 255}) {
				escapedFirstIter++
			}
		}
	}
	if escapedFirstIter == 0 || escapedFirstIter == total {
		t.Fatalf("escaped-first-iteration count = %d of %d, want strictly between 0 and total", escapedFirstIter, total)
	}

	centre := fb.At(width/2, height/2)
	if centre.R != 0 {
		t.Errorf("centre pixel grey = %d, want 0 (interior of the set)", centre.R)
	}
}

// --- Law: Determinism ---

// TestMandelbrotDeterministic checks that fixed bounds, grid and maxIters
// produce bit-identical framebuffer bytes across runs.
func TestMandelbrotDeterministic(t *testing.T) {
	const width, height = 128, 96
	const tileW, tileH = 16, 16
	const maxIters = 24

	run := func() []byte {
		spec := tile.TileSpec{Format: tile.RGBA8888, TileWidth: tileW, TileHeight: tileH, StrideBytes: width * 4}
		grid := tile.GridDims{TilesX: width / tileW, TilesY: height / tileH}
		fb := tile.NewFramebuffer(width, height, 1)
		var newest atomic.Uint32
		kernel := mandelbrot.New(mandelbrot.Bounds{Left: -2, Right: 1, Top: 1.5001, Bottom: -1.4999}, maxIters, width, height, 0, &newest)
		_, handles, err := launcher.Launch(context.Background(), spec, grid, fb, kernel)
		if err != nil {
			t.Fatalf("Launch: %v", err)
		}
		for _, h := range handles {
			<-h
		}
		out := make([]byte, len(fb.Pix))
		copy(out, fb.Pix)
		return out
	}

	a, b := run(), run()
	if len(a) != len(b) {
		t.Fatalf("length mismatch: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("byte %d differs: %d vs %d", i, a[i], b[i])
		}
	}
}

// --- Law 5: Superseded generations never write ---

// TestMandelbrotCancellationEffectiveness checks that if newest is bumped
// before any kernel begins, and the kernel never observes it equal to its
// originating transaction, no pixel writes occur.
func TestMandelbrotCancellationEffectiveness(t *testing.T) {
	const width, height = 64, 64
	const tileW, tileH = 32, 32

	spec := tile.TileSpec{Format: tile.RGBA8888, TileWidth: tileW, TileHeight: tileH, StrideBytes: width * 4}
	grid := tile.GridDims{TilesX: width / tileW, TilesY: height / tileH}
	fb := tile.NewFramebuffer(width, height, 1)

	before := make([]byte, len(fb.Pix))
	copy(before, fb.Pix)

	var newest atomic.Uint32
	newest.Store(1) // already != originTxn 0 before the kernel ever runs

	kernel := mandelbrot.New(mandelbrot.Bounds{Left: -2, Right: 1, Top: 1, Bottom: -1}, 1024, width, height, 0, &newest)
	_, handles, err := launcher.Launch(context.Background(), spec, grid, fb, kernel)
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	for _, h := range handles {
		<-h
	}

	for i := range fb.Pix {
		if fb.Pix[i] != before[i] {
			t.Fatalf("byte %d written despite transaction mismatch before first scanline", i)
		}
	}
}

// --- Scenario 3: Supersession under load ---

// TestMandelbrotSupersessionUnderLoad starts a slow (maxIters=1024)
// generation across many tiles, bumps newest concurrently while tiles are
// still mid-flight, and checks that every handle resolves promptly rather
// than running to completion, leaving at least one tile with a scanline
// the per-scanline cancellation check never reached.
func TestMandelbrotSupersessionUnderLoad(t *testing.T) {
	const width, height = 256, 256
	const tileW, tileH = 64, 64
	const maxIters = 1024

	spec := tile.TileSpec{Format: tile.RGBA8888, TileWidth: tileW, TileHeight: tileH, StrideBytes: width * 4}
	grid := tile.GridDims{TilesX: width / tileW, TilesY: height / tileH}
	fb := tile.NewFramebuffer(width, height, 1)

	var newest atomic.Uint32
	kernel := mandelbrot.New(mandelbrot.Bounds{Left: -2, Right: 1, Top: 1, Bottom: -1}, maxIters, width, height, 0, &newest)

	tiles, handles, err := launcher.Launch(context.Background(), spec, grid, fb, kernel)
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}

	go func() {
		time.Sleep(200 * time.Microsecond)
		newest.Store(1) // supersede while tiles are still working, not before they start
	}()

	done := make(chan struct{})
	go func() {
		for _, h := range handles {
			<-h
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("handles did not all resolve promptly after supersession")
	}

	foundUntouchedScanline := false
	for _, tl := range tiles {
		for y := 0; y < tileH && !foundUntouchedScanline; y++ {
			row := tl.RowAddress(spec, y)
			untouched := true
			for x := 0; x < tileW; x++ {
				if row[x*4+3] != 0 { // alpha is only ever written as 255
					untouched = false
					break
				}
			}
			if untouched {
				foundUntouchedScanline = true
			}
		}
	}
	if !foundUntouchedScanline {
		t.Fatal("expected at least one tile with a fully untouched scanline after mid-flight supersession, found none")
	}
}
