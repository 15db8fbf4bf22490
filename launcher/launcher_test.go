package launcher_test

import (
	"context"
	"testing"

	"github.com/fractaltile/asynctiled/launcher"
	"github.com/fractaltile/asynctiled/tile"
)

// --- Scenario 1: Single-tile clear ---

// TestLaunchSingleTileClear checks the end-to-end case: a 32x32
// framebuffer, one 32x32 tile, kernel fills it with a fixed color. Every
// pixel must equal that color once the handle is awaited.
func TestLaunchSingleTileClear(t *testing.T) {
	spec := tile.TileSpec{Format: tile.RGBA8888, TileWidth: 32, TileHeight: 32, StrideBytes: 32 * 4}
	grid := tile.GridDims{TilesX: 1, TilesY: 1}
	fb := tile.NewFramebuffer(32, 32, 1)

	want := tile.Pixel{R: 192, G: 224, B: 255, A: 255}
	kernel := func(spec tile.TileSpec, tl tile.Tile) tile.Tile {
		for y := 0; y < int(spec.TileHeight); y++ {
			row := tl.RowAddress(spec, y)
			for x := 0; x < int(spec.TileWidth); x++ {
				o := x * 4
				row[o], row[o+1], row[o+2], row[o+3] = want.R, want.G, want.B, want.A
			}
		}
		return tl
	}

	_, handles, err := launcher.Launch(context.Background(), spec, grid, fb, kernel)
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if len(handles) != 1 {
		t.Fatalf("got %d handles, want 1", len(handles))
	}
	<-handles[0]

	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			if got := fb.At(x, y); got != want {
				t.Fatalf("pixel (%d,%d) = %+v, want %+v", x, y, got, want)
			}
		}
	}
}

// --- Law: Handle ordering ---

// TestLaunchHandleOrdering validates that the returned handle sequence
// matches the tile-vector order.
func TestLaunchHandleOrdering(t *testing.T) {
	spec := tile.TileSpec{Format: tile.RGBA8888, TileWidth: 4, TileHeight: 4, StrideBytes: 12 * 4}
	grid := tile.GridDims{TilesX: 3, TilesY: 2}
	fb := tile.NewFramebuffer(12, 8, 1)

	kernel := func(spec tile.TileSpec, tl tile.Tile) tile.Tile { return tl }

	tiles, handles, err := launcher.Launch(context.Background(), spec, grid, fb, kernel)
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if len(tiles) != len(handles) {
		t.Fatalf("got %d tiles, %d handles", len(tiles), len(handles))
	}
	for i, h := range handles {
		got := <-h
		if got.TX != tiles[i].TX || got.TY != tiles[i].TY {
			t.Errorf("handle %d resolved to tile (%d,%d), want (%d,%d)", i, got.TX, got.TY, tiles[i].TX, tiles[i].TY)
		}
	}
}

// TestLaunchSpawnFailureReturnsError validates that when the worker pool
// can never grant a slot (ctx already cancelled), Launch returns an error.
// With ctx done before the first tile, no kernel is ever started, so this
// test does not exercise the join of already-started tiles.
func TestLaunchSpawnFailureReturnsError(t *testing.T) {
	spec := tile.TileSpec{Format: tile.RGBA8888, TileWidth: 4, TileHeight: 4, StrideBytes: 4 * 4}
	grid := tile.GridDims{TilesX: 1, TilesY: 1}
	fb := tile.NewFramebuffer(4, 4, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // already done: every Acquire will fail immediately

	kernel := func(spec tile.TileSpec, tl tile.Tile) tile.Tile { return tl }

	_, _, err := launcher.Launch(ctx, spec, grid, fb, kernel)
	if err == nil {
		t.Fatal("expected spawn failure error, got nil")
	}
}
