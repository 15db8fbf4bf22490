package launcher_test

import (
	"context"
	"testing"

	"github.com/fractaltile/asynctiled/launcher"
	"github.com/fractaltile/asynctiled/tile"
)

// --- Law 8: Owning-tile balance ---

// TestLaunchOwningBalance checks that after LaunchOwning completes and
// every returned tile is released, created == destroyed.
func TestLaunchOwningBalance(t *testing.T) {
	before, _ := tile.OwningTileStats()

	spec := tile.TileSpec{Format: tile.RGBA8888, TileWidth: 4, TileHeight: 4, StrideBytes: 4 * 4}
	grid := tile.GridDims{TilesX: 3, TilesY: 3}

	kernel := func(spec tile.TileSpec, t *tile.OwningTile) *tile.OwningTile {
		for y := 0; y < int(spec.TileHeight); y++ {
			row := t.RowAddress(spec, y)
			for i := range row {
				row[i] = 0xAA
			}
		}
		return t
	}

	tiles, handles, err := launcher.LaunchOwning(context.Background(), spec, grid, kernel)
	if err != nil {
		t.Fatalf("LaunchOwning: %v", err)
	}
	if len(tiles) != grid.Count() {
		t.Fatalf("got %d tiles, want %d", len(tiles), grid.Count())
	}

	for _, h := range handles {
		got := <-h
		for _, b := range got.Pix() {
			if b != 0xAA {
				t.Fatalf("tile (%d,%d): expected pixel byte 0xAA, got %#x", got.TX, got.TY, b)
			}
		}
	}

	for _, ot := range tiles {
		ot.Release()
	}

	afterCreated, afterDestroyed := tile.OwningTileStats()
	createdThisRun := afterCreated - before
	if createdThisRun != uint64(grid.Count()) {
		t.Fatalf("created %d owning tiles this run, want %d", createdThisRun, grid.Count())
	}
	if afterCreated != afterDestroyed {
		t.Fatalf("created=%d destroyed=%d after releasing every tile, want equal", afterCreated, afterDestroyed)
	}
}
