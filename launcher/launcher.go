// Package launcher partitions a framebuffer into tiles and dispatches one
// compute task per tile against a bounded worker pool, returning handles
// that complete as individual tiles finish.
//
// Launch is the contract the rest of the module builds on: the Mandelbrot
// kernel in package mandelbrot, and the launcher-waiter protocol in package
// gate, both treat Launch as the only way tile pixels get produced.
package launcher

import (
	"context"
	"errors"
	"fmt"

	internal "github.com/fractaltile/asynctiled/launcher/internal"
	"github.com/fractaltile/asynctiled/tile"
)

// ErrSpawnFailed is the sentinel wrapped when Launch or LaunchOwning fails
// to acquire a worker slot for a tile, most commonly because ctx was
// cancelled while waiting.
var ErrSpawnFailed = errors.New("launcher: spawn failed")

// Kernel is a per-tile pixel producer. It receives the shared TileSpec and
// its own Tile view and returns a reference to that same tile on
// completion — by convention the same value it was given, since a Tile's
// Pix slice aliases the framebuffer in place.
type Kernel func(spec tile.TileSpec, t tile.Tile) tile.Tile

// Handle is an independently awaitable per-tile completion signal. Receive
// from it exactly once to obtain the finished tile.
type Handle = <-chan tile.Tile

// Launch clears any existing tile views, partitions fb into
// grid.TilesX*grid.TilesY tiles in row-major order, and spawns one
// asynchronous task per tile against a bounded worker pool. It returns the
// ordered tile vector and one completion handle per tile, in launch order.
//
// Tiles in the returned vector alias disjoint regions of fb provided
// spec.StrideBytes >= spec.TileWidth*4 and the grid's physical extent fits
// within fb. Kernel correctness (not writing outside its tile slice) is the
// kernel's obligation — Launch neither detects nor prevents such
// corruption.
//
// A failure to acquire a worker slot (ctx cancelled while waiting) is
// fatal: Launch stops launching further tiles, waits for every tile
// already started to finish (so no kernel goroutine is left running after
// Launch returns), and returns the wrapped error. Callers should treat any
// spawn failure by aborting the generation and leaving the previous one
// visible.
func Launch(ctx context.Context, spec tile.TileSpec, grid tile.GridDims, fb *tile.Framebuffer, kernel Kernel) ([]tile.Tile, []Handle, error) {
	if err := spec.Validate(); err != nil {
		return nil, nil, err
	}

	tiles := tile.BuildTiles(spec, grid, fb)
	handles := make([]Handle, 0, len(tiles))
	pool := internal.NewPool()

	for i, t := range tiles {
		h, err := internal.Dispatch(ctx, pool, spec, t, internal.Kernel(kernel))
		if err != nil {
			joinAll(handles)
			return nil, nil, fmt.Errorf("launcher: tile %d/%d: %w: %w", i, len(tiles), ErrSpawnFailed, err)
		}
		handles = append(handles, h)
	}
	return tiles, handles, nil
}

// joinAll drains every handle already issued, discarding results. Used on
// the spawn-failure path so no kernel goroutine outlives a failed Launch
// call.
func joinAll(handles []Handle) {
	for _, h := range handles {
		<-h
	}
}

// OwningKernel is the owning-tile counterpart of Kernel (Design Notes'
// "alternate owning tile variant"): it receives a tile that allocated its
// own pixel backing store rather than aliasing a shared framebuffer.
type OwningKernel func(spec tile.TileSpec, t *tile.OwningTile) *tile.OwningTile

// OwningHandle is the owning-tile counterpart of Handle.
type OwningHandle = <-chan *tile.OwningTile

// LaunchOwning partitions a grid.TilesX x grid.TilesY region into
// individually allocated OwningTile values and spawns one task per tile
// against a bounded worker pool, exactly as Launch does for the
// shared-framebuffer case. Not used by package coordinator's hot path —
// kept as the strategy the Design Notes call for when a tile's lifetime
// must outlive the framebuffer generation it was cut from.
func LaunchOwning(ctx context.Context, spec tile.TileSpec, grid tile.GridDims, kernel OwningKernel) ([]*tile.OwningTile, []OwningHandle, error) {
	if err := spec.Validate(); err != nil {
		return nil, nil, err
	}

	pool := internal.NewPool()
	tiles := make([]*tile.OwningTile, 0, grid.Count())
	handles := make([]OwningHandle, 0, grid.Count())

	for ty := 0; ty < grid.TilesY; ty++ {
		for tx := 0; tx < grid.TilesX; tx++ {
			if err := pool.Acquire(ctx); err != nil {
				joinAllOwning(handles)
				return nil, nil, fmt.Errorf("launcher: owning tile %d/%d: %w: %w", len(handles), grid.Count(), ErrSpawnFailed, err)
			}
			ot := tile.NewOwningTile(tx, ty, spec)
			done := make(chan *tile.OwningTile, 1)
			go func(ot *tile.OwningTile) {
				defer pool.Release()
				done <- kernel(spec, ot)
			}(ot)
			tiles = append(tiles, ot)
			handles = append(handles, done)
		}
	}
	return tiles, handles, nil
}

// joinAllOwning is joinAll's owning-tile counterpart.
func joinAllOwning(handles []OwningHandle) {
	for _, h := range handles {
		<-h
	}
}
