package internal

import (
	"context"

	"github.com/fractaltile/asynctiled/tile"
)

// Kernel is duplicated here (rather than imported from the launcher
// package) to keep this internal package free of a dependency on its own
// importer.
type Kernel func(spec tile.TileSpec, t tile.Tile) tile.Tile

// Dispatch reserves a worker slot from pool and, once acquired, spawns a
// goroutine that runs kernel(spec, t) and sends the result on the returned
// channel. The channel is buffered so the send never blocks on a slow or
// absent reader — the goroutine that ran the kernel exits immediately after
// sending, regardless of when (or whether) the caller ever receives.
//
// A non-nil error means the pool slot could not be acquired (ctx done
// before one freed); no goroutine was spawned and the returned channel is
// nil.
func Dispatch(ctx context.Context, pool *Pool, spec tile.TileSpec, t tile.Tile, kernel Kernel) (<-chan tile.Tile, error) {
	if err := pool.Acquire(ctx); err != nil {
		return nil, err
	}
	done := make(chan tile.Tile, 1)
	go func() {
		defer pool.Release()
		done <- kernel(spec, t)
	}()
	return done, nil
}
