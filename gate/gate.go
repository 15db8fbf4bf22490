// Package gate implements the cancel-and-drain protocol: a process-wide
// monotonic transaction counter plus, per zoom-level slot, an in-flight
// tile counter and a serialising lock that together let a UI thread cancel
// and drain a generation's compute without blocking and without racing the
// buffers those workers write.
package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/fractaltile/asynctiled/gate/internal"
	"github.com/fractaltile/asynctiled/launcher"
	"github.com/fractaltile/asynctiled/tile"
)

// ErrLaunchFailed is the sentinel wrapped by runLauncherWaiter when
// launcher.Launch fails to spawn a generation's tiles. Callers can
// distinguish this from other launcher-waiter errors with errors.Is.
var ErrLaunchFailed = errors.New("gate: launch failed")

// drainPollInterval is how often the launcher-waiter's drain phase checks
// whether the previous generation's tiles have all reached the UI thread.
const drainPollInterval = time.Millisecond

// Gate is the process-wide newest-transaction counter. Its owner (the
// coordinator) holds it as an explicit value and hands its counter to the
// kernels via Raw, rather than it living as a package-level singleton.
type Gate struct {
	newest atomic.Uint32
}

// Load returns the current newest transaction id.
func (g *Gate) Load() uint16 { return uint16(g.newest.Load()) }

// Raw returns the underlying atomic counter, for kernels (package
// mandelbrot) that poll it directly between scanlines rather than going
// through a Gate method call on every iteration.
func (g *Gate) Raw() *atomic.Uint32 { return &g.newest }

// Bump atomically increments the transaction id (wrapping at 16 bits) and
// returns the new value. This is step 1 of the start-of-generation
// protocol.
func (g *Gate) Bump() uint16 {
	for {
		old := g.newest.Load()
		next := uint16(old) + 1
		if g.newest.CompareAndSwap(old, uint32(next)) {
			return next
		}
	}
}

// Level owns one generation's worth of state: region, framebuffer, tile
// views, completion handles, and the transaction/in-flight bookkeeping that
// makes the cancel-and-drain protocol safe.
type Level struct {
	// Region is read by a launcher-waiter once, when it builds the
	// generation's kernel after the drain phase, and written only from the
	// UI thread via Pan, EndPan, ZoomIn and ZoomOut in package coordinator.
	Region tile.Region2D

	FB     *tile.Framebuffer
	Tiles  []tile.Tile
	Grid   tile.GridDims
	Spec   tile.TileSpec

	// Txn is the transaction id this generation was stamped with.
	Txn uint16

	// InFlight is incremented once, at launcher entry, to the tile count,
	// and decremented once per completed tile on the UI thread. While it is
	// above zero, compute workers may still be writing into FB.
	InFlight atomic.Int64

	// Updated counts tiles already pushed to the presenter this
	// generation.
	Updated int

	// GenerationID correlates this generation's log lines and, optionally,
	// telemetry events.
	GenerationID uuid.UUID

	mu       sync.Mutex // launcherLock: serialises launcher-waiters for this slot
	statuses internal.StatusRing

	// Presenter handles are opaque to this package, which never reads or
	// sets them; package coordinator tracks its grids and sprites itself.
	GridHandle    any
	SpriteHandles []any
}

// Hooks are the callbacks a launcher-waiter invokes on the UI thread for
// each completed tile, and the kernel factory it uses to build this
// generation's per-tile work. Supplied by package coordinator, which is the
// only caller that knows about the presenter and the Mandelbrot kernel.
type Hooks struct {
	// NewKernel builds the launcher.Kernel for this generation, already
	// closed over its cancellation check against g.
	NewKernel func(txn uint16) launcher.Kernel

	// Dispatch runs fn as a UI-thread closure. Implementations must run
	// closures serially: either synchronously (as the tests do) or queued
	// onto a single consumer goroutine (as the ebiten presenter used by the
	// CLI's interactive mode does).
	Dispatch func(fn func())

	// Upload copies a completed tile's pixels (with vertical flip) into
	// its sprite and marks the sprite visible. Called from inside a
	// Dispatch closure, so it always runs on the UI thread.
	Upload func(level *Level, t tile.Tile)

	// HideOutgoing hides the previous slot's entire tile grid once every
	// tile in this generation has been uploaded.
	HideOutgoing func()

	Log *slog.Logger
}

// StartGeneration implements the start-of-generation protocol, except for
// bumping g and picking the slot, which the caller has already done by the
// time it calls StartGeneration — the coordinator needs the new
// transaction id before it can decide which of its two Levels to pass in.
//
// It stamps level.Txn, resets level.Updated, and spawns the launcher-waiter
// goroutine. StartGeneration itself never blocks.
func (g *Gate) StartGeneration(ctx context.Context, level *Level, txn uint16, spec tile.TileSpec, grid tile.GridDims, cachelineLength int, hooks Hooks) {
	level.Txn = txn
	level.Updated = 0
	level.GenerationID = uuid.New()

	done := make(chan struct{})
	level.statuses.Push(done)

	go func() {
		defer close(done)
		if err := g.runLauncherWaiter(ctx, level, txn, spec, grid, cachelineLength, hooks); err != nil {
			log := hooks.Log
			if log == nil {
				log = slog.Default()
			}
			log.Error("launcher-waiter aborted", "txn", txn, "generation", level.GenerationID, "error", err)
		}
	}()
}

// runLauncherWaiter implements the launcher-waiter protocol: drain the
// previous generation, allocate, launch, then await and dispatch each
// tile's completion in order.
func (g *Gate) runLauncherWaiter(ctx context.Context, level *Level, txn uint16, spec tile.TileSpec, grid tile.GridDims, cachelineLength int, hooks Hooks) error {
	level.mu.Lock()
	defer level.mu.Unlock()

	// Drain phase: wait for the previous generation's tiles to reach zero.
	for level.InFlight.Load() > 0 {
		if g.Load() != txn {
			return nil // abandoned: a newer generation superseded us before we ever launched
		}
		time.Sleep(drainPollInterval)
	}
	if g.Load() != txn {
		return nil
	}

	// Allocate/resize the framebuffer for the current grid dimensions.
	w, h := tile.PixelDims(spec, grid)
	level.FB = tile.NewFramebuffer(w, h, cachelineLength)
	level.Grid = grid
	level.Spec = spec

	// Launch.
	kernel := hooks.NewKernel(txn)
	tiles, handles, err := launcher.Launch(ctx, spec, grid, level.FB, kernel)
	if err != nil {
		return fmt.Errorf("gate: txn %d: %w: %w", txn, ErrLaunchFailed, err)
	}
	level.Tiles = tiles
	level.InFlight.Store(int64(len(tiles)))

	// Await each handle in order, dispatching per-tile completions to the
	// UI thread.
	for i, h := range handles {
		if g.Load() != txn {
			// Superseded: await everything remaining (they self-abort
			// quickly or finish normally), then zero the counter and exit.
			for _, rest := range handles[i:] {
				<-rest
			}
			level.InFlight.Store(0)
			return nil
		}
		t := <-h
		hooks.Dispatch(func() {
			g.endOfTile(level, txn, t, hooks)
		})
	}
	return nil
}

// endOfTile uploads a completed tile's pixels and, once every tile in the
// generation has landed, swaps the outgoing slot's grid out of view. It
// always runs inside a Dispatch closure, i.e. on the UI thread.
func (g *Gate) endOfTile(level *Level, txn uint16, t tile.Tile, hooks Hooks) {
	if g.Load() == txn {
		hooks.Upload(level, t)
		level.Updated++
		if level.Updated == len(level.Tiles) {
			hooks.HideOutgoing()
		}
	}
	if level.InFlight.Load() <= 0 {
		panic("gate: tilesInFlight decremented past zero")
	}
	level.InFlight.Add(-1)
}

// Shutdown waits for every launcher-waiter this Level has started in its
// most recent generations (bounded by the launchStatuses ring) to finish,
// so a caller tearing down doesn't race a background goroutine still
// writing into a framebuffer it's about to free.
func (level *Level) Shutdown() {
	level.statuses.Wait()
}
