// Package coordinator implements the ZoomCoordinator: the double-buffered
// owner of two zoom-level generations that serves pan and zoom intents,
// starts a new generation through the TransactionGate protocol, and
// marshals per-tile completions to a presenter.
package coordinator

import (
	"context"
	"log/slog"

	"github.com/fractaltile/asynctiled/gate"
	"github.com/fractaltile/asynctiled/launcher"
	"github.com/fractaltile/asynctiled/mandelbrot"
	"github.com/fractaltile/asynctiled/presenter"
	"github.com/fractaltile/asynctiled/tile"
)

// Coordinator owns the two ZoomLevel slots, the process-wide transaction
// gate, and the viewport size. Slot = transaction mod 2.
type Coordinator struct {
	pres presenter.Presenter
	gt   gate.Gate

	levels  [2]*gate.Level
	grids   [2]presenter.GridHandle
	sprites [2][]presenter.SpriteHandle
	rects   [2][]spriteRect

	spec            tile.TileSpec
	grid            tile.GridDims
	maxIters        int
	cachelineLength int

	visibleW, visibleH float64

	log *slog.Logger
}

// New constructs a Coordinator. Call Init before any other method.
func New(pres presenter.Presenter, spec tile.TileSpec, grid tile.GridDims, maxIters, cachelineLength int, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{
		pres:            pres,
		spec:            spec,
		grid:            grid,
		maxIters:        maxIters,
		cachelineLength: cachelineLength,
		log:             log.With("component", "coordinator"),
	}
}

// Init chooses the initial region, builds both slots' presenter grids, and
// starts generation 0 on slot 0. Slot 1 starts hidden and without a
// generation of its own until the first EndPan or zoom call.
func (c *Coordinator) Init(visibleW, visibleH float64) {
	c.visibleW, c.visibleH = visibleW, visibleH
	region := initialRegion(visibleW, visibleH)

	for slot := range c.levels {
		c.levels[slot] = &gate.Level{Region: region}
		c.grids[slot] = c.pres.CreateGrid()
		c.sprites[slot] = c.createSprites(c.grids[slot], region)
		c.positionSprites(slot, region)
	}
	c.pres.SetGridVisible(c.grids[1], false)
	c.pres.SetGridZOrder(c.grids[0], 1)

	c.pres.SetOrthographic(region.Width, region.Height, -1, 1)
	c.pres.SetCameraPosition(region.CenterX, region.CenterY)

	c.updateTilesForRegion(0, c.gt.Load())
}

// currentSlot returns the slot currently serving pixels: newest mod 2.
func (c *Coordinator) currentSlot() int { return int(c.gt.Load()) % 2 }

// Pan updates the current slot's region centre by the screen-space delta
// and moves the camera, without starting a new generation — the
// in-flight/visible tiles for this slot keep showing, possibly misaligned,
// until EndPan.
func (c *Coordinator) Pan(dxScreen, dyScreen float64) {
	level := c.levels[c.currentSlot()]
	dxWorld, dyWorld := screenDeltaToWorld(dxScreen, dyScreen, level.Region.Width, level.Region.Height, c.visibleW, c.visibleH)
	level.Region.CenterX -= dxWorld
	level.Region.CenterY -= dyWorld
	c.pres.SetCameraPosition(level.Region.CenterX, level.Region.CenterY)
}

// EndPan applies the final screen-space delta, bumps the transaction, and
// starts a new generation on the opposite slot with the resulting region.
func (c *Coordinator) EndPan(dxScreen, dyScreen float64) {
	cur := c.levels[c.currentSlot()]
	dxWorld, dyWorld := screenDeltaToWorld(dxScreen, dyScreen, cur.Region.Width, cur.Region.Height, c.visibleW, c.visibleH)

	next := cur.Region
	next.CenterX -= dxWorld
	next.CenterY -= dyWorld

	txn := c.gt.Bump()
	slot := int(txn) % 2
	c.levels[slot].Region = next

	c.pres.SetCameraPosition(next.CenterX, next.CenterY)
	c.updateTilesForRegion(slot, txn)
}

// ZoomIn halves the current region's extents about its centre and starts a
// new generation on the opposite slot.
func (c *Coordinator) ZoomIn() { c.zoom(0.5) }

// ZoomOut doubles the current region's extents about its centre and starts
// a new generation on the opposite slot.
func (c *Coordinator) ZoomOut() { c.zoom(2.0) }

func (c *Coordinator) zoom(factor float64) {
	cur := c.levels[c.currentSlot()]
	next := cur.Region
	next.Width *= factor
	next.Height *= factor

	txn := c.gt.Bump()
	slot := int(txn) % 2
	c.levels[slot].Region = next

	c.pres.SetOrthographic(next.Width, next.Height, -1, 1)
	c.updateTilesForRegion(slot, txn)
}

// updateTilesForRegion positions slot's tile sprites to cover its level's
// current region, then starts a new generation through the TransactionGate.
func (c *Coordinator) updateTilesForRegion(slot int, txn uint16) {
	level := c.levels[slot]
	c.positionSprites(slot, level.Region)
	c.pres.SetGridVisible(c.grids[slot], true)

	prev := 1 - slot
	hooks := gate.Hooks{
		NewKernel: func(t uint16) launcher.Kernel {
			left, right, top, bottom := level.Region.Bounds()
			w, h := tile.PixelDims(c.spec, c.grid)
			bounds := mandelbrot.Bounds{Left: left, Right: right, Top: top, Bottom: bottom}
			return mandelbrot.New(bounds, c.maxIters, w, h, t, c.gt.Raw())
		},
		Dispatch: c.pres.UIDispatch,
		Upload: func(l *gate.Level, t tile.Tile) {
			c.uploadTile(slot, l, t)
		},
		HideOutgoing: func() {
			c.pres.SetGridVisible(c.grids[prev], false)
			c.pres.SetGridVisible(c.grids[slot], true)
			c.pres.SetGridZOrder(c.grids[slot], zOrderFor(txn))
		},
		Log: c.log,
	}
	c.gt.StartGeneration(context.Background(), level, txn, c.spec, c.grid, c.cachelineLength, hooks)
}

// spriteRect remembers a tile sprite's current world placement, so a
// completion upload can flip it visible without recomputing its position.
type spriteRect struct {
	x, y, w, h float64
}

// zOrderFor derives a monotonically increasing z-order from a transaction
// id, so each new generation's grid draws in front of the one before it.
func zOrderFor(txn uint16) int { return int(txn) + 1 }

// createSprites builds grid's initial sprites, seeded with the checkerboard
// placeholder and hidden until their first upload. It does not position
// them; positionSprites does that.
func (c *Coordinator) createSprites(grid presenter.GridHandle, region tile.Region2D) []presenter.SpriteHandle {
	tw, th := int(c.spec.TileWidth), int(c.spec.TileHeight)
	placeholder := presenter.CheckerboardTexture(tw, th)

	sprites := make([]presenter.SpriteHandle, c.grid.Count())
	for i := range sprites {
		sprites[i] = c.pres.CreateTileSprite(grid, placeholder, tw, th)
	}
	return sprites
}

// positionSprites recomputes slot's sprite rects for a (possibly new)
// region and repositions every sprite, hiding each one and leaving its
// texture contents untouched — a freshly (re)positioned sprite stays hidden
// until a tile upload marks it visible again.
func (c *Coordinator) positionSprites(slot int, region tile.Region2D) {
	left, _, top, _ := region.Bounds()
	worldW := region.Width / float64(c.grid.TilesX)
	worldH := region.Height / float64(c.grid.TilesY)

	rects := make([]spriteRect, c.grid.Count())
	for ty := 0; ty < c.grid.TilesY; ty++ {
		for tx := 0; tx < c.grid.TilesX; tx++ {
			i := ty*c.grid.TilesX + tx
			rects[i] = spriteRect{
				x: left + float64(tx)*worldW,
				y: top - float64(ty+1)*worldH,
				w: worldW,
				h: worldH,
			}
			c.pres.PositionSprite(c.sprites[slot][i], rects[i].x, rects[i].y, rects[i].w, rects[i].h, false)
		}
	}
	c.rects[slot] = rects
}

// uploadTile copies t's pixels, vertically flipped, into slot's matching
// sprite texture — kernel output is top-down image coordinates, the
// presenter's texture is bottom-up — and marks that sprite visible.
func (c *Coordinator) uploadTile(slot int, level *gate.Level, t tile.Tile) {
	tw, th := int(c.spec.TileWidth), int(c.spec.TileHeight)
	flipped := make([]byte, tw*th*4)
	for y := 0; y < th; y++ {
		row := t.RowAddress(c.spec, y)
		copy(flipped[(th-1-y)*tw*4:(th-y)*tw*4], row[:tw*4])
	}
	i := t.TY*c.grid.TilesX + t.TX
	sprite := c.sprites[slot][i]
	c.pres.UploadTileTexture(sprite, flipped, tw, th)
	r := c.rects[slot][i]
	c.pres.PositionSprite(sprite, r.x, r.y, r.w, r.h, true)
}

// Transaction returns the newest transaction id, the slot it selects, and
// that slot's current region — enough for a caller to assert on the
// outcome of a Pan/EndPan/ZoomIn/ZoomOut call.
func (c *Coordinator) Transaction() (txn uint16, slot int, region tile.Region2D) {
	txn = c.gt.Load()
	slot = int(txn) % 2
	return txn, slot, c.levels[slot].Region
}

// GridHandle returns the presenter grid handle backing slot (0 or 1),
// letting a caller assert on that grid's visibility after a generation
// completes.
func (c *Coordinator) GridHandle(slot int) presenter.GridHandle { return c.grids[slot] }

// Shutdown waits for every in-flight generation on both slots to finish.
func (c *Coordinator) Shutdown() {
	for _, level := range c.levels {
		if level != nil {
			level.Shutdown()
		}
	}
}
