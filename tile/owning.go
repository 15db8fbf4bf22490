package tile

import "sync/atomic"

// owningTileCreated and owningTileDestroyed track lifetime of OwningTile
// values, mirroring the created/destroyed counters the original
// OwningTile2D<PixelType> kept per pixel type. Go has no destructors, so
// Release() must be called explicitly; the counters let tests (and callers
// with their own leak detection) verify every OwningTile was released.
var (
	owningTileCreated   atomic.Uint64
	owningTileDestroyed atomic.Uint64
)

// OwningTile is the alternate tile strategy from the Design Notes: a tile
// that allocates and owns its own pixel backing store instead of aliasing a
// shared framebuffer. Useful when a tile's lifetime needs to outlive the
// framebuffer generation it was cut from.
type OwningTile struct {
	TX, TY   int
	pix      []byte
	released bool
}

// NewOwningTile allocates a tile-sized pixel buffer for grid position (tx, ty).
func NewOwningTile(tx, ty int, spec TileSpec) *OwningTile {
	owningTileCreated.Add(1)
	return &OwningTile{
		TX:  tx,
		TY:  ty,
		pix: make([]byte, int(spec.TileHeight)*int(spec.TileWidth)*pixelSize),
	}
}

// Pix returns the tile's own pixel bytes, tightly packed (no stride padding:
// stride equals TileWidth*4 for an owning tile).
func (t *OwningTile) Pix() []byte { return t.pix }

// RowAddress returns the byte slice for scanline y of this tile's pixels.
func (t *OwningTile) RowAddress(spec TileSpec, y int) []byte {
	rowBytes := int(spec.TileWidth) * pixelSize
	off := y * rowBytes
	return t.pix[off : off+rowBytes]
}

// Release frees the tile's backing store and records it in the destroyed
// counter. Idempotent.
func (t *OwningTile) Release() {
	if t.released {
		return
	}
	t.released = true
	t.pix = nil
	owningTileDestroyed.Add(1)
}

// OwningTileStats reports the lifetime created/destroyed counts across all
// OwningTile values, for leak detection in tests and long-running callers.
func OwningTileStats() (created, destroyed uint64) {
	return owningTileCreated.Load(), owningTileDestroyed.Load()
}
