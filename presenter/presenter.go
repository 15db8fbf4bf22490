// Package presenter defines the narrow interface the core depends on for
// everything outside its scope: sprites, textures and the camera. Nothing
// in this module implements a graphics toolkit; package ebitenpresenter
// provides one concrete adapter, and package coordinator depends only on
// the interface here (package gate does not use it at all).
package presenter

// GridHandle and SpriteHandle are opaque tokens a Presenter hands back to
// its caller and later receives again; their concrete type is up to the
// implementation.
type GridHandle any
type SpriteHandle any

// Presenter is the minimum surface the core needs from a graphics toolkit.
// Every method may be called only from the UI thread except UIDispatch
// itself, whose job is to get a closure onto that thread.
type Presenter interface {
	// VisibleSize returns the current viewport size in logical pixels.
	VisibleSize() (w, h float64)

	// ContentScale returns the logical-to-physical pixel scale factor.
	ContentScale() float64

	// UIDispatch guarantees fn runs on the single UI thread. Implementations
	// must run dispatched closures serially; callers rely on that for the
	// reentrant-safety of per-tile completion closures.
	UIDispatch(fn func())

	// CreateGrid allocates a new tile-sprite grid container, initially
	// hidden.
	CreateGrid() GridHandle

	// CreateTileSprite adds one sprite to grid, seeded with initialPixels
	// (width w, height h, RGBA8888), hidden until first upload.
	CreateTileSprite(grid GridHandle, initialPixels []byte, w, h int) SpriteHandle

	// PositionSprite places sprite at worldXY with world size worldWH and
	// sets its visibility.
	PositionSprite(sprite SpriteHandle, worldX, worldY, worldW, worldH float64, visible bool)

	// UploadTileTexture replaces sprite's texture pixels (width w, height h,
	// RGBA8888, already vertically flipped by the caller).
	UploadTileTexture(sprite SpriteHandle, pixels []byte, w, h int)

	// SetGridVisible shows or hides every sprite in grid.
	SetGridVisible(grid GridHandle, visible bool)

	// SetGridZOrder sets grid's draw order; higher draws in front.
	SetGridZOrder(grid GridHandle, z int)

	// SetOrthographic reconfigures the camera's orthographic projection.
	SetOrthographic(width, height, near, far float64)

	// SetCameraPosition moves the camera to worldXY.
	SetCameraPosition(worldX, worldY float64)
}

// CheckerboardPixel returns the placeholder colour for pixel (x, y) of a new
// sprite's initial texture: red for selected cells, green otherwise. The
// selection predicate — "both odd OR both even" — is a plain checkerboard
// written in an odd way; see DESIGN.md.
func CheckerboardPixel(x, y int) (r, g, b, a uint8) {
	xOdd, yOdd := x&1, y&1
	selected := (xOdd&yOdd != 0) || (xOdd == 0 && yOdd == 0)
	if selected {
		return 255, 0, 0, 255
	}
	return 0, 255, 0, 255
}

// CheckerboardTexture renders a w x h RGBA8888 buffer of CheckerboardPixel
// values, for seeding a sprite's initial texture.
func CheckerboardTexture(w, h int) []byte {
	out := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, a := CheckerboardPixel(x, y)
			o := (y*w + x) * 4
			out[o+0], out[o+1], out[o+2], out[o+3] = r, g, b, a
		}
	}
	return out
}
