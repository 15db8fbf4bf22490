package coordinator

import "github.com/fractaltile/asynctiled/tile"

// screenDeltaToWorld converts a screen-space drag delta (logical pixels)
// to a world-space delta, scaling each axis independently by the current
// region's extent over the visible viewport's extent.
func screenDeltaToWorld(dxScreen, dyScreen, regionW, regionH, visibleW, visibleH float64) (dxWorld, dyWorld float64) {
	return dxScreen * (regionW / visibleW), dyScreen * (regionH / visibleH)
}

// initialRegion picks the startup view rectangle: centred on the classical
// Mandelbrot interest area, aspect-corrected to visibleW/visibleH so both
// dimensions are at least 3.0.
func initialRegion(visibleW, visibleH float64) tile.Region2D {
	aspect := visibleW / visibleH
	width, height := 3.0, 3.0
	if aspect >= 1.0 {
		width = 3.0 * aspect
	} else {
		height = 3.0 / aspect
	}
	return tile.Region2D{CenterX: -0.5, CenterY: 0, Width: width, Height: height}
}
