package tile

// Region2D is a view rectangle in world (complex-plane) coordinates.
// Y is up: top = greater Y. Rotation is unused but reserved for a future
// kernel; callers must leave it at zero.
type Region2D struct {
	CenterX, CenterY float64
	Width, Height    float64
	Rotation         float64 // reserved, must be 0
}

// Bounds returns the (left, right, top, bottom) extents of the region.
func (r Region2D) Bounds() (left, right, top, bottom float64) {
	halfW, halfH := r.Width/2, r.Height/2
	return r.CenterX - halfW, r.CenterX + halfW, r.CenterY + halfH, r.CenterY - halfH
}
