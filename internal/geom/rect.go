package geom

// Rect describes an axis-aligned rectangle in screen coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Empty reports whether the rectangle covers no pixels.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Intersects reports whether r and o share at least one pixel.
func (r Rect) Intersects(o Rect) bool {
	_, ok := Intersect(r, o)
	return ok
}

// Centered returns a w×h rectangle whose center is (cx, cy). For odd sizes
// the extra pixel falls on the right/bottom side.
func Centered(cx, cy, w, h int) Rect {
	return Rect{X: cx - w/2, Y: cy - h/2, Width: w, Height: h}
}

// Intersection is the overlap of a destination and a source rectangle.
// Offsets are relative to each rectangle's own origin so they can be passed
// directly as the src/dst offsets of a draw call.
type Intersection struct {
	SrcX   int
	SrcY   int
	DstX   int
	DstY   int
	Width  int
	Height int
}

// Intersect computes the overlap of dst and src. ok is false when either
// extent of the overlap is zero or negative.
func Intersect(dst, src Rect) (isect Intersection, ok bool) {
	x1 := MaxInt(dst.X, src.X)
	y1 := MaxInt(dst.Y, src.Y)
	x2 := MinInt(dst.X+dst.Width, src.X+src.Width)
	y2 := MinInt(dst.Y+dst.Height, src.Y+src.Height)

	isect = Intersection{
		SrcX:   x1 - src.X,
		SrcY:   y1 - src.Y,
		DstX:   x1 - dst.X,
		DstY:   y1 - dst.Y,
		Width:  x2 - x1,
		Height: y2 - y1,
	}
	if isect.Width <= 0 || isect.Height <= 0 {
		return Intersection{}, false
	}
	return isect, true
}
