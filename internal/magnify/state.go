package magnify

import (
	"github.com/1broseidon/mgnfx/internal/geom"
)

// Viewport is the magnified region: its size, its zoom and where the
// pointer is. Compositor and presenter both read one copy per frame.
type Viewport struct {
	Width   int
	Height  int
	Scale   float64
	CursorX int
	CursorY int
}

// Rect is the on-screen region centered on the cursor.
func (v Viewport) Rect() geom.Rect {
	return geom.Centered(v.CursorX, v.CursorY, v.Width, v.Height)
}

// Phase represents where the scheduler is in the chord/grab gesture
type Phase int

const (
	// PhaseIdle means no modifier is held
	PhaseIdle Phase = iota
	// PhaseChording means some but not all modifiers are held
	PhaseChording
	// PhaseGrabbed means the full chord is held and input is grabbed
	PhaseGrabbed
	// PhaseDragging means the region is being resized with the mouse
	PhaseDragging
)

// String returns the string representation of the phase
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseChording:
		return "chording"
	case PhaseGrabbed:
		return "grabbed"
	case PhaseDragging:
		return "dragging"
	default:
		return "unknown"
	}
}

// ChordTracker counts distinct held modifiers.
type ChordTracker struct {
	HeldCount     int
	RequiredCount int
	Grabbed       bool

	held map[int]struct{}
}

// NewChordTracker tracks a chord of required keys.
func NewChordTracker(required int) *ChordTracker {
	return &ChordTracker{
		RequiredCount: required,
		held:          make(map[int]struct{}, required),
	}
}

// Press records modifier index i and reports whether the chord just became
// complete. Pressing an already held modifier does nothing.
func (c *ChordTracker) Press(i int) bool {
	if _, ok := c.held[i]; ok {
		return false
	}
	c.held[i] = struct{}{}
	c.HeldCount++
	return c.HeldCount == c.RequiredCount
}

// Reset forgets every held modifier and the grab.
func (c *ChordTracker) Reset() {
	c.HeldCount = 0
	c.Grabbed = false
	clear(c.held)
}

// DragState is the anchor of a mouse resize.
type DragState struct {
	Active  bool
	AnchorX int
	AnchorY int
}

// Start anchors a drag at (x, y).
func (d *DragState) Start(x, y int) {
	d.Active = true
	d.AnchorX = x
	d.AnchorY = y
}

// End stops the drag.
func (d *DragState) End() {
	*d = DragState{}
}
