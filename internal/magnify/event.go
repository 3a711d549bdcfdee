package magnify

import (
	"fmt"

	"github.com/1broseidon/mgnfx/internal/config"
)

// Event is anything the main loop can wake up for. The concrete types below
// are the complete set; dispatch is a type switch.
type Event interface {
	event()
}

// KeyState is the transition reported for a key.
type KeyState uint8

const (
	KeyReleased KeyState = iota
	KeyPressed
)

func (s KeyState) String() string {
	switch s {
	case KeyReleased:
		return "released"
	case KeyPressed:
		return "pressed"
	default:
		return "unknown"
	}
}

// Damage reports that some part of the screen changed.
type Damage struct{}

// Key is a keyboard transition. Auto-repeat is never delivered.
type Key struct {
	Code  config.KeyCode
	State KeyState
}

// PointerMotion is relative or absolute pointer movement. The scheduler
// reads the cursor position from the display server, so the deltas are
// informational.
type PointerMotion struct {
	DX float64
	DY float64
}

// PointerButton is a mouse button transition.
type PointerButton struct {
	Button  config.KeyCode
	Pressed bool
}

// PointerAxis is a vertical scroll. Positive values scroll down.
type PointerAxis struct {
	Vertical float64
}

// GeometryChange reports a new root window extent.
type GeometryChange struct {
	Width  int
	Height int
}

// Presented is the completion signal for the final blit to the overlay.
type Presented struct{}

// ConfigChanged carries a reloaded configuration.
type ConfigChanged struct {
	Config *config.Config
}

// Other is any display event the loop does not act on.
type Other struct {
	Name string
}

func (Damage) event()         {}
func (Key) event()            {}
func (PointerMotion) event()  {}
func (PointerButton) event()  {}
func (PointerAxis) event()    {}
func (GeometryChange) event() {}
func (Presented) event()      {}
func (ConfigChanged) event()  {}
func (Other) event()          {}

func (k Key) String() string {
	return fmt.Sprintf("%s %s", k.Code, k.State)
}

// isInput reports whether ev came from an input device.
func isInput(ev Event) bool {
	switch ev.(type) {
	case Key, PointerMotion, PointerButton, PointerAxis:
		return true
	default:
		return false
	}
}
