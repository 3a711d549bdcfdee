package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
)

// Grabber takes exclusive pointer and keyboard grabs on the overlay so the
// gesture keys stop reaching other clients.
type Grabber struct {
	conn   *Connection
	window xproto.Window
}

func NewGrabber(conn *Connection, window xproto.Window) *Grabber {
	return &Grabber{conn: conn, window: window}
}

// Grab acquires both grabs or neither.
func (g *Grabber) Grab() error {
	c := g.conn.Conn()
	ptr, err := xproto.GrabPointer(c, true, g.window, 0,
		xproto.GrabModeAsync, xproto.GrabModeAsync,
		xproto.WindowNone, xproto.CursorNone, xproto.TimeCurrentTime).Reply()
	if err != nil {
		return fmt.Errorf("failed to grab pointer: %w", err)
	}
	if ptr.Status != xproto.GrabStatusSuccess {
		return fmt.Errorf("failed to grab pointer: %s", grabStatus(ptr.Status))
	}

	kbd, err := xproto.GrabKeyboard(c, true, g.window, xproto.TimeCurrentTime,
		xproto.GrabModeAsync, xproto.GrabModeAsync).Reply()
	if err == nil && kbd.Status != xproto.GrabStatusSuccess {
		err = fmt.Errorf("%s", grabStatus(kbd.Status))
	}
	if err != nil {
		xproto.UngrabPointer(c, xproto.TimeCurrentTime)
		return fmt.Errorf("failed to grab keyboard: %w", err)
	}
	return nil
}

// Ungrab releases both grabs. Releasing a grab that is not held is a no-op.
func (g *Grabber) Ungrab() {
	c := g.conn.Conn()
	xproto.UngrabPointer(c, xproto.TimeCurrentTime)
	xproto.UngrabKeyboard(c, xproto.TimeCurrentTime)
}

func grabStatus(status byte) string {
	switch status {
	case xproto.GrabStatusAlreadyGrabbed:
		return "already grabbed"
	case xproto.GrabStatusInvalidTime:
		return "invalid time"
	case xproto.GrabStatusNotViewable:
		return "not viewable"
	case xproto.GrabStatusFrozen:
		return "frozen"
	default:
		return fmt.Sprintf("status %d", status)
	}
}
