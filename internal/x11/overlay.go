package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xfixes"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// WindowTitle names the overlay for window managers and pagers.
const WindowTitle = "Magnifier"

var overlayStates = []string{
	"_NET_WM_STATE_ABOVE",
	"_NET_WM_STATE_STAYS_ON_TOP",
	"_NET_WM_STATE_SKIP_TASKBAR",
	"_NET_WM_STATE_SKIP_PAGER",
	"_NET_WM_STATE_STICKY",
}

// Overlay is the input-transparent, always-on-top window the magnified
// image is presented in. It also owns the root damage object.
type Overlay struct {
	conn   *Connection
	win    *xwindow.Window
	damage damage.Damage
}

// Window returns the overlay window id.
func (o *Overlay) Window() xproto.Window {
	return o.win.Id
}

// NewOverlay creates and maps an override-redirect window covering the
// root and starts tracking damage on the root.
func NewOverlay(conn *Connection, width, height int) (*Overlay, error) {
	win, err := xwindow.Generate(conn.XUtil)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate overlay id: %w", err)
	}

	// Value list order follows the bit positions of the mask (low → high).
	// CwBackPixel comes before CwOverrideRedirect, so it must be first.
	if err := win.CreateChecked(conn.Root, 0, 0, width, height,
		xproto.CwBackPixel|xproto.CwOverrideRedirect, 0, 1); err != nil {
		return nil, fmt.Errorf("failed to create overlay window: %w", err)
	}

	o := &Overlay{conn: conn, win: win}
	if err := o.setProperties(); err != nil {
		win.Destroy()
		return nil, err
	}
	if err := o.clearInputShape(); err != nil {
		win.Destroy()
		return nil, err
	}

	c := conn.Conn()
	if err := randr.SelectInputChecked(c, win.Id, randr.NotifyMaskScreenChange).Check(); err != nil {
		win.Destroy()
		return nil, fmt.Errorf("failed to select screen change events: %w", err)
	}

	o.damage, err = damage.NewDamageId(c)
	if err != nil {
		win.Destroy()
		return nil, fmt.Errorf("failed to allocate damage id: %w", err)
	}
	if err := damage.CreateChecked(c, o.damage, xproto.Drawable(conn.Root),
		damage.ReportLevelRawRectangles).Check(); err != nil {
		win.Destroy()
		return nil, fmt.Errorf("failed to create damage object: %w", err)
	}

	win.Map()
	return o, nil
}

func (o *Overlay) setProperties() error {
	xu := o.conn.XUtil
	id := o.win.Id
	if err := icccm.WmNameSet(xu, id, WindowTitle); err != nil {
		return fmt.Errorf("failed to set WM_NAME: %w", err)
	}
	if err := ewmh.WmNameSet(xu, id, WindowTitle); err != nil {
		return fmt.Errorf("failed to set _NET_WM_NAME: %w", err)
	}
	if err := ewmh.WmWindowTypeSet(xu, id, []string{"_NET_WM_WINDOW_TYPE_UTILITY"}); err != nil {
		return fmt.Errorf("failed to set _NET_WM_WINDOW_TYPE: %w", err)
	}
	if err := ewmh.WmStateSet(xu, id, overlayStates); err != nil {
		return fmt.Errorf("failed to set _NET_WM_STATE: %w", err)
	}
	return nil
}

// clearInputShape gives the overlay an empty input region so pointer and
// keyboard events reach the windows underneath.
func (o *Overlay) clearInputShape() error {
	c := o.conn.Conn()
	region, err := xfixes.NewRegionId(c)
	if err != nil {
		return fmt.Errorf("failed to allocate region id: %w", err)
	}
	if err := xfixes.CreateRegionChecked(c, region, nil).Check(); err != nil {
		return fmt.Errorf("failed to create input region: %w", err)
	}
	defer xfixes.DestroyRegion(c, region)
	if err := xfixes.SetWindowShapeRegionChecked(c, o.win.Id, shape.SkInput, 0, 0, region).Check(); err != nil {
		return fmt.Errorf("failed to set input shape: %w", err)
	}
	return nil
}

// RepairDamage subtracts all accumulated damage so the server reports the
// next change.
func (o *Overlay) RepairDamage() error {
	damage.Subtract(o.conn.Conn(), o.damage, 0, 0)
	return nil
}

// Raise restacks the overlay above every sibling.
func (o *Overlay) Raise() error {
	xproto.ConfigureWindow(o.conn.Conn(), o.win.Id,
		xproto.ConfigWindowStackMode, []uint32{xproto.StackModeAbove})
	return nil
}

// Resize matches the overlay to a new root extent.
func (o *Overlay) Resize(width, height int) error {
	return xproto.ConfigureWindowChecked(o.conn.Conn(), o.win.Id,
		xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
		[]uint32{uint32(width), uint32(height)}).Check()
}

// Destroy releases the damage object and the window.
func (o *Overlay) Destroy() {
	damage.Destroy(o.conn.Conn(), o.damage)
	o.win.Destroy()
}
