package x11

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xfixes"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
)

// Connection manages the X11 connection and core X resources
type Connection struct {
	XUtil  *xgbutil.XUtil
	Root   xproto.Window
	Screen *xproto.ScreenInfo

	logger *slog.Logger
}

type extension struct {
	name  string
	init  func(*xgb.Conn) error
	query func(*xgb.Conn) error
}

// Every extension the pipeline needs, with the version it negotiates.
var extensions = []extension{
	{
		name: "DAMAGE",
		init: damage.Init,
		query: func(c *xgb.Conn) error {
			_, err := damage.QueryVersion(c, 1, 1).Reply()
			return err
		},
	},
	{
		name: "SHAPE",
		init: shape.Init,
		query: func(c *xgb.Conn) error {
			_, err := shape.QueryVersion(c).Reply()
			return err
		},
	},
	{
		name: "XFIXES",
		init: xfixes.Init,
		query: func(c *xgb.Conn) error {
			_, err := xfixes.QueryVersion(c, 5, 0).Reply()
			return err
		},
	},
	{
		name: "Composite",
		init: composite.Init,
		query: func(c *xgb.Conn) error {
			_, err := composite.QueryVersion(c, 0, 4).Reply()
			return err
		},
	},
	{
		name: "RENDER",
		init: render.Init,
		query: func(c *xgb.Conn) error {
			_, err := render.QueryVersion(c, 0, 11).Reply()
			return err
		},
	},
	{
		name: "RANDR",
		init: randr.Init,
		query: func(c *xgb.Conn) error {
			_, err := randr.QueryVersion(c, 1, 5).Reply()
			return err
		},
	},
}

// NewConnection connects to display and initialises every required
// extension. When some are missing the error names all of them.
func NewConnection(display string, logger *slog.Logger) (*Connection, error) {
	if logger == nil {
		logger = slog.Default()
	}
	xu, err := xgbutil.NewConnDisplay(display)
	if err != nil {
		return nil, fmt.Errorf("failed to open X display %q: %w", display, err)
	}

	if err := initExtensions(xu.Conn(), extensions); err != nil {
		xu.Conn().Close()
		return nil, err
	}

	return &Connection{
		XUtil:  xu,
		Root:   xu.RootWin(),
		Screen: xu.Screen(),
		logger: logger,
	}, nil
}

func initExtensions(c *xgb.Conn, exts []extension) error {
	var missing []string
	for _, ext := range exts {
		if err := ext.init(c); err != nil {
			missing = append(missing, ext.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("required X extensions unavailable: %s", strings.Join(missing, ", "))
	}
	for _, ext := range exts {
		if err := ext.query(c); err != nil {
			return fmt.Errorf("initializing the %q extension failed: %w", ext.name, err)
		}
	}
	return nil
}

// Conn returns the underlying xgb connection.
func (c *Connection) Conn() *xgb.Conn {
	return c.XUtil.Conn()
}

// RootSize fetches the current root window extent.
func (c *Connection) RootSize() (width, height int, err error) {
	geom, err := xproto.GetGeometry(c.Conn(), xproto.Drawable(c.Root)).Reply()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get root geometry: %w", err)
	}
	return int(geom.Width), int(geom.Height), nil
}

// Cursor returns the pointer position relative to the root. ok is false
// when the pointer is on another screen.
func (c *Connection) Cursor() (x, y int, ok bool) {
	reply, err := xproto.QueryPointer(c.Conn(), c.Root).Reply()
	if err != nil {
		return 0, 0, false
	}
	return int(reply.RootX), int(reply.RootY), reply.SameScreen
}

// Sync waits for the server to process every request sent so far.
func (c *Connection) Sync() error {
	c.Conn().Sync()
	return nil
}

// Close cleanly disconnects from the X11 server
func (c *Connection) Close() {
	c.XUtil.Conn().Close()
}
