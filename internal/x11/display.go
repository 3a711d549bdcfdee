package x11

import (
	"fmt"
	"log/slog"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/mgnfx/internal/config"
	"github.com/1broseidon/mgnfx/internal/geom"
	"github.com/1broseidon/mgnfx/internal/magnify"
)

// Display drives the capture, composite and present pipeline on one X
// screen.
type Display struct {
	conn    *Connection
	formats Formats
	overlay *Overlay
	grabber *Grabber

	gc     xproto.Gcontext
	blitGC xproto.Gcontext

	capture      *surface
	presentation *surface
	compositor   *Compositor
	presenter    *Presenter

	width, height int
	logger        *slog.Logger
}

var _ magnify.Display = (*Display)(nil)

// NewDisplay creates the overlay and the root-sized surfaces.
func NewDisplay(conn *Connection, cfg *config.Config, logger *slog.Logger) (*Display, error) {
	if logger == nil {
		logger = slog.Default()
	}
	formats, err := conn.QueryFormats()
	if err != nil {
		return nil, err
	}
	width, height, err := conn.RootSize()
	if err != nil {
		return nil, err
	}

	d := &Display{
		conn:    conn,
		formats: formats,
		width:   width,
		height:  height,
		logger:  logger,
	}
	if d.gc, err = conn.newGC(false); err != nil {
		return nil, err
	}
	if d.blitGC, err = conn.newGC(true); err != nil {
		return nil, err
	}
	if d.overlay, err = NewOverlay(conn, width, height); err != nil {
		return nil, err
	}
	d.grabber = NewGrabber(conn, d.overlay.Window())
	if err := d.allocate(width, height); err != nil {
		d.overlay.Destroy()
		return nil, err
	}
	d.compositor = NewCompositor(conn, formats, d.capture, d.gc, cfg.Background, logger)
	d.presenter = NewPresenter(conn, d.capture, d.presentation, d.overlay.Window(), d.gc, d.blitGC, cfg.Filter)

	logger.Info("display ready", "width", width, "height", height, "overlay", d.overlay.Window())
	conn.logMonitors()
	return d, nil
}

// Grabber returns the grab controller for the overlay.
func (d *Display) Grabber() *Grabber {
	return d.grabber
}

// ScreenSize returns the current root extent.
func (d *Display) ScreenSize() (width, height int) {
	return d.width, d.height
}

func (d *Display) allocate(width, height int) error {
	format, ok := d.formats.ForDepth(d.conn.Screen.RootDepth)
	if !ok {
		format = d.formats.RGB24
	}
	capture, err := d.conn.newSurface(format, width, height)
	if err != nil {
		return fmt.Errorf("failed to allocate capture surface: %w", err)
	}
	presentation, err := d.conn.newSurface(format, width, height)
	if err != nil {
		d.conn.freeSurface(capture)
		return fmt.Errorf("failed to allocate presentation surface: %w", err)
	}
	d.conn.freeSurface(d.capture)
	d.conn.freeSurface(d.presentation)
	d.capture, d.presentation = capture, presentation
	d.width, d.height = width, height
	return nil
}

func (d *Display) Cursor() (x, y int, ok bool) {
	return d.conn.Cursor()
}

// Draw snapshots the window stack, composites it and presents v.
func (d *Display) Draw(v magnify.Viewport) error {
	windows, err := d.conn.Snapshot(d.overlay.Window())
	if err != nil {
		return err
	}
	bounds := geom.Rect{Width: d.width, Height: d.height}
	if err := d.compositor.Composite(windows, bounds); err != nil {
		return err
	}
	return d.presenter.Present(v)
}

func (d *Display) Sync() error {
	return d.conn.Sync()
}

func (d *Display) RepairDamage() error {
	return d.overlay.RepairDamage()
}

func (d *Display) Raise() error {
	return d.overlay.Raise()
}

// Resize re-fetches the root extent and reallocates the surfaces and
// overlay when it changed. width and height are used only when the root
// geometry cannot be read.
func (d *Display) Resize(width, height int) (int, int, error) {
	if w, h, err := d.conn.RootSize(); err == nil {
		width, height = w, h
	} else {
		d.logger.Debug("using notified screen size", "error", err)
	}
	if width == d.width && height == d.height {
		return width, height, nil
	}
	if err := d.allocate(width, height); err != nil {
		return 0, 0, err
	}
	if err := d.overlay.Resize(width, height); err != nil {
		return 0, 0, fmt.Errorf("failed to resize overlay: %w", err)
	}
	d.compositor.capture = d.capture
	d.presenter.capture = d.capture
	d.presenter.presentation = d.presentation
	d.conn.logMonitors()
	return width, height, nil
}

func (d *Display) ApplyConfig(cfg *config.Config) {
	d.compositor.SetBackground(cfg.Background)
	d.presenter.SetFilter(cfg.Filter)
}

// Close frees every server-side resource the display created.
func (d *Display) Close() {
	d.grabber.Ungrab()
	d.conn.freeSurface(d.capture)
	d.conn.freeSurface(d.presentation)
	xproto.FreeGC(d.conn.Conn(), d.gc)
	xproto.FreeGC(d.conn.Conn(), d.blitGC)
	d.overlay.Destroy()
	d.conn.Sync()
}
