package x11

import (
	"fmt"
	"log/slog"

	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/xprop"

	"github.com/1broseidon/mgnfx/internal/geom"
)

// surface is a root-depth pixmap with a picture on top of it.
type surface struct {
	pixmap  xproto.Pixmap
	picture render.Picture
	width   int
	height  int
}

func (c *Connection) newSurface(format render.Pictformat, width, height int) (*surface, error) {
	conn := c.Conn()
	pix, err := xproto.NewPixmapId(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate pixmap id: %w", err)
	}
	if err := xproto.CreatePixmapChecked(conn, c.Screen.RootDepth, pix, xproto.Drawable(c.Root),
		uint16(width), uint16(height)).Check(); err != nil {
		return nil, fmt.Errorf("failed to create %dx%d pixmap: %w", width, height, err)
	}
	pic, err := render.NewPictureId(conn)
	if err != nil {
		xproto.FreePixmap(conn, pix)
		return nil, fmt.Errorf("failed to allocate picture id: %w", err)
	}
	if err := render.CreatePictureChecked(conn, pic, xproto.Drawable(pix), format, 0, nil).Check(); err != nil {
		xproto.FreePixmap(conn, pix)
		return nil, fmt.Errorf("failed to create picture: %w", err)
	}
	return &surface{pixmap: pix, picture: pic, width: width, height: height}, nil
}

func (c *Connection) freeSurface(s *surface) {
	if s == nil {
		return
	}
	render.FreePicture(c.Conn(), s.picture)
	xproto.FreePixmap(c.Conn(), s.pixmap)
}

// newGC creates a root-depth graphics context. Exposure events are only
// generated when exposures is set.
func (c *Connection) newGC(exposures bool) (xproto.Gcontext, error) {
	conn := c.Conn()
	gc, err := xproto.NewGcontextId(conn)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate gc id: %w", err)
	}
	var flag uint32
	if exposures {
		flag = 1
	}
	if err := xproto.CreateGCChecked(conn, gc, xproto.Drawable(c.Root),
		xproto.GcGraphicsExposures, []uint32{flag}).Check(); err != nil {
		return 0, fmt.Errorf("failed to create gc: %w", err)
	}
	return gc, nil
}

// releaser frees X resources in reverse order of acquisition.
type releaser []func()

func (r *releaser) add(fn func()) {
	*r = append(*r, fn)
}

func (r *releaser) release() {
	for i := len(*r) - 1; i >= 0; i-- {
		(*r)[i]()
	}
	*r = (*r)[:0]
}

// Compositor rebuilds an unscaled copy of the desktop in the capture
// surface.
type Compositor struct {
	conn       *Connection
	formats    Formats
	capture    *surface
	gc         xproto.Gcontext
	background uint32
	logger     *slog.Logger
}

func NewCompositor(conn *Connection, formats Formats, capture *surface, gc xproto.Gcontext, background uint32, logger *slog.Logger) *Compositor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Compositor{
		conn:       conn,
		formats:    formats,
		capture:    capture,
		gc:         gc,
		background: background,
		logger:     logger,
	}
}

// SetBackground changes the colour used when no wallpaper pixmap is set.
func (c *Compositor) SetBackground(rgb uint32) {
	c.background = rgb
}

// Composite paints the wallpaper and then every window bottom to top into
// the capture surface. bounds is the capture extent in root coordinates.
func (c *Compositor) Composite(windows []Window, bounds geom.Rect) error {
	c.paintWallpaper()

	for _, w := range windows {
		if err := c.compositeWindow(w, bounds); err != nil {
			c.logger.Debug("skipping window", "window", w.ID, "error", err)
		}
	}
	return nil
}

func (c *Compositor) paintWallpaper() {
	conn := c.conn.Conn()
	if pix, ok := c.wallpaper(); ok {
		xproto.CopyArea(conn, xproto.Drawable(pix), xproto.Drawable(c.capture.pixmap), c.gc,
			0, 0, 0, 0, uint16(c.capture.width), uint16(c.capture.height))
		return
	}
	render.FillRectangles(conn, render.PictOpSrc, c.capture.picture, solidColour(c.background),
		[]xproto.Rectangle{{Width: uint16(c.capture.width), Height: uint16(c.capture.height)}})
}

// wallpaper reads the root background pixmap published by the desktop.
func (c *Compositor) wallpaper() (xproto.Pixmap, bool) {
	id, err := xprop.PropValNum(xprop.GetProperty(c.conn.XUtil, c.conn.Root, "_XROOTPMAP_ID"))
	if err != nil || id == 0 {
		return 0, false
	}
	return xproto.Pixmap(id), true
}

func (c *Compositor) compositeWindow(w Window, bounds geom.Rect) error {
	if w.Bounds.Empty() {
		return nil
	}
	isect, ok := geom.Intersect(bounds, w.Bounds)
	if !ok {
		return nil
	}
	format, ok := c.formats.ForDepth(w.Depth)
	if !ok {
		return nil
	}

	conn := c.conn.Conn()
	rects, err := shape.GetRectangles(conn, w.ID, shape.SkBounding).Reply()
	if err != nil {
		return fmt.Errorf("failed to get bounding shape: %w", err)
	}

	var rel releaser
	defer rel.release()

	src, err := render.NewPictureId(conn)
	if err != nil {
		return fmt.Errorf("failed to allocate picture id: %w", err)
	}
	render.CreatePicture(conn, src, xproto.Drawable(w.ID), format,
		render.CpSubwindowMode, []uint32{xproto.SubwindowModeIncludeInferiors})
	rel.add(func() { render.FreePicture(conn, src) })

	var mask render.Picture
	if len(rects.Rectangles) > 1 {
		mask, err = c.shapeMask(w, rects.Rectangles, &rel)
		if err != nil {
			return err
		}
	}

	render.Composite(conn, CompositeOp(w.Depth), src, mask, c.capture.picture,
		int16(isect.SrcX), int16(isect.SrcY),
		int16(isect.SrcX), int16(isect.SrcY),
		int16(isect.DstX), int16(isect.DstY),
		uint16(isect.Width), uint16(isect.Height))
	return nil
}

// shapeMask renders the window's bounding rectangles into an A1 picture.
// Everything it allocates is registered with rel.
func (c *Compositor) shapeMask(w Window, rects []xproto.Rectangle, rel *releaser) (render.Picture, error) {
	conn := c.conn.Conn()

	pix, err := xproto.NewPixmapId(conn)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate mask pixmap id: %w", err)
	}
	xproto.CreatePixmap(conn, 1, pix, xproto.Drawable(c.conn.Root),
		uint16(w.Bounds.Width), uint16(w.Bounds.Height))
	rel.add(func() { xproto.FreePixmap(conn, pix) })

	gc, err := xproto.NewGcontextId(conn)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate mask gc id: %w", err)
	}
	xproto.CreateGC(conn, gc, xproto.Drawable(pix),
		xproto.GcForeground|xproto.GcGraphicsExposures, []uint32{0, 0})
	rel.add(func() { xproto.FreeGC(conn, gc) })

	xproto.PolyFillRectangle(conn, xproto.Drawable(pix), gc,
		[]xproto.Rectangle{{Width: uint16(w.Bounds.Width), Height: uint16(w.Bounds.Height)}})
	xproto.ChangeGC(conn, gc, xproto.GcForeground, []uint32{1})
	xproto.PolyFillRectangle(conn, xproto.Drawable(pix), gc, rects)

	pic, err := render.NewPictureId(conn)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate mask picture id: %w", err)
	}
	render.CreatePicture(conn, pic, xproto.Drawable(pix), c.formats.A1, 0, nil)
	rel.add(func() { render.FreePicture(conn, pic) })
	return pic, nil
}

// solidColour expands 0xRRGGBB into an opaque XRender colour.
func solidColour(rgb uint32) render.Color {
	expand := func(v uint32) uint16 {
		return uint16(v&0xff) * 0x101
	}
	return render.Color{
		Red:   expand(rgb >> 16),
		Green: expand(rgb >> 8),
		Blue:  expand(rgb),
		Alpha: 0xffff,
	}
}
