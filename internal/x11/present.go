package x11

import (
	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/mgnfx/internal/config"
	"github.com/1broseidon/mgnfx/internal/geom"
	"github.com/1broseidon/mgnfx/internal/magnify"
)

// borderWidth is the black frame drawn around the magnified region.
const borderWidth = 2

// lens is where the magnified region is sampled from and drawn to.
type lens struct {
	// SrcX, SrcY are in the scaled capture space. They can exceed the
	// 16-bit request coordinates, so they travel in the transform.
	SrcX, SrcY int
	DstX, DstY int
	Width      int
	Height     int
	Border     geom.Rect
}

// lensFor derives every offset from one viewport value so the sampled and
// drawn regions stay centred on the same cursor position.
func lensFor(v magnify.Viewport) lens {
	dst := v.Rect()
	scaledX := int(float64(v.CursorX) * v.Scale)
	scaledY := int(float64(v.CursorY) * v.Scale)
	return lens{
		SrcX:   scaledX - v.Width/2,
		SrcY:   scaledY - v.Height/2,
		DstX:   dst.X,
		DstY:   dst.Y,
		Width:  dst.Width,
		Height: dst.Height,
		Border: geom.Rect{
			X:      dst.X - borderWidth,
			Y:      dst.Y - borderWidth,
			Width:  dst.Width + 2*borderWidth,
			Height: dst.Height + 2*borderWidth,
		},
	}
}

// toFixed converts to the 16.16 fixed point XRender uses, truncating.
func toFixed(v float64) render.Fixed {
	return render.Fixed(v * 65536)
}

// lensTransform maps lens coordinates back into capture space for a zoom
// factor of scale, with the lens origin at (SrcX, SrcY) in scaled space.
func lensTransform(l lens, scale float64) render.Transform {
	s := toFixed(1 / scale)
	return render.Transform{
		Matrix11: s,
		Matrix13: toFixed(float64(l.SrcX) / scale),
		Matrix22: s,
		Matrix23: toFixed(float64(l.SrcY) / scale),
		Matrix33: toFixed(1),
	}
}

// Presenter draws the magnified region over an unscaled copy of the
// capture and blits the result to the overlay.
type Presenter struct {
	conn         *Connection
	capture      *surface
	presentation *surface
	overlay      xproto.Window
	gc           xproto.Gcontext
	// blitGC has graphics exposures enabled; only the final copy uses it.
	blitGC xproto.Gcontext
	filter config.Filter
}

func NewPresenter(conn *Connection, capture, presentation *surface, overlay xproto.Window, gc, blitGC xproto.Gcontext, filter config.Filter) *Presenter {
	return &Presenter{
		conn:         conn,
		capture:      capture,
		presentation: presentation,
		overlay:      overlay,
		gc:           gc,
		blitGC:       blitGC,
		filter:       filter,
	}
}

func (p *Presenter) SetFilter(f config.Filter) {
	p.filter = f
}

// Present renders v into the presentation surface and copies it to the
// overlay. The copy produces exactly one NoExposure or final
// GraphicsExposure event.
func (p *Presenter) Present(v magnify.Viewport) error {
	conn := p.conn.Conn()
	w, h := uint16(p.capture.width), uint16(p.capture.height)

	xproto.CopyArea(conn, xproto.Drawable(p.capture.pixmap), xproto.Drawable(p.presentation.pixmap),
		p.gc, 0, 0, 0, 0, w, h)

	l := lensFor(v)
	render.FillRectangles(conn, render.PictOpSrc, p.presentation.picture, solidColour(0),
		[]xproto.Rectangle{toRectangle(l.Border)})

	render.SetPictureTransform(conn, p.capture.picture, lensTransform(l, v.Scale))
	name := string(p.filter)
	render.SetPictureFilter(conn, p.capture.picture, uint16(len(name)), name, nil)

	render.Composite(conn, render.PictOpSrc, p.capture.picture, 0, p.presentation.picture,
		0, 0, 0, 0,
		int16(l.DstX), int16(l.DstY),
		uint16(l.Width), uint16(l.Height))

	xproto.CopyArea(conn, xproto.Drawable(p.presentation.pixmap), xproto.Drawable(p.overlay),
		p.blitGC, 0, 0, 0, 0, w, h)
	return nil
}

func toRectangle(r geom.Rect) xproto.Rectangle {
	return xproto.Rectangle{
		X:      int16(r.X),
		Y:      int16(r.Y),
		Width:  uint16(r.Width),
		Height: uint16(r.Height),
	}
}
