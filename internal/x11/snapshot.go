package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/mgnfx/internal/geom"
)

// Window is one top-level window as seen at snapshot time.
type Window struct {
	ID       xproto.Window
	Bounds   geom.Rect
	Depth    byte
	Viewable bool
}

// Snapshot lists the viewable direct children of the root, bottom to top,
// leaving out exclude. Windows that vanish or fail to answer mid-query are
// skipped.
func (c *Connection) Snapshot(exclude xproto.Window) ([]Window, error) {
	conn := c.Conn()
	tree, err := xproto.QueryTree(conn, c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to query window tree: %w", err)
	}

	// Send every request before reading any reply so the whole snapshot
	// costs one round trip.
	type pending struct {
		id     xproto.Window
		attrs  xproto.GetWindowAttributesCookie
		geom   xproto.GetGeometryCookie
		parent xproto.QueryTreeCookie
	}
	reqs := make([]pending, 0, len(tree.Children))
	for _, id := range tree.Children {
		if id == exclude {
			continue
		}
		reqs = append(reqs, pending{
			id:     id,
			attrs:  xproto.GetWindowAttributes(conn, id),
			geom:   xproto.GetGeometry(conn, xproto.Drawable(id)),
			parent: xproto.QueryTree(conn, id),
		})
	}

	windows := make([]Window, 0, len(reqs))
	for _, r := range reqs {
		attrs, attrErr := r.attrs.Reply()
		g, geomErr := r.geom.Reply()
		parent, parentErr := r.parent.Reply()
		w, ok := snapshotWindow(c.Root, r.id, attrs, g, parent, firstErr(attrErr, geomErr, parentErr))
		if ok {
			windows = append(windows, w)
		}
	}
	return windows, nil
}

// snapshotWindow keeps a window only when every query succeeded, it is
// viewable and it is a direct child of root.
func snapshotWindow(root, id xproto.Window, attrs *xproto.GetWindowAttributesReply, g *xproto.GetGeometryReply, tree *xproto.QueryTreeReply, err error) (Window, bool) {
	if err != nil || attrs == nil || g == nil || tree == nil {
		return Window{}, false
	}
	if attrs.MapState != xproto.MapStateViewable {
		return Window{}, false
	}
	if tree.Parent != root {
		return Window{}, false
	}
	return Window{
		ID: id,
		Bounds: geom.Rect{
			X:      int(g.X),
			Y:      int(g.Y),
			Width:  int(g.Width),
			Height: int(g.Height),
		},
		Depth:    g.Depth,
		Viewable: true,
	}, true
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
