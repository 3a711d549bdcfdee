package x11

import (
	"errors"
	"testing"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/mgnfx/internal/geom"
	"github.com/1broseidon/mgnfx/internal/magnify"
)

const testRoot xproto.Window = 1

func TestSnapshotWindow(t *testing.T) {
	viewable := &xproto.GetWindowAttributesReply{MapState: xproto.MapStateViewable}
	unmapped := &xproto.GetWindowAttributesReply{MapState: xproto.MapStateUnmapped}
	g := &xproto.GetGeometryReply{X: -10, Y: 20, Width: 300, Height: 200, Depth: 32}
	child := &xproto.QueryTreeReply{Parent: testRoot}
	grandchild := &xproto.QueryTreeReply{Parent: 42}

	tests := []struct {
		name  string
		attrs *xproto.GetWindowAttributesReply
		tree  *xproto.QueryTreeReply
		err   error
		ok    bool
	}{
		{"viewable child", viewable, child, nil, true},
		{"unmapped", unmapped, child, nil, false},
		{"not a root child", viewable, grandchild, nil, false},
		{"query failed", viewable, child, errors.New("BadWindow"), false},
		{"missing reply", nil, child, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, ok := snapshotWindow(testRoot, 7, tt.attrs, g, tt.tree, tt.err)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			want := Window{ID: 7, Bounds: geom.Rect{X: -10, Y: 20, Width: 300, Height: 200}, Depth: 32, Viewable: true}
			if w != want {
				t.Fatalf("window = %+v, want %+v", w, want)
			}
		})
	}
}

func TestFirstErr(t *testing.T) {
	a, b := errors.New("a"), errors.New("b")
	if firstErr(nil, a, b) != a {
		t.Fatalf("expected first non-nil error")
	}
	if firstErr(nil, nil) != nil {
		t.Fatalf("expected nil")
	}
}

func TestReleaserReverseOrder(t *testing.T) {
	var order []int
	var rel releaser
	for i := range 3 {
		rel.add(func() { order = append(order, i) })
	}
	rel.release()
	if len(order) != 3 || order[0] != 2 || order[1] != 1 || order[2] != 0 {
		t.Fatalf("order = %v", order)
	}
	rel.release()
	if len(order) != 3 {
		t.Fatalf("release ran twice: %v", order)
	}
}

func TestTranslateEvent(t *testing.T) {
	tests := []struct {
		name string
		in   xgb.Event
		want magnify.Event
	}{
		{"damage", damage.NotifyEvent{}, magnify.Damage{}},
		{"screen change", randr.ScreenChangeNotifyEvent{Width: 1920, Height: 1080}, magnify.GeometryChange{Width: 1920, Height: 1080}},
		{"screen change rotated 90", randr.ScreenChangeNotifyEvent{Rotation: randr.RotationRotate90, Width: 1920, Height: 1080}, magnify.GeometryChange{Width: 1080, Height: 1920}},
		{"screen change rotated 270", randr.ScreenChangeNotifyEvent{Rotation: randr.RotationRotate270 | randr.RotationReflectX, Width: 1920, Height: 1080}, magnify.GeometryChange{Width: 1080, Height: 1920}},
		{"screen change rotated 180", randr.ScreenChangeNotifyEvent{Rotation: randr.RotationRotate180, Width: 1920, Height: 1080}, magnify.GeometryChange{Width: 1920, Height: 1080}},
		{"no exposure", xproto.NoExposureEvent{}, magnify.Presented{}},
		{"last graphics exposure", xproto.GraphicsExposureEvent{Count: 0}, magnify.Presented{}},
		{"graphics exposure series", xproto.GraphicsExposureEvent{Count: 2}, magnify.Other{Name: "xproto.GraphicsExposureEvent"}},
		{"unrelated", xproto.MapNotifyEvent{}, magnify.Other{Name: "xproto.MapNotifyEvent"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := translateEvent(tt.in); got != tt.want {
				t.Fatalf("translateEvent = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestGrabStatus(t *testing.T) {
	if got := grabStatus(xproto.GrabStatusAlreadyGrabbed); got != "already grabbed" {
		t.Fatalf("grabStatus = %q", got)
	}
	if got := grabStatus(99); got != "status 99" {
		t.Fatalf("grabStatus = %q", got)
	}
}
