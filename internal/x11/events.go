package x11

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/mgnfx/internal/magnify"
)

// EventSource pumps events from the X connection into a channel.
type EventSource struct {
	conn   *xgb.Conn
	events chan magnify.Event
	logger *slog.Logger
}

func NewEventSource(conn *Connection, logger *slog.Logger) *EventSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventSource{
		conn:   conn.Conn(),
		events: make(chan magnify.Event, 256),
		logger: logger,
	}
}

// Events is closed once Run returns.
func (s *EventSource) Events() <-chan magnify.Event {
	return s.events
}

// Run forwards events until the connection closes or ctx is cancelled.
// Asynchronous protocol errors are logged and dropped.
func (s *EventSource) Run(ctx context.Context) {
	defer close(s.events)
	for {
		ev, xerr := s.conn.WaitForEvent()
		if ev == nil && xerr == nil {
			s.logger.Debug("X connection closed")
			return
		}
		if xerr != nil {
			s.logger.Debug("X protocol error", "error", xerr.Error())
			continue
		}
		select {
		case s.events <- translateEvent(ev):
		case <-ctx.Done():
			return
		}
	}
}

// screenChange reports the root extent after rotation. The server sends the
// unrotated size.
func screenChange(e randr.ScreenChangeNotifyEvent) magnify.GeometryChange {
	w, h := int(e.Width), int(e.Height)
	if e.Rotation&(randr.RotationRotate90|randr.RotationRotate270) != 0 {
		w, h = h, w
	}
	return magnify.GeometryChange{Width: w, Height: h}
}

func translateEvent(ev xgb.Event) magnify.Event {
	switch e := ev.(type) {
	case damage.NotifyEvent:
		return magnify.Damage{}
	case randr.ScreenChangeNotifyEvent:
		return screenChange(e)
	case xproto.NoExposureEvent:
		return magnify.Presented{}
	case xproto.GraphicsExposureEvent:
		// A blit that hits obscured areas reports a series; the last one
		// has Count zero.
		if e.Count == 0 {
			return magnify.Presented{}
		}
	}
	return magnify.Other{Name: fmt.Sprintf("%T", ev)}
}
