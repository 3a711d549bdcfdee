package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"

	"github.com/1broseidon/mgnfx/internal/geom"
)

// Monitor represents a physical display
type Monitor struct {
	ID     int
	Name   string
	Bounds geom.Rect
}

// Monitors lists the active CRTCs via XRandR. The magnifier works on the
// whole root; the layout is only reported.
func (c *Connection) Monitors() ([]Monitor, error) {
	conn := c.Conn()
	resources, err := randr.GetScreenResources(conn, c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var monitors []Monitor
	for i, crtc := range resources.Crtcs {
		info, err := randr.GetCrtcInfo(conn, crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}
		// Skip disabled CRTCs
		if info.Width == 0 || info.Height == 0 || len(info.Outputs) == 0 {
			continue
		}

		name := fmt.Sprintf("Monitor%d", i)
		if out, err := randr.GetOutputInfo(conn, info.Outputs[0], resources.ConfigTimestamp).Reply(); err == nil {
			name = string(out.Name)
		}

		monitors = append(monitors, Monitor{
			ID:   i,
			Name: name,
			Bounds: geom.Rect{
				X:      int(info.X),
				Y:      int(info.Y),
				Width:  int(info.Width),
				Height: int(info.Height),
			},
		})
	}
	return monitors, nil
}

// logMonitors reports the monitor layout at debug level.
func (c *Connection) logMonitors() {
	monitors, err := c.Monitors()
	if err != nil {
		c.logger.Debug("failed to list monitors", "error", err)
		return
	}
	for _, m := range monitors {
		c.logger.Debug("monitor", "id", m.ID, "name", m.Name,
			"x", m.Bounds.X, "y", m.Bounds.Y, "width", m.Bounds.Width, "height", m.Bounds.Height)
	}
}
