package input

import (
	evdev "github.com/holoplot/go-evdev"

	"github.com/1broseidon/mgnfx/internal/config"
	"github.com/1broseidon/mgnfx/internal/magnify"
)

// EV_KEY values.
const (
	keyRelease = 0
	keyPress   = 1
	keyRepeat  = 2
)

// degreesPerDetent converts wheel clicks to the same units as a libinput
// scroll axis so the zoom coefficient means the same thing.
const (
	degreesPerDetent = 15.0
	hiResPerDetent   = 120.0
)

// translator turns one device's event stream into magnifier events.
// Relative motion is coalesced per SYN_REPORT frame.
type translator struct {
	dx, dy float64
	moved  bool
	hiRes  bool
	// dropping is set after SYN_DROPPED until the next SYN_REPORT.
	dropping bool
}

func (t *translator) feed(ev evdev.InputEvent, emit func(magnify.Event)) {
	if t.dropping {
		if ev.Type == evdev.EV_SYN && ev.Code == evdev.SYN_REPORT {
			t.dropping = false
		}
		return
	}

	switch ev.Type {
	case evdev.EV_SYN:
		switch ev.Code {
		case evdev.SYN_REPORT:
			if t.moved {
				emit(magnify.PointerMotion{DX: t.dx, DY: t.dy})
			}
			t.dx, t.dy, t.moved = 0, 0, false
		case evdev.SYN_DROPPED:
			t.dx, t.dy, t.moved = 0, 0, false
			t.dropping = true
		}

	case evdev.EV_KEY:
		if ev.Value == keyRepeat {
			return
		}
		pressed := ev.Value == keyPress
		code := config.KeyCode(ev.Code)
		if isButton(ev.Code) {
			emit(magnify.PointerButton{Button: code, Pressed: pressed})
			return
		}
		state := magnify.KeyReleased
		if pressed {
			state = magnify.KeyPressed
		}
		emit(magnify.Key{Code: code, State: state})

	case evdev.EV_REL:
		switch ev.Code {
		case evdev.REL_X:
			t.dx += float64(ev.Value)
			t.moved = true
		case evdev.REL_Y:
			t.dy += float64(ev.Value)
			t.moved = true
		case evdev.REL_WHEEL_HI_RES:
			t.hiRes = true
			emit(magnify.PointerAxis{Vertical: -float64(ev.Value) * degreesPerDetent / hiResPerDetent})
		case evdev.REL_WHEEL:
			// Devices with a hi-res wheel report both; the hi-res one wins.
			if !t.hiRes {
				emit(magnify.PointerAxis{Vertical: -float64(ev.Value) * degreesPerDetent})
			}
		}

	case evdev.EV_ABS:
		if ev.Code == evdev.ABS_X || ev.Code == evdev.ABS_Y {
			t.moved = true
		}
	}
}

// isButton reports whether an EV_KEY code is a mouse, joystick or tablet
// button rather than a keyboard key.
func isButton(code evdev.EvCode) bool {
	return code >= evdev.BTN_MISC && code < evdev.KEY_OK
}
