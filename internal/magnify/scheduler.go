package magnify

import (
	"log/slog"
	"slices"

	"github.com/1broseidon/mgnfx/internal/config"
	"github.com/1broseidon/mgnfx/internal/geom"
)

// Grabber takes and releases exclusive pointer and keyboard input.
// Grab must leave nothing grabbed when it fails.
type Grabber interface {
	Grab() error
	Ungrab()
}

// Scheduler owns the viewport and the chord/grab/drag gesture state. It is
// not safe for concurrent use; the main loop is its only caller.
type Scheduler struct {
	keys            config.Bindings
	widthStep       int
	heightStep      int
	zoomStep        float64
	zoomCoefficient float64

	grabber Grabber
	logger  *slog.Logger

	viewport    Viewport
	screenW     int
	screenH     int
	cursorKnown bool

	chord *ChordTracker
	drag  DragState

	redraw  bool
	stopped bool
}

// NewScheduler starts from cfg's initial size and zoom, clamped to the
// screen and the zoom range.
func NewScheduler(cfg *config.Config, screenW, screenH int, grabber Grabber, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		grabber: grabber,
		logger:  logger,
		screenW: screenW,
		screenH: screenH,
		viewport: Viewport{
			Width:  cfg.Width,
			Height: cfg.Height,
			Scale:  geom.ClampFloat(cfg.Zoom, config.MinScale, config.MaxScale),
		},
		redraw: true,
	}
	s.applyConfig(cfg)
	s.clampViewport()
	return s
}

// Viewport returns the current viewport.
func (s *Scheduler) Viewport() Viewport {
	return s.viewport
}

// Phase summarises the gesture state.
func (s *Scheduler) Phase() Phase {
	switch {
	case s.drag.Active:
		return PhaseDragging
	case s.chord.Grabbed:
		return PhaseGrabbed
	case s.chord.HeldCount > 0:
		return PhaseChording
	default:
		return PhaseIdle
	}
}

// Chord exposes the modifier tracker for inspection.
func (s *Scheduler) Chord() ChordTracker {
	return *s.chord
}

// Drag exposes the drag state for inspection.
func (s *Scheduler) Drag() DragState {
	return s.drag
}

// SetCursor records the pointer position sampled at this wake-up. ok is
// false when the pointer is on another screen.
func (s *Scheduler) SetCursor(x, y int, ok bool) {
	s.cursorKnown = ok
	if ok {
		s.viewport.CursorX = x
		s.viewport.CursorY = y
	}
}

// TakeRedraw reports whether a redraw is due and clears the request.
func (s *Scheduler) TakeRedraw() bool {
	r := s.redraw
	s.redraw = false
	return r
}

// Stopped reports whether the quit key was released.
func (s *Scheduler) Stopped() bool {
	return s.stopped
}

// Dispatch applies one event.
func (s *Scheduler) Dispatch(ev Event) {
	if isInput(ev) {
		s.redraw = true
	}

	switch e := ev.(type) {
	case Key:
		s.handleKey(e)
	case PointerButton:
		s.handleButton(e)
	case PointerMotion:
		s.handleMotion()
	case PointerAxis:
		s.handleAxis(e)
	case Damage:
		s.redraw = true
	case GeometryChange:
		s.screenW, s.screenH = e.Width, e.Height
		s.clampViewport()
		s.redraw = true
	case ConfigChanged:
		if e.Config != nil {
			s.applyConfig(e.Config)
			s.redraw = true
		}
	case Presented, Other:
	}
}

func (s *Scheduler) handleKey(e Key) {
	modifier := slices.Index(s.keys.Modifiers, e.Code)

	switch e.State {
	case KeyPressed:
		if modifier < 0 {
			return
		}
		if s.chord.Press(modifier) {
			s.grab()
		}

	case KeyReleased:
		if modifier >= 0 {
			s.release()
			return
		}
		if e.Code == s.keys.Quit {
			s.logger.Debug("quit key released")
			s.stopped = true
		}
		if !s.chord.Grabbed {
			return
		}
		v := &s.viewport
		switch e.Code {
		case s.keys.GrowWidth:
			v.Width = geom.MinInt(v.Width+s.widthStep, s.screenW)
		case s.keys.ShrinkWidth:
			v.Width = geom.MaxInt(v.Width-s.widthStep, 1)
		case s.keys.GrowHeight:
			v.Height = geom.MinInt(v.Height+s.heightStep, s.screenH)
		case s.keys.ShrinkHeight:
			v.Height = geom.MaxInt(v.Height-s.heightStep, 1)
		case s.keys.ZoomIn:
			v.Scale = geom.ClampFloat(v.Scale+s.zoomStep, config.MinScale, config.MaxScale)
		case s.keys.ZoomOut:
			v.Scale = geom.ClampFloat(v.Scale-s.zoomStep, config.MinScale, config.MaxScale)
		}
	}
}

func (s *Scheduler) handleButton(e PointerButton) {
	if !s.chord.Grabbed || e.Button != config.BtnLeft {
		return
	}
	if !e.Pressed {
		s.drag.End()
		return
	}
	if s.cursorKnown {
		s.drag.Start(s.viewport.CursorX, s.viewport.CursorY)
	}
}

func (s *Scheduler) handleMotion() {
	if !s.chord.Grabbed || !s.drag.Active || !s.cursorKnown {
		return
	}
	v := &s.viewport
	v.Width = geom.ClampInt(2*abs(v.CursorX-s.drag.AnchorX), 1, s.screenW)
	v.Height = geom.ClampInt(2*abs(v.CursorY-s.drag.AnchorY), 1, s.screenH)
}

func (s *Scheduler) handleAxis(e PointerAxis) {
	if !s.chord.Grabbed {
		return
	}
	s.viewport.Scale = geom.ClampFloat(s.viewport.Scale-e.Vertical*s.zoomCoefficient, config.MinScale, config.MaxScale)
}

func (s *Scheduler) grab() {
	if err := s.grabber.Grab(); err != nil {
		s.logger.Debug("input grab failed", "error", err)
		s.chord.Grabbed = false
		return
	}
	s.chord.Grabbed = true
	s.logger.Debug("input grabbed")
}

// release handles any modifier going up: the whole chord is dropped.
func (s *Scheduler) release() {
	wasGrabbed := s.chord.Grabbed
	s.chord.Reset()
	s.drag.End()
	s.grabber.Ungrab()
	if wasGrabbed {
		s.logger.Debug("input released")
	}
}

func (s *Scheduler) applyConfig(cfg *config.Config) {
	modsChanged := !slices.Equal(s.keys.Modifiers, cfg.Keys.Modifiers)

	s.keys = cfg.Keys
	s.keys.Modifiers = slices.Clone(cfg.Keys.Modifiers)
	s.widthStep = cfg.WidthStep
	s.heightStep = cfg.HeightStep
	s.zoomStep = cfg.ZoomStep
	s.zoomCoefficient = cfg.ZoomCoefficient

	if s.chord == nil {
		s.chord = NewChordTracker(len(s.keys.Modifiers))
		return
	}
	if modsChanged {
		if s.chord.HeldCount > 0 {
			s.release()
		}
		s.chord = NewChordTracker(len(s.keys.Modifiers))
	}
}

func (s *Scheduler) clampViewport() {
	v := &s.viewport
	v.Width = geom.ClampInt(v.Width, 1, s.screenW)
	v.Height = geom.ClampInt(v.Height, 1, s.screenH)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
