package magnify

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/mgnfx/internal/config"
)

// fakeDisplay answers every Draw with the two completion events a real
// server produces: damage from the overlay blit and the NoExposure.
type fakeDisplay struct {
	mu      sync.Mutex
	events  chan Event
	cursorX int
	cursorY int

	draws   []Viewport
	syncs   int
	repairs int
	raises  int
	resizes [][2]int
	// root overrides the extent Resize reports when set.
	root    [2]int
	applied []*config.Config
	drawErr error
	silent  bool
	onDraw  func(n int)
}

func newFakeDisplay() *fakeDisplay {
	return &fakeDisplay{events: make(chan Event, 64), cursorX: 960, cursorY: 540}
}

func (d *fakeDisplay) Cursor() (int, int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cursorX, d.cursorY, true
}

func (d *fakeDisplay) Draw(v Viewport) error {
	d.mu.Lock()
	d.draws = append(d.draws, v)
	n := len(d.draws)
	err := d.drawErr
	silent := d.silent
	hook := d.onDraw
	d.mu.Unlock()

	if err != nil {
		return err
	}
	if !silent {
		d.events <- Damage{}
		d.events <- Presented{}
	}
	if hook != nil {
		hook(n)
	}
	return nil
}

func (d *fakeDisplay) Sync() error         { d.syncs++; return nil }
func (d *fakeDisplay) RepairDamage() error { d.repairs++; return nil }
func (d *fakeDisplay) Raise() error        { d.raises++; return nil }

func (d *fakeDisplay) Resize(w, h int) (int, int, error) {
	d.resizes = append(d.resizes, [2]int{w, h})
	if d.root != [2]int{} {
		return d.root[0], d.root[1], nil
	}
	return w, h, nil
}

func (d *fakeDisplay) ApplyConfig(cfg *config.Config) {
	d.applied = append(d.applied, cfg)
}

func (d *fakeDisplay) drawCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.draws)
}

type loopHarness struct {
	display *fakeDisplay
	input   chan Event
	configs chan *config.Config
	grabber *fakeGrabber
	sched   *Scheduler
	loop    *Loop
}

func newLoopHarness(t *testing.T) *loopHarness {
	t.Helper()
	h := &loopHarness{
		display: newFakeDisplay(),
		input:   make(chan Event, 64),
		configs: make(chan *config.Config, 1),
		grabber: &fakeGrabber{},
	}
	cfg := config.DefaultConfig()
	h.sched = NewScheduler(cfg, 1920, 1080, h.grabber, discardLogger())
	h.loop = NewLoop(Options{
		Display:           h.display,
		DisplayEvents:     h.display.events,
		InputEvents:       h.input,
		ConfigUpdates:     h.configs,
		Scheduler:         h.sched,
		Pacer:             NewPacer(1000),
		CompletionTimeout: time.Second,
		Logger:            discardLogger(),
	})
	return h
}

func (h *loopHarness) run(t *testing.T, ctx context.Context) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- h.loop.Run(ctx) }()
	return done
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not return")
		return nil
	}
}

func TestLoop_EndToEndGestureAndQuit(t *testing.T) {
	h := newLoopHarness(t)

	// Queue the whole session up front; each wake-up drains what is there.
	h.input <- press("KEY_LEFTMETA")
	h.input <- press("KEY_LEFTCTRL")
	h.input <- PointerAxis{Vertical: 1.0}

	var mu sync.Mutex
	var afterGesture Viewport
	var grabbedDuring bool
	h.display.onDraw = func(n int) {
		if n != 2 {
			return
		}
		mu.Lock()
		afterGesture = h.sched.Viewport()
		grabbedDuring = h.sched.Chord().Grabbed
		mu.Unlock()
		h.input <- release("KEY_LEFTCTRL")
		h.input <- release("KEY_ESC")
	}

	err := waitDone(t, h.run(t, context.Background()))
	if err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if !grabbedDuring {
		t.Fatalf("chord did not grab")
	}
	if afterGesture.Width != 400 || afterGesture.Height != 400 {
		t.Fatalf("size = %dx%d, want 400x400", afterGesture.Width, afterGesture.Height)
	}
	if math.Abs(afterGesture.Scale-1.95) > 1e-9 {
		t.Fatalf("scale = %v, want 1.95", afterGesture.Scale)
	}
	if h.sched.Chord().Grabbed || h.sched.Phase() != PhaseIdle {
		t.Fatalf("still grabbed after modifier release: %s", h.sched.Phase())
	}
	if h.grabber.grabs != 1 || h.grabber.ungrabs != 1 {
		t.Fatalf("grabs=%d ungrabs=%d, want 1/1", h.grabber.grabs, h.grabber.ungrabs)
	}
}

func TestLoop_DrawsInitialFrameAndRaises(t *testing.T) {
	h := newLoopHarness(t)
	h.input <- release("KEY_ESC")

	if err := waitDone(t, h.run(t, context.Background())); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if got := h.display.drawCount(); got != 1 {
		t.Fatalf("draws = %d, want 1 (initial only, quit skips the frame)", got)
	}
	if h.display.syncs != 1 {
		t.Fatalf("syncs = %d, want 1", h.display.syncs)
	}
	first := h.display.draws[0]
	if first.CursorX != 960 || first.CursorY != 540 || first.Scale != 2.0 {
		t.Fatalf("initial viewport = %+v", first)
	}
}

func TestLoop_CompletionEventsAreConsumedOthersStashed(t *testing.T) {
	h := newLoopHarness(t)

	h.display.onDraw = func(n int) {
		switch n {
		case 1:
			// A foreign damage event during the wait must survive and
			// trigger exactly one more frame.
			h.display.events <- Other{Name: "ConfigureNotify"}
			h.display.events <- Damage{}
		case 2:
			h.input <- release("KEY_ESC")
		}
	}

	if err := waitDone(t, h.run(t, context.Background())); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if got := h.display.drawCount(); got != 2 {
		t.Fatalf("draws = %d, want 2", got)
	}
	if h.display.repairs == 0 {
		t.Fatalf("damage never repaired")
	}
	if h.loop.Frames() != 2 {
		t.Fatalf("frames = %d, want 2", h.loop.Frames())
	}
}

func TestLoop_CompletionTimeout(t *testing.T) {
	h := newLoopHarness(t)
	h.display.silent = true
	h.loop.timeout = 20 * time.Millisecond
	h.input <- release("KEY_ESC")

	start := time.Now()
	if err := waitDone(t, h.run(t, context.Background())); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Fatalf("returned after %v, before the completion timeout", elapsed)
	}
}

func TestLoop_ContextCancelStops(t *testing.T) {
	h := newLoopHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := h.run(t, ctx)

	deadline := time.Now().Add(2 * time.Second)
	for h.display.drawCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	if err := waitDone(t, done); err != nil {
		t.Fatalf("Run() = %v, want nil on cancel", err)
	}
}

func TestLoop_ClosedSourcesAreErrors(t *testing.T) {
	t.Run("input", func(t *testing.T) {
		h := newLoopHarness(t)
		close(h.input)
		err := waitDone(t, h.run(t, context.Background()))
		if !errors.Is(err, ErrInputClosed) {
			t.Fatalf("Run() = %v, want ErrInputClosed", err)
		}
	})
	t.Run("display", func(t *testing.T) {
		h := newLoopHarness(t)
		h.display.onDraw = func(int) {
			go func() {
				time.Sleep(10 * time.Millisecond)
				close(h.display.events)
			}()
		}
		err := waitDone(t, h.run(t, context.Background()))
		if !errors.Is(err, ErrDisplayClosed) {
			t.Fatalf("Run() = %v, want ErrDisplayClosed", err)
		}
	})
}

func TestLoop_DrawErrorIsFatal(t *testing.T) {
	h := newLoopHarness(t)
	h.display.drawErr = errors.New("BadPixmap")
	err := waitDone(t, h.run(t, context.Background()))
	if err == nil {
		t.Fatalf("Run() = nil, want draw error")
	}
}

func TestLoop_GeometryChangeResizes(t *testing.T) {
	h := newLoopHarness(t)
	h.display.onDraw = func(n int) {
		switch n {
		case 1:
			h.display.events <- GeometryChange{Width: 1280, Height: 720}
		case 2:
			h.input <- release("KEY_ESC")
		}
	}
	if err := waitDone(t, h.run(t, context.Background())); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if len(h.display.resizes) != 1 || h.display.resizes[0] != [2]int{1280, 720} {
		t.Fatalf("resizes = %v", h.display.resizes)
	}
}

func TestLoop_GeometryChangeUsesAppliedExtent(t *testing.T) {
	h := newLoopHarness(t)
	// The notification carries the unrotated size of a portrait screen.
	h.display.root = [2]int{1080, 1920}
	h.display.onDraw = func(n int) {
		switch n {
		case 1:
			h.display.events <- GeometryChange{Width: 1920, Height: 1080}
		case 2:
			h.input <- release("KEY_ESC")
		}
	}
	if err := waitDone(t, h.run(t, context.Background())); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if h.sched.screenW != 1080 || h.sched.screenH != 1920 {
		t.Fatalf("scheduler screen = %dx%d, want 1080x1920", h.sched.screenW, h.sched.screenH)
	}
}

func TestLoop_ConfigUpdateAppliesRateAndPresentation(t *testing.T) {
	h := newLoopHarness(t)
	cfg := config.DefaultConfig()
	cfg.Rate = 30
	cfg.Filter = config.FilterBilinear
	h.configs <- cfg
	h.display.onDraw = func(n int) {
		if n == 2 {
			h.input <- release("KEY_ESC")
		}
	}

	if err := waitDone(t, h.run(t, context.Background())); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if len(h.display.applied) != 1 || h.display.applied[0].Filter != config.FilterBilinear {
		t.Fatalf("applied configs = %v", h.display.applied)
	}
	if h.loop.pacer.Interval() != time.Second/30 {
		t.Fatalf("pacer interval = %v", h.loop.pacer.Interval())
	}
}
