package magnify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/1broseidon/mgnfx/internal/config"
)

var (
	// ErrDisplayClosed is returned when the display event stream ends.
	ErrDisplayClosed = errors.New("display connection closed")
	// ErrInputClosed is returned when the input event stream ends.
	ErrInputClosed = errors.New("input source closed")
)

// drainLimit bounds how many events are taken from one source per wake-up
// so a flood on one channel cannot starve the others.
const drainLimit = 4096

// Display is the display-server side of the pipeline.
type Display interface {
	// Cursor samples the pointer position. ok is false when the pointer is
	// not on this screen.
	Cursor() (x, y int, ok bool)
	// Draw captures the screen and presents the magnified region.
	Draw(v Viewport) error
	// Sync waits until the server has processed every request so far.
	Sync() error
	// RepairDamage clears accumulated damage so new changes are reported.
	RepairDamage() error
	// Raise keeps the overlay above everything else.
	Raise() error
	// Resize reallocates surfaces after a geometry change. width and height
	// come from the notification; the returned extent is the one applied.
	Resize(width, height int) (int, int, error)
	// ApplyConfig picks up presentation settings from a reloaded config.
	ApplyConfig(cfg *config.Config)
}

type Options struct {
	Display       Display
	DisplayEvents <-chan Event
	InputEvents   <-chan Event
	// ConfigUpdates may be nil when hot reload is disabled.
	ConfigUpdates <-chan *config.Config

	Scheduler *Scheduler
	Pacer     *Pacer

	// CompletionTimeout bounds the wait for the frame completion events.
	// Zero waits forever.
	CompletionTimeout time.Duration

	Logger *slog.Logger
}

// Loop is the single goroutine that owns all magnifier state.
type Loop struct {
	display       Display
	displayEvents <-chan Event
	inputEvents   <-chan Event
	configUpdates <-chan *config.Config

	scheduler *Scheduler
	pacer     *Pacer
	timeout   time.Duration
	logger    *slog.Logger

	// stash holds display events that arrived during the completion wait.
	stash   []Event
	pending []Event
	frames  uint64
}

func NewLoop(opts Options) *Loop {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		display:       opts.Display,
		displayEvents: opts.DisplayEvents,
		inputEvents:   opts.InputEvents,
		configUpdates: opts.ConfigUpdates,
		scheduler:     opts.Scheduler,
		pacer:         opts.Pacer,
		timeout:       opts.CompletionTimeout,
		logger:        logger,
	}
}

// Frames reports how many frames have been drawn.
func (l *Loop) Frames() uint64 {
	return l.frames
}

// Run draws an initial frame then handles events until the quit key is
// released or ctx is cancelled. A frame that has started always completes.
func (l *Loop) Run(ctx context.Context) error {
	l.pacer.Begin()
	l.sampleCursor()
	l.scheduler.TakeRedraw()
	if err := l.frame(ctx); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		if len(l.stash) == 0 {
			if err := l.wait(ctx); err != nil {
				return err
			}
			if ctx.Err() != nil {
				return nil
			}
		}

		l.pacer.Begin()
		l.sampleCursor()

		sawDisplay, err := l.drain()
		if err != nil {
			return err
		}
		for _, ev := range l.pending {
			if err := l.apply(ev); err != nil {
				return err
			}
		}
		l.pending = l.pending[:0]

		if sawDisplay {
			if err := l.display.RepairDamage(); err != nil {
				return fmt.Errorf("repair damage: %w", err)
			}
		}

		if l.scheduler.Stopped() {
			l.logger.Info("quit requested", "frames", l.frames)
			return nil
		}

		if l.scheduler.TakeRedraw() {
			if err := l.frame(ctx); err != nil {
				return err
			}
		}

		if err := l.display.Raise(); err != nil {
			return fmt.Errorf("raise overlay: %w", err)
		}
	}
}

// wait blocks until any source has something. A display event goes to the
// stash so drain counts it as display traffic.
func (l *Loop) wait(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-l.displayEvents:
			if !ok {
				return ErrDisplayClosed
			}
			l.stash = append(l.stash, ev)
			return nil
		case ev, ok := <-l.inputEvents:
			if !ok {
				return ErrInputClosed
			}
			l.pending = append(l.pending, ev)
			return nil
		case cfg, ok := <-l.configUpdates:
			if !ok {
				l.configUpdates = nil
				continue
			}
			l.pending = append(l.pending, ConfigChanged{Config: cfg})
			return nil
		}
	}
}

// drain moves every immediately available event onto pending, display
// events first so damage repair covers what was seen.
func (l *Loop) drain() (sawDisplay bool, err error) {
	sawDisplay = len(l.stash) > 0
	l.pending = append(l.pending, l.stash...)
	l.stash = l.stash[:0]

	for i := 0; i < drainLimit; i++ {
		select {
		case ev, ok := <-l.displayEvents:
			if !ok {
				return sawDisplay, ErrDisplayClosed
			}
			l.pending = append(l.pending, ev)
			sawDisplay = true
			continue
		default:
		}
		break
	}

	for i := 0; i < drainLimit; i++ {
		select {
		case ev, ok := <-l.inputEvents:
			if !ok {
				return sawDisplay, ErrInputClosed
			}
			l.pending = append(l.pending, ev)
			continue
		default:
		}
		break
	}

	for l.configUpdates != nil {
		select {
		case cfg, ok := <-l.configUpdates:
			if !ok {
				l.configUpdates = nil
				continue
			}
			l.pending = append(l.pending, ConfigChanged{Config: cfg})
			continue
		default:
		}
		break
	}
	return sawDisplay, nil
}

// apply performs the loop-level side effects of ev and hands it to the
// scheduler.
func (l *Loop) apply(ev Event) error {
	switch e := ev.(type) {
	case GeometryChange:
		w, h, err := l.display.Resize(e.Width, e.Height)
		if err != nil {
			return fmt.Errorf("resize surfaces: %w", err)
		}
		l.logger.Info("screen geometry changed", "width", w, "height", h)
		ev = GeometryChange{Width: w, Height: h}
	case ConfigChanged:
		if e.Config == nil {
			return nil
		}
		l.pacer.SetRate(e.Config.Rate)
		l.timeout = e.Config.CompletionTimeout
		l.display.ApplyConfig(e.Config)
	}

	prev := l.scheduler.Phase()
	l.scheduler.Dispatch(ev)
	if next := l.scheduler.Phase(); next != prev {
		l.logger.Debug("phase changed", "from", prev, "to", next)
	}
	return nil
}

func (l *Loop) sampleCursor() {
	x, y, ok := l.display.Cursor()
	l.scheduler.SetCursor(x, y, ok)
}

// frame draws, then waits for the server to acknowledge the frame before
// pacing. Nothing is read from input until the frame is done.
func (l *Loop) frame(ctx context.Context) error {
	v := l.scheduler.Viewport()
	if err := l.display.Draw(v); err != nil {
		return fmt.Errorf("draw: %w", err)
	}
	if err := l.display.Sync(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	if err := l.awaitCompletion(ctx); err != nil {
		return err
	}
	l.frames++
	l.pacer.Wait()
	return nil
}

// awaitCompletion consumes one Damage and one Presented from the display
// stream. Every other display event is stashed for the next wake-up.
func (l *Loop) awaitCompletion(ctx context.Context) error {
	needDamage, needPresented := true, true

	var timeout <-chan time.Time
	if l.timeout > 0 {
		timer := time.NewTimer(l.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	for needDamage || needPresented {
		select {
		case ev, ok := <-l.displayEvents:
			if !ok {
				return ErrDisplayClosed
			}
			switch ev.(type) {
			case Damage:
				if needDamage {
					needDamage = false
					continue
				}
			case Presented:
				if needPresented {
					needPresented = false
					continue
				}
			}
			l.stash = append(l.stash, ev)
		case <-timeout:
			l.logger.Debug("frame completion timed out", "damage", !needDamage, "presented", !needPresented)
			return nil
		case <-ctx.Done():
			return nil
		}
	}
	return nil
}
