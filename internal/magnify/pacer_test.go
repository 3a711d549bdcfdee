package magnify

import (
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
	// short makes every sleep end this much early, like an interrupted
	// nanosleep.
	short  time.Duration
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
	step := d - c.short
	if step <= 0 {
		step = d
	}
	c.now = c.now.Add(step)
}

func newFakePacer(rate int, clock *fakeClock) *Pacer {
	p := NewPacer(rate)
	p.now = clock.Now
	p.sleep = clock.Sleep
	return p
}

func TestPacer_SleepsRemainingBudget(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	p := newFakePacer(50, clock)

	p.Begin()
	clock.now = clock.now.Add(5 * time.Millisecond)
	slept := p.Wait()

	if slept != 15*time.Millisecond {
		t.Fatalf("slept %v, want 15ms", slept)
	}
	if got := clock.now.Sub(time.Unix(0, 0)); got != 20*time.Millisecond {
		t.Fatalf("clock at %v, want 20ms", got)
	}
}

func TestPacer_NoSleepWhenOverBudget(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	p := newFakePacer(60, clock)

	p.Begin()
	clock.now = clock.now.Add(40 * time.Millisecond)
	if slept := p.Wait(); slept != 0 {
		t.Fatalf("slept %v, want 0", slept)
	}
	if len(clock.sleeps) != 0 {
		t.Fatalf("unexpected sleeps %v", clock.sleeps)
	}
}

func TestPacer_RetriesEarlyWakeups(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0), short: 4 * time.Millisecond}
	p := newFakePacer(50, clock)

	p.Begin()
	p.Wait()

	if got := clock.now.Sub(time.Unix(0, 0)); got < 20*time.Millisecond {
		t.Fatalf("Wait returned at %v, before the 20ms deadline", got)
	}
	if len(clock.sleeps) < 2 {
		t.Fatalf("expected the sleep to be retried, got %v", clock.sleeps)
	}
}

func TestPacer_SetRate(t *testing.T) {
	p := NewPacer(60)
	if p.Interval() != time.Second/60 {
		t.Fatalf("interval = %v", p.Interval())
	}
	p.SetRate(0)
	if p.Interval() != 0 {
		t.Fatalf("interval = %v, want 0", p.Interval())
	}
}

func TestPacer_MeanIntervalAtRate(t *testing.T) {
	if testing.Short() {
		t.Skip("real-time pacing test")
	}

	const (
		rate   = 60
		frames = 100
	)
	p := NewPacer(rate)
	start := time.Now()
	for i := 0; i < frames; i++ {
		p.Begin()
		p.Wait()
	}
	mean := time.Since(start) / frames

	want := time.Second / rate
	tolerance := time.Millisecond
	if mean < want-tolerance {
		t.Fatalf("mean frame interval %v, want >= %v", mean, want-tolerance)
	}
}
