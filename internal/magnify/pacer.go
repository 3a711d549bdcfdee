package magnify

import "time"

// Pacer caps the redraw rate. Begin marks the start of a wake-up; Wait
// sleeps away whatever is left of the frame budget.
type Pacer struct {
	interval time.Duration
	start    time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

// NewPacer paces to rate frames per second.
func NewPacer(rate int) *Pacer {
	p := &Pacer{now: time.Now, sleep: time.Sleep}
	p.SetRate(rate)
	return p
}

// SetRate changes the target rate. A non-positive rate disables pacing.
func (p *Pacer) SetRate(rate int) {
	if rate <= 0 {
		p.interval = 0
		return
	}
	p.interval = time.Second / time.Duration(rate)
}

// Interval is the minimum time between two Begin calls that Wait enforces.
func (p *Pacer) Interval() time.Duration {
	return p.interval
}

// Begin records the monotonic start of the current wake-up.
func (p *Pacer) Begin() {
	p.start = p.now()
}

// Wait blocks until one interval has passed since Begin. Sleeps that end
// early are retried with the remaining time.
func (p *Pacer) Wait() time.Duration {
	deadline := p.start.Add(p.interval)
	var slept time.Duration
	for {
		remaining := deadline.Sub(p.now())
		if remaining <= 0 {
			return slept
		}
		p.sleep(remaining)
		slept += remaining
	}
}
