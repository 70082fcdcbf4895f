package kernel

import (
	"sync"
	"time"
)

const (
	// DefaultMargin is how far virtual time may run ahead of real time.
	DefaultMargin = 2 * time.Millisecond

	maxPaceSleep = time.Millisecond
)

// Pacer ties virtual time to the wall clock. Real time is accumulated from
// wall-clock deltas multiplied by the scale; the scheduler waits until the
// tick it is about to jump to is no further than the margin ahead of it.
type Pacer struct {
	mu sync.Mutex

	now   func() time.Time
	sleep func(time.Duration)

	freq   uint64
	scale  float64
	margin uint64
	paused bool

	last     time.Time
	realtime float64 // in ticks
}

// NewPacer returns a pacer for a freq Hz clock. Scale 1 is real time,
// 0 runs unthrottled.
func NewPacer(freq uint64, scale float64) *Pacer {
	return NewPacerWithClock(freq, scale, time.Now, time.Sleep)
}

// NewPacerWithClock is NewPacer with injectable time functions.
func NewPacerWithClock(freq uint64, scale float64, now func() time.Time, sleep func(time.Duration)) *Pacer {
	if freq == 0 {
		freq = DefaultFrequency
	}
	if now == nil {
		now = time.Now
	}
	if sleep == nil {
		sleep = time.Sleep
	}
	if scale < 0 {
		scale = 0
	}
	return &Pacer{
		now:    now,
		sleep:  sleep,
		freq:   freq,
		scale:  scale,
		margin: NanosToTicks(uint64(DefaultMargin), freq),
	}
}

func (p *Pacer) SetMargin(d time.Duration) {
	if d < 0 {
		d = 0
	}
	p.mu.Lock()
	p.margin = NanosToTicks(uint64(d), p.freq)
	p.mu.Unlock()
}

func (p *Pacer) SetScale(scale float64) {
	if scale < 0 {
		scale = 0
	}
	p.mu.Lock()
	p.accumulate()
	p.scale = scale
	p.mu.Unlock()
}

func (p *Pacer) Scale() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scale
}

// SetPaused freezes (or resumes) real-time accumulation.
func (p *Pacer) SetPaused(paused bool) {
	p.mu.Lock()
	p.accumulate()
	p.paused = paused
	p.mu.Unlock()
}

func (p *Pacer) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// Realtime returns the accumulated real-time tick count.
func (p *Pacer) Realtime() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accumulate()
	return uint64(p.realtime)
}

func (p *Pacer) accumulate() {
	now := p.now()
	if p.last.IsZero() {
		p.last = now
		return
	}
	dt := now.Sub(p.last)
	p.last = now
	if dt <= 0 || p.paused {
		return
	}
	p.realtime += dt.Seconds() * float64(p.freq) * p.scale
}

// Wait blocks until target is within the margin of real time. quit is
// polled on every iteration so a paused pacer never blocks shutdown.
func (p *Pacer) Wait(target uint64, quit func() bool) error {
	for {
		if quit != nil && quit() {
			return ErrCancelled
		}
		d, ok := p.due(target)
		if ok {
			return nil
		}
		if d > maxPaceSleep {
			d = maxPaceSleep
		}
		p.sleep(d)
	}
}

func (p *Pacer) due(target uint64) (time.Duration, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accumulate()
	if p.scale == 0 && !p.paused {
		// Keep real time level with virtual time so throttling can resume
		// without a burst.
		if float64(target) > p.realtime {
			p.realtime = float64(target)
		}
		return 0, true
	}
	if float64(target) <= p.realtime+float64(p.margin) {
		return 0, true
	}
	if p.paused {
		return maxPaceSleep, false
	}
	ahead := float64(target) - p.realtime - float64(p.margin)
	d := time.Duration(ahead / (float64(p.freq) * p.scale) * float64(time.Second))
	if d <= 0 {
		d = time.Microsecond
	}
	return d, false
}
