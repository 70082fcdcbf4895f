package kernel

import (
	"math/bits"
	"sync/atomic"
)

// DefaultFrequency is the system tick rate used when none is configured.
const DefaultFrequency = 100_000_000

// Never is the deadline of a source that will not fire.
const Never = ^uint64(0)

const nanosPerSecond = 1_000_000_000

// Clock is the virtual time base. Only the scheduler moves it.
type Clock struct {
	ticks atomic.Uint64
	freq  uint64
}

// NewClock returns a clock at tick zero running at freq ticks per second.
func NewClock(freq uint64) *Clock {
	if freq == 0 {
		freq = DefaultFrequency
	}
	return &Clock{freq: freq}
}

func (c *Clock) Frequency() uint64 { return c.freq }

// Ticks returns the current virtual time. Safe from any goroutine.
func (c *Clock) Ticks() uint64 { return c.ticks.Load() }

// SetTicks moves the clock. The scheduler only ever moves it forward.
func (c *Clock) SetTicks(t uint64) { c.ticks.Store(t) }

func (c *Clock) Nanos() uint64   { return TicksToNanos(c.Ticks(), c.freq) }
func (c *Clock) Micros() uint64  { return c.Nanos() / 1000 }
func (c *Clock) Millis() uint64  { return c.Micros() / 1000 }
func (c *Clock) Seconds() uint64 { return c.Millis() / 1000 }

// NanosToTicks converts a duration to ticks of a freq Hz clock, rounding down.
func NanosToTicks(ns, freq uint64) uint64 {
	switch {
	case freq == 0:
		return 0
	case freq > nanosPerSecond:
		return ns * (freq / nanosPerSecond)
	default:
		return ns / (nanosPerSecond / freq)
	}
}

// TicksToNanos converts ticks of a freq Hz clock to nanoseconds, rounding down.
func TicksToNanos(t, freq uint64) uint64 {
	switch {
	case freq == 0:
		return 0
	case freq > nanosPerSecond:
		return t / (freq / nanosPerSecond)
	default:
		return t * (nanosPerSecond / freq)
	}
}

// Rescale converts v counts of a from Hz clock to counts of a to Hz clock,
// rounding down. The product is kept in 128 bits; results that do not fit
// saturate at Never.
func Rescale(v, from, to uint64) uint64 {
	if from == 0 {
		return 0
	}
	hi, lo := bits.Mul64(v, to)
	if hi >= from {
		return Never
	}
	q, _ := bits.Div64(hi, lo, from)
	return q
}
