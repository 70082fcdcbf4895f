// Package signal drives an input pin with a periodic square wave in virtual
// time.
package signal

import (
	"sync/atomic"
	"time"

	"firmsim/gpio"
	"firmsim/peripheral"
)

type Config struct {
	Pin       gpio.Pin
	Frequency uint64 // kernel ticks per second
	Period    time.Duration
	High      time.Duration
}

// Signal answers queries on its pin from the query timestamp, so the wave
// never needs its own source in the scheduler.
type Signal struct {
	f      *gpio.Fabric
	pin    gpio.Pin
	period uint64
	high   uint64
	t0     atomic.Uint64

	reads atomic.Uint64
	level atomic.Bool
}

func New(f *gpio.Fabric, cfg Config) *Signal {
	if cfg.Period <= 0 {
		cfg.Period = time.Second
	}
	if cfg.High < 0 {
		cfg.High = 0
	}
	if cfg.High > cfg.Period {
		cfg.High = cfg.Period
	}
	if cfg.Frequency == 0 {
		cfg.Frequency = 100_000_000
	}
	s := &Signal{
		f:      f,
		pin:    cfg.Pin,
		period: toTicks(cfg.Period, cfg.Frequency),
		high:   toTicks(cfg.High, cfg.Frequency),
	}
	if s.period == 0 {
		s.period = 1
	}
	return s
}

func toTicks(d time.Duration, freq uint64) uint64 {
	return uint64(d.Seconds() * float64(freq))
}

func (s *Signal) Connect(w *peripheral.Wiring) { w.On(s.pin, s) }

// Reset restarts the wave at t.
func (s *Signal) Reset(t uint64) { s.t0.Store(t) }

// LevelAt is the wave value at tick t. The pin is low before the wave
// starts.
func (s *Signal) LevelAt(t uint64) bool {
	t0 := s.t0.Load()
	if t < t0 {
		return false
	}
	return (t-t0)%s.period < s.high
}

func (s *Signal) OnEvent(e gpio.Event) {
	if e.Kind != gpio.EventQuery {
		return
	}
	s.reads.Add(1)
	v := uint16(0)
	if s.LevelAt(e.Timestamp) {
		v = 1
	}
	s.f.Store(s.pin, v)
}

func (s *Signal) Reads() uint64 { return s.reads.Load() }

func (s *Signal) Update() { s.level.Store(s.f.Peek(s.pin) != 0) }

// Level is the last sampled value as of Update.
func (s *Signal) Level() bool { return s.level.Load() }
