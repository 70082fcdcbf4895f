// Package axis models a stepper-driven linear axis with endstops.
package axis

import (
	"math"
	"sync/atomic"

	"firmsim/gpio"
	"firmsim/peripheral"
)

type Config struct {
	Name   string
	Step   gpio.Pin
	Dir    gpio.Pin
	Enable gpio.Pin // active low
	Min    gpio.Pin // endstop at MinMM, NoPin if absent
	Max    gpio.Pin // endstop at MaxMM, NoPin if absent

	StepsPerMM float64
	MinMM      float64
	MaxMM      float64
	StartMM    float64

	InvertDir bool
	// EndstopHit is the pin value reported while an endstop is triggered.
	EndstopHit uint16
}

// Axis counts step pulses into a position. Position readers may run on any
// goroutine.
type Axis struct {
	f   *gpio.Fabric
	cfg Config

	steps    atomic.Int64
	minSteps int64
	maxSteps int64
	lost     atomic.Uint64
	shown    atomic.Int64
}

func New(f *gpio.Fabric, cfg Config) *Axis {
	if cfg.StepsPerMM <= 0 {
		cfg.StepsPerMM = 80
	}
	if cfg.MaxMM <= cfg.MinMM {
		cfg.MaxMM = cfg.MinMM + 200
	}
	a := &Axis{
		f:        f,
		cfg:      cfg,
		minSteps: int64(math.Round(cfg.MinMM * cfg.StepsPerMM)),
		maxSteps: int64(math.Round(cfg.MaxMM * cfg.StepsPerMM)),
	}
	a.steps.Store(int64(math.Round(cfg.StartMM * cfg.StepsPerMM)))
	a.shown.Store(a.steps.Load())
	return a
}

func (a *Axis) Name() string { return a.cfg.Name }

func (a *Axis) Connect(w *peripheral.Wiring) {
	w.On(a.cfg.Step, a)
	w.On(a.cfg.Min, a)
	w.On(a.cfg.Max, a)
}

func (a *Axis) OnEvent(e gpio.Event) {
	switch e.Pin {
	case a.cfg.Step:
		if e.Kind == gpio.EventRise {
			a.step()
		}
	case a.cfg.Min:
		if e.Kind == gpio.EventQuery {
			a.f.Store(e.Pin, a.endstop(a.steps.Load() <= a.minSteps))
		}
	case a.cfg.Max:
		if e.Kind == gpio.EventQuery {
			a.f.Store(e.Pin, a.endstop(a.steps.Load() >= a.maxSteps))
		}
	}
}

func (a *Axis) endstop(hit bool) uint16 {
	if hit {
		return a.cfg.EndstopHit
	}
	if a.cfg.EndstopHit == 0 {
		return 1
	}
	return 0
}

func (a *Axis) enabled() bool {
	return !a.cfg.Enable.Valid() || a.f.Peek(a.cfg.Enable) == 0
}

func (a *Axis) step() {
	if !a.enabled() {
		return
	}
	forward := a.f.Peek(a.cfg.Dir) != 0
	if a.cfg.InvertDir {
		forward = !forward
	}
	pos := a.steps.Load()
	if forward {
		pos++
	} else {
		pos--
	}
	// The carriage stops hard against the frame.
	if pos < a.minSteps || pos > a.maxSteps {
		a.lost.Add(1)
		return
	}
	a.steps.Store(pos)
}

func (a *Axis) Steps() int64 { return a.steps.Load() }

// Position is the live carriage position in mm.
func (a *Axis) Position() float64 {
	return float64(a.steps.Load()) / a.cfg.StepsPerMM
}

// LostSteps counts pulses that would have driven past the travel limits.
func (a *Axis) LostSteps() uint64 { return a.lost.Load() }

func (a *Axis) Update() { a.shown.Store(a.steps.Load()) }

// Shown is the position as of the last Update, in mm.
func (a *Axis) Shown() float64 {
	return float64(a.shown.Load()) / a.cfg.StepsPerMM
}
