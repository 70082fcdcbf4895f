// Package probe models a Z probe that triggers when its tip reaches the
// print bed.
package probe

import (
	"sync/atomic"

	"gonum.org/v1/gonum/spatial/r3"

	"firmsim/gpio"
	"firmsim/peripheral"
)

// Positioner reports an axis position in mm.
type Positioner interface {
	Position() float64
}

type Config struct {
	Pin     gpio.Pin
	X, Y, Z Positioner
	// Offset is the probe tip relative to the nozzle, in mm.
	Offset r3.Vec
	// Hit is the pin value while triggered.
	Hit uint16
}

// Probe computes its pin value when the firmware reads it, from the axis
// positions and the bed surface.
type Probe struct {
	f   *gpio.Fabric
	cfg Config
	bed *Bed

	reads     atomic.Uint64
	triggered atomic.Bool
	shown     atomic.Bool
}

func New(f *gpio.Fabric, bed *Bed, cfg Config) *Probe {
	return &Probe{f: f, cfg: cfg, bed: bed}
}

func (p *Probe) Connect(w *peripheral.Wiring) { w.On(p.cfg.Pin, p) }

func (p *Probe) OnEvent(e gpio.Event) {
	if e.Kind != gpio.EventQuery {
		return
	}
	p.reads.Add(1)
	hit := p.Triggered()
	p.triggered.Store(hit)
	v := p.cfg.Hit
	if !hit {
		v = 0
		if p.cfg.Hit == 0 {
			v = 1
		}
	}
	p.f.Store(p.cfg.Pin, v)
}

// Triggered reports whether the tip is at or below the bed right now.
func (p *Probe) Triggered() bool {
	x, y, z := p.cfg.X.Position(), p.cfg.Y.Position(), p.cfg.Z.Position()
	o := p.cfg.Offset
	return z+o.Z <= p.bed.ZAt(x+o.X, y+o.Y)
}

// Reads counts firmware samples of the probe pin.
func (p *Probe) Reads() uint64 { return p.reads.Load() }

func (p *Probe) Update() { p.shown.Store(p.triggered.Load()) }

// Shown is the state the firmware last sampled, as of Update.
func (p *Probe) Shown() bool { return p.shown.Load() }
