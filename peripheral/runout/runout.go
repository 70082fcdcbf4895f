// Package runout models a filament runout switch.
package runout

import (
	"sync/atomic"

	"firmsim/gpio"
	"firmsim/peripheral"
)

// Sensor answers queries with TriggerValue while no filament is loaded.
type Sensor struct {
	f       *gpio.Fabric
	pin     gpio.Pin
	trigger uint16

	present atomic.Bool
	shown   atomic.Bool
}

func New(f *gpio.Fabric, pin gpio.Pin, trigger uint16) *Sensor {
	s := &Sensor{f: f, pin: pin, trigger: trigger}
	s.present.Store(true)
	s.shown.Store(true)
	return s
}

func (s *Sensor) Connect(w *peripheral.Wiring) { w.On(s.pin, s) }

// SetPresent is safe from the UI goroutine.
func (s *Sensor) SetPresent(v bool) { s.present.Store(v) }

func (s *Sensor) Present() bool { return s.present.Load() }

func (s *Sensor) value() uint16 {
	if s.present.Load() {
		if s.trigger == 0 {
			return 1
		}
		return 0
	}
	return s.trigger
}

func (s *Sensor) OnEvent(e gpio.Event) {
	if e.Kind == gpio.EventQuery {
		s.f.Store(s.pin, s.value())
	}
}

func (s *Sensor) Update() { s.shown.Store(s.present.Load()) }

// Shown is the filament state as of the last Update.
func (s *Sensor) Shown() bool { return s.shown.Load() }
