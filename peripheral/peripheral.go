// Package peripheral holds the device models that sit on the GPIO fabric.
//
// A model reacts to pin events synchronously on the scheduler goroutine and
// keeps whatever state a UI needs behind its own lock or in atomics. Update
// is called once per host frame and must not touch the fabric.
package peripheral

import (
	"sync"

	"firmsim/gpio"
)

type Peripheral interface {
	Update()
}

// Group updates a fixed set of peripherals in registration order.
type Group struct {
	mu    sync.Mutex
	items []Peripheral
}

func (g *Group) Add(p Peripheral) {
	if p == nil {
		return
	}
	g.mu.Lock()
	g.items = append(g.items, p)
	g.mu.Unlock()
}

func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.items)
}

func (g *Group) Update() {
	g.mu.Lock()
	items := g.items
	g.mu.Unlock()
	for _, p := range items {
		p.Update()
	}
}

// Wiring collects the subscribers of every pin before attaching them, so
// devices that share a bus line each see its events.
type Wiring struct {
	subs  map[gpio.Pin][]gpio.Subscriber
	order []gpio.Pin
}

func NewWiring() *Wiring {
	return &Wiring{subs: make(map[gpio.Pin][]gpio.Subscriber)}
}

// On subscribes s to pin p. Invalid pins are ignored.
func (w *Wiring) On(p gpio.Pin, s gpio.Subscriber) {
	if !p.Valid() || s == nil {
		return
	}
	if _, ok := w.subs[p]; !ok {
		w.order = append(w.order, p)
	}
	w.subs[p] = append(w.subs[p], s)
}

// Pins returns the wired pins in the order they were first used.
func (w *Wiring) Pins() []gpio.Pin { return w.order }

// Apply attaches everything collected so far to f.
func (w *Wiring) Apply(f *gpio.Fabric) {
	for _, p := range w.order {
		subs := w.subs[p]
		if len(subs) == 1 {
			f.Attach(p, subs[0])
			continue
		}
		f.Attach(p, gpio.Multi(subs...))
	}
}

// Connector is implemented by models that subscribe to pins.
type Connector interface {
	Connect(w *Wiring)
}
