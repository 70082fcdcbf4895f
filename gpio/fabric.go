// Package gpio is the pin table shared by simulated firmware and peripherals.
//
// Every write produces an Event that is handed, on the writer's goroutine,
// to the one Subscriber attached to that pin. Reads produce an EventQuery
// first so a peripheral can compute the value lazily.
package gpio

import "sync/atomic"

// NumPins is the size of the pin table.
const NumPins = 256

// Pin indexes the pin table. Values outside [0, NumPins) are ignored.
type Pin int16

// NoPin is never valid.
const NoPin Pin = -1

func (p Pin) Valid() bool { return p >= 0 && p < NumPins }

type Direction uint8

const (
	Input Direction = iota
	Output
)

type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
	PullTristate
)

type Function uint8

const (
	FuncGPIO Function = iota
	FuncADC
	FuncSPI
	FuncI2C
	FuncUART
)

// Mode is the Arduino-style pinMode argument.
type Mode uint8

const (
	ModeInput Mode = iota
	ModeOutput
	ModeInputPullUp
	ModeInputPullDown
)

// Ticker supplies event timestamps; *kernel.Clock implements it.
type Ticker interface {
	Ticks() uint64
}

type subscriberRef struct{ s Subscriber }

type pinState struct {
	value atomic.Uint32
	dir   atomic.Uint32
	pull  atomic.Uint32
	fn    atomic.Uint32
	rises atomic.Uint32
	falls atomic.Uint32
	sub   atomic.Pointer[subscriberRef]
}

// Fabric is the pin table. Firmware writes come from the scheduler
// goroutine; Peek and the getters are safe from any goroutine.
type Fabric struct {
	clock Ticker
	pins  [NumPins]pinState
}

func New(clock Ticker) *Fabric {
	return &Fabric{clock: clock}
}

func (f *Fabric) now() uint64 {
	if f.clock == nil {
		return 0
	}
	return f.clock.Ticks()
}

func (f *Fabric) pin(p Pin) *pinState {
	if !p.Valid() {
		return nil
	}
	return &f.pins[p]
}

func (f *Fabric) dispatch(p Pin, st *pinState, kind EventKind) {
	ref := st.sub.Load()
	if ref == nil {
		return
	}
	ref.s.OnEvent(Event{Timestamp: f.now(), Pin: p, Kind: kind})
}

// Attach makes s the subscriber of pin p, replacing any previous one.
func (f *Fabric) Attach(p Pin, s Subscriber) {
	st := f.pin(p)
	if st == nil {
		return
	}
	if s == nil {
		st.sub.Store(nil)
		return
	}
	st.sub.Store(&subscriberRef{s: s})
}

func (f *Fabric) Detach(p Pin) { f.Attach(p, nil) }

// SetMode configures pin p as a GPIO with the given direction and pull.
func (f *Fabric) SetMode(p Pin, m Mode) {
	st := f.pin(p)
	if st == nil {
		return
	}
	st.fn.Store(uint32(FuncGPIO))
	f.dispatch(p, st, EventMode)

	dir, pull := Input, PullNone
	switch m {
	case ModeOutput:
		dir = Output
	case ModeInputPullUp:
		pull = PullUp
	case ModeInputPullDown:
		pull = PullDown
	}
	f.SetDirection(p, dir)
	st.pull.Store(uint32(pull))
	if pull == PullUp {
		f.Set(p, 1)
	}
}

// GetMode reports the pin's configuration in SetMode terms.
func (f *Fabric) GetMode(p Pin) Mode {
	st := f.pin(p)
	if st == nil {
		return ModeInput
	}
	if Direction(st.dir.Load()) == Output {
		return ModeOutput
	}
	switch Pull(st.pull.Load()) {
	case PullUp:
		return ModeInputPullUp
	case PullDown:
		return ModeInputPullDown
	}
	return ModeInput
}

func (f *Fabric) SetDirection(p Pin, d Direction) {
	st := f.pin(p)
	if st == nil {
		return
	}
	st.dir.Store(uint32(d))
	f.dispatch(p, st, EventDirection)
}

func (f *Fabric) GetDirection(p Pin) Direction {
	if st := f.pin(p); st != nil {
		return Direction(st.dir.Load())
	}
	return Input
}

func (f *Fabric) GetPull(p Pin) Pull {
	if st := f.pin(p); st != nil {
		return Pull(st.pull.Load())
	}
	return PullNone
}

// SetFunction selects the pin's alternate function without an event.
func (f *Fabric) SetFunction(p Pin, fn Function) {
	if st := f.pin(p); st != nil {
		st.fn.Store(uint32(fn))
	}
}

func (f *Fabric) GetFunction(p Pin) Function {
	if st := f.pin(p); st != nil {
		return Function(st.fn.Load())
	}
	return FuncGPIO
}

// Set writes v and notifies the subscriber with the resulting edge.
func (f *Fabric) Set(p Pin, v uint16) {
	st := f.pin(p)
	if st == nil {
		return
	}
	prev := uint16(st.value.Swap(uint32(v)))
	kind := classify(prev, v)
	switch kind {
	case EventRise:
		st.rises.Add(1)
	case EventFall:
		st.falls.Add(1)
	}
	f.dispatch(p, st, kind)
}

func (f *Fabric) SetHigh(p Pin) { f.Set(p, 1) }
func (f *Fabric) Clear(p Pin)   { f.Set(p, 0) }

// Get lets the subscriber refresh the value, then returns it.
func (f *Fabric) Get(p Pin) uint16 {
	st := f.pin(p)
	if st == nil {
		return 0
	}
	f.dispatch(p, st, EventQuery)
	return uint16(st.value.Load())
}

// Store writes the value without producing an event. Subscribers use it to
// answer a query.
func (f *Fabric) Store(p Pin, v uint16) {
	if st := f.pin(p); st != nil {
		st.value.Store(uint32(v))
	}
}

// Peek reads the value without producing an event.
func (f *Fabric) Peek(p Pin) uint16 {
	if st := f.pin(p); st != nil {
		return uint16(st.value.Load())
	}
	return 0
}

// Edges returns how many rising and falling edges pin p has seen.
func (f *Fabric) Edges(p Pin) (rises, falls uint32) {
	if st := f.pin(p); st != nil {
		return st.rises.Load(), st.falls.Load()
	}
	return 0, 0
}
