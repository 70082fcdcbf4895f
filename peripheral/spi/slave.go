// Package spi models the device side of a bit-banged SPI bus.
package spi

import (
	"firmsim/gpio"
	"firmsim/peripheral"
)

// Device receives whole bytes from a Slave.
type Device interface {
	OnByte(b byte)
}

// Transactor is implemented by devices that care about chip select.
type Transactor interface {
	OnBegin()
	OnEnd()
}

// ResponseNotifier is told when the last queued response byte went out.
type ResponseNotifier interface {
	OnResponseSent()
}

type Config struct {
	CLK, MOSI, MISO, CS gpio.Pin

	// Mode is the SPI mode 0-3 (CPOL<<1 | CPHA).
	Mode uint8

	// CSActiveHigh selects a chip select that is asserted high.
	CSActiveHigh bool
}

// Slave shifts bits between the bus pins and a Device. It must only be
// driven from the goroutine that writes the bus pins.
type Slave struct {
	cfg Config
	f   *gpio.Fabric
	dev Device

	active  bool
	in      byte
	bits    uint8
	out     byte
	load    bool
	sending bool
	queue   []byte
}

func NewSlave(f *gpio.Fabric, cfg Config, dev Device) *Slave {
	return &Slave{cfg: cfg, f: f, dev: dev, out: 0xFF}
}

func (s *Slave) Config() Config { return s.cfg }

// Connect subscribes the slave to its clock and chip select.
func (s *Slave) Connect(w *peripheral.Wiring) {
	w.On(s.cfg.CLK, s)
	w.On(s.cfg.CS, s)
}

// Respond queues bytes to shift out on MISO after the current byte.
func (s *Slave) Respond(b ...byte) {
	s.queue = append(s.queue, b...)
}

// Pending is the number of queued response bytes.
func (s *Slave) Pending() int { return len(s.queue) }

// Reset drops queued responses and any partial byte.
func (s *Slave) Reset() {
	s.queue = s.queue[:0]
	s.in, s.bits = 0, 0
	s.sending = false
	s.load = true
}

func (s *Slave) Active() bool { return s.active }

func (s *Slave) sampleEdge() gpio.EventKind {
	// Modes 0 and 3 sample on the rising edge.
	if s.cfg.Mode == 0 || s.cfg.Mode == 3 {
		return gpio.EventRise
	}
	return gpio.EventFall
}

func (s *Slave) OnEvent(e gpio.Event) {
	switch e.Pin {
	case s.cfg.CS:
		s.onSelect(e.Kind)
	case s.cfg.CLK:
		if !s.active {
			return
		}
		if e.Kind == s.sampleEdge() {
			s.sample()
		} else if e.Kind == gpio.EventRise || e.Kind == gpio.EventFall {
			s.shift()
		}
	}
}

func (s *Slave) onSelect(kind gpio.EventKind) {
	begin, end := gpio.EventFall, gpio.EventRise
	if s.cfg.CSActiveHigh {
		begin, end = gpio.EventRise, gpio.EventFall
	}
	switch kind {
	case begin:
		s.active = true
		s.in, s.bits = 0, 0
		if t, ok := s.dev.(Transactor); ok {
			t.OnBegin()
		}
		s.next()
		s.present()
	case end:
		if !s.active {
			return
		}
		s.active = false
		if t, ok := s.dev.(Transactor); ok {
			t.OnEnd()
		}
	}
}

func (s *Slave) sample() {
	bit := byte(0)
	if s.f.Peek(s.cfg.MOSI) != 0 {
		bit = 1
	}
	s.in = s.in<<1 | bit
	s.bits++
	if s.bits < 8 {
		return
	}
	b := s.in
	s.in, s.bits = 0, 0
	s.load = true
	wasSending := s.sending
	s.sending = false
	if s.dev != nil {
		s.dev.OnByte(b)
	}
	if wasSending && len(s.queue) == 0 {
		if n, ok := s.dev.(ResponseNotifier); ok {
			n.OnResponseSent()
		}
	}
}

func (s *Slave) shift() {
	if s.load && s.bits == 0 {
		s.next()
	}
	s.present()
}

// next loads the byte to shift out for the coming frame.
func (s *Slave) next() {
	s.load = false
	if len(s.queue) == 0 {
		s.out = 0xFF
		s.sending = false
		return
	}
	s.out = s.queue[0]
	s.queue = s.queue[1:]
	s.sending = true
}

func (s *Slave) present() {
	if !s.cfg.MISO.Valid() {
		return
	}
	s.f.Store(s.cfg.MISO, uint16(s.out>>(7-s.bits))&1)
}
