package gpio

import (
	"fmt"
	"time"

	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// PinIO exposes one fabric pin through the periph.io pin API so code
// written against host GPIO libraries can drive simulated pins.
//
// WaitForEdge never blocks: virtual time only moves when the scheduler
// runs, so it reports whether an edge was seen since the previous call.
type PinIO struct {
	f    *Fabric
	pin  Pin
	name string
	edge pgpio.Edge

	rises, falls uint32
}

var _ pgpio.PinIO = (*PinIO)(nil)

// PinIO returns pin p wrapped for periph.io. name defaults to "P<n>".
func (f *Fabric) PinIO(p Pin, name string) *PinIO {
	if name == "" {
		name = fmt.Sprintf("P%d", p)
	}
	return &PinIO{f: f, pin: p, name: name}
}

func (p *PinIO) String() string { return p.name }
func (p *PinIO) Name() string   { return p.name }
func (p *PinIO) Number() int    { return int(p.pin) }
func (p *PinIO) Halt() error    { return nil }

func (p *PinIO) Function() string {
	if p.f.GetDirection(p.pin) == Output {
		return "Out/" + p.level().String()
	}
	return "In/" + p.level().String()
}

func (p *PinIO) level() pgpio.Level { return p.f.Peek(p.pin) != 0 }

func (p *PinIO) In(pull pgpio.Pull, edge pgpio.Edge) error {
	if !p.pin.Valid() {
		return fmt.Errorf("gpio: %s: no such pin", p.name)
	}
	switch pull {
	case pgpio.PullNoChange:
		p.f.SetDirection(p.pin, Input)
	case pgpio.PullUp:
		p.f.SetMode(p.pin, ModeInputPullUp)
	case pgpio.PullDown:
		p.f.SetMode(p.pin, ModeInputPullDown)
	default:
		p.f.SetMode(p.pin, ModeInput)
	}
	p.edge = edge
	p.rises, p.falls = p.f.Edges(p.pin)
	return nil
}

func (p *PinIO) Read() pgpio.Level { return p.f.Get(p.pin) != 0 }

func (p *PinIO) WaitForEdge(timeout time.Duration) bool {
	rises, falls := p.f.Edges(p.pin)
	seen := false
	switch p.edge {
	case pgpio.RisingEdge:
		seen = rises != p.rises
	case pgpio.FallingEdge:
		seen = falls != p.falls
	case pgpio.BothEdges:
		seen = rises != p.rises || falls != p.falls
	}
	p.rises, p.falls = rises, falls
	return seen
}

func (p *PinIO) Pull() pgpio.Pull {
	switch p.f.GetPull(p.pin) {
	case PullUp:
		return pgpio.PullUp
	case PullDown:
		return pgpio.PullDown
	}
	return pgpio.Float
}

func (p *PinIO) DefaultPull() pgpio.Pull { return pgpio.Float }

func (p *PinIO) Out(l pgpio.Level) error {
	if !p.pin.Valid() {
		return fmt.Errorf("gpio: %s: no such pin", p.name)
	}
	if p.f.GetDirection(p.pin) != Output {
		p.f.SetMode(p.pin, ModeOutput)
	}
	if l {
		p.f.SetHigh(p.pin)
	} else {
		p.f.Clear(p.pin)
	}
	return nil
}

// PWM writes the duty cycle as an 8-bit analog value. The frequency is
// not modelled.
func (p *PinIO) PWM(duty pgpio.Duty, _ physic.Frequency) error {
	if !p.pin.Valid() {
		return fmt.Errorf("gpio: %s: no such pin", p.name)
	}
	if duty < 0 || duty > pgpio.DutyMax {
		return fmt.Errorf("gpio: %s: duty %s out of range", p.name, duty)
	}
	if p.f.GetDirection(p.pin) != Output {
		p.f.SetMode(p.pin, ModeOutput)
	}
	p.f.Set(p.pin, uint16(int64(duty)*255/int64(pgpio.DutyMax)))
	return nil
}
