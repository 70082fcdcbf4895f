package gpio

import (
	"testing"

	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

func TestPinIOOut(t *testing.T) {
	f := New(&fakeClock{})
	r := &recorder{}
	f.Attach(12, r)
	p := f.PinIO(12, "LED")

	if err := p.Out(pgpio.High); err != nil {
		t.Fatalf("Out: %v", err)
	}
	if f.GetDirection(12) != Output || f.Peek(12) != 1 {
		t.Fatalf("pin 12: dir=%d value=%d", f.GetDirection(12), f.Peek(12))
	}
	if p.Function() != "Out/High" {
		t.Fatalf("Function() = %q, want Out/High", p.Function())
	}
	if err := p.Out(pgpio.Low); err != nil {
		t.Fatalf("Out: %v", err)
	}
	if got := r.kinds(); got != "[MODE DIRECTION RISE FALL]" {
		t.Fatalf("events = %s", got)
	}
	if p.String() != "LED" || p.Number() != 12 {
		t.Fatalf("String() = %q Number() = %d", p.String(), p.Number())
	}
}

func TestPinIOInAndEdges(t *testing.T) {
	f := New(&fakeClock{})
	p := f.PinIO(3, "")
	if p.Name() != "P3" {
		t.Fatalf("Name() = %q, want P3", p.Name())
	}
	if err := p.In(pgpio.PullUp, pgpio.FallingEdge); err != nil {
		t.Fatalf("In: %v", err)
	}
	if p.Pull() != pgpio.PullUp || p.Read() != pgpio.High {
		t.Fatalf("Pull() = %s Read() = %s", p.Pull(), p.Read())
	}
	if p.WaitForEdge(0) {
		t.Fatal("edge reported before any change")
	}
	f.Clear(3)
	if !p.WaitForEdge(0) {
		t.Fatal("falling edge not reported")
	}
	f.SetHigh(3)
	if p.WaitForEdge(0) {
		t.Fatal("rising edge reported for FallingEdge")
	}
}

func TestPinIOPWM(t *testing.T) {
	f := New(&fakeClock{})
	p := f.PinIO(20, "FAN")
	if err := p.PWM(pgpio.DutyHalf, 1*physic.KiloHertz); err != nil {
		t.Fatalf("PWM: %v", err)
	}
	if got := f.Peek(20); got != 127 {
		t.Fatalf("Peek() = %d, want 127", got)
	}
	if err := p.PWM(-1, 0); err == nil {
		t.Fatal("PWM(-1) succeeded")
	}
	if err := f.PinIO(NumPins, "").Out(pgpio.High); err == nil {
		t.Fatal("Out on an invalid pin succeeded")
	}
}
