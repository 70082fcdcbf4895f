package st7920

import "firmsim/gpio"

// The methods below write pins and must run on the scheduler goroutine.

// Quadrature states in clockwise order.
var encoderStates = [4][2]uint16{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

// Step moves the encoder one quadrature step, clockwise for dir > 0.
func (d *Display) Step(dir int) {
	if dir > 0 {
		dir = 1
	} else {
		dir = -1
	}
	d.encoder = uint8((int(d.encoder) + dir + 4) % 4)
	s := encoderStates[d.encoder]
	d.f.Set(d.cfg.Enc1, s[0])
	d.f.Set(d.cfg.Enc2, s[1])
}

// RotateCW turns the encoder one detent (two quadrature steps) clockwise.
func (d *Display) RotateCW() {
	d.Step(1)
	d.Step(1)
}

func (d *Display) RotateCCW() {
	d.Step(-1)
	d.Step(-1)
}

// SetButton presses or releases the encoder button (active low).
func (d *Display) SetButton(pressed bool) { d.setActiveLow(d.cfg.EncButton, pressed) }

// SetKill presses or releases the kill button (active low).
func (d *Display) SetKill(pressed bool) { d.setActiveLow(d.cfg.Kill, pressed) }

func (d *Display) setActiveLow(p gpio.Pin, pressed bool) {
	if pressed {
		d.f.Clear(p)
	} else {
		d.f.SetHigh(p)
	}
}
