// Package xpt2046 models the XPT2046 resistive touch controller.
package xpt2046

import (
	"sync/atomic"

	"firmsim/gpio"
	"firmsim/peripheral"
	"firmsim/peripheral/spi"
)

// Differential-mode conversion commands.
const (
	CmdX  = 0xD0
	CmdY  = 0x90
	CmdZ1 = 0xB0
	CmdZ2 = 0xC0

	maxRaw = 4095
)

type Config struct {
	spi.Config
	// Width and Height of the panel the touch surface covers.
	Width, Height int
}

// Touch answers conversions from a touch state the UI sets from any
// goroutine.
type Touch struct {
	cfg   Config
	slave *spi.Slave

	// pressed<<32 | x<<16 | y, in panel coordinates.
	state atomic.Uint64
	reads atomic.Uint64
}

func New(f *gpio.Fabric, cfg Config) *Touch {
	if cfg.Width <= 1 {
		cfg.Width = 320
	}
	if cfg.Height <= 1 {
		cfg.Height = 240
	}
	t := &Touch{cfg: cfg}
	t.slave = spi.NewSlave(f, cfg.Config, t)
	return t
}

func (t *Touch) Connect(w *peripheral.Wiring) { t.slave.Connect(w) }

// Press holds a finger at (x, y).
func (t *Touch) Press(x, y int) {
	x = clamp(x, t.cfg.Width-1)
	y = clamp(y, t.cfg.Height-1)
	t.state.Store(1<<32 | uint64(x)<<16 | uint64(y))
}

func (t *Touch) Release() { t.state.Store(0) }

// Touched returns the current touch point.
func (t *Touch) Touched() (x, y int, pressed bool) {
	s := t.state.Load()
	return int(s >> 16 & 0xFFFF), int(s & 0xFFFF), s>>32 != 0
}

// Conversions counts the samples taken by the firmware.
func (t *Touch) Conversions() uint64 { return t.reads.Load() }

func (t *Touch) Update() {}

func clamp(v, hi int) int {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}

func (t *Touch) sample(cmd byte) uint16 {
	x, y, pressed := t.Touched()
	switch cmd {
	case CmdX:
		if pressed {
			return uint16(x * maxRaw / (t.cfg.Width - 1))
		}
	case CmdY:
		if pressed {
			return uint16(y * maxRaw / (t.cfg.Height - 1))
		}
	case CmdZ1:
		if pressed {
			return maxRaw
		}
	case CmdZ2:
		if !pressed {
			return maxRaw
		}
	}
	return 0
}

// OnByte starts a conversion when a control byte arrives. The 12-bit
// result follows in the next two bytes, MSB first, after one busy clock.
func (t *Touch) OnByte(b byte) {
	if b&0x80 == 0 {
		return
	}
	v := t.sample(b & 0xF0)
	t.reads.Add(1)
	t.slave.Reset()
	t.slave.Respond(byte(v>>5), byte(v<<3))
}
