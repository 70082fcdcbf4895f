// Package st7920 models a 128x64 ST7920 graphic LCD on its serial
// interface, together with the rotary encoder, buttons and beeper of a
// typical printer control panel.
package st7920

import (
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash"

	"firmsim/gpio"
	"firmsim/peripheral"
	"firmsim/peripheral/spi"
)

const (
	Width  = 128
	Height = 64

	rowBytes   = 256 / 8 // GDRAM row pitch
	gdramRows  = Height / 2
	frameBytes = Width / 8 * Height
)

type Config struct {
	CLK, MOSI, CS gpio.Pin

	Beeper    gpio.Pin
	Enc1      gpio.Pin
	Enc2      gpio.Pin
	EncButton gpio.Pin
	Kill      gpio.Pin
}

// Frame is a packed 1bpp image, MSB first, Width/8 bytes per row.
type Frame struct {
	Pixels [frameBytes]byte
	Hash   uint64
}

func (fr *Frame) Pixel(x, y int) bool {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return false
	}
	return fr.Pixels[y*Width/8+x/8]&(0x80>>(x%8)) != 0
}

type command struct {
	rw, rs bool
	data   byte
}

type Display struct {
	f     *gpio.Fabric
	cfg   Config
	slave *spi.Slave

	frame  [3]byte
	frameN int

	extended  bool
	graphics  bool
	displayOn bool
	coord     [2]byte // row, column byte
	coordN    int

	mu      sync.Mutex
	gdram   [gdramRows * rowBytes]byte
	version uint64
	front   Frame
	shown   uint64

	beeping atomic.Bool
	beeps   atomic.Uint64
	encoder uint8
}

func New(f *gpio.Fabric, cfg Config) *Display {
	d := &Display{f: f, cfg: cfg}
	// Chip select is active high and data is taken on the falling clock.
	d.slave = spi.NewSlave(f, spi.Config{
		CLK:          cfg.CLK,
		MOSI:         cfg.MOSI,
		MISO:         gpio.NoPin,
		CS:           cfg.CS,
		Mode:         1,
		CSActiveHigh: true,
	}, d)
	d.front.Hash = xxhash.Sum64(d.front.Pixels[:])
	return d
}

func (d *Display) Connect(w *peripheral.Wiring) {
	d.slave.Connect(w)
	w.On(d.cfg.Beeper, d)
}

func (d *Display) OnBegin() { d.frameN = 0 }
func (d *Display) OnEnd()   { d.frameN = 0 }

// OnByte assembles the three-byte serial frames: a sync byte carrying RW
// and RS, then the high and low nibbles of the payload.
func (d *Display) OnByte(b byte) {
	if d.frameN == 0 && b&0xF8 != 0xF8 {
		// Out of sync; treat the byte as the high nibble.
		d.frameN++
	}
	d.frame[d.frameN] = b
	d.frameN++
	if d.frameN < 3 {
		return
	}
	d.frameN = 0
	d.process(command{
		rw:   d.frame[0]&0x04 != 0,
		rs:   d.frame[0]&0x02 != 0,
		data: d.frame[1] | d.frame[2]>>4,
	})
}

func (d *Display) process(c command) {
	if c.rw {
		return
	}
	if c.rs {
		d.write(c.data)
		return
	}
	if d.extended {
		d.extendedCommand(c.data)
		return
	}
	d.basicCommand(c.data)
}

func (d *Display) write(b byte) {
	row, col := int(d.coord[0]), int(d.coord[1])
	if row < gdramRows {
		d.mu.Lock()
		d.gdram[row*rowBytes+col] = b
		d.version++
		d.mu.Unlock()
	}
	col++
	if col >= rowBytes {
		col = 0
	}
	d.coord[1] = byte(col)
}

func (d *Display) functionSet(b byte) {
	d.extended = b&0x04 != 0
	if d.extended {
		d.graphics = b&0x02 != 0
	}
}

func (d *Display) extendedCommand(b byte) {
	switch {
	case b&0x80 != 0:
		// Vertical address first, then horizontal word address.
		d.coord[d.coordN] = b & 0x7F
		d.coordN++
		if d.coordN == 2 {
			d.coordN = 0
			d.coord[1] = (d.coord[1] * 2) % rowBytes
		}
	case b&0x40 != 0:
		// Scroll address, not modelled.
	case b&0x20 != 0:
		d.functionSet(b)
	}
}

func (d *Display) basicCommand(b byte) {
	switch {
	case b&0x80 != 0, b&0x40 != 0:
		// DDRAM and CGRAM addressing only affect text mode.
	case b&0x20 != 0:
		d.functionSet(b)
	case b&0x10 != 0:
		// Cursor shift.
	case b&0x08 != 0:
		d.displayOn = b&0x04 != 0
	case b&0x02 != 0:
		d.coord = [2]byte{}
		d.coordN = 0
	}
}

// DisplayOn reports whether the firmware switched the panel on.
func (d *Display) DisplayOn() bool { return d.displayOn }

// Update publishes the GDRAM to the frame returned by Frame.
func (d *Display) Update() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.version == d.shown {
		return
	}
	d.shown = d.version
	// Each GDRAM row is 256 pixels wide; its right half is shown 32 rows
	// further down.
	const half = Width / 8
	for y := 0; y < gdramRows; y++ {
		row := d.gdram[y*rowBytes : (y+1)*rowBytes]
		copy(d.front.Pixels[y*half:], row[:half])
		copy(d.front.Pixels[(y+gdramRows)*half:], row[half:])
	}
	d.front.Hash = xxhash.Sum64(d.front.Pixels[:])
}

// Frame returns the image published by the last Update.
func (d *Display) Frame() Frame {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.front
}

// OnEvent tracks the beeper.
func (d *Display) OnEvent(e gpio.Event) {
	if e.Pin != d.cfg.Beeper {
		return
	}
	switch e.Kind {
	case gpio.EventRise, gpio.EventSet:
		if !d.beeping.Swap(true) {
			d.beeps.Add(1)
		}
	case gpio.EventFall:
		d.beeping.Store(false)
	}
}

func (d *Display) Beeping() bool { return d.beeping.Load() }
func (d *Display) Beeps() uint64 { return d.beeps.Load() }
