package st7920

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firmsim/gpio"
	"firmsim/peripheral"
)

var testPins = Config{CLK: 20, MOSI: 21, CS: 22, Beeper: 23, Enc1: 24, Enc2: 25, EncButton: 26, Kill: 27}

type panel struct {
	f *gpio.Fabric
	d *Display
}

func newPanel(t *testing.T) panel {
	t.Helper()
	f := gpio.New(nil)
	d := New(f, testPins)
	w := peripheral.NewWiring()
	d.Connect(w)
	w.Apply(f)
	return panel{f: f, d: d}
}

func (p panel) byte(b byte) {
	for i := 7; i >= 0; i-- {
		p.f.Set(testPins.MOSI, uint16(b>>i)&1)
		p.f.SetHigh(testPins.CLK)
		p.f.Clear(testPins.CLK)
	}
}

func (p panel) send(rs bool, data byte) {
	p.f.SetHigh(testPins.CS)
	sync := byte(0xF8)
	if rs {
		sync |= 0x02
	}
	p.byte(sync)
	p.byte(data & 0xF0)
	p.byte(data << 4)
	p.f.Clear(testPins.CS)
}

func TestGraphicWrite(t *testing.T) {
	p := newPanel(t)
	before := p.d.Frame().Hash

	p.send(false, 0x0C) // display on
	p.send(false, 0x36) // extended, graphics on
	p.send(false, 0x80|5)
	p.send(false, 0x80|1) // second 16-pixel word
	p.send(true, 0b1010_0000)
	p.send(true, 0xFF)

	assert.True(t, p.d.DisplayOn())
	require.Equal(t, before, p.d.Frame().Hash, "frame published before Update")
	p.d.Update()
	fr := p.d.Frame()
	assert.NotEqual(t, before, fr.Hash)

	assert.True(t, fr.Pixel(16, 5))
	assert.False(t, fr.Pixel(17, 5))
	assert.True(t, fr.Pixel(18, 5))
	for x := 24; x < 32; x++ {
		assert.True(t, fr.Pixel(x, 5), "x=%d", x)
	}
	assert.False(t, fr.Pixel(16, 4))
	assert.False(t, fr.Pixel(-1, 0))
}

func TestLowerHalfAddressing(t *testing.T) {
	p := newPanel(t)
	p.send(false, 0x36)
	p.send(false, 0x80|3)
	p.send(false, 0x80|8) // word 8 is the lower half
	p.send(true, 0x80)
	p.d.Update()
	fr := p.d.Frame()
	assert.True(t, fr.Pixel(0, 35))
}

func TestResyncAfterGarbage(t *testing.T) {
	p := newPanel(t)
	p.send(false, 0x36)
	p.send(false, 0x80)
	p.send(false, 0x80)
	// A deselect mid-frame drops the partial frame.
	p.f.SetHigh(testPins.CS)
	p.byte(0xFA)
	p.f.Clear(testPins.CS)
	p.send(true, 0x01)
	p.d.Update()
	fr := p.d.Frame()
	assert.True(t, fr.Pixel(7, 0))
}

func TestEncoderAndButtons(t *testing.T) {
	p := newPanel(t)
	p.d.RotateCW()
	assert.Equal(t, uint16(1), p.f.Peek(testPins.Enc1))
	assert.Equal(t, uint16(1), p.f.Peek(testPins.Enc2))
	p.d.RotateCW()
	assert.Equal(t, uint16(0), p.f.Peek(testPins.Enc1))
	assert.Equal(t, uint16(0), p.f.Peek(testPins.Enc2))
	p.d.RotateCCW()
	assert.Equal(t, uint16(1), p.f.Peek(testPins.Enc1))
	assert.Equal(t, uint16(1), p.f.Peek(testPins.Enc2))

	p.d.SetButton(false)
	assert.Equal(t, uint16(1), p.f.Peek(testPins.EncButton))
	p.d.SetButton(true)
	assert.Equal(t, uint16(0), p.f.Peek(testPins.EncButton))
	p.d.SetKill(true)
	assert.Equal(t, uint16(0), p.f.Peek(testPins.Kill))
}

func TestBeeper(t *testing.T) {
	p := newPanel(t)
	p.f.SetHigh(testPins.Beeper)
	assert.True(t, p.d.Beeping())
	p.f.Clear(testPins.Beeper)
	p.f.SetHigh(testPins.Beeper)
	p.f.Clear(testPins.Beeper)
	assert.False(t, p.d.Beeping())
	assert.Equal(t, uint64(2), p.d.Beeps())
}

func TestWriteRunsIntoLowerHalf(t *testing.T) {
	p := newPanel(t)
	p.send(false, 0x36)
	p.send(false, 0x80|2)
	p.send(false, 0x80|7)
	p.send(true, 0x00)
	p.send(true, 0x01) // x=127 of row 2
	p.send(true, 0x80) // continues at x=0 of row 34
	p.d.Update()
	fr := p.d.Frame()
	assert.True(t, fr.Pixel(127, 2))
	assert.True(t, fr.Pixel(0, 34))
	assert.False(t, fr.Pixel(0, 2))
}
