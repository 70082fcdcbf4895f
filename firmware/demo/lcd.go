package demo

import "firmsim/peripheral/st7920"

const (
	lcdCommandTime = 72 // µs
	lcdClearTime   = 1600

	lcdSync = 0xF8
	lcdRS   = 0x02

	tempBarY = 4
	posBarY  = 20
	barH     = 8
)

// lcdShift clocks one byte out MSB first. The panel latches data on the
// falling edge.
func (d *Demo) lcdShift(b byte) {
	for i := 7; i >= 0; i-- {
		d.f.Set(d.p.LCDData, uint16(b>>i)&1)
		d.f.SetHigh(d.p.LCDClock)
		d.f.Clear(d.p.LCDClock)
	}
}

func (d *Demo) lcdSend(rs bool, b byte) error {
	sync := byte(lcdSync)
	if rs {
		sync |= lcdRS
	}
	d.f.SetHigh(d.p.LCDSelect)
	d.lcdShift(sync)
	d.lcdShift(b & 0xF0)
	d.lcdShift(b << 4)
	d.f.Clear(d.p.LCDSelect)
	return d.k.DelayMicros(lcdCommandTime)
}

func (d *Demo) lcdInit() error {
	if !d.p.LCDSelect.Valid() {
		return nil
	}
	for _, c := range []byte{0x30, 0x0C, 0x01} {
		if err := d.lcdSend(false, c); err != nil {
			return err
		}
	}
	if err := d.k.DelayMicros(lcdClearTime); err != nil {
		return err
	}
	if err := d.lcdSend(false, 0x36); err != nil {
		return err
	}
	// Each GDRAM row covers the upper and lower half of the panel.
	for y := 0; y < st7920.Height/2; y++ {
		if err := d.lcdRow(y, 0, 32, func(int) byte { return 0 }); err != nil {
			return err
		}
	}
	return nil
}

func (d *Demo) lcdRow(y, word, n int, data func(i int) byte) error {
	if err := d.lcdSend(false, 0x80|byte(y)); err != nil {
		return err
	}
	if err := d.lcdSend(false, 0x80|byte(word)); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := d.lcdSend(true, data(i)); err != nil {
			return err
		}
	}
	return nil
}

func (d *Demo) drawBar(y0, width int) error {
	fill := func(i int) byte {
		switch left := width - i*8; {
		case left >= 8:
			return 0xFF
		case left <= 0:
			return 0
		default:
			return byte(0xFF << (8 - left))
		}
	}
	for y := y0; y < y0+barH; y++ {
		if err := d.lcdRow(y, 0, st7920.Width/8, fill); err != nil {
			return err
		}
	}
	return nil
}

// drawStatus redraws the temperature and position bars that changed.
func (d *Demo) drawStatus() error {
	if !d.p.LCDSelect.Valid() {
		return nil
	}
	bars := [2]struct {
		y     int
		value float64
	}{
		{tempBarY, d.temp / d.cfg.MaxTemp},
		{posBarY, float64(d.position) / (d.cfg.MaxMM * d.cfg.StepsPerMM)},
	}
	for i, b := range bars {
		w := int(b.value * st7920.Width)
		w = max(0, min(w, st7920.Width))
		if w == d.drawn[i] {
			continue
		}
		if err := d.drawBar(b.y, w); err != nil {
			return err
		}
		d.drawn[i] = w
	}
	return nil
}
