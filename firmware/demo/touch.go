package demo

import "firmsim/peripheral/xpt2046"

// touchThreshold is the Z1 pressure that counts as a touch.
const touchThreshold = 400

func (d *Demo) touchRead(cmd byte) uint16 {
	d.spiXfer(cmd)
	hi := d.spiXfer(0)
	lo := d.spiXfer(0)
	return uint16(hi)<<5 | uint16(lo)>>3
}

// pollTouch reports a new touch on the console and beeps.
func (d *Demo) pollTouch() {
	if !d.p.TouchSelect.Valid() || d.millis-d.lastTouch < 20 {
		return
	}
	d.lastTouch = d.millis
	d.f.Clear(d.p.TouchSelect)
	z := d.touchRead(xpt2046.CmdZ1)
	var x, y uint16
	if z > touchThreshold {
		x = d.touchRead(xpt2046.CmdX)
		y = d.touchRead(xpt2046.CmdY)
	}
	d.f.SetHigh(d.p.TouchSelect)

	touching := z > touchThreshold
	if touching && !d.touching {
		d.printf("echo:touch %d,%d", x, y)
		d.beep(10)
	}
	d.touching = touching
}
