package demo

import (
	"math"

	"firmsim/kernel"
)

// minPulse is the step pulse high time in stepper timer counts (1 µs).
const minPulse = 2

func (d *Demo) StepperISR() error {
	if d.homing {
		if d.f.Get(d.p.XMin) == d.cfg.EndstopHit {
			d.homing = false
			d.position, d.target = 0, 0
			d.k.Disable(kernel.StepperTimer)
			return nil
		}
		d.step(false)
		return nil
	}
	if d.position == d.target {
		d.k.Disable(kernel.StepperTimer)
		return nil
	}
	forward := d.target > d.position
	d.step(forward)
	if forward {
		d.position++
	} else {
		d.position--
	}
	return nil
}

func (d *Demo) step(forward bool) {
	dir := uint16(0)
	if forward {
		dir = 1
	}
	d.f.Set(d.p.XDir, dir)
	d.f.SetHigh(d.p.XStep)
	start := d.k.GetCount(kernel.StepperTimer)
	for d.k.GetCount(kernel.StepperTimer)-start < minPulse {
	}
	d.f.Clear(d.p.XStep)
}

// moveTo queues an absolute move in mm.
func (d *Demo) moveTo(mm float64) {
	mm = math.Max(0, math.Min(mm, d.cfg.MaxMM))
	steps := int64(math.Round(mm * d.cfg.StepsPerMM))

	d.k.DisableInterrupts()
	d.target = steps
	d.k.EnableInterrupts()
	d.startStepper()
}

func (d *Demo) startStepper() {
	d.f.Clear(d.p.XEnable)
	if !d.k.IsEnabled(kernel.StepperTimer) {
		d.k.Start(kernel.StepperTimer, d.cfg.StepRate)
		d.k.Enable(kernel.StepperTimer)
	}
}

// home drives toward the min endstop and blocks until it triggers.
func (d *Demo) home() error {
	d.homing = true
	d.startStepper()
	for d.homing {
		if err := d.k.Yield(); err != nil {
			return err
		}
	}
	return nil
}
