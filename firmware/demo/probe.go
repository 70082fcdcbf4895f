package demo

import "math"

// probeStepMicros is the Z step period while probing.
const probeStepMicros = 250

// probeBed lowers Z until the probe triggers and reports how far it went.
// Z travel is bounded by ZMaxMM so a dead probe cannot drive forever.
func (d *Demo) probeBed() error {
	p := d.p
	if !p.Probe.Valid() || !p.ZStep.Valid() {
		d.println("Error:No Z probe")
		return nil
	}
	d.f.Clear(p.ZEnable)
	d.f.Clear(p.ZDir)
	limit := int64(math.Round(d.cfg.ZMaxMM * d.cfg.ZStepsPerMM))
	for steps := int64(0); ; steps++ {
		if d.f.Get(p.Probe) == d.cfg.ProbeHit {
			d.zProbes++
			d.printf("echo:Z probe triggered after %.3f mm", float64(steps)/d.cfg.ZStepsPerMM)
			return nil
		}
		if steps == limit {
			d.println("Error:Probing failed")
			return nil
		}
		d.f.SetHigh(p.ZStep)
		d.f.Clear(p.ZStep)
		if err := d.k.DelayMicros(probeStepMicros); err != nil {
			return err
		}
	}
}
