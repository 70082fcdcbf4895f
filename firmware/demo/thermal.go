package demo

import (
	"math"

	pgpio "periph.io/x/conn/v3/gpio"

	"firmsim/peripheral/heater"
)

type thermostat struct {
	temp     float64
	setpoint float64
	heating  bool
}

// want reports whether the heater should be on, keeping its state inside
// the hysteresis band.
func (t *thermostat) want(hysteresis float64) bool {
	switch {
	case t.setpoint <= 0 || t.temp >= t.setpoint+hysteresis:
		return false
	case t.temp <= t.setpoint-hysteresis:
		return true
	}
	return t.heating
}

func (d *Demo) TemperatureISR() error {
	if d.p.BedThermistor.Valid() {
		raw := d.f.Get(d.p.BedThermistor)
		d.bed.temp = heater.ADCToCelsius(raw, d.cfg.BedSensorMax, d.cfg.ADCBits)
		if d.bed.temp > d.cfg.BedMaxTemp && !d.killed {
			d.kill("MAXTEMP BED triggered")
			return nil
		}
		d.setBedHeater(d.bed.want(d.cfg.BedHysteresis))
	}

	raw := d.f.Get(d.p.Thermistor)
	d.temp = heater.ADCToCelsius(raw, d.cfg.SensorMax, d.cfg.ADCBits)
	if d.temp > d.cfg.MaxTemp && !d.killed {
		d.kill("MAXTEMP triggered")
		return nil
	}
	switch {
	case d.setpoint <= 0 || d.temp >= d.setpoint+d.cfg.Hysteresis:
		d.setHeater(false)
	case d.temp <= d.setpoint-d.cfg.Hysteresis:
		d.setHeater(true)
	}
	return nil
}

func (d *Demo) setHeater(on bool) {
	if on == d.heating {
		return
	}
	d.heating = on
	duty := pgpio.Duty(0)
	if on {
		duty = pgpio.DutyMax
	}
	if err := d.heat.PWM(duty, 0); err != nil {
		d.printf("echo:heater: %v", err)
	}
}

func (d *Demo) setBedHeater(on bool) {
	if on == d.bed.heating || !d.p.BedHeater.Valid() {
		return
	}
	d.bed.heating = on
	if err := d.bedHeat.Out(pgpio.Level(on)); err != nil {
		d.printf("echo:bed: %v", err)
	}
}

func (d *Demo) setBedTarget(t float64) {
	if d.killed {
		return
	}
	d.bed.setpoint = math.Max(0, math.Min(t, d.cfg.BedMaxTemp-10))
}

// setTarget clamps the setpoint below the thermal cutoff.
func (d *Demo) setTarget(t float64) {
	if d.killed {
		return
	}
	if t < 0 {
		t = 0
	}
	if hi := d.cfg.MaxTemp - 15; t > hi {
		t = hi
	}
	d.setpoint = t
}
