// Package heater models a resistive heater with a thermistor read through
// an ADC channel.
package heater

import (
	"math"
	"sync/atomic"

	"firmsim/gpio"
	"firmsim/peripheral"
)

type Config struct {
	Heater gpio.Pin // PWM or on/off output
	Sensor gpio.Pin // ADC input

	Frequency uint64 // tick rate of event timestamps

	Ambient      float64 // °C
	MaxTemp      float64 // steady state at full power, °C
	TimeConstant float64 // seconds
	SensorMax    float64 // temperature at full ADC scale, °C
	ADCBits      uint
}

func (c *Config) defaults() {
	if c.Frequency == 0 {
		c.Frequency = 100_000_000
	}
	if c.Ambient == 0 {
		c.Ambient = 25
	}
	if c.MaxTemp == 0 {
		c.MaxTemp = 300
	}
	if c.TimeConstant <= 0 {
		c.TimeConstant = 30
	}
	if c.SensorMax <= 0 {
		c.SensorMax = 500
	}
	if c.ADCBits == 0 {
		c.ADCBits = 12
	}
}

// Heater integrates a first-order thermal model piecewise between pin
// events, using the heater pin's level over each interval as the power.
// The sensor value is computed lazily when the firmware reads the ADC.
type Heater struct {
	f   *gpio.Fabric
	cfg Config

	last  uint64
	power float64
	temp  float64

	shown atomic.Uint64 // float64 bits, published by Update
	now   atomic.Uint64
}

func New(f *gpio.Fabric, cfg Config) *Heater {
	cfg.defaults()
	h := &Heater{f: f, cfg: cfg, temp: cfg.Ambient}
	h.now.Store(math.Float64bits(cfg.Ambient))
	h.shown.Store(math.Float64bits(cfg.Ambient))
	return h
}

func (h *Heater) Connect(w *peripheral.Wiring) {
	w.On(h.cfg.Heater, h)
	w.On(h.cfg.Sensor, h)
}

func (h *Heater) OnEvent(e gpio.Event) {
	switch {
	case e.Pin == h.cfg.Heater:
		h.advance(e.Timestamp)
		h.power = level(h.f.Peek(h.cfg.Heater))
	case e.Pin == h.cfg.Sensor && e.Kind == gpio.EventQuery:
		h.advance(e.Timestamp)
		h.f.Store(h.cfg.Sensor, h.adc())
	}
}

// level maps a pin value to heater power: 1 is fully on, larger values
// are an 8-bit PWM duty.
func level(v uint16) float64 {
	switch {
	case v == 0:
		return 0
	case v == 1:
		return 1
	case v >= 255:
		return 1
	}
	return float64(v) / 255
}

func (h *Heater) advance(ts uint64) {
	if ts <= h.last {
		return
	}
	dt := float64(ts-h.last) / float64(h.cfg.Frequency)
	h.last = ts
	target := h.cfg.Ambient + h.power*(h.cfg.MaxTemp-h.cfg.Ambient)
	h.temp = target + (h.temp-target)*math.Exp(-dt/h.cfg.TimeConstant)
	h.now.Store(math.Float64bits(h.temp))
}

func (h *Heater) adc() uint16 {
	full := float64(uint(1)<<h.cfg.ADCBits - 1)
	v := h.temp / h.cfg.SensorMax * full
	if v < 0 {
		v = 0
	}
	if v > full {
		v = full
	}
	return uint16(v)
}

// ADCToCelsius converts a sensor reading back to degrees for firmware
// using the same linear sensor.
func ADCToCelsius(raw uint16, sensorMax float64, bits uint) float64 {
	return float64(raw) * sensorMax / float64(uint(1)<<bits-1)
}

// Update publishes the model temperature for Temperature.
func (h *Heater) Update() { h.shown.Store(h.now.Load()) }

// Temperature is the temperature as of the last Update, in °C.
func (h *Heater) Temperature() float64 {
	return math.Float64frombits(h.shown.Load())
}

// Power is the current heater drive, 0 to 1.
func (h *Heater) Power() float64 { return h.power }
