// Package demo is a small single-extruder printer firmware used to exercise
// the simulator: a driven X axis, a probing Z axis, bang-bang hotend and bed
// heaters, a serial G-code console, an ST7920 status screen and an SD card
// file list.
package demo

import (
	"errors"
	"fmt"

	pgpio "periph.io/x/conn/v3/gpio"

	"firmsim/firmware"
	"firmsim/gpio"
	"firmsim/kernel"
	"firmsim/peripheral/sdcard"
)

// Timer clocks, in the timers' own ticks per second.
const (
	stepperTimerRate     = 2_000_000
	temperatureTimerRate = 1_000_000
	temperatureHz        = 100
)

type Config struct {
	StepsPerMM float64
	// StepRate is the stepper ISR frequency while the axis moves.
	StepRate uint64
	MaxMM    float64

	// EndstopHit is the level an endstop reads while triggered.
	EndstopHit uint16
	// RunoutHit is the level the runout switch reads with no filament.
	RunoutHit uint16

	MaxTemp    float64
	Hysteresis float64
	SensorMax  float64
	ADCBits    uint

	BedMaxTemp    float64
	BedHysteresis float64
	BedSensorMax  float64

	ZStepsPerMM float64
	ZMaxMM      float64
	// ProbeHit is the level the Z probe reads while triggered.
	ProbeHit uint16
}

func (c *Config) defaults() {
	if c.StepsPerMM <= 0 {
		c.StepsPerMM = 80
	}
	if c.StepRate == 0 {
		c.StepRate = 2000
	}
	if c.MaxMM <= 0 {
		c.MaxMM = 200
	}
	if c.MaxTemp <= 0 {
		c.MaxTemp = 275
	}
	if c.Hysteresis <= 0 {
		c.Hysteresis = 2
	}
	if c.SensorMax <= 0 {
		c.SensorMax = 500
	}
	if c.ADCBits == 0 {
		c.ADCBits = 12
	}
	if c.BedMaxTemp <= 0 {
		c.BedMaxTemp = 125
	}
	if c.BedHysteresis <= 0 {
		c.BedHysteresis = 1
	}
	if c.BedSensorMax <= 0 {
		c.BedSensorMax = c.SensorMax
	}
	if c.ZStepsPerMM <= 0 {
		c.ZStepsPerMM = 400
	}
	if c.ZMaxMM <= 0 {
		c.ZMaxMM = 180
	}
}

var errNoCard = errors.New("no SD card")

// Demo implements firmware.Firmware. All of its state belongs to the
// scheduler goroutine.
type Demo struct {
	k   *kernel.Kernel
	f   *gpio.Fabric
	p   firmware.Pins
	ser firmware.Serial
	cfg Config

	led     *gpio.PinIO
	heat    *gpio.PinIO
	bedHeat *gpio.PinIO
	ready   bool

	// Motion. Loop writes target with interrupts masked.
	position int64
	target   int64
	homing   bool
	zProbes  int

	// Thermal.
	temp     float64
	setpoint float64
	heating  bool
	bed      thermostat

	// Control panel.
	millis    uint64
	beepLeft  uint64
	encState  int
	encSteps  int
	button    bool
	killed    bool
	runout    bool
	ledOn     bool
	tachLevel uint16
	tachCount int
	tachHz    int
	lastDraw  uint64
	drawn     [2]int

	line      []byte
	overflow  bool
	files     []sdcard.Entry
	sdReady   bool
	touching  bool
	lastTouch uint64
	txDrops   uint64
}

func New(b *firmware.Board, cfg Config) *Demo {
	cfg.defaults()
	return &Demo{
		k:     b.Kernel,
		f:     b.Pins,
		p:     b.Map,
		ser:   b.Serial,
		cfg:   cfg,
		line:  make([]byte, 0, maxLine),
		drawn: [2]int{-1, -1},
	}
}

func (d *Demo) Setup() error {
	f, p := d.f, d.p

	for _, pin := range []gpio.Pin{
		p.XStep, p.XDir, p.XEnable,
		p.YStep, p.YDir, p.YEnable,
		p.ZStep, p.ZDir, p.ZEnable,
		p.EStep, p.EDir, p.EEnable,
		p.LCDClock, p.LCDData, p.LCDSelect, p.Beeper,
		p.SPIClock, p.SPIMOSI, p.SDSelect, p.TouchSelect,
	} {
		f.SetMode(pin, gpio.ModeOutput)
	}
	for _, pin := range []gpio.Pin{p.XEnable, p.YEnable, p.ZEnable, p.EEnable, p.SDSelect, p.TouchSelect} {
		f.SetHigh(pin)
	}
	for _, pin := range []gpio.Pin{p.XMin, p.XMax, p.YMin, p.ZMin, p.Probe, p.EncButton, p.Kill, p.Runout, p.SDDetect} {
		f.SetMode(pin, gpio.ModeInputPullUp)
	}
	for _, pin := range []gpio.Pin{p.Enc1, p.Enc2, p.Tach, p.SPIMISO, p.Thermistor, p.BedThermistor} {
		f.SetMode(pin, gpio.ModeInput)
	}
	f.SetFunction(p.Thermistor, gpio.FuncADC)
	f.SetFunction(p.BedThermistor, gpio.FuncADC)

	d.led = f.PinIO(p.LED, "LED")
	d.heat = f.PinIO(p.Heater, "HEATER")
	d.bedHeat = f.PinIO(p.BedHeater, "HEATER_BED")
	for _, out := range []*gpio.PinIO{d.led, d.bedHeat} {
		if gpio.Pin(out.Number()).Valid() {
			if err := out.Out(pgpio.Low); err != nil {
				return err
			}
		}
	}
	if err := d.heat.Out(pgpio.Low); err != nil {
		return err
	}
	d.ready = true

	d.k.Initialize(kernel.StepperTimer, stepperTimerRate)
	d.k.Start(kernel.StepperTimer, d.cfg.StepRate)
	d.k.Initialize(kernel.TemperatureTimer, temperatureTimerRate)
	d.k.Start(kernel.TemperatureTimer, temperatureHz)
	d.k.Enable(kernel.TemperatureTimer)

	d.println("start")
	if err := d.lcdInit(); err != nil {
		return err
	}
	if err := d.mountSD(); err != nil {
		return err
	}
	return d.drawStatus()
}

func (d *Demo) Loop() error {
	for {
		b, ok := d.ser.Receive()
		if !ok {
			break
		}
		if err := d.receive(b); err != nil {
			return err
		}
	}
	d.pollTouch()
	if d.millis-d.lastDraw >= 250 {
		d.lastDraw = d.millis
		return d.drawStatus()
	}
	return nil
}

// SysTick keeps time and polls the control panel at 1 kHz.
func (d *Demo) SysTick() error {
	d.millis++
	if !d.ready {
		// Inputs are unconfigured until Setup ran.
		return nil
	}

	if d.beepLeft > 0 {
		d.beepLeft--
		if d.beepLeft == 0 {
			d.f.Clear(d.p.Beeper)
		}
	}

	d.pollEncoder()
	pressed := d.p.EncButton.Valid() && d.f.Get(d.p.EncButton) == 0
	if pressed && !d.button {
		d.beep(30)
	}
	d.button = pressed

	if d.p.Kill.Valid() && !d.killed && d.f.Get(d.p.Kill) == 0 {
		d.kill("kill() called!")
	}

	if d.p.Runout.Valid() && d.millis%100 == 0 {
		out := d.f.Get(d.p.Runout) == d.cfg.RunoutHit
		if out && !d.runout {
			d.println("echo:filament runout")
		}
		d.runout = out
	}

	if d.p.Tach.Valid() {
		v := d.f.Get(d.p.Tach)
		if v != 0 && d.tachLevel == 0 {
			d.tachCount++
		}
		d.tachLevel = v
		if d.millis%1000 == 0 {
			d.tachHz, d.tachCount = d.tachCount, 0
		}
	}

	if d.p.LED.Valid() && d.millis%500 == 0 {
		d.ledOn = !d.ledOn
		return d.led.Out(pgpio.Level(d.ledOn))
	}
	return nil
}

// Quadrature states in clockwise order, indexed by enc1<<1 | enc2.
var quadrature = [4]int{0, 3, 1, 2}

func (d *Demo) pollEncoder() {
	s := quadrature[d.f.Get(d.p.Enc1)&1<<1|d.f.Get(d.p.Enc2)&1]
	switch (s - d.encState + 4) % 4 {
	case 1:
		d.encSteps++
	case 3:
		d.encSteps--
	}
	d.encState = s
	// Two steps per detent; each detent moves the setpoint 5 degrees.
	for d.encSteps >= 2 {
		d.encSteps -= 2
		d.setTarget(d.setpoint + 5)
	}
	for d.encSteps <= -2 {
		d.encSteps += 2
		d.setTarget(d.setpoint - 5)
	}
}

func (d *Demo) beep(ms uint64) {
	if !d.p.Beeper.Valid() {
		return
	}
	d.f.SetHigh(d.p.Beeper)
	d.beepLeft = ms
}

func (d *Demo) kill(reason string) {
	d.killed = true
	d.setpoint = 0
	d.setHeater(false)
	d.bed.setpoint = 0
	d.setBedHeater(false)
	d.k.Disable(kernel.StepperTimer)
	d.homing = false
	for _, pin := range []gpio.Pin{d.p.XEnable, d.p.YEnable, d.p.ZEnable, d.p.EEnable} {
		d.f.SetHigh(pin)
	}
	d.println("Error:Printer halted. " + reason)
}

func (d *Demo) println(s string) {
	for i := 0; i < len(s); i++ {
		d.transmit(s[i])
	}
	d.transmit('\n')
}

func (d *Demo) printf(format string, args ...any) {
	d.println(fmt.Sprintf(format, args...))
}

func (d *Demo) transmit(b byte) {
	if !d.ser.Transmit(b) {
		d.txDrops++
	}
}

// Status is a point-in-time view for tests and diagnostics. Call it from
// the scheduler goroutine.
type Status struct {
	Position float64
	Target   float64
	Temp     float64
	Setpoint float64
	Heating  bool
	BedTemp  float64
	BedSet   float64
	BedOn    bool
	Killed   bool
	Files    []sdcard.Entry
	TachHz   int
	Probes   int
}

func (d *Demo) Status() Status {
	return Status{
		Position: float64(d.position) / d.cfg.StepsPerMM,
		Target:   float64(d.target) / d.cfg.StepsPerMM,
		Temp:     d.temp,
		Setpoint: d.setpoint,
		Heating:  d.heating,
		BedTemp:  d.bed.temp,
		BedSet:   d.bed.setpoint,
		BedOn:    d.bed.heating,
		Killed:   d.killed,
		Files:    d.files,
		TachHz:   d.tachHz,
		Probes:   d.zProbes,
	}
}
