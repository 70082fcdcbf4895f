// Package app assembles a complete simulated board: scheduler, pin fabric,
// peripheral models and firmware.
package app

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r3"

	"firmsim/firmware"
	"firmsim/firmware/demo"
	"firmsim/gpio"
	"firmsim/internal/log"
	"firmsim/kernel"
	"firmsim/peripheral"
	"firmsim/peripheral/axis"
	"firmsim/peripheral/heater"
	"firmsim/peripheral/probe"
	"firmsim/peripheral/runout"
	"firmsim/peripheral/sdcard"
	"firmsim/peripheral/signal"
	"firmsim/peripheral/spi"
	"firmsim/peripheral/st7920"
	"firmsim/peripheral/xpt2046"
)

// Simulation owns one board. Run drives it on the calling goroutine; the
// remaining methods are safe from host goroutines.
type Simulation struct {
	cfg Config
	log log.Logger

	Kernel *kernel.Kernel
	Pins   *gpio.Fabric
	Pacer  *kernel.Pacer

	Firmware *demo.Demo
	Heater   *heater.Heater
	Bed      *heater.Heater
	Axis     *axis.Axis // X
	Y, Z, E  *axis.Axis
	Probe    *probe.Probe
	Surface  *probe.Bed
	LCD      *st7920.Display
	Card     *sdcard.Card
	Touch    *xpt2046.Touch
	Runout   *runout.Sensor
	Tach     *signal.Signal

	group peripheral.Group
	image *sdcard.Image

	input *kernel.Ring[Input]
	rx    *kernel.Ring[byte]
	tx    *kernel.Ring[byte]
}

// New builds a board from cfg. The SD image, if configured, is opened here
// and closed by Close.
func New(cfg Config, l log.Logger) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if l == nil {
		l = log.NewNullLogger()
	}

	kcfg := cfg.KernelConfig()
	kcfg.Logger = log.WithField(l, "component", "kernel")
	pacer := kernel.NewPacer(cfg.Clock.Frequency, cfg.Clock.Scale)
	if cfg.Clock.Margin > 0 {
		pacer.SetMargin(cfg.Clock.Margin)
	}
	kcfg.Pacer = pacer

	k := kernel.New(kcfg)
	f := gpio.New(k.Clock())
	s := &Simulation{
		cfg:    cfg,
		log:    l,
		Kernel: k,
		Pins:   f,
		Pacer:  pacer,
		input:  kernel.NewRing[Input](cfg.InputQueue),
		rx:     kernel.NewRing[byte](cfg.SerialBuffer),
		tx:     kernel.NewRing[byte](cfg.SerialBuffer),
	}

	if cfg.SD.Image != "" {
		img, err := sdcard.OpenImage(cfg.SD.Image)
		if err != nil {
			return nil, errors.Wrap(err, "open SD image")
		}
		s.image = img
		l.Infof("sd: %s, %d blocks", cfg.SD.Image, img.Blocks())
	}

	if err := s.buildPeripherals(); err != nil {
		s.Close()
		return nil, err
	}
	s.Firmware = demo.New(&firmware.Board{
		Kernel: k,
		Pins:   f,
		Serial: ringSerial{rx: s.rx, tx: s.tx},
		Map:    cfg.Pins,
		Log:    log.WithField(l, "component", "firmware"),
	}, demo.Config{
		StepsPerMM: cfg.Axis.StepsPerMM,
		StepRate:   cfg.Axis.StepRate,
		MaxMM:      cfg.Axis.MaxMM,
		EndstopHit: cfg.Axis.EndstopHit,
		RunoutHit:  cfg.Runout.Trigger,
		MaxTemp:    cfg.Heater.Cutoff,
		Hysteresis: cfg.Heater.Hysteresis,
		SensorMax:  cfg.Heater.SensorMax,
		ADCBits:    cfg.Heater.ADCBits,

		BedMaxTemp:    cfg.Bed.Cutoff,
		BedHysteresis: cfg.Bed.Hysteresis,
		BedSensorMax:  cfg.Bed.SensorMax,
		ZStepsPerMM:   cfg.Axes.Z.StepsPerMM,
		ZMaxMM:        cfg.Axes.Z.MaxMM,
		ProbeHit:      cfg.Probe.Hit,
	})
	firmware.Attach(k, s.Firmware)
	k.Attach(kernel.SysTickTimer, nil, s.sysTick)
	return s, nil
}

func newHeater(f *gpio.Fabric, freq uint64, out, sensor gpio.Pin, c HeaterConfig) *heater.Heater {
	return heater.New(f, heater.Config{
		Heater:       out,
		Sensor:       sensor,
		Frequency:    freq,
		Ambient:      c.Ambient,
		MaxTemp:      c.MaxTemp,
		TimeConstant: c.TimeConstant,
		SensorMax:    c.SensorMax,
		ADCBits:      c.ADCBits,
	})
}

func newAxis(f *gpio.Fabric, name string, step, dir, enable, minStop, maxStop gpio.Pin, c AxisConfig) *axis.Axis {
	return axis.New(f, axis.Config{
		Name:       name,
		Step:       step,
		Dir:        dir,
		Enable:     enable,
		Min:        minStop,
		Max:        maxStop,
		StepsPerMM: c.StepsPerMM,
		MaxMM:      c.MaxMM,
		StartMM:    c.StartMM,
		EndstopHit: c.EndstopHit,
	})
}

func (s *Simulation) buildPeripherals() error {
	cfg, f, p := s.cfg, s.Pins, s.cfg.Pins
	freq := cfg.Clock.Frequency
	bus := spi.Config{CLK: p.SPIClock, MOSI: p.SPIMOSI, MISO: p.SPIMISO}

	s.Heater = newHeater(f, freq, p.Heater, p.Thermistor, cfg.Heater)
	s.Bed = newHeater(f, freq, p.BedHeater, p.BedThermistor, cfg.Bed)
	s.Axis = newAxis(f, "X", p.XStep, p.XDir, p.XEnable, p.XMin, p.XMax, cfg.Axis)
	s.Y = newAxis(f, "Y", p.YStep, p.YDir, p.YEnable, p.YMin, gpio.NoPin, cfg.Axes.Y)
	s.Z = newAxis(f, "Z", p.ZStep, p.ZDir, p.ZEnable, p.ZMin, gpio.NoPin, cfg.Axes.Z)
	s.E = newAxis(f, "E", p.EStep, p.EDir, p.EEnable, gpio.NoPin, gpio.NoPin, cfg.Axes.E)

	pc := cfg.Probe
	s.Surface = probe.NewBed(pc.BedWidth, pc.BedDepth)
	if len(pc.Tilt) == 3 {
		pts := make([]r3.Vec, 3)
		for i, t := range pc.Tilt {
			pts[i] = r3.Vec{X: t.X, Y: t.Y, Z: t.Z}
		}
		if err := s.Surface.Tilt(pts[0], pts[1], pts[2]); err != nil {
			return errors.Wrap(err, "probe.tilt")
		}
	}
	s.Probe = probe.New(f, s.Surface, probe.Config{
		Pin:    p.Probe,
		X:      s.Axis,
		Y:      s.Y,
		Z:      s.Z,
		Offset: r3.Vec{X: pc.Offset.X, Y: pc.Offset.Y, Z: pc.Offset.Z},
		Hit:    pc.Hit,
	})
	s.LCD = st7920.New(f, st7920.Config{
		CLK:       p.LCDClock,
		MOSI:      p.LCDData,
		CS:        p.LCDSelect,
		Beeper:    p.Beeper,
		Enc1:      p.Enc1,
		Enc2:      p.Enc2,
		EncButton: p.EncButton,
		Kill:      p.Kill,
	})
	sdBus := bus
	sdBus.CS = p.SDSelect
	s.Card = sdcard.New(f, sdcard.Config{Config: sdBus, Detect: p.SDDetect}, s.image, log.WithField(s.log, "component", "sdcard"))
	touchBus := bus
	touchBus.CS = p.TouchSelect
	s.Touch = xpt2046.New(f, xpt2046.Config{Config: touchBus, Width: cfg.Touch.Width, Height: cfg.Touch.Height})
	s.Runout = runout.New(f, p.Runout, cfg.Runout.Trigger)
	s.Tach = signal.New(f, signal.Config{Pin: p.Tach, Frequency: freq, Period: cfg.Tach.Period, High: cfg.Tach.High})

	all := []interface {
		peripheral.Connector
		peripheral.Peripheral
	}{s.Heater, s.Bed, s.Axis, s.Y, s.Z, s.E, s.Probe, s.LCD, s.Card, s.Touch, s.Runout, s.Tach}
	w := peripheral.NewWiring()
	for _, c := range all {
		c.Connect(w)
	}
	w.Apply(f)
	for _, m := range all {
		s.group.Add(m)
	}
	s.log.Debugf("board: %d pins wired, %d peripherals", len(w.Pins()), s.group.Len())
	return nil
}

// sysTick applies at most one queued host input before the firmware's own
// tick so every encoder step is seen by one poll.
func (s *Simulation) sysTick() error {
	if in, ok := s.input.TryPop(); ok {
		s.apply(in)
	}
	return s.Firmware.SysTick()
}

// Run drives the scheduler until ctx is done or the firmware fails.
func (s *Simulation) Run(ctx context.Context) error {
	s.log.Infof("simulation: %d Hz clock, scale %.2f", s.Kernel.Frequency(), s.Pacer.Scale())
	return s.Kernel.Run(ctx)
}

// Advance runs the board for ticks of virtual time on the calling
// goroutine. It must not be mixed with a concurrent Run.
func (s *Simulation) Advance(ticks uint64) error {
	return s.Kernel.DelayCycles(ticks)
}

// AdvanceSeconds is Advance in seconds of virtual time.
func (s *Simulation) AdvanceSeconds(sec float64) error {
	return s.Advance(uint64(math.Round(sec * float64(s.Kernel.Frequency()))))
}

func (s *Simulation) Quit() { s.Kernel.Quit() }

// Update publishes peripheral state for the next frame.
func (s *Simulation) Update() { s.group.Update() }

// Close releases the SD image.
func (s *Simulation) Close() error {
	if s.image == nil {
		return nil
	}
	return errors.Wrap(s.image.Close(), "close SD image")
}

// WriteSerial queues console input for the firmware and returns how many
// bytes fit.
func (s *Simulation) WriteSerial(p []byte) int {
	for i, b := range p {
		if !s.rx.TryPush(b) {
			return i
		}
	}
	return len(p)
}

// ReadSerial drains console output into p.
func (s *Simulation) ReadSerial(p []byte) int {
	n := 0
	for n < len(p) {
		b, ok := s.tx.TryPop()
		if !ok {
			break
		}
		p[n] = b
		n++
	}
	return n
}

type ringSerial struct {
	rx, tx *kernel.Ring[byte]
}

func (r ringSerial) Receive() (byte, bool) { return r.rx.TryPop() }
func (r ringSerial) Transmit(b byte) bool  { return r.tx.TryPush(b) }
