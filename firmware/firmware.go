// Package firmware is the contract between the simulator and the firmware
// it runs.
package firmware

import (
	"firmsim/gpio"
	"firmsim/internal/log"
	"firmsim/kernel"
)

// Firmware is a program written against the board's timer vector table.
// Every handler runs on the scheduler goroutine and must return
// kernel.ErrCancelled, wrapped or not, when a delay or yield reports it.
type Firmware interface {
	Setup() error
	Loop() error
	StepperISR() error
	TemperatureISR() error
	SysTick() error
}

// Serial is the firmware side of the UART. Neither call blocks.
type Serial interface {
	Receive() (byte, bool)
	Transmit(b byte) bool
}

// Pins is the board's pin map. Unused functions are gpio.NoPin.
type Pins struct {
	XStep   gpio.Pin `yaml:"x_step"`
	XDir    gpio.Pin `yaml:"x_dir"`
	XEnable gpio.Pin `yaml:"x_enable"`
	XMin    gpio.Pin `yaml:"x_min"`
	XMax    gpio.Pin `yaml:"x_max"`

	YStep   gpio.Pin `yaml:"y_step"`
	YDir    gpio.Pin `yaml:"y_dir"`
	YEnable gpio.Pin `yaml:"y_enable"`
	YMin    gpio.Pin `yaml:"y_min"`

	ZStep   gpio.Pin `yaml:"z_step"`
	ZDir    gpio.Pin `yaml:"z_dir"`
	ZEnable gpio.Pin `yaml:"z_enable"`
	ZMin    gpio.Pin `yaml:"z_min"`
	Probe   gpio.Pin `yaml:"probe"`

	EStep   gpio.Pin `yaml:"e_step"`
	EDir    gpio.Pin `yaml:"e_dir"`
	EEnable gpio.Pin `yaml:"e_enable"`

	Heater     gpio.Pin `yaml:"heater"`
	Thermistor gpio.Pin `yaml:"thermistor"`

	BedHeater     gpio.Pin `yaml:"bed_heater"`
	BedThermistor gpio.Pin `yaml:"bed_thermistor"`

	LCDClock  gpio.Pin `yaml:"lcd_clock"`
	LCDData   gpio.Pin `yaml:"lcd_data"`
	LCDSelect gpio.Pin `yaml:"lcd_select"`
	Beeper    gpio.Pin `yaml:"beeper"`
	Enc1      gpio.Pin `yaml:"enc1"`
	Enc2      gpio.Pin `yaml:"enc2"`
	EncButton gpio.Pin `yaml:"enc_button"`
	Kill      gpio.Pin `yaml:"kill"`

	SPIClock gpio.Pin `yaml:"spi_clock"`
	SPIMOSI  gpio.Pin `yaml:"spi_mosi"`
	SPIMISO  gpio.Pin `yaml:"spi_miso"`
	SDSelect gpio.Pin `yaml:"sd_select"`
	SDDetect gpio.Pin `yaml:"sd_detect"`

	TouchSelect gpio.Pin `yaml:"touch_select"`

	LED    gpio.Pin `yaml:"led"`
	Runout gpio.Pin `yaml:"runout"`
	Tach   gpio.Pin `yaml:"tach"`
}

// Board is everything firmware may touch.
type Board struct {
	Kernel *kernel.Kernel
	Pins   *gpio.Fabric
	Serial Serial
	Map    Pins
	Log    log.Logger
}

// Attach installs fw in k's default vector table. Setup runs as the first
// firing of the main thread.
func Attach(k *kernel.Kernel, fw Firmware) {
	k.Attach(kernel.StepperTimer, nil, fw.StepperISR)
	k.Attach(kernel.TemperatureTimer, nil, fw.TemperatureISR)
	k.Attach(kernel.SysTickTimer, nil, fw.SysTick)
	k.Attach(kernel.MainThread, func() error {
		if err := fw.Setup(); err != nil {
			return err
		}
		return fw.Loop()
	}, fw.Loop)
}
