package app

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"firmsim/firmware"
	"firmsim/gpio"
	"firmsim/kernel"
)

//go:embed board.yaml
var defaultBoard []byte

type ClockConfig struct {
	Frequency      uint64        `yaml:"frequency"`
	Scale          float64       `yaml:"scale"`
	Margin         time.Duration `yaml:"margin"`
	CountPollTicks uint64        `yaml:"count_poll_ticks"`
}

type SourceConfig struct {
	Priority int    `yaml:"priority"`
	Hz       uint64 `yaml:"hz"`
}

type SourcesConfig struct {
	Stepper     SourceConfig `yaml:"stepper"`
	Temperature SourceConfig `yaml:"temperature"`
	SysTick     SourceConfig `yaml:"systick"`
	Main        SourceConfig `yaml:"main"`
}

type AxisConfig struct {
	StepsPerMM float64 `yaml:"steps_per_mm"`
	StepRate   uint64  `yaml:"step_rate"`
	MaxMM      float64 `yaml:"max_mm"`
	StartMM    float64 `yaml:"start_mm"`
	EndstopHit uint16  `yaml:"endstop_hit"`
}

type HeaterConfig struct {
	Ambient      float64 `yaml:"ambient"`
	MaxTemp      float64 `yaml:"max_temp"`
	TimeConstant float64 `yaml:"time_constant"`
	SensorMax    float64 `yaml:"sensor_max"`
	ADCBits      uint    `yaml:"adc_bits"`
	Cutoff       float64 `yaml:"cutoff"`
	Hysteresis   float64 `yaml:"hysteresis"`
}

// AxesConfig holds the axes the firmware only jogs or probes with.
type AxesConfig struct {
	Y AxisConfig `yaml:"y"`
	Z AxisConfig `yaml:"z"`
	E AxisConfig `yaml:"e"`
}

type OffsetConfig struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

type ProbeConfig struct {
	Offset   OffsetConfig `yaml:"offset"`
	Hit      uint16       `yaml:"hit"`
	BedWidth float64      `yaml:"bed_width"`
	BedDepth float64      `yaml:"bed_depth"`
	// Tilt, when set, is three points the bed surface passes through.
	Tilt []OffsetConfig `yaml:"tilt"`
}

type RunoutConfig struct {
	Trigger uint16 `yaml:"trigger"`
}

type TachConfig struct {
	Period time.Duration `yaml:"period"`
	High   time.Duration `yaml:"high"`
}

type TouchConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type SDConfig struct {
	Image string `yaml:"image"`
}

// Config describes the simulated board.
type Config struct {
	Clock        ClockConfig   `yaml:"clock"`
	Sources      SourcesConfig `yaml:"sources"`
	Debug        bool          `yaml:"debug"`
	SerialBuffer int           `yaml:"serial_buffer"`
	InputQueue   int           `yaml:"input_queue"`
	Pins         firmware.Pins `yaml:"pins"`
	Axis         AxisConfig    `yaml:"axis"`
	Axes         AxesConfig    `yaml:"axes"`
	Heater       HeaterConfig  `yaml:"heater"`
	Bed          HeaterConfig  `yaml:"bed"`
	Probe        ProbeConfig   `yaml:"probe"`
	Runout       RunoutConfig  `yaml:"runout"`
	Tach         TachConfig    `yaml:"tach"`
	Touch        TouchConfig   `yaml:"touch"`
	SD           SDConfig      `yaml:"sd"`
}

// DefaultConfig returns the embedded board.
func DefaultConfig() Config {
	cfg, err := ParseConfig(defaultBoard)
	if err != nil {
		panic(fmt.Sprintf("app: embedded board.yaml: %v", err))
	}
	return cfg
}

// LoadConfig reads a board file. Keys it leaves out keep their defaults.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "read board config")
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, errors.Wrapf(err, "board config %s", path)
	}
	return cfg, nil
}

// ParseConfig decodes data over the embedded defaults and validates it.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(defaultBoard, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "decode default board")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "decode board")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the simulation cannot run.
func (c *Config) Validate() error {
	if c.Clock.Frequency == 0 {
		return errors.New("clock.frequency must be positive")
	}
	if c.Clock.Scale < 0 {
		return errors.Errorf("clock.scale %v is negative", c.Clock.Scale)
	}
	if c.Sources.SysTick.Hz == 0 || c.Sources.Main.Hz == 0 {
		return errors.New("sources.systick.hz and sources.main.hz must be positive")
	}
	if c.SerialBuffer <= 0 || c.InputQueue <= 0 {
		return errors.New("serial_buffer and input_queue must be positive")
	}
	if n := len(c.Probe.Tilt); n != 0 && n != 3 {
		return errors.Errorf("probe.tilt has %d points, want 3", n)
	}
	seen := make(map[gpio.Pin]string)
	for name, p := range c.pinNames() {
		if p == gpio.NoPin {
			continue
		}
		if !p.Valid() {
			return errors.Errorf("pins.%s: %d is outside the pin table", name, p)
		}
		if other, ok := seen[p]; ok {
			return errors.Errorf("pins.%s and pins.%s both use pin %d", name, other, p)
		}
		seen[p] = name
	}
	return nil
}

func (c *Config) pinNames() map[string]gpio.Pin {
	p := c.Pins
	return map[string]gpio.Pin{
		"x_step": p.XStep, "x_dir": p.XDir, "x_enable": p.XEnable,
		"x_min": p.XMin, "x_max": p.XMax,
		"y_step": p.YStep, "y_dir": p.YDir, "y_enable": p.YEnable, "y_min": p.YMin,
		"z_step": p.ZStep, "z_dir": p.ZDir, "z_enable": p.ZEnable, "z_min": p.ZMin,
		"probe":  p.Probe,
		"e_step": p.EStep, "e_dir": p.EDir, "e_enable": p.EEnable,
		"heater": p.Heater, "thermistor": p.Thermistor,
		"bed_heater": p.BedHeater, "bed_thermistor": p.BedThermistor,
		"lcd_clock": p.LCDClock, "lcd_data": p.LCDData, "lcd_select": p.LCDSelect,
		"beeper": p.Beeper, "enc1": p.Enc1, "enc2": p.Enc2,
		"enc_button": p.EncButton, "kill": p.Kill,
		"spi_clock": p.SPIClock, "spi_mosi": p.SPIMOSI, "spi_miso": p.SPIMISO,
		"sd_select": p.SDSelect, "sd_detect": p.SDDetect,
		"touch_select": p.TouchSelect,
		"led":          p.LED, "runout": p.Runout, "tach": p.Tach,
	}
}

// KernelConfig builds the scheduler configuration with the fixed vector
// table of firmware.Firmware.
func (c *Config) KernelConfig() kernel.Config {
	freq := c.Clock.Frequency
	src := c.Sources
	return kernel.Config{
		Frequency: freq,
		Sources: []kernel.SourceConfig{
			{Name: "Stepper ISR", Priority: src.Stepper.Priority},
			{Name: "Temperature ISR", Priority: src.Temperature.Priority},
			{Name: "System tick", Priority: src.SysTick.Priority, Rate: freq, Hz: src.SysTick.Hz, Enabled: true},
			{Name: "Main loop", Priority: src.Main.Priority, Rate: freq, Hz: src.Main.Hz, Enabled: true},
		},
		Debug:          c.Debug,
		CountPollTicks: c.Clock.CountPollTicks,
	}
}
