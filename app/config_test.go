package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firmsim/gpio"
	"firmsim/kernel"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, uint64(100_000_000), cfg.Clock.Frequency)
	assert.Equal(t, 2*time.Millisecond, cfg.Clock.Margin)
	assert.Equal(t, 40*time.Millisecond, cfg.Tach.Period)
	assert.Equal(t, gpio.Pin(54), cfg.Pins.XStep)
	assert.Equal(t, gpio.Pin(19), cfg.Pins.Probe)
	assert.Equal(t, gpio.Pin(68), cfg.Pins.BedThermistor)
	assert.Equal(t, 400.0, cfg.Axes.Z.StepsPerMM)
	assert.Equal(t, 125.0, cfg.Bed.Cutoff)
	assert.Equal(t, -1.0, cfg.Probe.Offset.Z)

	kc := cfg.KernelConfig()
	require.Len(t, kc.Sources, 4)
	assert.False(t, kc.Sources[kernel.StepperTimer].Enabled)
	assert.True(t, kc.Sources[kernel.SysTickTimer].Enabled)
	assert.Equal(t, uint64(1000), kc.Sources[kernel.SysTickTimer].Hz)
	assert.Equal(t, cfg.Clock.Frequency, kc.Sources[kernel.MainThread].Rate)
	assert.Equal(t, 3, kc.Sources[kernel.MainThread].Priority)
}

func TestParseConfigKeepsDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte("clock:\n  scale: 0\naxis:\n  start_mm: 10\npins:\n  tach: -1\n"))
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.Clock.Scale)
	assert.Equal(t, uint64(100_000_000), cfg.Clock.Frequency)
	assert.Equal(t, 10.0, cfg.Axis.StartMM)
	assert.Equal(t, 80.0, cfg.Axis.StepsPerMM)
	assert.Equal(t, gpio.NoPin, cfg.Pins.Tach)
	assert.Equal(t, gpio.Pin(52), cfg.Pins.SPIClock)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"duplicate pin", "pins: {led: 54}", "both use pin 54"},
		{"pin out of range", "pins: {tach: 300}", "outside the pin table"},
		{"zero frequency", "clock: {frequency: 0}", "clock.frequency"},
		{"negative scale", "clock: {scale: -1}", "clock.scale"},
		{"no main loop", "sources: {main: {hz: 0}}", "sources.systick.hz"},
		{"bad yaml", "clock: [", "decode board"},
		{"short tilt", "probe: {tilt: [{x: 0}, {x: 1}]}", "probe.tilt has 2 points"},
		{"probe on endstop", "pins: {probe: 18}", "both use pin 18"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	path := filepath.Join(t.TempDir(), "board.yaml")
	require.NoError(t, os.WriteFile(path, []byte("debug: true\n"), 0o644))
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.Debug)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
