package kernel

import "testing"

func TestNanosToTicks(t *testing.T) {
	tests := []struct {
		ns, freq, want uint64
	}{
		{1_000_000, 100_000_000, 100_000},
		{15, 100_000_000, 1}, // sub-resolution remainder dropped
		{9, 100_000_000, 0},
		{1_000, 2_000_000_000, 2_000},
		{1_000_000, 1_000, 1},
		{123, 0, 0},
	}
	for _, tt := range tests {
		if got := NanosToTicks(tt.ns, tt.freq); got != tt.want {
			t.Fatalf("NanosToTicks(%d, %d) = %d, want %d", tt.ns, tt.freq, got, tt.want)
		}
	}
}

func TestTicksToNanos(t *testing.T) {
	tests := []struct {
		ticks, freq, want uint64
	}{
		{100_000, 100_000_000, 1_000_000},
		{3, 2_000_000_000, 1},
		{1, 1_000, 1_000_000},
		{5, 0, 0},
	}
	for _, tt := range tests {
		if got := TicksToNanos(tt.ticks, tt.freq); got != tt.want {
			t.Fatalf("TicksToNanos(%d, %d) = %d, want %d", tt.ticks, tt.freq, got, tt.want)
		}
	}
}

func TestConversionRoundTrip(t *testing.T) {
	for _, freq := range []uint64{1_000, 1_000_000, 100_000_000, 1_000_000_000, 4_000_000_000} {
		step := uint64(1)
		if freq < 1_000_000_000 {
			step = 1_000_000_000 / freq
		}
		for i := uint64(0); i < 50; i++ {
			ns := i * step * 7
			if got := TicksToNanos(NanosToTicks(ns, freq), freq); got != ns {
				t.Fatalf("freq %d: round trip of %d ns = %d", freq, ns, got)
			}
		}
	}
}

func TestClockDerivedUnits(t *testing.T) {
	c := NewClock(100_000_000)
	c.SetTicks(250_000_000)
	if got := c.Nanos(); got != 2_500_000_000 {
		t.Fatalf("Nanos() = %d, want 2500000000", got)
	}
	if got := c.Micros(); got != 2_500_000 {
		t.Fatalf("Micros() = %d, want 2500000", got)
	}
	if got := c.Millis(); got != 2_500 {
		t.Fatalf("Millis() = %d, want 2500", got)
	}
	if got := c.Seconds(); got != 2 {
		t.Fatalf("Seconds() = %d, want 2", got)
	}
	if got := NewClock(0).Frequency(); got != DefaultFrequency {
		t.Fatalf("Frequency() = %d, want %d", got, DefaultFrequency)
	}
}

func TestRescale(t *testing.T) {
	tests := []struct {
		v, from, to, want uint64
	}{
		{3_000, 3_000_000, 100_000_000, 100_000},
		{72_000, 72_000_000, 100_000_000, 100_000},
		{1, 72_000_000, 100_000_000, 1},
		{100_000, 100_000_000, 3_000_000, 3_000},
		{7, 0, 100, 0},
		{Never, 1, 2, Never},
	}
	for _, tt := range tests {
		if got := Rescale(tt.v, tt.from, tt.to); got != tt.want {
			t.Fatalf("Rescale(%d, %d, %d) = %d, want %d", tt.v, tt.from, tt.to, got, tt.want)
		}
	}
}
