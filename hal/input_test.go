package hal

import "testing"

func TestNextScale(t *testing.T) {
	tests := []struct {
		scale, factor, want float64
	}{
		{0, 2, 1},
		{0, 0.5, 1},
		{1, 2, 2},
		{1, 0.5, 0.5},
		{64, 2, 64},
		{1.0 / 64, 0.5, 1.0 / 64},
	}
	for _, tt := range tests {
		if got := nextScale(tt.scale, tt.factor); got != tt.want {
			t.Fatalf("nextScale(%v, %v) = %v, want %v", tt.scale, tt.factor, got, tt.want)
		}
	}
}

func TestApplyKeyPacer(t *testing.T) {
	sim := newTestSim(t)

	applyKey(sim, KeyEvent{Code: KeyF1, Press: true})
	if !sim.Pacer.Paused() {
		t.Fatal("F1 did not pause")
	}
	applyKey(sim, KeyEvent{Code: KeyF1, Press: false})
	if !sim.Pacer.Paused() {
		t.Fatal("F1 release changed the pause state")
	}
	applyKey(sim, KeyEvent{Code: KeyF1, Press: true})
	if sim.Pacer.Paused() {
		t.Fatal("second F1 did not resume")
	}

	applyKey(sim, KeyEvent{Code: KeyF3, Press: true})
	if got := sim.Pacer.Scale(); got != 1 {
		t.Fatalf("Scale() after F3 from unthrottled = %v, want 1", got)
	}
	applyKey(sim, KeyEvent{Code: KeyF2, Press: true})
	if got := sim.Pacer.Scale(); got != 0.5 {
		t.Fatalf("Scale() after F2 = %v, want 0.5", got)
	}
}

func TestApplyKeyPanel(t *testing.T) {
	sim := newTestSim(t)

	applyKey(sim, KeyEvent{Press: true, Rune: 'r'})
	applyKey(sim, KeyEvent{Code: KeyRight, Press: true})
	applyKey(sim, KeyEvent{Code: KeyRight, Press: false})
	// One input is applied per systick; run a few.
	if err := sim.Advance(sim.Kernel.Frequency() / 100); err != nil {
		t.Fatalf("Advance() = %v", err)
	}
	if sim.Runout.Present() {
		t.Fatal("'r' did not remove the filament")
	}

	applyKey(sim, KeyEvent{Press: true, Rune: 'r'})
	if err := sim.Advance(sim.Kernel.Frequency() / 100); err != nil {
		t.Fatalf("Advance() = %v", err)
	}
	if !sim.Runout.Present() {
		t.Fatal("second 'r' did not restore the filament")
	}
}
