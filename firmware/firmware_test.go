package firmware

import (
	"testing"

	"firmsim/kernel"
)

type recorder struct {
	calls []string
}

func (r *recorder) Setup() error          { r.calls = append(r.calls, "setup"); return nil }
func (r *recorder) Loop() error           { r.calls = append(r.calls, "loop"); return nil }
func (r *recorder) StepperISR() error     { r.calls = append(r.calls, "stepper"); return nil }
func (r *recorder) TemperatureISR() error { r.calls = append(r.calls, "temperature"); return nil }
func (r *recorder) SysTick() error        { r.calls = append(r.calls, "systick"); return nil }

func TestAttach(t *testing.T) {
	k := kernel.New(kernel.Config{})
	r := &recorder{}
	Attach(k, r)

	// 1 ms: systick; 2 ms: systick then the main thread.
	if err := k.DelayCycles(200_001); err != nil {
		t.Fatalf("DelayCycles() = %v", err)
	}
	want := []string{"systick", "systick", "setup", "loop"}
	if len(r.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", r.calls, want)
	}
	for i := range want {
		if r.calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", r.calls, want)
		}
	}

	r.calls = nil
	k.Initialize(kernel.StepperTimer, 1000)
	k.Start(kernel.StepperTimer, 1000)
	k.Enable(kernel.StepperTimer)
	k.Initialize(kernel.TemperatureTimer, 1000)
	k.Start(kernel.TemperatureTimer, 1000)
	k.Enable(kernel.TemperatureTimer)
	if err := k.DelayCycles(100_001); err != nil {
		t.Fatalf("DelayCycles() = %v", err)
	}
	want = []string{"systick", "stepper", "temperature"}
	if len(r.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", r.calls, want)
	}
	for i := range want {
		if r.calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", r.calls, want)
		}
	}
}
