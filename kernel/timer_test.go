package kernel

import "testing"

func TestTimerRegisters(t *testing.T) {
	k := New(Config{Frequency: testFreq, Sources: []SourceConfig{{Name: "t0"}}})
	k.Initialize(0, 2_000_000)
	k.Start(0, 1_000)
	if got := k.GetCompare(0); got != 2_000 {
		t.Fatalf("GetCompare() = %d, want 2000", got)
	}
	if k.IsEnabled(0) {
		t.Fatal("Start enabled the timer")
	}
	k.Enable(0)
	if !k.IsEnabled(0) {
		t.Fatal("IsEnabled() = false after Enable")
	}
	// 2000 counts at 2 MHz is 1 ms.
	if d := k.Source(0).deadline(testFreq); d != 100_000 {
		t.Fatalf("deadline = %d, want 100000", d)
	}
	k.SetCompare(0, 500)
	if d := k.Source(0).deadline(testFreq); d != 25_000 {
		t.Fatalf("deadline after SetCompare = %d, want 25000", d)
	}
	k.Disable(0)
	if d := k.Source(0).deadline(testFreq); d != Never {
		t.Fatalf("disabled deadline = %d, want Never", d)
	}
}

func TestTimerRateNotDividingClock(t *testing.T) {
	for _, rate := range []uint64{3_000_000, 72_000_000} {
		k := New(Config{Frequency: testFreq, Sources: []SourceConfig{{Name: "t0"}}})
		k.Initialize(0, rate)
		k.Start(0, 1_000)
		k.Enable(0)
		// 1 ms at any counter rate.
		if d := k.Source(0).deadline(testFreq); d != 100_000 {
			t.Fatalf("rate %d: deadline = %d, want 100000", rate, d)
		}
	}

	k := New(Config{Frequency: testFreq, Sources: []SourceConfig{{Name: "t0"}}})
	k.Initialize(0, 3_000_000)
	k.Start(0, 1_000)
	k.GetCount(0)
	if err := k.DelayCycles(100_000 - DefaultCountPollTicks); err != nil {
		t.Fatalf("DelayCycles: %v", err)
	}
	// 100010 ticks at 100 MHz is 3000.3 counts at 3 MHz.
	if got := k.GetCount(0); got != 3_000 {
		t.Fatalf("GetCount() = %d, want 3000", got)
	}
}

func TestGetCountAdvancesClock(t *testing.T) {
	k := New(Config{Frequency: testFreq, Sources: []SourceConfig{{Name: "t0"}}})
	k.Initialize(0, 1_000_000)
	k.Start(0, 1_000)

	if got := k.GetCount(0); got != 0 {
		t.Fatalf("GetCount() = %d, want 0", got)
	}
	if k.Ticks() != DefaultCountPollTicks {
		t.Fatalf("Ticks() = %d, want %d", k.Ticks(), DefaultCountPollTicks)
	}
	if err := k.DelayCycles(1_000); err != nil {
		t.Fatalf("DelayCycles: %v", err)
	}
	if got := k.GetCount(0); got != 10 {
		t.Fatalf("GetCount() = %d, want 10", got)
	}
	if k.Ticks() != 1_020 {
		t.Fatalf("Ticks() = %d, want 1020", k.Ticks())
	}
}

func TestSpinOnCountTerminates(t *testing.T) {
	k := New(Config{Frequency: testFreq, Sources: []SourceConfig{{Name: "t0"}}})
	k.Initialize(0, 1_000_000)
	k.Start(0, 1_000)
	for i := 0; k.GetCount(0) < 5; i++ {
		if i > 1_000 {
			t.Fatal("counter never reached 5")
		}
	}
}

func TestInvalidTimerIDs(t *testing.T) {
	k := New(Config{Frequency: testFreq, Sources: []SourceConfig{{Name: "t0"}}})
	for _, id := range []int{-1, 1, 99} {
		k.Initialize(id, 1)
		k.Start(id, 1)
		k.Enable(id)
		k.SetCompare(id, 7)
		k.Attach(id, nil, nil)
		if k.IsEnabled(id) || k.GetCompare(id) != 0 || k.GetCount(id) != 0 {
			t.Fatalf("timer %d is not a no-op", id)
		}
	}
	if k.Ticks() != 0 {
		t.Fatalf("invalid GetCount moved the clock to %d", k.Ticks())
	}
}

func TestZeroPeriodStillAdvances(t *testing.T) {
	k := New(Config{Frequency: testFreq, Sources: []SourceConfig{{Name: "z", Rate: testFreq, Enabled: true}}})
	for i := 0; i < 2; i++ {
		if ran, err := k.ExecuteLoop(Never); !ran || err != nil {
			t.Fatalf("ExecuteLoop() = %v, %v at step %d, want true, nil", ran, err, i)
		}
	}
	if k.Ticks() != 2 {
		t.Fatalf("Ticks() = %d, want 2", k.Ticks())
	}
}
