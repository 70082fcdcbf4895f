package kernel

import (
	"errors"
	"testing"
	"time"
)

type fakeWall struct {
	now    time.Time
	sleeps int
}

func (f *fakeWall) Now() time.Time { return f.now }

func (f *fakeWall) Sleep(d time.Duration) {
	f.sleeps++
	f.now = f.now.Add(d)
}

func TestPacerWaitsForRealTime(t *testing.T) {
	w := &fakeWall{now: time.Unix(100, 0)}
	p := NewPacerWithClock(1000, 1, w.Now, w.Sleep)
	p.SetMargin(0)

	if err := p.Wait(5, nil); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if w.sleeps < 5 || w.sleeps > 6 {
		t.Fatalf("sleeps = %d, want 5 or 6", w.sleeps)
	}
	if got := p.Realtime(); got < 4 {
		t.Fatalf("Realtime() = %d, want about 5", got)
	}
}

func TestPacerScaleDoublesSpeed(t *testing.T) {
	w := &fakeWall{now: time.Unix(100, 0)}
	p := NewPacerWithClock(1000, 2, w.Now, w.Sleep)
	p.SetMargin(0)

	if err := p.Wait(10, nil); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if elapsed := w.now.Sub(time.Unix(100, 0)); elapsed > 6*time.Millisecond {
		t.Fatalf("waited %v for 10 ticks at 2x, want about 5ms", elapsed)
	}
}

func TestPacerUnthrottled(t *testing.T) {
	w := &fakeWall{now: time.Unix(100, 0)}
	p := NewPacerWithClock(1000, 0, w.Now, w.Sleep)

	if err := p.Wait(1_000_000, nil); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if w.sleeps != 0 {
		t.Fatalf("sleeps = %d, want 0", w.sleeps)
	}
	// Throttling resumes from the current virtual time, not from zero.
	p.SetScale(1)
	p.SetMargin(0)
	if err := p.Wait(1_000_001, nil); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if w.sleeps > 2 {
		t.Fatalf("sleeps = %d after resuming, want at most 2", w.sleeps)
	}
}

func TestPacerPausedStillQuits(t *testing.T) {
	w := &fakeWall{now: time.Unix(100, 0)}
	p := NewPacerWithClock(1000, 1, w.Now, w.Sleep)
	p.SetPaused(true)

	err := p.Wait(10, func() bool { return w.sleeps >= 3 })
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("Wait() = %v, want ErrCancelled", err)
	}
	if !p.Paused() {
		t.Fatal("Paused() = false, want true")
	}
}
