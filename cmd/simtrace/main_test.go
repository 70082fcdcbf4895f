package main

import (
	"os"
	"path/filepath"
	"testing"

	"firmsim/internal/log"
)

func TestRunHeatsTowardTarget(t *testing.T) {
	tr, err := run(options{seconds: 5, step: 0.5, target: 200, move: -1}, log.NewNullLogger())
	if err != nil {
		t.Fatalf("run() = %v", err)
	}
	if len(tr.temp) != 10 {
		t.Fatalf("len(temp) = %d, want 10", len(tr.temp))
	}
	first, last := tr.temp[0], tr.temp[len(tr.temp)-1]
	if last.X <= first.X {
		t.Fatalf("time did not advance: %v -> %v", first.X, last.X)
	}
	if last.Y <= first.Y {
		t.Fatalf("temperature did not rise: %v -> %v", first.Y, last.Y)
	}

	out := filepath.Join(t.TempDir(), "temp.png")
	if err := render(out, "Hot end", "°C", tr.temp, 200); err != nil {
		t.Fatalf("render() = %v", err)
	}
	if st, err := os.Stat(out); err != nil || st.Size() == 0 {
		t.Fatalf("plot not written: %v", err)
	}
}

func TestRunRejectsBadStep(t *testing.T) {
	if _, err := run(options{seconds: 1, step: 0}, log.NewNullLogger()); err == nil {
		t.Fatal("run() with zero step succeeded")
	}
}
