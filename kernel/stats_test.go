package kernel

import (
	"math"
	"testing"
)

func TestStatsWindow(t *testing.T) {
	var s sourceStats
	for _, l := range []uint64{0, 10, 20, 30} {
		s.record(l)
	}
	st := s.snapshot("x")
	if st.Fired != 4 || st.Late != 3 || st.TotalLateness != 60 || st.MaxLateness != 30 {
		t.Fatalf("snapshot = %+v", st)
	}
	if st.Mean != 15 {
		t.Fatalf("Mean = %v, want 15", st.Mean)
	}
	// Sample standard deviation of 0,10,20,30.
	if want := math.Sqrt(500.0 / 3); math.Abs(st.StdDev-want) > 1e-9 {
		t.Fatalf("StdDev = %v, want %v", st.StdDev, want)
	}
}

func TestStatsWindowWraps(t *testing.T) {
	var s sourceStats
	for i := 0; i < latenessWindow; i++ {
		s.record(100)
	}
	for i := 0; i < latenessWindow; i++ {
		s.record(0)
	}
	st := s.snapshot("x")
	if st.Mean != 0 || st.MaxLateness != 100 {
		t.Fatalf("Mean = %v MaxLateness = %d, want 0 and 100", st.Mean, st.MaxLateness)
	}
}
