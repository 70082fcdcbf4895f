package kernel

import (
	"sync"

	"gonum.org/v1/gonum/stat"
)

const latenessWindow = 256

type sourceStats struct {
	mu       sync.Mutex
	fired    uint64
	late     uint64
	total    uint64
	max      uint64
	window   [latenessWindow]float64
	windowN  int
	windowAt int
}

func (s *sourceStats) record(lateness uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fired++
	if lateness > 0 {
		s.late++
		s.total += lateness
		if lateness > s.max {
			s.max = lateness
		}
	}
	s.window[s.windowAt] = float64(lateness)
	s.windowAt = (s.windowAt + 1) % latenessWindow
	if s.windowN < latenessWindow {
		s.windowN++
	}
}

// Stats is a snapshot of one source's firing history. Lateness is in
// system ticks; Mean and StdDev cover the most recent firings only.
type Stats struct {
	Name          string  `json:"name"`
	Fired         uint64  `json:"fired"`
	Late          uint64  `json:"late"`
	TotalLateness uint64  `json:"total_lateness"`
	MaxLateness   uint64  `json:"max_lateness"`
	Mean          float64 `json:"mean"`
	StdDev        float64 `json:"stddev"`
}

func (s *sourceStats) snapshot(name string) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stats{
		Name:          name,
		Fired:         s.fired,
		Late:          s.late,
		TotalLateness: s.total,
		MaxLateness:   s.max,
	}
	switch s.windowN {
	case 0:
	case 1:
		st.Mean = s.window[0]
	default:
		st.Mean, st.StdDev = stat.MeanStdDev(s.window[:s.windowN], nil)
	}
	return st
}

// Stats returns a snapshot for every source in declaration order.
// Safe to call from any goroutine.
func (k *Kernel) Stats() []Stats {
	out := make([]Stats, len(k.sources))
	for i, s := range k.sources {
		out[i] = s.stats.snapshot(s.name)
	}
	return out
}
