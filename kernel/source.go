package kernel

// Handler is the body of an interrupt source. It returns ErrCancelled
// (possibly wrapped) when the kernel is shutting down.
type Handler func() error

// SourceConfig declares one entry of the fixed vector table.
type SourceConfig struct {
	Name     string
	Priority int // lower value preempts higher value
	Rate     uint64
	Hz       uint64 // started at this rate when non-zero
	Enabled  bool
}

// Source is one interrupt source or the main thread.
type Source struct {
	name     string
	priority int

	enabled bool
	rate    uint64 // ticks per second in the source's own domain
	compare uint64 // period in the source's own domain
	offset  uint64 // system tick of the last firing

	running     bool
	initialised bool

	init Handler
	loop Handler

	stats sourceStats
}

func (s *Source) Name() string  { return s.name }
func (s *Source) Priority() int { return s.priority }

// period returns the source's period in system ticks, at least one tick.
func (s *Source) period(freq uint64) uint64 {
	p := Rescale(s.compare, s.rate, freq)
	if p == 0 {
		return 1
	}
	return p
}

// deadline returns the system tick at which the source next fires.
func (s *Source) deadline(freq uint64) uint64 {
	if !s.enabled || s.rate == 0 {
		return Never
	}
	d := s.offset + s.period(freq)
	if d < s.offset {
		return Never
	}
	return d
}

func (s *Source) call() error {
	h := s.loop
	if !s.initialised {
		s.initialised = true
		if s.init != nil {
			h = s.init
		}
	}
	if h == nil {
		return nil
	}
	return h()
}
