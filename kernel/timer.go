package kernel

// Timer register surface. Every call with an id outside the vector table is
// ignored; getters return zero for it.

// Initialize sets the tick rate of timer id's own counter.
func (k *Kernel) Initialize(id int, rate uint64) {
	s := k.Source(id)
	if s == nil {
		return
	}
	s.rate = rate
	k.log.Debugf("timer[%d] %s initialised: rate=%d", id, s.name, rate)
}

// Start programs timer id to fire hz times per second, counting from now.
// It does not enable the timer.
func (k *Kernel) Start(id int, hz uint64) {
	s := k.Source(id)
	if s == nil || hz == 0 {
		return
	}
	s.compare = s.rate / hz
	s.offset = k.clock.Ticks()
	k.log.Debugf("timer[%d] %s started: %d Hz compare=%d", id, s.name, hz, s.compare)
}

func (k *Kernel) Enable(id int) {
	if s := k.Source(id); s != nil {
		s.enabled = true
	}
}

func (k *Kernel) Disable(id int) {
	if s := k.Source(id); s != nil {
		s.enabled = false
	}
}

func (k *Kernel) IsEnabled(id int) bool {
	s := k.Source(id)
	return s != nil && s.enabled
}

// SetCompare changes the period of timer id, in its own ticks.
func (k *Kernel) SetCompare(id int, compare uint64) {
	if s := k.Source(id); s != nil {
		s.compare = compare
	}
}

func (k *Kernel) GetCompare(id int) uint64 {
	if s := k.Source(id); s != nil {
		return s.compare
	}
	return 0
}

// GetCount returns the value of timer id's counter since its last firing.
// Reading the counter costs CountPollTicks of virtual time so firmware that
// spins on it makes progress.
func (k *Kernel) GetCount(id int) uint64 {
	s := k.Source(id)
	if s == nil {
		return 0
	}
	now := k.clock.Ticks() + k.countPoll
	k.clock.SetTicks(now)
	if now < s.offset {
		return 0
	}
	elapsed := now - s.offset
	return Rescale(elapsed, k.clock.freq, s.rate)
}
