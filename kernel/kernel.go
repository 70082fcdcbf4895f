// Package kernel is the deterministic scheduler that runs simulated firmware.
//
// A Kernel owns a fixed table of interrupt sources (timer ISRs plus the main
// thread) and a virtual clock. All sources run on the goroutine that calls
// Run; a source that is already running can only be preempted by a source of
// strictly higher priority, which is how interrupt nesting is modelled.
package kernel

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"firmsim/internal/log"
)

// Fixed vector table indices of DefaultSources.
const (
	StepperTimer = iota
	TemperatureTimer
	SysTickTimer
	MainThread
)

// DefaultCountPollTicks is how far GetCount moves the clock per call.
const DefaultCountPollTicks = 10

const idleSleep = time.Millisecond

// DefaultSources returns the vector table of a typical printer board:
// stepper ISR, temperature ISR, a 1 kHz system tick and the main loop at 500 Hz.
func DefaultSources(freq uint64) []SourceConfig {
	if freq == 0 {
		freq = DefaultFrequency
	}
	return []SourceConfig{
		{Name: "Stepper ISR", Priority: 0},
		{Name: "Temperature ISR", Priority: 1},
		{Name: "System tick", Priority: 2, Rate: freq, Hz: 1000, Enabled: true},
		{Name: "Main loop", Priority: 3, Rate: freq, Hz: 500, Enabled: true},
	}
}

type Config struct {
	Frequency uint64
	Sources   []SourceConfig

	// Debug turns scheduler misuse (Yield outside a source) into a panic.
	Debug bool

	// Pacer ties virtual time to the wall clock. Nil runs unthrottled.
	Pacer *Pacer

	CountPollTicks uint64
	Logger         log.Logger
}

// Kernel is the scheduler. Every method except Quit, Stats, Ticks and the
// Clock accessors must be called from the scheduler goroutine.
type Kernel struct {
	clock   *Clock
	sources []*Source
	stack   []int // indices of active sources, innermost last

	quit      atomic.Bool
	masked    bool
	debug     bool
	pacer     *Pacer
	countPoll uint64
	log       log.Logger
}

// New builds a kernel from cfg. The source table is fixed from here on.
func New(cfg Config) *Kernel {
	if cfg.Frequency == 0 {
		cfg.Frequency = DefaultFrequency
	}
	if cfg.Sources == nil {
		cfg.Sources = DefaultSources(cfg.Frequency)
	}
	if cfg.CountPollTicks == 0 {
		cfg.CountPollTicks = DefaultCountPollTicks
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNullLogger()
	}
	k := &Kernel{
		clock:     NewClock(cfg.Frequency),
		debug:     cfg.Debug,
		pacer:     cfg.Pacer,
		countPoll: cfg.CountPollTicks,
		log:       cfg.Logger,
		stack:     make([]int, 0, len(cfg.Sources)),
	}
	for _, sc := range cfg.Sources {
		s := &Source{
			name:     sc.Name,
			priority: sc.Priority,
			rate:     sc.Rate,
			enabled:  sc.Enabled,
		}
		if sc.Hz != 0 && sc.Rate != 0 {
			s.compare = sc.Rate / sc.Hz
		}
		k.sources = append(k.sources, s)
	}
	return k
}

func (k *Kernel) Clock() *Clock     { return k.clock }
func (k *Kernel) Ticks() uint64     { return k.clock.Ticks() }
func (k *Kernel) Frequency() uint64 { return k.clock.freq }

// Sources returns the number of entries in the vector table.
func (k *Kernel) Sources() int { return len(k.sources) }

// Source returns the source at id, or nil.
func (k *Kernel) Source(id int) *Source {
	if id < 0 || id >= len(k.sources) {
		return nil
	}
	return k.sources[id]
}

// Attach installs the handlers for source id. A nil init runs loop on the
// first firing as well.
func (k *Kernel) Attach(id int, init, loop Handler) {
	s := k.Source(id)
	if s == nil {
		return
	}
	s.init = init
	s.loop = loop
}

// Depth returns how many sources are currently active.
func (k *Kernel) Depth() int { return len(k.stack) }

// Current returns the innermost running source, or -1.
func (k *Kernel) Current() int {
	if len(k.stack) == 0 {
		return -1
	}
	return k.stack[len(k.stack)-1]
}

// Quit asks the kernel to stop. Safe from any goroutine; the next
// scheduling step returns ErrCancelled.
func (k *Kernel) Quit() { k.quit.Store(true) }

func (k *Kernel) Quitting() bool { return k.quit.Load() }

// DisableInterrupts stops every source from being selected until
// EnableInterrupts is called.
func (k *Kernel) DisableInterrupts() { k.masked = true }
func (k *Kernel) EnableInterrupts()  { k.masked = false }

// next picks the source to run before horizon, or -1.
func (k *Kernel) next(horizon uint64) (int, uint64) {
	if k.masked {
		return -1, Never
	}
	ceiling := 0
	preempting := false
	if cur := k.Current(); cur >= 0 {
		ceiling = k.sources[cur].priority
		preempting = true
	}
	best, lowest := -1, Never
	for i, s := range k.sources {
		if s.running || (preempting && s.priority >= ceiling) {
			continue
		}
		d := s.deadline(k.clock.freq)
		if d < lowest && d < horizon {
			best, lowest = i, d
		}
	}
	return best, lowest
}

// ExecuteLoop runs the most urgent source due before horizon. It reports
// whether anything ran.
func (k *Kernel) ExecuteLoop(horizon uint64) (bool, error) {
	if k.quit.Load() {
		return false, ErrCancelled
	}
	id, deadline := k.next(horizon)
	if id < 0 {
		return false, nil
	}
	s := k.sources[id]
	if now := k.clock.Ticks(); deadline < now {
		s.stats.record(now - deadline)
		s.offset = now
	} else {
		if err := k.advance(deadline); err != nil {
			return false, err
		}
		s.stats.record(0)
		s.offset = deadline
	}
	return true, k.execute(id)
}

func (k *Kernel) execute(id int) error {
	s := k.sources[id]
	k.stack = append(k.stack, id)
	s.running = true
	defer func() {
		s.running = false
		k.stack = k.stack[:len(k.stack)-1]
		if r := recover(); r != nil {
			if _, ok := r.(*PanicError); ok {
				panic(r)
			}
			panic(&PanicError{Source: s.name, Value: r, Stack: debug.Stack()})
		}
	}()
	return s.call()
}

// advance moves the clock forward to t, waiting for real time if paced.
func (k *Kernel) advance(t uint64) error {
	if t <= k.clock.Ticks() {
		return nil
	}
	if k.pacer != nil {
		if err := k.pacer.Wait(t, k.quit.Load); err != nil {
			return err
		}
	}
	k.clock.SetTicks(t)
	return nil
}

// DelayCycles blocks the caller for n ticks while due sources keep running.
func (k *Kernel) DelayCycles(n uint64) error {
	end := k.clock.Ticks() + n
	for {
		ran, err := k.ExecuteLoop(end)
		if err != nil {
			return err
		}
		if !ran || k.clock.Ticks() >= end {
			break
		}
	}
	return k.advance(end)
}

func (k *Kernel) DelayNanos(ns uint64) error {
	return k.DelayCycles(NanosToTicks(ns, k.clock.freq))
}

func (k *Kernel) DelayMicros(us uint64) error { return k.DelayNanos(us * 1000) }
func (k *Kernel) DelayMillis(ms uint64) error { return k.DelayNanos(ms * 1_000_000) }

func (k *Kernel) DelaySeconds(s uint64) error {
	return k.DelayNanos(s * nanosPerSecond)
}

// Yield lets anything due before the caller's next firing run once. If
// nothing was due the clock jumps to that firing and the caller's period
// restarts from there.
func (k *Kernel) Yield() error {
	cur := k.Current()
	if cur < 0 {
		if k.debug {
			panic("kernel: Yield called outside of any source")
		}
		return nil
	}
	s := k.sources[cur]
	horizon := s.deadline(k.clock.freq)
	ran, err := k.ExecuteLoop(horizon)
	if err != nil || ran || horizon == Never {
		return err
	}
	if err := k.advance(horizon); err != nil {
		return err
	}
	s.offset = k.clock.Ticks()
	return nil
}

// Run drives the kernel until ctx is done, Quit is called or a handler
// fails. Cancellation is a clean exit.
func (k *Kernel) Run(ctx context.Context) (err error) {
	stop := context.AfterFunc(ctx, k.Quit)
	defer stop()
	defer func() {
		if r := recover(); r != nil {
			pe, ok := r.(*PanicError)
			if !ok {
				pe = &PanicError{Source: "kernel", Value: r, Stack: debug.Stack()}
			}
			err = pe
		}
	}()

	k.log.Debugf("kernel: running %d sources at %d Hz", len(k.sources), k.clock.freq)
	for {
		ran, err := k.ExecuteLoop(Never)
		if errors.Is(err, ErrCancelled) {
			k.log.Debugf("kernel: stopped at tick %d", k.clock.Ticks())
			return nil
		}
		if err != nil {
			return fmt.Errorf("kernel: %w", err)
		}
		if !ran {
			// Nothing is enabled; wait for a host goroutine to change that
			// or to quit.
			time.Sleep(idleSleep)
		}
	}
}
