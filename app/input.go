package app

import (
	"firmsim/kernel"
	"firmsim/peripheral/st7920"
)

type InputKind uint8

const (
	// InputEncoder is one quadrature step; a detent is two.
	InputEncoder InputKind = iota + 1
	InputButton
	InputKill
	InputTouch
	InputRunout
)

// Input is a host-side event applied to the board on the scheduler
// goroutine.
type Input struct {
	Kind InputKind
	// Dir is +1 (clockwise) or -1 for InputEncoder.
	Dir     int
	Pressed bool
	X, Y    int
	// Present is the filament state for InputRunout.
	Present bool
}

// Send queues in. It reports false when the queue is full.
func (s *Simulation) Send(in Input) bool { return s.input.TryPush(in) }

// Rotate queues one encoder detent.
func (s *Simulation) Rotate(clockwise bool) bool {
	dir := -1
	if clockwise {
		dir = 1
	}
	if s.input.Cap()-s.input.Len() < 2 {
		return false
	}
	return s.Send(Input{Kind: InputEncoder, Dir: dir}) && s.Send(Input{Kind: InputEncoder, Dir: dir})
}

func (s *Simulation) apply(in Input) {
	switch in.Kind {
	case InputEncoder:
		s.LCD.Step(in.Dir)
	case InputButton:
		s.LCD.SetButton(in.Pressed)
	case InputKill:
		s.LCD.SetKill(in.Pressed)
	case InputTouch:
		if in.Pressed {
			s.Touch.Press(in.X, in.Y)
		} else {
			s.Touch.Release()
		}
	case InputRunout:
		s.Runout.SetPresent(in.Present)
	}
}

// Snapshot is the board state as of the last Update.
type Snapshot struct {
	Ticks   uint64         `json:"ticks"`
	Seconds float64        `json:"seconds"`
	Scale   float64        `json:"scale"`
	Paused  bool           `json:"paused"`
	Frame   st7920.Frame   `json:"-"`
	FrameID uint64         `json:"frame"`
	Beeping bool           `json:"beeping"`
	Temp    float64        `json:"temp"`
	BedTemp float64        `json:"bed_temp"`
	X       float64        `json:"x"`
	Y       float64        `json:"y"`
	Z       float64        `json:"z"`
	E       float64        `json:"e"`
	Probe   bool           `json:"probe"`
	SDBusy  bool           `json:"sd_busy"`
	SDCard  bool           `json:"sd_card"`
	Touch   [2]int         `json:"touch"`
	Runout  bool           `json:"runout"`
	Tach    bool           `json:"tach"`
	LED     bool           `json:"led"`
	Stats   []kernel.Stats `json:"stats"`
}

func (s *Simulation) Snapshot() Snapshot {
	fr := s.LCD.Frame()
	x, y, _ := s.Touch.Touched()
	return Snapshot{
		Ticks:   s.Kernel.Ticks(),
		Seconds: float64(s.Kernel.Ticks()) / float64(s.Kernel.Frequency()),
		Scale:   s.Pacer.Scale(),
		Paused:  s.Pacer.Paused(),
		Frame:   fr,
		FrameID: fr.Hash,
		Beeping: s.LCD.Beeping(),
		Temp:    s.Heater.Temperature(),
		BedTemp: s.Bed.Temperature(),
		X:       s.Axis.Shown(),
		Y:       s.Y.Shown(),
		Z:       s.Z.Shown(),
		E:       s.E.Shown(),
		Probe:   s.Probe.Shown(),
		SDBusy:  s.Card.Busy(),
		SDCard:  s.Card.Inserted(),
		Touch:   [2]int{x, y},
		Runout:  !s.Runout.Shown(),
		Tach:    s.Tach.Level(),
		LED:     s.Pins.Peek(s.cfg.Pins.LED) != 0,
		Stats:   s.Kernel.Stats(),
	}
}
