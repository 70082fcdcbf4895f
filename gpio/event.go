package gpio

import "fmt"

type EventKind uint8

const (
	EventNone EventKind = iota
	EventFall
	EventRise
	EventSet
	EventMode
	EventDirection
	EventQuery
)

func (k EventKind) String() string {
	switch k {
	case EventNone:
		return "NOP"
	case EventFall:
		return "FALL"
	case EventRise:
		return "RISE"
	case EventSet:
		return "SET"
	case EventMode:
		return "MODE"
	case EventDirection:
		return "DIRECTION"
	case EventQuery:
		return "QUERY"
	}
	return fmt.Sprintf("EventKind(%d)", uint8(k))
}

// Event is delivered synchronously to a pin's subscriber.
type Event struct {
	// Timestamp is the clock reading at the write or read. Operations with
	// no virtual time between them share a timestamp.
	Timestamp uint64
	Pin       Pin
	Kind      EventKind
}

func (e Event) String() string {
	return fmt.Sprintf("%d: pin %d %s", e.Timestamp, e.Pin, e.Kind)
}

// Subscriber observes every event on the pin it is attached to.
type Subscriber interface {
	OnEvent(Event)
}

// SubscriberFunc adapts a function to Subscriber.
type SubscriberFunc func(Event)

func (f SubscriberFunc) OnEvent(e Event) { f(e) }

type multi []Subscriber

func (m multi) OnEvent(e Event) {
	for _, s := range m {
		s.OnEvent(e)
	}
}

// Multi fans one pin's events out to several subscribers in order.
func Multi(subs ...Subscriber) Subscriber {
	out := make(multi, 0, len(subs))
	for _, s := range subs {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// classify returns the event a write of next over prev produces.
func classify(prev, next uint16) EventKind {
	switch {
	case next > 1:
		return EventSet
	case next > prev:
		return EventRise
	case next < prev:
		return EventFall
	}
	return EventNone
}
