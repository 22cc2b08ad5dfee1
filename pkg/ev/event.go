package ev

import "fmt"

// Event is one logical MIDI message: a kind tag, a device/channel pair
// (when the kind has one) and up to two 14-bit parameters whose meaning
// depends on Kind (§3.1).
type Event struct {
	Kind Kind
	Dev  int
	Ch   int
	V0   int
	V1   int
}

// New builds an Event, defaulting any parameter not used by Kind's
// descriptor to Undef rather than 0, so callers can't mistake "unused" for
// "zero".
func New(k Kind, dev, ch, v0, v1 int) Event {
	d, ok := Info(k)
	e := Event{Kind: k, Dev: dev, Ch: ch, V0: v0, V1: v1}
	if ok {
		if !d.HasDev {
			e.Dev = 0
		}
		if !d.HasCh {
			e.Ch = 0
		}
		if d.NParams < 1 {
			e.V0 = Undef
		}
		if d.NParams < 2 {
			e.V1 = Undef
		}
	}
	return e
}

// Valid reports whether e's parameters fall within the ranges declared by
// its kind's descriptor (§3.1 invariant).
func (e Event) Valid() bool {
	d, ok := Info(e.Kind)
	if !ok {
		return false
	}
	if d.NParams >= 1 && e.V0 != Undef {
		if e.V0 < 0 || e.V0 > d.V0Max {
			return false
		}
	} else if d.NParams >= 1 && e.V0 == Undef && !d.V0Undef {
		return false
	}
	if d.NParams >= 2 && e.V1 != Undef {
		if e.V1 < 0 || e.V1 > d.V1Max {
			return false
		}
	} else if d.NParams >= 2 && e.V1 == Undef && !d.V1Undef {
		return false
	}
	return true
}

// Voice reports whether e is a channel-scoped voice message.
func (e Event) Voice() bool {
	d, ok := Info(e.Kind)
	return ok && d.Voice
}

// Class identifies the "active voice or controller context" an Event
// belongs to (§3.4): events with the same Class compete for the same State
// slot. Two events of different Kind are always different classes; within
// a Kind the identifying parameter(s) vary (note number for notes, ctl
// number for CC/XCTL, RPN/NRPN number, nothing extra for PC/CAT/BEND).
type Class struct {
	Kind Kind
	Dev  int
	Ch   int
	ID   int // identifying parameter: note, ctl#, rpn#; 0 when the kind has none
}

// ClassOf computes e's Class.
func ClassOf(e Event) Class {
	c := Class{Kind: e.Kind, Dev: e.Dev, Ch: e.Ch}
	switch e.Kind {
	case NOFF, NON, KAT:
		c.ID = e.V0 // note number
	case CTL:
		c.ID = e.V0 // controller number
	case XCTL:
		c.ID = e.V0
	case RPN, NRPN:
		c.ID = e.V0 // parameter number
	case PC, XPC:
		c.ID = 0 // one program-change context per (dev,ch)
	}
	return c
}

// Phase is a State's position in its class's lifecycle.
type Phase int

const (
	First Phase = iota
	Next
	Last
)

// NoteOn reports whether e starts a note (velocity > 0; a NON with
// velocity 0 has already been normalized to NOFF by the device codec,
// §4.1, so this is a plain kind check).
func (e Event) NoteOn() bool { return e.Kind == NON }

// NoteOff reports whether e ends a note.
func (e Event) NoteOff() bool { return e.Kind == NOFF }

// Terminal reports whether e is the kind that ends its Class's lifecycle:
// a note-off for notes, or (conservatively) never for continuously-live
// classes like CTL/RPN, which persist until overwritten or the track ends.
func (e Event) Terminal() bool { return e.Kind == NOFF }

// Ordered is the total order used to break zero-delta ties (§3.3):
// non-voice / state-setting events (CTL, XCTL, RPN, NRPN, PC, XPC, BEND,
// CAT, KAT, SYSEX, TEMPO, TIMESIG) sort before NON, and NOFF sorts before
// everything so a note's release is never reordered past a new note at the
// same tick. It reports whether a should be emitted at or before b.
func Ordered(a, b Event) bool {
	return rank(a) <= rank(b)
}

func rank(e Event) int {
	switch e.Kind {
	case NOFF:
		return 0
	case NON:
		return 2
	default:
		return 1
	}
}

func (e Event) String() string {
	d, ok := Info(e.Kind)
	name := "?"
	if ok {
		name = d.Name
	}
	return fmt.Sprintf("%s{dev=%d ch=%d v0=%d v1=%d}", name, e.Dev, e.Ch, e.V0, e.V1)
}
