package track

import "github.com/ratchov/midish-sub000/pkg/ev"

// State records the most recent event seen for one event Class, the
// cursor's view of "the active context for one event class" (§3.4).
type State struct {
	Event ev.Event
	Phase ev.Phase
	Pos   int64 // tick position (relative to the owning SeqPtr's track) where Event occurred
	Tag   uint32
	Keep  bool // pending deletion, set by frame operations that defer removal
}

// StateList is the set of active States for a cursor, keyed by Class
// (§3.4): at most one State per class, and classes whose last event was
// terminal (a note-off) are removed rather than kept at Phase Last.
type StateList struct {
	m map[ev.Class]*State
}

// NewStateList returns an empty StateList.
func NewStateList() *StateList {
	return &StateList{m: make(map[ev.Class]*State)}
}

// Clone deep-copies l, used when a SeqPtr is duplicated for lockstep
// scanning (§4.4's "two SeqPtrs in lockstep").
func (l *StateList) Clone() *StateList {
	c := NewStateList()
	for k, v := range l.m {
		cp := *v
		c.m[k] = &cp
	}
	return c
}

// Get returns the live State for class, if any.
func (l *StateList) Get(class ev.Class) (*State, bool) {
	s, ok := l.m[class]
	return s, ok
}

// Each calls fn for every live State, in no particular order.
func (l *StateList) Each(fn func(ev.Class, *State)) {
	for k, v := range l.m {
		fn(k, v)
	}
}

// Len reports the number of live classes.
func (l *StateList) Len() int { return len(l.m) }

// Observe updates the StateList for an event passing the cursor at tick
// pos, returning the resulting (possibly now-removed) State. A terminal
// event (note-off) transitions its class's state to ev.Last and removes
// it from the live set; any other event creates (ev.First) or advances
// (ev.Next) its class's state.
func (l *StateList) Observe(e ev.Event, pos int64) *State {
	class := ev.ClassOf(e)
	if e.Terminal() {
		s, ok := l.m[class]
		if !ok {
			s = &State{Event: e, Pos: pos}
		} else {
			s.Event = e
			s.Pos = pos
		}
		s.Phase = ev.Last
		delete(l.m, class)
		return s
	}
	s, ok := l.m[class]
	if !ok {
		s = &State{Event: e, Pos: pos, Phase: ev.First}
		l.m[class] = s
		return s
	}
	s.Event = e
	s.Pos = pos
	s.Phase = ev.Next
	return s
}

// Release removes class from the live set without recording a terminal
// event, used by the mixout arbiter (§4.7) when a producer's source stops
// driving a class it previously owned.
func (l *StateList) Release(class ev.Class) {
	delete(l.m, class)
}

// Put installs a State directly, used when restoring a StateList snapshot
// (undo, or a frame operation reconstructing the pre-window context).
func (l *StateList) Put(class ev.Class, s *State) {
	l.m[class] = s
}

// Tempo returns the microseconds-per-24-tick value of the current TEMPO
// state, and whether one is active (§4.3's gettempo).
func (l *StateList) Tempo() (int, bool) {
	s, ok := l.m[ev.Class{Kind: ev.TEMPO}]
	if !ok {
		return 0, false
	}
	return s.Event.V0, true
}

// TimeSig returns (beats, ticsPerBeat) of the current TIMESIG state
// (§4.3's getsign).
func (l *StateList) TimeSig() (beats, tics int, ok bool) {
	s, ok := l.m[ev.Class{Kind: ev.TIMESIG}]
	if !ok {
		return 0, 0, false
	}
	return s.Event.V0, s.Event.V1, true
}

// Redundant reports whether e would be a no-op write given class's live
// state: a controller-like event (non-note voice message) whose value
// exactly matches the already-active value for its class (§4.3's evput
// controller deduplication, §4.7's mixout "redundant writes are dropped").
func (l *StateList) Redundant(e ev.Event) bool {
	if e.Kind == ev.NON || e.Kind == ev.NOFF || e.Kind == ev.KAT {
		return false
	}
	s, ok := l.m[ev.ClassOf(e)]
	if !ok {
		return false
	}
	return s.Event == e
}
