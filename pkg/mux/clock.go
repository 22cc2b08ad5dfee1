package mux

import "time"

// State is the clock's position in the transport state machine (§4.8).
type State int

const (
	Stop State = iota
	Start // waiting for clock tick 0
	FirstTic
	NextTic
)

// Clock computes tick timer expiry from tempo and drives the STOP/START/
// FIRST_TIC/NEXT_TIC transport state, either from its own timer or from
// incoming MIDI-clock bytes when slaved to an external source (§4.8).
type Clock struct {
	state State

	tempoUsec24 int64 // microseconds per MIDI-clock tic (1/24 quarter note)
	tempoFactor int   // fixed-point /256; 256 == 1.0x (tempo_factor, §4.8)
	lastExpiry  time.Duration

	slaved bool // true when an external device is the clock-rx master
}

// NewClock returns a stopped clock at the default tempo (120 BPM, 1.0x).
func NewClock() *Clock {
	c := &Clock{tempoFactor: 256}
	c.SetTempoBPM(120)
	return c
}

// SetTempoBPM sets the tempo in quarter notes per minute.
func (c *Clock) SetTempoBPM(bpm float64) {
	if bpm <= 0 {
		return
	}
	usecPerQuarter := 60_000_000.0 / bpm
	c.tempoUsec24 = int64(usecPerQuarter / 24)
}

// SetTempoFactor sets the fixed-point (x/256) tempo multiplier applied on
// top of the tempo map, e.g. for a live "tap tempo" nudge.
func (c *Clock) SetTempoFactor(factor int) { c.tempoFactor = factor }

// NextExpiry advances and returns the next timer deadline, relative to the
// clock's own zero time, adjusted by the tempo factor (§4.8 step 4). It is
// meaningless while the clock is slaved to an external source.
func (c *Clock) NextExpiry() time.Duration {
	usec := c.tempoUsec24 * 24 * int64(c.tempoFactor) / 256
	c.lastExpiry += time.Duration(usec) * time.Microsecond
	return c.lastExpiry
}

// Slave marks the clock as driven by an external clock-rx device: the
// internal timer is disabled and HandleIncomingTic drives advancement.
func (c *Clock) Slave(on bool) { c.slaved = on }

// Slaved reports whether an external device currently drives the clock.
func (c *Clock) Slaved() bool { return c.slaved }

// IsMaster reports whether this clock should broadcast TIC bytes to
// clock-tx devices (the converse of being slaved).
func (c *Clock) IsMaster() bool { return !c.slaved && c.state != Stop }

// HandleIncomingStart processes an incoming MIDI START byte.
func (c *Clock) HandleIncomingStart() { c.state = Start }

// HandleIncomingStop processes an incoming MIDI STOP byte.
func (c *Clock) HandleIncomingStop() { c.state = Stop }

// HandleIncomingTic processes one incoming MIDI clock TIC (or, when not
// slaved, one expired internal timer tick), advancing the transport state
// and reporting whether the caller should advance tracks by one tick.
func (c *Clock) HandleIncomingTic() bool {
	switch c.state {
	case Stop:
		return false
	case Start:
		c.state = FirstTic
		return true
	default:
		c.state = NextTic
		return true
	}
}

// State reports the current transport state.
func (c *Clock) State() State { return c.state }
