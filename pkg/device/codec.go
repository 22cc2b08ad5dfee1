// Package device implements the byte↔event codec (§4.1) and the backend
// vtable contract (§6.1) that lets the core treat raw MIDI ports and
// software synthesizers uniformly.
package device

import (
	"github.com/ratchov/midish-sub000/pkg/ev"
	"github.com/ratchov/midish-sub000/pkg/sysex"
)

// ISENSTO and OSENSTO are the active-sensing timeouts, expressed in timer
// ticks by the caller (mux owns the tick rate); device only counts elapsed
// ticks since the last received byte.
const (
	ISENSTO = 350 // ms, input: treat silence longer than this as disconnection
	OSENSTO = 250 // ms, output: send an active-sense byte at least this often
)

// Message is one decoded unit handed up from a Parser: a logical Event,
// plus the raw framed bytes when Event.Kind is ev.SYSEX (Event alone has
// no room for a variable-length payload).
type Message struct {
	Event ev.Event
	Raw   []byte
}

// Parser decodes a byte stream from one device into Messages, tracking
// running status and an in-progress sysex builder per §4.1.
type Parser struct {
	dev int

	status    byte
	hasStatus bool
	data      [2]byte
	dataCount int

	sysex *sysex.SysEx

	silence int // ticks since the last byte was fed
}

// NewParser returns a parser for device index dev.
func NewParser(dev int) *Parser {
	return &Parser{dev: dev}
}

// Tick advances the active-sense silence counter by one timer tick.
func (p *Parser) Tick() { p.silence++ }

// SilentTicks reports how many ticks have elapsed since the last byte.
func (p *Parser) SilentTicks() int { return p.silence }

func kindForStatus(status byte) (ev.Kind, int) {
	switch status & 0xF0 {
	case 0x80:
		return ev.NOFF, 2
	case 0x90:
		return ev.NON, 2
	case 0xA0:
		return ev.KAT, 2
	case 0xB0:
		return ev.CTL, 2
	case 0xC0:
		return ev.PC, 1
	case 0xD0:
		return ev.CAT, 1
	case 0xE0:
		return ev.BEND, 2
	default:
		return ev.NULL, 0
	}
}

// Feed processes one incoming byte and returns zero or more decoded
// Messages (most bytes produce none; a completed voice message, a closed
// well-formed sysex, or a clock, start or stop real-time byte each produce
// exactly one; active sensing and other real-time bytes produce none).
func (p *Parser) Feed(b byte) []Message {
	p.silence = 0

	switch {
	case b >= 0xF8:
		return p.feedRealtime(b)
	case b >= 0xF0:
		return p.feedSystemCommon(b)
	case b >= 0x80:
		p.status = b
		p.hasStatus = true
		p.dataCount = 0
		p.sysex = nil // mid-sysex status byte aborts the in-progress message
		return nil
	default:
		return p.feedData(b)
	}
}

func (p *Parser) feedRealtime(b byte) []Message {
	var k ev.Kind
	switch b {
	case 0xF8:
		k = ev.TIC
	case 0xFA:
		k = ev.START
	case 0xFC:
		k = ev.STOP
	case 0xFE:
		return nil // active-sense ACK: silence counter already reset above
	default:
		return nil // unknown real-time byte: pass through as a no-op
	}
	return []Message{{Event: ev.New(k, p.dev, 0, ev.Undef, ev.Undef)}}
}

func (p *Parser) feedSystemCommon(b byte) []Message {
	switch b {
	case 0xF0:
		p.sysex = sysex.New(p.dev)
		p.sysex.Put(b)
		return nil
	case 0xF7:
		if p.sysex == nil {
			return nil
		}
		p.sysex.Put(b)
		s := p.sysex
		p.sysex = nil
		if !s.WellFormed() {
			return nil
		}
		return []Message{{Event: ev.New(ev.SYSEX, p.dev, 0, s.Len(), ev.Undef), Raw: s.Bytes()}}
	default:
		// other system-common bytes (song pointer, tune request, ...) are
		// not modeled as events; they just reset the parser per §4.1.
		p.sysex = nil
		p.hasStatus = false
		return nil
	}
}

func (p *Parser) feedData(b byte) []Message {
	if p.sysex != nil {
		p.sysex.Put(b)
		return nil
	}
	if !p.hasStatus {
		return nil
	}
	p.data[p.dataCount] = b
	p.dataCount++

	k, need := kindForStatus(p.status)
	if k == ev.NULL || p.dataCount < need {
		return nil
	}
	p.dataCount = 0
	ch := int(p.status & 0x0F)

	var v0, v1 int
	switch k {
	case ev.PC, ev.CAT:
		v0, v1 = int(p.data[0]), ev.Undef
	case ev.BEND:
		v0, v1 = int(p.data[0])|int(p.data[1])<<7, ev.Undef
	default:
		v0, v1 = int(p.data[0]), int(p.data[1])
	}

	if k == ev.NON && v1 == 0 {
		k, v1 = ev.NOFF, 64
	}
	return []Message{{Event: ev.New(k, p.dev, ch, v0, v1)}}
}

// Serializer encodes Events back to wire bytes for one device, compressing
// consecutive same-status voice messages via running status (§4.1).
type Serializer struct {
	lastStatus byte
	hasStatus  bool
}

// NewSerializer returns a serializer with no running status yet latched.
func NewSerializer() *Serializer { return &Serializer{} }

func statusForKind(k ev.Kind) (byte, int, bool) {
	switch k {
	case ev.NOFF:
		return 0x80, 2, true
	case ev.NON:
		return 0x90, 2, true
	case ev.KAT:
		return 0xA0, 2, true
	case ev.CTL:
		return 0xB0, 2, true
	case ev.PC:
		return 0xC0, 1, true
	case ev.CAT:
		return 0xD0, 1, true
	case ev.BEND:
		return 0xE0, 1, true
	default:
		return 0, 0, false
	}
}

// Write encodes e into wire bytes, consulting raw for events (SYSEX) whose
// payload isn't derivable from the Event's numeric fields alone.
func (s *Serializer) Write(e ev.Event, raw []byte) []byte {
	switch e.Kind {
	case ev.TIC:
		return []byte{0xF8}
	case ev.START:
		return []byte{0xFA}
	case ev.STOP:
		return []byte{0xFC}
	case ev.SYSEX:
		s.hasStatus = false // any non-voice message cancels running status
		return raw
	}

	base, ndata, ok := statusForKind(e.Kind)
	if !ok {
		return nil
	}
	status := base | byte(e.Ch&0x0F)

	out := make([]byte, 0, 3)
	if !s.hasStatus || s.lastStatus != status {
		out = append(out, status)
		s.lastStatus = status
		s.hasStatus = true
	}
	switch e.Kind {
	case ev.PC:
		out = append(out, byte(e.V0))
	case ev.CAT:
		out = append(out, byte(e.V0))
	case ev.BEND:
		out = append(out, byte(e.V0&0x7F), byte((e.V0>>7)&0x7F))
	default:
		if ndata == 2 {
			out = append(out, byte(e.V0), byte(e.V1))
		} else {
			out = append(out, byte(e.V0))
		}
	}
	return out
}

// ResetRunningStatus forces the next Write to re-emit a status byte, e.g.
// after an input disconnection or an explicit panic-reset.
func (s *Serializer) ResetRunningStatus() { s.hasStatus = false }
