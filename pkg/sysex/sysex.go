// Package sysex implements the owned byte-chunk chain for system-exclusive
// messages (§3.7) and the placeholder pattern matcher used to fold raw
// sysex into synthetic events and back (§4.6).
package sysex

import "github.com/ratchov/midish-sub000/pkg/ev"

const chunkSize = 64

// SysEx is a complete 0xF0..0xF7-framed message, stored as a chain of
// fixed-size chunks (§3.7) rather than one flat slice, mirroring the
// bounded-allocation discipline the rest of the core uses for hot-path
// objects.
type SysEx struct {
	Unit   int // device index
	chunks [][]byte
	length int
}

// New returns an empty SysEx bound to the given device.
func New(unit int) *SysEx {
	return &SysEx{Unit: unit}
}

// Len reports the number of bytes stored (including the 0xF0/0xF7 framing,
// if present).
func (s *SysEx) Len() int { return s.length }

// Put appends one byte, allocating a new chunk when the current one is full.
func (s *SysEx) Put(b byte) {
	if s.length%chunkSize == 0 {
		s.chunks = append(s.chunks, make([]byte, 0, chunkSize))
	}
	last := len(s.chunks) - 1
	s.chunks[last] = append(s.chunks[last], b)
	s.length++
}

// Bytes flattens the chunk chain into a single slice, for transmission or
// pattern matching.
func (s *SysEx) Bytes() []byte {
	out := make([]byte, 0, s.length)
	for _, c := range s.chunks {
		out = append(out, c...)
	}
	return out
}

// WellFormed reports whether the stored bytes start with 0xF0 and end with
// 0xF7, the minimum shape the device codec requires before delivering a
// sysex builder (§4.1).
func (s *SysEx) WellFormed() bool {
	b := s.Bytes()
	return len(b) >= 2 && b[0] == 0xf0 && b[len(b)-1] == 0xf7
}

// Placeholder marks one byte position in a Pattern as a bound 7-bit half of
// one of the pattern's two logical parameters.
type Placeholder int

const (
	V0Hi Placeholder = iota
	V0Lo
	V1Hi
	V1Lo
)

// Pattern is a byte template for a user-defined sysex event (§3.1's PATx,
// §4.2's PATx converter, §4.6): fixed bytes plus up to 4 placeholder
// positions, each consuming one byte of the wire message and contributing
// one 7-bit half to v0 or v1 of the resulting event.
type Pattern struct {
	Name  string
	Fixed []byte              // template bytes; placeholder positions are 0 (unused)
	Slots map[int]Placeholder // byte offset -> which 7-bit half it binds
}

// NewPattern builds a Pattern from a byte template and an explicit mapping
// of offsets within it to placeholders.
func NewPattern(name string, template []byte, slots map[int]Placeholder) *Pattern {
	fixed := make([]byte, len(template))
	copy(fixed, template)
	s := make(map[int]Placeholder, len(slots))
	for k, v := range slots {
		s[k] = v
	}
	return &Pattern{Name: name, Fixed: fixed, Slots: s}
}

// Match checks msg against p byte-by-byte: fixed positions must match
// exactly, placeholder positions consume any byte and contribute its low 7
// bits to the half they're bound to. ok is false if msg doesn't have p's length or a
// non-placeholder byte mismatches.
func (p *Pattern) Match(msg []byte) (v0, v1 int, ok bool) {
	if len(msg) != len(p.Fixed) {
		return 0, 0, false
	}
	v0, v1 = 0, 0
	haveV0, haveV1 := false, false
	for i, want := range p.Fixed {
		if slot, isSlot := p.Slots[i]; isSlot {
			nib := int(msg[i]) & 0x7f
			switch slot {
			case V0Hi:
				v0 |= nib << 7
				haveV0 = true
			case V0Lo:
				v0 |= nib
				haveV0 = true
			case V1Hi:
				v1 |= nib << 7
				haveV1 = true
			case V1Lo:
				v1 |= nib
				haveV1 = true
			}
			continue
		}
		if msg[i] != want {
			return 0, 0, false
		}
	}
	if !haveV0 {
		v0 = ev.Undef
	}
	if !haveV1 {
		v1 = ev.Undef
	}
	return v0, v1, true
}

// Render substitutes v0/v1 into p's placeholder positions and returns the
// resulting wire message.
func (p *Pattern) Render(v0, v1 int) []byte {
	out := make([]byte, len(p.Fixed))
	copy(out, p.Fixed)
	for i, slot := range p.Slots {
		switch slot {
		case V0Hi:
			out[i] = byte((v0 >> 7) & 0x7f)
		case V0Lo:
			out[i] = byte(v0 & 0x7f)
		case V1Hi:
			out[i] = byte((v1 >> 7) & 0x7f)
		case V1Lo:
			out[i] = byte(v1 & 0x7f)
		}
	}
	return out
}

// Bank is an ordered collection of SysEx messages bound to one
// device, as stored in a songsx block (§6.3).
type Bank struct {
	Unit     int
	Messages []*SysEx
}

// NewBank returns an empty Bank for the given device.
func NewBank(unit int) *Bank {
	return &Bank{Unit: unit}
}

// ScanPrefix returns the indices of every message in b whose bytes begin
// with prefix, for bulk operations like "remove all messages starting with
// this manufacturer ID" (§4.6).
func (b *Bank) ScanPrefix(prefix []byte) []int {
	var hits []int
	for i, m := range b.Messages {
		bs := m.Bytes()
		if len(bs) < len(prefix) {
			continue
		}
		match := true
		for j, want := range prefix {
			if bs[j] != want {
				match = false
				break
			}
		}
		if match {
			hits = append(hits, i)
		}
	}
	return hits
}

// RemoveAt deletes the message at index i.
func (b *Bank) RemoveAt(i int) {
	b.Messages = append(b.Messages[:i], b.Messages[i+1:]...)
}
