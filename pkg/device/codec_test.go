package device

import (
	"testing"

	"github.com/ratchov/midish-sub000/pkg/ev"
)

func feedAll(p *Parser, bytes ...byte) []Message {
	var out []Message
	for _, b := range bytes {
		out = append(out, p.Feed(b)...)
	}
	return out
}

func TestNoteOnDecodesTwoDataBytes(t *testing.T) {
	p := NewParser(0)
	msgs := feedAll(p, 0x90, 60, 100)
	if len(msgs) != 1 || msgs[0].Event != ev.New(ev.NON, 0, 0, 60, 100) {
		t.Fatalf("got %+v", msgs)
	}
}

func TestNoteOnVelocityZeroBecomesNoteOff(t *testing.T) {
	p := NewParser(0)
	msgs := feedAll(p, 0x90, 60, 0)
	if len(msgs) != 1 || msgs[0].Event != ev.New(ev.NOFF, 0, 0, 60, 64) {
		t.Fatalf("got %+v, want noff velocity 64", msgs)
	}
}

func TestRunningStatusReusesLastStatusByte(t *testing.T) {
	p := NewParser(0)
	msgs := feedAll(p, 0x90, 60, 100, 61, 90, 62, 80)
	if len(msgs) != 3 {
		t.Fatalf("got %d messages via running status, want 3: %+v", len(msgs), msgs)
	}
	if msgs[2].Event != ev.New(ev.NON, 0, 0, 62, 80) {
		t.Errorf("got %+v", msgs[2].Event)
	}
}

func TestStatusByteMidSysexAbortsIt(t *testing.T) {
	p := NewParser(0)
	msgs := feedAll(p, 0xF0, 0x43, 0x10, 0x90, 60, 100)
	if len(msgs) != 1 || msgs[0].Event.Kind != ev.NON {
		t.Fatalf("got %+v, want the sysex dropped and a note-on decoded", msgs)
	}
}

func TestWellFormedSysexIsDelivered(t *testing.T) {
	p := NewParser(2)
	msgs := feedAll(p, 0xF0, 0x43, 0x10, 0x4C, 0xF7)
	if len(msgs) != 1 || msgs[0].Event.Kind != ev.SYSEX {
		t.Fatalf("got %+v", msgs)
	}
	want := []byte{0xF0, 0x43, 0x10, 0x4C, 0xF7}
	if string(msgs[0].Raw) != string(want) {
		t.Errorf("raw = %x, want %x", msgs[0].Raw, want)
	}
	if msgs[0].Event.Dev != 2 {
		t.Errorf("dev = %d, want 2", msgs[0].Event.Dev)
	}
}

func TestBareF7WithNoSysexInProgressIsIgnored(t *testing.T) {
	p := NewParser(0)
	msgs := feedAll(p, 0xF7)
	if len(msgs) != 0 {
		t.Errorf("got %+v, want no messages", msgs)
	}
}

func TestRealtimeBytesDoNotDisturbRunningStatus(t *testing.T) {
	p := NewParser(0)
	msgs := feedAll(p, 0x90, 60, 100, 0xF8, 61, 90)
	if len(msgs) != 3 {
		t.Fatalf("got %+v, want tic plus two note-ons via running status", msgs)
	}
	if msgs[1].Event.Kind != ev.TIC {
		t.Errorf("got %+v at index 1, want TIC", msgs[1].Event)
	}
	if msgs[2].Event != ev.New(ev.NON, 0, 0, 61, 90) {
		t.Errorf("got %+v", msgs[2].Event)
	}
}

func TestBendCombinesDataBytesAs14Bit(t *testing.T) {
	p := NewParser(0)
	msgs := feedAll(p, 0xE0, 0x7F, 0x01) // lsb=0x7F, msb=0x01 -> (1<<7)|0x7F = 255
	if len(msgs) != 1 || msgs[0].Event.V0 != 255 {
		t.Fatalf("got %+v", msgs)
	}
}

func TestDataByteBeforeAnyStatusIsIgnored(t *testing.T) {
	p := NewParser(0)
	msgs := feedAll(p, 60, 100, 0x90, 60, 100)
	if len(msgs) != 1 {
		t.Fatalf("got %+v, want only the well-formed message", msgs)
	}
}

func TestSerializerCompressesRunningStatus(t *testing.T) {
	s := NewSerializer()
	b1 := s.Write(ev.New(ev.NON, 0, 0, 60, 100), nil)
	b2 := s.Write(ev.New(ev.NON, 0, 0, 61, 90), nil)
	if len(b1) != 3 {
		t.Fatalf("first message = %x, want status+2 data bytes", b1)
	}
	if len(b2) != 2 {
		t.Fatalf("second message = %x, want running status to drop the status byte", b2)
	}
}

func TestSerializerReemitsStatusAfterChannelChange(t *testing.T) {
	s := NewSerializer()
	s.Write(ev.New(ev.NON, 0, 0, 60, 100), nil)
	b := s.Write(ev.New(ev.NON, 0, 1, 60, 100), nil)
	if len(b) != 3 {
		t.Fatalf("got %x, want a fresh status byte for the new channel", b)
	}
}

func TestSerializerDecodeRoundTrip(t *testing.T) {
	s := NewSerializer()
	p := NewParser(0)
	want := []ev.Event{
		ev.New(ev.NON, 0, 0, 60, 100),
		ev.New(ev.CTL, 0, 0, 7, 64),
		ev.New(ev.NOFF, 0, 0, 60, 64),
	}
	var got []ev.Event
	for _, e := range want {
		for _, b := range s.Write(e, nil) {
			for _, m := range p.Feed(b) {
				got = append(got, m.Event)
			}
		}
	}
	if len(got) != len(want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestSysexResetsRunningStatus(t *testing.T) {
	s := NewSerializer()
	s.Write(ev.New(ev.NON, 0, 0, 60, 100), nil)
	s.Write(ev.New(ev.SYSEX, 0, 0, 5, ev.Undef), []byte{0xF0, 0x00, 0xF7})
	b := s.Write(ev.New(ev.NON, 0, 0, 60, 100), nil)
	if len(b) != 3 {
		t.Errorf("got %x, want running status reset after sysex forcing a fresh status byte", b)
	}
}

func TestSilentTicksResetsOnByte(t *testing.T) {
	p := NewParser(0)
	p.Tick()
	p.Tick()
	if p.SilentTicks() != 2 {
		t.Fatalf("got %d, want 2", p.SilentTicks())
	}
	p.Feed(0xF8)
	if p.SilentTicks() != 0 {
		t.Errorf("got %d, want reset to 0 after a byte arrives", p.SilentTicks())
	}
}
