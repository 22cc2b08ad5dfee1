package sysex

import (
	"bytes"
	"testing"
)

func TestPutAndBytesRoundTrip(t *testing.T) {
	s := New(0)
	msg := []byte{0xf0, 0x41, 0x10, 0x42, 0x12, 0xf7}
	for _, b := range msg {
		s.Put(b)
	}
	if !bytes.Equal(s.Bytes(), msg) {
		t.Errorf("Bytes() = %x, want %x", s.Bytes(), msg)
	}
	if s.Len() != len(msg) {
		t.Errorf("Len() = %d, want %d", s.Len(), len(msg))
	}
}

func TestPutSpansMultipleChunks(t *testing.T) {
	s := New(0)
	for i := 0; i < chunkSize*3+5; i++ {
		s.Put(byte(i % 128))
	}
	if s.Len() != chunkSize*3+5 {
		t.Errorf("Len() = %d, want %d", s.Len(), chunkSize*3+5)
	}
	out := s.Bytes()
	for i := 0; i < len(out); i++ {
		if out[i] != byte(i%128) {
			t.Fatalf("byte %d = %x, want %x", i, out[i], byte(i%128))
		}
	}
}

func TestWellFormedRequiresFraming(t *testing.T) {
	s := New(0)
	s.Put(0x41)
	if s.WellFormed() {
		t.Error("unframed message should not be well-formed")
	}
	s2 := New(0)
	for _, b := range []byte{0xf0, 0x41, 0xf7} {
		s2.Put(b)
	}
	if !s2.WellFormed() {
		t.Error("0xf0...0xf7 framed message should be well-formed")
	}
}

func TestPatternMatchAndRender(t *testing.T) {
	p := NewPattern("test", []byte{0xf0, 0x41, 0, 0, 0xf7}, map[int]Placeholder{
		2: V0Lo,
		3: V1Lo,
	})

	v0, v1, ok := p.Match([]byte{0xf0, 0x41, 5, 9, 0xf7})
	if !ok || v0 != 5 || v1 != 9 {
		t.Fatalf("Match() = v0=%d v1=%d ok=%v, want 5,9,true", v0, v1, ok)
	}

	rendered := p.Render(5, 9)
	want := []byte{0xf0, 0x41, 5, 9, 0xf7}
	if !bytes.Equal(rendered, want) {
		t.Errorf("Render() = %x, want %x", rendered, want)
	}
}

func TestPatternMatchRejectsFixedByteMismatch(t *testing.T) {
	p := NewPattern("test", []byte{0xf0, 0x41, 0, 0xf7}, map[int]Placeholder{2: V0Lo})

	if _, _, ok := p.Match([]byte{0xf0, 0x42, 5, 0xf7}); ok {
		t.Error("mismatched manufacturer byte should not match")
	}
	if _, _, ok := p.Match([]byte{0xf0, 0x41, 5}); ok {
		t.Error("wrong-length message should not match")
	}
}

func TestPattern14BitParameterViaHiLoPlaceholders(t *testing.T) {
	p := NewPattern("wide", []byte{0xf0, 0, 0, 0xf7}, map[int]Placeholder{
		1: V0Hi,
		2: V0Lo,
	})

	v0, v1, ok := p.Match([]byte{0xf0, 10, 50, 0xf7})
	if !ok || v0 != (10<<7)|50 || v1 != -1 {
		t.Fatalf("Match() = v0=%d v1=%d ok=%v", v0, v1, ok)
	}
}

func TestBankScanPrefixFindsMatches(t *testing.T) {
	b := NewBank(0)
	for _, bytesMsg := range [][]byte{
		{0xf0, 0x41, 0x01, 0xf7},
		{0xf0, 0x42, 0x02, 0xf7},
		{0xf0, 0x41, 0x03, 0xf7},
	} {
		s := New(0)
		for _, bb := range bytesMsg {
			s.Put(bb)
		}
		b.Messages = append(b.Messages, s)
	}

	hits := b.ScanPrefix([]byte{0xf0, 0x41})
	if len(hits) != 2 || hits[0] != 0 || hits[1] != 2 {
		t.Errorf("ScanPrefix() = %v, want [0 2]", hits)
	}
}

func TestBankRemoveAt(t *testing.T) {
	b := NewBank(0)
	b.Messages = []*SysEx{New(0), New(0), New(0)}
	b.RemoveAt(1)
	if len(b.Messages) != 2 {
		t.Errorf("len = %d, want 2", len(b.Messages))
	}
}
