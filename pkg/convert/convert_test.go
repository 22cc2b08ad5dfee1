package convert

import (
	"testing"

	"github.com/ratchov/midish-sub000/pkg/ev"
)

func feed(c *Converter, events ...ev.Event) []ev.Event {
	var out []ev.Event
	for _, e := range events {
		out = append(out, c.Unpack(e)...)
	}
	return out
}

// S1 — CC grouping: bank-select MSB/LSB followed by Program Change yields
// one XPC.
func TestScenarioS1CCGrouping(t *testing.T) {
	c := New()
	out := feed(c,
		ev.New(ev.CTL, 0, 0, 0, 0),
		ev.New(ev.CTL, 0, 0, 32, 5),
		ev.New(ev.PC, 0, 0, 7, ev.Undef),
	)
	if len(out) != 1 {
		t.Fatalf("got %d events, want 1: %v", len(out), out)
	}
	want := ev.New(ev.XPC, 0, 0, 5, 7)
	if out[0] != want {
		t.Errorf("= %v, want %v", out[0], want)
	}
}

// S2 — RPN: register-select MSB/LSB then data-entry MSB/LSB yields one RPN.
func TestScenarioS2RPN(t *testing.T) {
	c := New()
	out := feed(c,
		ev.New(ev.CTL, 0, 0, 101, 0),
		ev.New(ev.CTL, 0, 0, 100, 0),
		ev.New(ev.CTL, 0, 0, 6, 2),
		ev.New(ev.CTL, 0, 0, 38, 0),
	)
	if len(out) != 1 {
		t.Fatalf("got %d events, want 1: %v", len(out), out)
	}
	want := ev.New(ev.RPN, 0, 0, 0, 256)
	if out[0] != want {
		t.Errorf("= %v, want %v", out[0], want)
	}
}

func TestNRPNGrouping(t *testing.T) {
	c := New()
	out := feed(c,
		ev.New(ev.CTL, 0, 0, 99, 1),
		ev.New(ev.CTL, 0, 0, 98, 10),
		ev.New(ev.CTL, 0, 0, 6, 0),
		ev.New(ev.CTL, 0, 0, 38, 64),
	)
	if len(out) != 1 {
		t.Fatalf("got %d events, want 1: %v", len(out), out)
	}
	want := ev.New(ev.NRPN, 0, 0, (1<<7)|10, 64)
	if out[0] != want {
		t.Errorf("= %v, want %v", out[0], want)
	}
}

func TestPlainCCPassesThroughWithoutBankSelect(t *testing.T) {
	c := New()
	e := ev.New(ev.CTL, 0, 0, 7, 100)
	out := c.Unpack(e)
	if len(out) != 1 || out[0] != e {
		t.Errorf("plain CC = %v, want passthrough of %v", out, e)
	}
}

func TestXCTLUnpackUsesLastSeenFineValue(t *testing.T) {
	c := New()
	c.EnableXCTL(7)
	// fine half arrives first (out of order), then coarse triggers emission
	out := feed(c,
		ev.New(ev.CTL, 0, 0, 7+ccXCtlSpan, 50),
		ev.New(ev.CTL, 0, 0, 7, 1),
	)
	if len(out) != 1 {
		t.Fatalf("got %d events, want 1: %v", len(out), out)
	}
	want := ev.New(ev.XCTL, 0, 0, 7, (1<<7)|50)
	if out[0] != want {
		t.Errorf("= %v, want %v", out[0], want)
	}
}

func TestXCTLDisabledCCPassesThroughRaw(t *testing.T) {
	c := New()
	e := ev.New(ev.CTL, 0, 0, 7, 1)
	out := c.Unpack(e)
	if len(out) != 1 || out[0] != e {
		t.Errorf("= %v, want passthrough of %v (XCTL not enabled for CC7)", out, e)
	}
}

func TestPackXCTLSplitsCoarseAndFine(t *testing.T) {
	e := ev.New(ev.XCTL, 0, 0, 7, (10<<7)|50)
	out := PackXCTL(e)
	if len(out) != 2 {
		t.Fatalf("got %d messages, want 2: %v", len(out), out)
	}
	if out[0].V0 != 7 || out[0].V1 != 10 {
		t.Errorf("coarse = %v, want CC7=10", out[0])
	}
	if out[1].V0 != 7+ccXCtlSpan || out[1].V1 != 50 {
		t.Errorf("fine = %v, want CC39=50", out[1])
	}
}

func TestPackXCTLSuppressesFineWhenValueFits7Bits(t *testing.T) {
	e := ev.New(ev.XCTL, 0, 0, 7, 10<<7) // exact multiple of 128: fine half is 0
	out := PackXCTL(e)
	if len(out) != 1 {
		t.Fatalf("got %d messages, want 1 (fine suppressed): %v", len(out), out)
	}
}

func TestPackXPCOmitsBankWhenUndef(t *testing.T) {
	e := ev.New(ev.XPC, 0, 0, ev.Undef, 5)
	out := PackXPC(e)
	if len(out) != 1 || out[0].Kind != ev.PC || out[0].V0 != 5 {
		t.Errorf("= %v, want single PC(5)", out)
	}
}

func TestPackRPNRoundTripsThroughUnpack(t *testing.T) {
	orig := ev.New(ev.RPN, 0, 3, 42, 1000)
	wire := PackRPN(orig)

	c := New()
	out := feed(c, wire...)
	if len(out) != 1 || out[0] != orig {
		t.Errorf("round trip = %v, want %v", out, orig)
	}
}
