// Package convert implements the bidirectional mapping between raw CC/PC
// sequences and the logical 14-bit events they stand for (§4.2): XCTL
// (coarse/fine controller pairs), XPC (bank-select + program change), and
// RPN/NRPN (parameter-register + data-entry sequences). Each device/channel
// gets its own Converter tracking the in-flight sequence.
package convert

import "github.com/ratchov/midish-sub000/pkg/ev"

const (
	ccBankMSB  = 0
	ccBankLSB  = 32
	ccRPNMSB   = 101
	ccRPNLSB   = 100
	ccNRPNMSB  = 99
	ccNRPNLSB  = 98
	ccDataMSB  = 6
	ccDataLSB  = 38
	ccXCtlSpan = 32 // CC N's fine counterpart is CC N+32, for N in [0,31]
)

// regKind distinguishes which register (if any) the last-seen 101/100 or
// 99/98 pair selected.
type regKind int

const (
	regNone regKind = iota
	regRPN
	regNRPN
)

// Converter tracks one (dev, ch) pair's in-flight grouped sequences. Which
// CC numbers are grouped into XCTL is configuration, not protocol — a
// coarse CC with no enabled binding always passes through raw (§4.2).
type Converter struct {
	xctlFine    [ccXCtlSpan]int // last-seen fine (LSB) value per coarse CC number, or ev.Undef
	xctlEnabled [ccXCtlSpan]bool

	bankMSB int // ev.Undef if not yet seen since last PC/reset
	bankLSB int

	reg     regKind
	regNum  int
	dataMSB int
}

// New returns a Converter with no in-flight state and no XCTL bindings
// enabled.
func New() *Converter {
	c := &Converter{bankMSB: ev.Undef, bankLSB: ev.Undef, dataMSB: ev.Undef}
	for i := range c.xctlFine {
		c.xctlFine[i] = ev.Undef
	}
	return c
}

// EnableXCTL turns on coarse/fine grouping for controller number num
// (0..31); its fine counterpart is num+32.
func (c *Converter) EnableXCTL(num int) {
	if num >= 0 && num < ccXCtlSpan {
		c.xctlEnabled[num] = true
	}
}

// DisableXCTL turns coarse/fine grouping back off for num, so both halves
// pass through as raw CTL events again.
func (c *Converter) DisableXCTL(num int) {
	if num >= 0 && num < ccXCtlSpan {
		c.xctlEnabled[num] = false
	}
}

// Unpack consumes one incoming voice event and returns the logical events it
// produces: zero if it was absorbed into an in-flight sequence, one if it
// completes a grouped event (or the event needed no grouping at all).
func (c *Converter) Unpack(e ev.Event) []ev.Event {
	switch e.Kind {
	case ev.CTL:
		return c.unpackCTL(e)
	case ev.PC:
		return c.unpackPC(e)
	default:
		return []ev.Event{e}
	}
}

func (c *Converter) unpackCTL(e ev.Event) []ev.Event {
	num, val := e.V0, e.V1

	switch num {
	case ccBankMSB:
		c.bankMSB = val
		return nil
	case ccBankLSB:
		c.bankLSB = val
		return nil
	case ccRPNMSB:
		c.reg, c.regNum, c.dataMSB = regRPN, (c.regNum&0x7f)|(val<<7), ev.Undef
		return nil
	case ccRPNLSB:
		c.reg, c.regNum, c.dataMSB = regRPN, (c.regNum&^0x7f)|val, ev.Undef
		return nil
	case ccNRPNMSB:
		c.reg, c.regNum, c.dataMSB = regNRPN, (c.regNum&0x7f)|(val<<7), ev.Undef
		return nil
	case ccNRPNLSB:
		c.reg, c.regNum, c.dataMSB = regNRPN, (c.regNum&^0x7f)|val, ev.Undef
		return nil
	case ccDataMSB:
		if c.reg == regNone {
			return []ev.Event{e}
		}
		c.dataMSB = val
		return nil
	case ccDataLSB:
		if c.reg == regNone || c.dataMSB == ev.Undef {
			return []ev.Event{e}
		}
		full := (c.dataMSB << 7) | val
		kind := ev.RPN
		if c.reg == regNRPN {
			kind = ev.NRPN
		}
		c.dataMSB = ev.Undef
		return []ev.Event{ev.New(kind, e.Dev, e.Ch, c.regNum, full)}
	}

	if num < ccXCtlSpan && c.xctlEnabled[num] {
		lsb := c.xctlFine[num]
		if lsb == ev.Undef {
			lsb = 0
		}
		c.xctlFine[num] = ev.Undef
		return []ev.Event{ev.New(ev.XCTL, e.Dev, e.Ch, num, (val<<7)|lsb)}
	}
	if num >= ccXCtlSpan && num < 2*ccXCtlSpan && c.xctlEnabled[num-ccXCtlSpan] {
		coarse := num - ccXCtlSpan
		c.xctlFine[coarse] = val
		return nil
	}
	return []ev.Event{e}
}

func (c *Converter) unpackPC(e ev.Event) []ev.Event {
	if c.bankMSB == ev.Undef && c.bankLSB == ev.Undef {
		return []ev.Event{e}
	}
	bank := ev.Undef
	if c.bankMSB != ev.Undef || c.bankLSB != ev.Undef {
		msb, lsb := c.bankMSB, c.bankLSB
		if msb == ev.Undef {
			msb = 0
		}
		if lsb == ev.Undef {
			lsb = 0
		}
		bank = (msb << 7) | lsb
	}
	c.bankMSB, c.bankLSB = ev.Undef, ev.Undef
	return []ev.Event{ev.New(ev.XPC, e.Dev, e.Ch, bank, e.V0)}
}

// PackXCTL expands a 14-bit controller event into coarse CC (and, unless the
// low 7 bits of the value are zero, a fine CC) wire messages.
func PackXCTL(e ev.Event) []ev.Event {
	num, val := e.V0, e.V1
	coarse := ev.New(ev.CTL, e.Dev, e.Ch, num, val>>7)
	if val&0x7f == 0 {
		return []ev.Event{coarse}
	}
	fine := ev.New(ev.CTL, e.Dev, e.Ch, num+ccXCtlSpan, val&0x7f)
	return []ev.Event{coarse, fine}
}

// PackXPC expands a bank+program event into bank-select MSB/LSB CCs
// followed by Program Change, or just Program Change if bank is ev.Undef.
func PackXPC(e ev.Event) []ev.Event {
	if e.V0 == ev.Undef {
		return []ev.Event{ev.New(ev.PC, e.Dev, e.Ch, e.V1, ev.Undef)}
	}
	msb, lsb := (e.V0>>7)&0x7f, e.V0&0x7f
	return []ev.Event{
		ev.New(ev.CTL, e.Dev, e.Ch, ccBankMSB, msb),
		ev.New(ev.CTL, e.Dev, e.Ch, ccBankLSB, lsb),
		ev.New(ev.PC, e.Dev, e.Ch, e.V1, ev.Undef),
	}
}

// PackRPN expands an RPN/NRPN event into its register-select and
// data-entry CC pairs.
func PackRPN(e ev.Event) []ev.Event {
	msbCC, lsbCC := ccRPNMSB, ccRPNLSB
	if e.Kind == ev.NRPN {
		msbCC, lsbCC = ccNRPNMSB, ccNRPNLSB
	}
	return []ev.Event{
		ev.New(ev.CTL, e.Dev, e.Ch, msbCC, (e.V0>>7)&0x7f),
		ev.New(ev.CTL, e.Dev, e.Ch, lsbCC, e.V0&0x7f),
		ev.New(ev.CTL, e.Dev, e.Ch, ccDataMSB, (e.V1>>7)&0x7f),
		ev.New(ev.CTL, e.Dev, e.Ch, ccDataLSB, e.V1&0x7f),
	}
}
