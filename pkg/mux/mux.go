package mux

import (
	"github.com/ratchov/midish-sub000/pkg/device"
	"github.com/ratchov/midish-sub000/pkg/ev"
)

// DeviceSlot bundles one device's backend with its per-device codec state
// and clock-broadcast flags (sendclk/sendmmc, §4.1).
type DeviceSlot struct {
	Backend    device.Backend
	Parser     *device.Parser
	Serializer *device.Serializer
	SendClock  bool // forward TIC bytes when this mux is clock master
	SendMMC    bool // forward START/STOP bytes
	ClockRx    bool // this device's incoming TIC/START/STOP drive the clock
}

// TickFunc advances one source by a single tick, returning whatever voice
// events it wants to emit this tick (already filtered; mux only arbitrates
// and serializes). Implemented by song for each track and for direct user
// input.
type TickFunc func() []ev.Event

// Write is one device's worth of serialized output bytes produced by a
// single Tick call.
type Write struct {
	Dev   int
	Bytes []byte
}

// WinLog records a mixout takeover (§4.7's "wins" log).
type WinLog struct {
	Class     ev.Class
	NewSource SourceID
	OldSource SourceID
}

// Mux is the single-threaded cooperative scheduler (§4.8). It owns no
// goroutines and blocks nowhere: Tick is called once per elapsed tick
// (driven by the caller's own poll/timer loop, whether a real OS select or
// — in the common case of this implementation — a deterministic test
// driver), matching the run loop's per-tick algorithm without the run
// loop's blocking I/O wait, which belongs to whatever embeds Mux.
type Mux struct {
	devices []*DeviceSlot
	sources []TickFunc
	mix     *Mixout
	clock   *Clock
	wins    []WinLog
}

// New returns an empty, stopped Mux.
func New() *Mux {
	return &Mux{mix: NewMixout(), clock: NewClock()}
}

// Clock returns the mux's transport clock, for tempo/slaving configuration.
func (m *Mux) Clock() *Clock { return m.clock }

// AddDevice registers a device slot and returns its device index, the same
// index events address via Event.Dev.
func (m *Mux) AddDevice(d *DeviceSlot) int {
	m.devices = append(m.devices, d)
	return len(m.devices) - 1
}

// AddSource registers a tick-driven event producer and returns its
// SourceID for Mixout bookkeeping and the wins log.
func (m *Mux) AddSource(f TickFunc) SourceID {
	m.sources = append(m.sources, f)
	return SourceID(len(m.sources) - 1)
}

// DrainInput feeds raw bytes read from device dev's backend through its
// parser, invoking onInput for each decoded Message (step 1 of §4.8's
// per-tick algorithm).
func (m *Mux) DrainInput(dev int, raw []byte, onInput func(devIdx int, msg device.Message)) {
	if dev < 0 || dev >= len(m.devices) {
		return
	}
	slot := m.devices[dev]
	for _, b := range raw {
		for _, msg := range slot.Parser.Feed(b) {
			if msg.Event.Kind == ev.TIC && slot.ClockRx {
				m.clock.HandleIncomingTic()
			}
			if msg.Event.Kind == ev.START && slot.ClockRx {
				m.clock.HandleIncomingStart()
			}
			if msg.Event.Kind == ev.STOP && slot.ClockRx {
				m.clock.HandleIncomingStop()
			}
			if onInput != nil {
				onInput(dev, msg)
			}
		}
	}
}

// Tick runs one full scheduling step: advance every registered source,
// arbitrate their output through Mixout, serialize the survivors to their
// target device, and broadcast a TIC to clock-tx devices if this mux is
// the clock master (§4.8 steps 2-3). It returns the bytes each device
// should now be sent.
func (m *Mux) Tick() []Write {
	var writes []Write

	for i, f := range m.sources {
		for _, e := range f() {
			ok, won, prev := m.mix.Process(SourceID(i), e)
			if won {
				m.wins = append(m.wins, WinLog{Class: ev.ClassOf(e), NewSource: SourceID(i), OldSource: prev})
			}
			if !ok {
				continue
			}
			m.emit(e, &writes)
		}
	}

	if m.clock.IsMaster() {
		tic := ev.New(ev.TIC, 0, 0, ev.Undef, ev.Undef)
		for i, slot := range m.devices {
			if slot.SendClock {
				writes = append(writes, Write{Dev: i, Bytes: slot.Serializer.Write(tic, nil)})
			}
		}
	}

	return writes
}

func (m *Mux) emit(e ev.Event, writes *[]Write) {
	if e.Dev < 0 || e.Dev >= len(m.devices) {
		return
	}
	slot := m.devices[e.Dev]
	if b := slot.Serializer.Write(e, nil); b != nil {
		*writes = append(*writes, Write{Dev: e.Dev, Bytes: b})
	}
}

// Wins returns and clears the accumulated mixout takeover log.
func (m *Mux) Wins() []WinLog {
	w := m.wins
	m.wins = nil
	return w
}

// Panic sends all-notes-off and reset-all-controllers to every channel of
// every device and clears mixout ownership, per §4.8's abort protocol.
func (m *Mux) Panic() []Write {
	var writes []Write
	for i, slot := range m.devices {
		for ch := 0; ch < 16; ch++ {
			allOff := ev.New(ev.CTL, i, ch, 123, 0)
			resetCtl := ev.New(ev.CTL, i, ch, 121, 0)
			writes = append(writes, Write{Dev: i, Bytes: slot.Serializer.Write(allOff, nil)})
			writes = append(writes, Write{Dev: i, Bytes: slot.Serializer.Write(resetCtl, nil)})
		}
	}
	m.mix.Reset()
	return writes
}
