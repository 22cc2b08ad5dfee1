// Package ev defines the tagged-union MIDI event representation (§3.1) and
// the EvSpec matcher over it (§3.2). Every other core package builds on
// these two types.
package ev

import "sync"

// Kind tags the logical type of an Event. The built-in kinds are declared
// below; user-defined sysex patterns (PAT0..PATn, §3.1) are registered at
// runtime via RegisterPattern and receive Kind values starting at patBase.
type Kind int

const (
	NOFF Kind = iota
	NON
	KAT
	CTL
	PC
	CAT
	BEND
	XCTL
	XPC
	RPN
	NRPN
	TEMPO
	TIMESIG
	TIC
	START
	STOP
	SYSEX
	NULL

	patBase Kind = 1000 // first dynamically registered pattern kind
)

// Undef is the sentinel value for an unspecified 14-bit parameter, e.g. the
// bank half of an XPC that only carries a program change.
const Undef = -1

// Descriptor is the static (or, for patterns, registered) per-kind
// metadata that Event validation, EvSpec cardinality and the converter
// consult: the number of meaningful parameters, their ranges, and whether
// the kind carries a (dev, ch) pair.
type Descriptor struct {
	Name     string
	NParams  int  // 0, 1 or 2 — how many of V0/V1 are meaningful
	V0Max    int  // inclusive upper bound for V0 (lower bound is always 0, or Undef)
	V1Max    int  // inclusive upper bound for V1
	HasDev   bool // event carries a device index
	HasCh    bool // event carries a channel number (implies HasDev)
	Voice    bool // channel-scoped voice message — subject to note/controller State tracking
	V0Undef  bool // V0 may legitimately be Undef (e.g. XPC bank)
	V1Undef  bool
}

var registry = struct {
	sync.RWMutex
	m      map[Kind]Descriptor
	names  map[string]Kind
	nextID Kind
}{
	m:      map[Kind]Descriptor{},
	names:  map[string]Kind{},
	nextID: patBase,
}

func static(k Kind, d Descriptor) {
	registry.m[k] = d
	registry.names[d.Name] = k
}

func init() {
	static(NOFF, Descriptor{Name: "noff", NParams: 2, V0Max: 127, V1Max: 127, HasDev: true, HasCh: true, Voice: true})
	static(NON, Descriptor{Name: "non", NParams: 2, V0Max: 127, V1Max: 127, HasDev: true, HasCh: true, Voice: true})
	static(KAT, Descriptor{Name: "kat", NParams: 2, V0Max: 127, V1Max: 127, HasDev: true, HasCh: true, Voice: true})
	static(CTL, Descriptor{Name: "ctl", NParams: 2, V0Max: 127, V1Max: 127, HasDev: true, HasCh: true, Voice: true})
	static(PC, Descriptor{Name: "pc", NParams: 1, V0Max: 127, V1Max: 0, HasDev: true, HasCh: true, Voice: true})
	static(CAT, Descriptor{Name: "cat", NParams: 1, V0Max: 127, V1Max: 0, HasDev: true, HasCh: true, Voice: true})
	static(BEND, Descriptor{Name: "bend", NParams: 1, V0Max: 16383, V1Max: 0, HasDev: true, HasCh: true, Voice: true})
	static(XCTL, Descriptor{Name: "xctl", NParams: 2, V0Max: 127, V1Max: 16383, HasDev: true, HasCh: true, Voice: true})
	static(XPC, Descriptor{Name: "xpc", NParams: 2, V0Max: 16383, V1Max: 127, HasDev: true, HasCh: true, Voice: true, V0Undef: true})
	static(RPN, Descriptor{Name: "rpn", NParams: 2, V0Max: 16383, V1Max: 16383, HasDev: true, HasCh: true, Voice: true})
	static(NRPN, Descriptor{Name: "nrpn", NParams: 2, V0Max: 16383, V1Max: 16383, HasDev: true, HasCh: true, Voice: true})
	static(TEMPO, Descriptor{Name: "tempo", NParams: 1, V0Max: 16777215, V1Max: 0})
	static(TIMESIG, Descriptor{Name: "timesig", NParams: 2, V0Max: 16, V1Max: 240})
	static(TIC, Descriptor{Name: "tic", NParams: 0, HasDev: true})
	static(START, Descriptor{Name: "start", NParams: 0, HasDev: true})
	static(STOP, Descriptor{Name: "stop", NParams: 0, HasDev: true})
	static(SYSEX, Descriptor{Name: "sysex", NParams: 1, V0Max: int(^uint(0) >> 1), HasDev: true})
	static(NULL, Descriptor{Name: "null"})
}

// Info returns the descriptor for k, or false if k is unknown.
func Info(k Kind) (Descriptor, bool) {
	registry.RLock()
	defer registry.RUnlock()
	d, ok := registry.m[k]
	return d, ok
}

// ByName looks up a kind (built-in or registered pattern) by its token
// name, as used by the on-disk format and command dispatcher.
func ByName(name string) (Kind, bool) {
	registry.RLock()
	defer registry.RUnlock()
	k, ok := registry.names[name]
	return k, ok
}

// RegisterPattern allocates a new PATx kind for a user-defined sysex
// pattern (§3.1, §4.6) and records its descriptor. Patterns are always
// device-scoped; whether they carry a channel and the exact parameter
// ranges come from the placeholder nibble widths bound in the template,
// supplied by the caller (the sysex package).
func RegisterPattern(name string, d Descriptor) Kind {
	registry.Lock()
	defer registry.Unlock()
	k := registry.nextID
	registry.nextID++
	d.Name = name
	registry.m[k] = d
	registry.names[name] = k
	return k
}

// IsPattern reports whether k is a user-defined sysex pattern kind.
func IsPattern(k Kind) bool { return k >= patBase }
