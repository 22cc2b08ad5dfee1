// Package song implements the Song aggregate (§3.8) and its orchestration:
// the mode state machine, playback pipeline and recording pipeline (§4.9).
package song

import (
	"sort"

	"github.com/ratchov/midish-sub000/pkg/arena"
	"github.com/ratchov/midish-sub000/pkg/convert"
	"github.com/ratchov/midish-sub000/pkg/errs"
	"github.com/ratchov/midish-sub000/pkg/ev"
	"github.com/ratchov/midish-sub000/pkg/filter"
	"github.com/ratchov/midish-sub000/pkg/frame"
	"github.com/ratchov/midish-sub000/pkg/sysex"
	"github.com/ratchov/midish-sub000/pkg/track"
	"github.com/ratchov/midish-sub000/pkg/undo"
)

// maxObjects bounds each named-object arena, mirroring the compile-time
// pool capacities §3.9 assumes for every owned object kind.
const maxObjects = 4096

// Channel binds a device/channel pair to an optional input filter, the
// unit of "where does this track's output go, and how is input for this
// channel normalized" (§3.8, §4.2's per-device XCTL/XPC configuration).
type Channel struct {
	Dev    int
	Ch     int
	Filter *filter.Filter // nil: no channel-local normalization
}

// devCh identifies a (device, channel) pair, the granularity the Converter
// registry and its XCTL configuration are keyed on (§4.2).
type devCh struct{ dev, ch int }

// namedTrack pairs an owned Track with its playback configuration.
type namedTrack struct {
	track  *track.Track
	filt   *filter.Filter // nil: no per-track playback filter
	chan_  string         // bound Channel name, resolved to (dev,ch) at tick time
	muted  bool
	sel    bool // part of the current selection
}

// Song is the process-wide aggregate (§3.8): a meta-track (tempo/time
// signature), N named tracks, channels, filters and sysex banks, plus the
// transport mode and tics-per-unit resolution. The zero value is not
// usable; construct with New.
type Song struct {
	Meta *track.Track // tempo/timesig events, read by playback for the metronome

	tracks   *arena.Arena[*namedTrack]
	byName   map[string]arena.Handle
	order    []string // insertion order, for deterministic iteration/save

	channels map[string]*Channel
	filters  map[string]*filter.Filter
	sysex    map[string]*sysex.Bank

	ticsPerUnit int64
	mode        Mode

	tapEvSpec ev.EvSpec

	// playback session state, live only between startPlayback and
	// stopPlayback (§4.9).
	metaPtr   *track.SeqPtr
	tickCount int64
	metro     *metroState
	metroCfg  Metronome
	playPtrs  map[string]*trackCursor

	// recording session state, live only between StartRecord and
	// finishRecording (§4.9).
	rec         *recording
	inputFilter *filter.Filter

	// converters holds one Converter per (dev,ch) pair that has received
	// input, lazily created by ConverterFor. ixctlset/oxctlset are the
	// per-device coarse-CC grouping bitmasks dixctl/doxctl configure
	// (§4.2, §6.2), applied to every Converter on that device.
	converters map[devCh]*convert.Converter
	ixctlset   map[int]uint32
	oxctlset   map[int]uint32

	undo *undo.Log
}

// Undo reverses the most recent top-level command's edits (§4.10). It
// reports whether there was anything to undo.
func (s *Song) Undo() bool { return s.undo.Pop() }

// UndoLabel returns the label of the group Undo would next reverse.
func (s *Song) UndoLabel() (string, bool) { return s.undo.Peek() }

// New returns an empty Song: no tracks, 96 tics per unit (a quarter
// note), mode OFF.
func New() *Song {
	return &Song{
		Meta:        track.New(),
		tracks:      arena.New[*namedTrack](maxObjects),
		byName:      map[string]arena.Handle{},
		channels:    map[string]*Channel{},
		filters:     map[string]*filter.Filter{},
		sysex:       map[string]*sysex.Bank{},
		ticsPerUnit: 96,
		tapEvSpec:   ev.Any(),
		converters:  map[devCh]*convert.Converter{},
		ixctlset:    map[int]uint32{},
		oxctlset:    map[int]uint32{},
		undo:        undo.New(),
	}
}

// TicsPerUnit returns the current tics-per-unit resolution.
func (s *Song) TicsPerUnit() int64 { return s.ticsPerUnit }

// SetTicsPerUnit changes the resolution; callers that need existing tracks
// rescaled should run frame.Scale on each first (§4.4's scale/tquanta).
func (s *Song) SetTicsPerUnit(n int64) { s.ticsPerUnit = n }

// Rescale changes the tics-per-unit resolution and proportionally
// stretches the meta-track and every track's event positions to match
// (§4.4's scale, §6.2's setunit), as a single undoable step.
func (s *Song) Rescale(newTPU int64) error {
	if err := s.TryMode(ModeIdle); err != nil {
		return err
	}
	oldTPU := s.ticsPerUnit

	s.undo.Do("setunit", func() {
		origMeta := s.Meta
		s.Meta = frame.Scale(s.Meta, oldTPU, newTPU)
		s.undo.Push(undo.NewRecord(undo.TrackDiff, "setunit", func() {
			s.Meta = origMeta
		}))

		for _, name := range s.order {
			name := name
			h := s.byName[name]
			nt, _ := s.tracks.Get(h)
			orig := (*nt).track
			(*nt).track = frame.Scale(orig, oldTPU, newTPU)
			s.undo.Push(undo.NewRecord(undo.TrackDiff, "setunit "+name, func() {
				h := s.byName[name]
				nt, _ := s.tracks.Get(h)
				(*nt).track = orig
			}))
		}

		s.ticsPerUnit = newTPU
		s.undo.Push(undo.NewRecord(undo.SetUint, "setunit", func() {
			s.ticsPerUnit = oldTPU
		}))
	})
	return nil
}

// NewTrack creates an empty named track. It fails with errs.BadArg if the
// name is already in use, and requires mode <= IDLE (§4.9's try_mode). The
// creation is undoable as a single group (§4.10, §8 scenario S6): popping
// it removes the track and restores the prior track-name order.
func (s *Song) NewTrack(name string) error {
	if err := s.TryMode(ModeIdle); err != nil {
		return err
	}
	if _, exists := s.byName[name]; exists {
		return errs.BadArgf("tnew", "track %q already exists", name)
	}
	s.undo.Do("tnew "+name, func() {
		s.insertTrack(name, &namedTrack{track: track.New()}, len(s.order))
		s.undo.Push(undo.NewRecord(undo.DelObj, "tnew "+name, func() {
			s.removeTrack(name)
		}))
	})
	return nil
}

// DelTrack removes a named track. errs.NotFound if it doesn't exist.
// Undoing it recreates the track with its original content, filter,
// channel binding, mute and selection state, at its original position.
func (s *Song) DelTrack(name string) error {
	if err := s.TryMode(ModeIdle); err != nil {
		return err
	}
	h, ok := s.byName[name]
	if !ok {
		return errs.NotFoundf("tdel", "track %q not found", name)
	}
	nt, _ := s.tracks.Get(h)
	saved := *(*nt) // shallow copy: the Track/Filter pointers are preserved as-is, not cloned
	pos := s.trackPos(name)

	s.undo.Do("tdel "+name, func() {
		s.removeTrack(name)
		s.undo.Push(undo.NewRecord(undo.NewObj, "tdel "+name, func() {
			restored := saved
			s.insertTrack(name, &restored, pos)
		}))
	})
	return nil
}

// RenameTrack renames a track in place, preserving its position in Order.
func (s *Song) RenameTrack(oldName, newName string) error {
	if err := s.TryMode(ModeIdle); err != nil {
		return err
	}
	h, ok := s.byName[oldName]
	if !ok {
		return errs.NotFoundf("trename", "track %q not found", oldName)
	}
	if _, exists := s.byName[newName]; exists {
		return errs.BadArgf("trename", "track %q already exists", newName)
	}

	s.undo.Do("trename "+oldName+" "+newName, func() {
		s.renameTrackRaw(oldName, newName, h)
		s.undo.Push(undo.NewRecord(undo.Rename, "trename "+newName+" "+oldName, func() {
			s.renameTrackRaw(newName, oldName, h)
		}))
	})
	return nil
}

func (s *Song) renameTrackRaw(from, to string, h arena.Handle) {
	delete(s.byName, from)
	s.byName[to] = h
	for i, n := range s.order {
		if n == from {
			s.order[i] = to
			break
		}
	}
}

func (s *Song) trackPos(name string) int {
	for i, n := range s.order {
		if n == name {
			return i
		}
	}
	return len(s.order)
}

// insertTrack allocates a fresh arena slot for nt, binds it to name and
// splices name into Order at pos.
func (s *Song) insertTrack(name string, nt *namedTrack, pos int) {
	h := s.tracks.Alloc(nt)
	s.byName[name] = h
	if pos < 0 || pos >= len(s.order) {
		s.order = append(s.order, name)
		return
	}
	s.order = append(s.order, "")
	copy(s.order[pos+1:], s.order[pos:])
	s.order[pos] = name
}

// removeTrack frees name's arena slot and drops it from byName/Order.
func (s *Song) removeTrack(name string) {
	h, ok := s.byName[name]
	if !ok {
		return
	}
	s.tracks.Free(h)
	delete(s.byName, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Track returns the live *track.Track bound to name.
func (s *Song) Track(name string) (*track.Track, bool) {
	h, ok := s.byName[name]
	if !ok {
		return nil, false
	}
	nt, _ := s.tracks.Get(h)
	return (*nt).track, true
}

// ReplaceTrack swaps name's underlying Track wholesale (used by frame
// operations, undo restores and the project/SMF loader).
func (s *Song) ReplaceTrack(name string, t *track.Track) error {
	h, ok := s.byName[name]
	if !ok {
		return errs.NotFoundf("song.replacetrack", "track %q not found", name)
	}
	nt, _ := s.tracks.Get(h)
	(*nt).track = t
	return nil
}

// SetTrackFilter attaches (or, with nil, detaches) a playback filter.
func (s *Song) SetTrackFilter(name string, f *filter.Filter) error {
	h, ok := s.byName[name]
	if !ok {
		return errs.NotFoundf("song.settrackfilter", "track %q not found", name)
	}
	nt, _ := s.tracks.Get(h)
	(*nt).filt = f
	return nil
}

// BindChannel assigns the (dev,ch) output target a track's events route
// to at playback, by channel name (§3.8).
func (s *Song) BindChannel(trackName, channelName string) error {
	h, ok := s.byName[trackName]
	if !ok {
		return errs.NotFoundf("song.bindchannel", "track %q not found", trackName)
	}
	if _, ok := s.channels[channelName]; !ok {
		return errs.NotFoundf("song.bindchannel", "channel %q not found", channelName)
	}
	nt, _ := s.tracks.Get(h)
	(*nt).chan_ = channelName
	return nil
}

// SetMuted mutes or unmutes a track for playback.
func (s *Song) SetMuted(name string, muted bool) error {
	h, ok := s.byName[name]
	if !ok {
		return errs.NotFoundf("song.setmuted", "track %q not found", name)
	}
	nt, _ := s.tracks.Get(h)
	(*nt).muted = muted
	return nil
}

// Muted reports whether a track is currently muted.
func (s *Song) Muted(name string) bool {
	h, ok := s.byName[name]
	if !ok {
		return false
	}
	nt, _ := s.tracks.Get(h)
	return (*nt).muted
}

// SetSelected marks a track as part of the current selection, the
// implicit scope most editing commands default to when no explicit track
// argument is given (§3.8).
func (s *Song) SetSelected(name string, selected bool) error {
	h, ok := s.byName[name]
	if !ok {
		return errs.NotFoundf("song.setselected", "track %q not found", name)
	}
	nt, _ := s.tracks.Get(h)
	(*nt).sel = selected
	return nil
}

// Selection returns the names of every currently selected track, sorted
// for determinism.
func (s *Song) Selection() []string {
	var out []string
	for name, h := range s.byName {
		nt, _ := s.tracks.Get(h)
		if (*nt).sel {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// TrackNames returns every track name in creation order.
func (s *Song) TrackNames() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// NewChannel registers a named (dev,ch) output/input binding.
func (s *Song) NewChannel(name string, dev, ch int) error {
	if err := s.TryMode(ModeIdle); err != nil {
		return err
	}
	if _, exists := s.channels[name]; exists {
		return errs.BadArgf("dnew", "channel %q already exists", name)
	}
	s.channels[name] = &Channel{Dev: dev, Ch: ch}
	return nil
}

// DelChannel removes a named channel binding.
func (s *Song) DelChannel(name string) error {
	if err := s.TryMode(ModeIdle); err != nil {
		return err
	}
	if _, ok := s.channels[name]; !ok {
		return errs.NotFoundf("ddel", "channel %q not found", name)
	}
	delete(s.channels, name)
	return nil
}

// Channel returns the named channel binding.
func (s *Song) Channel(name string) (*Channel, bool) {
	c, ok := s.channels[name]
	return c, ok
}

// ConverterFor returns the Converter normalizing raw CC/PC input on
// (dev,ch) into logical XCTL/XPC/RPN/NRPN events (§4.2), creating one on
// first use with dev's current dixctl configuration already applied.
func (s *Song) ConverterFor(dev, ch int) *convert.Converter {
	key := devCh{dev, ch}
	c, ok := s.converters[key]
	if !ok {
		c = convert.New()
		applyXCTLSet(c, s.ixctlset[dev])
		s.converters[key] = c
	}
	return c
}

// SetInputXCTL configures which coarse CC numbers (bit N = CC N, N in
// [0,31]) device dev groups with their fine (+32) counterpart on input
// (§4.2, §6.2's dixctl), applying it to every channel's Converter already
// created for dev and remembering it for ones created later.
func (s *Song) SetInputXCTL(dev int, ctlset uint32) error {
	if err := s.TryMode(ModeIdle); err != nil {
		return err
	}
	s.ixctlset[dev] = ctlset
	for key, c := range s.converters {
		if key.dev == dev {
			applyXCTLSet(c, ctlset)
		}
	}
	return nil
}

// SetOutputXCTL configures which coarse CC numbers device dev's output is
// allowed to split into coarse+fine pairs (§6.2's doxctl): an outgoing
// XCTL event for a coarse CC not in ctlset is still sent, but truncated to
// its coarse half.
func (s *Song) SetOutputXCTL(dev int, ctlset uint32) error {
	if err := s.TryMode(ModeIdle); err != nil {
		return err
	}
	s.oxctlset[dev] = ctlset
	return nil
}

func applyXCTLSet(c *convert.Converter, ctlset uint32) {
	for n := 0; n < 32; n++ {
		if ctlset&(1<<uint(n)) != 0 {
			c.EnableXCTL(n)
		} else {
			c.DisableXCTL(n)
		}
	}
}

// packOutput expands a logical XCTL/XPC/RPN/NRPN event into the raw CC/PC
// wire messages the device codec can serialize (§4.2's pack direction);
// every other kind passes through unchanged. It is the inverse of
// ConverterFor(...).Unpack, run on a track's events as they leave the
// playback pipeline (tickTrack) rather than in the mux, which only knows
// how to serialize raw voice events.
func (s *Song) packOutput(e ev.Event) []ev.Event {
	switch e.Kind {
	case ev.XCTL:
		out := convert.PackXCTL(e)
		if len(out) > 1 && s.oxctlset[e.Dev]&(1<<uint(e.V0)) == 0 {
			return out[:1]
		}
		return out
	case ev.XPC:
		return convert.PackXPC(e)
	case ev.RPN, ev.NRPN:
		return convert.PackRPN(e)
	default:
		return []ev.Event{e}
	}
}

// NewFilter registers a named, initially-empty Filter.
func (s *Song) NewFilter(name string) error {
	if _, exists := s.filters[name]; exists {
		return errs.BadArgf("fnew", "filter %q already exists", name)
	}
	s.filters[name] = filter.New()
	return nil
}

// Filter returns the named filter.
func (s *Song) Filter(name string) (*filter.Filter, bool) {
	f, ok := s.filters[name]
	return f, ok
}

// EditFilter applies edit to the named filter in place, journaling a
// FILT_SAVE undo record (§4.10) holding a deep copy of its rule sets taken
// before edit runs, so popping the group restores exactly what edit
// changed.
func (s *Song) EditFilter(label, name string, edit func(*filter.Filter)) error {
	f, ok := s.filters[name]
	if !ok {
		return errs.NotFoundf(label, "filter %q not found", name)
	}
	snap := f.Snapshot()
	s.undo.Do(label, func() {
		edit(f)
		s.undo.Push(undo.NewRecord(undo.FiltSave, label, func() {
			f.Restore(snap)
		}))
	})
	return nil
}

// NewSysexBank registers a named, initially-empty SysEx bank.
func (s *Song) NewSysexBank(name string, unit int) error {
	if _, exists := s.sysex[name]; exists {
		return errs.BadArgf("xnew", "sysex bank %q already exists", name)
	}
	s.sysex[name] = sysex.NewBank(unit)
	return nil
}

// SysexBank returns the named sysex bank.
func (s *Song) SysexBank(name string) (*sysex.Bank, bool) {
	b, ok := s.sysex[name]
	return b, ok
}

// ChannelNames returns every registered channel name, sorted for
// determinism (dlist, §6.2).
func (s *Song) ChannelNames() []string {
	out := make([]string, 0, len(s.channels))
	for name := range s.channels {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ReplaceAll discards s's tracks, channels, filters, sysex banks, meta
// track and tics-per-unit, replacing them wholesale with other's (project
// load and SMF import, §6.3/§6.4, both of which rebuild the song from
// scratch rather than editing the live one in place). s keeps its own
// identity and mode; its undo history is cleared; other is left unusable.
func (s *Song) ReplaceAll(other *Song) {
	s.Meta = other.Meta
	s.tracks = other.tracks
	s.byName = other.byName
	s.order = other.order
	s.channels = other.channels
	s.filters = other.filters
	s.sysex = other.sysex
	s.ticsPerUnit = other.ticsPerUnit
	s.undo = undo.New()
}
