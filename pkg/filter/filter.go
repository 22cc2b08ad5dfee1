// Package filter implements the event rewriting engine (§3.6, §4.5): an
// ordered set of map/transp/vcurve rules applied to a single event to
// produce zero or more output events. It is used both as the input
// normalizer during recording and as the per-track playback filter.
package filter

import "github.com/ratchov/midish-sub000/pkg/ev"

// MapRule rewrites any event matching Src into one event per entry in Dst,
// remapping each dimension linearly from Src's range to that entry's range.
type MapRule struct {
	Src ev.EvSpec
	Dst []ev.EvSpec
}

// TranspRule shifts the note number of events matching Spec by Halftones,
// clipped to [0, 127].
type TranspRule struct {
	Spec      ev.EvSpec
	Halftones int
}

// VcurveRule remaps the velocity of events matching Spec through a
// piecewise curve parameterized by Weight in [-63, 63]; 0 is identity.
type VcurveRule struct {
	Spec   ev.EvSpec
	Weight int
}

// Filter holds the ordered rule lists described in §4.5. The zero value is
// an empty filter, the same as New returns.
type Filter struct {
	maps    []MapRule
	transps []TranspRule
	vcurves []VcurveRule
}

// New returns an empty Filter (passes every event through unchanged).
func New() *Filter {
	return &Filter{}
}

// Do applies f to e, first consulting the map rules (the first whose Src
// matches wins and produces the image events, or e passes through
// unchanged if none match), then applying every transp/vcurve rule whose
// Spec matches each resulting event (§4.5 operation filt_do).
func (f *Filter) Do(e ev.Event) []ev.Event {
	out := f.applyMaps(e)
	for i, o := range out {
		o = f.applyTransp(o)
		o = f.applyVcurve(o)
		out[i] = o
	}
	return out
}

func (f *Filter) applyMaps(e ev.Event) []ev.Event {
	for _, m := range f.maps {
		if !m.Src.Match(e) {
			continue
		}
		out := make([]ev.Event, len(m.Dst))
		for i, dst := range m.Dst {
			out[i] = mapEvent(e, m.Src, dst)
		}
		return out
	}
	return []ev.Event{e}
}

func mapEvent(e ev.Event, src, dst ev.EvSpec) ev.Event {
	k := dst.Kind
	if dst.IsAny() {
		k = e.Kind
	}
	dev := ev.MapValue(e.Dev, src.Dev, dst.Dev)
	ch := ev.MapValue(e.Ch, src.Ch, dst.Ch)
	v0, v1 := e.V0, e.V1
	if v0 != ev.Undef {
		v0 = ev.MapValue(v0, src.V0, dst.V0)
	}
	if v1 != ev.Undef {
		v1 = ev.MapValue(v1, src.V1, dst.V1)
	}
	return ev.New(k, dev, ch, v0, v1)
}

func isNoteKind(k ev.Kind) bool { return k == ev.NON || k == ev.NOFF || k == ev.KAT }

func (f *Filter) applyTransp(e ev.Event) ev.Event {
	if !isNoteKind(e.Kind) {
		return e
	}
	for _, r := range f.transps {
		if !r.Spec.Match(e) {
			continue
		}
		v0 := e.V0 + r.Halftones
		if v0 < 0 {
			v0 = 0
		}
		if v0 > 127 {
			v0 = 127
		}
		e.V0 = v0
	}
	return e
}

func (f *Filter) applyVcurve(e ev.Event) ev.Event {
	if !isNoteKind(e.Kind) {
		return e
	}
	for _, r := range f.vcurves {
		if !r.Spec.Match(e) {
			continue
		}
		e.V1 = Curve(e.V1, r.Weight)
	}
	return e
}

// Curve applies a piecewise-linear velocity response with weight in
// [-63, 63] (§4.4's vcurve, reused by the filter's vcurve node and by the
// track_vcurve frame operation): 0 is identity, positive weights boost low
// velocities, negative weights suppress them.
func Curve(v, weight int) int {
	if weight == 0 || v == ev.Undef {
		return v
	}
	if weight > 63 {
		weight = 63
	}
	if weight < -63 {
		weight = -63
	}
	x := float64(v) / 127.0
	w := float64(weight) / 63.0
	var y float64
	if w >= 0 {
		y = x + (1-x)*x*w
	} else {
		y = x + x*x*w
	}
	out := int(y*127.0 + 0.5)
	if out < 0 {
		out = 0
	}
	if out > 127 {
		out = 127
	}
	return out
}

// AddTransp appends a transp rule.
func (f *Filter) AddTransp(r TranspRule) { f.transps = append(f.transps, r) }

// AddVcurve appends a vcurve rule.
func (f *Filter) AddVcurve(r VcurveRule) { f.vcurves = append(f.vcurves, r) }

// Maps returns a copy of the filter's current map rules, in evaluation
// order, for inspection (undo snapshots, the project writer).
func (f *Filter) Maps() []MapRule {
	out := make([]MapRule, len(f.maps))
	copy(out, f.maps)
	return out
}

// Snapshot returns a deep copy of f's rule sets, for the FILT_SAVE undo
// record (§4.10): taken before an in-place edit so Restore can reverse it.
func (f *Filter) Snapshot() *Filter {
	snap := &Filter{
		maps:    make([]MapRule, len(f.maps)),
		transps: make([]TranspRule, len(f.transps)),
		vcurves: make([]VcurveRule, len(f.vcurves)),
	}
	for i, r := range f.maps {
		snap.maps[i] = MapRule{Src: r.Src, Dst: append([]ev.EvSpec(nil), r.Dst...)}
	}
	copy(snap.transps, f.transps)
	copy(snap.vcurves, f.vcurves)
	return snap
}

// Restore replaces f's rule sets with snap's in place, so pointers other
// code already holds to f observe the reversed state.
func (f *Filter) Restore(snap *Filter) {
	f.maps = snap.maps
	f.transps = snap.transps
	f.vcurves = snap.vcurves
}
