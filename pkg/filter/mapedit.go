package filter

import "github.com/ratchov/midish-sub000/pkg/ev"

// Dim names one of an EvSpec's four ranged dimensions, used by ChgIn/ChgOut/
// SwapIn/SwapOut to target a single axis for reassignment (§4.5).
type Dim int

const (
	DimDev Dim = iota
	DimCh
	DimV0
	DimV1
)

func getRange(s ev.EvSpec, d Dim) ev.Range {
	switch d {
	case DimDev:
		return s.Dev
	case DimCh:
		return s.Ch
	case DimV0:
		return s.V0
	default:
		return s.V1
	}
}

func withRange(s ev.EvSpec, d Dim, r ev.Range) ev.EvSpec {
	switch d {
	case DimDev:
		s.Dev = r
	case DimCh:
		s.Ch = r
	case DimV0:
		s.V0 = r
	default:
		s.V1 = r
	}
	return s
}

var allDims = [4]Dim{DimDev, DimCh, DimV0, DimV1}

// subtract decomposes orig.Src-shaped region minus cut into the disjoint
// EvSpec pieces covering what remains, preserving orig's Kind. Used by
// MapNew/MapDel to keep the no-overlap invariant (§4.5) whenever a newly
// inserted or removed rule's source region cuts through an existing one.
func subtract(orig, cut ev.EvSpec) []ev.EvSpec {
	if !orig.Overlaps(cut) {
		return []ev.EvSpec{orig}
	}
	var pieces []ev.EvSpec
	cur := orig
	for _, d := range allDims {
		a := getRange(cur, d)
		b := getRange(cut, d)
		if a.Lo < b.Lo {
			hi := b.Lo - 1
			if hi > a.Hi {
				hi = a.Hi
			}
			pieces = append(pieces, withRange(cur, d, ev.Range{Lo: a.Lo, Hi: hi}))
		}
		if a.Hi > b.Hi {
			lo := b.Hi + 1
			if lo < a.Lo {
				lo = a.Lo
			}
			pieces = append(pieces, withRange(cur, d, ev.Range{Lo: lo, Hi: a.Hi}))
		}
		lo, hi := max(a.Lo, b.Lo), min(a.Hi, b.Hi)
		if lo > hi {
			return pieces
		}
		cur = withRange(cur, d, ev.Range{Lo: lo, Hi: hi})
	}
	return pieces
}

// mapRangeViaValue maps r's endpoints from src to dst using the same
// per-dimension linear law as MapValue, so a split-off piece of a map
// rule's Src keeps the correct, proportionally narrower, slice of Dst.
func mapRangeViaValue(r, src, dst ev.Range) ev.Range {
	lo := ev.MapValue(r.Lo, src, dst)
	hi := ev.MapValue(r.Hi, src, dst)
	if hi < lo {
		lo, hi = hi, lo
	}
	return ev.Range{Lo: lo, Hi: hi}
}

// mapPieceDst recomputes the destination EvSpec that corresponds to piece,
// a sub-region of origSrc, given the rule's original (origSrc -> origDst)
// mapping.
func mapPieceDst(piece, origSrc, origDst ev.EvSpec) ev.EvSpec {
	d := origDst
	d.Dev = mapRangeViaValue(piece.Dev, origSrc.Dev, origDst.Dev)
	d.Ch = mapRangeViaValue(piece.Ch, origSrc.Ch, origDst.Ch)
	d.V0 = mapRangeViaValue(piece.V0, origSrc.V0, origDst.V0)
	d.V1 = mapRangeViaValue(piece.V1, origSrc.V1, origDst.V1)
	return d
}

// MapNew inserts a new map rule (src -> dst), splitting any existing rule
// whose Src overlaps src so that no two rules share a source event
// afterwards (§4.5 invariant). The new rule takes priority over the
// regions it carves out of older rules.
func (f *Filter) MapNew(src ev.EvSpec, dst []ev.EvSpec) {
	var kept []MapRule
	for _, r := range f.maps {
		if !r.Src.Overlaps(src) {
			kept = append(kept, r)
			continue
		}
		for _, p := range subtract(r.Src, src) {
			newDst := make([]ev.EvSpec, len(r.Dst))
			for i, d := range r.Dst {
				newDst[i] = mapPieceDst(p, r.Src, d)
			}
			kept = append(kept, MapRule{Src: p, Dst: newDst})
		}
	}
	kept = append(kept, MapRule{Src: src, Dst: append([]ev.EvSpec(nil), dst...)})
	f.maps = kept
}

// MapDel removes every map rule's overlap with src, splitting any
// partially-overlapping rule so the surviving fragments keep matching
// exactly what they matched before, minus src (the inverse of MapNew's
// split).
func (f *Filter) MapDel(src ev.EvSpec) {
	var kept []MapRule
	for _, r := range f.maps {
		if !r.Src.Overlaps(src) {
			kept = append(kept, r)
			continue
		}
		for _, p := range subtract(r.Src, src) {
			newDst := make([]ev.EvSpec, len(r.Dst))
			for i, d := range r.Dst {
				newDst[i] = mapPieceDst(p, r.Src, d)
			}
			kept = append(kept, MapRule{Src: p, Dst: newDst})
		}
	}
	f.maps = kept
}

// ChgIn reassigns every rule (map, transp, vcurve) whose matching spec has
// exactly the range `from` along dimension d to `to` instead — e.g.
// reassigning every rule bound to input channel 3 onto channel 5.
func (f *Filter) ChgIn(d Dim, from, to ev.Range) {
	for i := range f.maps {
		if getRange(f.maps[i].Src, d) == from {
			f.maps[i].Src = withRange(f.maps[i].Src, d, to)
		}
	}
	for i := range f.transps {
		if getRange(f.transps[i].Spec, d) == from {
			f.transps[i].Spec = withRange(f.transps[i].Spec, d, to)
		}
	}
	for i := range f.vcurves {
		if getRange(f.vcurves[i].Spec, d) == from {
			f.vcurves[i].Spec = withRange(f.vcurves[i].Spec, d, to)
		}
	}
}

// ChgOut reassigns every map rule's destination entries bound to `from`
// along dimension d onto `to` instead, leaving sources untouched.
func (f *Filter) ChgOut(d Dim, from, to ev.Range) {
	for i := range f.maps {
		for j := range f.maps[i].Dst {
			if getRange(f.maps[i].Dst[j], d) == from {
				f.maps[i].Dst[j] = withRange(f.maps[i].Dst[j], d, to)
			}
		}
	}
}

// SwapIn exchanges ranges a and b along dimension d across every rule's
// source spec atomically (§4.5): a rule bound to a ends up bound to b and
// vice versa, in a single pass so neither reassignment clobbers the other.
func (f *Filter) SwapIn(d Dim, a, b ev.Range) {
	swap := func(r ev.EvSpec) ev.EvSpec {
		cur := getRange(r, d)
		switch cur {
		case a:
			return withRange(r, d, b)
		case b:
			return withRange(r, d, a)
		}
		return r
	}
	for i := range f.maps {
		f.maps[i].Src = swap(f.maps[i].Src)
	}
	for i := range f.transps {
		f.transps[i].Spec = swap(f.transps[i].Spec)
	}
	for i := range f.vcurves {
		f.vcurves[i].Spec = swap(f.vcurves[i].Spec)
	}
}

// SwapOut exchanges ranges a and b along dimension d across every map
// rule's destination entries atomically.
func (f *Filter) SwapOut(d Dim, a, b ev.Range) {
	for i := range f.maps {
		for j, dst := range f.maps[i].Dst {
			cur := getRange(dst, d)
			switch cur {
			case a:
				f.maps[i].Dst[j] = withRange(dst, d, b)
			case b:
				f.maps[i].Dst[j] = withRange(dst, d, a)
			}
		}
	}
}
