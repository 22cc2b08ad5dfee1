package undo

import "github.com/ratchov/midish-sub000/pkg/track"

// TrackDelta is a TRACK_DIFF record's payload (§4.10): the common prefix
// and suffix between a track's "before" and "after" states are identical
// by construction, so only the differing middle span and the old trailing
// duration need to be kept — a run-length-compressed edit script rather
// than a full snapshot.
type TrackDelta struct {
	PrefixLen int
	SuffixLen int
	OldMiddle []track.Pair
	OldTail   int64
}

// DiffTrack computes the delta that, given after's current contents,
// reconstructs before.
func DiffTrack(before, after *track.Track) TrackDelta {
	bp := before.Events()
	ap := after.Events()

	prefix := 0
	for prefix < len(bp) && prefix < len(ap) && bp[prefix] == ap[prefix] {
		prefix++
	}
	bRest, aRest := len(bp)-prefix, len(ap)-prefix
	suffix := 0
	for suffix < bRest && suffix < aRest && bp[len(bp)-1-suffix] == ap[len(ap)-1-suffix] {
		suffix++
	}

	middle := append([]track.Pair{}, bp[prefix:len(bp)-suffix]...)
	var sum int64
	for _, p := range bp {
		sum += p.Delta
	}
	return TrackDelta{PrefixLen: prefix, SuffixLen: suffix, OldMiddle: middle, OldTail: before.Duration() - sum}
}

// Apply reconstructs the "before" track from after's current contents and
// the stored delta.
func (d TrackDelta) Apply(after *track.Track) *track.Track {
	ap := after.Events()
	var pairs []track.Pair
	pairs = append(pairs, ap[:d.PrefixLen]...)
	pairs = append(pairs, d.OldMiddle...)
	if d.SuffixLen > 0 {
		pairs = append(pairs, ap[len(ap)-d.SuffixLen:]...)
	}
	return track.FromPairs(pairs, d.OldTail)
}

// PushTrackDiff records a track mutation: before and after are the track's
// state on either side of the edit, and restore installs a reconstructed
// "before" track back wherever after currently lives (e.g. Song.ReplaceTrack).
func (l *Log) PushTrackDiff(desc string, before, after *track.Track, restore func(*track.Track)) {
	d := DiffTrack(before, after)
	l.Push(NewRecord(TrackDiff, desc, func() {
		restore(d.Apply(after))
	}))
}
