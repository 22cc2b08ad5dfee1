package mux

// MTCAssembler accumulates MTC quarter-frame messages into a full SMPTE
// time (§4.8: "quarter-frame messages assemble into a SMPTE time which is
// converted via the meta-track to ticks"). A full message takes 8 quarter
// frames (two per field, low nibble then high nibble, in the standard
// piece order 0..7); between full messages the caller interpolates
// proportionally using the frame rate.
type MTCAssembler struct {
	pieces [8]byte
	have   uint8 // bitmask of pieces received since the last reset
}

// SMPTETime is an assembled MTC timecode.
type SMPTETime struct {
	Hours, Minutes, Seconds, Frames int
	// FrameRate is the SMPTE rate code from the high hours piece: 0=24,
	// 1=25, 2=29.97(drop), 3=30 fps.
	FrameRate int
}

// Feed processes one quarter-frame data byte (the low 7 bits of an MTC
// quarter-frame message: piece number in bits 4-6, nibble in bits 0-3). It
// returns the assembled time once all 8 pieces of one message have
// arrived; until then ok is false.
func (a *MTCAssembler) Feed(b byte) (t SMPTETime, ok bool) {
	piece := (b >> 4) & 0x07
	nibble := b & 0x0F
	a.pieces[piece] = nibble
	a.have |= 1 << piece

	if piece != 7 {
		return SMPTETime{}, false
	}
	if a.have != 0xFF {
		a.have = 0
		return SMPTETime{}, false // incomplete message, resync on next cycle
	}
	a.have = 0

	frames := int(a.pieces[0]) | int(a.pieces[1])<<4
	seconds := int(a.pieces[2]) | int(a.pieces[3])<<4
	minutes := int(a.pieces[4]) | int(a.pieces[5])<<4
	hoursByte := int(a.pieces[6]) | int(a.pieces[7])<<4
	return SMPTETime{
		Hours:     hoursByte & 0x1F,
		Minutes:   minutes,
		Seconds:   seconds,
		Frames:    frames,
		FrameRate: (hoursByte >> 5) & 0x03,
	}, true
}

// FramesPerSecond returns the nominal frame rate for an MTC FrameRate code.
func FramesPerSecond(code int) float64 {
	switch code {
	case 0:
		return 24
	case 1:
		return 25
	case 2:
		return 29.97
	default:
		return 30
	}
}

// TotalFrames flattens t to an absolute frame count at its own rate, the
// unit the meta-track's tempo map converts to ticks.
func (t SMPTETime) TotalFrames() float64 {
	fps := FramesPerSecond(t.FrameRate)
	return ((float64(t.Hours)*60+float64(t.Minutes))*60+float64(t.Seconds))*fps + float64(t.Frames)
}
