package mux

import "testing"

func quarterFrames(hours, minutes, seconds, frames, rate int) []byte {
	hoursByte := hours | (rate << 5)
	return []byte{
		byte(0<<4 | (frames & 0x0F)),
		byte(1<<4 | (frames>>4)&0x0F),
		byte(2<<4 | (seconds & 0x0F)),
		byte(3<<4 | (seconds>>4)&0x0F),
		byte(4<<4 | (minutes & 0x0F)),
		byte(5<<4 | (minutes>>4)&0x0F),
		byte(6<<4 | (hoursByte & 0x0F)),
		byte(7<<4 | (hoursByte>>4)&0x0F),
	}
}

func TestMTCAssemblesAfterEightQuarterFrames(t *testing.T) {
	a := &MTCAssembler{}
	frames := quarterFrames(1, 2, 3, 4, 3)
	var got SMPTETime
	var ok bool
	for _, b := range frames {
		got, ok = a.Feed(b)
	}
	if !ok {
		t.Fatal("should assemble a complete time after 8 quarter frames")
	}
	if got.Hours != 1 || got.Minutes != 2 || got.Seconds != 3 || got.Frames != 4 || got.FrameRate != 3 {
		t.Errorf("got %+v", got)
	}
}

func TestMTCPartialMessageIsNotReported(t *testing.T) {
	a := &MTCAssembler{}
	frames := quarterFrames(0, 0, 0, 0, 0)
	for _, b := range frames[:5] {
		if _, ok := a.Feed(b); ok {
			t.Fatal("should not assemble before piece 7 arrives")
		}
	}
}

func TestMTCTotalFramesMatchesRate(t *testing.T) {
	st := SMPTETime{Hours: 0, Minutes: 0, Seconds: 1, Frames: 0, FrameRate: 3} // 30fps
	if st.TotalFrames() != 30 {
		t.Errorf("got %v, want 30", st.TotalFrames())
	}
}
