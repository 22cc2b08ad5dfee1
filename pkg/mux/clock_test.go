package mux

import "testing"

func TestClockStartsInStopState(t *testing.T) {
	c := NewClock()
	if c.State() != Stop {
		t.Fatalf("got %v, want Stop", c.State())
	}
	if c.IsMaster() {
		t.Error("a stopped clock should not be a clock master")
	}
}

func TestIncomingTicWhileStoppedDoesNothing(t *testing.T) {
	c := NewClock()
	if c.HandleIncomingTic() {
		t.Error("a TIC while stopped should not advance anything")
	}
}

func TestStartThenTwoTicsReachesNextTic(t *testing.T) {
	c := NewClock()
	c.HandleIncomingStart()
	if c.State() != Start {
		t.Fatalf("got %v, want Start", c.State())
	}
	if !c.HandleIncomingTic() {
		t.Fatal("first tic after Start should advance")
	}
	if c.State() != FirstTic {
		t.Fatalf("got %v, want FirstTic", c.State())
	}
	if !c.HandleIncomingTic() {
		t.Fatal("second tic should advance")
	}
	if c.State() != NextTic {
		t.Fatalf("got %v, want NextTic", c.State())
	}
}

func TestStopResetsState(t *testing.T) {
	c := NewClock()
	c.HandleIncomingStart()
	c.HandleIncomingTic()
	c.HandleIncomingStop()
	if c.State() != Stop {
		t.Fatalf("got %v, want Stop", c.State())
	}
}

func TestNextExpiryAdvancesMonotonically(t *testing.T) {
	c := NewClock()
	c.SetTempoBPM(120)
	first := c.NextExpiry()
	second := c.NextExpiry()
	if second <= first {
		t.Errorf("second expiry %v should be after first %v", second, first)
	}
}

func TestTempoFactorScalesExpiryInterval(t *testing.T) {
	c1 := NewClock()
	c1.SetTempoBPM(120)
	normal := c1.NextExpiry()

	c2 := NewClock()
	c2.SetTempoBPM(120)
	c2.SetTempoFactor(512) // 2x
	doubled := c2.NextExpiry()

	if doubled <= normal {
		t.Errorf("2x tempo factor should widen the interval: normal=%v doubled=%v", normal, doubled)
	}
}

func TestSlavedClockIsNotMaster(t *testing.T) {
	c := NewClock()
	c.HandleIncomingStart()
	c.HandleIncomingTic()
	c.Slave(true)
	if c.IsMaster() {
		t.Error("a slaved clock must not broadcast as master")
	}
}
