package tcp

import (
	"testing"
	"time"
)

func TestRetransmitDueIsConjunction(t *testing.T) {
	// A connection whose smoothed RTT is still at the large initial estimate
	// must not retransmit just because one second has passed: both the floor
	// and the 1.5x-srtt gate must be exceeded. With || instead of &&, a
	// one-second-old send on a fresh connection (srtt still at the 60s
	// initial estimate) would incorrectly fire.
	timers := newTimers()
	if timers.RetransmitDue(1100 * time.Millisecond) {
		t.Fatal("RetransmitDue fired past the 1s floor alone, despite a huge smoothed RTT")
	}
}

func TestRetransmitDueFiresOnceBothGatesClear(t *testing.T) {
	timers := newTimers()
	timers.srtt = 0.1 // 100ms, a settled connection
	if timers.RetransmitDue(500 * time.Millisecond) {
		t.Fatal("RetransmitDue fired before the 1s floor")
	}
	if !timers.RetransmitDue(1100 * time.Millisecond) {
		t.Fatal("RetransmitDue should fire once both the floor and 1.5x srtt are exceeded")
	}
}

func TestRetireAckedUpdatesSRTT(t *testing.T) {
	timers := newTimers()
	timers.srtt = 1.0
	base := time.Unix(0, 0)
	timers.Record(100, base)
	timers.RetireAcked(101, base.Add(200*time.Millisecond))
	if timers.srtt >= 1.0 {
		t.Errorf("srtt should have decreased toward the fast 200ms sample, got %f", timers.srtt)
	}
	if len(timers.sends) != 0 {
		t.Errorf("acked send should have been retired, got %d remaining", len(timers.sends))
	}
}

func TestRetireAckedLeavesUnackedEntries(t *testing.T) {
	timers := newTimers()
	base := time.Unix(0, 0)
	timers.Record(100, base)
	timers.Record(110, base)
	timers.RetireAcked(105, base)
	if len(timers.sends) != 1 || timers.sends[0].seq != 110 {
		t.Errorf("expected only seq 110 to remain outstanding, got %+v", timers.sends)
	}
}
