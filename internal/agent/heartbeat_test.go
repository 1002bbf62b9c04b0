package agent

import (
	"testing"
	"time"
)

func TestHeartbeat_FiresOnSchedule(t *testing.T) {
	hb := NewHeartbeat(10 * time.Second)
	hb.Reset(t0)

	if hb.Tick(t0.Add(5 * time.Second)) {
		t.Error("fired before the interval elapsed")
	}
	if !hb.Tick(t0.Add(10 * time.Second)) {
		t.Error("did not fire at the interval boundary")
	}
	if hb.Tick(t0.Add(11 * time.Second)) {
		t.Error("fired twice inside one interval")
	}
}

func TestHeartbeat_PhaseStableUnderJitter(t *testing.T) {
	// Ticks arrive late by varying amounts; the nominal fire times must
	// stay the arithmetic sequence t0+10s, t0+20s, t0+30s, ...
	interval := 10 * time.Second
	hb := NewHeartbeat(interval)
	hb.Reset(t0)

	jitters := []time.Duration{
		300 * time.Millisecond,
		1200 * time.Millisecond,
		50 * time.Millisecond,
		2500 * time.Millisecond,
		900 * time.Millisecond,
	}

	for i, jitter := range jitters {
		nominal := t0.Add(time.Duration(i+1) * interval)
		if !hb.Tick(nominal.Add(jitter)) {
			t.Fatalf("fire %d: did not fire at nominal+%v", i+1, jitter)
		}
		want := nominal.Add(interval)
		if !hb.NextFire().Equal(want) {
			t.Fatalf("fire %d: NextFire = %v, want %v (jitter leaked into the schedule)",
				i+1, hb.NextFire(), want)
		}
	}
}

func TestHeartbeat_CatchesUpOneFirePerTick(t *testing.T) {
	// A long stall (e.g. suspended process) leaves several fires pending;
	// they drain one per tick instead of bursting.
	interval := 10 * time.Second
	hb := NewHeartbeat(interval)
	hb.Reset(t0)

	stalled := t0.Add(35 * time.Second)
	fires := 0
	for i := 0; i < 10; i++ {
		if hb.Tick(stalled.Add(time.Duration(i) * 25 * time.Millisecond)) {
			fires++
		} else {
			break
		}
	}
	if fires != 3 {
		t.Errorf("catch-up fires = %d, want 3", fires)
	}
}

func TestHeartbeat_SelfArmsWithoutFiring(t *testing.T) {
	hb := NewHeartbeat(10 * time.Second)

	if hb.Tick(t0) {
		t.Error("unarmed heartbeat fired on first tick")
	}
	if !hb.NextFire().Equal(t0.Add(10 * time.Second)) {
		t.Errorf("NextFire = %v, want %v", hb.NextFire(), t0.Add(10*time.Second))
	}
}

func TestHeartbeat_ResetRearms(t *testing.T) {
	hb := NewHeartbeat(10 * time.Second)
	hb.Reset(t0)
	if !hb.Tick(t0.Add(10 * time.Second)) {
		t.Fatal("did not fire at first interval")
	}

	// New session at t0+15s: the old schedule is abandoned.
	hb.Reset(t0.Add(15 * time.Second))
	if hb.Tick(t0.Add(20 * time.Second)) {
		t.Error("fired on the abandoned schedule")
	}
	if !hb.Tick(t0.Add(25 * time.Second)) {
		t.Error("did not fire one interval after reset")
	}
}
