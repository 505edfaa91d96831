package loopvm_test

import (
	"math"
	"testing"

	"github.com/loopvm/loopvm"
)

func TestClockDerivedFields(t *testing.T) {
	c := loopvm.NewClock(48000, 144, 16)
	c.Update()
	if math.Abs(c.Coeff-0.6) > 1e-12 {
		t.Fatalf("coeff: got %v, expected 0.6", c.Coeff)
	}
	if math.Abs(c.BarTimeStep-1.25e-5) > 1e-12 {
		t.Fatalf("barTimeStep: got %v, expected 1.25e-5", c.BarTimeStep)
	}
	if c.TimeStep != 1.0/48000 {
		t.Fatalf("timeStep: got %v, expected %v", c.TimeStep, 1.0/48000)
	}
}

func TestClockFirstUpdateDoesNotAdvance(t *testing.T) {
	c := loopvm.NewClock(48000, 120, 16)
	c.Time = 3
	c.Update()
	if c.BarTime != 0 {
		t.Fatalf("first update moved the bar time to %v", c.BarTime)
	}
	c.Time += 1
	c.Update()
	if math.Abs(c.BarTime-0.5) > 1e-9 {
		t.Fatalf("one second at 120 bpm: got %v bars, expected 0.5", c.BarTime)
	}
}

func TestClockStaysInsideLoop(t *testing.T) {
	c := loopvm.NewClock(48000, 120, 2)
	for i := 0; i < 10*48000; i++ {
		c.Time += c.TimeStep
		c.Update()
		if c.BarTime < 0 || c.BarTime >= c.EndTime {
			t.Fatalf("sample %d: bar time %v outside [0, %v)", i, c.BarTime, c.EndTime)
		}
		if c.NextBarTime < 0 || c.NextBarTime >= c.EndTime {
			t.Fatalf("sample %d: next bar time %v outside [0, %v)", i, c.NextBarTime, c.EndTime)
		}
	}
}

func TestClockLoopWindow(t *testing.T) {
	c := loopvm.NewClock(1000, 240, 8)
	c.SetLoop(4, 6)
	c.InternalTime = 5.9
	c.Update()
	c.Time += 0.2 // one bar per second at 240 bpm
	c.Update()
	if math.Abs(c.BarTime-4.1) > 1e-9 {
		t.Fatalf("expected the clock to wrap to 4.1, got %v", c.BarTime)
	}
}

func TestClockResetThenUpdate(t *testing.T) {
	c := loopvm.NewClock(48000, 133, 16)
	for i := 0; i < 12345; i++ {
		c.Time += c.TimeStep
		c.Update()
	}
	c.Reset()
	c.Update()
	if c.BarTime != 0 || c.Time != 0 {
		t.Fatalf("after reset: bar time %v, time %v", c.BarTime, c.Time)
	}
}

func TestClockAdvance(t *testing.T) {
	c := loopvm.NewClock(48000, 144, 16)
	c.Advance(64)
	if math.Abs(c.BarTime-64*1.25e-5) > 1e-12 {
		t.Fatalf("bar time after 64 samples: %v", c.BarTime)
	}
	if math.Abs(c.Time-64.0/48000) > 1e-12 {
		t.Fatalf("time after 64 samples: %v", c.Time)
	}
}

func TestBarsToSamples(t *testing.T) {
	c := loopvm.NewClock(48000, 120, 16)
	if got := c.BarsToSamples(1); got != 96000 {
		t.Fatalf("one bar at 120 bpm: got %d samples, expected 96000", got)
	}
	if got := c.SecondsToBars(4); got != 2 {
		t.Fatalf("4 seconds at 120 bpm: got %v bars, expected 2", got)
	}
}
