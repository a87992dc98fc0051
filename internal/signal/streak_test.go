package signal

import (
	"math"
	"testing"
)

func TestStateNext(t *testing.T) {
	var s State
	s = s.Next(0.01)
	s = s.Next(0.02)
	if s != (State{Up: 2}) {
		t.Fatalf("expected up=2, got %+v", s)
	}
	s = s.Next(-0.01)
	if s != (State{Down: 1}) {
		t.Fatalf("sign flip must reset up, got %+v", s)
	}
	for _, r := range []float64{0, math.NaN(), math.Inf(1), math.Inf(-1)} {
		if got := (State{Down: 4}).Next(r); got != (State{}) {
			t.Errorf("Next(%v) = %+v, want reset", r, got)
		}
	}
}

func TestScan_MutuallyExclusive(t *testing.T) {
	returns := Returns([]float64{1, 2, 3, 2, 1, 1, 0.5, 0.6})
	states := Scan(returns)

	want := []State{{}, {Up: 1}, {Up: 2}, {Down: 1}, {Down: 2}, {}, {Down: 1}, {Up: 1}}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("state %d = %+v, want %+v", i, states[i], want[i])
		}
		if states[i].Up > 0 && states[i].Down > 0 {
			t.Errorf("state %d has both counters set", i)
		}
	}
}

func TestReturns_FirstIsNaN(t *testing.T) {
	r := Returns([]float64{100, 110})
	if !math.IsNaN(r[0]) {
		t.Errorf("first return should be NaN, got %v", r[0])
	}
	if math.Abs(r[1]-0.1) > 1e-12 {
		t.Errorf("expected 0.1, got %v", r[1])
	}
	if len(Returns(nil)) != 0 {
		t.Error("empty input should give empty output")
	}
}
