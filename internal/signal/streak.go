// Package signal detects exhausted streaks and forms contrarian trade
// candidates from them.
package signal

import "math"

// State is the running streak count after one period return.
// At most one of Up and Down is non-zero.
type State struct {
	Up   int
	Down int
}

// Next folds one period return into the state. A non-finite or zero return
// resets both counters.
func (s State) Next(r float64) State {
	switch {
	case math.IsNaN(r) || math.IsInf(r, 0) || r == 0:
		return State{}
	case r > 0:
		return State{Up: s.Up + 1}
	default:
		return State{Down: s.Down + 1}
	}
}

// Returns computes simple period returns. The first element is NaN.
func Returns(prices []float64) []float64 {
	out := make([]float64, len(prices))
	if len(prices) == 0 {
		return out
	}
	out[0] = math.NaN()
	for i := 1; i < len(prices); i++ {
		out[i] = prices[i]/prices[i-1] - 1
	}
	return out
}

// Scan returns the streak state after every return, in order.
func Scan(returns []float64) []State {
	out := make([]State, len(returns))
	var s State
	for i, r := range returns {
		s = s.Next(r)
		out[i] = s
	}
	return out
}
