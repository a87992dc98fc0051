package backtest

import "time"

// Recorder receives run telemetry. Implementations must be safe for
// concurrent use.
type Recorder interface {
	SignalsGenerated(frequency string, n int)
	SignalsDropped(frequency, reason string, n int)
	SymbolSkipped(frequency string)
	CohortAllocated(gross float64, delevered bool)
	TradesExecuted(n int)
	RunCompleted(status string, elapsed time.Duration)
}

// Run statuses passed to Recorder.RunCompleted.
const (
	StatusSuccess = "success"
	StatusEmpty   = "empty"
	StatusError   = "error"
)

type nopRecorder struct{}

func (nopRecorder) SignalsGenerated(string, int) {}
func (nopRecorder) SignalsDropped(string, string, int) {}
func (nopRecorder) SymbolSkipped(string) {}
func (nopRecorder) CohortAllocated(float64, bool) {}
func (nopRecorder) TradesExecuted(int) {}
func (nopRecorder) RunCompleted(string, time.Duration) {}
