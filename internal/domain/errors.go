package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by ingestion, configuration and the engine.
var (
	// ErrConfiguration marks a fatal configuration problem (bad parameters,
	// missing date or price column).
	ErrConfiguration = errors.New("configuration error")

	// ErrDataInsufficient marks a series too short for a frequency. Absorbed
	// per symbol; never aborts a run.
	ErrDataInsufficient = errors.New("insufficient data")

	// ErrEmptyResult is returned when no trades were generated universe-wide.
	ErrEmptyResult = errors.New("no trades generated")

	// ErrInvalidSeries is returned for unordered or duplicate timestamps.
	ErrInvalidSeries = errors.New("invalid price series")
)

// ConfigurationError describes which setting or column is wrong.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// Unwrap allows errors.Is(err, ErrConfiguration).
func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// DataInsufficiencyError records a symbol skipped for a frequency.
type DataInsufficiencyError struct {
	Symbol    string
	Frequency string
	Have      int
	Need      int
}

func (e *DataInsufficiencyError) Error() string {
	return fmt.Sprintf("insufficient data: %s/%s has %d periods, need %d",
		e.Symbol, e.Frequency, e.Have, e.Need)
}

// Unwrap allows errors.Is(err, ErrDataInsufficient).
func (e *DataInsufficiencyError) Unwrap() error {
	return ErrDataInsufficient
}
