package backtest

import (
	"errors"

	"contrarian-lab/internal/domain"
)

// Error taxonomy of a run. Per-symbol problems are absorbed and reported in
// Result.Skipped; universe-wide problems abort the run.
var (
	ErrConfiguration    = domain.ErrConfiguration
	ErrDataInsufficient = domain.ErrDataInsufficient
	ErrEmptyResult      = domain.ErrEmptyResult
)

// ErrPersistedRunMismatch is returned when a stored run holds rows that
// disagree with the replayed run of the same id.
var ErrPersistedRunMismatch = errors.New("persisted run does not match")

// ConfigurationError names the offending setting or column.
type ConfigurationError = domain.ConfigurationError

// DataInsufficiencyError records a symbol skipped for one frequency.
type DataInsufficiencyError = domain.DataInsufficiencyError
