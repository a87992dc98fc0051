package config

import (
	"errors"
	"fmt"
	"math"

	"contrarian-lab/internal/domain"
	"contrarian-lab/internal/resample"
)

// Validate checks every engine parameter. All problems are joined; each one
// is a *domain.ConfigurationError.
func (c *Config) Validate() error {
	var errs []error
	add := func(field, format string, args ...any) {
		errs = append(errs, &domain.ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)})
	}

	if len(c.Frequencies) == 0 {
		add("frequencies", "at least one frequency is required")
	}
	labels := make(map[string]string, len(c.Frequencies))
	for _, name := range c.FrequencyNames() {
		f := c.Frequencies[name]
		field := "frequencies." + name
		if f.Label == "" {
			add(field+".freq_label", "must not be empty")
		} else if other, dup := labels[f.Label]; dup {
			add(field+".freq_label", "label %q already used by %s", f.Label, other)
		} else {
			labels[f.Label] = name
		}
		if f.UpStreak < 1 {
			add(field+".up_streak", "must be >= 1, got %d", f.UpStreak)
		}
		if f.DownStreak < 1 {
			add(field+".down_streak", "must be >= 1, got %d", f.DownStreak)
		}
		if f.HoldingPeriods < 1 {
			add(field+".holding_periods", "must be >= 1, got %d", f.HoldingPeriods)
		}
		if !isFinite(f.MinAmplitude) || f.MinAmplitude < 0 {
			add(field+".min_amplitude", "must be a finite value >= 0, got %v", f.MinAmplitude)
		}
		if _, err := resample.ParseRule(f.Rule); err != nil {
			add(field+".rule", "%v", err)
		}
	}

	switch c.Trading.EntryTiming {
	case EntrySignalClose, EntryNextClose:
	default:
		add("trading.entry_timing", "unknown entry timing %q", c.Trading.EntryTiming)
	}
	switch c.Trading.AmplitudeAnchor {
	case AnchorStreakStart, AnchorPreStreak:
	default:
		add("trading.amplitude_anchor", "unknown amplitude anchor %q", c.Trading.AmplitudeAnchor)
	}
	if c.Trading.HistoryBuffer < 0 {
		add("trading.history_buffer", "must be >= 0, got %d", c.Trading.HistoryBuffer)
	}

	if _, ok := c.Position[domain.AssetClassDefault]; !ok {
		add("position.DEFAULT", "a DEFAULT sizing profile is required")
	}
	for class, p := range c.Position {
		field := "position." + string(class)
		if !isFinite(p.Sensitivity) || p.Sensitivity < 0 {
			add(field+".sensitivity", "must be a finite value >= 0, got %v", p.Sensitivity)
		}
		if p.MinPos < 0 || p.MaxPos < 0 {
			add(field, "min_pos and max_pos must be >= 0")
		}
		if p.MinPos > p.MaxPos {
			add(field, "min_pos %v exceeds max_pos %v", p.MinPos, p.MaxPos)
		}
		// a zero cap would size every trade of the class to nothing
		if p.Sensitivity > 0 && p.MaxPos == 0 {
			add(field+".max_pos", "must be > 0 when sensitivity is %v", p.Sensitivity)
		}
	}

	if !isFinite(c.Portfolio.GrossCap) || c.Portfolio.GrossCap <= 0 {
		add("portfolio.gross_cap", "must be > 0, got %v", c.Portfolio.GrossCap)
	}
	if !isFinite(c.Portfolio.PerSymbolCap) || c.Portfolio.PerSymbolCap <= 0 {
		add("portfolio.per_symbol_cap", "must be > 0, got %v", c.Portfolio.PerSymbolCap)
	}
	if !isFinite(c.Portfolio.RoundTripCostBps) || c.Portfolio.RoundTripCostBps < 0 {
		add("portfolio.round_trip_cost_bps", "must be >= 0, got %v", c.Portfolio.RoundTripCostBps)
	}

	return errors.Join(errs...)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
