// Package config holds the typed backtest configuration.
//
// Precedence is single-direction: Default() is overlaid by a config file
// (Load), which is overlaid by explicit command-line Overrides (Apply).
package config

import (
	"sort"

	"contrarian-lab/internal/domain"
)

// EntryTiming selects how the holding window is placed after formation.
type EntryTiming string

// Entry timing modes.
const (
	// EntrySignalClose realizes returns over periods [entry, entry+holding-1],
	// compounding from the formation close.
	EntrySignalClose EntryTiming = "signal_close"
	// EntryNextClose opens at the close of the entry period and exits
	// holding periods later.
	EntryNextClose EntryTiming = "next_close"
)

// AmplitudeAnchor selects the close the streak amplitude is measured from.
type AmplitudeAnchor string

// Amplitude anchors.
const (
	// AnchorStreakStart measures from the close at t-streak_len+1.
	AnchorStreakStart AmplitudeAnchor = "streak_start"
	// AnchorPreStreak measures from the close at t-streak_len, covering every
	// return in the streak.
	AnchorPreStreak AmplitudeAnchor = "pre_streak"
)

// DefaultHistoryBuffer is added to up+down thresholds to get the minimum
// number of periods a symbol needs.
const DefaultHistoryBuffer = 5

// Config is the full backtest configuration.
type Config struct {
	Data          DataConfig                          `yaml:"data"`
	Frequencies   map[string]FrequencyConfig          `yaml:"frequencies"`
	Trading       TradingConfig                       `yaml:"trading"`
	AssetClassMap map[string]domain.AssetClass        `yaml:"asset_class_map"`
	Position      map[domain.AssetClass]SizingProfile `yaml:"position"`
	Portfolio     PortfolioConfig                     `yaml:"portfolio"`
	Output        OutputConfig                        `yaml:"output"`
	Storage       StorageConfig                       `yaml:"storage"`
	Log           LogConfig                           `yaml:"log"`
}

// DataConfig locates the price source.
type DataConfig struct {
	Path       string   `yaml:"path"`        // wide CSV with one column per symbol
	DateColumn string   `yaml:"date_column"` // header of the timestamp column
	Dataset    string   `yaml:"dataset"`     // dataset name in the price store
	Symbols    []string `yaml:"symbols"`     // required columns; empty means all
}

// FrequencyConfig parameterizes one signal frequency.
type FrequencyConfig struct {
	Label          string  `yaml:"freq_label"`
	Rule           string  `yaml:"rule"`   // resample rule; empty means source is already at this frequency
	Source         string  `yaml:"source"` // optional per-frequency data file or dataset
	UpStreak       int     `yaml:"up_streak"`
	DownStreak     int     `yaml:"down_streak"`
	HoldingPeriods int     `yaml:"holding_periods"`
	MinAmplitude   float64 `yaml:"min_amplitude"`
}

// RequiredHistory returns the minimum number of periods a symbol needs.
func (f FrequencyConfig) RequiredHistory(buffer int) int {
	return f.UpStreak + f.DownStreak + buffer
}

// TradingConfig controls signal direction and timing.
type TradingConfig struct {
	LongOnly        bool            `yaml:"long_only"`
	EntryTiming     EntryTiming     `yaml:"entry_timing"`
	AmplitudeAnchor AmplitudeAnchor `yaml:"amplitude_anchor"`
	HistoryBuffer   int             `yaml:"history_buffer"`
}

// SizingProfile maps amplitude to weight for one asset class.
type SizingProfile struct {
	Sensitivity float64 `yaml:"sensitivity"`
	MinPos      float64 `yaml:"min_pos"`
	MaxPos      float64 `yaml:"max_pos"`
}

// PortfolioConfig holds portfolio-level risk limits and costs.
type PortfolioConfig struct {
	GrossCap         float64 `yaml:"gross_cap"`
	PerSymbolCap     float64 `yaml:"per_symbol_cap"`
	RoundTripCostBps float64 `yaml:"round_trip_cost_bps"`
}

// OutputConfig names the result files.
type OutputConfig struct {
	Dir        string `yaml:"dir"`
	SummaryCSV string `yaml:"summary_csv"`
	EquityCSV  string `yaml:"equity_csv"`
	TradesCSV  string `yaml:"trades_csv"`
	ByAssetCSV string `yaml:"by_asset_csv"`
	ByFreqCSV  string `yaml:"by_freq_csv"`
}

// StorageConfig holds optional database connections.
type StorageConfig struct {
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
}

// LogConfig configures the zerolog logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json | console
}

// FrequencyNames returns frequency keys in sorted order.
func (c *Config) FrequencyNames() []string {
	names := make([]string, 0, len(c.Frequencies))
	for name := range c.Frequencies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AssetClassOf maps a symbol to its asset class, DEFAULT when unmapped.
func (c *Config) AssetClassOf(symbol string) domain.AssetClass {
	if class, ok := c.AssetClassMap[symbol]; ok && class != "" {
		return class
	}
	return domain.AssetClassDefault
}

// Profile returns the sizing profile for a class, falling back to DEFAULT.
func (c *Config) Profile(class domain.AssetClass) SizingProfile {
	if p, ok := c.Position[class]; ok {
		return p
	}
	return c.Position[domain.AssetClassDefault]
}

// HistoryBuffer returns the configured buffer. Zero is a valid buffer;
// Default() supplies DefaultHistoryBuffer.
func (c *Config) HistoryBuffer() int {
	return c.Trading.HistoryBuffer
}
