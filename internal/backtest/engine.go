// Package backtest runs the contrarian pipeline end to end:
// resample → streak signals → sizing → cohort allocation → costs →
// trade book → equity curve → statistics.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"contrarian-lab/internal/config"
	"contrarian-lab/internal/domain"
	"contrarian-lab/internal/equity"
	"contrarian-lab/internal/ledger"
	"contrarian-lab/internal/metrics"
	"contrarian-lab/internal/portfolio"
	"contrarian-lab/internal/resample"
	"contrarian-lab/internal/signal"
	"contrarian-lab/internal/sizing"
)

// SeriesProvider supplies gap-filled price series. The empty source names
// the default data set; a frequency with its own source asks for that one.
type SeriesProvider interface {
	Load(ctx context.Context, source string) ([]*domain.PriceSeries, error)
}

// Result is the output of one run.
type Result struct {
	Book        *ledger.TradeBook
	Curve       *equity.Curve
	Summary     *metrics.Summary
	ByAsset     []domain.AssetBreakdownRow
	ByFrequency []domain.FrequencyBreakdownRow

	Cohorts    int
	Delevered  int                                  // cohorts scaled down by the gross cap
	ZeroWeight int                                  // formations sized to zero
	Skipped    []*domain.DataInsufficiencyError     // in frequency, then provider order
	Dropped    map[string]map[signal.DropReason]int // by frequency label
}

// Engine runs backtests for one configuration.
type Engine struct {
	cfg         *config.Config
	logger      zerolog.Logger
	recorder    Recorder
	parallelism int
}

// NewEngine creates an engine. The configuration is validated on every Run.
func NewEngine(cfg *config.Config) *Engine {
	return &Engine{
		cfg:         cfg,
		logger:      zerolog.Nop(),
		recorder:    nopRecorder{},
		parallelism: runtime.GOMAXPROCS(0),
	}
}

// WithLogger sets the logger.
func (e *Engine) WithLogger(logger zerolog.Logger) *Engine {
	e.logger = logger
	return e
}

// WithRecorder sets the telemetry sink.
func (e *Engine) WithRecorder(r Recorder) *Engine {
	if r != nil {
		e.recorder = r
	}
	return e
}

// WithParallelism bounds concurrent signal generation. n < 1 means one.
func (e *Engine) WithParallelism(n int) *Engine {
	if n < 1 {
		n = 1
	}
	e.parallelism = n
	return e
}

// Config returns the engine configuration.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// job is one (frequency, symbol) scan.
type job struct {
	name   string
	gen    *signal.Generator
	freq   config.FrequencyConfig
	series *domain.PriceSeries
}

// Run executes the pipeline. It returns a *domain.ConfigurationError for a
// bad configuration and ErrEmptyResult when no trade survives sizing.
func (e *Engine) Run(ctx context.Context, provider SeriesProvider) (res *Result, err error) {
	start := time.Now()
	defer func() {
		status := StatusSuccess
		switch {
		case errors.Is(err, ErrEmptyResult):
			status = StatusEmpty
		case err != nil:
			status = StatusError
		}
		e.recorder.RunCompleted(status, time.Since(start))
	}()

	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}

	jobs, err := e.plan(ctx, provider)
	if err != nil {
		return nil, err
	}

	// Pass 1: every (frequency, symbol) independently.
	slots := make([]signal.Result, len(jobs))
	skips := make([]*domain.DataInsufficiencyError, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)
	for i, j := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := j.gen.Generate(j.series)
			var insufficient *domain.DataInsufficiencyError
			if errors.As(err, &insufficient) {
				skips[i] = insufficient
				return nil
			}
			if err != nil {
				return fmt.Errorf("generate %s/%s: %w", j.name, j.series.Symbol, err)
			}
			slots[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res = &Result{Dropped: make(map[string]map[signal.DropReason]int)}
	candidates := e.size(jobs, slots, skips, res)
	if len(candidates) == 0 {
		e.logger.Warn().
			Int("jobs", len(jobs)).
			Int("skipped", len(res.Skipped)).
			Msg("no trades generated")
		return nil, fmt.Errorf("%w: %d series scanned, %d skipped", ErrEmptyResult, len(jobs), len(res.Skipped))
	}

	// Pass 2: the cohort barrier. Every candidate exists at this point.
	cohorts := portfolio.NewAllocator(e.cfg.Portfolio.GrossCap).Cohorts(candidates)
	for _, c := range cohorts {
		e.recorder.CohortAllocated(c.Gross, c.Delevered())
		if c.Delevered() {
			res.Delevered++
			e.logger.Debug().
				Time("entry_time", c.EntryTime).
				Int("members", len(c.Members)).
				Float64("gross", c.Gross).
				Float64("scale", c.Scale).
				Msg("cohort delevered")
		}
	}
	res.Cohorts = len(cohorts)

	trades := portfolio.Execute(cohorts, portfolio.NewCostModel(e.cfg.Portfolio.RoundTripCostBps))
	e.recorder.TradesExecuted(len(trades))

	res.Book = ledger.NewTradeBook(trades)
	res.Curve = equity.Build(res.Book.Trades())
	res.Summary, err = metrics.Compute(res.Book, res.Curve)
	if err != nil {
		return nil, fmt.Errorf("compute statistics: %w", err)
	}
	res.ByAsset = res.Book.ByAsset()
	res.ByFrequency = res.Book.ByFrequency()

	e.logger.Info().
		Int("trades", res.Book.Len()).
		Int("cohorts", res.Cohorts).
		Int("delevered", res.Delevered).
		Int("skipped", len(res.Skipped)).
		Float64("total_return", res.Summary.TotalReturn).
		Float64("max_drawdown", res.Summary.MaxDrawdown).
		Msg("backtest complete")

	return res, nil
}

// plan loads and resamples the series of every configured frequency.
func (e *Engine) plan(ctx context.Context, provider SeriesProvider) ([]job, error) {
	buffer := e.cfg.HistoryBuffer()
	var jobs []job
	for _, name := range e.cfg.FrequencyNames() {
		f := e.cfg.Frequencies[name]
		rule, err := resample.ParseRule(f.Rule)
		if err != nil {
			return nil, &domain.ConfigurationError{Field: "frequencies." + name + ".rule", Reason: err.Error()}
		}

		base, err := provider.Load(ctx, f.Source)
		if err != nil {
			return nil, fmt.Errorf("load prices for %s: %w", name, err)
		}

		gen := signal.NewGenerator(f, e.cfg.Trading, buffer)
		for _, s := range base {
			series := resample.Series(s, rule)
			if series.AssetClass == "" {
				series.AssetClass = e.cfg.AssetClassOf(series.Symbol)
			}
			jobs = append(jobs, job{name: name, gen: gen, freq: f, series: series})
		}
		e.logger.Debug().
			Str("frequency", f.Label).
			Str("rule", rule.Name).
			Int("symbols", len(base)).
			Msg("frequency planned")
	}
	return jobs, nil
}

// size turns formations into candidates in job order, recording skips and
// drops in res.
func (e *Engine) size(jobs []job, slots []signal.Result, skips []*domain.DataInsufficiencyError, res *Result) []domain.TradeCandidate {
	sizer := sizing.NewSizer(e.cfg, e.cfg.Portfolio.PerSymbolCap)

	var candidates []domain.TradeCandidate
	for i, j := range jobs {
		label := j.freq.Label
		if skips[i] != nil {
			res.Skipped = append(res.Skipped, skips[i])
			e.recorder.SymbolSkipped(label)
			e.logger.Debug().
				Str("symbol", j.series.Symbol).
				Str("frequency", label).
				Int("have", skips[i].Have).
				Int("need", skips[i].Need).
				Msg("insufficient history")
			continue
		}

		for reason, n := range slots[i].Dropped {
			if res.Dropped[label] == nil {
				res.Dropped[label] = make(map[signal.DropReason]int)
			}
			res.Dropped[label][reason] += n
			e.recorder.SignalsDropped(label, string(reason), n)
		}

		kept := 0
		for _, f := range slots[i].Formations {
			w := sizer.Size(f.AssetClass, f.Amplitude)
			if w <= 0 {
				res.ZeroWeight++
				continue
			}
			candidates = append(candidates, domain.TradeCandidate{
				SignalEvent: f.SignalEvent,
				RawWeight:   w,
				TradeReturn: f.TradeReturn,
			})
			kept++
		}
		e.recorder.SignalsGenerated(label, kept)
	}
	return candidates
}
