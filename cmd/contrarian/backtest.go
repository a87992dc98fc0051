package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"contrarian-lab/internal/backtest"
	"contrarian-lab/internal/config"
	"contrarian-lab/internal/ingestion"
	"contrarian-lab/internal/observability"
	"contrarian-lab/internal/reporting"
	chstore "contrarian-lab/internal/storage/clickhouse"
	"contrarian-lab/internal/storage/migrations"
	pgstore "contrarian-lab/internal/storage/postgres"
)

// Price sources of the backtest command.
const (
	sourceCSV        = "csv"
	sourceClickhouse = "clickhouse"
)

type backtestOptions struct {
	data          string
	dateColumn    string
	dataset       string
	outputDir     string
	allowShort    bool
	entryTiming   string
	costBps       float64
	grossCap      float64
	perSymbolCap  float64
	postgresDSN   string
	clickhouseDSN string

	source      string
	persist     bool
	metricsAddr string
	parallelism int
	quiet       bool
}

func newBacktestCmd(root *rootOptions) *cobra.Command {
	opts := &backtestOptions{}
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Run the contrarian backtest and write the result tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBacktest(cmd, root, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.data, "data", "", "Wide price CSV (date column plus one column per symbol)")
	f.StringVar(&opts.dateColumn, "date-column", "", "Header of the date column")
	f.StringVar(&opts.dataset, "dataset", "", "ClickHouse dataset read with --source clickhouse")
	f.StringVar(&opts.outputDir, "output-dir", "", "Directory for the result tables")
	f.BoolVar(&opts.allowShort, "allow-short", false, "Trade up-streaks short as well as down-streaks long")
	f.StringVar(&opts.entryTiming, "entry-timing", "", "Entry timing (signal_close, next_close)")
	f.Float64Var(&opts.costBps, "cost-bps", 0, "Round-trip cost in basis points")
	f.Float64Var(&opts.grossCap, "gross-cap", 0, "Gross leverage cap per entry cohort")
	f.Float64Var(&opts.perSymbolCap, "per-symbol-cap", 0, "Weight cap per position")
	f.StringVar(&opts.postgresDSN, "postgres-dsn", "", "PostgreSQL connection string for --persist")
	f.StringVar(&opts.clickhouseDSN, "clickhouse-dsn", "", "ClickHouse connection string for --source clickhouse")
	f.StringVar(&opts.source, "source", sourceCSV, "Price source (csv, clickhouse)")
	f.BoolVar(&opts.persist, "persist", false, "Store run, trades and equity in PostgreSQL")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running")
	f.IntVar(&opts.parallelism, "parallelism", 0, "Concurrent signal scans (0 = GOMAXPROCS)")
	f.BoolVar(&opts.quiet, "quiet", false, "Do not print the summary table")
	return cmd
}

func (o *backtestOptions) overrides(cmd *cobra.Command) config.Overrides {
	ov := config.Overrides{
		DataPath:         stringFlag(cmd, "data", &o.data),
		DateColumn:       stringFlag(cmd, "date-column", &o.dateColumn),
		Dataset:          stringFlag(cmd, "dataset", &o.dataset),
		OutputDir:        stringFlag(cmd, "output-dir", &o.outputDir),
		GrossCap:         float64Flag(cmd, "gross-cap", &o.grossCap),
		PerSymbolCap:     float64Flag(cmd, "per-symbol-cap", &o.perSymbolCap),
		RoundTripCostBps: float64Flag(cmd, "cost-bps", &o.costBps),
		PostgresDSN:      stringFlag(cmd, "postgres-dsn", &o.postgresDSN),
		ClickhouseDSN:    stringFlag(cmd, "clickhouse-dsn", &o.clickhouseDSN),
	}
	if cmd.Flags().Changed("allow-short") {
		longOnly := !o.allowShort
		ov.LongOnly = &longOnly
	}
	if cmd.Flags().Changed("entry-timing") {
		timing := config.EntryTiming(o.entryTiming)
		ov.EntryTiming = &timing
	}
	return ov
}

func runBacktest(cmd *cobra.Command, root *rootOptions, opts *backtestOptions) error {
	ctx := cmd.Context()
	cfg, err := resolveConfig(cmd, root, opts.overrides(cmd))
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg)

	reg := prometheus.NewRegistry()
	recorder := observability.NewMetrics("", reg)
	if opts.metricsAddr != "" {
		stop := startMetricsServer(opts.metricsAddr, reg, logger)
		defer stop()
	}

	provider, closeProvider, err := openProvider(ctx, cfg, opts.source)
	if err != nil {
		return err
	}
	defer closeProvider()

	engine := backtest.NewEngine(cfg).
		WithLogger(logger).
		WithRecorder(recorder)
	if opts.parallelism > 0 {
		engine = engine.WithParallelism(opts.parallelism)
	}
	runner := backtest.NewRunner(engine, provider).WithLogger(logger)

	if opts.persist {
		if err := requireDSN(cfg.Storage.PostgresDSN, "storage.postgres_dsn", envPostgresDSN); err != nil {
			return err
		}
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return err
		}
		defer pool.Close()

		start := time.Now()
		err = migrations.RunPostgresMigrations(ctx, pool)
		recorder.RecordDBQuery("postgres", "migrate", time.Since(start), err)
		if err != nil {
			return err
		}
		runner = runner.WithStores(
			pgstore.NewRunStore(pool),
			pgstore.NewTradeStore(pool),
			pgstore.NewEquityStore(pool),
		)
	}

	start := time.Now()
	out, err := runner.Run(ctx)
	if opts.persist {
		recorder.RecordDBQuery("postgres", "persist_run", time.Since(start), err)
	}
	if err != nil {
		return err
	}

	res := out.Result
	tables := reporting.Tables{
		Summary:     res.Summary.Metrics(),
		Equity:      res.Curve.Points,
		Trades:      res.Book.Trades(),
		ByAsset:     res.ByAsset,
		ByFrequency: res.ByFrequency,
	}
	files, err := reporting.NewGenerator().ResultFiles(tables, cfg.Output)
	if err != nil {
		return err
	}
	if err := reporting.WriteFiles(cfg.Output.Dir, files); err != nil {
		return err
	}
	logger.Info().
		Str("run_id", out.Run.RunID).
		Str("output_dir", cfg.Output.Dir).
		Bool("persisted", out.Persisted).
		Msg("results written")

	if !opts.quiet {
		printSummary(cmd.OutOrStdout(), out)
	}
	return nil
}

// openProvider returns the price provider for source and its cleanup.
func openProvider(ctx context.Context, cfg *config.Config, source string) (backtest.SeriesProvider, func(), error) {
	switch source {
	case sourceCSV:
		p := ingestion.NewCSVProvider(cfg.Data.Path, ingestion.CSVOptions{
			DateColumn: cfg.Data.DateColumn,
			Required:   cfg.Data.Symbols,
			ClassOf:    cfg.AssetClassOf,
		})
		return p, func() {}, nil
	case sourceClickhouse:
		if err := requireDSN(cfg.Storage.ClickhouseDSN, "storage.clickhouse_dsn", envClickhouseDSN); err != nil {
			return nil, nil, err
		}
		conn, err := chstore.NewConn(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			return nil, nil, err
		}
		p := ingestion.NewStoreProvider(chstore.NewPriceSeriesStore(conn), cfg.Data.Dataset, cfg.AssetClassOf)
		return p, func() { _ = conn.Close() }, nil
	default:
		return nil, nil, &backtest.ConfigurationError{Field: "source", Reason: fmt.Sprintf("unknown price source %q", source)}
	}
}

// startMetricsServer serves reg in the background and returns its shutdown.
func startMetricsServer(addr string, reg *prometheus.Registry, logger zerolog.Logger) func() {
	srv := observability.NewServer(addr, reg)
	go func() {
		logger.Info().Str("addr", addr).Msg("metrics server started")
		if err := observability.Serve(srv); err != nil {
			logger.Error().Err(err).Msg("metrics server failed")
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func printSummary(w io.Writer, out *backtest.Output) {
	res := out.Result
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Run\t%s\n", out.Run.RunID)
	for _, m := range res.Summary.Metrics() {
		fmt.Fprintf(tw, "%s\t%.6g\n", m.Metric, m.Value)
	}
	fmt.Fprintf(tw, "Cohorts\t%d (%d delevered)\n", res.Cohorts, res.Delevered)
	fmt.Fprintf(tw, "Skipped series\t%d\n", len(res.Skipped))
	_ = tw.Flush()
}
