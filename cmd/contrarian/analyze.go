package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"contrarian-lab/internal/config"
	"contrarian-lab/internal/ledger"
	"contrarian-lab/internal/metrics"
	"contrarian-lab/internal/reporting"
	pgstore "contrarian-lab/internal/storage/postgres"
)

type analyzeOptions struct {
	inputDir    string
	outputDir   string
	runID       string
	postgresDSN string
	json        bool
}

func newAnalyzeCmd(root *rootOptions) *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Compute trade diagnostics and write the analysis report",
		Long: "Reads the result tables of a backtest, either from --input-dir or from a\n" +
			"persisted run (--run-id), and writes diagnostics tables plus a Markdown report.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalyze(cmd, root, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.inputDir, "input-dir", "", "Directory holding the backtest tables (default output.dir)")
	f.StringVar(&opts.outputDir, "output-dir", "", "Directory for analysis files (default <input>/analysis)")
	f.StringVar(&opts.runID, "run-id", "", "Analyse a run persisted in PostgreSQL")
	f.StringVar(&opts.postgresDSN, "postgres-dsn", "", "PostgreSQL connection string for --run-id")
	f.BoolVar(&opts.json, "json", false, "Also write "+reporting.FileSummaryJSON)
	cmd.MarkFlagsMutuallyExclusive("input-dir", "run-id")
	return cmd
}

func runAnalyze(cmd *cobra.Command, root *rootOptions, opts *analyzeOptions) error {
	ctx := cmd.Context()
	cfg, err := resolveConfig(cmd, root, config.Overrides{
		PostgresDSN: stringFlag(cmd, "postgres-dsn", &opts.postgresDSN),
	})
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg)

	var tables reporting.Tables
	inputDir := cfg.Output.Dir
	if opts.runID != "" {
		if err := requireDSN(cfg.Storage.PostgresDSN, "storage.postgres_dsn", envPostgresDSN); err != nil {
			return err
		}
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return err
		}
		defer pool.Close()

		agg := metrics.NewAggregator(pgstore.NewRunStore(pool), pgstore.NewTradeStore(pool), pgstore.NewEquityStore(pool))
		ra, err := agg.AnalyzeRun(ctx, opts.runID)
		if err != nil {
			return err
		}
		book := ledger.NewTradeBook(ra.Trades)
		tables = reporting.Tables{
			Summary:     ra.Run.Summary,
			Equity:      ra.Equity,
			Trades:      book.Trades(),
			ByAsset:     book.ByAsset(),
			ByFrequency: book.ByFrequency(),
		}
	} else {
		if opts.inputDir != "" {
			inputDir = opts.inputDir
		}
		tables, err = reporting.LoadTables(inputDir, cfg.Output)
		if err != nil {
			return err
		}
	}

	outputDir := opts.outputDir
	if outputDir == "" {
		outputDir = filepath.Join(inputDir, "analysis")
	}

	gen := reporting.NewGenerator()
	analysis, err := gen.Analyze(tables, opts.runID)
	if err != nil {
		return err
	}
	files, err := gen.AnalysisFiles(analysis, tables)
	if err != nil {
		return err
	}
	if opts.json {
		data, err := reporting.RenderJSON(analysis)
		if err != nil {
			return err
		}
		files[reporting.FileSummaryJSON] = string(data)
	}
	if err := reporting.WriteFiles(outputDir, files); err != nil {
		return err
	}

	logger.Info().
		Int("trades", analysis.Diagnostics.Trades).
		Str("output_dir", outputDir).
		Msg("analysis written")
	fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(outputDir, reporting.FileReport))
	return nil
}

