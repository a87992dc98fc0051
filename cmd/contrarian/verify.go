package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"contrarian-lab/internal/backtest"
	"contrarian-lab/internal/config"
	pgstore "contrarian-lab/internal/storage/postgres"
	"contrarian-lab/internal/verification"
)

// errVerificationFailed is returned when a replay diverges from storage.
var errVerificationFailed = errors.New("verification failed")

type verifyOptions struct {
	runID         string
	data          string
	source        string
	postgresDSN   string
	clickhouseDSN string
}

func newVerifyCmd(root *rootOptions) *cobra.Command {
	opts := &verifyOptions{}
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Replay a persisted run and compare it with storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVerify(cmd, root, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.runID, "run-id", "", "Run to verify")
	f.StringVar(&opts.data, "data", "", "Wide price CSV used by the run")
	f.StringVar(&opts.source, "source", sourceCSV, "Price source (csv, clickhouse)")
	f.StringVar(&opts.postgresDSN, "postgres-dsn", "", "PostgreSQL connection string")
	f.StringVar(&opts.clickhouseDSN, "clickhouse-dsn", "", "ClickHouse connection string for --source clickhouse")
	_ = cmd.MarkFlagRequired("run-id")
	return cmd
}

func runVerify(cmd *cobra.Command, root *rootOptions, opts *verifyOptions) error {
	ctx := cmd.Context()
	cfg, err := resolveConfig(cmd, root, config.Overrides{
		DataPath:      stringFlag(cmd, "data", &opts.data),
		PostgresDSN:   stringFlag(cmd, "postgres-dsn", &opts.postgresDSN),
		ClickhouseDSN: stringFlag(cmd, "clickhouse-dsn", &opts.clickhouseDSN),
	})
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg)
	if err := requireDSN(cfg.Storage.PostgresDSN, "storage.postgres_dsn", envPostgresDSN); err != nil {
		return err
	}

	provider, closeProvider, err := openProvider(ctx, cfg, opts.source)
	if err != nil {
		return err
	}
	defer closeProvider()

	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	verifier := verification.NewReplayVerifier(verification.ReplayVerifierOptions{
		RunStore:    pgstore.NewRunStore(pool),
		TradeStore:  pgstore.NewTradeStore(pool),
		EquityStore: pgstore.NewEquityStore(pool),
		Engine:      backtest.NewEngine(cfg).WithLogger(logger),
		Provider:    provider,
	})
	report, err := verifier.VerifyRun(ctx, opts.runID)
	if err != nil {
		return err
	}

	printReport(cmd.OutOrStdout(), report)
	if !report.OK() {
		return fmt.Errorf("run %s: %w", opts.runID, errVerificationFailed)
	}
	logger.Info().Str("run_id", opts.runID).Int("trades", report.MatchedTrades).Msg("run verified")
	return nil
}

func printReport(w io.Writer, r *verification.Report) {
	fmt.Fprintf(w, "Run %s\n", r.RunID)
	fmt.Fprintf(w, "  trades: %d stored, %d replayed, %d matched, %d divergent\n",
		r.StoredTrades, r.ReplayedTrades, r.MatchedTrades, r.DivergentTrades)
	for _, id := range r.Missing {
		fmt.Fprintf(w, "  missing from replay: %s\n", id)
	}
	for _, id := range r.Unexpected {
		fmt.Fprintf(w, "  not in storage: %s\n", id)
	}
	for _, res := range r.Results {
		for _, d := range res.Divergences {
			fmt.Fprintf(w, "  %s %s: stored %v, replayed %v\n", res.TradeID, d.Field, d.Expected, d.Actual)
		}
	}
	for _, d := range r.EquityDivergences {
		fmt.Fprintf(w, "  equity %s: stored %v, replayed %v\n", d.Field, d.Expected, d.Actual)
	}
	if r.RunID != r.ReplayedRunID {
		fmt.Fprintf(w, "  replayed run id: %s\n", r.ReplayedRunID)
	}
}
