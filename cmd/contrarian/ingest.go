package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"contrarian-lab/internal/config"
	"contrarian-lab/internal/ingestion"
	"contrarian-lab/internal/observability"
	"contrarian-lab/internal/storage"
	chstore "contrarian-lab/internal/storage/clickhouse"
	"contrarian-lab/internal/storage/migrations"
)

type ingestOptions struct {
	data          string
	dateColumn    string
	dataset       string
	clickhouseDSN string
	skipExisting  bool
	metricsAddr   string
}

func newIngestCmd(root *rootOptions) *cobra.Command {
	opts := &ingestOptions{}
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load a wide price CSV into a ClickHouse dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIngest(cmd, root, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.data, "data", "", "Wide price CSV to load (default data.path)")
	f.StringVar(&opts.dateColumn, "date-column", "", "Header of the date column")
	f.StringVar(&opts.dataset, "dataset", "", "Target dataset (default data.dataset)")
	f.StringVar(&opts.clickhouseDSN, "clickhouse-dsn", "", "ClickHouse connection string")
	f.BoolVar(&opts.skipExisting, "skip-existing", false, "Skip symbols whose observations are already stored")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running")
	return cmd
}

func runIngest(cmd *cobra.Command, root *rootOptions, opts *ingestOptions) error {
	ctx := cmd.Context()
	cfg, err := resolveConfig(cmd, root, config.Overrides{
		DataPath:      stringFlag(cmd, "data", &opts.data),
		DateColumn:    stringFlag(cmd, "date-column", &opts.dateColumn),
		Dataset:       stringFlag(cmd, "dataset", &opts.dataset),
		ClickhouseDSN: stringFlag(cmd, "clickhouse-dsn", &opts.clickhouseDSN),
	})
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg)
	if err := requireDSN(cfg.Storage.ClickhouseDSN, "storage.clickhouse_dsn", envClickhouseDSN); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	m := observability.NewMetrics("", reg)
	if opts.metricsAddr != "" {
		stop := startMetricsServer(opts.metricsAddr, reg, logger)
		defer stop()
	}

	series, err := ingestion.LoadCSVFile(cfg.Data.Path, ingestion.CSVOptions{
		DateColumn: cfg.Data.DateColumn,
		Required:   cfg.Data.Symbols,
		ClassOf:    cfg.AssetClassOf,
	})
	if err != nil {
		return err
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
	if err != nil {
		return err
	}
	defer conn.Close()
	store := chstore.NewPriceSeriesStore(conn)

	var written, skipped, points int
	for _, s := range series {
		start := time.Now()
		err := store.InsertSeries(ctx, cfg.Data.Dataset, s)
		m.RecordDBQuery("clickhouse", "insert_series", time.Since(start), err)
		if errors.Is(err, storage.ErrDuplicateKey) && opts.skipExisting {
			skipped++
			logger.Warn().Str("symbol", s.Symbol).Msg("series already stored, skipped")
			continue
		}
		if err != nil {
			return fmt.Errorf("ingest %s: %w", s.Symbol, err)
		}
		written++
		points += len(s.Points)
		m.RecordIngest(cfg.Data.Dataset, len(s.Points))
		logger.Debug().Str("symbol", s.Symbol).Int("points", len(s.Points)).Msg("series stored")
	}

	logger.Info().
		Str("dataset", cfg.Data.Dataset).
		Int("symbols", written).
		Int("skipped", skipped).
		Int("points", points).
		Msg("ingest complete")
	return nil
}
