package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"contrarian-lab/internal/config"
	"contrarian-lab/internal/storage/migrations"
	pgstore "contrarian-lab/internal/storage/postgres"
)

// Migration targets.
const (
	targetPostgres   = "postgres"
	targetClickhouse = "clickhouse"
	targetAll        = "all"
)

type migrateOptions struct {
	postgresDSN   string
	clickhouseDSN string
}

func newMigrateCmd(root *rootOptions) *cobra.Command {
	opts := &migrateOptions{}
	cmd := &cobra.Command{
		Use:       "migrate [postgres|clickhouse|all]",
		Short:     "Apply the embedded schema migrations",
		Long:      "Applies the embedded schema. With \"all\" (the default), databases without a DSN are skipped.",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{targetPostgres, targetClickhouse, targetAll},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := targetAll
			if len(args) == 1 {
				target = args[0]
			}
			return runMigrate(cmd, root, opts, target)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.postgresDSN, "postgres-dsn", "", "PostgreSQL connection string")
	f.StringVar(&opts.clickhouseDSN, "clickhouse-dsn", "", "ClickHouse connection string")
	return cmd
}

func runMigrate(cmd *cobra.Command, root *rootOptions, opts *migrateOptions, target string) error {
	ctx := cmd.Context()
	cfg, err := resolveConfig(cmd, root, config.Overrides{
		PostgresDSN:   stringFlag(cmd, "postgres-dsn", &opts.postgresDSN),
		ClickhouseDSN: stringFlag(cmd, "clickhouse-dsn", &opts.clickhouseDSN),
	})
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg)

	all := target == targetAll
	applied := 0

	if target == targetPostgres || (all && cfg.Storage.PostgresDSN != "") {
		if err := requireDSN(cfg.Storage.PostgresDSN, "storage.postgres_dsn", envPostgresDSN); err != nil {
			return err
		}
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return err
		}
		err = migrations.RunPostgresMigrations(ctx, pool)
		pool.Close()
		if err != nil {
			return err
		}
		applied++
		logger.Info().Str("database", targetPostgres).Msg("migrations applied")
	}

	if target == targetClickhouse || (all && cfg.Storage.ClickhouseDSN != "") {
		if err := requireDSN(cfg.Storage.ClickhouseDSN, "storage.clickhouse_dsn", envClickhouseDSN); err != nil {
			return err
		}
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			return err
		}
		_ = conn.Close()
		applied++
		logger.Info().Str("database", targetClickhouse).Msg("migrations applied")
	}

	if applied == 0 {
		return fmt.Errorf("no database configured: set %s or %s", envPostgresDSN, envClickhouseDSN)
	}
	return nil
}
