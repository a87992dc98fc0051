// Command contrarian runs streak-reversal backtests over multi-asset price
// history and analyses their results.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"contrarian-lab/internal/backtest"
	"contrarian-lab/internal/config"
	"contrarian-lab/internal/logging"
)

// Environment fallbacks for the storage DSNs.
const (
	envPostgresDSN   = "CONTRARIAN_POSTGRES_DSN"
	envClickhouseDSN = "CONTRARIAN_CLICKHOUSE_DSN"
)

// Exit codes.
const (
	exitError         = 1
	exitConfiguration = 2
	exitEmpty         = 3
)

type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
	envFile    string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "contrarian",
		Short:         "Contrarian streak backtesting engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadEnvFile(opts.envFile, cmd.Flags().Changed("env-file"))
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "YAML or JSON config file overlaid on the defaults")
	pf.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&opts.logFormat, "log-format", logging.FormatConsole, "Log format (console, json)")
	pf.StringVar(&opts.envFile, "env-file", ".env", "Environment file to load before reading DSNs")

	root.AddCommand(
		newBacktestCmd(opts),
		newAnalyzeCmd(opts),
		newIngestCmd(opts),
		newMigrateCmd(opts),
		newVerifyCmd(opts),
	)
	return root
}

// loadEnvFile loads path into the environment. A missing default file is
// ignored; a missing explicit one is an error.
func loadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// resolveConfig loads the config file, fills storage DSNs from the
// environment and applies explicit flags, in that order.
func resolveConfig(cmd *cobra.Command, opts *rootOptions, o config.Overrides) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if cfg.Storage.PostgresDSN == "" {
		cfg.Storage.PostgresDSN = os.Getenv(envPostgresDSN)
	}
	if cfg.Storage.ClickhouseDSN == "" {
		cfg.Storage.ClickhouseDSN = os.Getenv(envClickhouseDSN)
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		o.LogLevel = &opts.logLevel
	}
	if flags.Changed("log-format") {
		o.LogFormat = &opts.logFormat
	}
	o.Apply(cfg)
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) zerolog.Logger {
	return logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr()).
		With().Str("cmd", cmd.Name()).Logger()
}

// stringFlag returns a pointer to v when the flag was set explicitly.
func stringFlag(cmd *cobra.Command, name string, v *string) *string {
	if cmd.Flags().Changed(name) {
		return v
	}
	return nil
}

func float64Flag(cmd *cobra.Command, name string, v *float64) *float64 {
	if cmd.Flags().Changed(name) {
		return v
	}
	return nil
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, backtest.ErrConfiguration):
		return exitConfiguration
	case errors.Is(err, backtest.ErrEmptyResult):
		return exitEmpty
	default:
		return exitError
	}
}

func requireDSN(dsn, name, env string) error {
	if dsn == "" {
		return &backtest.ConfigurationError{Field: name, Reason: "not set (flag, config file or " + env + ")"}
	}
	return nil
}
