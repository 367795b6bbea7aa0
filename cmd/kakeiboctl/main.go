// Command kakeiboctl reads and edits the household ledger from a terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"kakeibo/internal/cli"
	"kakeibo/internal/config"
	"kakeibo/internal/core"
	"kakeibo/internal/log"
)

var flagPeriod string

var rootCmd = &cobra.Command{
	Use:           "kakeiboctl",
	Short:         "Household ledger CLI",
	Long:          "Record shared expenses, settle the month and manage the shopping list.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagPeriod, "period", "p", "", "Month to show as YYYY-MM (default: current month)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// period resolves --period, defaulting to the current calendar month.
func period() (core.Period, error) {
	if flagPeriod == "" {
		return core.CurrentPeriod(time.Now()), nil
	}
	return core.ParsePeriod(flagPeriod)
}

func loadConfig() (*config.Config, *log.Logger, error) {
	cfg, err := cli.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, cli.SetupLogger(cfg, log.ComponentApp), nil
}

// withLedger opens the configured backend for the duration of fn.
func withLedger(cmd *cobra.Command, fn func(l *cli.Ledger) error) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	l, err := cli.OpenLedger(cmd.Context(), cfg, logger, nil)
	if err != nil {
		return err
	}
	defer l.Close(logger)
	return fn(l)
}
