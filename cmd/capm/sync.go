package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	m "github.com/graygillman/CapmAnalysis/data/models"
)

var syncCmd = &cobra.Command{
	Use:   "sync [symbol...]",
	Short: "Refresh the cached prices of the given symbols, or of every saved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Database.URL == "" {
			return errors.New("sync needs a database, set database.url or DATABASE_URL")
		}

		ctx := cmd.Context()
		app, err := newApplication(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer app.Close()

		out := cmd.OutOrStdout()
		if len(args) == 0 {
			n, err := app.sc.SyncConfiguredSymbols(ctx)
			fmt.Fprintf(out, "synced %d symbols\n", n)
			return err
		}

		frequency, _ := cmd.Flags().GetString("frequency")
		freq, err := m.ParseFrequency(frequency)
		if err != nil {
			return err
		}

		var errs []error
		for _, arg := range args {
			symbol := strings.ToUpper(arg)
			refreshed, err := app.sc.Syncer.SyncSymbolTimeSeriesData(ctx, symbol, freq)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", symbol, err))
				continue
			}
			fmt.Fprintf(out, "%s refreshed %s\n", symbol, refreshed.Format("2006-01-02 15:04:05"))
		}
		return errors.Join(errs...)
	},
}

func init() {
	syncCmd.Flags().StringP("frequency", "f", "M", "D for daily or M for monthly prices")
}
