package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/graygillman/CapmAnalysis/service/core"
	"github.com/graygillman/CapmAnalysis/service/report"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <ticker> <benchmark> <risk free>",
	Short: "Run one CAPM analysis and write the workbook and charts",
	Example: `  capm analyze AAPL ^GSPC ^TYX
  capm analyze MSFT SPY ^IRX --frequency D --out ./reports`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		frequency, _ := cmd.Flags().GetString("frequency")
		outDir, _ := cmd.Flags().GetString("out")
		noFiles, _ := cmd.Flags().GetBool("no-files")

		req, err := core.NewAnalysisRequest(args[0], args[1], args[2], frequency, core.SourceCLI)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		app, err := newApplication(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer app.Close()

		res, err := app.sc.RunAnalysis(ctx, req)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		printAnalysis(out, res, app.sc.Reporter)

		if noFiles {
			return nil
		}

		written, err := writeReports(res, app.sc.Reporter, outDir)
		for _, path := range written {
			fmt.Fprintf(out, "wrote %s\n", path)
		}
		return err
	},
}

func init() {
	analyzeCmd.Flags().StringP("frequency", "f", "M", "D for daily or M for monthly returns")
	analyzeCmd.Flags().StringP("out", "o", ".", "directory the workbook and charts are written under, in a folder per ticker")
	analyzeCmd.Flags().Bool("no-files", false, "only print the results")
}

// writeReports writes the workbook and both charts to <dir>/<ticker>/ and returns the paths written
func writeReports(res *core.AnalysisResult, rp core.Reporter, dir string) ([]string, error) {
	dir = filepath.Join(dir, report.SheetName(res.Request.Ticker))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating %s: %w", dir, err)
	}

	files := []struct {
		name   string
		render func(*core.AnalysisResult) ([]byte, error)
	}{
		{rp.WorkbookName(res), rp.Workbook},
		{"regression_plot.png", rp.RegressionChart},
		{"rolling_beta_plot.png", rp.RollingBetaChart},
	}

	var written []string
	for _, f := range files {
		body, err := f.render(res)
		if err != nil {
			return written, fmt.Errorf("error rendering %s: %w", f.name, err)
		}

		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, body, 0o644); err != nil {
			return written, fmt.Errorf("error writing %s: %w", path, err)
		}
		written = append(written, path)
	}

	return written, nil
}
