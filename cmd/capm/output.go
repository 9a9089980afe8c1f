package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/guregu/null/v6"

	"github.com/graygillman/CapmAnalysis/service/core"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	titleStyle  = lipgloss.NewStyle().Bold(true).MarginTop(1)
)

// printAnalysis writes the regression table followed by the beta summary
func printAnalysis(w io.Writer, res *core.AnalysisResult, rp core.Reporter) {
	reg := res.Regression

	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("", "Coefficient", "Std. Error", "t-value", "p-value").
		Row(coefficientCells("const", reg.Alpha)...).
		Row(coefficientCells(core.ExcessLabel(res.Request.Benchmark), reg.Beta)...)

	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s %s Returns on %s", res.Request.Ticker, res.Request.Frequency.Word(), res.Request.Benchmark)))
	fmt.Fprintln(w, t.String())
	fmt.Fprintf(w, "Observations: %d  R-squared: %s\n", reg.Observations, formatNull(reg.RSquared))
	if res.Frame.RiskFreeDropped > 0 {
		fmt.Fprintf(w, "Rows dropped without a %s quote: %d\n", res.Request.RiskFree, res.Frame.RiskFreeDropped)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, rp.Summary(res))

	for _, width := range res.RollingWindows {
		fmt.Fprintf(w, "Latest %s: %s\n", core.RollingBetaLabel(width), formatNull(res.RollingBetas.Latest(width)))
	}
}

func coefficientCells(name string, c core.Coefficient) []string {
	return []string{
		name,
		strconv.FormatFloat(c.Value, 'f', 6, 64),
		formatNull(c.StdError),
		formatNull(c.TValue),
		formatNull(c.PValue),
	}
}

func formatNull(v null.Float) string {
	if !v.Valid {
		return "n/a"
	}
	return strconv.FormatFloat(v.Float64, 'f', 4, 64)
}
