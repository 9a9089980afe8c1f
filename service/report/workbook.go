package report

import (
	"fmt"
	"strings"

	"github.com/guregu/null/v6"
	"github.com/xuri/excelize/v2"

	ex "github.com/graygillman/CapmAnalysis/data/extensions"
	m "github.com/graygillman/CapmAnalysis/data/models"
	"github.com/graygillman/CapmAnalysis/service/core"
)

const (
	SheetOLS        = "OLS Results"
	SheetCompleted  = "Completed Data"
	SheetBeta       = "Beta Analysis"
	chartAnchorCell = "G2"
	maxSheetName    = 31
)

// Workbook builds the xlsx export: the regression table with its chart, the aligned return frame
// with the rolling betas, one price sheet per symbol and the multi period betas
func (rp *Reporter) Workbook(res *core.AnalysisResult) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetOLS); err != nil {
		return nil, err
	}
	if err := writeOLSSheet(f, res); err != nil {
		return nil, fmt.Errorf("error writing %s: %w", SheetOLS, err)
	}

	if chart, err := rp.RegressionChart(res); err != nil {
		rp.log.Warn().Err(err).Msg("workbook written without regression chart")
	} else if err := f.AddPictureFromBytes(SheetOLS, chartAnchorCell, &excelize.Picture{
		Extension: ".png",
		File:      chart,
		Format:    &excelize.GraphicOptions{ScaleX: 0.6, ScaleY: 0.6},
	}); err != nil {
		return nil, fmt.Errorf("error adding regression chart: %w", err)
	}

	if err := writeCompletedSheet(f, res); err != nil {
		return nil, fmt.Errorf("error writing %s: %w", SheetCompleted, err)
	}

	used := map[string]bool{SheetOLS: true, SheetCompleted: true, SheetBeta: true}
	for _, ps := range []*m.PriceSeries{res.Asset, res.Benchmark, res.RiskFree} {
		if ps == nil {
			continue
		}
		name := SheetName(ps.Symbol)
		if used[name] {
			continue
		}
		used[name] = true
		if err := writePriceSheet(f, name, ps); err != nil {
			return nil, fmt.Errorf("error writing %s: %w", name, err)
		}
	}

	if err := writeBetaSheet(f, res); err != nil {
		return nil, fmt.Errorf("error writing %s: %w", SheetBeta, err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("error writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// SheetName strips the characters excel does not allow in a sheet name and truncates it
func SheetName(symbol string) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '_'
		}
		return r
	}, symbol)
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	if name == "" {
		name = "_"
	}
	return name
}

func writeOLSSheet(f *excelize.File, res *core.AnalysisResult) error {
	reg := res.Regression
	rows := [][]any{
		{"", "Coefficient", "Std. Error", "t-value", "p-value"},
		coefficientRow("const", reg.Alpha),
		coefficientRow(core.ExcessLabel(res.Request.Benchmark), reg.Beta),
		{},
		{"Observations", reg.Observations},
		{"R-squared", cell(reg.RSquared)},
	}
	return writeRows(f, SheetOLS, rows)
}

func coefficientRow(name string, c core.Coefficient) []any {
	return []any{name, c.Value, cell(c.StdError), cell(c.TValue), cell(c.PValue)}
}

func writeCompletedSheet(f *excelize.File, res *core.AnalysisResult) error {
	if _, err := f.NewSheet(SheetCompleted); err != nil {
		return err
	}

	req := res.Request
	header := []any{
		"Date",
		req.Ticker,
		req.Benchmark,
		fmt.Sprintf("%s (RF)", req.RiskFree),
		core.ExcessLabel(req.Ticker),
		core.ExcessLabel(req.Benchmark),
	}
	for _, w := range res.RollingWindows {
		header = append(header, core.RollingBetaLabel(w))
	}

	rows := [][]any{header}
	for i, r := range res.Frame.Rows() {
		row := []any{ex.FmtShort(r.Date), r.AssetReturn, r.BenchmarkReturn, r.RiskFree, r.AssetExcess, r.BenchmarkExcess}
		for _, w := range res.RollingWindows {
			var b null.Float
			if s := res.RollingBetas[w]; i < len(s) {
				b = s[i]
			}
			row = append(row, cell(b))
		}
		rows = append(rows, row)
	}

	return writeRows(f, SheetCompleted, rows)
}

func writePriceSheet(f *excelize.File, name string, ps *m.PriceSeries) error {
	if _, err := f.NewSheet(name); err != nil {
		return err
	}

	rows := make([][]any, 0, len(ps.Points)+1)
	rows = append(rows, []any{"Date", "Adj Close"})
	for _, p := range ps.Points {
		rows = append(rows, []any{ex.FmtShort(p.Timestamp), cell(p.AdjustedClose)})
	}
	return writeRows(f, name, rows)
}

func writeBetaSheet(f *excelize.File, res *core.AnalysisResult) error {
	if _, err := f.NewSheet(SheetBeta); err != nil {
		return err
	}

	rows := [][]any{{"Year", "Beta", "Periods"}}
	for _, b := range res.Betas {
		rows = append(rows, []any{fmt.Sprintf("%d Year Beta", b.Years), b.Beta, b.Periods})
	}
	return writeRows(f, SheetBeta, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		axis, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, axis, &row); err != nil {
			return err
		}
	}
	return nil
}

// cell leaves absent values as empty cells
func cell(v null.Float) any {
	if !v.Valid {
		return nil
	}
	return v.Float64
}
