package core

import (
	"fmt"

	ex "github.com/graygillman/CapmAnalysis/data/extensions"
	m "github.com/graygillman/CapmAnalysis/data/models"
	sm "github.com/graygillman/CapmAnalysis/service/models"
)

// ExcessLabel is how the excess return column of a symbol is named in tables and charts
func ExcessLabel(symbol string) string {
	return fmt.Sprintf("%s - RF", symbol)
}

// RollingBetaLabel names the series of one window width
func RollingBetaLabel(width int) string {
	return fmt.Sprintf("Rolling Beta %dM", width)
}

func buildAnalysisResponse(res *AnalysisResult, summary string) *sm.AnalysisResponse {
	frame := res.Frame
	reg := res.Regression

	resp := &sm.AnalysisResponse{
		Ticker:          res.Request.Ticker,
		Benchmark:       res.Request.Benchmark,
		RiskFree:        res.Request.RiskFree,
		Frequency:       string(res.Request.Frequency),
		FirstDate:       ex.FmtShort(frame.FirstDate),
		LastDate:        ex.FmtShort(frame.LastDate),
		YearsDifference: frame.YearsDifference,
		Observations:    frame.Len(),
		RiskFreeDropped: frame.RiskFreeDropped,
		Regression: sm.RegressionTable{
			Rows: []sm.CoefficientRow{
				mapCoefficient("const", reg.Alpha),
				mapCoefficient(ExcessLabel(res.Request.Benchmark), reg.Beta),
			},
			RSquared:         reg.RSquared,
			DegreesOfFreedom: reg.DegreesOfFreedom,
		},
		Betas:        make([]sm.HorizonBetaResponse, len(res.Betas)),
		RollingBetas: make([]sm.RollingBetaSeries, 0, len(res.RollingWindows)),
		Summary:      summary,
	}

	for i, b := range res.Betas {
		resp.Betas[i] = sm.HorizonBetaResponse{Years: b.Years, Periods: b.Periods, Beta: b.Beta}
	}

	dates := frame.Dates()
	for _, w := range res.RollingWindows {
		series := sm.RollingBetaSeries{Window: w, Name: RollingBetaLabel(w), Points: []sm.RollingBetaPoint{}}
		for i, b := range res.RollingBetas[w] {
			if b.Valid {
				series.Points = append(series.Points, sm.RollingBetaPoint{Date: ex.FmtShort(dates[i]), Beta: b.Float64})
			}
		}
		resp.RollingBetas = append(resp.RollingBetas, series)
	}

	return resp
}

func mapCoefficient(name string, c Coefficient) sm.CoefficientRow {
	return sm.CoefficientRow{
		Name:        name,
		Coefficient: c.Value,
		StdError:    c.StdError,
		TValue:      c.TValue,
		PValue:      c.PValue,
	}
}

func buildSettingsResponse(settings AnalysisSettings, trigger string) *sm.SettingsResponse {
	freqs := []m.Frequency{m.Daily, m.Monthly}
	res := &sm.SettingsResponse{
		Frequencies:           make([]sm.FrequencyOption, len(freqs)),
		RollingWindows:        settings.RollingWindows,
		HorizonPeriodsPerYear: settings.HorizonPeriodsPerYear,
		RiskFreePolicy:        string(settings.RiskFreePolicy),
		SMSTrigger:            trigger,
	}

	for i, f := range freqs {
		res.Frequencies[i] = sm.FrequencyOption{
			Code:           string(f),
			Name:           f.Word(),
			PeriodsPerYear: f.PeriodsPerYear(),
			Horizons:       settings.Horizons(f),
		}
	}

	return res
}
