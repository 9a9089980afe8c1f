package core

import (
	"math/rand/v2"
	"time"

	"github.com/guregu/null/v6"

	m "github.com/graygillman/CapmAnalysis/data/models"
)

var testStart = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

func monthlyDates(n int) []time.Time {
	res := make([]time.Time, n)
	for i := range n {
		res[i] = testStart.AddDate(0, i, 0)
	}
	return res
}

func seriesFrom(symbol string, dates []time.Time, prices []float64) *m.PriceSeries {
	ps := &m.PriceSeries{Symbol: symbol, Frequency: m.Monthly, Points: make([]m.PricePoint, len(prices))}
	for i, p := range prices {
		ps.Points[i] = m.PricePoint{Timestamp: dates[i], AdjustedClose: null.FloatFrom(p)}
	}
	return ps
}

func constantSeries(symbol string, dates []time.Time, value float64) *m.PriceSeries {
	prices := make([]float64, len(dates))
	for i := range prices {
		prices[i] = value
	}
	return seriesFrom(symbol, dates, prices)
}

// syntheticMarket builds n+1 monthly prices whose excess returns follow
// asset = alpha + beta*benchmark + noise, with a flat 2.4% risk free quote
func syntheticMarket(n int, alpha, beta float64, seed uint64) (asset, benchmark, riskFree *m.PriceSeries) {
	rng := rand.New(rand.NewPCG(seed, 7))
	dates := monthlyDates(n + 1)
	rf := 2.4 / 100 / 12

	ap := make([]float64, n+1)
	bp := make([]float64, n+1)
	ap[0], bp[0] = 100, 100
	for i := 1; i <= n; i++ {
		br := 0.008 + 0.04*rng.NormFloat64()
		ar := rf + alpha + beta*(br-rf) + 0.01*rng.NormFloat64()
		bp[i] = bp[i-1] * (1 + br)
		ap[i] = ap[i-1] * (1 + ar)
	}

	return seriesFrom("ASSET", dates, ap), seriesFrom("BENCH", dates, bp), constantSeries("RF", dates, 2.4)
}

// frameFromExcess builds a monthly frame with a zero risk free rate straight from excess returns
func frameFromExcess(x, y []float64) *ReturnFrame {
	dates := monthlyDates(len(x))
	rows := make([]ReturnRow, len(x))
	for i := range x {
		rows[i] = ReturnRow{
			Date:            dates[i],
			AssetReturn:     y[i],
			BenchmarkReturn: x[i],
			AssetExcess:     y[i],
			BenchmarkExcess: x[i],
		}
	}
	return frameFromRows(rows)
}

func frameFromRows(rows []ReturnRow) *ReturnFrame {
	first, last := rows[0].Date, rows[len(rows)-1].Date
	return &ReturnFrame{
		Ticker:          "ASSET",
		Benchmark:       "BENCH",
		RiskFreeSymbol:  "RF",
		Frequency:       m.Monthly,
		FirstDate:       first,
		LastDate:        last,
		YearsDifference: last.Sub(first).Hours() / 24 / daysPerYear,
		rows:            rows,
	}
}
