package core

import (
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	ex "github.com/graygillman/CapmAnalysis/data/extensions"
	m "github.com/graygillman/CapmAnalysis/data/models"
)

// RiskFreePolicy decides what happens to a return row whose date has no risk free quote
type RiskFreePolicy string

const (
	RiskFreeDropRow RiskFreePolicy = "drop_row"
	RiskFreeRequire RiskFreePolicy = "require"
)

func ParseRiskFreePolicy(s string) (RiskFreePolicy, error) {
	switch RiskFreePolicy(s) {
	case RiskFreeDropRow, RiskFreeRequire:
		return RiskFreePolicy(s), nil
	case "":
		return RiskFreeDropRow, nil
	default:
		return "", fmt.Errorf("unknown risk free policy %q", s)
	}
}

const daysPerYear = 365.25

// ReturnRow is one aligned period, all values are simple (not log) returns
type ReturnRow struct {
	Date            time.Time `json:"date"`
	AssetReturn     float64   `json:"assetReturn"`
	BenchmarkReturn float64   `json:"benchmarkReturn"`
	RiskFree        float64   `json:"riskFree"`
	AssetExcess     float64   `json:"assetExcess"`
	BenchmarkExcess float64   `json:"benchmarkExcess"`
}

// ReturnFrame is the aligned return table every estimator reads from. It is never modified
// after BuildReturnFrame returns it, estimators produce new values instead.
type ReturnFrame struct {
	Ticker          string
	Benchmark       string
	RiskFreeSymbol  string
	Frequency       m.Frequency
	FirstDate       time.Time
	LastDate        time.Time
	YearsDifference float64
	RiskFreeDropped int

	rows []ReturnRow
}

func (f *ReturnFrame) Len() int {
	return len(f.rows)
}

// Rows returns a copy of the frame rows
func (f *ReturnFrame) Rows() []ReturnRow {
	return slices.Clone(f.rows)
}

func (f *ReturnFrame) Dates() []time.Time {
	res := make([]time.Time, len(f.rows))
	for i, r := range f.rows {
		res[i] = r.Date
	}
	return res
}

func (f *ReturnFrame) AssetExcess() []float64 {
	return f.column(func(r ReturnRow) float64 { return r.AssetExcess })
}

func (f *ReturnFrame) BenchmarkExcess() []float64 {
	return f.column(func(r ReturnRow) float64 { return r.BenchmarkExcess })
}

func (f *ReturnFrame) column(get func(ReturnRow) float64) []float64 {
	res := make([]float64, len(f.rows))
	for i, r := range f.rows {
		res[i] = get(r)
	}
	return res
}

// trailing returns the excess return columns of the last n rows
func (f *ReturnFrame) trailing(n int) (x, y []float64) {
	start := len(f.rows) - n
	x = f.BenchmarkExcess()[start:]
	y = f.AssetExcess()[start:]
	return
}

type buildOptions struct {
	policy RiskFreePolicy
	log    zerolog.Logger
}

type BuildOption func(*buildOptions)

func WithRiskFreePolicy(p RiskFreePolicy) BuildOption {
	return func(o *buildOptions) { o.policy = p }
}

func WithLogger(log zerolog.Logger) BuildOption {
	return func(o *buildOptions) { o.log = log }
}

// BuildReturnFrame aligns asset and benchmark on the dates both have a price, turns them into
// period returns and subtracts the per period risk free rate. The risk free series is quoted as an
// annualized percentage and divided by 100 and the frequency's periods per year.
func BuildReturnFrame(asset, benchmark, riskFree *m.PriceSeries, frequency m.Frequency, opts ...BuildOption) (*ReturnFrame, error) {
	o := buildOptions{policy: RiskFreeDropRow, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	for _, s := range []*m.PriceSeries{asset, benchmark, riskFree} {
		if s == nil || s.Valid() == 0 {
			return nil, fmt.Errorf("%w: %s has no prices", ErrDataUnavailable, seriesName(s))
		}
	}

	assetPrices := priceIndex(asset)
	benchmarkPrices := priceIndex(benchmark)
	riskFreeQuotes := priceIndex(riskFree)

	dates := make([]time.Time, 0, len(assetPrices))
	for d := range assetPrices {
		if _, ok := benchmarkPrices[d]; ok {
			dates = append(dates, d)
		}
	}
	slices.SortFunc(dates, func(a, b time.Time) int { return a.Compare(b) })

	if len(dates) < 2 {
		return nil, fmt.Errorf("%w: %s and %s share %d dates", ErrInsufficientOverlap, asset.Symbol, benchmark.Symbol, len(dates))
	}

	divisor := float64(frequency.PeriodsPerYear())
	rows := make([]ReturnRow, 0, len(dates)-1)
	dropped := 0
	for i := 1; i < len(dates); i++ {
		d := dates[i]

		quote, ok := riskFreeQuotes[d]
		if !ok {
			if o.policy == RiskFreeRequire {
				return nil, fmt.Errorf("%w: no %s quote on %s", ErrDataUnavailable, riskFree.Symbol, ex.FmtShort(d))
			}
			dropped++
			continue
		}

		ar := assetPrices[d]/assetPrices[dates[i-1]] - 1
		br := benchmarkPrices[d]/benchmarkPrices[dates[i-1]] - 1
		rf := (quote / 100) / divisor

		rows = append(rows, ReturnRow{
			Date:            d,
			AssetReturn:     ar,
			BenchmarkReturn: br,
			RiskFree:        rf,
			AssetExcess:     ar - rf,
			BenchmarkExcess: br - rf,
		})
	}

	if dropped > 0 {
		o.log.Warn().
			Str("risk_free", riskFree.Symbol).
			Int("dropped", dropped).
			Int("kept", len(rows)).
			Msg("dropped return rows without a risk free quote")
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no return rows left after aligning %s", ErrInsufficientOverlap, riskFree.Symbol)
	}

	first, last := rows[0].Date, rows[len(rows)-1].Date
	return &ReturnFrame{
		Ticker:          asset.Symbol,
		Benchmark:       benchmark.Symbol,
		RiskFreeSymbol:  riskFree.Symbol,
		Frequency:       frequency,
		FirstDate:       first,
		LastDate:        last,
		YearsDifference: last.Sub(first).Hours() / 24 / daysPerYear,
		RiskFreeDropped: dropped,
		rows:            rows,
	}, nil
}

// priceIndex keys the valid prices of a series by calendar date, a later duplicate wins
func priceIndex(s *m.PriceSeries) map[time.Time]float64 {
	res := make(map[time.Time]float64, len(s.Points))
	for _, p := range s.Points {
		if p.AdjustedClose.Valid {
			res[ex.ToDate(p.Timestamp)] = p.AdjustedClose.Float64
		}
	}
	return res
}

func seriesName(s *m.PriceSeries) string {
	if s == nil || s.Symbol == "" {
		return "series"
	}
	return s.Symbol
}
