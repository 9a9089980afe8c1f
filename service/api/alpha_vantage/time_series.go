package alpha_vantage

import (
	"strings"

	m "github.com/graygillman/CapmAnalysis/data/models"
)

type TimeSeries uint8

// TimeSeries specifies a frequency to query for stock data.
const (
	TimeSeriesDailyAdjusted TimeSeries = iota
	TimeSeriesMonthlyAdjusted
)

func TimeSeriesFor(freq m.Frequency) TimeSeries {
	if freq == m.Monthly {
		return TimeSeriesMonthlyAdjusted
	}
	return TimeSeriesDailyAdjusted
}

func (t TimeSeries) Name() string {
	switch t {
	case TimeSeriesDailyAdjusted:
		return "TimeSeriesDailyAdjusted"
	case TimeSeriesMonthlyAdjusted:
		return "TimeSeriesMonthlyAdjusted"
	default:
		return ""
	}
}

func (t TimeSeries) Function() string {
	switch t {
	case TimeSeriesDailyAdjusted:
		return "TIME_SERIES_DAILY_ADJUSTED"
	case TimeSeriesMonthlyAdjusted:
		return "TIME_SERIES_MONTHLY_ADJUSTED"
	default:
		return ""
	}
}

func (t TimeSeries) TimeSeriesKey() string {
	switch t {
	case TimeSeriesDailyAdjusted:
		return "Time Series (Daily)"
	case TimeSeriesMonthlyAdjusted:
		return "Monthly Adjusted Time Series"
	default:
		return ""
	}
}

func (t TimeSeries) Frequency() m.Frequency {
	if t == TimeSeriesMonthlyAdjusted {
		return m.Monthly
	}
	return m.Daily
}

func (t TimeSeries) IsAdjusted() bool {
	return strings.HasSuffix(t.Function(), "_ADJUSTED")
}
