package api

import (
	"time"

	m "github.com/graygillman/CapmAnalysis/data/models"
)

// TimeInterval specifies the bar size to query for a price series.
type TimeInterval uint8

const (
	TimeIntervalDaily TimeInterval = iota
	TimeIntervalMonthly
)

func IntervalFor(freq m.Frequency) TimeInterval {
	if freq == m.Monthly {
		return TimeIntervalMonthly
	}
	return TimeIntervalDaily
}

func (t TimeInterval) Name() string {
	switch t {
	case TimeIntervalDaily:
		return "TimeIntervalDaily"
	case TimeIntervalMonthly:
		return "TimeIntervalMonthly"
	default:
		return ""
	}
}

// Interval is the query string value market data providers use for the bar size
func (t TimeInterval) Interval() string {
	switch t {
	case TimeIntervalDaily:
		return "1d"
	case TimeIntervalMonthly:
		return "1mo"
	default:
		return ""
	}
}

// Start is the beginning of the lookback window, five years for daily bars and the whole
// history for monthly bars
func (t TimeInterval) Start(now time.Time) time.Time {
	switch t {
	case TimeIntervalDaily:
		return now.AddDate(-5, 0, 0)
	default:
		return time.Unix(0, 0).UTC()
	}
}
