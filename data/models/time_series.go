package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/guregu/null/v6"
)

// Frequency is the sampling period of a price series, D or M
type Frequency string

const (
	Daily   Frequency = "D"
	Monthly Frequency = "M"
)

// ParseFrequency accepts D/M (any case) or the long daily/monthly names
func ParseFrequency(s string) (Frequency, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "D", "DAILY":
		return Daily, nil
	case "M", "MONTHLY":
		return Monthly, nil
	default:
		return "", fmt.Errorf("unrecognized frequency %q, expected D or M", s)
	}
}

// PeriodsPerYear is the divisor used to turn an annualized percentage quote into a per period rate
func (f Frequency) PeriodsPerYear() int {
	if f == Monthly {
		return 12
	}
	return 365
}

// Word is the label used in chart titles and file names
func (f Frequency) Word() string {
	if f == Monthly {
		return "Monthly"
	}
	return "Daily"
}

// PricePoint is a single adjusted close, an invalid AdjustedClose is a missing observation
type PricePoint struct {
	Timestamp     time.Time  `db:"timestamp"`
	AdjustedClose null.Float `db:"adjusted_close"`
}

// PriceSeries is the ordered (oldest first) adjusted close history of one symbol
type PriceSeries struct {
	Symbol    string
	Frequency Frequency
	Points    []PricePoint
}

// Valid returns the number of points with a usable price
func (ps *PriceSeries) Valid() int {
	n := 0
	for _, p := range ps.Points {
		if p.AdjustedClose.Valid {
			n++
		}
	}
	return n
}
