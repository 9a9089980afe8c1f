package models

import (
	"time"

	"github.com/guregu/null/v6"
)

type TimeSeriesResult struct {
	Metadata   *TimeSeriesMetadata
	TimeSeries []*TimeSeriesData
}

// TimeSeriesMetadata is both the parsed "Meta Data" block of a market data response and
// the row that tracks a cached series in price_series_metadata
type TimeSeriesMetadata struct {
	Id            int32       `db:"id"`
	Symbol        string      `db:"symbol"`
	Frequency     string      `db:"frequency"`
	LastRefreshed time.Time   `db:"last_refreshed"`
	Information   null.String `db:"-"`
	TimeZone      string      `db:"-"`
}

type TimeSeriesData struct {
	SourceId      int32      `db:"source_id"`
	Timestamp     time.Time  `db:"timestamp"`
	AdjustedClose null.Float `db:"adjusted_close"`
}

// ToPriceSeries sorts the raw elements oldest first and drops the row bookkeeping
func (r *TimeSeriesResult) ToPriceSeries(freq Frequency) *PriceSeries {
	res := &PriceSeries{
		Frequency: freq,
		Points:    make([]PricePoint, 0, len(r.TimeSeries)),
	}
	if r.Metadata != nil {
		res.Symbol = r.Metadata.Symbol
	}

	for _, ts := range r.TimeSeries {
		res.Points = append(res.Points, PricePoint{
			Timestamp:     ts.Timestamp,
			AdjustedClose: ts.AdjustedClose,
		})
	}

	SortPoints(res.Points)
	return res
}
