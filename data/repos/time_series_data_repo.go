package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	m "github.com/graygillman/CapmAnalysis/data/models"
	q "github.com/graygillman/CapmAnalysis/data/queries"
)

// GetTimeSeriesData returns the cached adjusted closes for symbol at or after since, oldest first
func (pg *Postgres) GetTimeSeriesData(ctx context.Context, symbol string, freq m.Frequency, since time.Time) (*m.PriceSeries, error) {
	args := pgx.NamedArgs{
		"symbol":    symbol,
		"frequency": string(freq),
		"since":     since,
	}

	rows, err := Query[m.PricePoint](ctx, pg, q.Get(q.QueryHelper.Select.TimeSeriesData), args)
	if err != nil {
		return nil, fmt.Errorf("unable to query data by symbol (%s): %w", symbol, err)
	}

	res := &m.PriceSeries{
		Symbol:    symbol,
		Frequency: freq,
		Points:    make([]m.PricePoint, len(rows)),
	}
	for i, r := range rows {
		res.Points[i] = *r
	}

	return res, nil
}

func (pg *Postgres) InsertTimeSeriesData(ctx context.Context, data []*m.TimeSeriesData, sourceId *int32, tx *pgx.Tx) (int64, error) {
	columns := []string{"source_id", "timestamp", "adjusted_close"}

	entries := make([][]any, len(data))
	for i, ent := range data {
		id := ent.SourceId
		if sourceId != nil {
			id = *sourceId
		}
		entries[i] = []any{id, ent.Timestamp, ent.AdjustedClose.Ptr()}
	}

	return pg.BulkInsert(ctx, "price_series_data", columns, entries, tx)
}
