package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	m "github.com/graygillman/CapmAnalysis/data/models"
	q "github.com/graygillman/CapmAnalysis/data/queries"
)

func (pg *Postgres) GetMetaDataBySymbol(ctx context.Context, symbol string, freq m.Frequency) (*m.TimeSeriesMetadata, error) {
	args := pgx.NamedArgs{
		"symbol":    symbol,
		"frequency": string(freq),
	}

	res, err := Query[m.TimeSeriesMetadata](ctx, pg, q.Get(q.QueryHelper.Select.MetaDataBySymbol), args)
	if err != nil {
		return nil, fmt.Errorf("unable to query metadata by symbol (%s): %w", symbol, err)
	}

	if len(res) == 0 {
		return nil, nil
	}

	return res[0], nil
}

// InsertNewMetaData upserts on (symbol, frequency), when another writer got there first metadata picks up
// that row's id and last refreshed date
func (pg *Postgres) InsertNewMetaData(ctx context.Context, metadata *m.TimeSeriesMetadata, tx *pgx.Tx) error {
	sql := q.Get(q.QueryHelper.Insert.Metadata)
	args := pgx.NamedArgs{
		"symbol":         metadata.Symbol,
		"frequency":      metadata.Frequency,
		"last_refreshed": metadata.LastRefreshed,
	}

	var err error
	if tx == nil {
		err = pg.db.QueryRow(ctx, sql, args).Scan(&metadata.Id, &metadata.LastRefreshed)
	} else {
		err = (*tx).QueryRow(ctx, sql, args).Scan(&metadata.Id, &metadata.LastRefreshed)
	}

	if err != nil {
		return fmt.Errorf("error inserting new metadata: %w", err)
	}

	return nil
}

func (pg *Postgres) UpdateLastRefreshedDate(ctx context.Context, symbol string, freq m.Frequency, lastRefreshed time.Time, tx *pgx.Tx) (err error) {
	sql := q.Get(q.QueryHelper.Update.LastRefreshedDate)
	args := pgx.NamedArgs{
		"last_refreshed": lastRefreshed,
		"symbol":         symbol,
		"frequency":      string(freq),
	}

	if tx == nil {
		_, err = pg.db.Exec(ctx, sql, args)
	} else {
		_, err = (*tx).Exec(ctx, sql, args)
	}

	if err != nil {
		return fmt.Errorf("error updating last refreshed date for %s: %w", symbol, err)
	}
	return nil
}

// LockMetaData takes a row lock on the metadata until tx ends, so only one sync of a symbol writes at a time
func (pg *Postgres) LockMetaData(ctx context.Context, id int32, tx *pgx.Tx) (*m.TimeSeriesMetadata, error) {
	rows, err := (*tx).Query(ctx, q.Get(q.QueryHelper.Select.LockMetaData), pgx.NamedArgs{"id": id})
	if err != nil {
		return nil, fmt.Errorf("unable to lock metadata %d: %w", id, err)
	}

	md, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[m.TimeSeriesMetadata])
	if err != nil {
		return nil, fmt.Errorf("error collecting locked metadata %d: %w", id, err)
	}

	return md, nil
}

// GetMostRecentTimestampForSymbol returns nil when nothing has been cached for the symbol yet
func (pg *Postgres) GetMostRecentTimestampForSymbol(ctx context.Context, symbol string, freq m.Frequency, tx *pgx.Tx) (*time.Time, error) {
	sql := q.Get(q.QueryHelper.Select.MostRecentTimestampBySymbol)
	args := pgx.NamedArgs{
		"symbol":    symbol,
		"frequency": string(freq),
	}

	var res *time.Time
	var err error
	if tx == nil {
		err = pg.db.QueryRow(ctx, sql, args).Scan(&res)
	} else {
		err = (*tx).QueryRow(ctx, sql, args).Scan(&res)
	}

	if err != nil {
		return nil, fmt.Errorf("unable to query most recent timestamp for %s: %w", symbol, err)
	}

	return res, nil
}
