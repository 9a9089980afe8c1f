package core

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	ex "github.com/graygillman/CapmAnalysis/data/extensions"
	m "github.com/graygillman/CapmAnalysis/data/models"
	"github.com/graygillman/CapmAnalysis/service/api"
)

// CachedFetcher serves price series out of the postgres cache, refreshing a symbol from the
// upstream fetcher once its copy is older than maxAge
type CachedFetcher struct {
	cache  PriceCache
	source PriceFetcher
	maxAge time.Duration
	log    zerolog.Logger
	now    func() time.Time
}

func NewCachedFetcher(cache PriceCache, source PriceFetcher, maxAge time.Duration, log zerolog.Logger) *CachedFetcher {
	return &CachedFetcher{
		cache:  cache,
		source: source,
		maxAge: maxAge,
		log:    log.With().Str("component", "price_cache").Logger(),
		now:    time.Now,
	}
}

func (cf *CachedFetcher) GetPriceSeries(ctx context.Context, symbol string, freq m.Frequency) (*m.PriceSeries, error) {
	if _, err := cf.SyncSymbolTimeSeriesData(ctx, symbol, freq); err != nil {
		return nil, err
	}

	since := api.IntervalFor(freq).Start(cf.now())
	ps, err := cf.cache.GetTimeSeriesData(ctx, symbol, freq, since)
	if err != nil {
		return nil, err
	}

	return ps, nil
}

// SyncSymbolTimeSeriesData pulls symbol from the upstream fetcher and stores the points newer than
// anything already cached. It returns when the symbol was last refreshed.
func (cf *CachedFetcher) SyncSymbolTimeSeriesData(ctx context.Context, symbol string, freq m.Frequency) (time.Time, error) {
	log := cf.log.With().Str("symbol", symbol).Str("frequency", string(freq)).Logger()

	md, err := cf.cache.GetMetaDataBySymbol(ctx, symbol, freq)
	if err != nil {
		return time.Time{}, fmt.Errorf("error determining if meta data exists in sync data: %w", err)
	}

	if md == nil {
		log.Info().Msg("adding new symbol to db")
		md = &m.TimeSeriesMetadata{
			Symbol:        symbol,
			Frequency:     string(freq),
			LastRefreshed: time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC),
		}

		if err := cf.cache.InsertNewMetaData(ctx, md, nil); err != nil {
			return time.Time{}, fmt.Errorf("error adding %s to db: %w", symbol, err)
		}
	}

	if cf.isFresh(md) {
		log.Debug().Str("last_refreshed", ex.FmtShort(md.LastRefreshed)).Msg("cache is fresh, skipping sync")
		return md.LastRefreshed, nil
	}

	ps, err := cf.source.GetPriceSeries(ctx, symbol, freq)
	if err != nil {
		return time.Time{}, err
	}

	tx, err := cf.cache.GetTransaction(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) // no-op once committed

	// concurrent syncs of the same symbol queue up here, whoever gets the lock second sees the first one's rows
	locked, err := cf.cache.LockMetaData(ctx, md.Id, &tx)
	if err != nil {
		return time.Time{}, err
	}
	if cf.isFresh(locked) {
		log.Debug().Str("last_refreshed", ex.FmtShort(locked.LastRefreshed)).Msg("symbol synced while downloading, skipping insert")
		return locked.LastRefreshed, nil
	}

	mrd, err := cf.cache.GetMostRecentTimestampForSymbol(ctx, symbol, freq, &tx)
	if err != nil {
		return time.Time{}, fmt.Errorf("error getting most recent time series date for symbol %s: %w", symbol, err)
	}

	fetched := make([]*m.TimeSeriesData, len(ps.Points))
	for i, p := range ps.Points {
		fetched[i] = &m.TimeSeriesData{
			SourceId:      md.Id,
			Timestamp:     ex.ToDate(p.Timestamp),
			AdjustedClose: p.AdjustedClose,
		}
	}

	f := func(t *m.TimeSeriesData) bool {
		return t.AdjustedClose.Valid && (mrd == nil || t.Timestamp.After(*mrd))
	}
	toInsert := ex.FilterMultiplePtr(fetched, f)

	var ra int64
	if len(toInsert) > 0 {
		ra, err = cf.cache.InsertTimeSeriesData(ctx, toInsert, &md.Id, &tx)
		if err != nil {
			return time.Time{}, fmt.Errorf("error inserting time series data: %w", err)
		}
	}

	now := cf.now()
	if err := cf.cache.UpdateLastRefreshedDate(ctx, symbol, freq, now, &tx); err != nil {
		return time.Time{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return time.Time{}, fmt.Errorf("error committing transaction to sync symbol %s: %w", symbol, err)
	}

	log.Info().Int("fetched", len(fetched)).Int64("inserted", ra).Msg("synced symbol")
	return now, nil
}

func (cf *CachedFetcher) isFresh(md *m.TimeSeriesMetadata) bool {
	return md.LastRefreshed.After(cf.now().Add(-cf.maxAge))
}

// SyncConfiguredSymbols refreshes every symbol referenced by a saved configuration, it keeps going
// past individual failures and reports how many symbols synced
func (sc *ServiceContext) SyncConfiguredSymbols(ctx context.Context) (int, error) {
	if sc.Configurations == nil || sc.Syncer == nil {
		return 0, errNoDatabase
	}

	configs, err := sc.Configurations.GetAnalysisConfigurations(ctx)
	if err != nil {
		return 0, err
	}

	type key struct {
		symbol string
		freq   m.Frequency
	}
	seen := make(map[key]bool)
	synced := 0
	var failures []string

	for _, c := range configs {
		freq, err := m.ParseFrequency(c.Frequency)
		if err != nil {
			sc.Log.Warn().Err(err).Int32("configuration", c.Id).Msg("skipping configuration with bad frequency")
			continue
		}

		for _, symbol := range []string{c.Ticker, c.Benchmark, c.RiskFree} {
			k := key{symbol, freq}
			if seen[k] {
				continue
			}
			seen[k] = true

			if _, err := sc.Syncer.SyncSymbolTimeSeriesData(ctx, symbol, freq); err != nil {
				sc.Log.Error().Err(err).Str("symbol", symbol).Msg("error syncing symbol")
				failures = append(failures, symbol)
				continue
			}
			synced++
		}
	}

	if len(failures) > 0 {
		return synced, fmt.Errorf("%w: sync failed for %v", ErrDataUnavailable, failures)
	}
	return synced, nil
}
