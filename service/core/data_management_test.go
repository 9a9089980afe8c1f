package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	m "github.com/graygillman/CapmAnalysis/data/models"
)

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
	release    func()
	once       sync.Once
}

func (tx *fakeTx) Commit(context.Context) error {
	tx.committed = true
	tx.unlock()
	return nil
}

func (tx *fakeTx) Rollback(context.Context) error {
	if !tx.committed {
		tx.rolledBack = true
	}
	tx.unlock()
	return nil
}

func (tx *fakeTx) unlock() {
	tx.once.Do(func() {
		if tx.release != nil {
			tx.release()
		}
	})
}

// fakeCache keeps the unique constraints of the postgres tables and holds metadata row locks until the
// owning transaction ends
type fakeCache struct {
	mu        sync.Mutex
	rowLocks  map[int32]*sync.Mutex
	metadata  map[string]*m.TimeSeriesMetadata
	data      map[string][]*m.TimeSeriesData
	tx        *fakeTx
	insertErr error
	nextId    int32
	sinces    []time.Time
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		rowLocks: map[int32]*sync.Mutex{},
		metadata: map[string]*m.TimeSeriesMetadata{},
		data:     map[string][]*m.TimeSeriesData{},
	}
}

func cacheKey(symbol string, freq m.Frequency) string {
	return symbol + "/" + string(freq)
}

func (c *fakeCache) keyFor(id int32) (string, bool) {
	for k, md := range c.metadata {
		if md.Id == id {
			return k, true
		}
	}
	return "", false
}

func (c *fakeCache) GetTransaction(context.Context) (pgx.Tx, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tx = &fakeTx{}
	return c.tx, nil
}

func (c *fakeCache) GetMetaDataBySymbol(_ context.Context, symbol string, freq m.Frequency) (*m.TimeSeriesMetadata, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	md, ok := c.metadata[cacheKey(symbol, freq)]
	if !ok {
		return nil, nil
	}
	cp := *md
	return &cp, nil
}

func (c *fakeCache) InsertNewMetaData(_ context.Context, md *m.TimeSeriesMetadata, _ *pgx.Tx) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := cacheKey(md.Symbol, m.Frequency(md.Frequency))
	if existing, ok := c.metadata[k]; ok {
		md.Id = existing.Id
		md.LastRefreshed = existing.LastRefreshed
		return nil
	}

	c.nextId++
	md.Id = c.nextId
	cp := *md
	c.metadata[k] = &cp
	return nil
}

func (c *fakeCache) LockMetaData(_ context.Context, id int32, tx *pgx.Tx) (*m.TimeSeriesMetadata, error) {
	c.mu.Lock()
	l, ok := c.rowLocks[id]
	if !ok {
		l = &sync.Mutex{}
		c.rowLocks[id] = l
	}
	c.mu.Unlock()

	l.Lock()
	(*tx).(*fakeTx).release = l.Unlock

	c.mu.Lock()
	defer c.mu.Unlock()
	k, ok := c.keyFor(id)
	if !ok {
		return nil, fmt.Errorf("no metadata with id %d", id)
	}
	cp := *c.metadata[k]
	return &cp, nil
}

func (c *fakeCache) UpdateLastRefreshedDate(_ context.Context, symbol string, freq m.Frequency, t time.Time, _ *pgx.Tx) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metadata[cacheKey(symbol, freq)].LastRefreshed = t
	return nil
}

func (c *fakeCache) GetMostRecentTimestampForSymbol(_ context.Context, symbol string, freq m.Frequency, _ *pgx.Tx) (*time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rows := c.data[cacheKey(symbol, freq)]
	if len(rows) == 0 {
		return nil, nil
	}
	latest := rows[0].Timestamp
	for _, r := range rows {
		if r.Timestamp.After(latest) {
			latest = r.Timestamp
		}
	}
	return &latest, nil
}

func (c *fakeCache) GetTimeSeriesData(_ context.Context, symbol string, freq m.Frequency, since time.Time) (*m.PriceSeries, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sinces = append(c.sinces, since)
	ps := &m.PriceSeries{Symbol: symbol, Frequency: freq}
	for _, r := range c.data[cacheKey(symbol, freq)] {
		if !r.Timestamp.Before(since) {
			ps.Points = append(ps.Points, m.PricePoint{Timestamp: r.Timestamp, AdjustedClose: r.AdjustedClose})
		}
	}
	m.SortPoints(ps.Points)
	return ps, nil
}

func (c *fakeCache) InsertTimeSeriesData(_ context.Context, data []*m.TimeSeriesData, sourceId *int32, _ *pgx.Tx) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.insertErr != nil {
		return 0, c.insertErr
	}

	k, ok := c.keyFor(*sourceId)
	if !ok {
		return 0, fmt.Errorf("no metadata with id %d", *sourceId)
	}
	for _, d := range data {
		for _, r := range c.data[k] {
			if r.Timestamp.Equal(d.Timestamp) {
				return 0, fmt.Errorf("duplicate key (%d, %s)", *sourceId, d.Timestamp.Format(time.DateOnly))
			}
		}
	}
	c.data[k] = append(c.data[k], data...)
	return int64(len(data)), nil
}

var syncNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

func newTestCachedFetcher(cache PriceCache, source PriceFetcher) *CachedFetcher {
	cf := NewCachedFetcher(cache, source, 12*time.Hour, zerolog.Nop())
	cf.now = func() time.Time { return syncNow }
	return cf
}

func TestCachedFetcher_FirstSyncStoresValidPoints(t *testing.T) {
	dates := monthlyDates(4)
	ps := seriesFrom("ASSET", dates, []float64{10, 11, 12, 13})
	ps.Points[2].AdjustedClose = null.Float{}

	cache := newFakeCache()
	source := &fakeFetcher{series: map[string]*m.PriceSeries{"ASSET": ps}}
	cf := newTestCachedFetcher(cache, source)

	refreshed, err := cf.SyncSymbolTimeSeriesData(context.Background(), "ASSET", m.Monthly)
	require.NoError(t, err)
	assert.Equal(t, syncNow, refreshed)

	assert.Len(t, cache.data["ASSET/M"], 3)
	assert.True(t, cache.tx.committed)
	assert.False(t, cache.tx.rolledBack)
	assert.Equal(t, syncNow, cache.metadata["ASSET/M"].LastRefreshed)
	assert.Equal(t, int32(1), cache.data["ASSET/M"][0].SourceId)
}

func TestCachedFetcher_FreshCacheSkipsUpstream(t *testing.T) {
	cache := newFakeCache()
	cache.metadata["ASSET/M"] = &m.TimeSeriesMetadata{Id: 1, Symbol: "ASSET", Frequency: "M", LastRefreshed: syncNow.Add(-time.Hour)}
	source := &fakeFetcher{series: map[string]*m.PriceSeries{}}
	cf := newTestCachedFetcher(cache, source)

	refreshed, err := cf.SyncSymbolTimeSeriesData(context.Background(), "ASSET", m.Monthly)
	require.NoError(t, err)
	assert.Equal(t, syncNow.Add(-time.Hour), refreshed)
	assert.Empty(t, source.calls)
	assert.Nil(t, cache.tx)
}

func TestCachedFetcher_StaleCacheOnlyAppendsNewerPoints(t *testing.T) {
	dates := monthlyDates(5)
	cache := newFakeCache()
	cache.metadata["ASSET/M"] = &m.TimeSeriesMetadata{Id: 1, Symbol: "ASSET", Frequency: "M", LastRefreshed: syncNow.AddDate(0, 0, -3)}
	cache.nextId = 1
	for _, d := range dates[:3] {
		cache.data["ASSET/M"] = append(cache.data["ASSET/M"], &m.TimeSeriesData{SourceId: 1, Timestamp: d, AdjustedClose: null.FloatFrom(1)})
	}

	source := &fakeFetcher{series: map[string]*m.PriceSeries{"ASSET": seriesFrom("ASSET", dates, []float64{1, 2, 3, 4, 5})}}
	cf := newTestCachedFetcher(cache, source)

	_, err := cf.SyncSymbolTimeSeriesData(context.Background(), "ASSET", m.Monthly)
	require.NoError(t, err)

	rows := cache.data["ASSET/M"]
	require.Len(t, rows, 5)
	assert.Equal(t, dates[3], rows[3].Timestamp)
	assert.Equal(t, 4.0, rows[3].AdjustedClose.Float64)
	assert.Equal(t, syncNow, cache.metadata["ASSET/M"].LastRefreshed)
}

func TestCachedFetcher_InsertFailureRollsBack(t *testing.T) {
	cache := newFakeCache()
	cache.insertErr = errors.New("copy failed")
	source := &fakeFetcher{series: map[string]*m.PriceSeries{"ASSET": seriesFrom("ASSET", monthlyDates(2), []float64{1, 2})}}
	cf := newTestCachedFetcher(cache, source)

	_, err := cf.SyncSymbolTimeSeriesData(context.Background(), "ASSET", m.Monthly)
	require.Error(t, err)
	assert.True(t, cache.tx.rolledBack)
	assert.False(t, cache.tx.committed)
	assert.Equal(t, time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC), cache.metadata["ASSET/M"].LastRefreshed)
}

func TestCachedFetcher_UpstreamFailureIsReturned(t *testing.T) {
	cache := newFakeCache()
	source := &fakeFetcher{errs: map[string]error{"ASSET": errors.New("upstream down")}}
	cf := newTestCachedFetcher(cache, source)

	_, err := cf.GetPriceSeries(context.Background(), "ASSET", m.Monthly)
	assert.ErrorContains(t, err, "upstream down")
}

func TestCachedFetcher_GetPriceSeriesReadsFromInterval(t *testing.T) {
	dates := []time.Time{
		syncNow.AddDate(-7, 0, 0),
		syncNow.AddDate(-2, 0, 0),
		syncNow.AddDate(-1, 0, 0),
	}
	source := &fakeFetcher{series: map[string]*m.PriceSeries{"ASSET": seriesFrom("ASSET", dates, []float64{1, 2, 3})}}
	cache := newFakeCache()
	cf := newTestCachedFetcher(cache, source)

	daily, err := cf.GetPriceSeries(context.Background(), "ASSET", m.Daily)
	require.NoError(t, err)
	assert.Len(t, daily.Points, 2, "daily history starts five years back")

	monthly, err := cf.GetPriceSeries(context.Background(), "ASSET", m.Monthly)
	require.NoError(t, err)
	assert.Len(t, monthly.Points, 3)
}

// duringFetcher runs during on the first download, standing in for a second request that syncs the same
// symbol while the first one is still waiting on upstream
type duringFetcher struct {
	PriceFetcher
	during func()
	once   sync.Once
}

func (f *duringFetcher) GetPriceSeries(ctx context.Context, symbol string, freq m.Frequency) (*m.PriceSeries, error) {
	f.once.Do(f.during)
	return f.PriceFetcher.GetPriceSeries(ctx, symbol, freq)
}

func TestCachedFetcher_OverlappingSyncsOfSameSymbol(t *testing.T) {
	tests := []struct {
		name   string
		maxAge time.Duration
	}{
		{"first sync finishes while second waits on upstream", 12 * time.Hour},
		{"stale cache re-read under the lock", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dates := monthlyDates(6)
			cache := newFakeCache()
			inner := &fakeFetcher{series: map[string]*m.PriceSeries{"^GSPC": seriesFrom("^GSPC", dates, []float64{1, 2, 3, 4, 5, 6})}}
			fetcher := &duringFetcher{PriceFetcher: inner}
			cf := newTestCachedFetcher(cache, fetcher)
			cf.maxAge = tt.maxAge

			var nestedErr error
			fetcher.during = func() {
				_, nestedErr = cf.GetPriceSeries(context.Background(), "^GSPC", m.Monthly)
			}

			ps, err := cf.GetPriceSeries(context.Background(), "^GSPC", m.Monthly)
			require.NoError(t, nestedErr)
			require.NoError(t, err)
			assert.Len(t, ps.Points, 6)
			assert.Len(t, cache.data["^GSPC/M"], 6)
			assert.Len(t, cache.metadata, 1)
		})
	}
}

func TestCachedFetcher_ConcurrentSyncsDoNotCollide(t *testing.T) {
	dates := monthlyDates(24)
	prices := make([]float64, len(dates))
	for i := range prices {
		prices[i] = 100 + float64(i)
	}

	cache := newFakeCache()
	source := &fakeFetcher{series: map[string]*m.PriceSeries{"^TYX": seriesFrom("^TYX", dates, prices)}}
	cf := newTestCachedFetcher(cache, source)

	var g errgroup.Group
	for range 8 {
		g.Go(func() error {
			ps, err := cf.GetPriceSeries(context.Background(), "^TYX", m.Monthly)
			if err != nil {
				return err
			}
			if len(ps.Points) != len(dates) {
				return fmt.Errorf("got %d points, want %d", len(ps.Points), len(dates))
			}
			return nil
		})
	}

	require.NoError(t, g.Wait())
	assert.Len(t, cache.data["^TYX/M"], len(dates))
	assert.Len(t, cache.metadata, 1)
}

type recordingSyncer struct {
	synced []string
	fail   map[string]bool
}

func (s *recordingSyncer) SyncSymbolTimeSeriesData(_ context.Context, symbol string, freq m.Frequency) (time.Time, error) {
	if s.fail[symbol] {
		return time.Time{}, errors.New("sync failed")
	}
	s.synced = append(s.synced, symbol+"/"+string(freq))
	return syncNow, nil
}

func TestSyncConfiguredSymbols(t *testing.T) {
	sc, _, _ := newTestContext(12)

	_, err := sc.SyncConfiguredSymbols(context.Background())
	assert.ErrorIs(t, err, errNoDatabase)

	syncer := &recordingSyncer{fail: map[string]bool{}}
	sc.Syncer = syncer
	sc.Configurations = &fakeConfigurations{configs: []*m.AnalysisConfiguration{
		{Id: 1, Ticker: "AAPL", Benchmark: "SPY", RiskFree: "^IRX", Frequency: "M"},
		{Id: 2, Ticker: "MSFT", Benchmark: "SPY", RiskFree: "^IRX", Frequency: "M"},
		{Id: 3, Ticker: "AAPL", Benchmark: "SPY", RiskFree: "^IRX", Frequency: "D"},
	}}

	n, err := sc.SyncConfiguredSymbols(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.ElementsMatch(t, []string{
		"AAPL/M", "SPY/M", "^IRX/M", "MSFT/M",
		"AAPL/D", "SPY/D", "^IRX/D",
	}, syncer.synced)

	syncer.synced = nil
	syncer.fail["SPY"] = true
	n, err = sc.SyncConfiguredSymbols(context.Background())
	assert.ErrorIs(t, err, ErrDataUnavailable)
	assert.Equal(t, 5, n)
}
