package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	m "github.com/graygillman/CapmAnalysis/data/models"
)

// PriceFetcher returns the adjusted close history of one symbol, oldest first
type PriceFetcher interface {
	GetPriceSeries(ctx context.Context, symbol string, freq m.Frequency) (*m.PriceSeries, error)
}

// ImageUploader publishes a rendered chart and returns a url it can be fetched from
type ImageUploader interface {
	Upload(ctx context.Context, name string, contentType string, body []byte) (string, error)
}

// RunHistory records every analysis request and how it ended
type RunHistory interface {
	InsertAnalysisRunHistory(ctx context.Context, run m.AnalysisRunHistory) (int32, error)
	UpdateAnalysisRunAsSuccess(ctx context.Context, runId int32) error
	UpdateAnalysisRunAsFailure(ctx context.Context, runId int32, errorMessage string) error
}

// ConfigurationStore keeps saved ticker/benchmark/risk free combinations
type ConfigurationStore interface {
	GetAnalysisConfigurations(ctx context.Context) ([]*m.AnalysisConfiguration, error)
	GetAnalysisConfigurationByID(ctx context.Context, id int32) (*m.AnalysisConfiguration, error)
	InsertAnalysisConfiguration(ctx context.Context, cfg m.NewAnalysisConfiguration) (*m.AnalysisConfiguration, error)
	DeleteAnalysisConfiguration(ctx context.Context, id int32) error
}

// PriceCache is the persisted copy of fetched price series
type PriceCache interface {
	GetTransaction(ctx context.Context) (pgx.Tx, error)
	GetMetaDataBySymbol(ctx context.Context, symbol string, freq m.Frequency) (*m.TimeSeriesMetadata, error)
	InsertNewMetaData(ctx context.Context, metadata *m.TimeSeriesMetadata, tx *pgx.Tx) error
	LockMetaData(ctx context.Context, id int32, tx *pgx.Tx) (*m.TimeSeriesMetadata, error)
	UpdateLastRefreshedDate(ctx context.Context, symbol string, freq m.Frequency, lastRefreshed time.Time, tx *pgx.Tx) error
	GetMostRecentTimestampForSymbol(ctx context.Context, symbol string, freq m.Frequency, tx *pgx.Tx) (*time.Time, error)
	GetTimeSeriesData(ctx context.Context, symbol string, freq m.Frequency, since time.Time) (*m.PriceSeries, error)
	InsertTimeSeriesData(ctx context.Context, data []*m.TimeSeriesData, sourceId *int32, tx *pgx.Tx) (int64, error)
}

// SymbolSyncer refreshes the cached copy of a symbol
type SymbolSyncer interface {
	SyncSymbolTimeSeriesData(ctx context.Context, symbol string, freq m.Frequency) (time.Time, error)
}

// Reporter renders a finished analysis into the formats the outer surfaces hand out
type Reporter interface {
	RegressionChart(res *AnalysisResult) ([]byte, error)
	RollingBetaChart(res *AnalysisResult) ([]byte, error)
	Workbook(res *AnalysisResult) ([]byte, error)
	WorkbookName(res *AnalysisResult) string
	Summary(res *AnalysisResult) string
}

// ServiceContext carries the long lived clients shared by every request. Nothing on it changes
// while serving, per run state lives in an AnalysisSession.
type ServiceContext struct {
	Fetcher        PriceFetcher
	History        RunHistory
	Configurations ConfigurationStore // nil without a database
	Syncer         SymbolSyncer       // nil without a database
	Uploader       ImageUploader      // nil disables media replies
	Reporter       Reporter
	Settings       AnalysisSettings
	SMSTrigger     string
	Log            zerolog.Logger
}

// NoopRunHistory is used when there is no database to record runs in
type NoopRunHistory struct{}

func (NoopRunHistory) InsertAnalysisRunHistory(context.Context, m.AnalysisRunHistory) (int32, error) {
	return 0, nil
}

func (NoopRunHistory) UpdateAnalysisRunAsSuccess(context.Context, int32) error {
	return nil
}

func (NoopRunHistory) UpdateAnalysisRunAsFailure(context.Context, int32, string) error {
	return nil
}
