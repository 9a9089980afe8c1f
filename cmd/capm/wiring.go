package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	r "github.com/graygillman/CapmAnalysis/data/repos"
	av "github.com/graygillman/CapmAnalysis/service/api/alpha_vantage"
	"github.com/graygillman/CapmAnalysis/service/api/storage"
	"github.com/graygillman/CapmAnalysis/service/api/yahoo"
	"github.com/graygillman/CapmAnalysis/service/config"
	"github.com/graygillman/CapmAnalysis/service/core"
	"github.com/graygillman/CapmAnalysis/service/report"
)

// application owns the long lived connections behind a ServiceContext
type application struct {
	sc       *core.ServiceContext
	postgres *r.Postgres
}

func (a *application) Close() {
	if a.postgres != nil {
		a.postgres.Close()
	}
}

// newApplication wires the market data provider, and the postgres cache, run history and
// saved configurations when a database url is set
func newApplication(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*application, error) {
	policy, err := core.ParseRiskFreePolicy(cfg.Analysis.RiskFreePolicy)
	if err != nil {
		return nil, err
	}

	sc := &core.ServiceContext{
		Fetcher:  newMarketDataFetcher(cfg.MarketData, log),
		History:  core.NoopRunHistory{},
		Reporter: report.New(log),
		Settings: core.AnalysisSettings{
			RollingWindows:        cfg.Analysis.RollingWindows,
			HorizonPeriodsPerYear: cfg.Analysis.HorizonPeriodsPerYear,
			RiskFreePolicy:        policy,
			DailyHorizons:         cfg.Analysis.DailyHorizons,
			MonthlyHorizons:       cfg.Analysis.MonthlyHorizons,
		},
		SMSTrigger: cfg.SMS.Trigger,
		Log:        log,
	}
	app := &application{sc: sc}

	if cfg.Database.URL != "" {
		pg, err := r.GetPostgresConnection(ctx, cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		app.postgres = pg

		// the pool connects lazily, fail at startup rather than on the first request
		if err := pg.Ping(ctx); err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to reach database: %w", err)
		}

		if err := pg.EnsureSchema(ctx); err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}

		cached := core.NewCachedFetcher(pg, sc.Fetcher, cfg.Sync.MaxAge, log)
		sc.Fetcher = cached
		sc.Syncer = cached
		sc.History = pg
		sc.Configurations = pg
		log.Info().Msg("using postgres price cache")
	} else {
		log.Info().Msg("no database configured, prices are fetched on every run")
	}

	if cfg.Storage.Bucket != "" {
		uploader, err := storage.NewUploader(ctx, storage.Config{
			Bucket:          cfg.Storage.Bucket,
			Region:          cfg.Storage.Region,
			Endpoint:        cfg.Storage.Endpoint,
			PublicBaseURL:   cfg.Storage.PublicBaseURL,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
			PresignExpiry:   cfg.Storage.PresignExpiry,
		}, log)
		if err != nil {
			app.Close()
			return nil, err
		}
		sc.Uploader = uploader
	}

	return app, nil
}

func newMarketDataFetcher(md config.MarketDataConfig, log zerolog.Logger) core.PriceFetcher {
	if md.Provider == "alphavantage" {
		log.Info().Msg("using alpha vantage market data")
		return av.GetClient(md.AlphaVantageAPIKey, md.Timeout, log)
	}
	log.Info().Msg("using yahoo market data")
	return yahoo.NewClient(md.Timeout, log)
}
