package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	m "github.com/graygillman/CapmAnalysis/data/models"
)

const (
	SourceCLI           = "cli"
	SourceHTTP          = "http"
	SourceSMS           = "sms"
	SourceConfiguration = "configuration"
)

type AnalysisRequest struct {
	Ticker    string      `json:"ticker"`
	Benchmark string      `json:"benchmark"`
	RiskFree  string      `json:"riskFree"`
	Frequency m.Frequency `json:"frequency"`
	Source    string      `json:"-"`
}

// NewAnalysisRequest normalizes symbols to upper case and parses the frequency
func NewAnalysisRequest(ticker, benchmark, riskFree, frequency, source string) (AnalysisRequest, error) {
	freq, err := m.ParseFrequency(frequency)
	if err != nil {
		return AnalysisRequest{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	req := AnalysisRequest{
		Ticker:    strings.ToUpper(strings.TrimSpace(ticker)),
		Benchmark: strings.ToUpper(strings.TrimSpace(benchmark)),
		RiskFree:  strings.ToUpper(strings.TrimSpace(riskFree)),
		Frequency: freq,
		Source:    source,
	}

	return req, req.Validate()
}

func (r AnalysisRequest) Validate() error {
	if r.Ticker == "" || r.Benchmark == "" || r.RiskFree == "" {
		return fmt.Errorf("%w: ticker, benchmark and risk free symbols are required", ErrInvalidRequest)
	}
	if r.Frequency != m.Daily && r.Frequency != m.Monthly {
		return fmt.Errorf("%w: unknown frequency %q", ErrInvalidRequest, r.Frequency)
	}
	return nil
}

type AnalysisSettings struct {
	RollingWindows        []int
	HorizonPeriodsPerYear int
	RiskFreePolicy        RiskFreePolicy
	DailyHorizons         []int
	MonthlyHorizons       []int
}

func DefaultAnalysisSettings() AnalysisSettings {
	return AnalysisSettings{
		RollingWindows:        DefaultRollingWindows,
		HorizonPeriodsPerYear: 12,
		RiskFreePolicy:        RiskFreeDropRow,
		DailyHorizons:         DefaultHorizons(m.Daily),
		MonthlyHorizons:       DefaultHorizons(m.Monthly),
	}
}

func (s AnalysisSettings) Horizons(freq m.Frequency) []int {
	if freq == m.Monthly {
		return s.MonthlyHorizons
	}
	return s.DailyHorizons
}

// AnalysisResult is everything one run produced, it belongs to the caller that asked for it
type AnalysisResult struct {
	Request        AnalysisRequest
	Asset          *m.PriceSeries
	Benchmark      *m.PriceSeries
	RiskFree       *m.PriceSeries
	Frame          *ReturnFrame
	Regression     *RegressionResult
	Betas          []HorizonBeta
	RollingBetas   BetaSeries
	RollingWindows []int
	CompletedAt    time.Time
}

// AnalysisSession runs the estimators for a single request in order, each stage reads the frame
// and returns a new value
type AnalysisSession struct {
	request  AnalysisRequest
	settings AnalysisSettings
	log      zerolog.Logger
	start    time.Time
}

func NewAnalysisSession(req AnalysisRequest, settings AnalysisSettings, log zerolog.Logger) *AnalysisSession {
	return &AnalysisSession{
		request:  req,
		settings: settings,
		log:      log,
		start:    time.Now(),
	}
}

func (s *AnalysisSession) Run(asset, benchmark, riskFree *m.PriceSeries) (*AnalysisResult, error) {
	s.log.Debug().Dur("elapsed", time.Since(s.start)).Msg("building return frame")
	frame, err := BuildReturnFrame(asset, benchmark, riskFree, s.request.Frequency,
		WithRiskFreePolicy(s.settings.RiskFreePolicy),
		WithLogger(s.log),
	)
	if err != nil {
		return nil, err
	}

	s.log.Debug().Int("rows", frame.Len()).Dur("elapsed", time.Since(s.start)).Msg("performing regression")
	regression, err := PerformRegression(frame)
	if err != nil {
		return nil, err
	}

	s.log.Debug().Dur("elapsed", time.Since(s.start)).Msg("finding multi period betas")
	betas, err := FindBeta(frame, s.settings.Horizons(s.request.Frequency), s.settings.HorizonPeriodsPerYear)
	if err != nil {
		return nil, err
	}

	s.log.Debug().Dur("elapsed", time.Since(s.start)).Msg("calculating rolling betas")
	rolling := CalculateRollingBeta(frame, s.settings.RollingWindows)

	return &AnalysisResult{
		Request:        s.request,
		Asset:          asset,
		Benchmark:      benchmark,
		RiskFree:       riskFree,
		Frame:          frame,
		Regression:     regression,
		Betas:          betas,
		RollingBetas:   rolling,
		RollingWindows: s.settings.RollingWindows,
		CompletedAt:    time.Now(),
	}, nil
}

func (sc *ServiceContext) RunAnalysis(ctx context.Context, req AnalysisRequest) (*AnalysisResult, error) {
	start := time.Now()
	log := sc.Log.With().
		Str("ticker", req.Ticker).
		Str("benchmark", req.Benchmark).
		Str("risk_free", req.RiskFree).
		Str("frequency", string(req.Frequency)).
		Str("source", req.Source).
		Logger()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	log.Info().Msg("received analysis request")
	runId, err := sc.History.InsertAnalysisRunHistory(ctx, m.AnalysisRunHistory{
		Ticker:    req.Ticker,
		Benchmark: req.Benchmark,
		RiskFree:  req.RiskFree,
		Frequency: string(req.Frequency),
		Source:    req.Source,
	})
	if err != nil {
		log.Error().Err(err).Msg("error inserting analysis run history")
		return nil, err
	}

	log.Info().Dur("elapsed", time.Since(start)).Msg("fetching price series")
	asset, benchmark, riskFree, err := sc.fetchSeries(ctx, req)
	if err != nil {
		log.Error().Err(err).Msg("error fetching price series")
		return sc.markAnalysisRunAsFailure(ctx, runId, err)
	}

	session := NewAnalysisSession(req, sc.Settings, log)
	res, err := session.Run(asset, benchmark, riskFree)
	if err != nil {
		log.Error().Err(err).Msg("error running analysis")
		return sc.markAnalysisRunAsFailure(ctx, runId, err)
	}

	// if the success update fails a failure update would fail too
	if err := sc.History.UpdateAnalysisRunAsSuccess(ctx, runId); err != nil {
		log.Error().Err(err).Msg("error updating analysis run as success")
		return nil, err
	}

	log.Info().
		Float64("beta", res.Regression.Beta.Value).
		Int("rows", res.Frame.Len()).
		Dur("elapsed", time.Since(start)).
		Msg("analysis completed")
	return res, nil
}

// RunConfiguration runs a saved configuration by id
func (sc *ServiceContext) RunConfiguration(ctx context.Context, id int32) (*AnalysisResult, error) {
	if sc.Configurations == nil {
		return nil, errNoDatabase
	}

	cfg, err := sc.Configurations.GetAnalysisConfigurationByID(ctx, id)
	if err != nil {
		return nil, err
	}

	req, err := NewAnalysisRequest(cfg.Ticker, cfg.Benchmark, cfg.RiskFree, cfg.Frequency, SourceConfiguration)
	if err != nil {
		return nil, err
	}

	return sc.RunAnalysis(ctx, req)
}

// fetchSeries downloads the three series concurrently, any failure cancels the others
func (sc *ServiceContext) fetchSeries(ctx context.Context, req AnalysisRequest) (asset, benchmark, riskFree *m.PriceSeries, err error) {
	g, gctx := errgroup.WithContext(ctx)

	fetch := func(symbol string, dst **m.PriceSeries) func() error {
		return func() error {
			ps, err := sc.Fetcher.GetPriceSeries(gctx, symbol, req.Frequency)
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrDataUnavailable, symbol, err)
			}
			if ps == nil || ps.Valid() == 0 {
				return fmt.Errorf("%w: %s returned no prices", ErrDataUnavailable, symbol)
			}
			ps.Symbol = symbol
			*dst = ps
			return nil
		}
	}

	g.Go(fetch(req.Ticker, &asset))
	g.Go(fetch(req.Benchmark, &benchmark))
	g.Go(fetch(req.RiskFree, &riskFree))

	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}

	return asset, benchmark, riskFree, nil
}

func (sc *ServiceContext) markAnalysisRunAsFailure(ctx context.Context, runId int32, cause error) (*AnalysisResult, error) {
	if err := sc.History.UpdateAnalysisRunAsFailure(ctx, runId, cause.Error()); err != nil {
		sc.Log.Error().Err(err).Int32("run_id", runId).Msg("error updating analysis run as failure")
		return nil, errors.Join(cause, err)
	}
	return nil, cause
}

var errNoDatabase = errors.New("saved configurations need a database, set database.url")
