package repos

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	m "github.com/graygillman/CapmAnalysis/data/models"
	q "github.com/graygillman/CapmAnalysis/data/queries"
)

var ErrConfigurationNotFound = errors.New("analysis configuration not found")

func (pg *Postgres) GetAnalysisConfigurations(ctx context.Context) ([]*m.AnalysisConfiguration, error) {
	res, err := Query[m.AnalysisConfiguration](ctx, pg, q.Get(q.QueryHelper.Select.AllAnalysisConfigurations), pgx.NamedArgs{})
	if err != nil {
		return nil, fmt.Errorf("unable to get analysis configurations: %w", err)
	}
	return res, nil
}

func (pg *Postgres) GetAnalysisConfigurationByID(ctx context.Context, id int32) (*m.AnalysisConfiguration, error) {
	res, err := Query[m.AnalysisConfiguration](ctx, pg, q.Get(q.QueryHelper.Select.AnalysisConfigurationById), pgx.NamedArgs{"id": id})
	if err != nil {
		return nil, fmt.Errorf("unable to get analysis configuration by id: %w", err)
	}

	if len(res) == 0 {
		return nil, fmt.Errorf("%w: id %d", ErrConfigurationNotFound, id)
	}

	return res[0], nil
}

func (pg *Postgres) InsertAnalysisConfiguration(ctx context.Context, cfg m.NewAnalysisConfiguration) (*m.AnalysisConfiguration, error) {
	args := pgx.NamedArgs{
		"name":      cfg.Name,
		"ticker":    cfg.Ticker,
		"benchmark": cfg.Benchmark,
		"risk_free": cfg.RiskFree,
		"frequency": string(cfg.Frequency),
	}

	res, err := QuerySingle[m.AnalysisConfiguration](ctx, pg, q.Get(q.QueryHelper.Insert.AnalysisConfiguration), args)
	if err != nil {
		return nil, fmt.Errorf("error inserting analysis configuration %s: %w", cfg.Name, err)
	}

	return res, nil
}

func (pg *Postgres) DeleteAnalysisConfiguration(ctx context.Context, id int32) error {
	tag, err := pg.db.Exec(ctx, q.Get(q.QueryHelper.Delete.AnalysisConfiguration), pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("error deleting analysis configuration %d: %w", id, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %d", ErrConfigurationNotFound, id)
	}

	return nil
}
