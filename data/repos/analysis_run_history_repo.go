package repos

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	m "github.com/graygillman/CapmAnalysis/data/models"
	q "github.com/graygillman/CapmAnalysis/data/queries"
)

func (pg *Postgres) InsertAnalysisRunHistory(ctx context.Context, run m.AnalysisRunHistory) (int32, error) {
	sql := q.Get(q.QueryHelper.Insert.AnalysisRun)
	args := pgx.NamedArgs{
		"ticker":    run.Ticker,
		"benchmark": run.Benchmark,
		"risk_free": run.RiskFree,
		"frequency": run.Frequency,
		"source":    run.Source,
	}

	var run_id int32
	if err := pg.db.QueryRow(ctx, sql, args).Scan(&run_id); err != nil {
		return 0, fmt.Errorf("error inserting analysis run history: %w", err)
	}

	return run_id, nil
}

func (pg *Postgres) UpdateAnalysisRunAsFailure(ctx context.Context, run_id int32, error_message string) error {
	clean_error_message := strings.TrimSpace(error_message)
	if clean_error_message == "" {
		return fmt.Errorf("error message is required if analysis run is failing, occurred in %d", run_id)
	}

	return pg.updateAnalysisRun(ctx, pgx.NamedArgs{
		"id":            run_id,
		"error_message": clean_error_message,
	})
}

func (pg *Postgres) UpdateAnalysisRunAsSuccess(ctx context.Context, run_id int32) error {
	return pg.updateAnalysisRun(ctx, pgx.NamedArgs{
		"id":            run_id,
		"error_message": nil,
	})
}

func (pg *Postgres) updateAnalysisRun(ctx context.Context, args pgx.NamedArgs) error {
	sql := q.Get(q.QueryHelper.Update.AnalysisRun)
	if _, err := pg.db.Exec(ctx, sql, args); err != nil {
		return fmt.Errorf("error updating analysis run: %w", err)
	}
	return nil
}
