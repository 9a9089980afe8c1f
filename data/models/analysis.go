package models

import (
	"time"

	"github.com/guregu/null/v6"
)

// AnalysisConfiguration is a saved ticker/benchmark/risk free combination
type AnalysisConfiguration struct {
	Id        int32     `db:"id"`
	Name      string    `db:"name"`
	Ticker    string    `db:"ticker"`
	Benchmark string    `db:"benchmark"`
	RiskFree  string    `db:"risk_free"`
	Frequency string    `db:"frequency"`
	CreatedAt time.Time `db:"created_at"`
}

type NewAnalysisConfiguration struct {
	Name      string
	Ticker    string
	Benchmark string
	RiskFree  string
	Frequency Frequency
}

// AnalysisRunHistory is one row per analysis request, whatever the entry point was
type AnalysisRunHistory struct {
	Id           int32       `db:"id"`
	Ticker       string      `db:"ticker"`
	Benchmark    string      `db:"benchmark"`
	RiskFree     string      `db:"risk_free"`
	Frequency    string      `db:"frequency"`
	Source       string      `db:"source"`
	StartedAt    time.Time   `db:"started_at"`
	CompletedAt  null.Time   `db:"completed_at"`
	ErrorMessage null.String `db:"error_message"`
}
