package models

import "github.com/guregu/null/v6"

type AnalysisResponse struct {
	Ticker          string                `json:"ticker"`
	Benchmark       string                `json:"benchmark"`
	RiskFree        string                `json:"riskFree"`
	Frequency       string                `json:"frequency"`
	FirstDate       string                `json:"firstDate"`
	LastDate        string                `json:"lastDate"`
	YearsDifference float64               `json:"yearsDifference"`
	Observations    int                   `json:"observations"`
	RiskFreeDropped int                   `json:"riskFreeDropped"`
	Regression      RegressionTable       `json:"regression"`
	Betas           []HorizonBetaResponse `json:"betas"`
	RollingBetas    []RollingBetaSeries   `json:"rollingBetas"`
	Summary         string                `json:"summary"`
}

type RegressionTable struct {
	Rows             []CoefficientRow `json:"rows"`
	RSquared         null.Float       `json:"rSquared"`
	DegreesOfFreedom int              `json:"degreesOfFreedom"`
}

// CoefficientRow is one line of the OLS table, "const" or "<benchmark> - RF"
type CoefficientRow struct {
	Name        string     `json:"name"`
	Coefficient float64    `json:"coefficient"`
	StdError    null.Float `json:"stdError"`
	TValue      null.Float `json:"tValue"`
	PValue      null.Float `json:"pValue"`
}

type HorizonBetaResponse struct {
	Years   int     `json:"years"`
	Periods int     `json:"periods"`
	Beta    float64 `json:"beta"`
}

// RollingBetaSeries only carries the rows where the window was full and fit
type RollingBetaSeries struct {
	Window int                `json:"window"`
	Name   string             `json:"name"`
	Points []RollingBetaPoint `json:"points"`
}

type RollingBetaPoint struct {
	Date string  `json:"date"`
	Beta float64 `json:"beta"`
}
