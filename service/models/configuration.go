package models

import (
	"time"

	dm "github.com/graygillman/CapmAnalysis/data/models"
)

type ConfigurationRequest struct {
	Name      string `json:"name"`
	Ticker    string `json:"ticker"`
	Benchmark string `json:"benchmark"`
	RiskFree  string `json:"riskFree"`
	Frequency string `json:"frequency"`
}

type ConfigurationResponse struct {
	Id        int32     `json:"id"`
	Name      string    `json:"name"`
	Ticker    string    `json:"ticker"`
	Benchmark string    `json:"benchmark"`
	RiskFree  string    `json:"riskFree"`
	Frequency string    `json:"frequency"`
	CreatedAt time.Time `json:"createdAt"`
}

func MapConfigurationToResponse(cfg *dm.AnalysisConfiguration) ConfigurationResponse {
	return ConfigurationResponse{
		Id:        cfg.Id,
		Name:      cfg.Name,
		Ticker:    cfg.Ticker,
		Benchmark: cfg.Benchmark,
		RiskFree:  cfg.RiskFree,
		Frequency: cfg.Frequency,
		CreatedAt: cfg.CreatedAt,
	}
}

func MapConfigurationsToResponse(cfgs []*dm.AnalysisConfiguration) []ConfigurationResponse {
	res := make([]ConfigurationResponse, len(cfgs))
	for i, c := range cfgs {
		res[i] = MapConfigurationToResponse(c)
	}
	return res
}
