package models

type FrequencyOption struct {
	Code           string `json:"code"`
	Name           string `json:"name"`
	PeriodsPerYear int    `json:"periodsPerYear"`
	Horizons       []int  `json:"horizons"`
}

type SettingsResponse struct {
	Frequencies           []FrequencyOption `json:"frequencies"`
	RollingWindows        []int             `json:"rollingWindows"`
	HorizonPeriodsPerYear int               `json:"horizonPeriodsPerYear"`
	RiskFreePolicy        string            `json:"riskFreePolicy"`
	SMSTrigger            string            `json:"smsTrigger"`
}
