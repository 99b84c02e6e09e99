package models

// Factors explains how a recommendation was derived
type Factors struct {
	Trend            float64 `json:"trend" yaml:"trend"`
	HasDailyPattern  bool    `json:"daily_pattern" yaml:"daily_pattern"`
	HasWeeklyPattern bool    `json:"weekly_pattern" yaml:"weekly_pattern"`
	BufferMultiplier float64 `json:"buffer" yaml:"buffer"`
}

// Recommendation is a sizing recommendation for one resource of one service
type Recommendation struct {
	Service      string       `json:"service" yaml:"service"`
	ResourceType ResourceType `json:"resource" yaml:"resource"`

	// Canonical values (millicores for cpu, Mi for memory)
	CurrentUsage float64 `json:"current_usage" yaml:"current_usage"`
	Recommended  float64 `json:"recommended" yaml:"recommended"`

	CurrentUsageFormatted string `json:"current_usage_formatted" yaml:"current_usage_formatted"`
	RecommendedFormatted  string `json:"recommendation" yaml:"recommendation"`

	ForecastPoints []ForecastPoint `json:"forecast" yaml:"forecast"`
	Factors        Factors         `json:"factors" yaml:"factors"`
}

// LastForecastPoint returns the final forecast row, if any
func (r *Recommendation) LastForecastPoint() (ForecastPoint, bool) {
	if r == nil || len(r.ForecastPoints) == 0 {
		return ForecastPoint{}, false
	}
	return r.ForecastPoints[len(r.ForecastPoints)-1], true
}

// ServiceRecommendation groups the per-resource recommendations of one service
type ServiceRecommendation struct {
	Service     string          `json:"service" yaml:"service"`
	SampleCount int             `json:"sample_count" yaml:"sample_count"`
	CPU         *Recommendation `json:"cpu" yaml:"cpu"`
	Memory      *Recommendation `json:"memory" yaml:"memory"`
}

// ServiceFailure records a service whose recommendation could not be produced
type ServiceFailure struct {
	Service string `json:"service" yaml:"service"`
	Reason  string `json:"reason" yaml:"reason"`
}
