package models

import "time"

// ResourceType identifies the resource a series or recommendation describes
type ResourceType string

const (
	ResourceCPU    ResourceType = "cpu"
	ResourceMemory ResourceType = "memory"
)

// Resources lists every resource type a recommendation is produced for
var Resources = []ResourceType{ResourceCPU, ResourceMemory}

// Point is a normalized observation
type Point struct {
	Timestamp time.Time
	Value     float64
}

// Series is the ordered usage history of one service for one resource type.
// Values are in the canonical unit of the resource (millicores or Mi).
type Series struct {
	Service  string
	Resource ResourceType
	Points   []Point
}

// Values returns the point values in order
func (s Series) Values() []float64 {
	values := make([]float64, len(s.Points))
	for i, p := range s.Points {
		values[i] = p.Value
	}
	return values
}

// ForecastPoint is one row of a forecast
type ForecastPoint struct {
	Timestamp  time.Time `json:"timestamp" yaml:"timestamp"`
	Estimate   float64   `json:"estimate" yaml:"estimate"`
	LowerBound float64   `json:"lower" yaml:"lower"`
	UpperBound float64   `json:"upper" yaml:"upper"`
	Future     bool      `json:"future" yaml:"future"`
}

// Forecast covers the observed history plus the future horizon
type Forecast struct {
	Points           []ForecastPoint
	TrendMean        float64
	HasDailyPattern  bool
	HasWeeklyPattern bool
}

// MaxUpper returns the largest upper bound over all points
func (f *Forecast) MaxUpper() float64 {
	if f == nil || len(f.Points) == 0 {
		return 0
	}
	peak := f.Points[0].UpperBound
	for _, p := range f.Points[1:] {
		if p.UpperBound > peak {
			peak = p.UpperBound
		}
	}
	return peak
}
