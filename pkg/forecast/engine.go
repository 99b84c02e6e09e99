// Package forecast fits usage series and projects them over a horizon.
package forecast

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/opscart/k8s-resource-advisor/pkg/models"
)

var (
	// ErrEmptySeries is returned when a series has no points
	ErrEmptySeries = errors.New("series has no points")
	// ErrNonFinite is returned when a series contains NaN or Inf values
	ErrNonFinite = errors.New("series contains non-finite values")
)

// DefaultStep is used when the sampling cadence cannot be inferred
const DefaultStep = time.Minute

// Horizon is the number of future points and the spacing between them.
// A zero Step is inferred from the series.
type Horizon struct {
	Steps int
	Step  time.Duration
}

// Engine fits a series and forecasts it over a horizon
type Engine interface {
	Fit(ctx context.Context, series models.Series, horizon Horizon) (*models.Forecast, error)
}

// distinctTimestamps returns the ordered unique timestamps of a series
func distinctTimestamps(points []models.Point) []time.Time {
	out := make([]time.Time, 0, len(points))
	for _, p := range points {
		if len(out) > 0 && out[len(out)-1].Equal(p.Timestamp) {
			continue
		}
		out = append(out, p.Timestamp)
	}
	return out
}

// inferStep returns the median spacing between distinct timestamps
func inferStep(timestamps []time.Time) time.Duration {
	if len(timestamps) < 2 {
		return DefaultStep
	}

	gaps := make([]time.Duration, 0, len(timestamps)-1)
	for i := 1; i < len(timestamps); i++ {
		gaps = append(gaps, timestamps[i].Sub(timestamps[i-1]))
	}
	sort.Slice(gaps, func(i, j int) bool { return gaps[i] < gaps[j] })

	step := gaps[len(gaps)/2]
	if len(gaps)%2 == 0 {
		step = (gaps[len(gaps)/2-1] + gaps[len(gaps)/2]) / 2
	}
	if step <= 0 {
		return DefaultStep
	}
	return step
}
