package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/opscart/k8s-resource-advisor/pkg/models"
)

const (
	// DefaultIntervalWidth is the share of residuals covered by the uncertainty band
	DefaultIntervalWidth = 0.6

	dailyPeriodHours = 24.0
	dailyOrder       = 3

	// below this many distinct timestamps the regression is not trusted
	minTrendPoints = 3
)

// LinearEngine fits an OLS trend, an optional intraday Fourier pattern,
// and an uncertainty band taken from the empirical residual quantiles.
type LinearEngine struct {
	IntervalWidth float64
	Seasonality   bool
}

// NewLinearEngine creates an engine. A width outside (0,1) falls back to the default.
func NewLinearEngine(intervalWidth float64, seasonality bool) *LinearEngine {
	if intervalWidth <= 0 || intervalWidth >= 1 {
		intervalWidth = DefaultIntervalWidth
	}
	return &LinearEngine{
		IntervalWidth: intervalWidth,
		Seasonality:   seasonality,
	}
}

// fit is the fitted model evaluated at hours since the first sample
type fit struct {
	slope, intercept float64
	seasonal         *seasonalModel
	lower, upper     float64 // band offsets around the estimate
}

func (f *fit) trend(hours float64) float64 {
	return f.slope*hours + f.intercept
}

func (f *fit) estimate(hours float64) float64 {
	return f.trend(hours) + f.seasonal.at(hours)
}

// Fit implements Engine
func (e *LinearEngine) Fit(ctx context.Context, series models.Series, horizon Horizon) (*models.Forecast, error) {
	if len(series.Points) == 0 {
		return nil, fmt.Errorf("failed to fit %s/%s: %w", series.Service, series.Resource, ErrEmptySeries)
	}

	values := series.Values()
	if !allFinite(values) {
		return nil, fmt.Errorf("failed to fit %s/%s: %w", series.Service, series.Resource, ErrNonFinite)
	}

	start := series.Points[0].Timestamp
	hours := make([]float64, len(series.Points))
	for i, p := range series.Points {
		hours[i] = p.Timestamp.Sub(start).Hours()
	}

	timestamps := distinctTimestamps(series.Points)

	var model *fit
	if len(timestamps) < minTrendPoints {
		model = e.fitFlat(values)
	} else {
		model = e.fitTrend(hours, values)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("failed to fit %s/%s: %w", series.Service, series.Resource, err)
	}

	step := horizon.Step
	if step <= 0 {
		step = inferStep(timestamps)
	}
	steps := horizon.Steps
	if steps < 0 {
		steps = 0
	}

	forecast := &models.Forecast{
		Points:          make([]models.ForecastPoint, 0, len(timestamps)+steps),
		HasDailyPattern: model.seasonal != nil,
	}

	trendSum := 0.0
	addPoint := func(ts time.Time, future bool) {
		h := ts.Sub(start).Hours()
		estimate := model.estimate(h)
		trendSum += model.trend(h)
		forecast.Points = append(forecast.Points, models.ForecastPoint{
			Timestamp:  ts,
			Estimate:   estimate,
			LowerBound: estimate + model.lower,
			UpperBound: estimate + model.upper,
			Future:     future,
		})
	}

	for _, ts := range timestamps {
		addPoint(ts, false)
	}
	last := timestamps[len(timestamps)-1]
	for i := 1; i <= steps; i++ {
		addPoint(last.Add(time.Duration(i)*step), true)
	}

	forecast.TrendMean = trendSum / float64(len(forecast.Points))
	return forecast, nil
}

// fitFlat models a short series as its mean with a normal band scaled from its spread
func (e *LinearEngine) fitFlat(values []float64) *fit {
	spread := normalQuantile(e.IntervalWidth) * stdDev(values)
	return &fit{
		intercept: mean(values),
		lower:     -spread,
		upper:     spread,
	}
}

func (e *LinearEngine) fitTrend(hours, values []float64) *fit {
	model := &fit{}
	if e.Seasonality && hasDailyCoverage(hours) {
		slope, intercept, seasonal, err := fitWithSeasonality(hours, values, dailyPeriodHours, dailyOrder)
		if err == nil {
			model.slope, model.intercept, model.seasonal = slope, intercept, seasonal
		}
	}
	if model.seasonal == nil {
		model.slope, model.intercept, _ = linearRegression(hours, values)
	}

	residuals := make([]float64, len(values))
	for i := range values {
		residuals[i] = values[i] - model.estimate(hours[i])
	}

	model.lower = quantile(residuals, (1-e.IntervalWidth)/2)
	model.upper = quantile(residuals, (1+e.IntervalWidth)/2)
	return model
}

// hasDailyCoverage reports whether the samples span two full days with enough points for the Fourier terms
func hasDailyCoverage(hours []float64) bool {
	if len(hours) < 4*dailyOrder+1 {
		return false
	}
	return hours[len(hours)-1]-hours[0] >= 2*dailyPeriodHours
}
