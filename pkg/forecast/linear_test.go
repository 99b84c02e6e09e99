package forecast

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opscart/k8s-resource-advisor/pkg/models"
)

var start = time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)

func seriesOf(step time.Duration, values ...float64) models.Series {
	points := make([]models.Point, len(values))
	for i, v := range values {
		points[i] = models.Point{Timestamp: start.Add(time.Duration(i) * step), Value: v}
	}
	return models.Series{Service: "checkout", Resource: models.ResourceCPU, Points: points}
}

func TestFitConstantSeries(t *testing.T) {
	engine := NewLinearEngine(DefaultIntervalWidth, true)

	for _, n := range []int{1, 2, 3, 10} {
		values := make([]float64, n)
		for i := range values {
			values[i] = 250
		}

		forecast, err := engine.Fit(context.Background(), seriesOf(time.Minute, values...), Horizon{Steps: 5})
		require.NoError(t, err, "n=%d", n)
		require.Len(t, forecast.Points, n+5)

		for _, p := range forecast.Points {
			assert.InDelta(t, 250, p.Estimate, 1e-9)
			assert.InDelta(t, 250, p.UpperBound, 1e-9)
			assert.InDelta(t, 250, p.LowerBound, 1e-9)
		}
		assert.InDelta(t, 250, forecast.MaxUpper(), 1e-9)
		assert.InDelta(t, 250, forecast.TrendMean, 1e-9)
		assert.False(t, forecast.HasDailyPattern)
		assert.False(t, forecast.HasWeeklyPattern)
	}
}

func TestFitLinearTrend(t *testing.T) {
	engine := NewLinearEngine(DefaultIntervalWidth, false)

	forecast, err := engine.Fit(context.Background(), seriesOf(time.Minute, 100, 150, 200), Horizon{Steps: 2})
	require.NoError(t, err)
	require.Len(t, forecast.Points, 5)

	expected := []float64{100, 150, 200, 250, 300}
	for i, p := range forecast.Points {
		assert.InDelta(t, expected[i], p.Estimate, 1e-6, "point %d", i)
		assert.Equal(t, i >= 3, p.Future)
		assert.Equal(t, start.Add(time.Duration(i)*time.Minute), p.Timestamp)
	}
	assert.InDelta(t, 300, forecast.MaxUpper(), 1e-6)
	assert.InDelta(t, 200, forecast.TrendMean, 1e-6)
}

func TestFitBandCoversResiduals(t *testing.T) {
	engine := NewLinearEngine(DefaultIntervalWidth, false)

	forecast, err := engine.Fit(context.Background(), seriesOf(time.Minute, 100, 140, 90, 160, 110, 150), Horizon{})
	require.NoError(t, err)
	require.Len(t, forecast.Points, 6)

	for _, p := range forecast.Points {
		assert.LessOrEqual(t, p.LowerBound, p.Estimate)
		assert.GreaterOrEqual(t, p.UpperBound, p.Estimate)
	}
	assert.Greater(t, forecast.Points[0].UpperBound, forecast.Points[0].LowerBound)
}

func TestFitShortSeriesUsesSpread(t *testing.T) {
	engine := NewLinearEngine(DefaultIntervalWidth, false)

	forecast, err := engine.Fit(context.Background(), seriesOf(time.Minute, 100, 200), Horizon{Steps: 1})
	require.NoError(t, err)
	require.Len(t, forecast.Points, 3)

	spread := normalQuantile(DefaultIntervalWidth) * 50
	for _, p := range forecast.Points {
		assert.InDelta(t, 150, p.Estimate, 1e-9)
		assert.InDelta(t, 150+spread, p.UpperBound, 1e-9)
		assert.InDelta(t, 150-spread, p.LowerBound, 1e-9)
	}
}

func TestFitDuplicateTimestamps(t *testing.T) {
	engine := NewLinearEngine(DefaultIntervalWidth, false)
	series := models.Series{
		Service:  "checkout",
		Resource: models.ResourceMemory,
		Points: []models.Point{
			{Timestamp: start, Value: 100},
			{Timestamp: start, Value: 120},
			{Timestamp: start.Add(time.Minute), Value: 110},
			{Timestamp: start.Add(time.Minute), Value: 130},
			{Timestamp: start.Add(2 * time.Minute), Value: 140},
		},
	}

	forecast, err := engine.Fit(context.Background(), series, Horizon{Steps: 3})
	require.NoError(t, err)
	require.Len(t, forecast.Points, 6, "one point per distinct timestamp plus horizon")
	assert.Equal(t, start.Add(5*time.Minute), forecast.Points[5].Timestamp, "step inferred from cadence")
	for _, p := range forecast.Points {
		assert.False(t, math.IsNaN(p.UpperBound))
	}
}

func TestFitSingleTimestampRepeated(t *testing.T) {
	engine := NewLinearEngine(DefaultIntervalWidth, true)
	series := models.Series{Points: []models.Point{
		{Timestamp: start, Value: 10},
		{Timestamp: start, Value: 20},
		{Timestamp: start, Value: 30},
	}}

	forecast, err := engine.Fit(context.Background(), series, Horizon{Steps: 2})
	require.NoError(t, err)
	require.Len(t, forecast.Points, 3)
	assert.Equal(t, start.Add(2*DefaultStep), forecast.Points[2].Timestamp)
}

func TestFitDailySeasonality(t *testing.T) {
	engine := NewLinearEngine(DefaultIntervalWidth, true)

	values := make([]float64, 72)
	for h := range values {
		values[h] = 500 + 100*math.Sin(2*math.Pi*float64(h)/24)
	}

	forecast, err := engine.Fit(context.Background(), seriesOf(time.Hour, values...), Horizon{Steps: 24})
	require.NoError(t, err)
	assert.True(t, forecast.HasDailyPattern)
	for i, p := range forecast.Points[:72] {
		assert.InDelta(t, values[i], p.Estimate, 1e-3, "point %d", i)
	}
	assert.InDelta(t, 600, forecast.MaxUpper(), 1)

	flat := NewLinearEngine(DefaultIntervalWidth, false)
	plain, err := flat.Fit(context.Background(), seriesOf(time.Hour, values...), Horizon{Steps: 24})
	require.NoError(t, err)
	assert.False(t, plain.HasDailyPattern)
}

func TestFitErrors(t *testing.T) {
	engine := NewLinearEngine(DefaultIntervalWidth, false)

	_, err := engine.Fit(context.Background(), models.Series{}, Horizon{})
	assert.ErrorIs(t, err, ErrEmptySeries)

	_, err = engine.Fit(context.Background(), seriesOf(time.Minute, 1, math.NaN(), 3), Horizon{})
	assert.ErrorIs(t, err, ErrNonFinite)

	_, err = engine.Fit(context.Background(), seriesOf(time.Minute, 1, math.Inf(1)), Horizon{})
	assert.ErrorIs(t, err, ErrNonFinite)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = engine.Fit(ctx, seriesOf(time.Minute, 1, 2, 3), Horizon{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewLinearEngineWidth(t *testing.T) {
	assert.Equal(t, DefaultIntervalWidth, NewLinearEngine(0, false).IntervalWidth)
	assert.Equal(t, DefaultIntervalWidth, NewLinearEngine(1.5, false).IntervalWidth)
	assert.Equal(t, 0.8, NewLinearEngine(0.8, false).IntervalWidth)
}
