package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQuantile(t *testing.T) {
	values := []float64{50, 10, 40, 20, 30}

	tests := []struct {
		q        float64
		expected float64
	}{
		{0, 10},
		{0.5, 30},
		{1, 50},
		{0.2, 18},
		{0.8, 42},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.expected, quantile(values, tt.q), 1e-9, "q=%v", tt.q)
	}
	assert.Equal(t, []float64{50, 10, 40, 20, 30}, values, "input not reordered")
	assert.Equal(t, 0.0, quantile(nil, 0.5))
	assert.Equal(t, 7.0, quantile([]float64{7}, 0.9))
}

func TestStdDev(t *testing.T) {
	assert.InDelta(t, 2.0, stdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-9)
	assert.Equal(t, 0.0, stdDev([]float64{3}))
}

func TestNormalQuantile(t *testing.T) {
	assert.InDelta(t, 1.959964, normalQuantile(0.95), 1e-5)
	assert.InDelta(t, 0.841621, normalQuantile(0.6), 1e-5)
}

func TestLinearRegression(t *testing.T) {
	slope, intercept, r2 := linearRegression([]float64{0, 1, 2, 3}, []float64{1, 3, 5, 7})
	assert.InDelta(t, 2, slope, 1e-9)
	assert.InDelta(t, 1, intercept, 1e-9)
	assert.InDelta(t, 1, r2, 1e-9)

	slope, intercept, _ = linearRegression([]float64{1, 1}, []float64{4, 6})
	assert.Equal(t, 0.0, slope)
	assert.Equal(t, 5.0, intercept)
}

func TestInferStep(t *testing.T) {
	ts := func(minutes ...int) []time.Time {
		out := make([]time.Time, len(minutes))
		for i, m := range minutes {
			out[i] = start.Add(time.Duration(m) * time.Minute)
		}
		return out
	}

	assert.Equal(t, DefaultStep, inferStep(nil))
	assert.Equal(t, DefaultStep, inferStep(ts(0)))
	assert.Equal(t, 5*time.Minute, inferStep(ts(0, 5, 10, 30)))
	assert.Equal(t, 3*time.Minute, inferStep(ts(0, 2, 6)))
}

func TestSolve(t *testing.T) {
	x, err := solve([][]float64{{2, 1}, {1, 3}}, []float64{3, 5})
	assert.NoError(t, err)
	assert.InDelta(t, 0.8, x[0], 1e-9)
	assert.InDelta(t, 1.4, x[1], 1e-9)

	_, err = solve([][]float64{{1, 2}, {2, 4}}, []float64{1, 2})
	assert.ErrorIs(t, err, errSingular)
}
