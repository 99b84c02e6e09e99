package forecast

import (
	"errors"
	"math"
)

var errSingular = errors.New("singular system")

// linearRegression performs simple least squares regression of y on x.
// Returns slope, intercept and R².
func linearRegression(x, y []float64) (slope, intercept, r2 float64) {
	if len(x) == 0 {
		return 0, 0, 0
	}

	meanX := mean(x)
	meanY := mean(y)

	numerator := 0.0
	denominator := 0.0
	for i := range x {
		numerator += (x[i] - meanX) * (y[i] - meanY)
		denominator += (x[i] - meanX) * (x[i] - meanX)
	}

	if denominator == 0 {
		return 0, meanY, 0
	}

	slope = numerator / denominator
	intercept = meanY - slope*meanX

	ssTotal := 0.0
	ssRes := 0.0
	for i := range x {
		predicted := slope*x[i] + intercept
		ssRes += (y[i] - predicted) * (y[i] - predicted)
		ssTotal += (y[i] - meanY) * (y[i] - meanY)
	}

	if ssTotal > 0 {
		r2 = math.Max(0, math.Min(1, 1.0-ssRes/ssTotal))
	}

	return slope, intercept, r2
}

// fourierFeatures returns sin/cos terms of the given order for a period, both in hours
func fourierFeatures(hours, period float64, order int) []float64 {
	features := make([]float64, 0, 2*order)
	for k := 1; k <= order; k++ {
		angle := 2 * math.Pi * float64(k) * hours / period
		features = append(features, math.Sin(angle), math.Cos(angle))
	}
	return features
}

// seasonalModel is an additive Fourier series on top of the trend
type seasonalModel struct {
	period  float64
	order   int
	weights []float64
}

func (m *seasonalModel) at(hours float64) float64 {
	if m == nil {
		return 0
	}
	value := 0.0
	for i, f := range fourierFeatures(hours, m.period, m.order) {
		value += m.weights[i] * f
	}
	return value
}

// fitWithSeasonality solves the least squares normal equations for an intercept,
// a slope and the Fourier weights in one system
func fitWithSeasonality(x, y []float64, period float64, order int) (slope, intercept float64, seasonal *seasonalModel, err error) {
	size := 2 + 2*order
	ata := make([][]float64, size)
	for i := range ata {
		ata[i] = make([]float64, size)
	}
	atb := make([]float64, size)

	row := make([]float64, size)
	for i := range x {
		row[0], row[1] = 1, x[i]
		copy(row[2:], fourierFeatures(x[i], period, order))
		for r := 0; r < size; r++ {
			atb[r] += row[r] * y[i]
			for c := 0; c < size; c++ {
				ata[r][c] += row[r] * row[c]
			}
		}
	}

	weights, err := solve(ata, atb)
	if err != nil {
		return 0, 0, nil, err
	}
	return weights[1], weights[0], &seasonalModel{period: period, order: order, weights: weights[2:]}, nil
}

// solve runs Gaussian elimination with partial pivoting on a square system
func solve(a [][]float64, b []float64) ([]float64, error) {
	n := len(b)
	for col := 0; col < n; col++ {
		pivot := col
		for row := col + 1; row < n; row++ {
			if math.Abs(a[row][col]) > math.Abs(a[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(a[pivot][col]) < 1e-9 {
			return nil, errSingular
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		for row := col + 1; row < n; row++ {
			factor := a[row][col] / a[col][col]
			for c := col; c < n; c++ {
				a[row][c] -= factor * a[col][c]
			}
			b[row] -= factor * b[col]
		}
	}

	x := make([]float64, n)
	for row := n - 1; row >= 0; row-- {
		sum := b[row]
		for c := row + 1; c < n; c++ {
			sum -= a[row][c] * x[c]
		}
		x[row] = sum / a[row][row]
	}
	return x, nil
}
