package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	m "github.com/graygillman/CapmAnalysis/data/models"
)

func TestPerformRegression_TextbookExample(t *testing.T) {
	frame := frameFromExcess([]float64{1, 2, 3, 4, 5}, []float64{2, 4, 5, 4, 5})

	res, err := PerformRegression(frame)
	require.NoError(t, err)

	assert.Equal(t, 5, res.Observations)
	assert.Equal(t, 3, res.DegreesOfFreedom)
	assert.InDelta(t, 0.6, res.Beta.Value, 1e-12)
	assert.InDelta(t, 2.2, res.Alpha.Value, 1e-12)
	assert.InDelta(t, 0.6, res.RSquared.Float64, 1e-12)

	// s^2 = 2.4/3, Sxx = 10
	assert.InDelta(t, 0.282843, res.Beta.StdError.Float64, 1e-6)
	assert.InDelta(t, 2.121320, res.Beta.TValue.Float64, 1e-6)
	assert.InDelta(t, 0.12403, res.Beta.PValue.Float64, 1e-4)
	assert.InDelta(t, 0.938083, res.Alpha.StdError.Float64, 1e-6)
	assert.InDelta(t, 2.345208, res.Alpha.TValue.Float64, 1e-6)
}

func TestPerformRegression_BetaIsCovarianceOverVariance(t *testing.T) {
	asset, bench, rf := syntheticMarket(120, 0.002, 1.4, 3)
	frame, err := BuildReturnFrame(asset, bench, rf, m.Monthly)
	require.NoError(t, err)

	res, err := PerformRegression(frame)
	require.NoError(t, err)

	x, y := frame.BenchmarkExcess(), frame.AssetExcess()
	expected := stat.Covariance(x, y, nil) / stat.Variance(x, nil)
	assert.InDelta(t, expected, res.Beta.Value, 1e-9)
	assert.InDelta(t, stat.Mean(y, nil)-expected*stat.Mean(x, nil), res.Alpha.Value, 1e-9)

	// the generating beta should be recovered within noise
	assert.InDelta(t, 1.4, res.Beta.Value, 0.15)
	assert.True(t, res.Beta.PValue.Valid)
	assert.Less(t, res.Beta.PValue.Float64, 1e-6)
}

func TestPerformRegression_TwoRowsHaveNoInference(t *testing.T) {
	dates := monthlyDates(3)
	asset := seriesFrom("ASSET", dates, []float64{100, 110, 105.6})
	bench := seriesFrom("BENCH", dates, []float64{100, 105, 102.9})

	frame, err := BuildReturnFrame(asset, bench, constantSeries("RF", dates, 0), m.Monthly)
	require.NoError(t, err)

	res, err := PerformRegression(frame)
	require.NoError(t, err)

	assert.InDelta(t, 2.0, res.Beta.Value, 1e-9)
	assert.InDelta(t, 0.0, res.Alpha.Value, 1e-9)
	assert.Equal(t, 0, res.DegreesOfFreedom)
	assert.False(t, res.Beta.StdError.Valid)
	assert.False(t, res.Beta.TValue.Valid)
	assert.False(t, res.Beta.PValue.Valid)
	assert.False(t, res.Alpha.StdError.Valid)
}

func TestPerformRegression_Errors(t *testing.T) {
	_, err := PerformRegression(frameFromExcess([]float64{0.01}, []float64{0.02}))
	assert.ErrorIs(t, err, ErrInsufficientOverlap)

	_, err = PerformRegression(nil)
	assert.ErrorIs(t, err, ErrInsufficientOverlap)

	_, err = PerformRegression(frameFromExcess([]float64{0.03, 0.03, 0.03}, []float64{0.01, 0.02, 0.03}))
	assert.ErrorIs(t, err, ErrDegenerateRegression)
}

func TestPerformRegression_PerfectFitHasZeroPValue(t *testing.T) {
	x := []float64{0.01, -0.02, 0.03, 0.015}
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = 0.5 * v
	}

	res, err := PerformRegression(frameFromExcess(x, y))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, res.Beta.Value, 1e-12)
	require.True(t, res.Beta.PValue.Valid)
	assert.InDelta(t, 0, res.Beta.PValue.Float64, 1e-9)
}
