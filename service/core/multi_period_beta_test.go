package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	m "github.com/graygillman/CapmAnalysis/data/models"
)

func TestFindBeta_SkipsHorizonsBeyondTheSpan(t *testing.T) {
	asset, bench, rf := syntheticMarket(121, 0.001, 0.9, 4)
	frame, err := BuildReturnFrame(asset, bench, rf, m.Monthly)
	require.NoError(t, err)
	require.Greater(t, frame.YearsDifference, 10.0)
	require.Less(t, frame.YearsDifference, 11.0)

	betas, err := FindBeta(frame, DefaultHorizons(m.Monthly), 12)
	require.NoError(t, err)

	require.Len(t, betas, 3)
	assert.Equal(t, []int{1, 5, 10}, []int{betas[0].Years, betas[1].Years, betas[2].Years})
	assert.Equal(t, []int{12, 60, 120}, []int{betas[0].Periods, betas[1].Periods, betas[2].Periods})

	for _, b := range betas {
		x, y := frame.BenchmarkExcess(), frame.AssetExcess()
		x, y = x[len(x)-b.Periods:], y[len(y)-b.Periods:]
		_, expected := stat.LinearRegression(x, y, nil, false)
		assert.InDelta(t, expected, b.Beta, 1e-9, "horizon %d", b.Years)
	}
}

func TestFindBeta_HorizonEqualToSpanIsSkipped(t *testing.T) {
	x := make([]float64, 25)
	y := make([]float64, 25)
	for i := range x {
		x[i] = float64(i%5) / 100
		y[i] = 1.5 * x[i]
	}
	frame := frameFromExcess(x, y)
	frame.YearsDifference = 2

	betas, err := FindBeta(frame, []int{1, 2, 3}, 12)
	require.NoError(t, err)
	require.Len(t, betas, 1)
	assert.Equal(t, 1, betas[0].Years)
	assert.InDelta(t, 1.5, betas[0].Beta, 1e-12)
}

func TestFindBeta_ShortFrameIsEmptyNotError(t *testing.T) {
	asset, bench, rf := syntheticMarket(8, 0, 1, 5)
	frame, err := BuildReturnFrame(asset, bench, rf, m.Monthly)
	require.NoError(t, err)

	betas, err := FindBeta(frame, DefaultHorizons(m.Monthly), 12)
	require.NoError(t, err)
	assert.NotNil(t, betas)
	assert.Empty(t, betas)
}

func TestFindBeta_WindowLongerThanFrameUsesAllRows(t *testing.T) {
	asset, bench, rf := syntheticMarket(30, 0, 1.1, 6)
	frame, err := BuildReturnFrame(asset, bench, rf, m.Monthly)
	require.NoError(t, err)

	// a daily style conversion asks for 365 rows out of 30
	betas, err := FindBeta(frame, []int{1}, 365)
	require.NoError(t, err)
	require.Len(t, betas, 1)
	assert.Equal(t, frame.Len(), betas[0].Periods)

	reg, err := PerformRegression(frame)
	require.NoError(t, err)
	assert.InDelta(t, reg.Beta.Value, betas[0].Beta, 1e-9)
}

func TestFindBeta_DegenerateWindow(t *testing.T) {
	x := make([]float64, 30)
	y := make([]float64, 30)
	for i := range x {
		if i < 18 {
			x[i] = float64(i) / 100
		} else {
			x[i] = 0.02
		}
		y[i] = float64(i) / 50
	}

	_, err := FindBeta(frameFromExcess(x, y), []int{1}, 12)
	assert.ErrorIs(t, err, ErrDegenerateRegression)
}

func TestFindBeta_RejectsBadPeriodsPerYear(t *testing.T) {
	_, err := FindBeta(frameFromExcess([]float64{1, 2}, []float64{1, 2}), []int{1}, 0)
	assert.Error(t, err)
}

func TestDefaultHorizons(t *testing.T) {
	assert.Equal(t, []int{1, 2, 3, 4, 5}, DefaultHorizons(m.Daily))
	assert.Equal(t, []int{1, 5, 10, 20}, DefaultHorizons(m.Monthly))
}
