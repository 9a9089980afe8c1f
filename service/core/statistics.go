package core

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// relative to the scale of x, below this the spread of x is float noise
const degenerateTolerance = 1e-12

// lineFit is a closed form least squares fit of y = Alpha + Beta*x
type lineFit struct {
	Alpha float64
	Beta  float64
	N     int
	MeanX float64
	Sxx   float64 // sum of squared deviations of x
	Sst   float64 // sum of squared deviations of y
	Sse   float64 // sum of squared residuals
}

// fitLine returns false when x has no usable variance or fewer than two points are given
func fitLine(x, y []float64) (lineFit, bool) {
	n := len(x)
	if n < 2 || len(y) != n {
		return lineFit{}, false
	}

	meanX := stat.Mean(x, nil)
	meanY := stat.Mean(y, nil)

	var sxx, sst float64
	for i := range n {
		dx := x[i] - meanX
		dy := y[i] - meanY
		sxx += dx * dx
		sst += dy * dy
	}

	if isDegenerate(sxx, n, meanX) {
		return lineFit{}, false
	}

	alpha, beta := stat.LinearRegression(x, y, nil, false)

	var sse float64
	for i := range n {
		r := y[i] - (alpha + beta*x[i])
		sse += r * r
	}

	return lineFit{
		Alpha: alpha,
		Beta:  beta,
		N:     n,
		MeanX: meanX,
		Sxx:   sxx,
		Sst:   sst,
		Sse:   sse,
	}, true
}

func isDegenerate(sxx float64, n int, meanX float64) bool {
	if math.IsNaN(sxx) || math.IsInf(sxx, 0) {
		return true
	}
	sd := math.Sqrt(sxx / float64(n))
	return sd <= degenerateTolerance*math.Max(1, math.Abs(meanX))
}

// twoSidedPValue is P(|T| > |t|) for a Student t with df degrees of freedom
func twoSidedPValue(t float64, df int) float64 {
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}
	return 2 * dist.Survival(math.Abs(t))
}
