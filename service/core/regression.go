package core

import (
	"fmt"
	"math"

	"github.com/guregu/null/v6"
)

// Coefficient is one row of the regression table. The inference columns are null when the fit has
// no residual degrees of freedom.
type Coefficient struct {
	Value    float64    `json:"value"`
	StdError null.Float `json:"stdError"`
	TValue   null.Float `json:"tValue"`
	PValue   null.Float `json:"pValue"`
}

type RegressionResult struct {
	Alpha            Coefficient `json:"alpha"`
	Beta             Coefficient `json:"beta"`
	Observations     int         `json:"observations"`
	DegreesOfFreedom int         `json:"degreesOfFreedom"`
	RSquared         null.Float  `json:"rSquared"`
}

// PerformRegression fits asset excess return on benchmark excess return with an intercept
func PerformRegression(frame *ReturnFrame) (*RegressionResult, error) {
	if frame == nil || frame.Len() < 2 {
		n := 0
		if frame != nil {
			n = frame.Len()
		}
		return nil, fmt.Errorf("%w: regression needs at least 2 rows, got %d", ErrInsufficientOverlap, n)
	}

	fit, ok := fitLine(frame.BenchmarkExcess(), frame.AssetExcess())
	if !ok {
		return nil, fmt.Errorf("%w: %s over %d rows", ErrDegenerateRegression, frame.Benchmark, frame.Len())
	}

	df := fit.N - 2
	res := &RegressionResult{
		Alpha:            Coefficient{Value: fit.Alpha},
		Beta:             Coefficient{Value: fit.Beta},
		Observations:     fit.N,
		DegreesOfFreedom: df,
	}

	if fit.Sst > 0 {
		res.RSquared = null.FloatFrom(1 - fit.Sse/fit.Sst)
	}

	if df > 0 {
		s2 := fit.Sse / float64(df)
		n := float64(fit.N)
		seBeta := math.Sqrt(s2 / fit.Sxx)
		seAlpha := math.Sqrt(s2 * (1/n + fit.MeanX*fit.MeanX/fit.Sxx))

		res.Beta = inferCoefficient(fit.Beta, seBeta, df)
		res.Alpha = inferCoefficient(fit.Alpha, seAlpha, df)
	}

	return res, nil
}

func inferCoefficient(value, se float64, df int) Coefficient {
	c := Coefficient{
		Value:    value,
		StdError: null.FloatFrom(se),
	}

	// a perfect fit has no t statistic, the coefficient is certain
	if se == 0 {
		c.PValue = null.FloatFrom(0)
		return c
	}

	t := value / se
	c.TValue = null.FloatFrom(t)
	c.PValue = null.FloatFrom(twoSidedPValue(t, df))
	return c
}
