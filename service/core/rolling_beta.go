package core

import (
	"github.com/guregu/null/v6"
)

// DefaultRollingWindows are the window widths, in rows, of the rolling beta chart
var DefaultRollingWindows = []int{60, 24, 12, 6}

// BetaSeries holds one slope per frame row for each window width. A row is invalid until the
// window is full, and stays invalid when the benchmark did not move inside its window.
type BetaSeries map[int][]null.Float

// Latest returns the most recent valid beta for width w
func (bs BetaSeries) Latest(w int) null.Float {
	s := bs[w]
	for i := len(s) - 1; i >= 0; i-- {
		if s[i].Valid {
			return s[i]
		}
	}
	return null.Float{}
}

// CalculateRollingBeta refits the regression over every full window ending at each row
func CalculateRollingBeta(frame *ReturnFrame, widths []int) BetaSeries {
	x := frame.BenchmarkExcess()
	y := frame.AssetExcess()
	n := len(x)

	res := make(BetaSeries, len(widths))
	for _, w := range widths {
		series := make([]null.Float, n)
		if w >= 2 {
			for end := w - 1; end < n; end++ {
				start := end - w + 1
				if fit, ok := fitLine(x[start:end+1], y[start:end+1]); ok {
					series[end] = null.FloatFrom(fit.Beta)
				}
			}
		}
		res[w] = series
	}

	return res
}
