package report

import (
	"time"

	"github.com/guregu/null/v6"
	"gonum.org/v1/plot/plotter"
)

// splitSegments cuts a series at its invalid entries into runs of consecutive valid points
func splitSegments(dates []time.Time, values []null.Float, xAt func(int) float64) []plotter.XYs {
	var res []plotter.XYs
	var cur plotter.XYs
	for i := range dates {
		if i >= len(values) || !values[i].Valid {
			if len(cur) > 0 {
				res = append(res, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, plotter.XY{X: xAt(i), Y: values[i].Float64})
	}
	if len(cur) > 0 {
		res = append(res, cur)
	}
	return res
}
