package core

import (
	"fmt"

	ex "github.com/graygillman/CapmAnalysis/data/extensions"
	m "github.com/graygillman/CapmAnalysis/data/models"
)

// HorizonBeta is the slope fitted over the trailing Years of the frame
type HorizonBeta struct {
	Years   int     `json:"years"`
	Periods int     `json:"periods"`
	Beta    float64 `json:"beta"`
}

// DefaultHorizons are the lookbacks, in years, reported for each frequency
func DefaultHorizons(freq m.Frequency) []int {
	if freq == m.Monthly {
		return []int{1, 5, 10, 20}
	}
	return []int{1, 2, 3, 4, 5}
}

// FindBeta fits a line over the trailing horizon*periodsPerYear rows for every horizon shorter than
// the frame's span. Horizons the data does not cover are skipped, so the result may be empty.
func FindBeta(frame *ReturnFrame, horizons []int, periodsPerYear int) ([]HorizonBeta, error) {
	if periodsPerYear <= 0 {
		return nil, fmt.Errorf("periods per year must be positive, got %d", periodsPerYear)
	}

	res := make([]HorizonBeta, 0, len(horizons))
	for _, years := range horizons {
		if years <= 0 || float64(years) >= frame.YearsDifference {
			continue
		}

		periods := ex.Min(years*periodsPerYear, frame.Len())
		if periods < 2 {
			return nil, fmt.Errorf("%w: %d year horizon covers %d rows", ErrInsufficientOverlap, years, periods)
		}

		x, y := frame.trailing(periods)
		fit, ok := fitLine(x, y)
		if !ok {
			return nil, fmt.Errorf("%w: %d year horizon", ErrDegenerateRegression, years)
		}

		res = append(res, HorizonBeta{
			Years:   years,
			Periods: periods,
			Beta:    fit.Beta,
		})
	}

	return res, nil
}
