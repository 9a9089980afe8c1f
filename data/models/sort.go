package models

import "slices"

// SortPoints orders points oldest first, market data apis hand them back as maps or newest first
func SortPoints(points []PricePoint) {
	slices.SortFunc(points, func(a, b PricePoint) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
}
