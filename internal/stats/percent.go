// Package stats holds the pure aggregation rules behind the stats pages.
// Nothing here performs I/O; the app layer feeds it rows from the store.
package stats

import "math"

// Percentage returns part/whole*100 rounded half away from zero to one
// decimal place, or 0 when whole is zero.
func Percentage(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return RoundTenth(float64(part) / float64(whole) * 100)
}

// RoundTenth rounds v to one decimal place.
func RoundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
