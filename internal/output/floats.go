package output

import (
	"math"
	"strconv"
)

// RoundFloat rounds a float to max 6 decimal places
func RoundFloat(f float64) float64 {
	const multiplier = 1e6
	return math.Round(f*multiplier) / multiplier
}

// FormatFloat formats a float with at most 6 decimals and no trailing zeros
func FormatFloat(f float64) string {
	return strconv.FormatFloat(RoundFloat(f), 'f', -1, 64)
}

// Percent returns part/total as a percentage rounded to one decimal.
// A zero total yields 0.
func Percent(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(part)*1000/float64(total)) / 10
}
