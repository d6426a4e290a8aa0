package domain

import "math"

// Round2 rounds a monetary amount to 2 decimal places. Subtotals are rounded
// per line before summation, so cent drift cannot accumulate across a long
// order unseen.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
