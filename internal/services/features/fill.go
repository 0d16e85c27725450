package features

import "math"

// fillBackForward replaces NaN cells with the next defined value, then any
// trailing NaN with the previous defined value. It reports false when the
// column has no defined value at all; such a column is left untouched.
func fillBackForward(x []float64) bool {
	next := math.NaN()
	for i := len(x) - 1; i >= 0; i-- {
		if math.IsNaN(x[i]) {
			x[i] = next
		} else {
			next = x[i]
		}
	}
	if len(x) == 0 || math.IsNaN(next) {
		return false
	}
	prev := math.NaN()
	for i := range x {
		if math.IsNaN(x[i]) {
			x[i] = prev
		} else {
			prev = x[i]
		}
	}
	return true
}

// clearInf turns infinite cells into NaN so the fill treats them as missing.
func clearInf(x []float64) {
	for i, v := range x {
		if math.IsInf(v, 0) {
			x[i] = math.NaN()
		}
	}
}
