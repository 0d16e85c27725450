package gbm

import (
	"math"
	"sort"
)

// fitThresholds picks at most maxBins-1 split candidates per feature.
// A value x falls in bin i where i is the number of thresholds strictly below x,
// so bin <= b is equivalent to x <= thresholds[b].
func fitThresholds(x [][]float64, numFeatures, maxBins int) [][]float64 {
	out := make([][]float64, numFeatures)
	vals := make([]float64, 0, len(x))
	for f := 0; f < numFeatures; f++ {
		vals = vals[:0]
		for _, row := range x {
			if v := row[f]; !math.IsNaN(v) {
				vals = append(vals, v)
			}
		}
		sort.Float64s(vals)
		out[f] = thresholdsFor(vals, maxBins)
	}
	return out
}

func thresholdsFor(sorted []float64, maxBins int) []float64 {
	uniq := make([]float64, 0, len(sorted))
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			uniq = append(uniq, v)
		}
	}
	if len(uniq) <= 1 {
		return nil
	}
	if len(uniq) <= maxBins {
		th := make([]float64, len(uniq)-1)
		for i := range th {
			th[i] = uniq[i] + (uniq[i+1]-uniq[i])/2
		}
		return th
	}
	th := make([]float64, 0, maxBins-1)
	for k := 1; k < maxBins; k++ {
		pos := int(float64(k) * float64(len(sorted)) / float64(maxBins))
		if pos >= len(sorted) {
			pos = len(sorted) - 1
		}
		v := sorted[pos]
		if v == sorted[len(sorted)-1] {
			break
		}
		if len(th) == 0 || v > th[len(th)-1] {
			th = append(th, v)
		}
	}
	return th
}

func binOf(th []float64, v float64) uint8 {
	if math.IsNaN(v) {
		return 0
	}
	return uint8(sort.SearchFloat64s(th, v))
}

// binMatrix stores bins column-major: bins[f][row].
func binMatrix(x [][]float64, th [][]float64) [][]uint8 {
	bins := make([][]uint8, len(th))
	for f := range th {
		col := make([]uint8, len(x))
		for i, row := range x {
			col[i] = binOf(th[f], row[f])
		}
		bins[f] = col
	}
	return bins
}
