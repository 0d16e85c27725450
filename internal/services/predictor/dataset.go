package predictor

import (
	"fmt"
	"math"

	"StockPred/internal/domain/models"
	"StockPred/internal/services/features"
)

// labeled holds raw (unscaled, possibly undefined) feature rows with both targets.
type labeled struct {
	x       [][]float64
	target  []float64 // 1 when the forward return clears the threshold
	returns []float64 // forward return over the horizon
}

func (l *labeled) len() int { return len(l.x) }

func (l *labeled) append(o labeled) {
	l.x = append(l.x, o.x...)
	l.target = append(l.target, o.target...)
	l.returns = append(l.returns, o.returns...)
}

func (l labeled) slice(from, to int) labeled {
	return labeled{x: l.x[from:to], target: l.target[from:to], returns: l.returns[from:to]}
}

// candidateFeatures is every engineered column; OHLCV and label columns never enter the model.
func candidateFeatures() []string {
	s := features.Schema()
	out := make([]string, len(s))
	for i, d := range s {
		out[i] = d.Name
	}
	return out
}

// label builds rows t whose close at t+horizon exists. Unavailable and
// non-finite cells come back as NaN.
func label(f *features.Frame, names []string, hp models.HorizonProfile) labeled {
	closes, _ := f.Column("close")
	var out labeled
	for t := 0; t+hp.HorizonDays < f.Len(); t++ {
		fr := closes[t+hp.HorizonDays]/closes[t] - 1
		if math.IsNaN(fr) || math.IsInf(fr, 0) {
			continue
		}
		out.x = append(out.x, finiteRow(f.Row(t, names)))
		out.returns = append(out.returns, fr)
		if fr > hp.ReturnThreshold {
			out.target = append(out.target, 1)
		} else {
			out.target = append(out.target, 0)
		}
	}
	return out
}

func finiteRow(row []float64) []float64 {
	for j, v := range row {
		if math.IsInf(v, 0) {
			row[j] = math.NaN()
		}
	}
	return row
}

// splitIndex is the first row of the trailing evaluation partition.
func splitIndex(n int, trainFraction float64) int {
	return int(float64(n) * trainFraction)
}

// columnMeans averages the defined cells of each column.
func columnMeans(x [][]float64, d int) []float64 {
	sum := make([]float64, d)
	cnt := make([]int, d)
	for _, row := range x {
		for j, v := range row {
			if !math.IsNaN(v) {
				sum[j] += v
				cnt[j]++
			}
		}
	}
	out := make([]float64, d)
	for j := range out {
		if cnt[j] == 0 {
			out[j] = math.NaN()
		} else {
			out[j] = sum[j] / float64(cnt[j])
		}
	}
	return out
}

// project keeps columns keep (indexes into row) and replaces NaN by means.
func project(x [][]float64, keep []int, means []float64) [][]float64 {
	out := make([][]float64, len(x))
	for i, row := range x {
		r := make([]float64, len(keep))
		for k, j := range keep {
			v := row[j]
			if math.IsNaN(v) {
				v = means[j]
			}
			r[k] = v
		}
		out[i] = r
	}
	return out
}

// validateSeries checks ordering and the latest close.
func validateSeries(series []models.Candle, minRows int) error {
	if len(series) < minRows {
		return fmt.Errorf("%w: %d rows, need %d", models.ErrInsufficientData, len(series), minRows)
	}
	for i := 1; i < len(series); i++ {
		if !series[i].Date.After(series[i-1].Date) {
			return fmt.Errorf("%w: dates not strictly increasing at row %d (%s)",
				models.ErrUpstreamData, i, series[i].Date.Format("2006-01-02"))
		}
	}
	last := series[len(series)-1].Close
	if math.IsNaN(last) || math.IsInf(last, 0) {
		return fmt.Errorf("%w: latest close is undefined", models.ErrUpstreamData)
	}
	return nil
}
