package predictor

import (
	"math"
	"sort"

	"StockPred/internal/domain/models"
)

const decisionThreshold = 0.5

type classification struct {
	accuracy, precision, recall, f1 float64
}

// classify scores binary predictions; undefined ratios are reported as 0.
func classify(truth []float64, pred []bool) classification {
	var tp, fp, fn, hit int
	for i, y := range truth {
		pos := y == 1
		switch {
		case pred[i] && pos:
			tp++
		case pred[i] && !pos:
			fp++
		case !pred[i] && pos:
			fn++
		}
		if pred[i] == pos {
			hit++
		}
	}
	var c classification
	if len(truth) > 0 {
		c.accuracy = float64(hit) / float64(len(truth))
	}
	if tp+fp > 0 {
		c.precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		c.recall = float64(tp) / float64(tp+fn)
	}
	if c.precision+c.recall > 0 {
		c.f1 = 2 * c.precision * c.recall / (c.precision + c.recall)
	}
	return c
}

func regressionErrors(truth, pred []float64) (mae, rmse float64) {
	if len(truth) == 0 {
		return 0, 0
	}
	for i := range truth {
		d := pred[i] - truth[i]
		mae += math.Abs(d)
		rmse += d * d
	}
	n := float64(len(truth))
	return mae / n, math.Sqrt(rmse / n)
}

// topFeatures averages two normalised importance vectors and returns the k largest.
func topFeatures(names []string, a, b []float64, k int) []models.FeatureImportance {
	out := make([]models.FeatureImportance, len(names))
	for i, n := range names {
		out[i] = models.FeatureImportance{Name: n, Importance: (a[i] + b[i]) / 2}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Importance != out[j].Importance {
			return out[i].Importance > out[j].Importance
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}
