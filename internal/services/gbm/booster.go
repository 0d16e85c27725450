package gbm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Dataset is a dense row-major design matrix with labels.
type Dataset struct {
	X [][]float64
	Y []float64
}

func (d Dataset) validate(numFeatures int) error {
	if len(d.X) == 0 {
		return errors.New("empty dataset")
	}
	if len(d.X) != len(d.Y) {
		return fmt.Errorf("rows %d != labels %d", len(d.X), len(d.Y))
	}
	for i, row := range d.X {
		if len(row) != numFeatures {
			return fmt.Errorf("row %d has %d features, want %d", i, len(row), numFeatures)
		}
	}
	return nil
}

// Model is a trained ensemble. It is immutable and safe for concurrent prediction.
type Model struct {
	Params        Params  `json:"params"`
	NumFeatures   int     `json:"num_features"`
	BaseScore     float64 `json:"base_score"`
	BestIteration int     `json:"best_iteration"`
	BestScore     float64 `json:"best_score"`
	Trees         []Tree  `json:"trees"`
}

// Train fits a boosted ensemble on train. When valid is non-nil and
// EarlyStopping > 0, training stops after EarlyStopping rounds without
// improvement of the validation loss and the ensemble is cut back to the best round.
func Train(ctx context.Context, train Dataset, valid *Dataset, p Params) (*Model, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if len(train.X) == 0 {
		return nil, errors.New("empty dataset")
	}
	numFeatures := len(train.X[0])
	if err := train.validate(numFeatures); err != nil {
		return nil, fmt.Errorf("train set: %w", err)
	}
	if valid != nil {
		if err := valid.validate(numFeatures); err != nil {
			return nil, fmt.Errorf("validation set: %w", err)
		}
	}

	thresholds := fitThresholds(train.X, numFeatures, p.MaxBins)
	bins := binMatrix(train.X, thresholds)
	b := newBuilder(p, bins, thresholds)

	m := &Model{Params: p, NumFeatures: numFeatures, BaseScore: baseScore(p.Objective, train.Y)}

	n := len(train.X)
	margin := filled(n, m.BaseScore)
	grad := make([]float64, n)
	hess := make([]float64, n)

	var vMargin []float64
	if valid != nil {
		vMargin = filled(len(valid.X), m.BaseScore)
	}
	m.BestScore = math.Inf(1)
	rng := rand.New(rand.NewSource(p.Seed))

	for round := 0; round < p.Rounds; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		gradients(p.Objective, train.Y, margin, grad, hess)
		rows := sampleRows(rng, n, p.Subsample)
		features := sampleFeatures(rng, numFeatures, p.ColSample)

		tree := b.grow(rows, features, grad, hess)
		m.Trees = append(m.Trees, tree)
		for i, x := range train.X {
			margin[i] += tree.predict(x)
		}

		if valid == nil {
			continue
		}
		for i, x := range valid.X {
			vMargin[i] += tree.predict(x)
		}
		loss := evalLoss(p.Objective, valid.Y, vMargin)
		if loss < m.BestScore {
			m.BestScore, m.BestIteration = loss, round
		} else if p.EarlyStopping > 0 && round-m.BestIteration >= p.EarlyStopping {
			break
		}
	}

	if valid != nil && p.EarlyStopping > 0 {
		m.Trees = m.Trees[:m.BestIteration+1]
	} else {
		m.BestIteration = len(m.Trees) - 1
		if valid != nil {
			m.BestScore = evalLoss(p.Objective, valid.Y, vMargin)
		} else {
			m.BestScore = evalLoss(p.Objective, train.Y, margin)
		}
	}
	return m, nil
}

// Margin is the raw additive score for x.
func (m *Model) Margin(x []float64) float64 {
	out := m.BaseScore
	for i := range m.Trees {
		out += m.Trees[i].predict(x)
	}
	return out
}

// Predict returns the positive-class probability for a logistic model,
// or the regression estimate otherwise.
func (m *Model) Predict(x []float64) float64 {
	if m.Params.Objective == BinaryLogistic {
		return sigmoid(m.Margin(x))
	}
	return m.Margin(x)
}

// FeatureImportance returns per-feature importance of the configured type,
// normalised to sum to 1. All zeros when the ensemble never split.
func (m *Model) FeatureImportance() []float64 {
	out := make([]float64, m.NumFeatures)
	for _, t := range m.Trees {
		for _, n := range t.Nodes {
			if n.leaf() {
				continue
			}
			if m.Params.Importance == ImportanceSplit {
				out[n.Feature]++
			} else {
				out[n.Feature] += n.Gain
			}
		}
	}
	total := 0.0
	for _, v := range out {
		total += v
	}
	if total > 0 {
		for i := range out {
			out[i] /= total
		}
	}
	return out
}

func baseScore(obj Objective, y []float64) float64 {
	mean := 0.0
	for _, v := range y {
		mean += v
	}
	mean /= float64(len(y))
	if obj == BinaryLogistic {
		p := math.Min(math.Max(mean, 1e-6), 1-1e-6)
		return math.Log(p / (1 - p))
	}
	return mean
}

func gradients(obj Objective, y, margin, grad, hess []float64) {
	for i := range y {
		if obj == BinaryLogistic {
			p := sigmoid(margin[i])
			grad[i] = p - y[i]
			hess[i] = math.Max(p*(1-p), 1e-16)
		} else {
			grad[i] = margin[i] - y[i]
			hess[i] = 1
		}
	}
}

func evalLoss(obj Objective, y, margin []float64) float64 {
	if len(y) == 0 {
		return 0
	}
	loss := 0.0
	for i := range y {
		if obj == BinaryLogistic {
			p := math.Min(math.Max(sigmoid(margin[i]), 1e-15), 1-1e-15)
			loss -= y[i]*math.Log(p) + (1-y[i])*math.Log(1-p)
		} else {
			d := margin[i] - y[i]
			loss += d * d
		}
	}
	return loss / float64(len(y))
}

func sampleRows(rng *rand.Rand, n int, rate float64) []int {
	rows := make([]int, 0, n)
	if rate >= 1 {
		for i := 0; i < n; i++ {
			rows = append(rows, i)
		}
		return rows
	}
	for i := 0; i < n; i++ {
		if rng.Float64() < rate {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 {
		rows = append(rows, rng.Intn(n))
	}
	return rows
}

func sampleFeatures(rng *rand.Rand, n int, rate float64) []int {
	k := int(math.Round(rate * float64(n)))
	if k < 1 {
		k = 1
	}
	if k >= n {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	out := rng.Perm(n)[:k]
	sort.Ints(out)
	return out
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func filled(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
