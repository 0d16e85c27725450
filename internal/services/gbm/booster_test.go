package gbm

import (
	"context"
	"encoding/json"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepData labels rows by x0 > 0.5; x1 and x2 are noise. flip is the label-noise rate.
func stepData(n int, seed int64, flip float64) Dataset {
	r := rand.New(rand.NewSource(seed))
	d := Dataset{X: make([][]float64, n), Y: make([]float64, n)}
	for i := range d.X {
		x := []float64{r.Float64(), r.Float64(), r.NormFloat64()}
		y := 0.0
		if x[0] > 0.5 {
			y = 1
		}
		if r.Float64() < flip {
			y = 1 - y
		}
		d.X[i], d.Y[i] = x, y
	}
	return d
}

func accuracy(m *Model, d Dataset) float64 {
	hit := 0
	for i, x := range d.X {
		if (m.Predict(x) > 0.5) == (d.Y[i] == 1) {
			hit++
		}
	}
	return float64(hit) / float64(len(d.X))
}

func TestTrainLearnsStep(t *testing.T) {
	for _, p := range []Params{DepthWiseClassifier(), LeafWiseClassifier()} {
		p := p
		t.Run(string(p.Growth), func(t *testing.T) {
			train, test := stepData(800, 1, 0), stepData(200, 2, 0)

			m, err := Train(context.Background(), train, &test, p)

			require.NoError(t, err)
			assert.Greater(t, accuracy(m, test), 0.95)
			imp := m.FeatureImportance()
			assert.InDelta(t, 1.0, imp[0]+imp[1]+imp[2], 1e-9)
			if p.Importance == ImportanceGain {
				assert.Greater(t, imp[0], imp[1])
				assert.Greater(t, imp[0], imp[2])
			}
		})
	}
}

func TestTrainRegression(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	d := Dataset{X: make([][]float64, 500), Y: make([]float64, 500)}
	for i := range d.X {
		x := r.Float64()
		d.X[i] = []float64{x, r.Float64()}
		d.Y[i] = 2*x + r.NormFloat64()*0.01
	}

	m, err := Train(context.Background(), d, nil, DepthWiseRegressor())

	require.NoError(t, err)
	assert.InDelta(t, 1.0, m.Predict([]float64{0.5, 0.3}), 0.1)
	assert.Len(t, m.Trees, 200)
	assert.Equal(t, 199, m.BestIteration)
}

func TestTrainDeterministic(t *testing.T) {
	train, test := stepData(400, 4, 0.1), stepData(100, 5, 0.1)

	a, err := Train(context.Background(), train, &test, DepthWiseClassifier())
	require.NoError(t, err)
	b, err := Train(context.Background(), train, &test, DepthWiseClassifier())
	require.NoError(t, err)

	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	assert.Equal(t, string(ja), string(jb))
}

func TestTrainEarlyStoppingTruncates(t *testing.T) {
	// pure noise labels: validation loss stops improving quickly
	train, test := stepData(300, 6, 0.5), stepData(100, 7, 0.5)
	p := DepthWiseClassifier()
	p.Rounds = 500
	p.EarlyStopping = 10

	m, err := Train(context.Background(), train, &test, p)

	require.NoError(t, err)
	assert.Less(t, m.BestIteration, 499)
	assert.Len(t, m.Trees, m.BestIteration+1)
}

func TestTrainHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Train(ctx, stepData(100, 8, 0), nil, DepthWiseClassifier())

	assert.ErrorIs(t, err, context.Canceled)
}

func TestLeafWiseRespectsLeafBudget(t *testing.T) {
	p := LeafWiseClassifier()
	p.MaxLeaves = 4
	p.Rounds = 5

	m, err := Train(context.Background(), stepData(500, 9, 0.2), nil, p)

	require.NoError(t, err)
	for _, tree := range m.Trees {
		leaves := 0
		for _, n := range tree.Nodes {
			if n.leaf() {
				leaves++
			}
		}
		assert.LessOrEqual(t, leaves, 4)
	}
}

func TestTrainRejectsBadInput(t *testing.T) {
	_, err := Train(context.Background(), Dataset{}, nil, DepthWiseClassifier())
	assert.Error(t, err)

	ragged := Dataset{X: [][]float64{{1, 2}, {1}}, Y: []float64{0, 1}}
	_, err = Train(context.Background(), ragged, nil, DepthWiseClassifier())
	assert.Error(t, err)

	p := DepthWiseClassifier()
	p.Subsample = 0
	_, err = Train(context.Background(), stepData(10, 1, 0), nil, p)
	assert.Error(t, err)
}

func TestConstantLabelsGiveBaseScore(t *testing.T) {
	d := stepData(100, 10, 0)
	for i := range d.Y {
		d.Y[i] = 0
	}

	m, err := Train(context.Background(), d, nil, DepthWiseClassifier())

	require.NoError(t, err)
	assert.Less(t, m.Predict(d.X[0]), 1e-3)
	assert.False(t, math.IsNaN(m.Predict(d.X[0])))
}

func TestThresholdsMatchBins(t *testing.T) {
	th := thresholdsFor([]float64{1, 1, 2, 3, 3, 4}, 64)
	require.Equal(t, []float64{1.5, 2.5, 3.5}, th)

	assert.Equal(t, uint8(0), binOf(th, 1))
	assert.Equal(t, uint8(1), binOf(th, 2))
	assert.Equal(t, uint8(3), binOf(th, 10))
	assert.Equal(t, uint8(0), binOf(th, math.NaN()))
}
