package repository

import (
	"context"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockPred/internal/domain/models"
	"StockPred/internal/services/features"
	"StockPred/internal/services/gbm"
	"StockPred/internal/services/predictor"
)

func testArtifact(id, scope string, at time.Time) *predictor.Artifact {
	m := func() *gbm.Model { return &gbm.Model{NumFeatures: 1, Trees: []gbm.Tree{}} }
	return &predictor.Artifact{
		ID:            id,
		Class:         models.ClassSwing,
		Scope:         scope,
		CreatedAt:     at,
		SchemaVersion: "2",
		FeatureNames:  []string{"rsi_14"},
		ColumnMeans:   map[string]float64{"rsi_14": 50},
		Scaler:        predictor.Scaler{Mean: []float64{50}, Scale: []float64{10}},
		ClassifierA:   m(),
		ClassifierB:   m(),
		Regressor:     m(),
	}
}

func TestArtifactStoreSaveWritesStampedAndLatest(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFSArtifactStore(dir, nil)
	require.NoError(t, err)
	ctx := context.Background()

	at := time.Date(2025, 6, 2, 15, 4, 5, 0, time.UTC)
	path, err := s.Save(ctx, testArtifact("a1", "AAPL", at))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "swing", "AAPL", "swing_model_20250602_150405.json"), path)
	assert.FileExists(t, filepath.Join(dir, "swing", "AAPL", "swing_model_latest.json"))

	got, err := s.Latest(ctx, models.ClassSwing, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "a1", got.ID)
	assert.Equal(t, []float64{50}, got.Scaler.Mean)
	assert.True(t, got.CreatedAt.Equal(at))

	// Same second: a suffix keeps both files, latest moves on.
	path2, err := s.Save(ctx, testArtifact("a2", "AAPL", at))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "swing", "AAPL", "swing_model_20250602_150405_1.json"), path2)
	got, err = s.Latest(ctx, models.ClassSwing, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "a2", got.ID)

	entries, err := os.ReadDir(filepath.Join(dir, "swing", "AAPL"))
	require.NoError(t, err)
	assert.Len(t, entries, 3, "no temp files left behind")
}

func TestArtifactStoreLatestMissing(t *testing.T) {
	s, err := NewFSArtifactStore(t.TempDir(), nil)
	require.NoError(t, err)
	_, err = s.Latest(context.Background(), models.ClassPosition, "")
	assert.ErrorIs(t, err, models.ErrModelNotTrained)
}

func TestArtifactStoreRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFSArtifactStore(dir, nil)
	require.NoError(t, err)
	a := testArtifact("bad", "", time.Now())
	a.Regressor = nil
	_, err = s.Save(context.Background(), a)
	require.Error(t, err)
	_, err = os.Stat(filepath.Join(dir, "swing"))
	assert.True(t, os.IsNotExist(err))
}

func TestArtifactStoreList(t *testing.T) {
	s, err := NewFSArtifactStore(t.TempDir(), nil)
	require.NoError(t, err)
	ctx := context.Background()
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err = s.Save(ctx, testArtifact("p1", "", t0))
	require.NoError(t, err)
	_, err = s.Save(ctx, testArtifact("p2", "", t0.Add(time.Hour)))
	require.NoError(t, err)
	_, err = s.Save(ctx, testArtifact("m1", "MSFT", t0.Add(30*time.Minute)))
	require.NoError(t, err)

	list, err := s.List(ctx, models.ClassSwing)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "p2", list[0].ID)
	assert.True(t, list[0].Latest)
	assert.Equal(t, "m1", list[1].ID)
	assert.True(t, list[1].Latest)
	assert.Equal(t, "p1", list[2].ID)
	assert.False(t, list[2].Latest)

	empty, err := s.List(ctx, models.ClassIntraday)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func randomWalk(symbol string, n int, seed int64) []models.Candle {
	r := rand.New(rand.NewSource(seed))
	out := make([]models.Candle, n)
	price := 40.0
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := range out {
		open := price
		price *= 1 + r.NormFloat64()*0.02
		out[i] = models.Candle{
			Date:   start.AddDate(0, 0, i),
			Symbol: symbol,
			Open:   open,
			High:   math.Max(open, price) * 1.004,
			Low:    math.Min(open, price) * 0.996,
			Close:  price,
			Volume: 1e6 + r.Float64()*5e5,
		}
	}
	return out
}

func TestArtifactStoreRoundTripPredictsIdentically(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	profiles, err := models.NewProfiles(models.DefaultProfiles())
	require.NoError(t, err)

	params := predictor.DefaultParams()
	params.ClassifierA.Rounds = 20
	params.ClassifierB.Rounds = 20
	params.Regressor.Rounds = 20

	newPredictor := func() *predictor.Predictor {
		store, err := NewFSArtifactStore(dir, nil)
		require.NoError(t, err)
		return predictor.New(profiles, features.New(), store, predictor.WithParams(params))
	}

	series := randomWalk("AAPL", 300, 7)
	trained := newPredictor()
	res, err := trained.Train(ctx, models.ClassSwing, series)
	require.NoError(t, err)
	want, err := trained.Predict(ctx, models.ClassSwing, series)
	require.NoError(t, err)

	reloaded := newPredictor()
	got, err := reloaded.Predict(ctx, models.ClassSwing, series)
	require.NoError(t, err)
	assert.Equal(t, res.Artifact.ID, got.ArtifactID)
	assert.Equal(t, want, got)

	window := series[len(series)-features.MinRows:]
	want, err = trained.Predict(ctx, models.ClassSwing, window)
	require.NoError(t, err)
	got, err = reloaded.Predict(ctx, models.ClassSwing, window)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
