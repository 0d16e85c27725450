package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockPred/internal/domain/models"
	"StockPred/internal/services/calendar"
	"StockPred/internal/services/predictor"
	"StockPred/pkg/cache"
	"StockPred/pkg/queue"
)

func testProfiles(t *testing.T) *models.Profiles {
	t.Helper()
	p, err := models.NewProfiles(models.DefaultProfiles())
	require.NoError(t, err)
	return p
}

func series(symbol string, n int) []models.Candle {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Candle, n)
	for i := range out {
		px := 100 + float64(i)*0.1
		out[i] = models.Candle{Date: start.AddDate(0, 0, i), Symbol: symbol, Open: px, High: px + 1, Low: px - 1, Close: px, Volume: 1000}
	}
	return out
}

type fakeCandles struct {
	mu      sync.Mutex
	data    map[string][]models.Candle
	failFor string
	saved   []models.Candle
}

func (f *fakeCandles) LatestCandles(_ context.Context, symbol string, n int) ([]models.Candle, error) {
	if symbol == f.failFor {
		return nil, errors.New("connection refused")
	}
	cs, ok := f.data[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: no candles for %s", models.ErrInsufficientData, symbol)
	}
	if len(cs) > n {
		cs = cs[len(cs)-n:]
	}
	return cs, nil
}

func (f *fakeCandles) Candles(_ context.Context, symbol string, from, to time.Time, limit int) ([]models.Candle, error) {
	var out []models.Candle
	for _, c := range f.data[symbol] {
		if !c.Date.Before(from) && !c.Date.After(to) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCandles) SaveCandles(_ context.Context, cs []models.Candle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, cs...)
	return nil
}

func (f *fakeCandles) Symbols(context.Context) ([]string, error) {
	var out []string
	for s := range f.data {
		out = append(out, s)
	}
	return out, nil
}

type fakeTrainer struct {
	profiles *models.Profiles
	mu       sync.Mutex
	calls    []string
	failFor  string
}

func (f *fakeTrainer) result(class models.PredictionClass, scope string) *predictor.Result {
	return &predictor.Result{
		Artifact: &predictor.Artifact{ID: "a-" + scope, Class: class, Scope: scope, Metrics: models.TrainingMetrics{Accuracy: 0.6}},
		Path:     "mem://" + string(class) + "/" + scope,
	}
}

func (f *fakeTrainer) Train(_ context.Context, class models.PredictionClass, s []models.Candle) (*predictor.Result, error) {
	sym := s[0].Symbol
	f.mu.Lock()
	f.calls = append(f.calls, string(class)+"/"+sym)
	f.mu.Unlock()
	if sym == f.failFor {
		return nil, fmt.Errorf("%w: 10 labeled rows, need 100", models.ErrInsufficientData)
	}
	return f.result(class, sym), nil
}

func (f *fakeTrainer) TrainPooled(_ context.Context, class models.PredictionClass, s map[string][]models.Candle) (*predictor.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, string(class)+"/pooled")
	f.mu.Unlock()
	return f.result(class, ""), nil
}

func (f *fakeTrainer) Profiles() *models.Profiles { return f.profiles }

type fakeRuns struct {
	mu   sync.Mutex
	runs []models.TrainingRun
}

func (f *fakeRuns) RecordRun(_ context.Context, r models.TrainingRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, r)
	return nil
}

func (f *fakeRuns) Runs(_ context.Context, class models.PredictionClass, limit int) ([]models.TrainingRun, error) {
	var out []models.TrainingRun
	for _, r := range f.runs {
		if r.Class == class {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeMetrics struct {
	mu          sync.Mutex
	training    map[string]int
	predictions int
	errors      map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{training: map[string]int{}, errors: map[string]int{}}
}

func (m *fakeMetrics) RecordTraining(class, status string, _, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.training[status]++
}

func (m *fakeMetrics) RecordPrediction(string, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions++
}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *fakeMetrics) RecordLatency(string, float64) {}

func newTraining(t *testing.T, tr *fakeTrainer, candles *fakeCandles, c cache.Service) (*TrainingUseCase, *fakeRuns, *fakeMetrics) {
	runs := &fakeRuns{}
	m := newFakeMetrics()
	uc := NewTrainingUseCase(tr, nil, candles, runs, c, m, nil, TrainingConfig{Workers: 3, Lookback: 500})
	return uc, runs, m
}

func TestTrainBatchAllPairsPlusPooled(t *testing.T) {
	tr := &fakeTrainer{profiles: testProfiles(t), failFor: "MSFT"}
	candles := &fakeCandles{data: map[string][]models.Candle{
		"AAPL": series("AAPL", 300),
		"MSFT": series("MSFT", 300),
	}}
	uc, runs, m := newTraining(t, tr, candles, nil)

	report, err := uc.TrainBatch(context.Background(), TrainParams{
		Symbols: []string{"MSFT", "AAPL", "AAPL"},
		Classes: []models.PredictionClass{models.ClassSwing},
		Pooled:  true,
	})
	require.NoError(t, err)

	require.Len(t, report.Runs, 3)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, "", report.Runs[0].Scope)
	assert.Equal(t, "AAPL", report.Runs[1].Scope)
	assert.Equal(t, models.RunStatusFailed, report.Runs[2].Status)
	assert.Contains(t, report.Runs[2].Error, "insufficient data")
	assert.Equal(t, []string{"AAPL", "MSFT"}, report.Runs[0].Symbols)
	assert.Len(t, runs.runs, 3)
	assert.Equal(t, 2, m.training[models.RunStatusSucceeded])
	for _, r := range report.Runs {
		assert.NotEmpty(t, r.RunID)
		assert.False(t, r.FinishedAt.Before(r.StartedAt))
	}
}

func TestTrainBatchUnknownClass(t *testing.T) {
	tr := &fakeTrainer{profiles: testProfiles(t)}
	uc, _, _ := newTraining(t, tr, &fakeCandles{data: map[string][]models.Candle{"AAPL": series("AAPL", 300)}}, nil)

	_, err := uc.TrainBatch(context.Background(), TrainParams{Classes: []models.PredictionClass{"weekly"}})
	assert.ErrorIs(t, err, models.ErrUnknownClass)
}

func TestTrainBatchDefaultsToStoreSymbolsAndAllClasses(t *testing.T) {
	tr := &fakeTrainer{profiles: testProfiles(t)}
	uc, _, _ := newTraining(t, tr, &fakeCandles{data: map[string][]models.Candle{"AAPL": series("AAPL", 300)}}, nil)

	report, err := uc.TrainBatch(context.Background(), TrainParams{})
	require.NoError(t, err)
	assert.Len(t, report.Runs, 3)
	assert.Equal(t, 3, report.Succeeded)
}

func TestTrainBatchLoadFailureIsolated(t *testing.T) {
	tr := &fakeTrainer{profiles: testProfiles(t)}
	candles := &fakeCandles{
		data:    map[string][]models.Candle{"AAPL": series("AAPL", 300)},
		failFor: "TSLA",
	}
	uc, _, _ := newTraining(t, tr, candles, nil)

	report, err := uc.TrainBatch(context.Background(), TrainParams{
		Symbols: []string{"AAPL", "TSLA"},
		Classes: []models.PredictionClass{models.ClassIntraday},
		Pooled:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.NotContains(t, tr.calls, "intraday/TSLA")
}

func TestTrainBatchSkipsLockedScope(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	ok, err := mc.TryLock(context.Background(), "train_lock:swing:AAPL", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	tr := &fakeTrainer{profiles: testProfiles(t)}
	uc, _, m := newTraining(t, tr, &fakeCandles{data: map[string][]models.Candle{"AAPL": series("AAPL", 300)}}, mc)

	report, err := uc.TrainBatch(context.Background(), TrainParams{
		Symbols: []string{"AAPL"},
		Classes: []models.PredictionClass{models.ClassSwing},
	})
	require.NoError(t, err)
	require.Len(t, report.Runs, 1)
	assert.Equal(t, models.RunStatusSkipped, report.Runs[0].Status)
	assert.Empty(t, tr.calls)
	assert.Equal(t, 1, m.training[models.RunStatusSkipped])
}

func TestTrainBatchInvalidatesPredictionCache(t *testing.T) {
	ctx := context.Background()
	mc := cache.NewMemoryCache()
	defer mc.Close()
	require.NoError(t, mc.Set(ctx, "pred:AAPL:swing:300", "x", time.Hour))
	require.NoError(t, mc.Set(ctx, "pred:MSFT:swing:300", "y", time.Hour))

	tr := &fakeTrainer{profiles: testProfiles(t)}
	uc, _, _ := newTraining(t, tr, &fakeCandles{data: map[string][]models.Candle{"AAPL": series("AAPL", 300)}}, mc)
	_, err := uc.TrainBatch(ctx, TrainParams{Symbols: []string{"AAPL"}, Classes: []models.PredictionClass{models.ClassSwing}})
	require.NoError(t, err)

	var s string
	assert.ErrorIs(t, mc.Get(ctx, "pred:AAPL:swing:300", &s), cache.ErrCacheMiss)
	assert.NoError(t, mc.Get(ctx, "pred:MSFT:swing:300", &s))
	// lock released
	ok, err := mc.TryLock(ctx, "train_lock:swing:AAPL", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

type fakeForecaster struct {
	calls int
	err   map[models.PredictionClass]error
}

func (f *fakeForecaster) Predict(_ context.Context, class models.PredictionClass, s []models.Candle) (models.Forecast, error) {
	f.calls++
	if err := f.err[class]; err != nil {
		return models.Forecast{}, err
	}
	cur := s[len(s)-1].Close
	return models.Forecast{
		Class: class, Direction: models.DirectionUp, Confidence: 0.7,
		PredictedReturn: 0.03, CurrentPrice: cur, TargetPrice: cur * 1.03,
		StopLoss: cur * 0.97, HorizonDays: 5, ArtifactID: "art-1",
	}, nil
}

type fakePublisher struct {
	mu  sync.Mutex
	got []models.Prediction
}

func (p *fakePublisher) Publish(ctx context.Context, pr models.Prediction) error {
	return p.PublishBatch(ctx, []models.Prediction{pr})
}

func (p *fakePublisher) PublishBatch(_ context.Context, ps []models.Prediction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, ps...)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

type fakePredStore struct {
	saved  []models.Prediction
	filter models.PredictionFilter
	fail   bool
}

func (s *fakePredStore) SavePredictions(_ context.Context, ps []models.Prediction) error {
	if s.fail {
		return errors.New("clickhouse down")
	}
	s.saved = append(s.saved, ps...)
	return nil
}

func (s *fakePredStore) LatestPredictions(_ context.Context, symbol string) ([]models.Prediction, error) {
	return s.saved, nil
}

func (s *fakePredStore) ListPredictions(_ context.Context, f models.PredictionFilter) ([]models.Prediction, error) {
	if s.fail {
		return nil, errors.New("clickhouse down")
	}
	s.filter = f
	return s.saved, nil
}

type fakeNotifier struct{ n int }

func (f *fakeNotifier) Broadcast(models.Prediction) { f.n++ }

func TestPredictStampsAndFansOut(t *testing.T) {
	profiles := testProfiles(t)
	fc := &fakeForecaster{}
	pub := &fakePublisher{}
	store := &fakePredStore{}
	notif := &fakeNotifier{}
	m := newFakeMetrics()
	mc := cache.NewMemoryCache()
	defer mc.Close()

	s := series("AAPL", 60) // last date 2024-02-29, a Thursday
	uc := NewPredictionUseCase(fc, calendar.New(calendar.WithProfiles(profiles)), profiles,
		&fakeCandles{data: map[string][]models.Candle{"AAPL": s}},
		PredictionConfig{CacheTTL: time.Minute},
		WithPublisher(pub), WithPredictionStore(store), WithNotifier(notif), WithCache(mc), WithMetrics(m))

	p, err := uc.Predict(context.Background(), PredictParams{Symbol: "AAPL", Class: models.ClassSwing, N: 300})
	require.NoError(t, err)
	assert.Equal(t, "AAPL", p.Symbol)
	assert.Equal(t, s[59].Date, p.PredictionDate)
	assert.Equal(t, time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC), p.TargetDate)
	assert.Equal(t, "gbdt_ensemble", p.ModelName)
	assert.Equal(t, "art-1", p.ModelVersion)
	assert.Equal(t, models.PredictionStatusActive, p.Status)
	assert.InDelta(t, 3.0, p.PredictedGrowthPercent, 1e-9)

	again, err := uc.Predict(context.Background(), PredictParams{Symbol: "AAPL", Class: models.ClassSwing, N: 300})
	require.NoError(t, err)
	assert.Equal(t, p.TargetDate.Unix(), again.TargetDate.Unix())
	assert.Equal(t, 1, fc.calls, "second call served from cache")
	assert.Len(t, pub.got, 1)
	assert.Len(t, store.saved, 1)
	assert.Equal(t, 1, notif.n)
	assert.Equal(t, 1, m.predictions)
}

func TestPredictUnknownClass(t *testing.T) {
	profiles := testProfiles(t)
	uc := NewPredictionUseCase(&fakeForecaster{}, calendar.New(), profiles, &fakeCandles{}, PredictionConfig{})
	_, err := uc.Predict(context.Background(), PredictParams{Symbol: "AAPL", Class: "weekly"})
	assert.ErrorIs(t, err, models.ErrUnknownClass)
}

func TestPredictSideEffectFailureDoesNotFail(t *testing.T) {
	profiles := testProfiles(t)
	m := newFakeMetrics()
	uc := NewPredictionUseCase(&fakeForecaster{}, calendar.New(), profiles,
		&fakeCandles{data: map[string][]models.Candle{"AAPL": series("AAPL", 60)}},
		PredictionConfig{}, WithPredictionStore(&fakePredStore{fail: true}), WithMetrics(m))

	_, err := uc.Predict(context.Background(), PredictParams{Symbol: "AAPL", Class: models.ClassIntraday})
	require.NoError(t, err)
	assert.Equal(t, 1, m.errors["store_predictions"])
}

func TestPredictAllCollectsPerClassErrors(t *testing.T) {
	profiles := testProfiles(t)
	fc := &fakeForecaster{err: map[models.PredictionClass]error{
		models.ClassPosition: fmt.Errorf("%w: class position", models.ErrModelNotTrained),
	}}
	m := newFakeMetrics()
	uc := NewPredictionUseCase(fc, calendar.New(calendar.WithProfiles(profiles)), profiles,
		&fakeCandles{data: map[string][]models.Candle{"AAPL": series("AAPL", 60)}},
		PredictionConfig{ModelName: "m"}, WithMetrics(m))

	ps, errs, err := uc.PredictAll(context.Background(), "AAPL", 300)
	require.NoError(t, err)
	assert.Len(t, ps, 2)
	require.Contains(t, errs, "position")
	assert.Contains(t, errs["position"], "model not trained")
	assert.Equal(t, 1, m.errors["model_not_trained"])
}

func TestListPredictions(t *testing.T) {
	profiles := testProfiles(t)
	store := &fakePredStore{saved: []models.Prediction{{Symbol: "AAPL"}}}
	uc := NewPredictionUseCase(&fakeForecaster{}, calendar.New(calendar.WithProfiles(profiles)), profiles, &fakeCandles{},
		PredictionConfig{}, WithPredictionStore(store))
	ctx := context.Background()

	ps, err := uc.List(ctx, models.PredictionFilter{Symbol: "aapl", Class: "swing", Status: "active", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, ps, 1)
	assert.Equal(t, "AAPL", store.filter.Symbol)
	assert.Equal(t, 10, store.filter.Limit)

	_, err = uc.List(ctx, models.PredictionFilter{Class: "weekly"})
	assert.ErrorIs(t, err, models.ErrUnknownClass)

	store.fail = true
	_, err = uc.List(ctx, models.PredictionFilter{})
	assert.Error(t, err)

	bare := NewPredictionUseCase(&fakeForecaster{}, calendar.New(calendar.WithProfiles(profiles)), profiles, &fakeCandles{}, PredictionConfig{})
	ps, err = bare.List(ctx, models.PredictionFilter{})
	require.NoError(t, err)
	assert.Empty(t, ps)
}

func TestStampKeepsFullPrecision(t *testing.T) {
	fc := models.Forecast{CurrentPrice: 123.456, TargetPrice: 127.1597, StopLoss: 119.7523, ArtifactID: "v1"}
	asOf := time.Date(2024, 7, 3, 0, 0, 0, 0, time.UTC)
	p := Stamp(fc, "AAPL", asOf, asOf.AddDate(0, 0, 2), "gbdt")
	assert.Equal(t, 123.456, p.CurrentPrice)
	assert.Equal(t, 127.1597, p.TargetPrice)
	assert.Equal(t, 119.7523, p.StopLoss)
	assert.InDelta(t, 122.22144, p.EntryPriceLow, 1e-9)
	assert.InDelta(t, 124.69056, p.EntryPriceHigh, 1e-9)
	assert.InDelta(t, 3.0, p.PredictedGrowthPercent, 1e-9)

	shown := Present(p)
	assert.Equal(t, 123.46, shown.CurrentPrice)
	assert.Equal(t, 127.16, shown.TargetPrice)
	assert.Equal(t, 119.75, shown.StopLoss)
	assert.Equal(t, 122.22, shown.EntryPriceLow)
	assert.Equal(t, 124.69, shown.EntryPriceHigh)
	assert.Equal(t, 3.0, shown.PredictedGrowthPercent)
	assert.Equal(t, 123.456, p.CurrentPrice, "Present does not mutate its input")
}

func TestStampSubDollarLevels(t *testing.T) {
	fc := models.Forecast{CurrentPrice: 0.0045, TargetPrice: 0.0047, StopLoss: 0.0042}
	p := Stamp(fc, "PENNY", time.Time{}, time.Time{}, "m")
	assert.Equal(t, 0.0042, p.StopLoss)
	assert.Equal(t, 0.0047, p.TargetPrice)

	shown := Present(p)
	assert.Equal(t, 0.0042, shown.StopLoss)
	assert.Equal(t, 0.0047, shown.TargetPrice)
	assert.Equal(t, 0.004455, shown.EntryPriceLow)
	assert.Equal(t, 0.004545, shown.EntryPriceHigh)
	assert.Greater(t, shown.PredictedGrowthPercent, 4.0)
}

func TestStampZeroPrice(t *testing.T) {
	p := Stamp(models.Forecast{}, "X", time.Time{}, time.Time{}, "m")
	assert.Zero(t, p.PredictedGrowthPercent)
}

func TestCandlesImportFiltersInvalid(t *testing.T) {
	store := &fakeCandles{}
	uc := NewCandlesUseCase(store)
	cs := series("AAPL", 3)
	cs[1].Low = cs[1].High + 1
	n, err := uc.Import(context.Background(), cs)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, store.saved, 2)
}

func TestGetCandlesValidation(t *testing.T) {
	uc := NewCandlesUseCase(&fakeCandles{data: map[string][]models.Candle{"AAPL": series("AAPL", 10)}})
	_, err := uc.GetCandles(context.Background(), GetCandlesParams{})
	assert.Error(t, err)

	res, err := uc.GetCandles(context.Background(), GetCandlesParams{
		Symbol: "AAPL",
		From:   time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		To:     time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Count)
}

type fakeQueue struct {
	msgs []interface{}
}

func (q *fakeQueue) Enqueue(_ context.Context, msgType string, payload interface{}) (string, error) {
	q.msgs = append(q.msgs, payload)
	return fmt.Sprintf("job-%d", len(q.msgs)), nil
}

func TestTrainRequestHandlerAppliesDefaults(t *testing.T) {
	q := &fakeQueue{}
	h := NewTrainRequestHandler("train_requests", q, nil)
	require.NoError(t, h.Handle(context.Background(), []byte(`{"symbols":["AAPL"]}`)))
	require.NoError(t, h.Handle(context.Background(), []byte(`not json`)))

	require.Len(t, q.msgs, 1)
	req := q.msgs[0].(models.TrainRequest)
	assert.True(t, req.Pooled)
	assert.Equal(t, 1000, req.N)
	assert.Equal(t, []string{"AAPL"}, req.Symbols)
}

func TestTrainJobPermanentOnUnknownClass(t *testing.T) {
	tr := &fakeTrainer{profiles: testProfiles(t)}
	uc, _, _ := newTraining(t, tr, &fakeCandles{data: map[string][]models.Candle{"AAPL": series("AAPL", 300)}}, nil)
	job := NewTrainJob(uc)

	err := job.Handle(context.Background(), []byte(`{"classes":["weekly"]}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, queue.ErrPermanent)

	require.NoError(t, job.Handle(context.Background(), []byte(`{"symbols":["AAPL"],"classes":["swing"]}`)))
}
