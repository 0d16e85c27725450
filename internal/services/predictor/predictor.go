package predictor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"StockPred/internal/domain/models"
	"StockPred/internal/services/features"
	"StockPred/internal/services/gbm"
	"StockPred/pkg/logger"
)

const (
	// MinLabeledRows is the fewest labeled rows a training call accepts.
	MinLabeledRows = 100
	trainFraction  = 0.8
	topK           = 10
)

// Params holds the three boosting configurations of an ensemble.
type Params struct {
	ClassifierA gbm.Params `json:"classifier_a" yaml:"classifier_a"`
	ClassifierB gbm.Params `json:"classifier_b" yaml:"classifier_b"`
	Regressor   gbm.Params `json:"regressor" yaml:"regressor"`
}

func DefaultParams() Params {
	return Params{
		ClassifierA: gbm.DepthWiseClassifier(),
		ClassifierB: gbm.LeafWiseClassifier(),
		Regressor:   gbm.DepthWiseRegressor(),
	}
}

type Option func(*Predictor)

func WithLogger(l *logger.Logger) Option {
	return func(p *Predictor) { p.log = l }
}

func WithParams(params Params) Option {
	return func(p *Predictor) { p.params = params }
}

func WithClock(now func() time.Time) Option {
	return func(p *Predictor) { p.now = now }
}

type key struct {
	class models.PredictionClass
	scope string
}

// Predictor trains and serves one ensemble per (class, scope). Scope is the
// instrument symbol, or empty for the pooled model of a class.
type Predictor struct {
	profiles *models.Profiles
	engine   *features.Engine
	store    Store
	params   Params
	log      *logger.Logger
	now      func() time.Time

	mu        sync.RWMutex
	artifacts map[key]*Artifact
}

func New(profiles *models.Profiles, engine *features.Engine, store Store, opts ...Option) *Predictor {
	p := &Predictor{
		profiles:  profiles,
		engine:    engine,
		store:     store,
		params:    DefaultParams(),
		log:       logger.Nop(),
		now:       time.Now,
		artifacts: make(map[key]*Artifact),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Result is the outcome of a successful training call.
type Result struct {
	Artifact *Artifact
	Path     string
}

// Train fits the ensemble for class on one instrument. The scope is the
// series' symbol. On any error the previously effective artifact stays in place.
func (p *Predictor) Train(ctx context.Context, class models.PredictionClass, series []models.Candle) (*Result, error) {
	hp, err := p.profiles.Get(class)
	if err != nil {
		return nil, err
	}
	if err := validateSeries(series, features.MinRows); err != nil {
		return nil, err
	}
	scope := series[0].Symbol

	names := candidateFeatures()
	rows := label(p.engine.Transform(series), names, hp)
	if rows.len() < MinLabeledRows {
		return nil, fmt.Errorf("%w: %d labeled rows, need %d", models.ErrInsufficientData, rows.len(), MinLabeledRows)
	}
	cut := splitIndex(rows.len(), trainFraction)
	return p.fit(ctx, hp, scope, names, rows.slice(0, cut), rows.slice(cut, rows.len()))
}

// TrainPooled fits one ensemble for class across instruments. Each series is
// split chronologically on its own and the partitions are concatenated.
// Series that are too short or malformed are skipped.
func (p *Predictor) TrainPooled(ctx context.Context, class models.PredictionClass, series map[string][]models.Candle) (*Result, error) {
	hp, err := p.profiles.Get(class)
	if err != nil {
		return nil, err
	}
	symbols := make([]string, 0, len(series))
	for s := range series {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	names := candidateFeatures()
	var train, test labeled
	for _, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s := series[sym]
		if err := validateSeries(s, features.MinRows); err != nil {
			p.log.Warn("skipping instrument", logger.String("symbol", sym), logger.Error(err))
			continue
		}
		rows := label(p.engine.Transform(s), names, hp)
		cut := splitIndex(rows.len(), trainFraction)
		train.append(rows.slice(0, cut))
		test.append(rows.slice(cut, rows.len()))
	}
	if total := train.len() + test.len(); total < MinLabeledRows || test.len() == 0 {
		return nil, fmt.Errorf("%w: %d pooled labeled rows, need %d", models.ErrInsufficientData, total, MinLabeledRows)
	}
	return p.fit(ctx, hp, "", names, train, test)
}

func (p *Predictor) fit(ctx context.Context, hp models.HorizonProfile, scope string, names []string, train, test labeled) (*Result, error) {
	start := p.now()

	// Means come from the leading partition only; columns with no defined
	// training value are dropped.
	means := columnMeans(train.x, len(names))
	var keep []int
	var kept []string
	colMeans := make(map[string]float64)
	for j, m := range means {
		if math.IsNaN(m) {
			continue
		}
		keep = append(keep, j)
		kept = append(kept, names[j])
		colMeans[names[j]] = m
	}
	if len(keep) == 0 {
		return nil, fmt.Errorf("%w: no feature has a defined value", models.ErrInsufficientData)
	}

	xTrain := project(train.x, keep, means)
	xTest := project(test.x, keep, means)
	scaler := FitScaler(xTrain)
	xTrain, xTest = scaler.transformAll(xTrain), scaler.transformAll(xTest)

	trainCls := gbm.Dataset{X: xTrain, Y: train.target}
	testCls := gbm.Dataset{X: xTest, Y: test.target}
	a, err := gbm.Train(ctx, trainCls, &testCls, p.params.ClassifierA)
	if err != nil {
		return nil, fmt.Errorf("train classifier a: %w", err)
	}
	b, err := gbm.Train(ctx, trainCls, &testCls, p.params.ClassifierB)
	if err != nil {
		return nil, fmt.Errorf("train classifier b: %w", err)
	}
	testReg := gbm.Dataset{X: xTest, Y: test.returns}
	reg, err := gbm.Train(ctx, gbm.Dataset{X: xTrain, Y: train.returns}, &testReg, p.params.Regressor)
	if err != nil {
		return nil, fmt.Errorf("train regressor: %w", err)
	}

	art := &Artifact{
		ID:            uuid.NewString(),
		Class:         hp.Name,
		Scope:         scope,
		Profile:       hp,
		CreatedAt:     p.now().UTC(),
		SchemaVersion: features.SchemaVersion,
		EngineColumns: features.Columns(),
		FeatureNames:  kept,
		ColumnMeans:   colMeans,
		Scaler:        scaler,
		ClassifierA:   a,
		ClassifierB:   b,
		Regressor:     reg,
	}
	art.Metrics = evaluate(art, xTest, test, train.len())

	path, err := p.store.Save(ctx, art)
	if err != nil {
		return nil, fmt.Errorf("save artifact: %w", err)
	}
	p.mu.Lock()
	p.artifacts[key{hp.Name, scope}] = art
	p.mu.Unlock()

	p.log.Info("ensemble trained",
		logger.String("class", string(hp.Name)),
		logger.String("scope", scope),
		logger.Int("train_rows", train.len()),
		logger.Int("test_rows", test.len()),
		logger.Int("features", len(kept)),
		logger.Float64("accuracy", art.Metrics.Accuracy),
		logger.Duration("duration", p.now().Sub(start)),
		logger.String("path", path),
	)
	return &Result{Artifact: art, Path: path}, nil
}

func evaluate(a *Artifact, xTest [][]float64, test labeled, trainRows int) models.TrainingMetrics {
	n := len(xTest)
	ens := make([]bool, n)
	predA := make([]bool, n)
	predB := make([]bool, n)
	ret := make([]float64, n)
	for i, x := range xTest {
		pa, pb := a.ClassifierA.Predict(x), a.ClassifierB.Predict(x)
		ens[i] = (pa+pb)/2 > decisionThreshold
		predA[i] = pa > decisionThreshold
		predB[i] = pb > decisionThreshold
		ret[i] = a.Regressor.Predict(x)
	}
	c := classify(test.target, ens)
	mae, rmse := regressionErrors(test.returns, ret)
	return models.TrainingMetrics{
		Accuracy:    c.accuracy,
		Precision:   c.precision,
		Recall:      c.recall,
		F1:          c.f1,
		AccuracyA:   classify(test.target, predA).accuracy,
		AccuracyB:   classify(test.target, predB).accuracy,
		ReturnMAE:   mae,
		ReturnRMSE:  rmse,
		TrainRows:   trainRows,
		TestRows:    n,
		Features:    len(a.FeatureNames),
		BestIterA:   a.ClassifierA.BestIteration,
		BestIterB:   a.ClassifierB.BestIteration,
		BestIterReg: a.Regressor.BestIteration,
		TopFeatures: topFeatures(a.FeatureNames, a.ClassifierA.FeatureImportance(), a.ClassifierB.FeatureImportance(), topK),
	}
}

// Predict forecasts the horizon of class from the latest row of series. The
// instrument model is preferred; the pooled model of the class is the fallback.
func (p *Predictor) Predict(ctx context.Context, class models.PredictionClass, series []models.Candle) (models.Forecast, error) {
	hp, err := p.profiles.Get(class)
	if err != nil {
		return models.Forecast{}, err
	}
	if err := validateSeries(series, features.MinRows); err != nil {
		return models.Forecast{}, err
	}
	art, err := p.Artifact(ctx, class, series[0].Symbol)
	if err != nil {
		return models.Forecast{}, err
	}

	f := p.engine.Transform(series)
	if !f.Engineered() {
		return models.Forecast{}, fmt.Errorf("%w: features unavailable", models.ErrInsufficientData)
	}
	if err := checkSchema(art, f); err != nil {
		return models.Forecast{}, err
	}

	last := f.Len() - 1
	row := fillRow(finiteRow(f.Row(last, art.FeatureNames)), art)
	x := art.Scaler.Transform(row)

	confidence := (art.ClassifierA.Predict(x) + art.ClassifierB.Predict(x)) / 2
	predicted := art.Regressor.Predict(x)
	current := series[len(series)-1].Close

	fc := models.Forecast{
		Class:           class,
		Direction:       models.DirectionDown,
		Confidence:      confidence,
		PredictedReturn: predicted,
		CurrentPrice:    current,
		TargetPrice:     current * (1 + predicted),
		HorizonDays:     hp.HorizonDays,
		ArtifactID:      art.ID,
	}
	if confidence > decisionThreshold {
		fc.Direction = models.DirectionUp
	}
	fc.StopLoss = stopLoss(fc.Direction, current, f.Value("atr_14", last))
	return fc, nil
}

// stopLoss sits two ATRs against the call, or 3% when ATR is undefined.
func stopLoss(dir models.Direction, current, atr float64) float64 {
	if math.IsNaN(atr) || math.IsInf(atr, 0) {
		if dir == models.DirectionUp {
			return current * 0.97
		}
		return current * 1.03
	}
	if dir == models.DirectionUp {
		return current - 2*atr
	}
	return current + 2*atr
}

func checkSchema(a *Artifact, f *features.Frame) error {
	if a.SchemaVersion != features.SchemaVersion {
		return fmt.Errorf("%w: artifact schema %s, engine %s", models.ErrSchemaMismatch, a.SchemaVersion, features.SchemaVersion)
	}
	cols := features.Columns()
	if len(cols) != len(a.EngineColumns) {
		return fmt.Errorf("%w: artifact has %d engine columns, engine %d", models.ErrSchemaMismatch, len(a.EngineColumns), len(cols))
	}
	for i := range cols {
		if cols[i] != a.EngineColumns[i] {
			return fmt.Errorf("%w: column %d is %s, artifact expects %s", models.ErrSchemaMismatch, i, cols[i], a.EngineColumns[i])
		}
	}
	for _, n := range a.FeatureNames {
		if !f.Has(n) {
			return fmt.Errorf("%w: feature %s missing", models.ErrSchemaMismatch, n)
		}
	}
	return nil
}

// fillRow substitutes training means for undefined cells. Without a stored
// mean the average of the row's defined cells is used.
func fillRow(row []float64, a *Artifact) []float64 {
	local, cnt := 0.0, 0
	for _, v := range row {
		if !math.IsNaN(v) {
			local += v
			cnt++
		}
	}
	if cnt > 0 {
		local /= float64(cnt)
	}
	for j, v := range row {
		if !math.IsNaN(v) {
			continue
		}
		if m, ok := a.ColumnMeans[a.FeatureNames[j]]; ok {
			row[j] = m
		} else {
			row[j] = local
		}
	}
	return row
}

// Artifact resolves the effective artifact for (class, symbol): the
// instrument model when one exists, else the pooled model.
func (p *Predictor) Artifact(ctx context.Context, class models.PredictionClass, symbol string) (*Artifact, error) {
	scopes := []string{""}
	if symbol != "" {
		scopes = []string{symbol, ""}
	}
	for _, scope := range scopes {
		art, err := p.load(ctx, key{class, scope})
		if err == nil {
			return art, nil
		}
		if !errors.Is(err, models.ErrModelNotTrained) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: class %s", models.ErrModelNotTrained, class)
}

func (p *Predictor) load(ctx context.Context, k key) (*Artifact, error) {
	p.mu.RLock()
	art, ok := p.artifacts[k]
	p.mu.RUnlock()
	if ok {
		return art, nil
	}
	if p.store == nil {
		return nil, models.ErrModelNotTrained
	}
	art, err := p.store.Latest(ctx, k.class, k.scope)
	if err != nil {
		return nil, err
	}
	if err := art.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrSchemaMismatch, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	// A concurrent Train may have installed a newer artifact meanwhile.
	if cur, ok := p.artifacts[k]; ok {
		return cur, nil
	}
	p.artifacts[k] = art
	return art, nil
}

// Profiles exposes the configured horizon profiles.
func (p *Predictor) Profiles() *models.Profiles { return p.profiles }
