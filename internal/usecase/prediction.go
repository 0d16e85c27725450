package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"StockPred/internal/domain/models"
	domrepo "StockPred/internal/domain/repository"
	"StockPred/internal/domain/service"
	"StockPred/pkg/cache"
	"StockPred/pkg/logger"
)

const predictionCachePrefix = "pred"

// entryBand is the half width of the entry zone around the current price.
var entryBand = decimal.NewFromFloat(0.01)

// Notifier pushes fresh predictions to live subscribers.
type Notifier interface {
	Broadcast(p models.Prediction)
}

type PredictionConfig struct {
	ModelName string
	CacheTTL  time.Duration
}

// PredictionUseCase turns forecasts into stamped predictions and fans them out.
type PredictionUseCase struct {
	forecaster service.Forecaster
	calendar   service.TradingCalendar
	profiles   *models.Profiles
	candles    domrepo.CandleStore
	store      domrepo.PredictionStore
	pub        domrepo.Publisher
	cache      cache.Service
	notifier   Notifier
	metrics    domrepo.Metrics
	log        *logger.Logger
	cfg        PredictionConfig
}

type PredictionOption func(*PredictionUseCase)

func WithPredictionStore(s domrepo.PredictionStore) PredictionOption {
	return func(uc *PredictionUseCase) { uc.store = s }
}

func WithPublisher(p domrepo.Publisher) PredictionOption {
	return func(uc *PredictionUseCase) { uc.pub = p }
}

func WithCache(c cache.Service) PredictionOption {
	return func(uc *PredictionUseCase) { uc.cache = c }
}

func WithNotifier(n Notifier) PredictionOption {
	return func(uc *PredictionUseCase) { uc.notifier = n }
}

func WithMetrics(m domrepo.Metrics) PredictionOption {
	return func(uc *PredictionUseCase) { uc.metrics = m }
}

func WithLogger(l *logger.Logger) PredictionOption {
	return func(uc *PredictionUseCase) {
		if l != nil {
			uc.log = l.With("prediction")
		}
	}
}

func NewPredictionUseCase(
	forecaster service.Forecaster,
	calendar service.TradingCalendar,
	profiles *models.Profiles,
	candles domrepo.CandleStore,
	cfg PredictionConfig,
	opts ...PredictionOption,
) *PredictionUseCase {
	if cfg.ModelName == "" {
		cfg.ModelName = "gbdt_ensemble"
	}
	uc := &PredictionUseCase{
		forecaster: forecaster,
		calendar:   calendar,
		profiles:   profiles,
		candles:    candles,
		log:        logger.Nop(),
		cfg:        cfg,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

type PredictParams struct {
	Symbol string
	Class  models.PredictionClass
	N      int
}

// Predict returns the prediction for one (symbol, class). Fresh predictions
// are persisted, published and broadcast; cached ones are returned as is.
func (uc *PredictionUseCase) Predict(ctx context.Context, p PredictParams) (*models.Prediction, error) {
	if p.Symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	if _, err := uc.profiles.Get(p.Class); err != nil {
		return nil, err
	}
	if p.N <= 0 {
		p.N = 300
	}

	load := func(ctx context.Context) (models.Prediction, error) {
		series, err := uc.candles.LatestCandles(ctx, p.Symbol, p.N)
		if err != nil {
			return models.Prediction{}, fmt.Errorf("load candles: %w", err)
		}
		pred, err := uc.forecast(ctx, p.Symbol, p.Class, series)
		if err != nil {
			return models.Prediction{}, err
		}
		uc.emit(ctx, []models.Prediction{pred})
		return pred, nil
	}

	var (
		pred models.Prediction
		err  error
	)
	if uc.cache != nil && uc.cfg.CacheTTL > 0 {
		key := cache.GenerateKeyWithParams(predictionCachePrefix, p.Symbol, p.Class, p.N)
		pred, err = cache.GetOrLoad(ctx, uc.cache, key, uc.cfg.CacheTTL, load)
	} else {
		pred, err = load(ctx)
	}
	if err != nil {
		uc.recordError(err)
		return nil, err
	}
	return &pred, nil
}

// PredictAll forecasts every configured class from one candle load. Per-class
// failures are reported in the error map, keyed by class.
func (uc *PredictionUseCase) PredictAll(ctx context.Context, symbol string, n int) ([]models.Prediction, map[string]string, error) {
	if symbol == "" {
		return nil, nil, fmt.Errorf("symbol required")
	}
	if n <= 0 {
		n = 300
	}
	series, err := uc.candles.LatestCandles(ctx, symbol, n)
	if err != nil {
		uc.recordError(err)
		return nil, nil, fmt.Errorf("load candles: %w", err)
	}

	var (
		out  []models.Prediction
		errs = map[string]string{}
	)
	for _, class := range uc.profiles.Classes() {
		pred, err := uc.forecast(ctx, symbol, class, series)
		if err != nil {
			uc.recordError(err)
			errs[string(class)] = err.Error()
			continue
		}
		out = append(out, pred)
	}
	uc.emit(ctx, out)
	if len(errs) == 0 {
		errs = nil
	}
	return out, errs, nil
}

// Latest returns the most recent stored prediction per class for symbol.
func (uc *PredictionUseCase) Latest(ctx context.Context, symbol string) ([]models.Prediction, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	if uc.store == nil {
		return nil, nil
	}
	return uc.store.LatestPredictions(ctx, symbol)
}

// List returns stored predictions across symbols matching f. Without a
// prediction store the result is empty.
func (uc *PredictionUseCase) List(ctx context.Context, f models.PredictionFilter) ([]models.Prediction, error) {
	if f.Class != "" {
		if _, err := uc.profiles.Get(models.PredictionClass(f.Class)); err != nil {
			return nil, err
		}
	}
	f.Symbol = strings.ToUpper(f.Symbol)
	if uc.store == nil {
		return nil, nil
	}
	ps, err := uc.store.ListPredictions(ctx, f)
	if err != nil {
		uc.recordKind("list_predictions")
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	return ps, nil
}

func (uc *PredictionUseCase) forecast(ctx context.Context, symbol string, class models.PredictionClass, series []models.Candle) (models.Prediction, error) {
	start := time.Now()
	fc, err := uc.forecaster.Predict(ctx, class, series)
	if uc.metrics != nil {
		uc.metrics.RecordLatency("predict", time.Since(start).Seconds())
	}
	if err != nil {
		return models.Prediction{}, fmt.Errorf("predict %s/%s: %w", symbol, class, err)
	}
	asOf := series[len(series)-1].Date
	target, err := uc.calendar.TargetDateFor(class, asOf)
	if err != nil {
		return models.Prediction{}, err
	}
	pred := Stamp(fc, symbol, asOf, target, uc.cfg.ModelName)
	if uc.metrics != nil {
		uc.metrics.RecordPrediction(string(class), string(fc.Direction))
	}
	return pred, nil
}

// Stamp builds a prediction from a forecast. Levels keep full precision;
// Present rounds them for display.
func Stamp(fc models.Forecast, symbol string, asOf, target time.Time, modelName string) models.Prediction {
	current := decimal.NewFromFloat(fc.CurrentPrice)
	one := decimal.NewFromInt(1)

	growth := decimal.Zero
	if !current.IsZero() && !math.IsNaN(fc.TargetPrice) && !math.IsInf(fc.TargetPrice, 0) {
		growth = decimal.NewFromFloat(fc.TargetPrice).Sub(current).Div(current).Mul(decimal.NewFromInt(100))
	}

	return models.Prediction{
		Forecast:               fc,
		Symbol:                 symbol,
		PredictionDate:         asOf,
		TargetDate:             target,
		EntryPriceLow:          current.Mul(one.Sub(entryBand)).InexactFloat64(),
		EntryPriceHigh:         current.Mul(one.Add(entryBand)).InexactFloat64(),
		PredictedGrowthPercent: growth.InexactFloat64(),
		ModelName:              modelName,
		ModelVersion:           fc.ArtifactID,
		Status:                 models.PredictionStatusActive,
	}
}

// Present rounds prices to cents, or to six places below one dollar, and
// the growth percentage to two places.
func Present(p models.Prediction) models.Prediction {
	places := int32(2)
	if math.Abs(p.CurrentPrice) < 1 {
		places = 6
	}
	round := func(v float64) float64 {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return v
		}
		return decimal.NewFromFloat(v).Round(places).InexactFloat64()
	}
	out := p
	out.CurrentPrice = round(p.CurrentPrice)
	out.TargetPrice = round(p.TargetPrice)
	out.StopLoss = round(p.StopLoss)
	out.EntryPriceLow = round(p.EntryPriceLow)
	out.EntryPriceHigh = round(p.EntryPriceHigh)
	if !math.IsNaN(p.PredictedGrowthPercent) && !math.IsInf(p.PredictedGrowthPercent, 0) {
		out.PredictedGrowthPercent = decimal.NewFromFloat(p.PredictedGrowthPercent).Round(2).InexactFloat64()
	}
	return out
}

// PresentAll applies Present to every prediction.
func PresentAll(ps []models.Prediction) []models.Prediction {
	if ps == nil {
		return nil
	}
	out := make([]models.Prediction, len(ps))
	for i, p := range ps {
		out[i] = Present(p)
	}
	return out
}

// emit persists, publishes and broadcasts. Failures are logged; the caller
// still gets its predictions.
func (uc *PredictionUseCase) emit(ctx context.Context, ps []models.Prediction) {
	if len(ps) == 0 {
		return
	}
	if uc.store != nil {
		if err := uc.store.SavePredictions(ctx, ps); err != nil {
			uc.log.Warn("save predictions", logger.String("symbol", ps[0].Symbol), logger.Error(err))
			uc.recordKind("store_predictions")
		}
	}
	if uc.pub != nil {
		if err := uc.pub.PublishBatch(ctx, ps); err != nil {
			uc.log.Warn("publish predictions", logger.String("symbol", ps[0].Symbol), logger.Error(err))
			uc.recordKind("publish_predictions")
		}
	}
	if uc.notifier != nil {
		for _, p := range ps {
			uc.notifier.Broadcast(p)
		}
	}
}

func (uc *PredictionUseCase) recordError(err error) {
	uc.recordKind(ErrorKind(err))
}

func (uc *PredictionUseCase) recordKind(kind string) {
	if uc.metrics != nil {
		uc.metrics.RecordError(kind)
	}
}
