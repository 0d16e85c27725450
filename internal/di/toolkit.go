package di

import (
	"StockPred/internal/services/calendar"
	"StockPred/internal/usecase"
	"StockPred/pkg/cache"
	pkgch "StockPred/pkg/clickhouse"
	"StockPred/pkg/config"
	"StockPred/pkg/logger"
	"StockPred/pkg/metrics"
)

// Toolkit is the storage and use-case graph without any transport, used by
// the command-line tool.
type Toolkit struct {
	Log         *logger.Logger
	Calendar    *calendar.Calendar
	Training    *usecase.TrainingUseCase
	Predictions *usecase.PredictionUseCase
	Candles     *usecase.CandlesUseCase

	ch    *pkgch.Client
	cache cache.Service
}

// NewToolkit builds the graph from cfg. Redis and Kafka are never used; locks
// and prediction caching stay in process.
func NewToolkit(cfg *config.Config) (*Toolkit, error) {
	l, err := ProvideLogger(cfg)
	if err != nil {
		return nil, err
	}
	ch, err := ProvideClickHouseClient(cfg, l)
	if err != nil {
		return nil, err
	}
	candles := ProvideCandleStore(cfg, ch, l)
	artifacts, err := ProvideArtifactStore(cfg, l)
	if err != nil {
		return nil, closeOnErr(ch, err)
	}
	profiles, err := ProvideProfiles(cfg)
	if err != nil {
		return nil, closeOnErr(ch, err)
	}
	cal, err := ProvideCalendar(cfg, profiles)
	if err != nil {
		return nil, closeOnErr(ch, err)
	}
	c := ProvideCache(cfg, nil)
	m := metrics.Nop{}
	p := ProvidePredictor(cfg, profiles, ProvideFeatureEngine(l), artifacts, l)

	training := ProvideTrainingUseCase(cfg, p, artifacts, candles, ProvideTrainingStore(ch, l), c, m, l)

	opts := []usecase.PredictionOption{usecase.WithLogger(l), usecase.WithMetrics(m)}
	if store := ProvidePredictionStore(ch, l); store != nil {
		opts = append(opts, usecase.WithPredictionStore(store))
	}
	predictions := usecase.NewPredictionUseCase(p, cal, profiles, candles, usecase.PredictionConfig{
		ModelName: cfg.Models.ModelName,
	}, opts...)

	return &Toolkit{
		Log:         l,
		Calendar:    cal,
		Training:    training,
		Predictions: predictions,
		Candles:     ProvideCandlesUseCase(candles),
		ch:          ch,
		cache:       c,
	}, nil
}

func (t *Toolkit) Close() error {
	_ = t.cache.Close()
	if t.ch != nil {
		return t.ch.Close()
	}
	return nil
}

func closeOnErr(ch *pkgch.Client, err error) error {
	if ch != nil {
		_ = ch.Close()
	}
	return err
}
