package di

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockPred/internal/domain/models"
	"StockPred/internal/repository"
	"StockPred/internal/services/predictor"
	"StockPred/internal/usecase"
	"StockPred/pkg/config"
	"StockPred/pkg/logger"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Models.Dir = t.TempDir()
	cfg.Models.CSVDir = t.TempDir()
	cfg.Log.Level = "error"
	return cfg
}

func TestBoostingParamsOverlay(t *testing.T) {
	p := BoostingParams(config.BoostingConfig{Rounds: 50, LearningRate: 0.1, Seed: 7})

	for _, g := range []struct {
		rounds int
		lr     float64
		seed   int64
	}{
		{p.ClassifierA.Rounds, p.ClassifierA.LearningRate, p.ClassifierA.Seed},
		{p.ClassifierB.Rounds, p.ClassifierB.LearningRate, p.ClassifierB.Seed},
		{p.Regressor.Rounds, p.Regressor.LearningRate, p.Regressor.Seed},
	} {
		assert.Equal(t, 50, g.rounds)
		assert.Equal(t, 0.1, g.lr)
		assert.Equal(t, int64(7), g.seed)
	}
}

func TestBoostingParamsZeroKeepsDefaults(t *testing.T) {
	p := BoostingParams(config.BoostingConfig{})
	assert.Equal(t, predictor.DefaultParams(), p)
	assert.NotEqual(t, p.ClassifierA.Growth, p.ClassifierB.Growth)
}

func TestProvideProfiles(t *testing.T) {
	cfg := testConfig(t)
	p, err := ProvideProfiles(cfg)
	require.NoError(t, err)
	assert.Equal(t, []models.PredictionClass{models.ClassIntraday, models.ClassSwing, models.ClassPosition}, p.Classes())

	cfg.Models.Profiles = []config.ProfileConfig{{Name: "weekly", HorizonDays: 5, ReturnThreshold: 0.03}}
	p, err = ProvideProfiles(cfg)
	require.NoError(t, err)
	hp, err := p.Get("weekly")
	require.NoError(t, err)
	assert.Equal(t, 5, hp.HorizonDays)
	_, err = p.Get(models.ClassSwing)
	assert.ErrorIs(t, err, models.ErrUnknownClass)

	cfg.Models.Profiles = append(cfg.Models.Profiles, cfg.Models.Profiles[0])
	_, err = ProvideProfiles(cfg)
	assert.Error(t, err)
}

func TestProvideCalendarExtraClosures(t *testing.T) {
	cfg := testConfig(t)
	cfg.Calendar.ExtraClosures = []string{"2024-07-08"}
	p, err := ProvideProfiles(cfg)
	require.NoError(t, err)

	cal, err := ProvideCalendar(cfg, p)
	require.NoError(t, err)
	assert.False(t, cal.IsTradingDay(time.Date(2024, 7, 8, 0, 0, 0, 0, time.UTC)))

	cfg.Calendar.ExtraClosures = []string{"07/08/2024"}
	_, err = ProvideCalendar(cfg, p)
	assert.Error(t, err)
}

func TestOptionalStoresAreNilInterfaces(t *testing.T) {
	l := logger.Nop()
	assert.Nil(t, ProvideTrainingStore(nil, l))
	assert.Nil(t, ProvidePredictionStore(nil, l))
	assert.Nil(t, ProvidePublisher(testConfig(t), nil))

	store := ProvideCandleStore(testConfig(t), nil, l)
	assert.IsType(t, &repository.CSVCandleStore{}, store)
}

func TestProvideCacheWithoutRedis(t *testing.T) {
	c := ProvideCache(testConfig(t), nil)
	t.Cleanup(func() { _ = c.Close() })

	ok, err := c.TryLock(context.Background(), "train_lock:swing:AAPL", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = c.TryLock(context.Background(), "train_lock:swing:AAPL", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOptionalInfrastructureDisabled(t *testing.T) {
	cfg := testConfig(t)
	producer, err := ProvideKafkaProducer(cfg)
	require.NoError(t, err)
	assert.Nil(t, producer)

	rc, err := ProvideRedisCache(cfg)
	require.NoError(t, err)
	assert.Nil(t, rc)
	assert.Nil(t, ProvideQueue(cfg, nil, logger.Nop()))

	consumer, err := ProvideKafkaConsumer(cfg, logger.Nop(), nil)
	require.NoError(t, err)
	assert.Nil(t, consumer)
}

func TestToolkitImportsAndReadsCandles(t *testing.T) {
	tk, err := NewToolkit(testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tk.Close() })

	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	in := []models.Candle{
		{Date: day, Symbol: "AAPL", Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 100},
		{Date: day.AddDate(0, 0, 3), Symbol: "AAPL", Open: 10.5, High: 12, Low: 10, Close: 11.5, Volume: 120},
		{Date: day.AddDate(0, 0, 4), Symbol: "AAPL", Open: 11, High: 10, Low: 12, Close: 11, Volume: 90},
	}
	n, err := tk.Candles.Import(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	res, err := tk.Candles.GetCandles(context.Background(), usecase.GetCandlesParams{
		Symbol: "AAPL",
		From:   day,
		To:     day.AddDate(0, 0, 10),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)

	target, err := tk.Calendar.TargetDateFor(models.ClassSwing, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2024-07-09", target.Format(time.DateOnly))
}
