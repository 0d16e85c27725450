package di

import (
	"context"
	"fmt"
	"time"

	"StockPred/internal/domain/models"
	domrepo "StockPred/internal/domain/repository"
	"StockPred/internal/handler/api"
	"StockPred/internal/handler/ws"
	internalrepo "StockPred/internal/repository"
	"StockPred/internal/service/ratelimit"
	"StockPred/internal/services/calendar"
	"StockPred/internal/services/features"
	"StockPred/internal/services/gbm"
	"StockPred/internal/services/predictor"
	"StockPred/internal/usecase"
	"StockPred/pkg/cache"
	pkgch "StockPred/pkg/clickhouse"
	"StockPred/pkg/config"
	xhttp "StockPred/pkg/http"
	pkgkafka "StockPred/pkg/kafka"
	"StockPred/pkg/logger"
	"StockPred/pkg/metrics"
	"StockPred/pkg/queue"
	"StockPred/pkg/server"
)

// ProvideLogger builds the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient connects to ClickHouse and applies the schema.
// An empty host disables ClickHouse and returns a nil client.
func ProvideClickHouseClient(cfg *config.Config, l *logger.Logger) (*pkgch.Client, error) {
	if cfg.ClickHouse.Host == "" {
		l.Info("clickhouse disabled")
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := pkgch.NewClient(ctx,
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	if err := client.InitSchema(ctx, internalrepo.Schema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	l.Info("clickhouse ready", logger.String("database", cfg.ClickHouse.Database))
	return client, nil
}

// ProvideCandleStore prefers ClickHouse and falls back to per-symbol CSV files.
func ProvideCandleStore(cfg *config.Config, ch *pkgch.Client, l *logger.Logger) domrepo.CandleStore {
	if ch != nil {
		return internalrepo.NewCHCandleStore(ch, l)
	}
	dir := cfg.Models.CSVDir
	if dir == "" {
		dir = "data"
	}
	l.Info("using csv candle store", logger.String("dir", dir))
	return internalrepo.NewCSVCandleStore(dir)
}

// ProvideTrainingStore returns nil when ClickHouse is disabled.
func ProvideTrainingStore(ch *pkgch.Client, l *logger.Logger) domrepo.TrainingStore {
	if ch == nil {
		return nil
	}
	return internalrepo.NewCHTrainingStore(ch, l)
}

// ProvidePredictionStore returns nil when ClickHouse is disabled.
func ProvidePredictionStore(ch *pkgch.Client, l *logger.Logger) domrepo.PredictionStore {
	if ch == nil {
		return nil
	}
	return internalrepo.NewCHTrainingStore(ch, l)
}

// ProvideKafkaProducer creates a Kafka producer, or nil without brokers.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvidePublisher publishes prediction events to the predictions topic.
func ProvidePublisher(cfg *config.Config, producer *pkgkafka.Producer) domrepo.Publisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topics.Predictions)
}

// LogCollector marks that log shipping has been configured on the logger.
type LogCollector struct{ l *logger.Logger }

// ProvideLogCollector ships aggregated log entries to the logs topic.
func ProvideLogCollector(cfg *config.Config, l *logger.Logger, producer *pkgkafka.Producer) LogCollector {
	if producer != nil && cfg.Kafka.Topics.Logs != "" {
		l.AddCollector(&logger.CollectionConfig{
			TimeInterval:   cfg.Log.CollectInterval,
			CountThreshold: cfg.Log.CollectThreshold,
			Topic:          cfg.Kafka.Topics.Logs,
			Service:        "stockpred",
			VolatileFields: cfg.Log.CollectVolatile,
			Publisher:      producer,
		})
	}
	return LogCollector{l: l}
}

// ProvideRedisCache connects to Redis, or returns nil when disabled.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rc, err := cache.NewRedisCache(ctx,
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideCache layers an in-process cache over Redis when available.
func ProvideCache(cfg *config.Config, rc *cache.RedisCache) cache.Service {
	size := cfg.Cache.MemorySize
	if size <= 0 {
		size = 1000
	}
	if rc == nil {
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(size))
	}
	return cache.NewLayeredCache(rc, cache.WithMemoryMaxSize(size))
}

// ProvideQueue returns the training job queue, or nil without Redis.
func ProvideQueue(cfg *config.Config, rc *cache.RedisCache, l *logger.Logger) *queue.RedisQueue {
	if rc == nil {
		return nil
	}
	name := cfg.Queue.Name
	if name == "" {
		name = "training"
	}
	prefix := name
	if cfg.Redis.Prefix != "" {
		prefix = cfg.Redis.Prefix + ":" + name
	}
	return queue.NewRedisQueue(l, queue.QueueConfig{
		Workers:    cfg.Queue.Concurrency,
		RetryLimit: cfg.Queue.MaxRetries,
		RetryDelay: cfg.Queue.RetryDelay,
		JobTimeout: cfg.Queue.JobTimeout,
	}, rc.Client(), queue.ModeProducerConsumer, queue.WithKeyPrefix(prefix))
}

// ProvideProfiles builds the horizon profiles, defaulting to the built-in set.
func ProvideProfiles(cfg *config.Config) (*models.Profiles, error) {
	ps := models.DefaultProfiles()
	if len(cfg.Models.Profiles) > 0 {
		ps = make([]models.HorizonProfile, 0, len(cfg.Models.Profiles))
		for _, p := range cfg.Models.Profiles {
			ps = append(ps, models.HorizonProfile{
				Name:            models.PredictionClass(p.Name),
				HorizonDays:     p.HorizonDays,
				ReturnThreshold: p.ReturnThreshold,
			})
		}
	}
	profiles, err := models.NewProfiles(ps)
	if err != nil {
		return nil, fmt.Errorf("profiles: %w", err)
	}
	return profiles, nil
}

// ProvideCalendar creates the trading calendar with configured extra closures.
func ProvideCalendar(cfg *config.Config, profiles *models.Profiles) (*calendar.Calendar, error) {
	extra := make([]time.Time, 0, len(cfg.Calendar.ExtraClosures))
	for _, s := range cfg.Calendar.ExtraClosures {
		d, err := calendar.ParseDate(s)
		if err != nil {
			return nil, fmt.Errorf("calendar closure %q: %w", s, err)
		}
		extra = append(extra, d)
	}
	return calendar.New(calendar.WithProfiles(profiles), calendar.WithExtraClosures(extra...)), nil
}

func ProvideFeatureEngine(l *logger.Logger) *features.Engine {
	return features.New(features.WithLogger(l))
}

func ProvideArtifactStore(cfg *config.Config, l *logger.Logger) (*internalrepo.FSArtifactStore, error) {
	s, err := internalrepo.NewFSArtifactStore(cfg.Models.Dir, l)
	if err != nil {
		return nil, fmt.Errorf("artifact store: %w", err)
	}
	return s, nil
}

// BoostingParams overlays the non-zero boosting settings on every ensemble member.
func BoostingParams(b config.BoostingConfig) predictor.Params {
	p := predictor.DefaultParams()
	apply := func(g *gbm.Params) {
		if b.Rounds > 0 {
			g.Rounds = b.Rounds
		}
		if b.LearningRate > 0 {
			g.LearningRate = b.LearningRate
		}
		if b.MaxDepth > 0 {
			g.MaxDepth = b.MaxDepth
		}
		if b.MaxLeaves > 0 {
			g.MaxLeaves = b.MaxLeaves
		}
		if b.Subsample > 0 {
			g.Subsample = b.Subsample
		}
		if b.ColSample > 0 {
			g.ColSample = b.ColSample
		}
		if b.EarlyStopping > 0 {
			g.EarlyStopping = b.EarlyStopping
		}
		if b.Seed != 0 {
			g.Seed = b.Seed
		}
	}
	apply(&p.ClassifierA)
	apply(&p.ClassifierB)
	apply(&p.Regressor)
	return p
}

func ProvidePredictor(
	cfg *config.Config,
	profiles *models.Profiles,
	engine *features.Engine,
	store *internalrepo.FSArtifactStore,
	l *logger.Logger,
) *predictor.Predictor {
	return predictor.New(profiles, engine, store,
		predictor.WithLogger(l),
		predictor.WithParams(BoostingParams(cfg.Models.Boosting)),
	)
}

func ProvideTrainingUseCase(
	cfg *config.Config,
	p *predictor.Predictor,
	store *internalrepo.FSArtifactStore,
	candles domrepo.CandleStore,
	runs domrepo.TrainingStore,
	c cache.Service,
	m domrepo.Metrics,
	l *logger.Logger,
) *usecase.TrainingUseCase {
	return usecase.NewTrainingUseCase(p, store, candles, runs, c, m, l, usecase.TrainingConfig{
		Symbols:  cfg.Models.Symbols,
		Lookback: cfg.Models.Lookback,
		Workers:  cfg.Models.Workers,
		LockTTL:  cfg.Models.LockTTL,
	})
}

func ProvideHub(l *logger.Logger) *ws.Hub {
	return ws.NewHub(l)
}

func ProvidePredictionUseCase(
	cfg *config.Config,
	p *predictor.Predictor,
	cal *calendar.Calendar,
	profiles *models.Profiles,
	candles domrepo.CandleStore,
	preds domrepo.PredictionStore,
	pub domrepo.Publisher,
	c cache.Service,
	hub *ws.Hub,
	m domrepo.Metrics,
	l *logger.Logger,
) *usecase.PredictionUseCase {
	opts := []usecase.PredictionOption{
		usecase.WithCache(c),
		usecase.WithNotifier(hub),
		usecase.WithMetrics(m),
		usecase.WithLogger(l),
	}
	if preds != nil {
		opts = append(opts, usecase.WithPredictionStore(preds))
	}
	if pub != nil {
		opts = append(opts, usecase.WithPublisher(pub))
	}
	return usecase.NewPredictionUseCase(p, cal, profiles, candles, usecase.PredictionConfig{
		ModelName: cfg.Models.ModelName,
		CacheTTL:  cfg.Cache.PredictionTTL,
	}, opts...)
}

func ProvideCandlesUseCase(candles domrepo.CandleStore) *usecase.CandlesUseCase {
	return usecase.NewCandlesUseCase(candles)
}

func ProvideTrainJob(uc *usecase.TrainingUseCase) *usecase.TrainJob {
	return usecase.NewTrainJob(uc)
}

func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.RateLimit.TrainPerMinute, cfg.RateLimit.TrainBurst)
}

// ProvideHandlers collects every HTTP route group.
func ProvideHandlers(
	l *logger.Logger,
	preds *usecase.PredictionUseCase,
	training *usecase.TrainingUseCase,
	candles *usecase.CandlesUseCase,
	cal *calendar.Calendar,
	q *queue.RedisQueue,
	rl *ratelimit.Limiter,
	hub *ws.Hub,
) []xhttp.Handler {
	var enq usecase.Enqueuer
	if q != nil {
		enq = q
	}
	return []xhttp.Handler{
		api.NewPredictionsHandler(l, preds),
		api.NewTrainingHandler(l, training, enq, rl),
		api.NewCalendarHandler(l, cal),
		api.NewCandlesHandler(l, candles),
		hub,
	}
}

func ProvideHTTPServer(cfg *config.Config, l *logger.Logger, handlers []xhttp.Handler) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(l, handlers,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORSOrigins(cfg.Server.CORSOrigins),
		xhttp.WithMetricsPath(metricsPath),
	)
}

// ProvideKafkaConsumer creates the train-request consumer, or nil without
// brokers. Requests are routed into the job queue when one is available.
func ProvideKafkaConsumer(cfg *config.Config, l *logger.Logger, q *queue.RedisQueue) (*pkgkafka.Consumer, error) {
	if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.Topics.TrainRequests == "" || q == nil {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(l,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.TracingHook{Log: l.With("kafka")})
	consumer.RegisterHandler(usecase.NewTrainRequestHandler(cfg.Kafka.Topics.TrainRequests, q, l))
	return consumer, nil
}

// ProvideApp assembles the application server.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	_ LogCollector,
	httpServer *xhttp.Server,
	hub *ws.Hub,
	q *queue.RedisQueue,
	job *usecase.TrainJob,
	consumer *pkgkafka.Consumer,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
	rc *cache.RedisCache,
	c cache.Service,
) *server.App {
	if q != nil {
		q.RegisterJob(job)
	}
	return server.New(cfg, l,
		server.WithHTTP(httpServer),
		server.WithHub(hub),
		server.WithQueue(q),
		server.WithConsumer(consumer),
		server.WithProducer(producer),
		server.WithClickHouse(ch),
		server.WithCache(c),
		server.WithRedis(rc),
	)
}
