package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"StockPred/internal/handler/ws"
	"StockPred/pkg/cache"
	pkgch "StockPred/pkg/clickhouse"
	"StockPred/pkg/config"
	xhttp "StockPred/pkg/http"
	pkgkafka "StockPred/pkg/kafka"
	"StockPred/pkg/logger"
	"StockPred/pkg/queue"
)

// App encapsulates the entire application lifecycle. Every component except
// the HTTP server is optional.
type App struct {
	cfg      *config.Config
	root     *logger.Logger
	log      *logger.Logger
	http     *xhttp.Server
	hub      *ws.Hub
	queue    *queue.RedisQueue
	consumer *pkgkafka.Consumer
	producer *pkgkafka.Producer
	chClient *pkgch.Client
	redis    *cache.RedisCache
	cache    cache.Service
	stop     chan struct{}
}

type Option func(*App)

func WithHTTP(s *xhttp.Server) Option { return func(a *App) { a.http = s } }
func WithHub(h *ws.Hub) Option { return func(a *App) { a.hub = h } }
func WithQueue(q *queue.RedisQueue) Option { return func(a *App) { a.queue = q } }
func WithConsumer(c *pkgkafka.Consumer) Option { return func(a *App) { a.consumer = c } }
func WithProducer(p *pkgkafka.Producer) Option { return func(a *App) { a.producer = p } }
func WithClickHouse(c *pkgch.Client) Option { return func(a *App) { a.chClient = c } }
func WithRedis(r *cache.RedisCache) Option { return func(a *App) { a.redis = r } }
func WithCache(c cache.Service) Option { return func(a *App) { a.cache = c } }

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *logger.Logger, opts ...Option) *App {
	if l == nil {
		l = logger.Nop()
	}
	a := &App{cfg: cfg, root: l, log: l.With("app"), stop: make(chan struct{})}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run starts every component and blocks until SIGINT/SIGTERM or Shutdown.
func (a *App) Run() error {
	if a.http == nil {
		return errors.New("app: http server is not configured")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.hub != nil {
		go a.hub.Run(ctx)
	}

	if a.queue != nil {
		if err := a.queue.Start(ctx); err != nil {
			return err
		}
		a.log.Info("training queue started")
	}

	if a.consumer != nil {
		if err := a.consumer.Start(); err != nil {
			return err
		}
	}

	if err := a.http.Start(); err != nil {
		a.log.Error("http server start error", logger.Error(err))
		return err
	}
	a.log.Info("stockpred started", logger.Int("port", a.cfg.Server.Port), logger.String("env", a.cfg.Environment))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	select {
	case <-sigCh:
		a.log.Info("shutdown signal received")
	case <-a.stop:
	}

	cancel()
	return a.shutdown()
}

// Shutdown unblocks Run.
func (a *App) Shutdown() {
	select {
	case <-a.stop:
	default:
		close(a.stop)
	}
}

// shutdown stops intake first and closes infrastructure last.
func (a *App) shutdown() error {
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if err := a.http.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", logger.Error(err))
		errs = append(errs, err)
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", logger.Error(err))
		}
	}
	if a.queue != nil {
		if err := a.queue.Stop(ctx); err != nil {
			a.log.Warn("queue stop error", logger.Error(err))
		}
	}

	// The collector flushes through the producer, so it goes first.
	a.root.RemoveCollector()
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.log.Warn("kafka producer close error", logger.Error(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.Warn("cache close error", logger.Error(err))
		}
	} else if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", logger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}
