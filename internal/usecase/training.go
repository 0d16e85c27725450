package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"StockPred/internal/domain/models"
	domrepo "StockPred/internal/domain/repository"
	"StockPred/internal/services/predictor"
	"StockPred/pkg/cache"
	"StockPred/pkg/logger"
)

// Trainer fits and persists ensembles.
type Trainer interface {
	Train(ctx context.Context, class models.PredictionClass, series []models.Candle) (*predictor.Result, error)
	TrainPooled(ctx context.Context, class models.PredictionClass, series map[string][]models.Candle) (*predictor.Result, error)
	Profiles() *models.Profiles
}

// ArtifactLister lists persisted artifacts of a class.
type ArtifactLister interface {
	List(ctx context.Context, class models.PredictionClass) ([]models.ArtifactInfo, error)
}

// TrainingConfig holds batch defaults.
type TrainingConfig struct {
	Symbols  []string
	Lookback int
	Workers  int
	LockTTL  time.Duration
}

// TrainingUseCase runs batches of (class, scope) training jobs.
type TrainingUseCase struct {
	trainer   Trainer
	artifacts ArtifactLister
	candles   domrepo.CandleStore
	runs      domrepo.TrainingStore
	cache     cache.Service
	metrics   domrepo.Metrics
	log       *logger.Logger
	cfg       TrainingConfig
	now       func() time.Time
}

func NewTrainingUseCase(
	trainer Trainer,
	artifacts ArtifactLister,
	candles domrepo.CandleStore,
	runs domrepo.TrainingStore,
	c cache.Service,
	metrics domrepo.Metrics,
	l *logger.Logger,
	cfg TrainingConfig,
) *TrainingUseCase {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 1000
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Minute
	}
	if l == nil {
		l = logger.Nop()
	}
	return &TrainingUseCase{
		trainer:   trainer,
		artifacts: artifacts,
		candles:   candles,
		runs:      runs,
		cache:     c,
		metrics:   metrics,
		log:       l.With("training"),
		cfg:       cfg,
		now:       time.Now,
	}
}

type TrainParams struct {
	Symbols []string
	Classes []models.PredictionClass
	Pooled  bool
	N       int
}

// TrainReport lists every run of a batch ordered by class then scope.
type TrainReport struct {
	Runs      []models.TrainingRun `json:"runs"`
	Succeeded int                  `json:"succeeded"`
	Failed    int                  `json:"failed"`
	Skipped   int                  `json:"skipped"`
}

type trainTask struct {
	class   models.PredictionClass
	scope   string
	symbols []string
}

// TrainBatch trains every requested (class, symbol) pair plus, when pooled,
// one cross-instrument model per class. A failing pair never aborts the batch;
// the returned error is non-nil only for invalid parameters or cancellation.
func (uc *TrainingUseCase) TrainBatch(ctx context.Context, p TrainParams) (*TrainReport, error) {
	classes, err := uc.resolveClasses(p.Classes)
	if err != nil {
		return nil, err
	}
	symbols, err := uc.resolveSymbols(ctx, p.Symbols)
	if err != nil {
		return nil, err
	}
	if p.N <= 0 {
		p.N = uc.cfg.Lookback
	}

	series := make(map[string][]models.Candle, len(symbols))
	loadErrs := make(map[string]error)
	for _, sym := range symbols {
		cs, err := uc.candles.LatestCandles(ctx, sym, p.N)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			loadErrs[sym] = fmt.Errorf("load candles %s: %w", sym, err)
			continue
		}
		series[sym] = cs
	}

	var tasks []trainTask
	for _, class := range classes {
		for _, sym := range symbols {
			tasks = append(tasks, trainTask{class: class, scope: sym, symbols: []string{sym}})
		}
		if p.Pooled && len(series) > 0 {
			tasks = append(tasks, trainTask{class: class, scope: "", symbols: sortedKeys(series)})
		}
	}

	var (
		mu     sync.Mutex
		report TrainReport
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.cfg.Workers)
	for _, t := range tasks {
		t := t
		g.Go(func() error {
			var run models.TrainingRun
			if err, bad := loadErrs[t.scope]; bad {
				run = uc.failedRun(t, err)
			} else {
				run = uc.runTask(gctx, t, series)
			}
			mu.Lock()
			report.Runs = append(report.Runs, run)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(report.Runs, func(i, j int) bool {
		a, b := report.Runs[i], report.Runs[j]
		if a.Class != b.Class {
			return a.Class < b.Class
		}
		return a.Scope < b.Scope
	})
	for _, r := range report.Runs {
		switch r.Status {
		case models.RunStatusSucceeded:
			report.Succeeded++
		case models.RunStatusSkipped:
			report.Skipped++
		default:
			report.Failed++
		}
	}
	uc.log.Info("training batch finished",
		logger.Int("succeeded", report.Succeeded),
		logger.Int("failed", report.Failed),
		logger.Int("skipped", report.Skipped))
	return &report, nil
}

func (uc *TrainingUseCase) runTask(ctx context.Context, t trainTask, series map[string][]models.Candle) models.TrainingRun {
	run := models.TrainingRun{
		RunID:     uuid.NewString(),
		Class:     t.class,
		Scope:     t.scope,
		Symbols:   t.symbols,
		StartedAt: uc.now().UTC(),
	}

	lockKey := cache.GenerateKeyWithParams("train_lock", t.class, scopeKey(t.scope))
	if uc.cache != nil {
		ok, err := uc.cache.TryLock(ctx, lockKey, uc.cfg.LockTTL)
		switch {
		case err != nil:
			uc.log.Warn("training lock unavailable, continuing without it", logger.String("key", lockKey), logger.Error(err))
		case !ok:
			run.Status = models.RunStatusSkipped
			run.Error = "training already in progress"
			return uc.finish(ctx, run)
		default:
			defer func() {
				if err := uc.cache.Unlock(context.Background(), lockKey); err != nil {
					uc.log.Warn("release training lock", logger.String("key", lockKey), logger.Error(err))
				}
			}()
		}
	}

	var (
		res *predictor.Result
		err error
	)
	if t.scope == "" {
		res, err = uc.trainer.TrainPooled(ctx, t.class, series)
	} else {
		res, err = uc.trainer.Train(ctx, t.class, series[t.scope])
	}
	if err != nil {
		run.Status = models.RunStatusFailed
		run.Error = err.Error()
		return uc.finish(ctx, run)
	}

	run.Status = models.RunStatusSucceeded
	run.ArtifactPath = res.Path
	run.Metrics = res.Artifact.Metrics
	uc.invalidate(ctx, t)
	return uc.finish(ctx, run)
}

func (uc *TrainingUseCase) failedRun(t trainTask, err error) models.TrainingRun {
	now := uc.now().UTC()
	return uc.finish(context.Background(), models.TrainingRun{
		RunID:     uuid.NewString(),
		Class:     t.class,
		Scope:     t.scope,
		Symbols:   t.symbols,
		StartedAt: now,
		Status:    models.RunStatusFailed,
		Error:     err.Error(),
	})
}

// finish stamps, records and reports a run.
func (uc *TrainingUseCase) finish(ctx context.Context, run models.TrainingRun) models.TrainingRun {
	run.FinishedAt = uc.now().UTC()
	seconds := run.FinishedAt.Sub(run.StartedAt).Seconds()
	if uc.metrics != nil {
		uc.metrics.RecordTraining(string(run.Class), run.Status, seconds, run.Metrics.Accuracy)
	}
	if uc.runs != nil {
		if err := uc.runs.RecordRun(ctx, run); err != nil {
			uc.log.Warn("record training run", logger.String("run_id", run.RunID), logger.Error(err))
			if uc.metrics != nil {
				uc.metrics.RecordError("record_run")
			}
		}
	}

	fields := []logger.Field{
		logger.String("class", string(run.Class)),
		logger.String("scope", scopeKey(run.Scope)),
		logger.String("status", run.Status),
		logger.Float64("seconds", seconds),
	}
	if run.Status == models.RunStatusFailed {
		uc.log.Warn("training run failed", append(fields, logger.String("error", run.Error))...)
	} else {
		uc.log.Info("training run", append(fields, logger.Float64("accuracy", run.Metrics.Accuracy))...)
	}
	return run
}

// invalidate drops cached predictions the new artifact supersedes.
func (uc *TrainingUseCase) invalidate(ctx context.Context, t trainTask) {
	if uc.cache == nil {
		return
	}
	pattern := cache.BuildPattern(predictionCachePrefix + ":")
	if t.scope != "" {
		pattern = cache.BuildPattern(cache.GenerateKeyWithParams(predictionCachePrefix, t.scope, t.class))
	}
	if err := uc.cache.DeleteByPattern(ctx, pattern); err != nil {
		uc.log.Warn("invalidate prediction cache", logger.String("pattern", pattern), logger.Error(err))
	}
}

func (uc *TrainingUseCase) resolveClasses(in []models.PredictionClass) ([]models.PredictionClass, error) {
	profiles := uc.trainer.Profiles()
	if len(in) == 0 {
		return profiles.Classes(), nil
	}
	for _, c := range in {
		if _, err := profiles.Get(c); err != nil {
			return nil, err
		}
	}
	return in, nil
}

func (uc *TrainingUseCase) resolveSymbols(ctx context.Context, in []string) ([]string, error) {
	out := in
	if len(out) == 0 {
		out = uc.cfg.Symbols
	}
	if len(out) == 0 {
		syms, err := uc.candles.Symbols(ctx)
		if err != nil {
			return nil, fmt.Errorf("list symbols: %w", err)
		}
		out = syms
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no symbols to train on", models.ErrInsufficientData)
	}
	seen := make(map[string]struct{}, len(out))
	uniq := make([]string, 0, len(out))
	for _, s := range out {
		if _, dup := seen[s]; dup || s == "" {
			continue
		}
		seen[s] = struct{}{}
		uniq = append(uniq, s)
	}
	sort.Strings(uniq)
	return uniq, nil
}

// Models lists persisted artifacts for class.
func (uc *TrainingUseCase) Models(ctx context.Context, class models.PredictionClass) ([]models.ArtifactInfo, error) {
	if _, err := uc.trainer.Profiles().Get(class); err != nil {
		return nil, err
	}
	if uc.artifacts == nil {
		return nil, errors.New("artifact listing not configured")
	}
	return uc.artifacts.List(ctx, class)
}

// Runs returns recent training runs for class.
func (uc *TrainingUseCase) Runs(ctx context.Context, class models.PredictionClass, limit int) ([]models.TrainingRun, error) {
	if uc.runs == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	return uc.runs.Runs(ctx, class, limit)
}

func scopeKey(scope string) string {
	if scope == "" {
		return "_pooled"
	}
	return scope
}

func sortedKeys(m map[string][]models.Candle) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Profiles exposes the horizon profiles training resolves classes against.
func (uc *TrainingUseCase) Profiles() *models.Profiles { return uc.trainer.Profiles() }
