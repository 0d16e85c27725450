package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"StockPred/internal/domain/models"
	domrepo "StockPred/internal/domain/repository"
	pkgch "StockPred/pkg/clickhouse"
	applogger "StockPred/pkg/logger"
)

// CHTrainingStore records training runs and stamped predictions in ClickHouse.
type CHTrainingStore struct {
	db          *sql.DB
	runs        string
	predictions string
	l           *applogger.Logger
}

var (
	_ domrepo.TrainingStore   = (*CHTrainingStore)(nil)
	_ domrepo.PredictionStore = (*CHTrainingStore)(nil)
)

func NewCHTrainingStore(ch *pkgch.Client, l *applogger.Logger) *CHTrainingStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHTrainingStore{
		db:          ch.DB(),
		runs:        ch.Database() + ".training_runs",
		predictions: ch.Database() + ".predictions",
		l:           l.With("training_store"),
	}
}

func (s *CHTrainingStore) RecordRun(ctx context.Context, run models.TrainingRun) error {
	metrics, err := json.Marshal(run.Metrics)
	if err != nil {
		return fmt.Errorf("encode metrics: %w", err)
	}
	q := fmt.Sprintf(`INSERT INTO %s (run_id, class, scope, symbols, started_at, finished_at, status, error, artifact_path, metrics)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.runs)
	_, err = s.db.ExecContext(ctx, q,
		run.RunID, string(run.Class), run.Scope, run.Symbols,
		run.StartedAt, run.FinishedAt, run.Status, run.Error, run.ArtifactPath, string(metrics),
	)
	if err != nil {
		s.l.Error("record run failed", applogger.String("run_id", run.RunID), applogger.Error(err))
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

func (s *CHTrainingStore) Runs(ctx context.Context, class models.PredictionClass, limit int) ([]models.TrainingRun, error) {
	q := fmt.Sprintf(`
        SELECT run_id, class, scope, symbols, started_at, finished_at, status, error, artifact_path, metrics
        FROM %s
        WHERE class = ?
        ORDER BY started_at DESC
        LIMIT ?`, s.runs)
	rows, err := s.db.QueryContext(ctx, q, string(class), limit)
	if err != nil {
		return nil, fmt.Errorf("runs: %w", err)
	}
	defer rows.Close()

	var out []models.TrainingRun
	for rows.Next() {
		var (
			r       models.TrainingRun
			cls     string
			metrics string
		)
		if err := rows.Scan(&r.RunID, &cls, &r.Scope, &r.Symbols, &r.StartedAt, &r.FinishedAt,
			&r.Status, &r.Error, &r.ArtifactPath, &metrics); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Class = models.PredictionClass(cls)
		if metrics != "" {
			if err := json.Unmarshal([]byte(metrics), &r.Metrics); err != nil {
				s.l.Warn("bad metrics payload", applogger.String("run_id", r.RunID), applogger.Error(err))
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *CHTrainingStore) SavePredictions(ctx context.Context, ps []models.Prediction) error {
	head := fmt.Sprintf(`INSERT INTO %s (symbol, class, prediction_date, target_date, direction, confidence,
        predicted_return, current_price, target_price, stop_loss, entry_low, entry_high, growth_pct,
        horizon_days, artifact_id, model_name, model_version, status)`, s.predictions)
	err := insertRows(ctx, s.db, head, 18, len(ps), func(i int) []any {
		p := ps[i]
		return []any{
			p.Symbol, string(p.Class), p.PredictionDate, p.TargetDate, string(p.Direction), p.Confidence,
			p.PredictedReturn, p.CurrentPrice, p.TargetPrice, p.StopLoss, p.EntryPriceLow, p.EntryPriceHigh,
			p.PredictedGrowthPercent, uint16(p.HorizonDays), p.ArtifactID, p.ModelName, p.ModelVersion, p.Status,
		}
	})
	if err != nil {
		return fmt.Errorf("save predictions: %w", err)
	}
	return nil
}

const predictionColumns = `symbol, class, prediction_date, target_date, direction, confidence, predicted_return,
               current_price, target_price, stop_loss, entry_low, entry_high, growth_pct, horizon_days,
               artifact_id, model_name, model_version, status`

// LatestPredictions returns the most recent prediction date's rows for symbol, one per class.
func (s *CHTrainingStore) LatestPredictions(ctx context.Context, symbol string) ([]models.Prediction, error) {
	q := fmt.Sprintf(`
        SELECT %[2]s
        FROM %[1]s FINAL
        WHERE symbol = ? AND prediction_date = (SELECT max(prediction_date) FROM %[1]s WHERE symbol = ?)
        ORDER BY class`, s.predictions, predictionColumns)
	rows, err := s.db.QueryContext(ctx, q, symbol, symbol)
	if err != nil {
		return nil, fmt.Errorf("latest predictions: %w", err)
	}
	return scanPredictions(rows)
}

func (s *CHTrainingStore) ListPredictions(ctx context.Context, f models.PredictionFilter) ([]models.Prediction, error) {
	q, args := listPredictionsQuery(s.predictions, f)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	return scanPredictions(rows)
}

func listPredictionsQuery(table string, f models.PredictionFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		where = append(where, cond)
		args = append(args, v)
	}
	if f.Symbol != "" {
		add("symbol = ?", strings.ToUpper(f.Symbol))
	}
	if f.Class != "" {
		add("class = ?", f.Class)
	}
	if f.Direction != "" {
		add("direction = ?", f.Direction)
	}
	if f.MinConfidence > 0 {
		add("confidence >= ?", f.MinConfidence)
	}
	if f.Status != "" {
		add("status = ?", f.Status)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s\n        FROM %s FINAL", predictionColumns, table)
	if len(where) > 0 {
		b.WriteString("\n        WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString("\n        ORDER BY confidence DESC, prediction_date DESC\n        LIMIT ?")

	limit := f.Limit
	if limit <= 0 {
		limit = defaultPredictionLimit
	}
	return b.String(), append(args, limit)
}

const defaultPredictionLimit = 5000

func scanPredictions(rows *sql.Rows) ([]models.Prediction, error) {
	defer rows.Close()

	var out []models.Prediction
	for rows.Next() {
		var (
			p        models.Prediction
			cls, dir string
			horizon  uint16
		)
		if err := rows.Scan(&p.Symbol, &cls, &p.PredictionDate, &p.TargetDate, &dir, &p.Confidence,
			&p.PredictedReturn, &p.CurrentPrice, &p.TargetPrice, &p.StopLoss, &p.EntryPriceLow,
			&p.EntryPriceHigh, &p.PredictedGrowthPercent, &horizon, &p.ArtifactID, &p.ModelName,
			&p.ModelVersion, &p.Status); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		p.Class = models.PredictionClass(cls)
		p.Direction = models.Direction(dir)
		p.HorizonDays = int(horizon)
		out = append(out, p)
	}
	return out, rows.Err()
}
