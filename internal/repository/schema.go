package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Schema returns the idempotent DDL for database db.
func Schema(db string) []string {
	return []string{
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.daily_candles (
            date        Date,
            symbol      LowCardinality(String),
            open        Float64,
            high        Float64,
            low         Float64,
            close       Float64,
            volume      Float64,
            ingested_at DateTime DEFAULT now()
        ) ENGINE = ReplacingMergeTree(ingested_at)
        ORDER BY (symbol, date)`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.training_runs (
            run_id        String,
            class         LowCardinality(String),
            scope         String,
            symbols       Array(String),
            started_at    DateTime64(3),
            finished_at   DateTime64(3),
            status        LowCardinality(String),
            error         String,
            artifact_path String,
            metrics       String
        ) ENGINE = MergeTree
        ORDER BY (class, started_at)`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.predictions (
            symbol           LowCardinality(String),
            class            LowCardinality(String),
            prediction_date  Date,
            target_date      Date,
            direction        LowCardinality(String),
            confidence       Float64,
            predicted_return Float64,
            current_price    Float64,
            target_price     Float64,
            stop_loss        Float64,
            entry_low        Float64,
            entry_high       Float64,
            growth_pct       Float64,
            horizon_days     UInt16,
            artifact_id      String,
            model_name       String,
            model_version    String,
            status           LowCardinality(String),
            created_at       DateTime DEFAULT now()
        ) ENGINE = ReplacingMergeTree(created_at)
        ORDER BY (symbol, class, prediction_date)`, db),
	}
}

const insertChunk = 2000

// insertRows writes rows with multi-row VALUES statements of at most insertChunk rows.
func insertRows(ctx context.Context, db *sql.DB, head string, width, n int, row func(i int) []any) error {
	if n == 0 {
		return nil
	}
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", width), ", ") + ")"
	for start := 0; start < n; start += insertChunk {
		end := min(start+insertChunk, n)
		values := make([]string, 0, end-start)
		args := make([]any, 0, (end-start)*width)
		for i := start; i < end; i++ {
			values = append(values, tuple)
			args = append(args, row(i)...)
		}
		q := head + " VALUES " + strings.Join(values, ",")
		if _, err := db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert rows %d-%d: %w", start, end, err)
		}
	}
	return nil
}
