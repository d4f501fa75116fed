package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
)

// TradeJournalSchema returns the ClickHouse DDL for the trade journal table.
func TradeJournalSchema(table string) []string {
	return []string{fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id          String,
			ts          DateTime64(3, 'UTC'),
			asset       LowCardinality(String),
			action      LowCardinality(String),
			result      LowCardinality(String),
			profit      Float64,
			confidence  Float64,
			strategy_id String,
			regime      LowCardinality(String),
			pattern     LowCardinality(String),
			indicators  String
		) ENGINE = MergeTree
		ORDER BY (asset, ts)`, table)}
}

// ClickHouseTradeJournal appends resolved trades to a ClickHouse table.
type ClickHouseTradeJournal struct {
	db    *sql.DB
	table string
}

func NewClickHouseTradeJournal(db *sql.DB, table string) *ClickHouseTradeJournal {
	return &ClickHouseTradeJournal{db: db, table: table}
}

func (j *ClickHouseTradeJournal) Append(ctx context.Context, rec *models.PerformanceRecord) error {
	indicators := "{}"
	if len(rec.Indicators) > 0 {
		b, err := json.Marshal(rec.Indicators)
		if err != nil {
			return fmt.Errorf("encode indicators: %w", err)
		}
		indicators = string(b)
	}
	q := fmt.Sprintf(`INSERT INTO %s (id, ts, asset, action, result, profit, confidence, strategy_id, regime, pattern, indicators)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, j.table)
	_, err := j.db.ExecContext(ctx, q,
		rec.ID,
		rec.Timestamp.UTC(),
		rec.Asset,
		string(rec.Action),
		string(rec.Result),
		rec.Profit.InexactFloat64(),
		rec.Confidence,
		rec.StrategyID,
		string(rec.Regime),
		string(rec.Pattern),
		indicators,
	)
	if err != nil {
		return fmt.Errorf("append trade %s: %w", rec.ID, err)
	}
	return nil
}

// Close is a no-op; the connection pool belongs to pkg/clickhouse.Client.
func (j *ClickHouseTradeJournal) Close() error { return nil }

var _ domrepo.TradeJournal = (*ClickHouseTradeJournal)(nil)
