package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/pkg/cache"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type document struct {
	Names []string `json:"names"`
	Count int      `json:"count"`
}

func exerciseStore(t *testing.T, store domrepo.DocumentStore) {
	t.Helper()
	ctx := context.Background()

	var got document
	require.ErrorIs(t, store.Load(ctx, domrepo.KeyStrategies, &got), domrepo.ErrDocumentNotFound)

	require.NoError(t, store.Save(ctx, domrepo.KeyStrategies, document{Names: []string{"scalp"}, Count: 1}))
	require.NoError(t, store.Save(ctx, domrepo.KeyStrategies, document{Names: []string{"scalp", "breakout"}, Count: 2}))
	require.NoError(t, store.Load(ctx, domrepo.KeyStrategies, &got))
	assert.Equal(t, document{Names: []string{"scalp", "breakout"}, Count: 2}, got)

	require.ErrorIs(t, store.Load(ctx, domrepo.KeyPerformance, &got), domrepo.ErrDocumentNotFound)
}

func TestCacheDocumentStore(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	exerciseStore(t, NewCacheDocumentStore(mc))
}

func TestCacheDocumentStore_WaitsForLock(t *testing.T) {
	ctx := context.Background()
	mc := cache.NewMemoryCache()
	defer mc.Close()
	store := NewCacheDocumentStore(mc)

	lock := cache.Key(lockPrefix, docPrefix, domrepo.KeyStrategies)
	ok, err := mc.TryLock(ctx, lock, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	err = store.Save(short, domrepo.KeyStrategies, document{Count: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	require.NoError(t, mc.Unlock(ctx, lock))
	require.NoError(t, store.Save(ctx, domrepo.KeyStrategies, document{Count: 1}))
	exists, _ := mc.Exists(ctx, lock)
	assert.False(t, exists, "lock released after save")
}

func TestSQLiteDocumentStore(t *testing.T) {
	store, err := NewSQLiteDocumentStore(context.Background(), ":memory:")
	require.NoError(t, err)
	defer store.Close()
	exerciseStore(t, store)
}

func TestClickHouseTradeJournal_Append(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()
	_, err = db.ExecContext(ctx, `CREATE TABLE journal (
		id TEXT, ts TIMESTAMP, asset TEXT, action TEXT, result TEXT, profit REAL,
		confidence REAL, strategy_id TEXT, regime TEXT, pattern TEXT, indicators TEXT)`)
	require.NoError(t, err)

	j := NewClickHouseTradeJournal(db, "journal")
	rec := &models.PerformanceRecord{
		ID:         "t-1",
		Timestamp:  time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC),
		Asset:      "EURUSD",
		Action:     models.ActionCall,
		Result:     models.ResultWin,
		Profit:     decimal.NewFromFloat(8.5),
		Confidence: 72,
		StrategyID: "rsi_oversold_scalp",
		Regime:     models.RegimeRanging,
		Indicators: models.IndicatorSnapshot{"rsi": models.Num(28)},
	}
	require.NoError(t, j.Append(ctx, rec))
	require.NoError(t, j.Close())

	var (
		asset, result, indicators string
		profit                    float64
	)
	require.NoError(t, db.QueryRowContext(ctx, "SELECT asset, result, profit, indicators FROM journal WHERE id = ?", "t-1").
		Scan(&asset, &result, &profit, &indicators))
	assert.Equal(t, "EURUSD", asset)
	assert.Equal(t, "win", result)
	assert.Equal(t, 8.5, profit)
	var snap map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(indicators), &snap))
	assert.Equal(t, 28.0, snap["rsi"])
}

func TestTradeJournalSchema(t *testing.T) {
	stmts := TradeJournalSchema("signalforge.trade_journal")
	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0], "CREATE TABLE IF NOT EXISTS signalforge.trade_journal")
}

type fakeProducer struct {
	topic  string
	key    []byte
	value  interface{}
	err    error
	closed bool
}

func (f *fakeProducer) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	f.topic, f.key, f.value = topic, key, value
	return f.err
}

func (f *fakeProducer) Close() error {
	f.closed = true
	return nil
}

func TestKafkaDecisionPublisher(t *testing.T) {
	p := &fakeProducer{}
	pub := NewKafkaDecisionPublisher(p, "decisions")
	d := &models.Decision{Asset: "EURUSD", Status: models.DecisionSignal}

	require.NoError(t, pub.Publish(context.Background(), d))
	assert.Equal(t, "decisions", p.topic)
	assert.Equal(t, []byte("EURUSD"), p.key)
	assert.Same(t, d, p.value)

	p.err = errors.New("broker down")
	err := pub.Publish(context.Background(), d)
	require.Error(t, err)
	assert.ErrorIs(t, err, p.err)

	require.NoError(t, pub.Close())
	assert.True(t, p.closed)
}
