package performance

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC)

type memStore struct {
	mu   sync.Mutex
	docs map[string][]byte
	fail bool
	load error
}

func newMemStore() *memStore { return &memStore{docs: map[string][]byte{}} }

func (m *memStore) Load(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.load != nil {
		return m.load
	}
	b, ok := m.docs[key]
	if !ok {
		return domrepo.ErrDocumentNotFound
	}
	return json.Unmarshal(b, dest)
}

func (m *memStore) Save(_ context.Context, key string, v interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("disk full")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.docs[key] = b
	return nil
}

// gatedStore holds the first Save until release is closed.
type gatedStore struct {
	*memStore
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedStore() *gatedStore {
	return &gatedStore{memStore: newMemStore(), entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedStore) Save(ctx context.Context, key string, v interface{}) error {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return g.memStore.Save(ctx, key, v)
}

type journal struct {
	recs []models.PerformanceRecord
	err  error
}

func (j *journal) Append(_ context.Context, r *models.PerformanceRecord) error {
	if j.err != nil {
		return j.err
	}
	j.recs = append(j.recs, *r)
	return nil
}

func (j *journal) Close() error { return nil }

func rec(result models.TradeResult, conf float64, at time.Time) models.PerformanceRecord {
	profit := decimal.NewFromInt(8)
	if result == models.ResultLoss {
		profit = decimal.NewFromInt(-10)
	}
	return models.PerformanceRecord{
		Timestamp:  at,
		Asset:      "EURUSD_otc",
		Action:     models.ActionCall,
		Result:     result,
		Profit:     profit,
		Confidence: conf,
		StrategyID: "rsi_oversold_scalp",
		Regime:     models.RegimeRanging,
	}
}

func record(t *testing.T, c *Calibrator, results ...models.TradeResult) {
	t.Helper()
	for i, r := range results {
		_, err := c.Record(context.Background(), rec(r, 73, t0.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}
}

func TestBucket(t *testing.T) {
	cases := map[float64]int{0: 0, 9.99: 0, 10: 10, 73: 70, 99.9: 90, 100: 100, 150: 100, -5: 0}
	for in, want := range cases {
		assert.Equal(t, want, Bucket(in), "%v", in)
	}
}

func TestCalibratedConfidence(t *testing.T) {
	c := NewCalibrator(DefaultConfig(), nil, nil)
	record(t, c, models.ResultWin, models.ResultLoss, models.ResultWin, models.ResultLoss)
	assert.InDelta(t, 65.7, c.CalibratedConfidence(73), 1e-9, "under-sampled bucket is discounted")

	record(t, c, models.ResultLoss)
	assert.InDelta(t, 40.0, c.CalibratedConfidence(73), 1e-9)
	assert.InDelta(t, 40.0, c.CalibratedConfidence(79.9), 1e-9)
	assert.InDelta(t, 72.0, c.CalibratedConfidence(80), 1e-9)
}

func TestShouldTradeNow_LossStreak(t *testing.T) {
	c := NewCalibrator(DefaultConfig(), nil, nil)
	record(t, c, models.ResultWin, models.ResultLoss, models.ResultLoss, models.ResultLoss, models.ResultLoss)
	ok, _ := c.ShouldTradeNow(t0)
	assert.True(t, ok)

	record(t, c, models.ResultLoss)
	ok, reason := c.ShouldTradeNow(t0)
	assert.False(t, ok)
	assert.Contains(t, reason, "5 consecutive losses")

	n, result := c.Streak()
	assert.Equal(t, 5, n)
	assert.Equal(t, models.ResultLoss, result)
}

func TestShouldTradeNow_PoorHour(t *testing.T) {
	c := NewCalibrator(DefaultConfig(), nil, nil)
	// 20 trades in the 14:00 hour at 50%, alternating so no streak forms.
	for i := 0; i < 20; i++ {
		r := models.ResultWin
		if i%2 == 1 {
			r = models.ResultLoss
		}
		_, err := c.Record(context.Background(), rec(r, 60, t0.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}

	ok, reason := c.ShouldTradeNow(t0.Add(30 * time.Minute))
	assert.False(t, ok)
	assert.Contains(t, reason, "hour 14")

	ok, _ = c.ShouldTradeNow(t0.Add(time.Hour))
	assert.True(t, ok, "other hours have no samples")
}

func TestRecord_AggregatesMatchRecords(t *testing.T) {
	c := NewCalibrator(DefaultConfig(), nil, nil)
	_, err := c.Record(context.Background(), rec(models.ResultWin, 85, t0))
	require.NoError(t, err)
	_, err = c.Record(context.Background(), rec(models.ResultLoss, 62, t0.Add(26*time.Hour)))
	require.NoError(t, err)
	other := rec(models.ResultWin, 91, t0)
	other.StrategyID, other.Regime = "", ""
	_, err = c.Record(context.Background(), other)
	require.NoError(t, err)

	count := func(m map[int]models.OutcomeStats) int {
		n := 0
		for _, s := range m {
			assert.Equal(t, s.Trades, s.Wins+s.Losses)
			n += s.Trades
		}
		return n
	}
	assert.Equal(t, 3, count(c.HourlyPerformance()))
	assert.Equal(t, 3, count(c.BucketPerformance()))
	assert.Len(t, c.DailyPerformance(), 2)

	s := c.StrategyPerformance("rsi_oversold_scalp")
	assert.Equal(t, 2, s.Trades)
	assert.True(t, s.Profit.Equal(decimal.NewFromInt(-2)))
	assert.Equal(t, 2, c.RegimePerformance()[models.RegimeRanging].Trades)
	assert.Zero(t, c.StrategyPerformance("unknown").Trades)

	_, err = c.Record(context.Background(), models.PerformanceRecord{Result: "draw"})
	assert.Error(t, err)
	assert.Len(t, c.RecentRecords(0), 3)
}

func TestRecord_AssignsIDAndJournals(t *testing.T) {
	j := &journal{}
	c := NewCalibrator(DefaultConfig(), nil, j)
	r, err := c.Record(context.Background(), rec(models.ResultWin, 70, time.Time{}))
	require.NoError(t, err)
	assert.NotEmpty(t, r.ID)
	assert.False(t, r.Timestamp.IsZero())
	require.Len(t, j.recs, 1)
	assert.Equal(t, r.ID, j.recs[0].ID)
}

func TestRecord_PersistFailuresAreWarnings(t *testing.T) {
	store := newMemStore()
	store.fail = true
	c := NewCalibrator(DefaultConfig(), store, &journal{err: errors.New("clickhouse down")})

	_, err := c.Record(context.Background(), rec(models.ResultWin, 70, t0))
	require.Error(t, err)
	assert.True(t, domrepo.IsPersistError(err))
	assert.Len(t, c.RecentRecords(10), 1)
}

func TestLoadRebuildsAggregates(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()

	empty := NewCalibrator(DefaultConfig(), store, nil)
	require.NoError(t, empty.Load(ctx))

	c := NewCalibrator(DefaultConfig(), store, nil)
	record(t, c, models.ResultWin, models.ResultWin, models.ResultLoss, models.ResultWin, models.ResultWin)

	restored := NewCalibrator(DefaultConfig(), store, nil)
	require.NoError(t, restored.Load(ctx))
	want, got := c.Summary(), restored.Summary()
	assert.Equal(t, want.TotalTrades, got.TotalTrades)
	assert.Equal(t, want.Wins, got.Wins)
	assert.Equal(t, want.CurrentStreak, got.CurrentStreak)
	assert.True(t, want.TotalProfit.Equal(got.TotalProfit))
	assert.Equal(t, want.Buckets, got.Buckets)
	assert.InDelta(t, 80.0, restored.CalibratedConfidence(75), 1e-9)
}

func TestSummaryAndBestHours(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BestHoursMinTrades = 2
	c := NewCalibrator(cfg, nil, nil)
	at := func(h int) time.Time { return time.Date(2024, 3, 1, h, 0, 0, 0, time.UTC) }
	for _, r := range []struct {
		hour   int
		result models.TradeResult
	}{
		{9, models.ResultWin}, {9, models.ResultWin},
		{10, models.ResultWin}, {10, models.ResultLoss},
		{11, models.ResultWin},
		{12, models.ResultLoss}, {12, models.ResultLoss},
	} {
		_, err := c.Record(context.Background(), rec(r.result, 70, at(r.hour)))
		require.NoError(t, err)
	}

	s := c.Summary()
	assert.Equal(t, 7, s.TotalTrades)
	assert.Equal(t, 3, s.Losses)
	assert.InDelta(t, 57.14, s.WinRate, 0.01)
	assert.True(t, s.TotalProfit.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, 2, s.CurrentStreak)
	assert.Equal(t, models.ResultLoss, s.StreakResult)

	var hours []int
	for _, h := range s.BestHours {
		hours = append(hours, h.Hour)
	}
	assert.Equal(t, []int{9, 10, 12}, hours)
	assert.InDelta(t, 57.14, s.Buckets[70], 0.01)
}

func TestLoad_UnreadableStoreStartsEmpty(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.load = errors.New("connection refused")
	c := NewCalibrator(DefaultConfig(), store, nil)

	err := c.Load(ctx)
	require.Error(t, err)
	assert.True(t, domrepo.IsPersistError(err))
	assert.ErrorContains(t, err, "connection refused")
	assert.Empty(t, c.RecentRecords(10))

	_, err = c.Record(ctx, rec(models.ResultWin, 70, t0))
	require.NoError(t, err)
	assert.Equal(t, 1, c.Summary().TotalTrades)
}

func TestRecord_ConcurrentSavesKeepNewestSnapshot(t *testing.T) {
	ctx := context.Background()
	store := newGatedStore()
	c := NewCalibrator(DefaultConfig(), store, nil)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = c.Record(ctx, rec(models.ResultWin, 70, t0))
	}()
	<-store.entered
	go func() {
		defer wg.Done()
		_, _ = c.Record(ctx, rec(models.ResultLoss, 70, t0))
	}()
	require.Eventually(t, func() bool { return len(c.RecentRecords(10)) == 2 }, time.Second, time.Millisecond)
	close(store.release)
	wg.Wait()

	restored := NewCalibrator(DefaultConfig(), store.memStore, nil)
	require.NoError(t, restored.Load(ctx))
	assert.Len(t, restored.RecentRecords(10), 2)
}
