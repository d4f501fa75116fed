package analytics

import (
	"context"
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

func TestPatternHistory_Record(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	h := NewPatternHistory(store)

	require.NoError(t, h.Record(ctx, models.PatternHammer, models.ResultWin, decimal.NewFromFloat(8.5), 80, t0))
	require.NoError(t, h.Record(ctx, models.PatternHammer, models.ResultLoss, decimal.NewFromInt(-10), 60, t0))
	require.NoError(t, h.Record(ctx, models.PatternDoji, models.ResultWin, decimal.NewFromInt(8), 50, t0))

	s, ok := h.Performance(models.PatternHammer)
	require.True(t, ok)
	assert.Equal(t, 2, s.Trades)
	assert.Equal(t, 1, s.Wins)
	assert.Equal(t, 1, s.Losses)
	assert.Equal(t, 50.0, s.WinRate())
	assert.Equal(t, 70.0, s.AvgQuality)
	assert.True(t, s.TotalProfit.Equal(decimal.NewFromFloat(-1.5)))
	assert.Len(t, s.Recent, 2)
	assert.Equal(t, 3, store.saves)

	all := h.All()
	require.Len(t, all, 2)
	assert.Equal(t, models.PatternDoji, all[0].Kind)
	assert.Nil(t, all[0].Recent)

	_, ok = h.Performance(models.PatternShootingStar)
	assert.False(t, ok)
}

func TestPatternHistory_IgnoresEmptyKindAndRejectsBadResult(t *testing.T) {
	h := NewPatternHistory(nil)
	assert.NoError(t, h.Record(context.Background(), "", models.ResultWin, decimal.Zero, 50, t0))
	assert.Error(t, h.Record(context.Background(), models.PatternDoji, "draw", decimal.Zero, 50, t0))
	assert.Empty(t, h.All())
}

func TestPatternHistory_RecentIsBounded(t *testing.T) {
	h := NewPatternHistory(nil)
	for i := 0; i < patternRecentTrades+20; i++ {
		require.NoError(t, h.Record(context.Background(), models.PatternHammer, models.ResultWin, decimal.NewFromInt(1), 70, t0))
	}
	s, _ := h.Performance(models.PatternHammer)
	assert.Equal(t, patternRecentTrades+20, s.Trades)
	assert.Len(t, s.Recent, patternRecentTrades)
}

func TestPatternHistory_PersistFailureKeepsMemory(t *testing.T) {
	store := newMemStore()
	store.fail = true
	h := NewPatternHistory(store)

	err := h.Record(context.Background(), models.PatternHammer, models.ResultWin, decimal.NewFromInt(8), 75, t0)
	require.Error(t, err)
	assert.True(t, domrepo.IsPersistError(err))

	s, ok := h.Performance(models.PatternHammer)
	require.True(t, ok)
	assert.Equal(t, 1, s.Trades)
}

func TestPatternHistory_LoadRestores(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()

	empty := NewPatternHistory(store)
	require.NoError(t, empty.Load(ctx))
	assert.Empty(t, empty.All())

	h := NewPatternHistory(store)
	require.NoError(t, h.Record(ctx, models.PatternBullishEngulfing, models.ResultWin, decimal.NewFromInt(9), 90, t0))

	restored := NewPatternHistory(store)
	require.NoError(t, restored.Load(ctx))
	s, ok := restored.Performance(models.PatternBullishEngulfing)
	require.True(t, ok)
	assert.Equal(t, models.PatternBullishEngulfing, s.Kind)
	assert.Equal(t, 1, s.Wins)
	assert.Equal(t, 90.0, s.AvgQuality)
}

func TestPatternHistory_UnreadableStoreStartsEmpty(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.load = errors.New("connection refused")
	h := NewPatternHistory(store)

	err := h.Load(ctx)
	require.Error(t, err)
	assert.True(t, domrepo.IsPersistError(err))
	assert.Empty(t, h.All())
	require.NoError(t, h.Record(ctx, models.PatternDoji, models.ResultWin, decimal.NewFromInt(8), 50, t0))
	assert.Len(t, h.All(), 1)
}

func TestPatternHistory_ConcurrentSavesKeepNewestSnapshot(t *testing.T) {
	ctx := context.Background()
	store := newGatedStore()
	h := NewPatternHistory(store)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = h.Record(ctx, models.PatternHammer, models.ResultWin, decimal.NewFromInt(8), 70, t0)
	}()
	<-store.entered
	go func() {
		defer wg.Done()
		_ = h.Record(ctx, models.PatternHammer, models.ResultLoss, decimal.NewFromInt(-10), 70, t0)
	}()
	require.Eventually(t, func() bool {
		s, _ := h.Performance(models.PatternHammer)
		return s.Trades == 2
	}, time.Second, time.Millisecond)
	close(store.release)
	wg.Wait()

	restored := NewPatternHistory(store.memStore)
	require.NoError(t, restored.Load(ctx))
	s, ok := restored.Performance(models.PatternHammer)
	require.True(t, ok)
	assert.Equal(t, 2, s.Trades)
}
