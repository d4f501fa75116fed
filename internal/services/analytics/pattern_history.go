package analytics

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"

	"github.com/shopspring/decimal"
)

const patternRecentTrades = 100

// PatternHistory tracks resolved trades per pattern kind and persists the
// whole table after every record.
type PatternHistory struct {
	mu    sync.RWMutex
	store domrepo.DocumentStore
	saves domrepo.SaveSequencer
	stats map[models.PatternKind]*models.PatternStats
}

func NewPatternHistory(store domrepo.DocumentStore) *PatternHistory {
	return &PatternHistory{
		store: store,
		stats: make(map[models.PatternKind]*models.PatternStats),
	}
}

// Load replaces in-memory state with the stored table. A missing document is
// an empty history; an unreadable one is too, reported as a
// *repository.PersistError.
func (h *PatternHistory) Load(ctx context.Context) error {
	if h.store == nil {
		return nil
	}
	var stored map[models.PatternKind]*models.PatternStats
	if err := h.store.Load(ctx, domrepo.KeyPatternHistory, &stored); err != nil {
		if errors.Is(err, domrepo.ErrDocumentNotFound) {
			return nil
		}
		h.mu.Lock()
		h.stats = make(map[models.PatternKind]*models.PatternStats)
		h.mu.Unlock()
		return &domrepo.PersistError{Key: domrepo.KeyPatternHistory, Err: fmt.Errorf("load: %w", err)}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.stats = make(map[models.PatternKind]*models.PatternStats, len(stored))
	for k, s := range stored {
		if s == nil {
			continue
		}
		s.Kind = k
		h.stats[k] = s
	}
	return nil
}

// Record folds one trade into the stats of kind. A returned
// *repository.PersistError means the in-memory update was kept.
func (h *PatternHistory) Record(ctx context.Context, kind models.PatternKind, result models.TradeResult, profit decimal.Decimal, quality int, at time.Time) error {
	if kind == "" {
		return nil
	}
	if !result.IsValid() {
		return fmt.Errorf("invalid trade result %q", result)
	}

	h.mu.Lock()
	s, ok := h.stats[kind]
	if !ok {
		s = &models.PatternStats{Kind: kind}
		h.stats[kind] = s
	}
	s.Trades++
	if result == models.ResultWin {
		s.Wins++
	} else {
		s.Losses++
	}
	s.TotalProfit = s.TotalProfit.Add(profit)
	s.AvgQuality += (float64(quality) - s.AvgQuality) / float64(s.Trades)
	s.Recent = append(s.Recent, models.PatternTrade{Timestamp: at, Result: result, Profit: profit, Quality: quality})
	if len(s.Recent) > patternRecentTrades {
		s.Recent = append([]models.PatternTrade(nil), s.Recent[len(s.Recent)-patternRecentTrades:]...)
	}
	snapshot, version := h.snapshotLocked(), h.saves.Next()
	h.mu.Unlock()

	return h.persist(ctx, snapshot, version)
}

func (h *PatternHistory) persist(ctx context.Context, snapshot map[models.PatternKind]models.PatternStats, version uint64) error {
	if h.store == nil {
		return nil
	}
	if err := h.saves.Save(ctx, h.store, domrepo.KeyPatternHistory, version, snapshot); err != nil {
		return &domrepo.PersistError{Key: domrepo.KeyPatternHistory, Err: err}
	}
	return nil
}

func (h *PatternHistory) snapshotLocked() map[models.PatternKind]models.PatternStats {
	out := make(map[models.PatternKind]models.PatternStats, len(h.stats))
	for k, s := range h.stats {
		c := *s
		c.Recent = append([]models.PatternTrade(nil), s.Recent...)
		out[k] = c
	}
	return out
}

// Performance returns the stats for one kind.
func (h *PatternHistory) Performance(kind models.PatternKind) (models.PatternStats, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.stats[kind]
	if !ok {
		return models.PatternStats{Kind: kind}, false
	}
	c := *s
	c.Recent = append([]models.PatternTrade(nil), s.Recent...)
	return c, true
}

// All returns the stats of every kind seen, ordered by kind.
func (h *PatternHistory) All() []models.PatternStats {
	h.mu.RLock()
	out := make([]models.PatternStats, 0, len(h.stats))
	for _, s := range h.stats {
		c := *s
		c.Recent = nil
		out = append(out, c)
	}
	h.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}
