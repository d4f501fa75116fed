package performance

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	domsvc "SignalForge/internal/domain/service"

	"github.com/google/uuid"
)

const journalKey = "trade_journal"

// Config holds calibration and veto thresholds.
type Config struct {
	MinSamples          int     `yaml:"min_samples" default:"5"`
	UncertaintyDiscount float64 `yaml:"uncertainty_discount" default:"0.9"`
	MaxLossStreak       int     `yaml:"max_loss_streak" default:"5"`
	MinHourWinRate      float64 `yaml:"min_hour_win_rate" default:"55"`
	HourMinSamples      int     `yaml:"hour_min_samples" default:"20"`
	BestHoursMinTrades  int     `yaml:"best_hours_min_trades" default:"10"`
}

func DefaultConfig() Config {
	return Config{
		MinSamples:          5,
		UncertaintyDiscount: 0.9,
		MaxLossStreak:       5,
		MinHourWinRate:      55,
		HourMinSamples:      20,
		BestHoursMinTrades:  10,
	}
}

// document is the persisted form. Aggregates are rebuilt from records on load.
type document struct {
	Records []models.PerformanceRecord `json:"records"`
}

// Calibrator keeps every resolved trade plus hourly, confidence bucket,
// strategy, regime and daily aggregates.
type Calibrator struct {
	cfg     Config
	store   domrepo.DocumentStore
	journal domrepo.TradeJournal
	saves   domrepo.SaveSequencer

	mu         sync.RWMutex
	records    []models.PerformanceRecord
	hourly     map[int]*models.OutcomeStats
	buckets    map[int]*models.OutcomeStats
	strategies map[string]*models.OutcomeStats
	regimes    map[models.Regime]*models.OutcomeStats
	daily      map[string]*models.OutcomeStats
}

// NewCalibrator accepts a nil store or journal.
func NewCalibrator(cfg Config, store domrepo.DocumentStore, journal domrepo.TradeJournal) *Calibrator {
	c := &Calibrator{cfg: cfg, store: store, journal: journal}
	c.reset()
	return c
}

func (c *Calibrator) reset() {
	c.records = nil
	c.hourly = make(map[int]*models.OutcomeStats)
	c.buckets = make(map[int]*models.OutcomeStats)
	c.strategies = make(map[string]*models.OutcomeStats)
	c.regimes = make(map[models.Regime]*models.OutcomeStats)
	c.daily = make(map[string]*models.OutcomeStats)
}

// Bucket floors a clamped confidence to a multiple of 10.
func Bucket(confidence float64) int {
	if math.IsNaN(confidence) {
		return 0
	}
	v := math.Max(0, math.Min(100, confidence))
	return int(math.Floor(v/10)) * 10
}

func dayKey(t time.Time) string { return t.UTC().Format("2006-01-02") }

func statsFor[K comparable](m map[K]*models.OutcomeStats, k K) *models.OutcomeStats {
	s, ok := m[k]
	if !ok {
		s = &models.OutcomeStats{}
		m[k] = s
	}
	return s
}

func (c *Calibrator) applyLocked(r models.PerformanceRecord) {
	c.records = append(c.records, r)
	statsFor(c.hourly, r.Timestamp.UTC().Hour()).Add(r.Result, r.Profit)
	statsFor(c.buckets, Bucket(r.Confidence)).Add(r.Result, r.Profit)
	statsFor(c.daily, dayKey(r.Timestamp)).Add(r.Result, r.Profit)
	if r.StrategyID != "" {
		statsFor(c.strategies, r.StrategyID).Add(r.Result, r.Profit)
	}
	if r.Regime != "" {
		statsFor(c.regimes, r.Regime).Add(r.Result, r.Profit)
	}
}

// Load replaces in-memory state with the stored records. An unreadable store
// leaves the calibrator empty and is reported as a *repository.PersistError.
func (c *Calibrator) Load(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	var doc document
	if err := c.store.Load(ctx, domrepo.KeyPerformance, &doc); err != nil {
		if errors.Is(err, domrepo.ErrDocumentNotFound) {
			return nil
		}
		c.mu.Lock()
		c.reset()
		c.mu.Unlock()
		return &domrepo.PersistError{Key: domrepo.KeyPerformance, Err: fmt.Errorf("load: %w", err)}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
	for _, r := range doc.Records {
		if r.Result.IsValid() {
			c.applyLocked(r)
		}
	}
	return nil
}

// Record appends one resolved trade. The record is kept in memory even when
// the returned error carries a *repository.PersistError.
func (c *Calibrator) Record(ctx context.Context, r models.PerformanceRecord) (models.PerformanceRecord, error) {
	if !r.Result.IsValid() {
		return r, fmt.Errorf("invalid trade result %q", r.Result)
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}

	c.mu.Lock()
	c.applyLocked(r)
	doc := document{Records: append([]models.PerformanceRecord(nil), c.records...)}
	version := c.saves.Next()
	c.mu.Unlock()

	var errs []error
	if c.journal != nil {
		if err := c.journal.Append(ctx, &r); err != nil {
			errs = append(errs, &domrepo.PersistError{Key: journalKey, Err: err})
		}
	}
	if c.store != nil {
		if err := c.saves.Save(ctx, c.store, domrepo.KeyPerformance, version, doc); err != nil {
			errs = append(errs, &domrepo.PersistError{Key: domrepo.KeyPerformance, Err: err})
		}
	}
	return r, errors.Join(errs...)
}

// CalibratedConfidence returns the observed win rate of the bucket of raw
// once it has enough samples, otherwise raw discounted for uncertainty.
func (c *Calibrator) CalibratedConfidence(raw float64) float64 {
	c.mu.RLock()
	s, ok := c.buckets[Bucket(raw)]
	c.mu.RUnlock()
	if ok && s.Trades >= c.cfg.MinSamples {
		return s.WinRate()
	}
	return raw * c.cfg.UncertaintyDiscount
}

// ShouldTradeNow vetoes on a long loss streak or a poor record in the
// current UTC hour.
func (c *Calibrator) ShouldTradeNow(now time.Time) (bool, string) {
	n, result := c.Streak()
	if result == models.ResultLoss && c.cfg.MaxLossStreak > 0 && n >= c.cfg.MaxLossStreak {
		return false, fmt.Sprintf("%d consecutive losses", n)
	}

	hour := now.UTC().Hour()
	c.mu.RLock()
	s, ok := c.hourly[hour]
	var stats models.OutcomeStats
	if ok {
		stats = *s
	}
	c.mu.RUnlock()
	if stats.Trades >= c.cfg.HourMinSamples && stats.WinRate() < c.cfg.MinHourWinRate {
		return false, fmt.Sprintf("hour %02d win rate %.1f%% below %.1f%%", hour, stats.WinRate(), c.cfg.MinHourWinRate)
	}
	return true, "ok"
}

// Streak returns the length and result of the current run of equal results.
func (c *Calibrator) Streak() (int, models.TradeResult) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.records) == 0 {
		return 0, ""
	}
	last := c.records[len(c.records)-1].Result
	n := 0
	for i := len(c.records) - 1; i >= 0 && c.records[i].Result == last; i-- {
		n++
	}
	return n, last
}

func copyStats[K comparable](m map[K]*models.OutcomeStats) map[K]models.OutcomeStats {
	out := make(map[K]models.OutcomeStats, len(m))
	for k, s := range m {
		out[k] = *s
	}
	return out
}

func (c *Calibrator) HourlyPerformance() map[int]models.OutcomeStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyStats(c.hourly)
}

func (c *Calibrator) BucketPerformance() map[int]models.OutcomeStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyStats(c.buckets)
}

func (c *Calibrator) RegimePerformance() map[models.Regime]models.OutcomeStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyStats(c.regimes)
}

func (c *Calibrator) DailyPerformance() map[string]models.OutcomeStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyStats(c.daily)
}

func (c *Calibrator) StrategyPerformance(id string) models.OutcomeStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if s, ok := c.strategies[id]; ok {
		return *s
	}
	return models.OutcomeStats{}
}

// BestHours ranks hours with at least minTrades trades by win rate.
func (c *Calibrator) BestHours(minTrades int) []models.HourStats {
	c.mu.RLock()
	out := make([]models.HourStats, 0, len(c.hourly))
	for h, s := range c.hourly {
		if s.Trades >= minTrades {
			out = append(out, models.HourStats{Hour: h, Trades: s.Trades, WinRate: s.WinRate()})
		}
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].WinRate != out[j].WinRate {
			return out[i].WinRate > out[j].WinRate
		}
		return out[i].Hour < out[j].Hour
	})
	return out
}

// RecentRecords returns up to n records, newest last.
func (c *Calibrator) RecentRecords(n int) []models.PerformanceRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if n <= 0 || n > len(c.records) {
		n = len(c.records)
	}
	return append([]models.PerformanceRecord(nil), c.records[len(c.records)-n:]...)
}

func (c *Calibrator) Summary() models.PerformanceSummary {
	var total models.OutcomeStats
	c.mu.RLock()
	for _, r := range c.records {
		total.Add(r.Result, r.Profit)
	}
	buckets := make(map[int]float64, len(c.buckets))
	for b, s := range c.buckets {
		buckets[b] = s.WinRate()
	}
	c.mu.RUnlock()

	n, result := c.Streak()
	return models.PerformanceSummary{
		TotalTrades:   total.Trades,
		Wins:          total.Wins,
		Losses:        total.Losses,
		WinRate:       total.WinRate(),
		TotalProfit:   total.Profit,
		CurrentStreak: n,
		StreakResult:  result,
		BestHours:     c.BestHours(c.cfg.BestHoursMinTrades),
		Buckets:       buckets,
	}
}

var _ domsvc.ConfidenceCalibrator = (*Calibrator)(nil)
