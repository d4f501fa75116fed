package strategy

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	domsvc "SignalForge/internal/domain/service"
	"SignalForge/pkg/logger"
	"SignalForge/pkg/util"

	"github.com/shopspring/decimal"
)

var (
	ErrStrategyNotFound  = errors.New("strategy not found")
	ErrDuplicateStrategy = errors.New("strategy already exists")
)

const (
	minPriority = 1
	maxPriority = 10

	// LeaderboardMinTrades is the default sample floor for Leaderboard.
	LeaderboardMinTrades = 10
)

// EvalStatus is the explicit result of evaluating one strategy.
type EvalStatus string

const (
	EvalSignal         EvalStatus = "signal"
	EvalFiltered       EvalStatus = "filtered"
	EvalNoMatch        EvalStatus = "no_match"
	EvalBelowThreshold EvalStatus = "below_threshold"
)

// Evaluation is the outcome of one strategy against one context.
type Evaluation struct {
	StrategyID string
	Status     EvalStatus
	Stage      string
	Reason     string
	Signal     *models.Signal
	Groups     []GroupResult
}

// Rejection converts a non-signal evaluation for the decision record.
func (e Evaluation) Rejection() models.Rejection {
	return models.Rejection{StrategyID: e.StrategyID, Stage: e.Stage, Reason: e.Reason}
}

// Registry owns the strategy set and its performance counters. The whole
// set is persisted after each mutation.
type Registry struct {
	mu         sync.RWMutex
	store      domrepo.DocumentStore
	saves      domrepo.SaveSequencer
	log        *logger.Logger
	now        func() time.Time
	strategies map[string]*models.Strategy
}

func NewRegistry(store domrepo.DocumentStore, log *logger.Logger) *Registry {
	if log == nil {
		log = logger.Nop()
	}
	return &Registry{
		store:      store,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
		strategies: make(map[string]*models.Strategy),
	}
}

// Load restores the stored strategy set. An empty or missing set is seeded
// with DefaultSpecs. When the store cannot be read the defaults are seeded in
// memory only, so the stored set is not overwritten, and a
// *repository.PersistError is returned.
func (r *Registry) Load(ctx context.Context) error {
	var stored []*models.Strategy
	if r.store != nil {
		if err := r.store.Load(ctx, domrepo.KeyStrategies, &stored); err != nil && !errors.Is(err, domrepo.ErrDocumentNotFound) {
			r.mu.Lock()
			r.strategies = make(map[string]*models.Strategy)
			added, seedErr := r.seedLocked(DefaultSpecs())
			r.mu.Unlock()
			if seedErr != nil {
				return seedErr
			}
			r.log.Warn("strategy store unreadable, running on defaults",
				logger.Int("count", added), logger.Error(err))
			return &domrepo.PersistError{Key: domrepo.KeyStrategies, Err: fmt.Errorf("load: %w", err)}
		}
	}

	r.mu.Lock()
	r.strategies = make(map[string]*models.Strategy, len(stored))
	for _, s := range stored {
		if s != nil && s.ID != "" {
			r.strategies[s.ID] = s
		}
	}
	empty := len(r.strategies) == 0
	r.mu.Unlock()

	if !empty {
		r.log.Info("strategies loaded", logger.Int("count", len(stored)))
		return nil
	}
	added, err := r.Seed(ctx, DefaultSpecs())
	if err != nil && !domrepo.IsPersistError(err) {
		return err
	}
	r.log.Info("default strategies seeded", logger.Int("count", added))
	return err
}

// Seed creates every spec whose ID is not yet registered and persists once.
func (r *Registry) Seed(ctx context.Context, specs []models.StrategySpec) (int, error) {
	r.mu.Lock()
	added, err := r.seedLocked(specs)
	if err != nil {
		r.mu.Unlock()
		return added, err
	}
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	if added == 0 {
		return 0, nil
	}
	return added, r.persist(ctx, snapshot)
}

func (r *Registry) seedLocked(specs []models.StrategySpec) (int, error) {
	now := r.now()
	added := 0
	for _, spec := range specs {
		s, err := Build(spec)
		if err != nil {
			return added, fmt.Errorf("seed strategy %q: %w", spec.Name, err)
		}
		s.ID = util.Slugify(s.Name)
		if _, exists := r.strategies[s.ID]; exists || s.ID == "" {
			continue
		}
		s.CreatedAt, s.UpdatedAt = now, now
		r.strategies[s.ID] = s
		added++
	}
	return added, nil
}

// Create validates spec and registers it under the slug of its name.
func (r *Registry) Create(ctx context.Context, spec models.StrategySpec) (*models.Strategy, error) {
	s, err := Build(spec)
	if err != nil {
		return nil, err
	}
	s.ID = util.Slugify(s.Name)
	if s.ID == "" {
		return nil, invalid("name", "slug", "name must contain letters or digits")
	}

	r.mu.Lock()
	if _, exists := r.strategies[s.ID]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrDuplicateStrategy, s.ID)
	}
	now := r.now()
	s.CreatedAt, s.UpdatedAt = now, now
	r.strategies[s.ID] = s
	out, snapshot := s.Copy(), r.snapshotLocked()
	r.mu.Unlock()

	return out, r.persist(ctx, snapshot)
}

// Update rebuilds id from its stored definition after edit has changed it.
// ID, performance and lineage are kept.
func (r *Registry) Update(ctx context.Context, id string, edit func(*models.StrategySpec) error) (*models.Strategy, error) {
	r.mu.Lock()
	cur, ok := r.strategies[id]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrStrategyNotFound, id)
	}
	spec := models.SpecFromStrategy(cur)
	if err := edit(&spec); err != nil {
		r.mu.Unlock()
		return nil, invalid("body", "json", err.Error())
	}
	next, err := Build(spec)
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	next.ID = cur.ID
	next.Performance = cur.Performance
	next.CreatedAt = cur.CreatedAt
	next.ClonedFrom = cur.ClonedFrom
	next.UpdatedAt = r.now()
	r.strategies[id] = next
	out, snapshot := next.Copy(), r.snapshotLocked()
	r.mu.Unlock()

	return out, r.persist(ctx, snapshot)
}

func (r *Registry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	if _, ok := r.strategies[id]; !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrStrategyNotFound, id)
	}
	delete(r.strategies, id)
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	return r.persist(ctx, snapshot)
}

// Clone copies id under a new name with fresh performance counters.
func (r *Registry) Clone(ctx context.Context, id, name string) (*models.Strategy, error) {
	name = strings.TrimSpace(name)
	newID := util.Slugify(name)
	if newID == "" {
		return nil, invalid("name", "slug", "name must contain letters or digits")
	}

	r.mu.Lock()
	src, ok := r.strategies[id]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrStrategyNotFound, id)
	}
	if _, exists := r.strategies[newID]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrDuplicateStrategy, newID)
	}
	c := src.Copy()
	c.ID, c.Name, c.ClonedFrom = newID, name, src.ID
	c.Performance = models.StrategyPerformance{}
	now := r.now()
	c.CreatedAt, c.UpdatedAt = now, now
	r.strategies[newID] = c
	out, snapshot := c.Copy(), r.snapshotLocked()
	r.mu.Unlock()

	return out, r.persist(ctx, snapshot)
}

func (r *Registry) SetActive(ctx context.Context, id string, active bool) (*models.Strategy, error) {
	return r.mutate(ctx, id, func(s *models.Strategy) { s.Active = active })
}

// SetPriority clamps priority to [1, 10].
func (r *Registry) SetPriority(ctx context.Context, id string, priority int) (*models.Strategy, error) {
	priority = max(minPriority, min(maxPriority, priority))
	return r.mutate(ctx, id, func(s *models.Strategy) { s.Priority = priority })
}

func (r *Registry) mutate(ctx context.Context, id string, fn func(*models.Strategy)) (*models.Strategy, error) {
	r.mu.Lock()
	s, ok := r.strategies[id]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrStrategyNotFound, id)
	}
	fn(s)
	s.UpdatedAt = r.now()
	out, snapshot := s.Copy(), r.snapshotLocked()
	r.mu.Unlock()

	return out, r.persist(ctx, snapshot)
}

func (r *Registry) Get(id string) (*models.Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStrategyNotFound, id)
	}
	return s.Copy(), nil
}

// List returns every strategy ordered by ID.
func (r *Registry) List() []*models.Strategy {
	r.mu.RLock()
	out := make([]*models.Strategy, 0, len(r.strategies))
	for _, s := range r.strategies {
		out = append(out, s.Copy())
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Active returns active strategies by priority descending, then ID.
func (r *Registry) Active() []*models.Strategy {
	r.mu.RLock()
	out := make([]*models.Strategy, 0, len(r.strategies))
	for _, s := range r.strategies {
		if s.Active {
			out = append(out, s.Copy())
		}
	}
	r.mu.RUnlock()
	sortByPriority(out)
	return out
}

func sortByPriority(ss []*models.Strategy) {
	sort.Slice(ss, func(i, j int) bool {
		if ss[i].Priority != ss[j].Priority {
			return ss[i].Priority > ss[j].Priority
		}
		return ss[i].ID < ss[j].ID
	})
}

// Evaluate runs the filter chain, then the condition groups, then the
// confidence gate.
func (r *Registry) Evaluate(s *models.Strategy, ec models.EvaluationContext) Evaluation {
	ev := Evaluation{StrategyID: s.ID}
	if stage, reason, ok := applyFilters(s, ec); !ok {
		ev.Status, ev.Stage, ev.Reason = EvalFiltered, stage, reason
		return ev
	}

	var passed int
	var total float64
	var reasons []string
	ev.Groups = make([]GroupResult, 0, len(s.ConditionGroups))
	for _, g := range s.ConditionGroups {
		gr := EvaluateGroup(g, ec.Snapshot, s.SignalStrength.ConditionWeights)
		ev.Groups = append(ev.Groups, gr)
		if !gr.Passed {
			continue
		}
		passed++
		total += gr.Confidence
		for _, cr := range gr.Results {
			if cr.Met() {
				reasons = append(reasons, cr.Describe())
			}
		}
	}
	if passed == 0 {
		ev.Status, ev.Stage, ev.Reason = EvalNoMatch, StageConditions, "no condition group passed"
		return ev
	}

	confidence := total / float64(passed)
	if confidence < s.SignalStrength.MinConfidence {
		ev.Status, ev.Stage = EvalBelowThreshold, StageConfidence
		ev.Reason = fmt.Sprintf("confidence %.1f below minimum %.1f", confidence, s.SignalStrength.MinConfidence)
		return ev
	}

	action := s.Action
	if action == models.ActionAuto || action == "" {
		implied, ok := impliedAction(ev.Groups)
		if !ok {
			ev.Status, ev.Stage, ev.Reason = EvalNoMatch, StageConditions, "no met condition implies an action"
			return ev
		}
		action = implied
	}

	ev.Status = EvalSignal
	ev.Signal = &models.Signal{
		StrategyID:           s.ID,
		StrategyName:         s.Name,
		Action:               action,
		Confidence:           confidence,
		CalibratedConfidence: confidence,
		Priority:             s.Priority,
		PositionSizePercent:  s.RiskManagement.PositionSizePercent,
		Reasons:              reasons,
	}
	return ev
}

// EvaluateAll evaluates active strategies in priority order. Under the
// priority policy it stops at the first signal.
func (r *Registry) EvaluateAll(ec models.EvaluationContext, policy models.ArbitrationPolicy) ([]models.Signal, []models.Rejection) {
	var signals []models.Signal
	var rejections []models.Rejection
	for _, s := range r.Active() {
		ev := r.Evaluate(s, ec)
		if ev.Status != EvalSignal {
			rejections = append(rejections, ev.Rejection())
			r.log.Debug("strategy rejected",
				logger.String("strategy", s.ID),
				logger.String("stage", ev.Stage),
				logger.String("reason", ev.Reason))
			continue
		}
		signals = append(signals, *ev.Signal)
		if policy == models.PolicyPriority {
			break
		}
	}
	return signals, rejections
}

// RecordResult folds one resolved trade into the counters of id.
func (r *Registry) RecordResult(ctx context.Context, id string, result models.TradeResult, profit decimal.Decimal, at time.Time) error {
	if !result.IsValid() {
		return fmt.Errorf("invalid trade result %q", result)
	}
	if at.IsZero() {
		at = r.now()
	}

	r.mu.Lock()
	s, ok := r.strategies[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrStrategyNotFound, id)
	}
	applyResult(&s.Performance, result, profit, at)
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	return r.persist(ctx, snapshot)
}

func applyResult(p *models.StrategyPerformance, result models.TradeResult, profit decimal.Decimal, at time.Time) {
	today, hour := effectiveCounters(*p, at)
	p.TradesToday, p.TradesThisHour = today+1, hour+1

	p.TotalTrades++
	if result == models.ResultWin {
		p.Wins++
		p.ConsecutiveLosses = 0
	} else {
		p.Losses++
		p.ConsecutiveLosses++
	}

	p.TotalProfit = p.TotalProfit.Add(profit)
	if p.TotalProfit.GreaterThan(p.PeakProfit) {
		p.PeakProfit = p.TotalProfit
	}
	if dd := p.Drawdown(); dd.GreaterThan(p.MaxDrawdown) {
		p.MaxDrawdown = dd
	}
	p.WinRate = float64(p.Wins) / float64(p.TotalTrades) * 100
	p.AvgProfit = p.TotalProfit.Div(decimal.NewFromInt(int64(p.TotalTrades)))

	t := at
	p.LastTradeTime = &t
}

// Leaderboard ranks strategies with at least minTrades trades by win rate,
// then by total profit.
func (r *Registry) Leaderboard(minTrades int) []*models.Strategy {
	all := r.List()
	out := all[:0]
	for _, s := range all {
		if s.Performance.TotalTrades >= minTrades {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Performance, out[j].Performance
		if a.WinRate != b.WinRate {
			return a.WinRate > b.WinRate
		}
		return a.TotalProfit.GreaterThan(b.TotalProfit)
	})
	return out
}

// setSnapshot is a sorted copy of the strategy set tagged with its save order.
type setSnapshot struct {
	version    uint64
	strategies []*models.Strategy
}

func (r *Registry) snapshotLocked() setSnapshot {
	out := make([]*models.Strategy, 0, len(r.strategies))
	for _, s := range r.strategies {
		out = append(out, s.Copy())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return setSnapshot{version: r.saves.Next(), strategies: out}
}

func (r *Registry) persist(ctx context.Context, snapshot setSnapshot) error {
	if r.store == nil {
		return nil
	}
	if err := r.saves.Save(ctx, r.store, domrepo.KeyStrategies, snapshot.version, snapshot.strategies); err != nil {
		r.log.Warn("persist strategies failed", logger.Error(err))
		return &domrepo.PersistError{Key: domrepo.KeyStrategies, Err: err}
	}
	return nil
}

var _ domsvc.StrategyEvaluator = (*Registry)(nil)
