package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"SignalForge/internal/domain/models"
)

// ErrDocumentNotFound is returned by DocumentStore.Load for an unknown key.
var ErrDocumentNotFound = errors.New("document not found")

// Document keys used by the engine components.
const (
	KeyStrategies     = "strategies"
	KeyPerformance    = "performance"
	KeyPatternHistory = "pattern_history"
)

// DocumentStore persists whole JSON documents under a key.
type DocumentStore interface {
	Load(ctx context.Context, key string, dest interface{}) error
	Save(ctx context.Context, key string, v interface{}) error
}

// TradeJournal is an append-only sink for resolved trades.
type TradeJournal interface {
	Append(ctx context.Context, rec *models.PerformanceRecord) error
	Close() error
}

// DecisionPublisher hands final decisions to the order-placement layer.
type DecisionPublisher interface {
	Publish(ctx context.Context, d *models.Decision) error
	Close() error
}

type Metrics interface {
	RecordDecision(status string)
	RecordSignal(strategyID, action string)
	RecordRejection(stage string)
	RecordRegime(regime string, confidence float64)
	RecordTrade(result string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}

// PersistError reports a failed write. The in-memory state it belongs to has
// already been updated, so callers treat it as a warning.
type PersistError struct {
	Key string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Key, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// IsPersistError reports whether err carries a PersistError.
func IsPersistError(err error) bool {
	var pe *PersistError
	return errors.As(err, &pe)
}

// SaveSequencer orders whole-document saves of one key. Owners call Next
// while holding the lock the snapshot is taken under, then Save once the lock
// is released. A snapshot older than the last one written is dropped.
type SaveSequencer struct {
	seq   atomic.Uint64
	mu    sync.Mutex
	saved uint64
}

func (s *SaveSequencer) Next() uint64 { return s.seq.Add(1) }

func (s *SaveSequencer) Save(ctx context.Context, store DocumentStore, key string, version uint64, v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if version <= s.saved {
		return nil
	}
	if err := store.Save(ctx, key, v); err != nil {
		return err
	}
	s.saved = version
	return nil
}
