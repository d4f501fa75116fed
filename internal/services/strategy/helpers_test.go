package strategy

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
)

var t0 = time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)

type memStore struct {
	mu    sync.Mutex
	docs  map[string][]byte
	saves int
	fail  bool
	load  error
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
	m.saves++
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

func newTestRegistry(store *memStore) *Registry {
	r := NewRegistry(store, nil)
	r.now = func() time.Time { return t0 }
	return r
}

// replaceWith is an Update edit that swaps in spec whole.
func replaceWith(spec models.StrategySpec) func(*models.StrategySpec) error {
	return func(s *models.StrategySpec) error {
		*s = spec
		return nil
	}
}
