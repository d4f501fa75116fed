package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// series builds n one-minute candles whose close moves by step, with a
// symmetric high/low spread around the close.
func series(n int, start, step, spread float64) []models.Candle {
	cs := make([]models.Candle, n)
	for i := range cs {
		c := start + step*float64(i)
		cs[i] = models.Candle{
			Timestamp: t0.Add(time.Duration(i) * time.Minute),
			Open:      c - step,
			Close:     c,
			High:      c + spread,
			Low:       c - spread,
			Volume:    10,
		}
	}
	return cs
}

func candle(o, c, h, l float64) models.Candle {
	return models.Candle{Timestamp: t0, Open: o, Close: c, High: h, Low: l}
}

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
