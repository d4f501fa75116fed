package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyHandler struct {
	failures  int
	calls     int
	panics    bool
	permanent bool
}

func (h *flakyHandler) Topic() string { return "trade-outcomes" }

func (h *flakyHandler) Handle(context.Context, []byte) error {
	h.calls++
	if h.panics {
		panic("boom")
	}
	if h.permanent {
		return Permanent(errors.New("schema mismatch"))
	}
	if h.calls <= h.failures {
		return errors.New("transient")
	}
	return nil
}

func noWait(int) bool { return true }

func TestHandleWithRetry(t *testing.T) {
	h := &flakyHandler{failures: 2}
	attempts, err := handleWithRetry(context.Background(), h, nil, 3, noWait)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)

	h = &flakyHandler{failures: 10}
	attempts, err = handleWithRetry(context.Background(), h, nil, 3, noWait)
	require.Error(t, err)
	assert.Equal(t, 4, attempts)

	h = &flakyHandler{failures: 10}
	attempts, err = handleWithRetry(context.Background(), h, nil, 3, func(int) bool { return false })
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestHandleWithRetry_PermanentErrorIsNotRetried(t *testing.T) {
	h := &flakyHandler{permanent: true}
	waited := 0
	attempts, err := handleWithRetry(context.Background(), h, nil, 5, func(int) bool { waited++; return true })
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPermanent)
	assert.Contains(t, err.Error(), "schema mismatch")
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, h.calls)
	assert.Zero(t, waited)

	assert.NoError(t, Permanent(nil))
}

func TestHandleWithRetry_RecoversPanic(t *testing.T) {
	h := &flakyHandler{panics: true}
	_, err := handleWithRetry(context.Background(), h, nil, 0, noWait)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")
}

func TestBackoffWithJitter(t *testing.T) {
	min, max := 100*time.Millisecond, time.Second
	for attempt := 1; attempt <= 40; attempt++ {
		d := backoffWithJitter(min, max, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, max)
	}
	d := backoffWithJitter(min, max, 1)
	assert.GreaterOrEqual(t, d, min/2)
	assert.LessOrEqual(t, d, min)
}

func TestNewConsumer(t *testing.T) {
	_, err := NewConsumer(ConsumerConfig{}, nil, nil)
	require.ErrorIs(t, err, errNoBrokers)

	c, err := NewConsumer(ConsumerConfig{Brokers: []string{"localhost:9092"}}, nil, prometheus.NewRegistry())
	require.NoError(t, err)
	require.Error(t, c.Start(), "no handlers")

	h := &flakyHandler{}
	c.RegisterHandler(h)
	c.RegisterHandler(&flakyHandler{})
	assert.Len(t, c.handlers, 1)
	assert.Same(t, c.partitionLock("t", 0), c.partitionLock("t", 0))
}

func TestEncodeValue(t *testing.T) {
	b, err := encodeValue(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(b))

	b, err = encodeValue("raw")
	require.NoError(t, err)
	assert.Equal(t, "raw", string(b))
}

func TestConsumerConfigDefaults(t *testing.T) {
	cfg := ConsumerConfig{RetryMax: -2, BackoffMin: time.Second, BackoffMax: time.Millisecond}.withDefaults()
	assert.Equal(t, "signalforge", cfg.GroupID)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, 0, cfg.RetryMax)
	assert.Equal(t, 2*time.Second, cfg.BackoffMax)
}

func TestNewProducer(t *testing.T) {
	_, err := NewProducer(ProducerConfig{}, prometheus.NewRegistry())
	require.ErrorIs(t, err, errNoBrokers)

	_, err = NewProducer(ProducerConfig{Brokers: []string{"localhost:9092"}, Compression: "brotli"}, prometheus.NewRegistry())
	require.Error(t, err)

	p, err := NewProducer(ProducerConfig{Brokers: []string{"localhost:9092"}}, prometheus.NewRegistry())
	require.NoError(t, err)
	assert.Equal(t, "gzip", p.compression)
	assert.Equal(t, kafka.RequireAll, p.w.RequiredAcks)
	assert.IsType(t, &kafka.Hash{}, p.w.Balancer)
	require.NoError(t, p.Close())
}
