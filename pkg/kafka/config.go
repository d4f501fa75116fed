package kafka

import (
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
)

var errNoBrokers = errors.New("kafka: at least one broker is required")

// ProducerConfig configures NewProducer. Zero fields take defaults.
type ProducerConfig struct {
	Brokers []string
	// RequiredAcks is -1 for all replicas or 1 for the leader only; zero
	// means all.
	RequiredAcks int
	// Compression is gzip, snappy, lz4 or zstd.
	Compression  string
	MaxAttempts  int
	WriteTimeout time.Duration
	BatchSize    int
	BatchTimeout time.Duration
	// SpreadKeys balances by size instead of hashing the key, giving up
	// per-key ordering.
	SpreadKeys bool
}

func (c ProducerConfig) withDefaults() ProducerConfig {
	if c.RequiredAcks == 0 {
		c.RequiredAcks = int(kafka.RequireAll)
	}
	if c.Compression == "" {
		c.Compression = "gzip"
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 1
	}
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = 50 * time.Millisecond
	}
	return c
}

var compressions = map[string]kafka.Compression{
	"gzip":   kafka.Gzip,
	"snappy": kafka.Snappy,
	"lz4":    kafka.Lz4,
	"zstd":   kafka.Zstd,
}

// ConsumerConfig configures NewConsumer. Zero fields take defaults.
type ConsumerConfig struct {
	Brokers []string
	GroupID string
	Workers int
	// BufferSize bounds fetched messages waiting for a worker.
	BufferSize int
	// RetryMax is the number of retries after the first failed attempt.
	RetryMax   int
	BackoffMin time.Duration
	BackoffMax time.Duration
	// DLQTopic receives messages that still fail after retries. Without it
	// failed offsets are left uncommitted.
	DLQTopic string
	MinBytes int
	MaxBytes int
}

func (c ConsumerConfig) withDefaults() ConsumerConfig {
	if c.GroupID == "" {
		c.GroupID = "signalforge"
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.BufferSize <= 0 {
		c.BufferSize = 10
	}
	if c.RetryMax < 0 {
		c.RetryMax = 0
	}
	if c.BackoffMin <= 0 {
		c.BackoffMin = 50 * time.Millisecond
	}
	if c.BackoffMax < c.BackoffMin {
		c.BackoffMax = 2 * time.Second
	}
	if c.MinBytes <= 0 {
		c.MinBytes = 1
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10e6
	}
	return c
}
