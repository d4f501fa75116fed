package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	pkgkafka "SignalForge/pkg/kafka"
	"SignalForge/pkg/metrics"

	"github.com/go-playground/validator/v10"
)

// KafkaOutcomesHandler consumes resolved trades and records them.
type KafkaOutcomesHandler struct {
	topic    string
	outcomes *TradeOutcomes
	metrics  domrepo.Metrics
}

func NewKafkaOutcomesHandler(topic string, outcomes *TradeOutcomes, m domrepo.Metrics) *KafkaOutcomesHandler {
	if m == nil {
		m = metrics.Noop{}
	}
	return &KafkaOutcomesHandler{topic: topic, outcomes: outcomes, metrics: m}
}

func (h *KafkaOutcomesHandler) Topic() string { return h.topic }

// incoming message schema: models.TradeOutcome. Undecodable or invalid
// payloads are returned as permanent errors.
func (h *KafkaOutcomesHandler) Handle(ctx context.Context, b []byte) error {
	var o models.TradeOutcome
	if err := json.Unmarshal(b, &o); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return pkgkafka.Permanent(fmt.Errorf("decode trade outcome: %w", err))
	}
	if o.Timestamp != nil {
		h.metrics.RecordLatency("outcome_e2e_seconds", time.Since(*o.Timestamp).Seconds())
	}

	start := time.Now()
	_, err := h.outcomes.RecordOutcome(ctx, o)
	h.metrics.RecordLatency("record_outcome_seconds", time.Since(start).Seconds())
	var invalid validator.ValidationErrors
	switch {
	case errors.As(err, &invalid):
		h.metrics.RecordError("consumer_invalid")
		return pkgkafka.Permanent(err)
	case err != nil:
		h.metrics.RecordError("consumer_record")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaOutcomesHandler)(nil)
