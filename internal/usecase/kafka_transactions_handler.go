package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"KiranaCash/internal/domain/models"
	drepo "KiranaCash/internal/domain/repository"
	mid "KiranaCash/internal/middleware"
	pkgkafka "KiranaCash/pkg/kafka"
	xlogger "KiranaCash/pkg/logger"
)

// KafkaTransactionsHandler consumes transaction events and writes them to
// the log through the ingest pipeline.
type KafkaTransactionsHandler struct {
	topic   string
	proc    mid.Proc
	metrics drepo.Metrics
}

var _ pkgkafka.MessageHandler = (*KafkaTransactionsHandler)(nil)

func NewKafkaTransactionsHandler(topic string, proc mid.Proc, metrics drepo.Metrics) *KafkaTransactionsHandler {
	return &KafkaTransactionsHandler{topic: topic, proc: proc, metrics: metrics}
}

func (h *KafkaTransactionsHandler) Topic() string { return h.topic }

func (h *KafkaTransactionsHandler) Handle(ctx context.Context, b []byte) error {
	var t models.Transaction
	if err := json.Unmarshal(b, &t); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode transaction: %w", err)
	}
	if err := h.proc.Process(ctx, &t); err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	return nil
}

// TransactionHook rejects payloads that are not JSON objects before they
// reach the handler and logs failures with the message trace id.
func TransactionHook(logger *xlogger.Logger, metrics drepo.Metrics) pkgkafka.ConsumerHook {
	return pkgkafka.HookFuncs{
		Before: func(ctx context.Context, topic string, data []byte) (context.Context, []byte, error) {
			trimmed := bytes.TrimSpace(data)
			if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
				metrics.RecordError("consumer_reject")
				return ctx, data, &pkgkafka.RejectError{Topic: topic, Err: fmt.Errorf("payload is not a JSON object")}
			}
			return ctx, trimmed, nil
		},
		After: func(_ context.Context, topic string, _ []byte, err error) {
			if err == nil {
				metrics.RecordIngested("kafka:"+topic, 1)
			}
		},
		Error: func(ctx context.Context, topic string, _ []byte, err error) {
			logger.Warn("transaction event dropped",
				xlogger.String("topic", topic),
				xlogger.String("trace_id", pkgkafka.TraceID(ctx)),
				xlogger.Error(err))
		},
	}
}
