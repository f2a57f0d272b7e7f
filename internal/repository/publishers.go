package repository

import (
	"context"

	"KiranaCash/internal/domain/models"
	"KiranaCash/internal/domain/repository"
	pkgkafka "KiranaCash/pkg/kafka"
)

// Publisher is the producer surface the Kafka publishers need.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// KafkaTransactionPublisher writes transactions keyed by store type so one
// store's stream stays ordered.
type KafkaTransactionPublisher struct {
	producer Publisher
	topic    string
}

var _ repository.TransactionPublisher = (*KafkaTransactionPublisher)(nil)

func NewKafkaTransactionPublisher(producer Publisher, topic string) *KafkaTransactionPublisher {
	return &KafkaTransactionPublisher{producer: producer, topic: topic}
}

func (p *KafkaTransactionPublisher) Publish(ctx context.Context, t *models.Transaction) error {
	return p.producer.Publish(ctx, p.topic, transactionKey(t), t)
}

func (p *KafkaTransactionPublisher) PublishBatch(ctx context.Context, txs []*models.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, 0, len(txs))
	for _, t := range txs {
		if t == nil {
			continue
		}
		msgs = append(msgs, pkgkafka.Message{Key: transactionKey(t), Value: t})
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaTransactionPublisher) Close() error {
	return p.producer.Close()
}

func transactionKey(t *models.Transaction) []byte {
	if t.StoreType != "" {
		return []byte(t.StoreType)
	}
	return []byte(t.ID)
}

// KafkaForecastPublisher announces forecasts keyed by target date.
type KafkaForecastPublisher struct {
	producer Publisher
	topic    string
}

var _ repository.ForecastPublisher = (*KafkaForecastPublisher)(nil)

func NewKafkaForecastPublisher(producer Publisher, topic string) *KafkaForecastPublisher {
	return &KafkaForecastPublisher{producer: producer, topic: topic}
}

func (p *KafkaForecastPublisher) PublishForecast(ctx context.Context, ev *models.ForecastEvent) error {
	key := ev.StoreType
	if ev.Result != nil {
		key += ":" + ev.Result.Date
	}
	return p.producer.Publish(ctx, p.topic, []byte(key), ev)
}

func (p *KafkaForecastPublisher) Close() error {
	return p.producer.Close()
}
