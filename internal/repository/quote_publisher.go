package repository

import (
	"context"

	"TradeSync/internal/domain/models"
	"TradeSync/internal/domain/repository"
	pkgkafka "TradeSync/pkg/kafka"
)

// KafkaQuotePublisher implements Publisher for Kafka. Messages are keyed
// by symbol so a hash balancer preserves per-symbol ordering.
type KafkaQuotePublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaQuotePublisher creates a Kafka-backed quote publisher.
func NewKafkaQuotePublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaQuotePublisher{producer: producer, topic: topic}
}

func (p *KafkaQuotePublisher) Publish(ctx context.Context, q *models.QuoteUpdate) error {
	return p.producer.Publish(ctx, p.topic, []byte(q.Symbol), map[string]interface{}{
		"symbol": q.Symbol,
		"price":  q.Price,
		"size":   q.Size,
	})
}

func (p *KafkaQuotePublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
