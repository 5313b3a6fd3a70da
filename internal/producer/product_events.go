// Package producer publishes catalog change events to Kafka so downstream
// consumers (search indexers, storefront caches) can follow mutations.
package producer

import (
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"github.com/Henri-Kulmala/ProductManager/internal/models"
)

type ProductEvents struct {
	producer sarama.SyncProducer
	topic    string
}

// NewProductEvents connects a synchronous producer with full acks, matching
// the at-least-once delivery the downstream consumers assume.
func NewProductEvents(brokers []string, topic string) (*ProductEvents, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5

	p, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to start kafka producer: %w", err)
	}
	return &ProductEvents{producer: p, topic: topic}, nil
}

// Publish sends one event keyed by product id, so all events for the same
// product land on the same partition in order.
func (p *ProductEvents) Publish(event models.ProductEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.ProductID),
		Value: sarama.ByteEncoder(data),
	}
	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("failed to write event to kafka: %w", err)
	}
	return nil
}

func (p *ProductEvents) Close() error {
	return p.producer.Close()
}
