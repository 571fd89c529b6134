package repository

import (
	"context"

	pkgkafka "TFoldSV/pkg/kafka"
)

// messageProducer is the part of pkg/kafka.Producer the publisher needs.
type messageProducer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaReportPublisher publishes fold reports as JSON, keyed by run ID.
type KafkaReportPublisher struct {
	producer messageProducer
	topic    string
}

func NewKafkaReportPublisher(producer *pkgkafka.Producer, topic string) *KafkaReportPublisher {
	return &KafkaReportPublisher{producer: producer, topic: topic}
}

func (p *KafkaReportPublisher) PublishReport(ctx context.Context, key string, report interface{}) error {
	return p.producer.Publish(ctx, p.topic, []byte(key), report)
}

func (p *KafkaReportPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
