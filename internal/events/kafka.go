// internal/events/kafka.go
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

type KafkaPublisher struct {
	writer      *kafka.Writer
	topicPrefix string
}

func NewKafkaPublisher(brokers []string, topicPrefix string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			RequiredAcks:           kafka.RequireAll,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
			BatchTimeout:           10 * time.Millisecond,
			WriteTimeout:           5 * time.Second,
		},
		topicPrefix: topicPrefix,
	}, nil
}

func (p *KafkaPublisher) Topic(eventType string) string {
	return p.topicPrefix + eventType
}

func (p *KafkaPublisher) Publish(ctx context.Context, eventType string, payload []byte, key string) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.Topic(eventType),
		Key:   []byte(key),
		Value: payload,
		Time:  time.Now().UTC(),
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
