package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"

	"github.com/noah-isme/somashare-api/pkg/config"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes activities as JSON messages keyed by user id, so one
// user's events stay ordered within a partition.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

// NewKafkaPublisher builds a publisher for cfg.ActivityTopic.
func NewKafkaPublisher(cfg config.KafkaConfig) *KafkaPublisher {
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.ActivityTopic,
		Balancer: &kafka.Hash{},
	})
	return &KafkaPublisher{writer: writer, topic: cfg.ActivityTopic}
}

// Publish implements Publisher.
func (p *KafkaPublisher) Publish(ctx context.Context, activity Activity) error {
	value, err := json.Marshal(activity)
	if err != nil {
		return fmt.Errorf("marshal activity: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(activity.UserID, 10)),
		Value: value,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write activity to %s: %w", p.topic, err)
	}
	return nil
}

// Close flushes pending messages and releases broker connections.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
