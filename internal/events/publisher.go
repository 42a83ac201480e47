package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/TheBrokenPipe/minutes-in-seconds/pkg/logger"
)

// Publisher writes pipeline events to a Kafka topic.
type Publisher struct {
	writer *kafka.Writer
	log    *logger.Logger
}

func NewPublisher(brokers []string, topic string, log *logger.Logger) *Publisher {
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  brokers,
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	})
	return &Publisher{writer: writer, log: log}
}

// Publish sends one event keyed by meeting id.
func (p *Publisher) Publish(ctx context.Context, meetingID string, event interface{}) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(meetingID),
		Value: value,
	})
	if err != nil {
		p.log.WithMeeting(meetingID).WithField("topic", p.writer.Topic).
			Error("failed to publish event: " + err.Error())
		return fmt.Errorf("failed to publish to %s: %w", p.writer.Topic, err)
	}
	return nil
}

// Close closes the underlying Kafka writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
