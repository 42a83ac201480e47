package events

import (
	"context"

	"github.com/segmentio/kafka-go"

	"github.com/TheBrokenPipe/minutes-in-seconds/pkg/logger"
)

// Consumer reads pipeline events from a Kafka topic within a consumer group.
type Consumer struct {
	reader *kafka.Reader
	log    *logger.Logger
}

func NewConsumer(brokers []string, topic, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})
	return &Consumer{reader: reader, log: log}
}

// Start consumes messages until the context is cancelled. Handler errors are
// logged; the message is committed either way so a poison message cannot
// stall the pipeline.
func (c *Consumer) Start(ctx context.Context, handler func(kafka.Message) error) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				c.log.Info("stopping event consumer")
				return
			default:
				msg, err := c.reader.FetchMessage(ctx)
				if err != nil {
					if ctx.Err() == nil {
						c.log.Error("failed to fetch event: " + err.Error())
					}
					continue
				}

				if err := handler(msg); err != nil {
					c.log.WithField("topic", msg.Topic).
						WithField("offset", msg.Offset).
						Error("failed to handle event: " + err.Error())
				}

				if err := c.reader.CommitMessages(ctx, msg); err != nil {
					c.log.Error("failed to commit event: " + err.Error())
				}
			}
		}
	}()
}

// Close closes the underlying Kafka reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
