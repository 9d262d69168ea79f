package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/thep200/github-stats-pipeline/cfg"
	"github.com/thep200/github-stats-pipeline/pkg/log"
)

// Consumer is one member of a consumer group reading several topics. Offsets
// move only on Commit, so anything fetched but not committed is redelivered to
// the group after this member leaves.
type Consumer struct {
	Config *cfg.Config
	Logger log.Logger
	reader *kafka.Reader
}

func NewConsumer(config *cfg.Config, logger log.Logger, topics []string, groupID string) (*Consumer, error) {
	if len(config.Kafka.Brokers) == 0 {
		return nil, ErrNoBrokers
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     config.Kafka.Brokers,
		GroupID:     groupID,
		GroupTopics: topics,
		MinBytes:    1,
		MaxBytes:    10e6,        // 10MB
		MaxWait:     time.Second, // Maximum amount of time to wait for new data
		StartOffset: kafka.FirstOffset,
		// Zero commits synchronously inside CommitMessages
		CommitInterval: 0,
	})

	return &Consumer{
		Config: config,
		Logger: logger,
		reader: reader,
	}, nil
}

// Fetch blocks for the next message without committing it.
func (c *Consumer) Fetch(ctx context.Context) (kafka.Message, error) {
	msg, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to fetch kafka message: %w", err)
	}
	return msg, nil
}

func (c *Consumer) Commit(ctx context.Context, msg kafka.Message) error {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to commit offset %d on %s/%d: %w", msg.Offset, msg.Topic, msg.Partition, err)
	}
	return nil
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
