package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/thep200/github-stats-pipeline/cfg"
	"github.com/thep200/github-stats-pipeline/pkg/log"
)

var ErrNoBrokers = errors.New("no kafka brokers configured")

// Producer writes to any topic; the topic travels on each message.
type Producer struct {
	Config *cfg.Config
	Logger log.Logger
	writer *kafka.Writer
}

func NewProducer(config *cfg.Config, logger log.Logger) (*Producer, error) {
	if len(config.Kafka.Brokers) == 0 {
		return nil, ErrNoBrokers
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(config.Kafka.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		Config: config,
		Logger: logger,
		writer: writer,
	}, nil
}

// Publish blocks until every in-sync replica has the message.
func (p *Producer) Publish(ctx context.Context, topic string, key, value []byte) error {
	msg := kafka.Message{
		Topic: topic,
		Key:   key,
		Value: value,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka topic %s: %w", topic, err)
	}

	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
