package transport

import (
	"context"
	"sync"

	"github.com/thep200/github-stats-pipeline/cfg"
	"github.com/thep200/github-stats-pipeline/pkg/kafka"
	"github.com/thep200/github-stats-pipeline/pkg/log"
)

// Kafka publishes through one shared producer, created on first use so a
// consumer-only process never opens a writer.
type Kafka struct {
	Config   *cfg.Config
	Logger   log.Logger
	once     sync.Once
	producer *kafka.Producer
	err      error
}

func NewKafka(config *cfg.Config, logger log.Logger) (*Kafka, error) {
	if len(config.Kafka.Brokers) == 0 {
		return nil, kafka.ErrNoBrokers
	}
	return &Kafka{Config: config, Logger: logger}, nil
}

func (k *Kafka) Publish(ctx context.Context, topic string, payload []byte) error {
	k.once.Do(func() {
		k.producer, k.err = kafka.NewProducer(k.Config, k.Logger)
	})
	if k.err != nil {
		return k.err
	}
	return k.producer.Publish(ctx, topic, nil, payload)
}

// Subscribe joins the consumer group named subscription.
func (k *Kafka) Subscribe(ctx context.Context, topics []string, subscription string) (Subscription, error) {
	consumer, err := kafka.NewConsumer(k.Config, k.Logger, topics, subscription)
	if err != nil {
		return nil, err
	}
	k.Logger.Info(ctx, "Joined consumer group %s on %v", subscription, topics)
	return &kafkaSubscription{consumer: consumer}, nil
}

func (k *Kafka) Close() error {
	if k.producer != nil {
		return k.producer.Close()
	}
	return nil
}

type kafkaSubscription struct {
	consumer *kafka.Consumer
}

func (s *kafkaSubscription) Receive(ctx context.Context) (Delivery, error) {
	msg, err := s.consumer.Fetch(ctx)
	if err != nil {
		return Delivery{}, err
	}
	return NewDelivery(msg.Topic, msg.Value, func(ctx context.Context) error {
		return s.consumer.Commit(ctx, msg)
	}), nil
}

func (s *kafkaSubscription) Close() error {
	return s.consumer.Close()
}
