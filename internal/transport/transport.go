// Package transport moves per-day statistics from producers to the consumer over
// durable topics. Subscribers sharing a subscription name split the stream, and
// a delivery that is never acked is handed out again.
package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/thep200/github-stats-pipeline/cfg"
	"github.com/thep200/github-stats-pipeline/pkg/log"
)

var (
	ErrClosed      = errors.New("subscription closed")
	ErrNotInFlight = errors.New("delivery is not in flight")
)

type Transport interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(ctx context.Context, topics []string, subscription string) (Subscription, error)
	Close() error
}

type Subscription interface {
	// Receive blocks until a delivery is available, ctx ends or the
	// subscription is closed.
	Receive(ctx context.Context) (Delivery, error)
	Close() error
}

type Delivery struct {
	Topic   string
	Payload []byte
	ack     func(ctx context.Context) error
}

func NewDelivery(topic string, payload []byte, ack func(ctx context.Context) error) Delivery {
	return Delivery{Topic: topic, Payload: payload, ack: ack}
}

// Ack confirms the delivery is durably handled.
func (d Delivery) Ack(ctx context.Context) error {
	if d.ack == nil {
		return nil
	}
	return d.ack(ctx)
}

const (
	KindKafka  = "kafka"
	KindMemory = "memory"
)

// Open builds the named transport. Memory is process-local, so a producer and
// a consumer only meet through it inside one process.
func Open(kind string, config *cfg.Config, logger log.Logger) (Transport, error) {
	switch kind {
	case "", KindKafka:
		return NewKafka(config, logger)
	case KindMemory:
		logger.Warn(context.Background(), "Memory transport selected: messages live only in this process and are lost when it exits")
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported transport %q", kind)
	}
}
