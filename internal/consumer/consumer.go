// Package consumer drains every statistic topic under one shared subscription
// into the append-only log of each topic.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/thep200/github-stats-pipeline/cfg"
	"github.com/thep200/github-stats-pipeline/internal/jsonl"
	"github.com/thep200/github-stats-pipeline/internal/model"
	"github.com/thep200/github-stats-pipeline/internal/transport"
	"github.com/thep200/github-stats-pipeline/pkg/log"
)

type Consumer struct {
	Logger    log.Logger
	Config    *cfg.Config
	transport transport.Transport
	logs      map[string]*jsonl.AppendLog
	handled   atomic.Int64
	dropped   atomic.Int64
}

// LogPath is where the log of kind lives.
func LogPath(config *cfg.Config, kind model.Kind) string {
	return filepath.Join(config.Storage.LogDir, config.Storage.Files.For(string(kind)))
}

func NewConsumer(logger log.Logger, config *cfg.Config, tr transport.Transport) (*Consumer, error) {
	c := &Consumer{
		Logger:    logger,
		Config:    config,
		transport: tr,
		logs:      make(map[string]*jsonl.AppendLog, len(model.Kinds)),
	}
	for _, kind := range model.Kinds {
		appendLog, err := jsonl.Open(LogPath(config, kind))
		if err != nil {
			_ = c.Close()
			return nil, err
		}
		c.logs[config.Kafka.Topics.For(string(kind))] = appendLog
	}
	return c, nil
}

// Run consumes until ctx ends, which is a clean stop. A delivery is acked only
// after its line is on disk; when the append fails Run returns without acking,
// leaving the message to be redelivered.
func (c *Consumer) Run(ctx context.Context) error {
	topics := c.Config.TopicList()
	sub, err := c.transport.Subscribe(ctx, topics, c.Config.Kafka.Subscription)
	if ctx.Err() != nil {
		if sub != nil {
			_ = sub.Close()
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to subscribe to %v: %w", topics, err)
	}
	defer sub.Close()
	c.Logger.Info(ctx, "Consuming %v as %s", topics, c.Config.Kafka.Subscription)

	for {
		delivery, err := sub.Receive(ctx)
		if ctx.Err() != nil || errors.Is(err, transport.ErrClosed) {
			c.Logger.Info(ctx, "Consumer stopped after %d messages", c.handled.Load())
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to receive: %w", err)
		}
		if err := c.handle(ctx, delivery); err != nil {
			return err
		}
	}
}

func (c *Consumer) handle(ctx context.Context, delivery transport.Delivery) error {
	appendLog, ok := c.logs[delivery.Topic]
	switch {
	case !ok:
		c.Logger.Warn(ctx, "Dropping message from unexpected topic %s", delivery.Topic)
		c.dropped.Add(1)
	case !json.Valid(delivery.Payload):
		c.Logger.Warn(ctx, "Dropping undecodable message on %s: %s", delivery.Topic, model.TruncateString(string(delivery.Payload), 120))
		c.dropped.Add(1)
	default:
		if err := appendLog.Append(delivery.Payload); err != nil {
			c.Logger.Error(ctx, "Append to %s failed, leaving message unacked: %v", appendLog.Path(), err)
			return err
		}
		c.handled.Add(1)
		c.Logger.Debug(ctx, "Appended message from %s to %s", delivery.Topic, appendLog.Path())
	}

	if err := delivery.Ack(ctx); err != nil {
		c.Logger.Error(ctx, "Failed to ack message from %s: %v", delivery.Topic, err)
	}
	return nil
}

func (c *Consumer) Handled() int64 {
	return c.handled.Load()
}

func (c *Consumer) Dropped() int64 {
	return c.dropped.Load()
}

func (c *Consumer) Close() error {
	var errs []error
	for _, l := range c.logs {
		errs = append(errs, l.Close())
	}
	return errors.Join(errs...)
}
