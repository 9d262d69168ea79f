// Package publisher turns a finished aggregate into per-kind messages on the
// kind's topic.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/thep200/github-stats-pipeline/cfg"
	"github.com/thep200/github-stats-pipeline/internal/model"
	"github.com/thep200/github-stats-pipeline/internal/transport"
	"github.com/thep200/github-stats-pipeline/pkg/log"
)

type Publisher struct {
	Logger    log.Logger
	Config    *cfg.Config
	transport transport.Transport
	now       func() time.Time
	newID     func() string
	published atomic.Int64
	failed    atomic.Int64
}

func NewPublisher(logger log.Logger, config *cfg.Config, tr transport.Transport) *Publisher {
	return &Publisher{
		Logger:    logger,
		Config:    config,
		transport: tr,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
}

// Publish sends the aggregate of [from, to]. A message that cannot be sent is
// logged and counted; Publish itself only fails when nothing could be encoded
// or the kind has no topic.
func (p *Publisher) Publish(ctx context.Context, kind model.Kind, from, to time.Time, agg model.Aggregate) error {
	topic := p.Config.Kafka.Topics.For(string(kind))
	if topic == "" {
		return fmt.Errorf("no topic configured for %s", kind)
	}
	payloads, err := p.Messages(kind, from, to, agg)
	if err != nil {
		return err
	}

	sent := 0
	for _, payload := range payloads {
		if err := p.transport.Publish(ctx, topic, payload); err != nil {
			p.failed.Add(1)
			p.Logger.Error(ctx, "Failed to publish %s message to %s: %v", kind, topic, err)
			continue
		}
		sent++
	}
	p.published.Add(int64(sent))
	p.Logger.Info(ctx, "[%s] published %d/%d messages to %s for %s..%s", kind, sent, len(payloads), topic,
		from.Format(model.DayLayout), to.Format(model.DayLayout))
	return nil
}

// Messages encodes agg: one message per ranked entry for commits and tdd, one
// message for the whole window otherwise.
func (p *Publisher) Messages(kind model.Kind, from, to time.Time, agg model.Aggregate) ([][]byte, error) {
	stamp := p.now().UTC().Format(model.TimestampLayout)
	day := from.UTC().Format(model.DayLayout)

	if _, err := model.ParseKind(string(kind)); err != nil {
		return nil, err
	}

	var values []interface{}
	if kind.PerEntry() {
		for _, e := range agg.Ranked() {
			values = append(values, p.entryMessage(kind, e, day, stamp))
		}
	} else {
		values = append(values, model.WindowMessage{
			ID:        p.newID(),
			From:      day,
			To:        to.UTC().Format(model.DayLayout),
			Languages: agg.Clone(),
			Timestamp: stamp,
		})
	}

	payloads := make([][]byte, 0, len(values))
	for _, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s message: %w", kind, err)
		}
		payloads = append(payloads, b)
	}
	return payloads, nil
}

func (p *Publisher) entryMessage(kind model.Kind, e model.Entry, day, stamp string) interface{} {
	if kind.KeyedByLanguage() {
		return model.TddMessage{ID: p.newID(), Language: e.Key, ProjectCount: e.Count, Day: day, Timestamp: stamp}
	}
	return model.CommitMessage{ID: p.newID(), Repo: e.Key, CommitCount: e.Count, Day: day, Timestamp: stamp}
}

func (p *Publisher) Published() int64 {
	return p.published.Load()
}

func (p *Publisher) Failed() int64 {
	return p.failed.Load()
}
