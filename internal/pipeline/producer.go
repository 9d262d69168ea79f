// Package pipeline wires crawling and publishing for the run command.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/thep200/github-stats-pipeline/cfg"
	"github.com/thep200/github-stats-pipeline/internal/crawler"
	"github.com/thep200/github-stats-pipeline/internal/model"
	"github.com/thep200/github-stats-pipeline/internal/publisher"
	"github.com/thep200/github-stats-pipeline/internal/transport"
	"github.com/thep200/github-stats-pipeline/pkg/log"
	"golang.org/x/sync/errgroup"
)

// SourceFactory builds a fresh API source, so kinds never share quota state.
type SourceFactory func() (crawler.Source, error)

type Producer struct {
	Logger    log.Logger
	Config    *cfg.Config
	transport transport.Transport
	newSource SourceFactory
}

func NewProducer(logger log.Logger, config *cfg.Config, tr transport.Transport, newSource SourceFactory) *Producer {
	return &Producer{
		Logger:    logger,
		Config:    config,
		transport: tr,
		newSource: newSource,
	}
}

// Run aggregates every kind over [from, to], one independent goroutine per
// kind. Each finished day is published at once. A failing kind does not stop
// the others; the first error is returned once all are done.
func (p *Producer) Run(ctx context.Context, kinds []model.Kind, from, to time.Time) error {
	var g errgroup.Group
	for _, kind := range kinds {
		source, err := p.newSource()
		if err != nil {
			return fmt.Errorf("failed to build source for %s: %w", kind, err)
		}
		aggregator := crawler.NewAggregator(p.Logger, p.Config, source)
		pub := publisher.NewPublisher(p.Logger, p.Config, p.transport)

		g.Go(func() error {
			start := time.Now()
			p.Logger.Info(ctx, "[%s] crawling %s..%s", kind, from.Format(model.DayLayout), to.Format(model.DayLayout))
			merged, err := aggregator.AggregateRange(ctx, kind, from, to, func(ctx context.Context, day time.Time, agg model.Aggregate) {
				if err := pub.Publish(ctx, kind, day, day, agg); err != nil {
					p.Logger.Error(ctx, "[%s] cannot publish %s: %v", kind, day.Format(model.DayLayout), err)
				}
			})
			p.Logger.Info(ctx, "[%s] done in %s: %d keys, total %d, %d published, %d failed",
				kind, time.Since(start).Round(time.Millisecond), len(merged), merged.Total(), pub.Published(), pub.Failed())
			if err != nil {
				return fmt.Errorf("%s: %w", kind, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// ParseKinds accepts a kind name or "all".
func ParseKinds(name string) ([]model.Kind, error) {
	if name == "" || name == "all" {
		return model.Kinds, nil
	}
	kind, err := model.ParseKind(name)
	if err != nil {
		return nil, err
	}
	return []model.Kind{kind}, nil
}
