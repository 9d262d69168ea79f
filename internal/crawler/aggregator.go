// Package crawler turns day-scoped repository searches into one Aggregate per
// statistic kind and day.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"time"

	"github.com/thep200/github-stats-pipeline/cfg"
	"github.com/thep200/github-stats-pipeline/internal/classifier"
	githubapi "github.com/thep200/github-stats-pipeline/internal/github_api"
	"github.com/thep200/github-stats-pipeline/internal/model"
	"github.com/thep200/github-stats-pipeline/pkg/log"
)

// Source is the slice of the GitHub API the aggregator reads.
type Source interface {
	Search(ctx context.Context, day time.Time) iter.Seq2[model.RepositoryRecord, error]
	ListContents(ctx context.Context, owner, repo, path string) ([]model.ContentEntry, error)
	CountCommits(ctx context.Context, owner, repo, branch string) (int, error)
}

// DayHandler receives every day as soon as its aggregate is final.
type DayHandler func(ctx context.Context, day time.Time, agg model.Aggregate)

type Aggregator struct {
	Logger log.Logger
	Config *cfg.Config
	source Source
	ci     *classifier.CI
}

func NewAggregator(logger log.Logger, config *cfg.Config, source Source) *Aggregator {
	return &Aggregator{
		Logger: logger,
		Config: config,
		source: source,
		ci:     classifier.NewCI(logger, source),
	}
}

// AggregateDay computes kind for the repositories created on day. Any error
// discards the partial result.
func (a *Aggregator) AggregateDay(ctx context.Context, kind model.Kind, day time.Time) (model.Aggregate, error) {
	day = Day(day)
	agg := model.NewAggregate()
	seen := 0

	for record, err := range a.source.Search(ctx, day) {
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", kind, day.Format(model.DayLayout), err)
		}
		seen++
		if err := a.observe(ctx, kind, record, agg); err != nil {
			return nil, fmt.Errorf("%s %s: %s: %w", kind, day.Format(model.DayLayout), record.FullName, err)
		}
	}

	a.Logger.Info(ctx, "[%s] %s: %d repositories, %d keys, total %d", kind, day.Format(model.DayLayout), seen, len(agg), agg.Total())
	return agg, nil
}

func (a *Aggregator) observe(ctx context.Context, kind model.Kind, record model.RepositoryRecord, agg model.Aggregate) error {
	switch kind {
	case model.KindLang:
		agg.Inc(record.LanguageOrUnknown())

	case model.KindTdd, model.KindTddCicd:
		result, err := a.classify(ctx, kind, record)
		if err != nil {
			return err
		}
		if result.HasTests && (kind == model.KindTdd || result.HasCI) {
			agg.Inc(record.LanguageOrUnknown())
		}

	case model.KindCommits:
		count, err := a.source.CountCommits(ctx, record.Owner, record.Name, record.DefaultBranch)
		// A repository deleted mid-crawl is skipped; any other failure fails the day
		if githubapi.IsStatus(err, http.StatusNotFound) {
			a.Logger.Warn(ctx, "Commit history of %s not found, skipping", record.FullName)
			return nil
		}
		if err != nil {
			return err
		}
		agg.Add(record.FullName, count)

	default:
		return fmt.Errorf("unknown statistic kind %q", kind)
	}
	return nil
}

// classify lists the top level once and hands it to both classifiers. A remote
// answer other than 200 counts as no evidence.
func (a *Aggregator) classify(ctx context.Context, kind model.Kind, record model.RepositoryRecord) (model.ClassificationResult, error) {
	result := model.ClassificationResult{Repo: record}
	listing, err := a.source.ListContents(ctx, record.Owner, record.Name, "")
	var apiErr *githubapi.RemoteAPIError
	if errors.As(err, &apiErr) {
		a.Logger.Warn(ctx, "Cannot list %s: %v", record.FullName, err)
		return result, nil
	}
	if err != nil {
		return result, err
	}

	result.HasTests = classifier.HasTests(listing, record.LanguageOrUnknown())
	if kind == model.KindTddCicd && result.HasTests {
		result.HasCI = a.ci.HasCI(ctx, record, listing)
	}
	return result, nil
}

// AggregateRange walks the days from from to to ascending and hands each
// finished day to onDay. Cancellation is honoured between days; the first
// failing day stops the range and is not handed off. The merged result of the
// days handed off so far is returned in every case.
func (a *Aggregator) AggregateRange(ctx context.Context, kind model.Kind, from, to time.Time, onDay DayHandler) (model.Aggregate, error) {
	merged := model.NewAggregate()
	for _, day := range Days(from, to) {
		if err := ctx.Err(); err != nil {
			return merged, err
		}
		agg, err := a.AggregateDay(ctx, kind, day)
		if err != nil {
			return merged, err
		}
		if onDay != nil {
			onDay(ctx, day, agg)
		}
		merged.Merge(agg)
	}
	return merged, nil
}
