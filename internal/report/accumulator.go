// Package report replays the consumer's logs into ranked totals per statistic
// kind.
package report

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/montanaflynn/stats"
	"github.com/thep200/github-stats-pipeline/cfg"
	"github.com/thep200/github-stats-pipeline/internal/consumer"
	"github.com/thep200/github-stats-pipeline/internal/jsonl"
	"github.com/thep200/github-stats-pipeline/internal/model"
	"github.com/thep200/github-stats-pipeline/pkg/log"
)

// CommitCap is the most commits one repository can show, ten pages of 100.
const CommitCap = cfg.SearchResultCeiling

var titles = map[model.Kind]string{
	model.KindLang:    "Top languages by project count",
	model.KindCommits: "Most active repositories by commits",
	model.KindTdd:     "Top languages with unit tests",
	model.KindTddCicd: "Top languages with unit tests and CI",
}

type Stats struct {
	Mean   float64
	Median float64
	P90    float64
}

type Section struct {
	Kind       model.Kind
	Title      string
	Totals     model.Aggregate
	Records    int
	Duplicates int
	Stats      Stats
}

type Report struct {
	Sections    []*Section
	ParseErrors []*jsonl.ParseError
	Warnings    []string
}

func (r *Report) Section(kind model.Kind) *Section {
	for _, s := range r.Sections {
		if s.Kind == kind {
			return s
		}
	}
	return nil
}

type Accumulator struct {
	Logger log.Logger
	Config *cfg.Config
}

func NewAccumulator(logger log.Logger, config *cfg.Config) *Accumulator {
	return &Accumulator{Logger: logger, Config: config}
}

// Build replays every log. Repeated deliveries are counted once, keyed on the
// message id or on the whole line when there is none. Language kinds leave
// "Unknown" out.
func (a *Accumulator) Build(ctx context.Context) (*Report, error) {
	report := &Report{}
	for _, kind := range []model.Kind{model.KindLang, model.KindCommits, model.KindTdd, model.KindTddCicd} {
		path := consumer.LogPath(a.Config, kind)
		records, parseErrs, err := jsonl.Replay(path)
		if err != nil {
			return nil, err
		}
		report.ParseErrors = append(report.ParseErrors, parseErrs...)

		section := &Section{Kind: kind, Title: titles[kind], Totals: model.NewAggregate()}
		seen := make(map[string]bool, len(records))
		for _, rec := range records {
			key := dedupeKey(rec)
			if seen[key] {
				section.Duplicates++
				continue
			}
			seen[key] = true
			section.Records++
			if warning := accumulate(kind, rec, section.Totals); warning != "" {
				report.Warnings = append(report.Warnings, warning)
			}
		}
		if kind.KeyedByLanguage() {
			delete(section.Totals, model.UnknownLanguage)
		}
		section.Stats = summarize(section.Totals)
		report.Sections = append(report.Sections, section)

		a.Logger.Info(ctx, "[%s] %s: %d records, %d duplicates, %d keys", kind, path, section.Records, section.Duplicates, len(section.Totals))
	}

	for _, pe := range report.ParseErrors {
		a.Logger.Warn(ctx, "Skipped line: %v", pe)
	}
	return report, nil
}

func dedupeKey(rec jsonl.Record) string {
	var id string
	if raw, ok := rec.Object["id"]; ok && json.Unmarshal(raw, &id) == nil && id != "" {
		return "id:" + id
	}
	return "line:" + string(rec.Raw)
}

// accumulate adds one record and returns a warning when the record looks capped.
func accumulate(kind model.Kind, rec jsonl.Record, totals model.Aggregate) string {
	switch kind {
	case model.KindCommits:
		var m model.CommitMessage
		if json.Unmarshal(rec.Raw, &m) != nil || m.Repo == "" {
			return ""
		}
		totals.Add(m.Repo, m.CommitCount)
		if m.CommitCount == CommitCap {
			return fmt.Sprintf("%s reports %d commits, the listing cap; the real count may be higher", m.Repo, m.CommitCount)
		}
	case model.KindTdd:
		var m model.TddMessage
		if json.Unmarshal(rec.Raw, &m) != nil || m.Language == "" {
			return ""
		}
		totals.Add(m.Language, m.ProjectCount)
	case model.KindLang, model.KindTddCicd:
		for language, n := range windowLanguages(rec) {
			totals.Add(language, n)
		}
	}
	return ""
}

// windowLanguages reads the languages object, or for older flat lines every
// top-level integer field.
func windowLanguages(rec jsonl.Record) map[string]int {
	if raw, ok := rec.Object["languages"]; ok {
		var languages map[string]int
		if json.Unmarshal(raw, &languages) == nil {
			return languages
		}
		return nil
	}
	languages := make(map[string]int)
	for k, raw := range rec.Object {
		var n int
		if json.Unmarshal(raw, &n) == nil {
			languages[k] = n
		}
	}
	return languages
}

func summarize(totals model.Aggregate) Stats {
	if len(totals) == 0 {
		return Stats{}
	}
	data := make(stats.Float64Data, 0, len(totals))
	for _, v := range totals {
		data = append(data, float64(v))
	}
	mean, _ := stats.Mean(data)
	median, _ := stats.Median(data)
	p90, _ := stats.Percentile(data, 90)
	return Stats{Mean: mean, Median: median, P90: p90}
}
