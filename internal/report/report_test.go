package report

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thep200/github-stats-pipeline/cfg"
	"github.com/thep200/github-stats-pipeline/internal/consumer"
	"github.com/thep200/github-stats-pipeline/internal/model"
	"github.com/thep200/github-stats-pipeline/pkg/db"
	"github.com/thep200/github-stats-pipeline/pkg/log"
)

func writeLines(t *testing.T, config *cfg.Config, kind model.Kind, lines ...string) {
	path := consumer.LogPath(config, kind)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
}

func setupLogs(t *testing.T) *cfg.Config {
	loader, _ := cfg.NewMockLoader()
	config, err := loader.Load()
	require.NoError(t, err)
	config.Storage.LogDir = t.TempDir()

	writeLines(t, config, model.KindLang,
		`{"id":"l1","from":"2024-03-10","to":"2024-03-10","languages":{"Go":3,"Unknown":4},"timestamp":"2024-03-11T00:00:00Z"}`,
		`{"id":"l1","from":"2024-03-10","to":"2024-03-10","languages":{"Go":3,"Unknown":4},"timestamp":"2024-03-11T00:00:00Z"}`,
		`{"id":"l2","from":"2024-03-11","to":"2024-03-11","languages":{"Go":2,"Python":1},"timestamp":"2024-03-12T00:00:00Z"}`,
		`{"id":"l3",`,
	)
	writeLines(t, config, model.KindCommits,
		`{"id":"c1","repo":"a/big","commit_count":1000,"day":"2024-03-10","timestamp":"2024-03-11T00:00:00Z"}`,
		`{"id":"c2","repo":"a/small","commit_count":3,"day":"2024-03-10","timestamp":"2024-03-11T00:00:00Z"}`,
		`{"repo":"a/small","commit_count":2}`,
		`{"repo":"a/small","commit_count":2}`,
	)
	writeLines(t, config, model.KindTdd,
		`{"id":"t1","language":"Go","project_count":2,"day":"2024-03-10","timestamp":"2024-03-11T00:00:00Z"}`,
		`{"id":"t2","language":"Unknown","project_count":9,"day":"2024-03-10","timestamp":"2024-03-11T00:00:00Z"}`,
	)
	return config
}

func TestAccumulator_Build(t *testing.T) {
	config := setupLogs(t)

	report, err := NewAccumulator(log.NopLogger{}, config).Build(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Sections, 4)

	lang := report.Section(model.KindLang)
	assert.Equal(t, model.Aggregate{"Go": 5, "Python": 1}, lang.Totals)
	assert.Equal(t, 2, lang.Records)
	assert.Equal(t, 1, lang.Duplicates)
	assert.InDelta(t, 3.0, lang.Stats.Mean, 1e-9)
	assert.InDelta(t, 3.0, lang.Stats.Median, 1e-9)

	commits := report.Section(model.KindCommits)
	assert.Equal(t, model.Aggregate{"a/big": 1000, "a/small": 5}, commits.Totals)
	assert.Equal(t, 1, commits.Duplicates)
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], "a/big")

	assert.Equal(t, model.Aggregate{"Go": 2}, report.Section(model.KindTdd).Totals)

	cicd := report.Section(model.KindTddCicd)
	assert.Empty(t, cicd.Totals)
	assert.Zero(t, cicd.Records)

	require.Len(t, report.ParseErrors, 1)
	assert.Equal(t, 4, report.ParseErrors[0].Line)
}

func TestAccumulator_FlatWindowLines(t *testing.T) {
	loader, _ := cfg.NewMockLoader()
	config, err := loader.Load()
	require.NoError(t, err)
	config.Storage.LogDir = t.TempDir()
	writeLines(t, config, model.KindTddCicd, `{"Go":2,"Rust":1}`, `{"Go":1,"Unknown":3}`)

	report, err := NewAccumulator(log.NopLogger{}, config).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.Aggregate{"Go": 3, "Rust": 1}, report.Section(model.KindTddCicd).Totals)
}

func TestRender(t *testing.T) {
	config := setupLogs(t)
	report, err := NewAccumulator(log.NopLogger{}, config).Build(context.Background())
	require.NoError(t, err)

	var buf bytes.Buffer
	Render(&buf, report, 1)
	out := buf.String()

	assert.Contains(t, out, "Top languages by project count")
	assert.Contains(t, out, "Most active repositories by commits")
	assert.Contains(t, out, "a/big")
	assert.NotContains(t, out, "a/small")
	assert.NotContains(t, out, "Python")
	assert.Contains(t, out, "Warnings")
	assert.Contains(t, out, "Skipped lines")
}

func TestStore_Save(t *testing.T) {
	config := setupLogs(t)
	report, err := NewAccumulator(log.NopLogger{}, config).Build(context.Background())
	require.NoError(t, err)

	database, err := db.NewDatabase(config)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, database.Migrate(&model.Summary{}))
	summary, err := model.NewSummary(config, log.NopLogger{}, database)
	require.NoError(t, err)

	store := NewStore(summary)
	require.NoError(t, store.Save(report, 10))

	rows, err := summary.ListKind(model.KindLang)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Go", rows[0].Key)
	assert.Equal(t, 5, rows[0].Count)

	rows, err = summary.ListKind(model.KindTddCicd)
	require.NoError(t, err)
	assert.Empty(t, rows)

	saved, err := store.Saved()
	require.NoError(t, err)
	require.Len(t, saved[model.KindCommits], 2)
	assert.Equal(t, "a/big", saved[model.KindCommits][0].Key)
	assert.Equal(t, 1, saved[model.KindCommits][0].Rank)

	var buf bytes.Buffer
	RenderStored(&buf, saved)
	assert.Contains(t, buf.String(), "Stored summaries")
	assert.Contains(t, buf.String(), "a/small")
}
