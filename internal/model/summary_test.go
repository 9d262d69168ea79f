package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thep200/github-stats-pipeline/cfg"
	"github.com/thep200/github-stats-pipeline/pkg/db"
	"github.com/thep200/github-stats-pipeline/pkg/log"
)

func newTestSummary(t *testing.T) *Summary {
	config := &cfg.Config{Report: cfg.Report{Driver: "sqlite", SqlPath: ":memory:"}}
	database, err := db.NewDatabase(config)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	summary, err := NewSummary(config, log.NopLogger{}, database)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(&Summary{}))
	return summary
}

func TestSummary_ReplaceKind(t *testing.T) {
	summary := newTestSummary(t)

	require.NoError(t, summary.ReplaceKind(KindLang, []Entry{{"Go", 6}, {"Python", 3}, {"C", 1}}, 10))
	require.NoError(t, summary.ReplaceKind(KindTdd, []Entry{{"Go", 1}}, 1))

	// Second run drops C and reorders
	require.NoError(t, summary.ReplaceKind(KindLang, []Entry{{"Python", 7}, {"Go", 6}}, 13))

	rows, err := summary.ListKind(KindLang)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Python", rows[0].Key)
	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, 7, rows[0].Count)
	assert.InDelta(t, 7.0/13.0, rows[0].Share, 1e-9)
	assert.Equal(t, "Go", rows[1].Key)

	tdd, err := summary.ListKind(KindTdd)
	require.NoError(t, err)
	assert.Len(t, tdd, 1)
}

func TestSummary_ReplaceKindEmpty(t *testing.T) {
	summary := newTestSummary(t)
	require.NoError(t, summary.ReplaceKind(KindCommits, []Entry{{"a/b", 3}}, 3))
	require.NoError(t, summary.ReplaceKind(KindCommits, nil, 0))

	rows, err := summary.ListKind(KindCommits)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
