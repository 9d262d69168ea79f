package githubapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thep200/github-stats-pipeline/cfg"
	"github.com/thep200/github-stats-pipeline/internal/limiter"
	"github.com/thep200/github-stats-pipeline/pkg/log"
)

// The manual clock starts well in the past so go-github never blocks a request
// on its own copy of the quota.
var clockStart = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

var day = time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)

func setupTestCaller(t *testing.T, handler http.Handler) (*Caller, *limiter.ManualClock) {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	loader, _ := cfg.NewMockLoader()
	config, err := loader.Load()
	require.NoError(t, err)
	config.GithubApi.ApiUrl = server.URL

	clock := limiter.NewManualClock(clockStart)
	caller, err := NewCaller(log.NopLogger{}, config, server.Client(), clock)
	require.NoError(t, err)
	return caller, clock
}

func searchItems(from, n int) []map[string]interface{} {
	items := make([]map[string]interface{}, 0, n)
	for i := from; i < from+n; i++ {
		items = append(items, map[string]interface{}{
			"full_name":      fmt.Sprintf("owner%d/repo%d", i, i),
			"name":           fmt.Sprintf("repo%d", i),
			"owner":          map[string]interface{}{"login": fmt.Sprintf("owner%d", i)},
			"language":       "Go",
			"default_branch": "main",
		})
	}
	return items
}

func writeJSON(t *testing.T, w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestCaller_SearchPagination(t *testing.T) {
	testCases := []struct {
		name          string
		pageSizes     []int
		expectedPages int
		expectedItems int
	}{
		{name: "stops on partial page", pageSizes: []int{100, 100, 42}, expectedPages: 3, expectedItems: 242},
		{name: "stops on empty page", pageSizes: []int{100, 0}, expectedPages: 2, expectedItems: 100},
		{name: "never more than ten pages", pageSizes: []int{100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100}, expectedPages: 10, expectedItems: 1000},
		{name: "empty day", pageSizes: []int{0}, expectedPages: 1, expectedItems: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var requests int32
			handler := func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&requests, 1)
				assert.Equal(t, "/search/repositories", r.URL.Path)
				q := r.URL.Query()
				assert.Equal(t, "created:2024-04-30", q.Get("q"))
				assert.Equal(t, "created", q.Get("sort"))
				assert.Equal(t, "asc", q.Get("order"))
				assert.Equal(t, "100", q.Get("per_page"))

				page, _ := strconv.Atoi(q.Get("page"))
				size := 0
				if page-1 < len(tc.pageSizes) {
					size = tc.pageSizes[page-1]
				}
				writeJSON(t, w, map[string]interface{}{"total_count": 5000, "items": searchItems((page-1)*100, size)})
			}
			caller, _ := setupTestCaller(t, http.HandlerFunc(handler))

			count := 0
			for record, err := range caller.Search(context.Background(), day) {
				require.NoError(t, err)
				assert.Equal(t, "Go", record.Language)
				assert.Equal(t, "main", record.DefaultBranch)
				count++
			}
			assert.Equal(t, tc.expectedItems, count)
			assert.Equal(t, int32(tc.expectedPages), atomic.LoadInt32(&requests))
		})
	}
}

func TestCaller_SearchStopsWhenConsumerBreaks(t *testing.T) {
	var requests int32
	caller, _ := setupTestCaller(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		writeJSON(t, w, map[string]interface{}{"items": searchItems(0, 100)})
	}))

	seen := 0
	for _, err := range caller.Search(context.Background(), day) {
		require.NoError(t, err)
		seen++
		if seen == 5 {
			break
		}
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests))
}

func TestCaller_SearchRemoteAPIError(t *testing.T) {
	var requests int32
	caller, clock := setupTestCaller(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"message": "Validation Failed"}`)
	}))

	var gotErr error
	for _, err := range caller.Search(context.Background(), day) {
		gotErr = err
	}

	var apiErr *RemoteAPIError
	require.ErrorAs(t, gotErr, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Contains(t, apiErr.Body, "Validation Failed")
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests))
	assert.Empty(t, clock.Sleeps())
}

func TestCaller_SearchRecoversFromThrottling(t *testing.T) {
	reset := clockStart.Add(20 * time.Second)
	var requests int32
	caller, clock := setupTestCaller(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) == 1 {
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"message": "API rate limit exceeded"}`)
			return
		}
		w.Header().Set("X-RateLimit-Remaining", "25")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Add(time.Minute).Unix(), 10))
		writeJSON(t, w, map[string]interface{}{"items": searchItems(0, 3)})
	}))

	count := 0
	for _, err := range caller.Search(context.Background(), day) {
		require.NoError(t, err)
		count++
	}
	assert.Equal(t, 3, count)
	assert.Equal(t, int32(2), atomic.LoadInt32(&requests))
	assert.Equal(t, []time.Duration{25 * time.Second}, clock.Sleeps())
	assert.Equal(t, 25, caller.SearchState().Remaining)
}

func TestCaller_SearchSkipsItemsWithoutFullName(t *testing.T) {
	caller, _ := setupTestCaller(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		items := searchItems(0, 2)
		items = append(items, map[string]interface{}{"name": "orphan"})
		writeJSON(t, w, map[string]interface{}{"items": items})
	}))

	count := 0
	for _, err := range caller.Search(context.Background(), day) {
		require.NoError(t, err)
		count++
	}
	assert.Equal(t, 2, count)
}

func TestCaller_ListContents(t *testing.T) {
	caller, _ := setupTestCaller(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/o/r/contents/":
			writeJSON(t, w, []map[string]string{
				{"name": "tests", "path": "tests", "type": "dir"},
				{"name": "main.go", "path": "main.go", "type": "file"},
			})
		case "/repos/o/r/contents/.github":
			writeJSON(t, w, []map[string]string{{"name": "workflows", "path": ".github/workflows", "type": "dir"}})
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message": "Not Found"}`)
		}
	}))
	ctx := context.Background()

	entries, err := caller.ListContents(ctx, "o", "r", "")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].IsDir())
	assert.Equal(t, "main.go", entries[1].Name)

	nested, err := caller.ListContents(ctx, "o", "r", ".github")
	require.NoError(t, err)
	require.Len(t, nested, 1)
	assert.Equal(t, ".github/workflows", nested[0].Path)

	_, err = caller.ListContents(ctx, "o", "gone", "")
	assert.True(t, IsStatus(err, http.StatusNotFound))
}

func TestCaller_CountCommits(t *testing.T) {
	testCases := []struct {
		name        string
		pages       []int
		status      int
		expected    int
		expectedReq int32
		expectError bool
	}{
		{name: "partial page ends history", pages: []int{100, 37}, expected: 137, expectedReq: 2},
		{name: "empty page ends history", pages: []int{100, 0}, expected: 100, expectedReq: 2},
		{name: "capped at ten pages", pages: []int{100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100}, expected: 1000, expectedReq: 10},
		{name: "conflict means empty repository", status: http.StatusConflict, expected: 0, expectedReq: 1},
		{name: "server error is fatal", status: http.StatusInternalServerError, expectError: true, expectedReq: 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var requests int32
			caller, _ := setupTestCaller(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&requests, 1)
				assert.Equal(t, "/repos/o/r/commits", r.URL.Path)
				assert.Equal(t, "main", r.URL.Query().Get("sha"))
				if tc.status != 0 {
					w.WriteHeader(tc.status)
					fmt.Fprint(w, `{"message": "Git Repository is empty."}`)
					return
				}
				page, _ := strconv.Atoi(r.URL.Query().Get("page"))
				n := 0
				if page-1 < len(tc.pages) {
					n = tc.pages[page-1]
				}
				commits := make([]map[string]string, n)
				for i := range commits {
					commits[i] = map[string]string{"sha": fmt.Sprintf("%d-%d", page, i)}
				}
				writeJSON(t, w, commits)
			}))

			total, err := caller.CountCommits(context.Background(), "o", "r", "main")
			if tc.expectError {
				var apiErr *RemoteAPIError
				assert.True(t, errors.As(err, &apiErr))
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tc.expected, total)
			}
			assert.Equal(t, tc.expectedReq, atomic.LoadInt32(&requests))
		})
	}
}

func TestNewCaller_ClampsToCeiling(t *testing.T) {
	loader, _ := cfg.NewMockLoader()
	config, _ := loader.Load()
	config.GithubApi.PerPage = 50
	config.GithubApi.MaxPages = 40

	caller, err := NewCaller(log.NopLogger{}, config, http.DefaultClient, nil)
	require.NoError(t, err)
	assert.Equal(t, 20, caller.MaxPages())
	assert.Equal(t, 50, caller.PerPage())
}

func TestNewHTTPClient(t *testing.T) {
	loader, _ := cfg.NewMockLoader()
	config, _ := loader.Load()

	client, err := NewHTTPClient(config)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, client.Timeout)
	assert.NotNil(t, client.Transport)
}

func TestDayQuery(t *testing.T) {
	local := time.Date(2024, 1, 2, 23, 30, 0, 0, time.FixedZone("X", -3600))
	assert.Equal(t, "created:2024-01-03", DayQuery(local))
}
