package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thep200/github-stats-pipeline/cfg"
	"github.com/thep200/github-stats-pipeline/internal/model"
	"github.com/thep200/github-stats-pipeline/internal/transport"
	"github.com/thep200/github-stats-pipeline/pkg/log"
)

var day = time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

func newTestPublisher(t *testing.T, tr transport.Transport) *Publisher {
	loader, _ := cfg.NewMockLoader()
	config, err := loader.Load()
	require.NoError(t, err)

	p := NewPublisher(log.NopLogger{}, config, tr)
	p.now = func() time.Time { return time.Date(2024, 3, 11, 1, 2, 3, 0, time.UTC) }
	n := 0
	p.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return p
}

func drain(t *testing.T, m *transport.Memory, topic string, n int) []map[string]interface{} {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	sub, err := m.Subscribe(ctx, []string{topic}, "test")
	require.NoError(t, err)
	defer sub.Close()

	var out []map[string]interface{}
	for i := 0; i < n; i++ {
		d, err := sub.Receive(ctx)
		require.NoError(t, err)
		var v map[string]interface{}
		require.NoError(t, json.Unmarshal(d.Payload, &v))
		out = append(out, v)
		require.NoError(t, d.Ack(ctx))
	}
	assert.Zero(t, m.Pending("test"))
	return out
}

func TestPublish_CommitsOnePerEntryRanked(t *testing.T) {
	m := transport.NewMemory()
	p := newTestPublisher(t, m)

	err := p.Publish(context.Background(), model.KindCommits, day, day, model.Aggregate{"a/small": 3, "a/big": 99})
	require.NoError(t, err)

	got := drain(t, m, "github-commits", 2)
	assert.Equal(t, map[string]interface{}{
		"id": "id-1", "repo": "a/big", "commit_count": float64(99), "day": "2024-03-10", "timestamp": "2024-03-11T01:02:03Z",
	}, got[0])
	assert.Equal(t, "a/small", got[1]["repo"])
	assert.EqualValues(t, 2, p.Published())
}

func TestPublish_TddOnePerEntry(t *testing.T) {
	m := transport.NewMemory()
	p := newTestPublisher(t, m)

	require.NoError(t, p.Publish(context.Background(), model.KindTdd, day, day, model.Aggregate{"Go": 2}))

	got := drain(t, m, "github-tdd", 1)
	assert.Equal(t, "Go", got[0]["language"])
	assert.Equal(t, float64(2), got[0]["project_count"])
}

func TestPublish_WindowKinds(t *testing.T) {
	for _, kind := range []model.Kind{model.KindLang, model.KindTddCicd} {
		t.Run(string(kind), func(t *testing.T) {
			m := transport.NewMemory()
			p := newTestPublisher(t, m)

			require.NoError(t, p.Publish(context.Background(), kind, day, day.AddDate(0, 0, 1), model.Aggregate{"Go": 5, "Python": 1}))

			got := drain(t, m, p.Config.Kafka.Topics.For(string(kind)), 1)
			assert.Equal(t, "2024-03-10", got[0]["from"])
			assert.Equal(t, "2024-03-11", got[0]["to"])
			assert.Equal(t, map[string]interface{}{"Go": float64(5), "Python": float64(1)}, got[0]["languages"])
		})
	}
}

func TestMessages_EmptyAggregate(t *testing.T) {
	p := newTestPublisher(t, transport.NewMemory())

	payloads, err := p.Messages(model.KindTdd, day, day, model.NewAggregate())
	require.NoError(t, err)
	assert.Empty(t, payloads)

	payloads, err = p.Messages(model.KindLang, day, day, model.NewAggregate())
	require.NoError(t, err)
	require.Len(t, payloads, 1)
	assert.Contains(t, string(payloads[0]), `"languages":{}`)
}

type failingTransport struct {
	transport.Transport
	calls int
}

func (f *failingTransport) Publish(context.Context, string, []byte) error {
	f.calls++
	if f.calls == 1 {
		return errors.New("broker unavailable")
	}
	return nil
}

func TestPublish_FailuresAreCounted(t *testing.T) {
	tr := &failingTransport{}
	p := newTestPublisher(t, tr)

	err := p.Publish(context.Background(), model.KindCommits, day, day, model.Aggregate{"a/1": 1, "a/2": 2, "a/3": 3})
	require.NoError(t, err)
	assert.EqualValues(t, 1, p.Failed())
	assert.EqualValues(t, 2, p.Published())
}

func TestPublish_UnknownKind(t *testing.T) {
	p := newTestPublisher(t, transport.NewMemory())
	assert.Error(t, p.Publish(context.Background(), model.Kind("stars"), day, day, nil))
}

func TestMessages_ShapeFollowsKind(t *testing.T) {
	p := newTestPublisher(t, transport.NewMemory())
	agg := model.Aggregate{"k1": 2, "k2": 1}

	for _, kind := range model.Kinds {
		payloads, err := p.Messages(kind, day, day, agg)
		require.NoError(t, err)
		if kind.PerEntry() {
			assert.Len(t, payloads, 2, kind)
		} else {
			require.Len(t, payloads, 1, kind)
			assert.Contains(t, string(payloads[0]), `"languages":{"k1":2,"k2":1}`, kind)
		}
	}

	_, err := p.Messages(model.Kind("stars"), day, day, agg)
	assert.Error(t, err)
}
