package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thep200/github-stats-pipeline/cfg"
	"github.com/thep200/github-stats-pipeline/pkg/log"
)

func TestNewProducer_NoBrokers(t *testing.T) {
	_, err := NewProducer(&cfg.Config{}, log.NopLogger{})
	assert.ErrorIs(t, err, ErrNoBrokers)
}

func TestNewConsumer_NoBrokers(t *testing.T) {
	_, err := NewConsumer(&cfg.Config{}, log.NopLogger{}, []string{"a"}, "group")
	assert.ErrorIs(t, err, ErrNoBrokers)
}

func TestNewProducer_DoesNotDial(t *testing.T) {
	config := &cfg.Config{Kafka: cfg.Kafka{Brokers: []string{"127.0.0.1:1"}}}
	p, err := NewProducer(config, log.NopLogger{})
	require.NoError(t, err)
	assert.NoError(t, p.Close())
}
