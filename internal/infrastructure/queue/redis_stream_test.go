package queue

import (
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"traceroot/internal/config"
)

func newTestQueue() *RedisStreamQueue {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewRedisStreamQueue(nil, config.QueueConfig{
		Stream:    "ingest:events",
		Group:     "ingest-workers",
		DLQStream: "ingest:events:dlq",
	}, logger)
}

func TestParseMessage(t *testing.T) {
	q := newTestQueue()

	d, err := q.parseMessage(redis.XMessage{
		ID: "1700000000000-0",
		Values: map[string]interface{}{
			"task": `{"s3_key":"events/otel/proj-1/2026/03/07/09/blob.json","project_id":"proj-1"}`,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "1700000000000-0", d.ID)
	assert.Equal(t, "events/otel/proj-1/2026/03/07/09/blob.json", d.Task.S3Key)
	assert.Equal(t, "proj-1", d.Task.ProjectID)
	assert.NotEmpty(t, d.Raw)
}

func TestParseMessageErrors(t *testing.T) {
	q := newTestQueue()

	tests := []struct {
		name   string
		values map[string]interface{}
	}{
		{"missing task field", map[string]interface{}{"other": "x"}},
		{"task is not a string", map[string]interface{}{"task": 42}},
		{"task is not JSON", map[string]interface{}{"task": "not json"}},
		{"missing s3_key", map[string]interface{}{"task": `{"project_id":"proj-1"}`}},
		{"missing project_id", map[string]interface{}{"task": `{"s3_key":"events/otel/x.json"}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := q.parseMessage(redis.XMessage{ID: "1-0", Values: tt.values})
			require.Error(t, err)
			// The id survives so the message can still be dead lettered.
			assert.Equal(t, "1-0", d.ID)
		})
	}
}
