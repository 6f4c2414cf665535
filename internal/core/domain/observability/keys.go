package observability

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewEventKey builds the time-partitioned object key for a raw OTLP blob:
// events/otel/{projectId}/{yyyy}/{mm}/{dd}/{hh}/{uuid}.json. The partition is
// UTC; the UUID keeps concurrent writers from ever colliding on a key.
func NewEventKey(projectID string, now time.Time) string {
	ts := now.UTC()
	return fmt.Sprintf("events/otel/%s/%04d/%02d/%02d/%02d/%s.json",
		projectID, ts.Year(), int(ts.Month()), ts.Day(), ts.Hour(), uuid.NewString())
}
