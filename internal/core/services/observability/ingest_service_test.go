package observability

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"traceroot/internal/core/domain/observability"
	appErrors "traceroot/pkg/errors"
)

type fakeBlobStore struct {
	objects map[string][]byte
	putErr  error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: make(map[string][]byte)}
}

func (s *fakeBlobStore) EnsureBucket(ctx context.Context) error { return nil }

func (s *fakeBlobStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	if s.putErr != nil {
		return s.putErr
	}
	s.objects[key] = body
	return nil
}

func (s *fakeBlobStore) PutJSON(ctx context.Context, key string, value any) error {
	return errors.New("not used")
}

func (s *fakeBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	body, ok := s.objects[key]
	if !ok {
		return nil, observability.ErrBlobNotFound
	}
	return body, nil
}

type fakeTaskQueue struct {
	tasks      []observability.IngestTask
	enqueueErr error
}

func (q *fakeTaskQueue) Enqueue(ctx context.Context, task observability.IngestTask) error {
	if q.enqueueErr != nil {
		return q.enqueueErr
	}
	q.tasks = append(q.tasks, task)
	return nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestStoreAndEnqueueHappyPath(t *testing.T) {
	store := newFakeBlobStore()
	queue := &fakeTaskQueue{}
	svc := NewIngestService(store, queue, quietLogger())

	key, err := svc.StoreAndEnqueue(context.Background(), "proj-1", []byte(`{"resourceSpans":[]}`))
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^events/otel/proj-1/\d{4}/\d{2}/\d{2}/\d{2}/`), key)

	assert.Equal(t, []byte(`{"resourceSpans":[]}`), store.objects[key])
	require.Len(t, queue.tasks, 1)
	assert.Equal(t, observability.IngestTask{S3Key: key, ProjectID: "proj-1"}, queue.tasks[0])
}

func TestStoreAndEnqueuePutFailure(t *testing.T) {
	store := newFakeBlobStore()
	store.putErr = errors.New("s3 unavailable")
	queue := &fakeTaskQueue{}
	svc := NewIngestService(store, queue, quietLogger())

	_, err := svc.StoreAndEnqueue(context.Background(), "proj-1", []byte(`{}`))
	require.Error(t, err)

	var appErr *appErrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrorTypeInternal, appErr.Type)
	assert.Empty(t, queue.tasks)
}

// The blob write is the durability boundary: a broken queue must not turn a
// stored payload into a client-visible failure.
func TestStoreAndEnqueueSurvivesEnqueueFailure(t *testing.T) {
	store := newFakeBlobStore()
	queue := &fakeTaskQueue{enqueueErr: errors.New("redis down")}
	svc := NewIngestService(store, queue, quietLogger())

	key, err := svc.StoreAndEnqueue(context.Background(), "proj-1", []byte(`{}`))
	require.NoError(t, err)
	assert.NotEmpty(t, key)
	assert.Contains(t, store.objects, key)
}

func TestStoreAndEnqueueDistinctKeys(t *testing.T) {
	store := newFakeBlobStore()
	queue := &fakeTaskQueue{}
	svc := NewIngestService(store, queue, quietLogger())

	first, err := svc.StoreAndEnqueue(context.Background(), "proj-1", []byte(`{}`))
	require.NoError(t, err)
	second, err := svc.StoreAndEnqueue(context.Background(), "proj-1", []byte(`{}`))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}
