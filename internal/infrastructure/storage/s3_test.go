package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"traceroot/internal/config"
)

func newTestStore(t *testing.T, endpoint string) *S3Store {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	store, err := NewS3Store(context.Background(), config.S3Config{
		Endpoint:       endpoint,
		Region:         "us-east-1",
		AccessKeyID:    "test",
		SecretKey:      "test",
		Bucket:         "blobs",
		ForcePathStyle: true,
	}, logger)
	require.NoError(t, err)
	return store
}

func TestEnsureBucketRetriesAfterFailure(t *testing.T) {
	var heads atomic.Int64
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		heads.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	store := newTestStore(t, backend.URL)

	// A failure on the first call must not be latched: the next ingest
	// request with a live context has to reach the store again.
	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, store.EnsureBucket(canceled))

	require.NoError(t, store.EnsureBucket(context.Background()))
	assert.GreaterOrEqual(t, heads.Load(), int64(1))
}

func TestEnsureBucketCachesSuccess(t *testing.T) {
	var heads atomic.Int64
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		heads.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	store := newTestStore(t, backend.URL)

	require.NoError(t, store.EnsureBucket(context.Background()))
	seen := heads.Load()
	require.NoError(t, store.EnsureBucket(context.Background()))
	assert.Equal(t, seen, heads.Load(), "a successful check must not hit the store again")
}

func TestEnsureBucketCreatesMissingBucket(t *testing.T) {
	var creates atomic.Int64
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			creates.Add(1)
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	defer backend.Close()

	store := newTestStore(t, backend.URL)

	require.NoError(t, store.EnsureBucket(context.Background()))
	assert.Equal(t, int64(1), creates.Load())
}
