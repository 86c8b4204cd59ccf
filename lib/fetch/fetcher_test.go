package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ValentinKolb/dMerge/lib/store"
	"github.com/ValentinKolb/dMerge/lib/store/memstore"
)

// flakyServer fails the first failCount requests with a 503 and serves body
// with a 200 afterwards. It counts every attempt it sees.
func flakyServer(t *testing.T, failCount int64, body string) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var attempts atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= failCount {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &attempts
}

func TestRetryEarlySuccess(t *testing.T) {
	srv, attempts := flakyServer(t, 1, `{"v":1}`)
	s := memstore.NewMemoryStore()

	f := NewFetcher(srv.URL, 3, time.Millisecond, s)
	doc, ok, err := f.FetchWithRetry(context.Background())

	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 2, attempts.Load(), "expected exactly 2 attempts")
	assert.JSONEq(t, `1`, string(doc["v"]))

	// The fresh document must be persisted under data_b.
	value, loaded, err := s.Get(store.KeyDataB)
	require.NoError(t, err)
	require.True(t, loaded)
	assert.JSONEq(t, `{"v":1}`, string(value))
}

func TestRetryExhaustionFallback(t *testing.T) {
	srv, attempts := flakyServer(t, 1000, `{}`)
	s := memstore.NewMemoryStore()
	require.NoError(t, s.Put(store.KeyDataB, []byte(`{"cached":true}`)))

	const retryDelay = 20 * time.Millisecond
	f := NewFetcher(srv.URL, 3, retryDelay, s)

	start := time.Now()
	doc, ok, err := f.FetchWithRetry(context.Background())
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 3, attempts.Load(), "expected exactly maxRetries attempts")
	assert.JSONEq(t, `true`, string(doc["cached"]))
	// Two waits between three attempts.
	assert.GreaterOrEqual(t, elapsed, 2*retryDelay)

	// The failed refresh must not clobber the cached value.
	value, loaded, err := s.Get(store.KeyDataB)
	require.NoError(t, err)
	require.True(t, loaded)
	assert.JSONEq(t, `{"cached":true}`, string(value))
}

func TestExhaustionWithoutCache(t *testing.T) {
	srv, attempts := flakyServer(t, 1000, `{}`)
	s := memstore.NewMemoryStore()

	f := NewFetcher(srv.URL, 2, time.Millisecond, s)
	doc, ok, err := f.FetchWithRetry(context.Background())

	require.NoError(t, err, "exhaustion without cache is the no-data fallback, not an error")
	assert.False(t, ok)
	assert.Nil(t, doc)
	assert.EqualValues(t, 2, attempts.Load())
}

func TestUnparseableBodyIsFailedAttempt(t *testing.T) {
	var attempts atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		_, _ = w.Write([]byte(`not json`))
	}))
	t.Cleanup(srv.Close)

	s := memstore.NewMemoryStore()
	require.NoError(t, s.Put(store.KeyDataB, []byte(`{"cached":true}`)))

	f := NewFetcher(srv.URL, 2, time.Millisecond, s)
	doc, ok, err := f.FetchWithRetry(context.Background())

	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 2, attempts.Load())
	assert.JSONEq(t, `true`, string(doc["cached"]))
}

func TestStorageFailurePropagates(t *testing.T) {
	srv, _ := flakyServer(t, 0, `{"v":1}`)

	f := NewFetcher(srv.URL, 3, time.Millisecond, &failingStore{})
	_, _, err := f.FetchWithRetry(context.Background())

	require.Error(t, err)
	var storeErr *store.Error
	require.ErrorAs(t, err, &storeErr)
}

func TestCancelDuringRetryWait(t *testing.T) {
	srv, _ := flakyServer(t, 1000, `{}`)
	s := memstore.NewMemoryStore()

	f := NewFetcher(srv.URL, 3, time.Hour, s)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	done := make(chan error, 1)
	go func() {
		_, _, err := f.FetchWithRetry(ctx)
		done <- err
	}()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("FetchWithRetry did not react to cancellation")
	}
}

// failingStore fails every operation with an internal error.
type failingStore struct{}

func (f *failingStore) Put(string, []byte) error {
	return store.NewError(store.RetCInternalError, "disk on fire")
}

func (f *failingStore) Get(string) ([]byte, bool, error) {
	return nil, false, store.NewError(store.RetCInternalError, "disk on fire")
}

func (f *failingStore) Close() error { return nil }
