package pipeline

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ValentinKolb/dMerge/lib/store"
	"github.com/ValentinKolb/dMerge/lib/store/memstore"
)

// stubFetcher lets a test control the fetcher's terminal state and observe
// whether the pipeline invoked it.
type stubFetcher struct {
	doc    Document
	ok     bool
	err    error
	called int
}

func (f *stubFetcher) FetchWithRetry(context.Context) (Document, bool, error) {
	f.called++
	return f.doc, f.ok, f.err
}

func mustDoc(t *testing.T, raw string) Document {
	t.Helper()
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	return doc
}

func seed(t *testing.T, s store.IStore, key, raw string) {
	t.Helper()
	require.NoError(t, s.Put(key, []byte(raw)))
}

func dataC(t *testing.T, s store.IStore) (string, bool) {
	t.Helper()
	value, loaded, err := s.Get(store.KeyDataC)
	require.NoError(t, err)
	return string(value), loaded
}

func TestMergeDocuments(t *testing.T) {
	a := mustDoc(t, `{"x":1,"y":2}`)
	b := mustDoc(t, `{"y":9,"z":3}`)

	merged, err := EncodeDocument(MergeDocuments(a, b))
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":1,"y":9,"z":3}`, string(merged))

	// Inputs are untouched.
	assert.Len(t, a, 2)
	assert.Len(t, b, 2)
}

func TestMergeDocumentsShallow(t *testing.T) {
	a := mustDoc(t, `{"nested":{"keep":1,"a":2}}`)
	b := mustDoc(t, `{"nested":{"b":3}}`)

	merged, err := EncodeDocument(MergeDocuments(a, b))
	require.NoError(t, err)
	// Nested objects are replaced wholesale, not deep-merged.
	assert.JSONEq(t, `{"nested":{"b":3}}`, string(merged))
}

func TestMergePrecedence(t *testing.T) {
	s := memstore.NewMemoryStore()
	seed(t, s, store.KeyDataA, `{"x":1,"y":2}`)
	seed(t, s, store.KeyDataB, `{"y":9,"z":3}`)

	svc := NewService(s, &stubFetcher{})
	require.NoError(t, svc.Merge(context.Background()))

	value, loaded := dataC(t, s)
	require.True(t, loaded)
	assert.JSONEq(t, `{"x":1,"y":9,"z":3}`, value)
}

func TestMergeSkippedWhenInputMissing(t *testing.T) {
	tests := []struct {
		name    string
		present string
	}{
		{"only data A", store.KeyDataA},
		{"only data B", store.KeyDataB},
		{"neither", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := memstore.NewMemoryStore()
			if tt.present != "" {
				seed(t, s, tt.present, `{"x":1}`)
			}

			svc := NewService(s, &stubFetcher{})
			require.NoError(t, svc.Merge(context.Background()), "a skipped merge is not an error")

			_, loaded := dataC(t, s)
			assert.False(t, loaded, "data C must stay absent")
		})
	}
}

func TestMergeSkipLeavesStaleDataC(t *testing.T) {
	s := memstore.NewMemoryStore()
	seed(t, s, store.KeyDataA, `{"x":1}`)
	seed(t, s, store.KeyDataC, `{"stale":true}`)

	svc := NewService(s, &stubFetcher{})
	require.NoError(t, svc.Merge(context.Background()))

	value, loaded := dataC(t, s)
	require.True(t, loaded)
	assert.JSONEq(t, `{"stale":true}`, value, "skipped merge must leave the previous data C untouched")
}

func TestMergeIdempotent(t *testing.T) {
	s := memstore.NewMemoryStore()
	seed(t, s, store.KeyDataA, `{"x":1}`)
	seed(t, s, store.KeyDataB, `{"y":2}`)

	svc := NewService(s, &stubFetcher{})
	require.NoError(t, svc.Merge(context.Background()))
	first, _ := dataC(t, s)

	require.NoError(t, svc.Merge(context.Background()))
	second, _ := dataC(t, s)

	assert.Equal(t, first, second)
}

func TestSaveDataADoesNotFetch(t *testing.T) {
	s := memstore.NewMemoryStore()
	seed(t, s, store.KeyDataB, `{"y":9}`)

	fetcher := &stubFetcher{}
	svc := NewService(s, fetcher)

	require.NoError(t, svc.SaveDataA(context.Background(), mustDoc(t, `{"x":1,"y":2}`)))

	// The on-demand path merges against the cached data B without re-fetching.
	assert.Zero(t, fetcher.called)
	value, loaded := dataC(t, s)
	require.True(t, loaded)
	assert.JSONEq(t, `{"x":1,"y":9}`, value)
}

func TestFetchAndMerge(t *testing.T) {
	s := memstore.NewMemoryStore()
	seed(t, s, store.KeyDataA, `{"x":1}`)
	seed(t, s, store.KeyDataB, `{"y":2}`)

	fetcher := &stubFetcher{doc: mustDoc(t, `{"y":2}`), ok: true}
	svc := NewService(s, fetcher)

	require.NoError(t, svc.FetchAndMerge(context.Background()))
	assert.Equal(t, 1, fetcher.called)

	value, loaded := dataC(t, s)
	require.True(t, loaded)
	assert.JSONEq(t, `{"x":1,"y":2}`, value)
}

func TestFetchAndMergeRunsMergeAfterFallback(t *testing.T) {
	// Fallback with no data at all: fetch terminates, merge is skipped.
	s := memstore.NewMemoryStore()
	seed(t, s, store.KeyDataA, `{"x":1}`)

	svc := NewService(s, &stubFetcher{ok: false})
	require.NoError(t, svc.FetchAndMerge(context.Background()))

	_, loaded := dataC(t, s)
	assert.False(t, loaded)
}

func TestFetchAndMergePropagatesFetcherError(t *testing.T) {
	s := memstore.NewMemoryStore()
	storeErr := store.NewError(store.RetCInternalError, "disk on fire")

	svc := NewService(s, &stubFetcher{err: storeErr})
	err := svc.FetchAndMerge(context.Background())
	require.ErrorIs(t, err, storeErr)
}

func TestDataC(t *testing.T) {
	s := memstore.NewMemoryStore()
	svc := NewService(s, &stubFetcher{})

	_, loaded, err := svc.DataC()
	require.NoError(t, err)
	assert.False(t, loaded)

	seed(t, s, store.KeyDataC, `{"x":1}`)
	value, loaded, err := svc.DataC()
	require.NoError(t, err)
	require.True(t, loaded)
	assert.JSONEq(t, `{"x":1}`, string(value))
}

func TestDecodeDocumentCorrupt(t *testing.T) {
	_, err := DecodeDocument([]byte(`not json`))
	require.Error(t, err)

	var storeErr *store.Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, store.RetCInternalError, storeErr.Code)
}
