package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"github.com/ValentinKolb/dMerge/lib/logger"
	"github.com/ValentinKolb/dMerge/lib/pipeline"
	"github.com/ValentinKolb/dMerge/lib/store"
)

var (
	attemptsTotal  = metrics.NewCounter("dmerge_fetch_attempts_total")
	failuresTotal  = metrics.NewCounter("dmerge_fetch_failures_total")
	successTotal   = metrics.NewCounter("dmerge_fetch_success_total")
	fallbacksTotal = metrics.NewCounter("dmerge_fetch_fallbacks_total")
)

// bodyLimit caps how much of a remote response is read. The remote document
// is a JSON object, not a bulk download.
const bodyLimit = 8 << 20

// Fetcher retrieves the latest Data B document from the configured remote
// endpoint, tolerating transient failures: it retries a bounded number of
// times and on exhaustion falls back to the last successfully cached
// document. It implements pipeline.IFetcher.
type Fetcher struct {
	url        string
	maxRetries int
	retryDelay time.Duration
	store      store.IStore
	client     *http.Client
	log        *slog.Logger
}

// NewFetcher creates a fetcher for the given remote URL. maxRetries is the
// total number of attempts before falling back; retryDelay is the wait
// between two attempts.
func NewFetcher(url string, maxRetries int, retryDelay time.Duration, s store.IStore) *Fetcher {
	return &Fetcher{
		url:        url,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		store:      s,
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		log: logger.Get("fetch"),
	}
}

// FetchWithRetry attempts to fetch the remote Data B document.
//
// On the first successful attempt (2xx status, parseable JSON object) the
// document is persisted under "data_b" and returned - the terminal success
// state. After maxRetries failed attempts the last cached "data_b" document
// is returned instead (ok=false if none was ever fetched) - the terminal
// fallback state. Between attempts the fetcher waits retryDelay without
// blocking other work in the process.
//
// Transient remote failures never surface to the caller. The returned error
// is reserved for storage failures and context cancellation.
func (f *Fetcher) FetchWithRetry(ctx context.Context) (pipeline.Document, bool, error) {
	f.log.Info("fetching data B", "url", f.url)

	for attempt := 1; ; attempt++ {
		attemptsTotal.Inc()

		doc, err := f.attempt(ctx)
		if err == nil {
			value, err := pipeline.EncodeDocument(doc)
			if err != nil {
				return nil, false, err
			}
			if err := f.store.Put(store.KeyDataB, value); err != nil {
				// A persistence failure is never absorbed by the retry loop.
				return nil, false, err
			}
			successTotal.Inc()
			f.log.Info("fetched data B", "attempt", attempt)
			return doc, true, nil
		}

		failuresTotal.Inc()
		f.log.Warn("attempt to fetch data B failed", "attempt", attempt, "err", err)

		if attempt >= f.maxRetries {
			f.log.Warn("max retries reached, falling back to cached data B")
			return f.fallback()
		}

		f.log.Debug("retrying", "delay", f.retryDelay)
		if err := sleepCtx(ctx, f.retryDelay); err != nil {
			return nil, false, err
		}
	}
}

// attempt performs a single HTTP GET against the remote endpoint.
func (f *Fetcher) attempt(ctx context.Context) (pipeline.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			f.log.Error("failed to close response body", "err", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, bodyLimit))
	if err != nil {
		return nil, err
	}

	doc, err := pipeline.DecodeDocument(body)
	if err != nil {
		// An unparseable body counts as a failed attempt like any other.
		return nil, fmt.Errorf("unparseable body: %v", err)
	}
	return doc, nil
}

// fallback loads whatever was last successfully cached under "data_b".
func (f *Fetcher) fallback() (pipeline.Document, bool, error) {
	fallbacksTotal.Inc()

	value, loaded, err := f.store.Get(store.KeyDataB)
	if err != nil {
		return nil, false, err
	}
	if !loaded {
		f.log.Warn("no cached data B available")
		return nil, false, nil
	}

	doc, err := pipeline.DecodeDocument(value)
	if err != nil {
		return nil, false, err
	}
	f.log.Info("serving cached data B")
	return doc, true, nil
}

// sleepCtx waits for the given duration or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
