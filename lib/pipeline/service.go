package pipeline

import (
	"context"
	"log/slog"

	"github.com/VictoriaMetrics/metrics"

	"github.com/ValentinKolb/dMerge/lib/logger"
	"github.com/ValentinKolb/dMerge/lib/store"
)

var (
	mergesTotal        = metrics.NewCounter("dmerge_merges_total")
	mergesSkippedTotal = metrics.NewCounter("dmerge_merges_skipped_total")
)

// IFetcher retrieves the latest Data B document. Implementations must resolve
// transient failures internally (retry, then fall back to the cached value) -
// the returned error is reserved for storage failures and cancellation.
// The boolean reports whether any document (fresh or cached) is available.
type IFetcher interface {
	FetchWithRetry(ctx context.Context) (doc Document, ok bool, err error)
}

// Service composes the fetcher and the merge step into the refresh operation
// that both the HTTP layer (on-demand) and the scheduler (periodic) invoke.
type Service struct {
	store   store.IStore
	fetcher IFetcher
	log     *slog.Logger
}

// NewService creates the pipeline orchestrator on top of a store and a fetcher.
func NewService(s store.IStore, fetcher IFetcher) *Service {
	return &Service{
		store:   s,
		fetcher: fetcher,
		log:     logger.Get("pipeline"),
	}
}

// SaveDataA persists a newly submitted Data A document and immediately
// recomputes Data C. Data B is deliberately not re-fetched on this path; the
// merge runs against whatever Data B is currently cached.
func (svc *Service) SaveDataA(ctx context.Context, doc Document) error {
	value, err := EncodeDocument(doc)
	if err != nil {
		return err
	}
	if err := svc.store.Put(store.KeyDataA, value); err != nil {
		return err
	}
	svc.log.Debug("stored new data A document", "keys", len(doc))
	return svc.Merge(ctx)
}

// Merge reads the current Data A and Data B documents and publishes their
// shallow union (B wins on key collision) under Data C. If either input is
// absent the merge is skipped and Data C stays untouched - the pipeline never
// publishes a merge with a missing side. Re-running with unchanged inputs
// rewrites an identical Data C, so the operation is idempotent.
func (svc *Service) Merge(_ context.Context) error {
	dataA, okA, err := svc.loadDocument(store.KeyDataA)
	if err != nil {
		return err
	}
	dataB, okB, err := svc.loadDocument(store.KeyDataB)
	if err != nil {
		return err
	}

	if !okA || !okB {
		mergesSkippedTotal.Inc()
		svc.log.Info("merge skipped: input missing", "data_a", okA, "data_b", okB)
		return nil
	}

	merged := MergeDocuments(dataA, dataB)
	value, err := EncodeDocument(merged)
	if err != nil {
		return err
	}
	if err := svc.store.Put(store.KeyDataC, value); err != nil {
		return err
	}

	mergesTotal.Inc()
	svc.log.Debug("published merged document", "keys", len(merged))
	return nil
}

// FetchAndMerge is the scheduled refresh operation: fetch Data B (terminating
// via fresh fetch or cache fallback), then merge. A stale Data B still
// participates in the merge. Only errors not absorbed by the fetcher's
// fallback path - storage failures and cancellation - propagate.
func (svc *Service) FetchAndMerge(ctx context.Context) error {
	if _, _, err := svc.fetcher.FetchWithRetry(ctx); err != nil {
		return err
	}
	return svc.Merge(ctx)
}

// DataC returns the current merged document as stored JSON text. The boolean
// reports whether a merged document has been published yet.
func (svc *Service) DataC() ([]byte, bool, error) {
	return svc.store.Get(store.KeyDataC)
}

// loadDocument reads and decodes one input document from the store.
func (svc *Service) loadDocument(key string) (Document, bool, error) {
	value, loaded, err := svc.store.Get(key)
	if err != nil || !loaded {
		return nil, false, err
	}
	doc, err := DecodeDocument(value)
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}
