package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"github.com/ValentinKolb/dMerge/lib/logger"
)

var (
	ticksRunTotal     = metrics.NewCounter("dmerge_scheduler_ticks_run_total")
	ticksSkippedTotal = metrics.NewCounter("dmerge_scheduler_ticks_skipped_total")
)

// Job is the operation the scheduler drives on a fixed interval.
type Job func(ctx context.Context) error

// Scheduler triggers a job on a fixed interval with an immediate first run
// and a hard guarantee of at most one in-flight execution: if a run is still
// in progress when the next tick arrives, that tick is skipped rather than
// queued or run in parallel. This protects the merge's read-then-write
// sequence, which is not otherwise transactionally isolated.
type Scheduler struct {
	interval time.Duration
	job      Job
	log      *slog.Logger

	inFlight atomic.Bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	started  atomic.Bool
}

// NewScheduler creates a scheduler for the given job and interval.
func NewScheduler(interval time.Duration, job Job) *Scheduler {
	return &Scheduler{
		interval: interval,
		job:      job,
		log:      logger.Get("scheduler"),
	}
}

// Start begins ticking in the background. The job runs once immediately, then
// once per interval. Start must be called at most once.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		panic("scheduler started twice")
	}

	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.log.Info("scheduler starting", "interval", s.interval)
		s.trigger(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.log.Info("scheduler stopping")
				return
			case <-ticker.C:
				s.trigger(ctx)
			}
		}
	}()
}

// Stop ends the ticking and blocks until any in-flight execution has
// finished (graceful drain). It is safe to call Stop more than once.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// trigger starts one job execution unless a previous one is still running,
// in which case the tick is dropped.
func (s *Scheduler) trigger(ctx context.Context) {
	if !s.inFlight.CompareAndSwap(false, true) {
		ticksSkippedTotal.Inc()
		s.log.Warn("previous run still in progress, skipping tick")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.inFlight.Store(false)
		s.runOnce(ctx)
	}()
}

// runOnce executes the job and contains its failures: an error or panic in
// one scheduled run is reported but must never stop future ticks.
func (s *Scheduler) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("scheduled run panicked", "panic", r)
		}
	}()

	ticksRunTotal.Inc()
	start := time.Now()

	if err := s.job(ctx); err != nil {
		s.log.Error("scheduled run failed", "err", err, "took", time.Since(start))
		return
	}
	s.log.Debug("scheduled run finished", "took", time.Since(start))
}
