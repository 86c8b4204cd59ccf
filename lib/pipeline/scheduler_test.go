package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testInterval = 20 * time.Millisecond

func TestImmediateFirstRun(t *testing.T) {
	ran := make(chan struct{}, 1)

	s := NewScheduler(time.Hour, func(context.Context) error {
		ran <- struct{}{}
		return nil
	})
	s.Start(context.Background())
	defer s.Stop()

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("expected an immediate first run at startup")
	}
}

func TestSingleFlight(t *testing.T) {
	var invocations atomic.Int64
	release := make(chan struct{})

	s := NewScheduler(testInterval, func(context.Context) error {
		invocations.Add(1)
		<-release
		return nil
	})
	s.Start(context.Background())

	// Let several ticks pass while the first run is still blocked. Every one
	// of them must be skipped, not queued.
	time.Sleep(6 * testInterval)
	assert.EqualValues(t, 1, invocations.Load(), "overlapping ticks must be skipped")

	// Once the first run finishes, the following tick proceeds normally.
	close(release)
	require.Eventually(t, func() bool {
		return invocations.Load() >= 2
	}, 5*time.Second, testInterval/2, "scheduler must resume ticking after a long run")

	s.Stop()
}

func TestRunErrorDoesNotStopTicking(t *testing.T) {
	var invocations atomic.Int64

	s := NewScheduler(testInterval, func(context.Context) error {
		invocations.Add(1)
		return errors.New("boom")
	})
	s.Start(context.Background())
	defer s.Stop()

	require.Eventually(t, func() bool {
		return invocations.Load() >= 3
	}, 5*time.Second, testInterval/2, "failing runs must not stop the scheduler")
}

func TestRunPanicDoesNotStopTicking(t *testing.T) {
	var invocations atomic.Int64

	s := NewScheduler(testInterval, func(context.Context) error {
		invocations.Add(1)
		panic("boom")
	})
	s.Start(context.Background())
	defer s.Stop()

	require.Eventually(t, func() bool {
		return invocations.Load() >= 3
	}, 5*time.Second, testInterval/2, "panicking runs must not stop the scheduler")
}

func TestStopDrainsInFlightRun(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool

	s := NewScheduler(time.Hour, func(context.Context) error {
		close(started)
		<-release
		finished.Store(true)
		return nil
	})
	s.Start(context.Background())
	<-started

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a run was still in flight")
	case <-time.After(4 * testInterval):
	}

	close(release)
	select {
	case <-stopped:
		assert.True(t, finished.Load(), "the in-flight run must finish before Stop returns")
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return after the in-flight run finished")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	s := NewScheduler(time.Hour, func(context.Context) error { return nil })
	s.Start(context.Background())
	s.Stop()
	s.Stop()
}
