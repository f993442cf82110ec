package shutdown

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Tracker counts in-flight background work so shutdown can wait for it.
// Checkout and subscription handlers hand their processor calls to Go,
// which keeps the work alive after the HTTP request that accepted it
// has already returned.
type Tracker struct {
	wg         sync.WaitGroup
	shutdownCh chan struct{}
	logger     *zap.Logger
	name       string
	timeout    time.Duration
}

// NewTracker creates a tracker. The timeout bounds each unit of work
// spawned through Go.
func NewTracker(name string, timeout time.Duration, logger *zap.Logger) *Tracker {
	return &Tracker{
		shutdownCh: make(chan struct{}),
		logger:     logger,
		name:       name,
		timeout:    timeout,
	}
}

// Go runs fn on its own goroutine with a fresh context detached from the
// accepting request. Returns false without starting the work when shutdown
// has begun.
func (t *Tracker) Go(fn func(ctx context.Context)) bool {
	select {
	case <-t.shutdownCh:
		return false
	default:
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()
		fn(ctx)
	}()
	return true
}

// ShuttingDown reports whether Shutdown has been called.
func (t *Tracker) ShuttingDown() bool {
	select {
	case <-t.shutdownCh:
		return true
	default:
		return false
	}
}

// Shutdown rejects new work and waits for the in-flight work to finish.
// Returns the context error if the wait outlives ctx.
func (t *Tracker) Shutdown(ctx context.Context) error {
	close(t.shutdownCh)

	t.logger.Info("Waiting for in-flight work to complete",
		zap.String("tracker", t.name),
	)

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("All in-flight work completed",
			zap.String("tracker", t.name),
		)
		return nil
	case <-ctx.Done():
		t.logger.Warn("Shutdown timeout - some work may be incomplete",
			zap.String("tracker", t.name),
		)
		return ctx.Err()
	}
}
