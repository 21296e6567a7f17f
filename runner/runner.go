// Package runner hosts the scan worker. The extraction itself is strictly
// sequential; the runner's job is to keep it off the caller's goroutine,
// fan its events out to stats subscribers and propagate the first failure.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/griffgriff5000/Spotlight-on-Outlook/stats"
)

type StageFunc func(context.Context) error

type Runner struct {
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	events chan stats.Event

	workWG  sync.WaitGroup
	statsWG sync.WaitGroup

	errMu sync.Mutex
	err   error

	closeEventsOnce sync.Once
	since           time.Time
}

func New(ctx context.Context, logger *slog.Logger) *Runner {
	ctx, cancel := context.WithCancel(ctx)
	return &Runner{
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		events: make(chan stats.Event, 128),
	}
}

func (r *Runner) Logger() *slog.Logger {
	return r.logger
}

func (r *Runner) Context() context.Context {
	return r.ctx
}

// EmitEvent publishes one event to the stats subscribers. Dropped when the
// run is already cancelled.
func (r *Runner) EmitEvent(evt stats.Event) {
	select {
	case <-r.ctx.Done():
	case r.events <- evt:
	}
}

func (r *Runner) SubscribeStats(name string, fn func(context.Context, <-chan stats.Event) error) {
	r.statsWG.Add(1)
	go func() {
		defer r.statsWG.Done()
		if err := fn(r.ctx, r.events); err != nil && !errors.Is(err, context.Canceled) {
			r.fail(fmt.Errorf("%s stats: %w", name, err))
		}
	}()
}

// AddStage launches one worker goroutine. A stage error fails the whole
// run and cancels the shared context.
func (r *Runner) AddStage(name string, fn StageFunc) {
	r.workWG.Add(1)
	go func() {
		defer r.workWG.Done()
		if err := fn(r.ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.fail(fmt.Errorf("%s stage: %w", name, err))
		}
	}()
}

// Start blocks until all stages finish, drains the stats subscribers and
// returns the first failure.
func (r *Runner) Start() error {
	r.since = time.Now()

	r.workWG.Wait()
	r.closeEvents()
	r.statsWG.Wait()

	r.cancel()

	err := r.err
	duration := time.Since(r.since)
	if err != nil {
		r.logger.Error("scan failed", "duration", duration, "err", err)
		return err
	}

	r.logger.Info("scan completed", "duration", duration)
	return nil
}

func (r *Runner) closeEvents() {
	r.closeEventsOnce.Do(func() {
		close(r.events)
	})
}

func (r *Runner) fail(err error) {
	if err == nil {
		return
	}
	r.errMu.Lock()
	if r.err == nil {
		r.err = err
		r.cancel()
	}
	r.errMu.Unlock()
}
