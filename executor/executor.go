// Package executor implements the two concrete module.Executor
// variants spec §4.8 names: a cooperative executor for purely I/O-bound
// or lightweight-concurrency workloads, and a bounded worker-pool
// executor for CPU-bound or externally-throttled work.
package executor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ashgrove-labs/pipeflow/internal/plog"
	"github.com/ashgrove-labs/pipeflow/module"
	"github.com/ashgrove-labs/pipeflow/pipeflowerr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Cooperative spawns each module's Process as a cooperative goroutine
// and awaits completion of all of them, via golang.org/x/sync/errgroup
// (spec §4.8: "spawns each module's process as a cooperative task,
// awaits completion of all").
type Cooperative struct{}

// RunAll implements module.Executor.
func (Cooperative) RunAll(ctx context.Context, mods []module.Module) error {
	return runStage(ctx, mods, func(run func() error) error { return run() })
}

// WorkerPool submits each module's Process to a bounded pool, driving
// it to completion synchronously on whichever worker slot it acquires
// (spec §4.8: "submits each module's process to a bounded pool of
// worker threads"). The pool size is fixed at construction and shared
// across every RunAll call on this instance.
type WorkerPool struct {
	sem *semaphore.Weighted
}

// NewWorkerPool builds a WorkerPool with size concurrent workers. size
// must be at least 1.
func NewWorkerPool(size int64) *WorkerPool {
	if size < 1 {
		size = 1
	}
	return &WorkerPool{sem: semaphore.NewWeighted(size)}
}

// RunAll implements module.Executor.
func (w *WorkerPool) RunAll(ctx context.Context, mods []module.Module) error {
	return runStage(ctx, mods, func(run func() error) error {
		if err := w.sem.Acquire(ctx, 1); err != nil {
			return err
		}
		defer w.sem.Release(1)
		return run()
	})
}

// runStage is the shared fan-out/fan-in: every module in mods runs
// concurrently; the failing modules' errors are recorded while the
// rest of the stage is allowed to finish, then the stage's errors are
// aggregated into a single StageFailed (spec §4.8: "the failing
// module's error is recorded; the remaining stage-mates are allowed to
// finish; then run_all re-raises an aggregated StageFailed").
func runStage(ctx context.Context, mods []module.Module, dispatch func(run func() error) error) error {
	if len(mods) == 0 {
		return nil
	}

	logger := plog.New("executor")
	start := time.Now()

	var (
		g        errgroup.Group
		mu       sync.Mutex
		failures = make(map[string]error)
		stage    = mods[0].ExecutionStage()
	)
	logger.Debug().Int("stage", stage).Int("modules", len(mods)).Msg("stage started")

	for _, m := range mods {
		m := m
		g.Go(func() error {
			return dispatch(func() error {
				if err := m.Process(ctx); err != nil {
					mu.Lock()
					failures[m.Address()] = err
					mu.Unlock()
				}
				return nil
			})
		})
	}

	if err := g.Wait(); err != nil {
		// Only returned for dispatch-level failures (e.g. semaphore
		// acquisition aborted by ctx); module failures are recorded in
		// failures and never returned from the goroutine itself.
		if cancelErr := classifyCancellation(stage, err); cancelErr != nil {
			logger.Error().Int("stage", stage).Dur("elapsed", time.Since(start)).Msg("stage cancelled")
			return cancelErr
		}
		return err
	}

	if len(failures) > 0 {
		for _, cause := range failures {
			if cancelErr := classifyCancellation(stage, cause); cancelErr != nil {
				logger.Error().Int("stage", stage).Dur("elapsed", time.Since(start)).Msg("stage cancelled")
				return cancelErr
			}
		}
		logger.Error().Int("stage", stage).Int("failed", len(failures)).Dur("elapsed", time.Since(start)).Msg("stage failed")
		return pipeflowerr.ErrStageFailed(stage, failures)
	}
	logger.Debug().Int("stage", stage).Dur("elapsed", time.Since(start)).Msg("stage completed")
	return nil
}

// classifyCancellation reports whether err stems from ctx's own
// cancellation or deadline rather than an ordinary module failure,
// returning the matching pipeflowerr runtime error, or nil otherwise
// (spec §8 scenario 5: a module that polls ctx.Done() and stops early
// must surface as Cancelled/Timeout, not StageFailed).
func classifyCancellation(stage int, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return pipeflowerr.ErrTimeout(stage)
	case errors.Is(err, context.Canceled):
		return pipeflowerr.ErrCancelled(stage)
	default:
		return nil
	}
}
