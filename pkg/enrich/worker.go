// Package enrich runs the background enrichment pipeline: a polling worker
// loop that claims queued analysis tasks, calls the vision model, and folds
// the results back into the catalog.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/stickerd/internal/logger"
	"github.com/marmos91/stickerd/internal/telemetry"
	"github.com/marmos91/stickerd/pkg/blob"
	"github.com/marmos91/stickerd/pkg/catalog"
	"github.com/marmos91/stickerd/pkg/catalog/models"
	"github.com/marmos91/stickerd/pkg/imaging"
	"github.com/marmos91/stickerd/pkg/metrics"
	"github.com/marmos91/stickerd/pkg/vision"
)

// State is the lifecycle state of the worker loop.
type State string

const (
	StateRunning State = "RUNNING"
	StatePaused  State = "PAUSED"
	StateStopped State = "STOPPED"
)

// Poll loop sleeps. The loop wakes frequently while work might appear and
// backs off when it cannot make progress.
const (
	pausedSleep    = 2 * time.Second
	capacitySleep  = 1 * time.Second
	idleSleep      = 2 * time.Second
	pollErrorSleep = 5 * time.Second
)

// Config holds the worker tunables.
type Config struct {
	// Concurrency is the maximum number of tasks processed at once.
	// Default: 3
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`

	// BatchDelay is the pause between consecutive task dispatches within
	// one poll round. Default: 100ms
	BatchDelay time.Duration `mapstructure:"batch_delay" yaml:"batch_delay"`

	// MaxAttempts is the attempt budget before a task goes terminal FAILED.
	// Default: 3
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts"`

	// BackoffBase is the first retry delay; it doubles per failed attempt.
	// Default: 2s
	BackoffBase time.Duration `mapstructure:"backoff_base" yaml:"backoff_base"`

	// StartPaused starts the loop in PAUSED state.
	StartPaused bool `mapstructure:"start_paused" yaml:"start_paused"`
}

// ApplyDefaults fills zero values with defaults.
func (c *Config) ApplyDefaults() {
	if c.Concurrency <= 0 {
		c.Concurrency = 3
	}
	if c.BatchDelay <= 0 {
		c.BatchDelay = 100 * time.Millisecond
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 2 * time.Second
	}
}

// Worker is the polling loop that drains the task queue.
//
// Concurrency model: one goroutine polls; each claimed task is processed on
// its own goroutine. The active counter and the in-flight id set keep the
// loop from over-committing or double-dispatching a task it already owns.
// Cross-process safety does not rely on either: the database claim is the
// only authority on task ownership.
type Worker struct {
	catalog *catalog.Catalog
	vision  vision.Client
	pm      *metrics.PipelineMetrics
	cfg     Config

	paused      atomic.Bool
	stopped     atomic.Bool
	concurrency atomic.Int64
	batchDelay  atomic.Int64 // nanoseconds

	active atomic.Int64

	mu       sync.Mutex
	inFlight map[string]struct{}

	wg        sync.WaitGroup
	stopCh    chan struct{}
	stoppedCh chan struct{}
	started   bool

	// now is replaceable in tests.
	now func() time.Time
}

// NewWorker creates a worker (not yet started).
func NewWorker(c *catalog.Catalog, vc vision.Client, pm *metrics.PipelineMetrics, cfg Config) *Worker {
	cfg.ApplyDefaults()

	w := &Worker{
		catalog:   c,
		vision:    vc,
		pm:        pm,
		cfg:       cfg,
		inFlight:  make(map[string]struct{}),
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
		now:       time.Now,
	}
	w.concurrency.Store(int64(cfg.Concurrency))
	w.batchDelay.Store(int64(cfg.BatchDelay))
	w.paused.Store(cfg.StartPaused)
	return w
}

// Start resets orphaned PROCESSING tasks and launches the poll loop.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	w.started = true
	w.mu.Unlock()

	// PROCESSING rows at startup belong to a previous process that never
	// finished; hand them back to the queue before polling begins.
	reset, err := w.catalog.Store().ResetStuckTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to reset stuck tasks: %w", err)
	}
	if reset > 0 {
		logger.Info("Reset stuck tasks from previous run", "count", reset)
	}

	go w.loop(ctx)

	logger.Info("Enrichment worker started",
		"concurrency", w.concurrency.Load(),
		"max_attempts", w.cfg.MaxAttempts,
		"backoff_base", w.cfg.BackoffBase.String(),
		"paused", w.paused.Load())
	return nil
}

// Stop signals the loop to exit and waits for in-flight tasks to finish.
// Safe to call multiple times or on a worker that was never started.
func (w *Worker) Stop(timeout time.Duration) {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		w.stopped.Store(true)
		return
	}
	w.mu.Unlock()

	if w.stopped.Swap(true) {
		<-w.stoppedCh
		return
	}
	close(w.stopCh)

	select {
	case <-w.stoppedCh:
		logger.Info("Enrichment worker stopped")
	case <-time.After(timeout):
		logger.Warn("Enrichment worker stop timed out", logger.KeyActive, w.active.Load())
	}
}

// ============================================
// RUNTIME CONTROL
// ============================================

// SetPaused pauses or resumes dispatching. In-flight tasks always run to
// completion; pausing only stops new claims.
func (w *Worker) SetPaused(paused bool) {
	if w.paused.Swap(paused) != paused {
		logger.Info("Enrichment worker pause state changed", "paused", paused)
	}
}

// Paused reports whether dispatching is paused.
func (w *Worker) Paused() bool {
	return w.paused.Load()
}

// State returns the worker lifecycle state.
func (w *Worker) State() State {
	switch {
	case w.stopped.Load():
		return StateStopped
	case w.paused.Load():
		return StatePaused
	default:
		return StateRunning
	}
}

// SetConcurrency overrides the concurrency limit at runtime.
// Values below 1 are rejected. Shrinking does not cancel in-flight tasks;
// the loop just stops dispatching until active drops below the new limit.
func (w *Worker) SetConcurrency(n int) error {
	if n < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", n)
	}
	w.concurrency.Store(int64(n))
	logger.Info("Enrichment worker concurrency changed", "concurrency", n)
	return nil
}

// Concurrency returns the current concurrency limit.
func (w *Worker) Concurrency() int {
	return int(w.concurrency.Load())
}

// SetBatchDelay overrides the inter-dispatch delay at runtime.
// Negative values are rejected; zero disables the delay.
func (w *Worker) SetBatchDelay(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("batch delay must not be negative, got %s", d)
	}
	w.batchDelay.Store(int64(d))
	logger.Info("Enrichment worker batch delay changed", "batch_delay", d.String())
	return nil
}

// BatchDelay returns the current inter-dispatch delay.
func (w *Worker) BatchDelay() time.Duration {
	return time.Duration(w.batchDelay.Load())
}

// ResetConcurrency restores the configured concurrency limit, dropping any
// runtime override.
func (w *Worker) ResetConcurrency() {
	w.concurrency.Store(int64(w.cfg.Concurrency))
	logger.Info("Enrichment worker concurrency reset", "concurrency", w.cfg.Concurrency)
}

// ResetBatchDelay restores the configured inter-dispatch delay, dropping any
// runtime override.
func (w *Worker) ResetBatchDelay() {
	w.batchDelay.Store(int64(w.cfg.BatchDelay))
	logger.Info("Enrichment worker batch delay reset", "batch_delay", w.cfg.BatchDelay.String())
}

// Active returns the number of tasks currently being processed.
func (w *Worker) Active() int {
	return int(w.active.Load())
}

// ============================================
// POLL LOOP
// ============================================

func (w *Worker) loop(ctx context.Context) {
	defer close(w.stoppedCh)
	// In-flight tasks finish before the loop reports stopped.
	defer w.wg.Wait()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		if w.paused.Load() {
			w.sleep(pausedSleep)
			continue
		}

		free := w.concurrency.Load() - w.active.Load()
		if free <= 0 {
			w.sleep(capacitySleep)
			continue
		}

		// Over-fetch so claims lost to sibling workers still leave enough
		// candidates to fill local capacity.
		tasks, err := w.catalog.Store().FetchEligibleTasks(ctx, int(2*free))
		if err != nil {
			logger.Error("Task poll failed", "error", err)
			w.sleep(pollErrorSleep)
			continue
		}
		if len(tasks) == 0 {
			w.sleep(idleSleep)
			continue
		}

		claimed := 0
		for _, task := range tasks {
			if w.active.Load() >= w.concurrency.Load() {
				break
			}
			if !w.markInFlight(task.ID) {
				continue
			}

			ok, err := w.catalog.Store().TryClaim(ctx, task.ID)
			if err != nil {
				w.unmarkInFlight(task.ID)
				logger.Error("Task claim failed", logger.KeyTaskID, task.ID, "error", err)
				continue
			}
			if !ok {
				// Another worker won the row.
				w.unmarkInFlight(task.ID)
				continue
			}

			claimed++
			w.active.Add(1)
			w.pm.TaskStarted()
			w.wg.Add(1)
			go w.run(ctx, task)

			if delay := w.BatchDelay(); delay > 0 {
				w.sleep(delay)
			}
		}

		if claimed > 0 {
			logger.Debug("Dispatched tasks",
				logger.KeyClaimed, claimed,
				logger.KeyActive, w.active.Load())
		}
		w.publishQueueDepth(ctx)
	}
}

// sleep waits for d unless the worker is stopping.
func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}

func (w *Worker) markInFlight(taskID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.inFlight[taskID]; ok {
		return false
	}
	w.inFlight[taskID] = struct{}{}
	return true
}

func (w *Worker) unmarkInFlight(taskID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.inFlight, taskID)
}

func (w *Worker) publishQueueDepth(ctx context.Context) {
	if w.pm == nil {
		return
	}
	stats, err := w.catalog.Store().TaskStats(ctx)
	if err != nil {
		return
	}
	w.pm.SetQueueDepth(string(models.TaskPending), stats.Pending)
	w.pm.SetQueueDepth(string(models.TaskProcessing), stats.Processing)
	w.pm.SetQueueDepth(string(models.TaskSucceeded), stats.Succeeded)
	w.pm.SetQueueDepth(string(models.TaskFailed), stats.Failed)
}

// ============================================
// TASK EXECUTION
// ============================================

// terminalError marks a failure that retrying cannot repair. The worker
// fails such a task immediately instead of burning the retry budget on it.
type terminalError struct {
	err error
}

func (e *terminalError) Error() string {
	return e.err.Error()
}

func (e *terminalError) Unwrap() error {
	return e.err
}

// run executes one claimed task and records its outcome.
func (w *Worker) run(ctx context.Context, task *models.AITask) {
	defer w.wg.Done()
	defer w.pm.TaskFinished()
	defer w.active.Add(-1)
	defer w.unmarkInFlight(task.ID)

	if err := w.catalog.Store().TouchProcessing(ctx, task.ID); err != nil {
		logger.Warn("Failed to touch processing task", logger.KeyTaskID, task.ID, "error", err)
	}

	err := w.processTask(ctx, task)
	if err == nil {
		if err := w.catalog.Store().CompleteTaskSuccess(ctx, task.ID); err != nil {
			logger.Error("Failed to mark task succeeded", logger.KeyTaskID, task.ID, "error", err)
			return
		}
		w.pm.RecordCompleted("succeeded")
		logger.Info("Enrichment task succeeded",
			logger.KeyTaskID, task.ID,
			logger.KeyImageID, task.EmojiID)
		return
	}

	var term *terminalError
	if errors.As(err, &term) {
		if failErr := w.catalog.Store().CompleteTaskTerminal(ctx, task.ID, err); failErr != nil {
			logger.Error("Failed to record terminal task failure", logger.KeyTaskID, task.ID, "error", failErr)
			return
		}
		w.pm.RecordCompleted("failed")
		logger.Error("Enrichment task failed terminally",
			logger.KeyTaskID, task.ID,
			logger.KeyImageID, task.EmojiID,
			"error", err)
		return
	}

	logger.Warn("Enrichment task attempt failed",
		logger.KeyTaskID, task.ID,
		logger.KeyImageID, task.EmojiID,
		logger.KeyAttempts, task.Attempts+1,
		"error", err)

	if failErr := w.catalog.Store().CompleteTaskFail(ctx, task.ID, err, w.cfg.MaxAttempts, w.cfg.BackoffBase); failErr != nil {
		logger.Error("Failed to record task failure", logger.KeyTaskID, task.ID, "error", failErr)
		return
	}

	if after, getErr := w.catalog.Store().GetTask(ctx, task.ID); getErr == nil && after.Status == models.TaskFailed {
		w.pm.RecordCompleted("failed")
		logger.Error("Enrichment task exhausted retries",
			logger.KeyTaskID, task.ID,
			logger.KeyImageID, task.EmojiID,
			logger.KeyAttempts, after.Attempts)
	} else {
		w.pm.RecordRetry()
	}
}

// processTask runs the analysis for one task: result cache first, then the
// model, then the merge into the image row.
//
// The image row having been deleted is not a failure; the cache write and
// the task's terminal status still happen, so a re-upload of the same bytes
// gets the result for free.
func (w *Worker) processTask(ctx context.Context, task *models.AITask) error {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanTask)
	defer span.End()
	telemetry.SetAttributes(ctx,
		telemetry.AttrTaskID.String(task.ID),
		telemetry.AttrImageID.String(task.EmojiID),
		telemetry.AttrHash.String(task.ImageHash),
		telemetry.AttrAttempts.Int(task.Attempts))

	result, err := w.cachedResult(ctx, task.ImageHash)
	if err != nil {
		return err
	}
	telemetry.SetAttributes(ctx, telemetry.AttrCacheHit.Bool(result != nil))

	if result == nil {
		data, err := w.catalog.Blobs().Read(ctx, task.ImagePath)
		if err != nil {
			if errors.Is(err, blob.ErrNotFound) {
				// No retry brings the file back.
				return &terminalError{err: fmt.Errorf("image file missing: %s", task.ImagePath)}
			}
			return fmt.Errorf("failed to read image: %w", err)
		}

		frames := imaging.PrepareFrames(data, catalog.MaxSampledFrames)

		start := w.now()
		result, err = w.vision.Analyze(ctx, frames)
		w.pm.ObserveVisionCall(w.now().Sub(start), err)
		if err != nil {
			return fmt.Errorf("vision analysis failed: %w", err)
		}

		resultJSON, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to serialize result: %w", err)
		}
		if err := w.catalog.Store().PutResult(ctx, task.ImageHash, string(resultJSON)); err != nil {
			return fmt.Errorf("failed to cache result: %w", err)
		}
	}

	if _, err := w.catalog.ApplyResult(ctx, task.EmojiID, result); err != nil {
		return fmt.Errorf("failed to apply result: %w", err)
	}
	return nil
}

// cachedResult returns the decoded cached result for a hash, or nil on miss.
// A corrupt cache row counts as a miss so the task re-analyzes.
func (w *Worker) cachedResult(ctx context.Context, hash string) (*vision.Result, error) {
	cached, err := w.catalog.Store().GetResult(ctx, hash)
	if err != nil {
		if errors.Is(err, models.ErrResultNotFound) {
			w.pm.RecordCacheLookup(false)
			return nil, nil
		}
		return nil, err
	}

	var result vision.Result
	if err := json.Unmarshal([]byte(cached.ResultJSON), &result); err != nil {
		logger.Warn("Discarding corrupt cached result", logger.KeyHash, hash, "error", err)
		w.pm.RecordCacheLookup(false)
		return nil, nil
	}
	w.pm.RecordCacheLookup(true)
	return &result, nil
}
