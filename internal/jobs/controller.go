package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"kollektor/internal/config"
	"kollektor/internal/models"
)

// Options configures the controller.
type Options struct {
	// Default wall-clock ceiling per job; kinds may override it.
	Timeout time.Duration
	// Interval at which the job worker refreshes the heartbeat row.
	HeartbeatInterval time.Duration
}

// Controller owns the job state machine and the single-flight
// invariant: at most one job is active system-wide. It is the only
// component that mutates job status. Each started job gets one worker
// goroutine that owns the collector process for its whole lifetime.
type Controller struct {
	jobs   JobStore
	logs   LogStore
	kinds  *config.Kinds
	runner Runner
	opts   Options

	mu     sync.Mutex
	active map[int64]*activeJob
}

type activeJob struct {
	handle    Handle
	cancelled bool
}

func NewController(jobs JobStore, logs LogStore, kinds *config.Kinds, runner Runner, opts Options) *Controller {
	if opts.Timeout <= 0 {
		opts.Timeout = time.Hour
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = 15 * time.Second
	}
	return &Controller{
		jobs:   jobs,
		logs:   logs,
		kinds:  kinds,
		runner: runner,
		opts:   opts,
		active: make(map[int64]*activeJob),
	}
}

// Start validates the parameters, claims the single-flight slot and
// hands the job to a background worker. Returns the pending job record
// immediately; the caller never blocks on job completion. A job already
// occupying the slot comes back as *ConflictError carrying that job.
func (c *Controller) Start(ctx context.Context, kind string, params map[string]any) (*models.Job, error) {
	spec, ok := c.kinds.Get(kind)
	if !ok {
		return nil, &ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown job kind %q", kind)}
	}

	if params == nil {
		params = map[string]any{}
	}
	// Validation happens before any job record exists: a rejected
	// start leaves no partial state.
	argv, err := BuildCommand(spec, params)
	if err != nil {
		return nil, err
	}

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, &ValidationError{Field: "parameters", Reason: err.Error()}
	}

	job, blocking, err := c.jobs.CreateExclusive(ctx, kind, paramsJSON)
	if err != nil {
		return nil, err
	}
	if blocking != nil {
		return nil, &ConflictError{Running: blocking}
	}

	go c.run(job.ID, argv, spec.JobTimeout(c.opts.Timeout))

	return job, nil
}

// run is the per-job worker. It owns the collector process exclusively:
// spawn, line capture, exit handling and the single finalize call all
// happen here.
func (c *Controller) run(jobID int64, argv []string, timeout time.Duration) {
	ctx := context.Background()

	if err := c.logs.Append(ctx, jobID, models.LevelInfo, "starting job: "+strings.Join(argv, " ")); err != nil {
		c.finalize(ctx, jobID, models.StatusFailed, nil, strPtr(err.Error()))
		return
	}

	handle, err := c.runner.Spawn(jobID, argv, timeout)
	if err != nil {
		// Never left pending: a spawn failure is an immediate
		// terminal failure.
		c.appendLog(ctx, jobID, models.LevelError, err.Error())
		c.finalize(ctx, jobID, models.StatusFailed, nil, strPtr(err.Error()))
		return
	}

	c.mu.Lock()
	c.active[jobID] = &activeJob{handle: handle}
	c.mu.Unlock()

	if err := c.jobs.MarkRunning(ctx, jobID, time.Now().UTC()); err != nil {
		log.Printf("job %d: failed to mark running: %v", jobID, err)
	}

	stopHeartbeat := c.startHeartbeat(jobID)
	outcome := handle.Capture(ctx)
	stopHeartbeat()

	c.mu.Lock()
	cancelled := c.active[jobID].cancelled
	delete(c.active, jobID)
	c.mu.Unlock()

	exitCode := outcome.ExitCode

	switch {
	case cancelled:
		c.appendLog(ctx, jobID, models.LevelWarning, "job was cancelled")
		c.finalize(ctx, jobID, models.StatusCancelled, &exitCode, nil)
	case outcome.Err != nil:
		c.appendLog(ctx, jobID, models.LevelError, "job failed: "+outcome.Err.Error())
		c.finalize(ctx, jobID, models.StatusFailed, &exitCode, strPtr(outcome.Err.Error()))
	case outcome.TimedOut:
		msg := fmt.Sprintf("%s (limit %s)", ErrTimeout.Error(), timeout)
		c.appendLog(ctx, jobID, models.LevelError, msg)
		c.finalize(ctx, jobID, models.StatusFailed, &exitCode, strPtr(msg))
	case exitCode == 0:
		c.appendLog(ctx, jobID, models.LevelSuccess, "job finished successfully")
		c.finalize(ctx, jobID, models.StatusCompleted, &exitCode, nil)
	default:
		c.appendLog(ctx, jobID, models.LevelError, fmt.Sprintf("job failed (exit code %d)", exitCode))
		c.finalize(ctx, jobID, models.StatusFailed, &exitCode, nil)
	}
}

// finalize applies the terminal transition. Idempotent: the store only
// updates non-terminal rows, so a duplicate call is a no-op. Summary
// log lines are appended by the caller before this, so a streaming
// observer that sees the terminal status can already read every line.
func (c *Controller) finalize(ctx context.Context, jobID int64, status models.Status, exitCode *int, errMsg *string) {
	changed, err := c.jobs.Finalize(ctx, jobID, status, exitCode, errMsg, time.Now().UTC())
	if err != nil {
		log.Printf("job %d: finalize failed: %v", jobID, err)
		return
	}
	if changed {
		log.Printf("job %d: %s", jobID, status)
	}
}

func (c *Controller) appendLog(ctx context.Context, jobID int64, level, message string) {
	if err := c.logs.Append(ctx, jobID, level, message); err != nil {
		log.Printf("job %d: failed to append log: %v", jobID, err)
	}
}

func (c *Controller) startHeartbeat(jobID int64) (stop func()) {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(c.opts.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := c.jobs.Heartbeat(context.Background(), jobID, time.Now().UTC()); err != nil {
					log.Printf("job %d: heartbeat failed: %v", jobID, err)
				}
			}
		}
	}()
	return func() { close(done) }
}

// Cancel signals the running job's process group to terminate. The
// worker's exit handling performs the finalize with the cancelled
// outcome regardless of the exit code.
func (c *Controller) Cancel(ctx context.Context, jobID int64) error {
	c.mu.Lock()
	a, ok := c.active[jobID]
	if !ok {
		c.mu.Unlock()
		return ErrNotFound
	}
	a.cancelled = true
	handle := a.handle
	c.mu.Unlock()

	c.appendLog(ctx, jobID, models.LevelWarning, "cancel requested, stopping collector")
	handle.Terminate()
	return nil
}

// CurrentRunning returns the single running job, or nil.
func (c *Controller) CurrentRunning(ctx context.Context) (*models.Job, error) {
	return c.jobs.Running(ctx)
}

// Owns reports whether this process hosts the worker for the job.
func (c *Controller) Owns(jobID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.active[jobID]
	return ok
}

// RecoverInterrupted finalizes jobs a previous server process left
// behind. Called once at boot, before any new job can start.
func (c *Controller) RecoverInterrupted(ctx context.Context) error {
	active, err := c.jobs.ListActive(ctx)
	if err != nil {
		return err
	}
	for _, job := range active {
		msg := "job interrupted by server restart"
		c.appendLog(ctx, job.ID, models.LevelError, msg)
		c.finalize(ctx, job.ID, models.StatusFailed, nil, &msg)
	}
	return nil
}

// ReapStale finalizes active jobs whose worker is gone: not owned by
// this process and without a heartbeat for staleAfter. Safety net for
// rows orphaned without a clean restart.
func (c *Controller) ReapStale(ctx context.Context, staleAfter time.Duration) error {
	active, err := c.jobs.ListActive(ctx)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, job := range active {
		if c.Owns(job.ID) {
			continue
		}
		ref := job.CreatedAt
		if job.StartedAt != nil {
			ref = *job.StartedAt
		}
		if job.LastHeartbeat != nil {
			ref = *job.LastHeartbeat
		}
		if now.Sub(ref) < staleAfter {
			continue
		}
		msg := "job abandoned: worker heartbeat is stale"
		c.appendLog(ctx, job.ID, models.LevelError, msg)
		c.finalize(ctx, job.ID, models.StatusFailed, nil, &msg)
	}
	return nil
}

func strPtr(s string) *string {
	return &s
}
