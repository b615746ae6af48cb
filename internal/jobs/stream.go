package jobs

import (
	"context"
	"time"

	"kollektor/internal/models"
)

// Streamer turns the log store's cursor reads into a push protocol:
// poll-and-diff against the per-job sequence, one loop per observer.
// Deliberately polling rather than pub/sub: a job emits hundreds to
// low thousands of lines and has few observers, so a fan-out broker
// would buy nothing. Observers are independent cursors; dropping one
// does not affect others or the capture itself.
type Streamer struct {
	jobs     JobStore
	logs     LogStore
	interval time.Duration
}

func NewStreamer(jobs JobStore, logs LogStore, interval time.Duration) *Streamer {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Streamer{jobs: jobs, logs: logs, interval: interval}
}

// Stream delivers every log line with seq > after to send, in order,
// then calls done exactly once with the terminal status. The status is
// read before the lines on each pass, so by the time a terminal status
// is observed every line persisted up to process exit has already been
// delivered. Returns when the job ends, a callback fails, or ctx is
// cancelled. ErrNotFound for an unknown job id.
func (s *Streamer) Stream(ctx context.Context, jobID, after int64, send func(models.LogLine) error, done func(models.Status) error) error {
	cursor := after
	for {
		job, err := s.jobs.Get(ctx, jobID)
		if err != nil {
			return err
		}
		if job == nil {
			return ErrNotFound
		}
		status := job.Status

		lines, err := s.logs.LinesSince(ctx, jobID, cursor)
		if err != nil {
			return err
		}
		for _, line := range lines {
			if err := send(line); err != nil {
				return err
			}
			cursor = line.Seq
		}

		if status.IsTerminal() {
			return done(status)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.interval):
		}
	}
}
