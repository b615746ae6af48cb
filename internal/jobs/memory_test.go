package jobs_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"kollektor/internal/models"
)

// In-memory stores standing in for the Postgres layer. They keep the
// same contracts: atomic check-and-create, conditional finalize,
// gap-free log sequences.

type memJobs struct {
	mu   sync.Mutex
	next int64
	rows map[int64]*models.Job
}

func newMemJobs() *memJobs {
	return &memJobs{rows: make(map[int64]*models.Job)}
}

func (m *memJobs) CreateExclusive(_ context.Context, kind string, params json.RawMessage) (*models.Job, *models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var blocking *models.Job
	for _, row := range m.rows {
		if !row.Status.IsTerminal() && (blocking == nil || row.ID < blocking.ID) {
			blocking = row
		}
	}
	if blocking != nil {
		cp := *blocking
		return nil, &cp, nil
	}

	m.next++
	job := &models.Job{
		ID:         m.next,
		Kind:       kind,
		Status:     models.StatusPending,
		ParamsJSON: params,
		CreatedAt:  time.Now().UTC(),
	}
	m.rows[job.ID] = job
	cp := *job
	return &cp, nil, nil
}

func (m *memJobs) Get(_ context.Context, id int64) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (m *memJobs) MarkRunning(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return errors.New("no such job")
	}
	if row.Status == models.StatusPending {
		row.Status = models.StatusRunning
		row.StartedAt = &at
		row.LastHeartbeat = &at
	}
	return nil
}

func (m *memJobs) Finalize(_ context.Context, id int64, status models.Status, exitCode *int, errMsg *string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return false, errors.New("no such job")
	}
	if row.Status.IsTerminal() {
		return false, nil
	}
	row.Status = status
	row.ExitCode = exitCode
	row.ErrorMessage = errMsg
	row.FinishedAt = &at
	return true, nil
}

func (m *memJobs) Running(_ context.Context) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.Status == models.StatusRunning {
			cp := *row
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memJobs) ListActive(_ context.Context) ([]models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var active []models.Job
	for _, row := range m.rows {
		if !row.Status.IsTerminal() {
			active = append(active, *row)
		}
	}
	return active, nil
}

func (m *memJobs) Recent(_ context.Context, limit int) ([]models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 20
	}
	var out []models.Job
	for id := m.next; id > 0 && len(out) < limit; id-- {
		if row, ok := m.rows[id]; ok {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (m *memJobs) Heartbeat(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row, ok := m.rows[id]; ok && row.Status == models.StatusRunning {
		row.LastHeartbeat = &at
	}
	return nil
}

// seed inserts a row directly, bypassing the single-flight gate. For
// crash-recovery tests.
func (m *memJobs) seed(job models.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job.ID > m.next {
		m.next = job.ID
	}
	cp := job
	m.rows[job.ID] = &cp
}

type memLogs struct {
	mu        sync.Mutex
	lines     map[int64][]models.LogLine
	appendErr error
}

func newMemLogs() *memLogs {
	return &memLogs{lines: make(map[int64][]models.LogLine)}
}

func (m *memLogs) Append(_ context.Context, jobID int64, level, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	seq := int64(len(m.lines[jobID])) + 1
	m.lines[jobID] = append(m.lines[jobID], models.LogLine{
		JobID:     jobID,
		Seq:       seq,
		Level:     level,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

func (m *memLogs) LinesSince(_ context.Context, jobID, afterSeq int64) ([]models.LogLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.LogLine
	for _, line := range m.lines[jobID] {
		if line.Seq > afterSeq {
			out = append(out, line)
		}
	}
	return out, nil
}

func (m *memLogs) all(jobID int64) []models.LogLine {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.LogLine(nil), m.lines[jobID]...)
}

func (m *memLogs) failAppends(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendErr = err
}
