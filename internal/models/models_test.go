package models_test

import (
	"testing"
	"time"

	"kollektor/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestStatusIsTerminal(t *testing.T) {
	assert.False(t, models.StatusPending.IsTerminal())
	assert.False(t, models.StatusRunning.IsTerminal())
	assert.True(t, models.StatusCompleted.IsTerminal())
	assert.True(t, models.StatusFailed.IsTerminal())
	assert.True(t, models.StatusCancelled.IsTerminal())
}

func TestJobFillDuration(t *testing.T) {
	var job models.Job
	job.FillDuration()
	assert.Nil(t, job.DurationSeconds)

	start := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	job.StartedAt = &start
	job.FillDuration()
	assert.Nil(t, job.DurationSeconds)

	end := start.Add(90 * time.Second)
	job.FinishedAt = &end
	job.FillDuration()
	if assert.NotNil(t, job.DurationSeconds) {
		assert.Equal(t, 90.0, *job.DurationSeconds)
	}
}

func TestCheckpointDone(t *testing.T) {
	now := time.Now().UTC()
	errMsg := "scrape failed"

	cases := []struct {
		name string
		cp   models.Checkpoint
		want bool
	}{
		{"unprocessed", models.Checkpoint{}, false},
		{"processed", models.Checkpoint{ProcessedAt: &now}, true},
		{"processed with error", models.Checkpoint{ProcessedAt: &now, ErrorMessage: &errMsg}, false},
		{"error only", models.Checkpoint{ErrorMessage: &errMsg}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.cp.Done())
		})
	}
}
