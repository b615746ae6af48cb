package scheduler

import (
	"context"
	"log"
	"time"

	"kollektor/internal/jobs"
)

// Scheduler runs the stale-job watchdog: jobs whose worker disappeared
// without finalizing (hard crash, OOM kill) are swept into a failed
// terminal state so the single-flight slot frees up.
type Scheduler struct {
	controller *jobs.Controller
	interval   time.Duration
	stop       chan struct{}
}

func New(controller *jobs.Controller, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		controller: controller,
		interval:   interval,
		stop:       make(chan struct{}),
	}
}

func (s *Scheduler) Start() {
	go s.run()
}

func (s *Scheduler) Stop() {
	close(s.stop)
}

func (s *Scheduler) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stop:
			return
		}
	}
}

func (s *Scheduler) sweep() {
	// A job counts as abandoned after three missed sweep intervals.
	if err := s.controller.ReapStale(context.Background(), 3*s.interval); err != nil {
		log.Printf("Stale job sweep failed: %v", err)
	}
}
