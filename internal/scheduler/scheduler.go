// Package scheduler runs the pipeline on a cron schedule for long-lived deployments.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"linkedin-autopilot-go/internal/logger"
)

// JobTimeout bounds a single scheduled run.
const JobTimeout = 30 * time.Minute

type Job func(ctx context.Context) error

type Scheduler struct {
	cron     *cron.Cron
	jobs     map[string]cron.EntryID
	timezone *time.Location
}

// New creates a scheduler in the given timezone. A run still in progress
// when its next tick arrives makes that tick a no-op.
func New(timezone string) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %s: %w", timezone, err)
	}

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)

	return &Scheduler{
		cron:     c,
		jobs:     make(map[string]cron.EntryID),
		timezone: loc,
	}, nil
}

// AddJob registers a job under a standard five-field cron expression,
// e.g. "0 9 * * 1-5" for weekdays at 09:00.
func (s *Scheduler) AddJob(name, schedule string, job Job) error {
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already scheduled", name)
	}

	entryID, err := s.cron.AddFunc(schedule, func() {
		if err := s.run(name, job); err != nil {
			log.Printf("[scheduler] Job %s failed: %v", name, err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.jobs[name] = entryID
	log.Printf("[scheduler] Added job: %s (schedule: %s, timezone: %s)", name, schedule, s.timezone)
	return nil
}

func (s *Scheduler) run(name string, job Job) error {
	ctx, cancel := context.WithTimeout(context.Background(), JobTimeout)
	defer cancel()

	op := logger.Get().StartOperation("scheduled_run")
	op.WithContext("job", name)

	log.Printf("[scheduler] Starting job: %s", name)
	start := time.Now()

	if err := job(ctx); err != nil {
		op.Fail("Scheduled run failed", err)
		return err
	}
	log.Printf("[scheduler] Job %s completed in %v", name, time.Since(start))
	op.Complete("Scheduled run completed")
	return nil
}

func (s *Scheduler) Start() {
	log.Println("[scheduler] Starting scheduler")
	s.cron.Start()
}

// Stop halts the scheduler. The returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	log.Println("[scheduler] Stopping scheduler")
	return s.cron.Stop()
}

// RunNow executes a job immediately with the same timeout and logging as a scheduled tick.
func (s *Scheduler) RunNow(name string, job Job) error {
	return s.run(name, job)
}

type JobInfo struct {
	Name    string
	NextRun time.Time
	LastRun time.Time
}

func (s *Scheduler) ListJobs() []JobInfo {
	entries := s.cron.Entries()
	infos := make([]JobInfo, 0, len(entries))

	for name, entryID := range s.jobs {
		for _, entry := range entries {
			if entry.ID == entryID {
				infos = append(infos, JobInfo{
					Name:    name,
					NextRun: entry.Next,
					LastRun: entry.Prev,
				})
				break
			}
		}
	}
	return infos
}
