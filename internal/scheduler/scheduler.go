package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// BookingSweeper releases no-shows and completes elapsed bookings.
type BookingSweeper interface {
	ReleaseOverdue(ctx context.Context) (int, error)
	CompleteElapsed(ctx context.Context) (int, error)
}

// PatternExpander materializes due recurring occurrences.
type PatternExpander interface {
	ExpandDue(ctx context.Context) (int, error)
}

// Expirer closes timed-out swap requests and stale waitlist entries.
type Expirer interface {
	ExpireDue(ctx context.Context) (int, error)
}

// Scheduler drives the periodic jobs: the booking sweep every five
// minutes, pattern expansion and expiry hourly. Each tick gets its own
// bounded context so a stuck database cannot pile up goroutines.
type Scheduler struct {
	cron *cron.Cron
}

// New registers the jobs and returns the scheduler unstarted.
func New(sweeper BookingSweeper, expander PatternExpander, expirer Expirer) (*Scheduler, error) {
	c := cron.New()

	_, err := c.AddFunc("*/5 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if n, err := sweeper.ReleaseOverdue(ctx); err != nil {
			log.Printf("scheduler: release overdue: %v", err)
		} else if n > 0 {
			log.Printf("scheduler: released %d overdue bookings", n)
		}
		if n, err := sweeper.CompleteElapsed(ctx); err != nil {
			log.Printf("scheduler: complete elapsed: %v", err)
		} else if n > 0 {
			log.Printf("scheduler: completed %d elapsed bookings", n)
		}
	})
	if err != nil {
		return nil, err
	}

	_, err = c.AddFunc("@hourly", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if n, err := expander.ExpandDue(ctx); err != nil {
			log.Printf("scheduler: expand patterns: %v", err)
		} else if n > 0 {
			log.Printf("scheduler: materialized %d occurrences", n)
		}
		if n, err := expirer.ExpireDue(ctx); err != nil {
			log.Printf("scheduler: expire due: %v", err)
		} else if n > 0 {
			log.Printf("scheduler: expired %d stale requests", n)
		}
	})
	if err != nil {
		return nil, err
	}

	return &Scheduler{cron: c}, nil
}

// Start launches the cron loop in its own goroutine.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
