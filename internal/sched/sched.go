package sched

import (
	"context"
	"errors"
	"log"
	"time"

	"analytics_framework/internal/analytics"
)

// RunFunc executes one batch run for a target date.
type RunFunc func(ctx context.Context, targetDate string) (analytics.RunResult, error)

// Scheduler triggers one batch run per day at a fixed UTC hour, always for
// the previous calendar day.
type Scheduler struct {
	hourUTC int
	run     RunFunc
	now     func() time.Time
}

func New(hourUTC int, run RunFunc) *Scheduler {
	if hourUTC < 0 || hourUTC > 23 {
		hourUTC = 2
	}
	return &Scheduler{hourUTC: hourUTC, run: run, now: time.Now}
}

// Start blocks until ctx is cancelled, firing a run at each daily tick. A
// run already in progress (e.g. triggered over HTTP) skips the tick.
func (s *Scheduler) Start(ctx context.Context) {
	for {
		next := s.nextTick(s.now().UTC())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		target := s.now().UTC().AddDate(0, 0, -1).Format(analytics.DateLayout)
		log.Printf("scheduler firing daily run target_date=%s", target)
		if _, err := s.run(ctx, target); err != nil {
			if errors.Is(err, analytics.ErrRunInProgress) {
				log.Printf("scheduler: run already in progress, skipping tick")
				continue
			}
			log.Printf("scheduler: daily run failed: %v", err)
		}
	}
}

// nextTick returns the next occurrence of hourUTC strictly after now.
func (s *Scheduler) nextTick(now time.Time) time.Time {
	tick := time.Date(now.Year(), now.Month(), now.Day(), s.hourUTC, 0, 0, 0, time.UTC)
	if !tick.After(now) {
		tick = tick.AddDate(0, 0, 1)
	}
	return tick
}
