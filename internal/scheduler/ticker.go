package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Ticker yields the start time of each poll tick
type Ticker interface {
	// Next blocks until the next tick is due or ctx is done
	Next(ctx context.Context) (time.Time, error)
}

// Sleeper waits between consecutive announcements
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// CronTicker fires once immediately, then on a cron schedule.
// The next fire time is computed when Next is called, so a slow tick
// delays the following one instead of overlapping it.
type CronTicker struct {
	schedule cron.Schedule
	now      func() time.Time
	started  bool
}

// NewCronTicker parses a standard cron spec, e.g. "@every 5m" or "*/5 * * * *"
func NewCronTicker(spec string) (*CronTicker, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to parse poll schedule %q: %w", spec, err)
	}

	return &CronTicker{schedule: schedule, now: time.Now}, nil
}

// Next returns immediately on the first call, then waits for the schedule
func (t *CronTicker) Next(ctx context.Context) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}

	if !t.started {
		t.started = true
		return t.now(), nil
	}

	next := t.schedule.Next(t.now())
	timer := time.NewTimer(next.Sub(t.now()))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return time.Time{}, ctx.Err()
	case fired := <-timer.C:
		return fired, nil
	}
}

// ContextSleeper sleeps on a timer and wakes early when ctx is done
type ContextSleeper struct{}

// Sleep waits for d
func (ContextSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
