package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Job is invoked once per scheduled slot with the slot time
type Job func(ctx context.Context, at time.Time)

// Daily fires a job every day at a fixed local time of day
type Daily struct {
	hour     int
	minute   int
	job      Job
	logger   *zap.Logger
	now      func() time.Time
	after    func(time.Duration) <-chan time.Time
	stopChan chan struct{}
	done     chan struct{}
}

// NewDaily creates a scheduler that fires at hour:minute in now's location
func NewDaily(hour, minute int, job Job, logger *zap.Logger) *Daily {
	return &Daily{
		hour:     hour,
		minute:   minute,
		job:      job,
		logger:   logger,
		now:      time.Now,
		after:    time.After,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Next returns the first hour:minute strictly after now, in now's location
func Next(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Start begins the background loop
func (d *Daily) Start(ctx context.Context) {
	go d.loop(ctx)
	d.logger.Info("Daily scheduler started", zap.Int("hour", d.hour), zap.Int("minute", d.minute))
}

// Stop halts the loop and waits for a running job to return
func (d *Daily) Stop() {
	close(d.stopChan)
	<-d.done
	d.logger.Info("Daily scheduler stopped")
}

func (d *Daily) loop(ctx context.Context) {
	defer close(d.done)

	for {
		now := d.now()
		next := Next(now, d.hour, d.minute)
		d.logger.Info("Next evaluation scheduled", zap.Time("at", next))

		select {
		case <-d.stopChan:
			return
		case <-ctx.Done():
			return
		case <-d.after(next.Sub(now)):
			d.job(ctx, next)
		}
	}
}
