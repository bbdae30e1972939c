// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Daemon keeps a scheduler running on a cron cadence. Each tick checks
// whether a cycle is due and runs one if so; the schedule interval
// itself lives in the scheduler state, so an hourly tick is enough.
type Daemon struct {
	scheduler *Scheduler
	cron      *cron.Cron
	logger    *slog.Logger
}

// NewDaemon wraps the scheduler in an hourly due-check loop.
func NewDaemon(scheduler *Scheduler, logger *slog.Logger) *Daemon {
	if logger == nil {
		logger = slog.Default()
	}
	return &Daemon{
		scheduler: scheduler,
		cron:      cron.New(),
		logger:    logger,
	}
}

// Start registers the due-check entry and launches the cron loop. It
// returns immediately; the first tick fires on the next hour boundary.
func (d *Daemon) Start(ctx context.Context) error {
	if _, err := d.cron.AddFunc("@hourly", func() { d.tick(ctx) }); err != nil {
		return err
	}
	d.cron.Start()
	return nil
}

// Stop halts the cron loop and waits for an in-flight cycle to finish.
func (d *Daemon) Stop() {
	<-d.cron.Stop().Done()
}

func (d *Daemon) tick(ctx context.Context) {
	if !d.scheduler.IsDue() {
		d.logger.Debug("harvest not due")
		return
	}
	completed, err := d.scheduler.RunHarvest(ctx)
	switch {
	case err != nil:
		d.logger.Error("harvest cycle aborted", "error", err)
	case !completed:
		d.logger.Warn("harvest cycle incomplete")
	default:
		d.logger.Info("harvest cycle completed")
	}
}
