package auth

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultJanitorSchedule runs the revocation purge at the top of every hour.
const DefaultJanitorSchedule = "@hourly"

// Purger deletes expired revocation rows.
type Purger interface {
	PurgeExpiredRevocations(ctx context.Context) (int64, error)
}

// Janitor periodically removes revocation rows for tokens that can no longer be used.
type Janitor struct {
	purger   Purger
	schedule string
	cron     *cron.Cron
}

// NewJanitor creates a Janitor running on the given cron schedule.
func NewJanitor(purger Purger, schedule string) *Janitor {
	return &Janitor{
		purger:   purger,
		schedule: schedule,
		cron:     cron.New(),
	}
}

// Start schedules the purge job.
func (j *Janitor) Start() error {
	if _, err := j.cron.AddFunc(j.schedule, j.RunOnce); err != nil {
		return err
	}
	j.cron.Start()
	return nil
}

// RunOnce performs a single purge.
func (j *Janitor) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := j.purger.PurgeExpiredRevocations(ctx)
	if err != nil {
		log.Printf("[auth] Revocation cleanup failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("[auth] Removed %d expired token revocations", n)
	}
}

// Stop halts the scheduler and waits for a running job or ctx expiry.
func (j *Janitor) Stop(ctx context.Context) {
	done := j.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
