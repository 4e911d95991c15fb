// Package refresh periodically re-fetches reference data so that the cache
// rarely serves an upstream round trip on a live request path.
package refresh

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Refresher re-fetches states and every cached commissions list.
type Refresher interface {
	RefreshStates(ctx context.Context) error
	RefreshCommissions(ctx context.Context, stateID string) error
	CachedStateIDs() []string
}

// Job drives a cron-scheduled refresh of the reference-data cache.
type Job struct {
	cache   Refresher
	cron    *cron.Cron
	timeout time.Duration
}

func NewJob(cache Refresher) *Job {
	return &Job{
		cache:   cache,
		cron:    cron.New(),
		timeout: 5 * time.Minute,
	}
}

// Start registers the refresh on the given cron expression and begins the
// scheduler. The expression uses the standard five-field format.
func (j *Job) Start(expr string) error {
	if _, err := j.cron.AddFunc(expr, j.run); err != nil {
		return err
	}
	j.cron.Start()
	log.Printf("reference data refresh scheduled: %s", expr)
	return nil
}

// Stop halts the scheduler and waits for a running refresh to finish.
func (j *Job) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}

func (j *Job) run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if err := j.cache.RefreshStates(ctx); err != nil {
		log.Printf("reference data refresh: states: %v", err)
	}
	for _, stateID := range j.cache.CachedStateIDs() {
		if err := j.cache.RefreshCommissions(ctx, stateID); err != nil {
			log.Printf("reference data refresh: commissions for state %s: %v", stateID, err)
		}
	}
}
