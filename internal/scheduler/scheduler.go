// Package scheduler runs maintenance jobs on cron schedules.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/xemwebe/finql/internal/logger"
	"github.com/xemwebe/finql/internal/services"
)

// dedupeTimeout bounds a single duplicate cleanup run.
const dedupeTimeout = 5 * time.Minute

// ScheduledTask runs a function on a cron schedule until cancelled.
type ScheduledTask struct {
	cronID cron.EntryID
	cron   *cron.Cron
	cancel chan struct{}
}

// NewScheduledTask starts running taskFunc on cronSpec. The spec accepts the
// five standard fields as well as descriptors such as "@daily" or "@every 1h".
func NewScheduledTask(cronSpec string, taskFunc func()) (*ScheduledTask, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	cancel := make(chan struct{})
	task := &ScheduledTask{
		cron:   c,
		cancel: cancel,
	}

	id, err := c.AddFunc(cronSpec, func() {
		select {
		case <-cancel:
			return
		default:
			taskFunc()
		}
	})
	if err != nil {
		return nil, err
	}

	task.cronID = id
	c.Start()
	return task, nil
}

// Cancel stops future runs and waits for a running one to finish.
func (s *ScheduledTask) Cancel() {
	s.cron.Remove(s.cronID)
	close(s.cancel)
	<-s.cron.Stop().Done()
}

// NewDedupeTask schedules RemoveDuplicates on cronSpec.
func NewDedupeTask(cronSpec string, quoteService services.QuoteServicer) (*ScheduledTask, error) {
	return NewScheduledTask(cronSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), dedupeTimeout)
		defer cancel()

		removed, err := quoteService.RemoveDuplicates(ctx)
		if err != nil {
			logger.Get().Errorw("Scheduled duplicate cleanup failed", "error", err)
			return
		}
		logger.Get().Infow("Scheduled duplicate cleanup finished", "removed", removed)
	})
}
