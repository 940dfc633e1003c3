package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"signalfire/pkg/logging"
	"signalfire/pkg/models"
	"signalfire/pkg/validation"
)

// DefaultTickInterval is how often the job manager evaluates schedules.
const DefaultTickInterval = time.Minute

// JobManager runs scheduled pipeline batches in the background. Full
// cron orchestration stays external; this is only a thin due-check that
// matches account schedules against the current minute.
type JobManager struct {
	store     accountSource
	orch      batchRunner
	logger    logging.Logger
	interval  time.Duration
	stopCh    chan struct{}
	inFlight  atomic.Bool
	lastBatch atomic.Value // time.Time
}

type accountSource interface {
	DueAccounts(ctx context.Context, now time.Time) ([]models.SocialAccount, error)
	UpdateNextRun(ctx context.Context, accountID string, next time.Time) error
}

type batchRunner interface {
	RunBatchForAccounts(ctx context.Context, accounts []models.SocialAccount) (*BatchReport, error)
}

func NewJobManager(st accountSource, orch batchRunner, logger logging.Logger, interval time.Duration) *JobManager {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &JobManager{
		store:    st,
		orch:     orch,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the schedule loop. It returns immediately.
func (jm *JobManager) Start(ctx context.Context) {
	jm.logger.Info("Starting pipeline job manager")
	go jm.run(ctx)
}

// Stop terminates the schedule loop.
func (jm *JobManager) Stop() {
	jm.logger.Info("Stopping pipeline job manager")
	close(jm.stopCh)
}

func (jm *JobManager) run(ctx context.Context) {
	ticker := time.NewTicker(jm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-jm.stopCh:
			return
		case <-ticker.C:
			jm.tick(ctx)
		}
	}
}

// tick runs one batch over the accounts whose cron schedule fires this
// minute. Accounts on other schedules stay untouched even when a
// sibling fires. Overlapping batches are suppressed.
func (jm *JobManager) tick(ctx context.Context) {
	now := time.Now().Truncate(time.Minute)

	accounts, err := jm.store.DueAccounts(ctx, now)
	if err != nil {
		jm.logger.WithError(err).Error("Failed to load due accounts")
		return
	}

	due := make([]models.SocialAccount, 0, len(accounts))
	for _, a := range accounts {
		if a.ScheduleCron == "" || validation.CronMatches(a.ScheduleCron, now) {
			due = append(due, a)
		}
	}
	if len(due) == 0 {
		return
	}

	if !jm.inFlight.CompareAndSwap(false, true) {
		jm.logger.Warn("Skipping scheduled batch, previous batch still running")
		return
	}
	defer jm.inFlight.Store(false)

	report, err := jm.orch.RunBatchForAccounts(ctx, due)
	if err != nil {
		jm.logger.WithError(err).Error("Scheduled batch failed")
		return
	}
	jm.advanceSchedules(ctx, due, now)
	jm.lastBatch.Store(report.FinishedAt)
	jm.logger.WithFields(logging.Fields{
		"batch_id":  report.BatchID,
		"accounts":  len(report.Outcomes),
		"published": report.count(StatusPublished),
		"failed":    report.count(StatusFailed),
		"skipped":   report.count(StatusSkipped),
	}).Info("Scheduled batch complete")
}

// advanceSchedules writes each cron-scheduled account's next fire time
// so DueAccounts stops returning it until that minute arrives. Accounts
// without a cron stay perpetually due.
func (jm *JobManager) advanceSchedules(ctx context.Context, accounts []models.SocialAccount, now time.Time) {
	for _, a := range accounts {
		if a.ScheduleCron == "" {
			continue
		}
		next, ok := validation.CronNext(a.ScheduleCron, now)
		if !ok {
			continue
		}
		if err := jm.store.UpdateNextRun(ctx, a.ID, next); err != nil {
			jm.logger.WithError(err).WithField("account_id", a.ID).Warn("Failed to advance account schedule")
		}
	}
}

// LastBatchAt reports when the most recent scheduled batch finished.
func (jm *JobManager) LastBatchAt() (time.Time, bool) {
	v := jm.lastBatch.Load()
	if v == nil {
		return time.Time{}, false
	}
	return v.(time.Time), true
}
