package backup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/moffa90/go-focus/focus"
)

// Scheduler runs periodic backup housekeeping: taking automatic backups and
// pruning the backup folder. Jobs never overlap with themselves.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    focus.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	now       func() time.Time

	stopOnce sync.Once
	stopErr  error
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(logger focus.Logger) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: s,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		now:       time.Now,
	}, nil
}

// ScheduleAutoBackup runs job every interval, starting immediately.
// Returns the job ID for later management.
func (s *Scheduler) ScheduleAutoBackup(interval time.Duration, job func(ctx context.Context) error) (string, error) {
	if job == nil {
		return "", fmt.Errorf("auto-backup job is required")
	}
	return s.schedule("auto-backup", interval, func() {
		if err := job(s.ctx); err != nil {
			s.logError("auto-backup failed", "error", err)
			return
		}
		s.logInfo("auto-backup complete")
	})
}

// SchedulePrune prunes folder every interval according to frequency, starting
// immediately. onPruned, when set, receives the number of files removed.
func (s *Scheduler) SchedulePrune(interval time.Duration, folder Folder, frequency int, onPruned func(n int)) (string, error) {
	if _, forever := RetentionWindow(frequency); forever {
		return "", nil
	}
	return s.schedule("backup-prune", interval, func() {
		removed, err := folder.Prune(s.now(), frequency)
		if err != nil {
			s.logError("backup prune failed", "error", err)
		}
		if len(removed) > 0 {
			s.logInfo("pruned old backups", "removed", len(removed), "folder", folder.Dir)
		}
		if onPruned != nil {
			onPruned(len(removed))
		}
	})
}

func (s *Scheduler) schedule(name string, interval time.Duration, task func()) (string, error) {
	if interval <= 0 {
		return "", fmt.Errorf("%s interval must be positive, got %s", name, interval)
	}
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create %s job: %w", name, err)
	}
	return job.ID().String(), nil
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	s.logInfo("starting backup scheduler")
	s.scheduler.Start()
}

// Stop cancels running jobs and shuts the scheduler down. Calls after the
// first return the first call's result.
func (s *Scheduler) Stop() error {
	s.stopOnce.Do(func() {
		s.logInfo("stopping backup scheduler")
		s.cancel()
		s.stopErr = s.scheduler.Shutdown()
	})
	return s.stopErr
}

func (s *Scheduler) logInfo(msg string, keysAndValues ...any) {
	if s.logger != nil {
		s.logger.Info(msg, keysAndValues...)
	}
}

func (s *Scheduler) logError(msg string, keysAndValues ...any) {
	if s.logger != nil {
		s.logger.Error(msg, keysAndValues...)
	}
}
