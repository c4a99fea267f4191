package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// IntervalTrigger submits a job of a fixed type every interval. The
// reconciliation trigger is configured with an interval of at least one hour
// so a full pass can settle before the next one starts.
type IntervalTrigger struct {
	jobType   JobType
	interval  time.Duration
	scheduler *Scheduler
	logger    *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewIntervalTrigger creates a trigger for the given job type
func NewIntervalTrigger(jobType JobType, interval time.Duration, sched *Scheduler, logger *zap.Logger) *IntervalTrigger {
	return &IntervalTrigger{
		jobType:   jobType,
		interval:  interval,
		scheduler: sched,
		logger:    logger,
	}
}

// Start launches the trigger loop
func (t *IntervalTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("interval trigger started",
		zap.String("job_type", string(t.jobType)),
		zap.Duration("interval", t.interval),
	)

	return nil
}

// Stop stops the trigger loop
func (t *IntervalTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("interval trigger stopped", zap.String("job_type", string(t.jobType)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *IntervalTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := t.scheduler.ScheduleJob(t.jobType); err != nil {
				t.logger.Error("failed to schedule job",
					zap.String("job_type", string(t.jobType)),
					zap.Error(err),
				)
			}
		}
	}
}

// TriggerNow submits a job immediately, outside the interval cadence
func (t *IntervalTrigger) TriggerNow() error {
	return t.scheduler.ScheduleJob(t.jobType)
}
