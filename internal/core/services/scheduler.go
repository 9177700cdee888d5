package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/casebrief/internal/core/domain"
	"github.com/custodia-labs/casebrief/internal/core/ports/driven"
	"github.com/custodia-labs/casebrief/internal/core/ports/driving"
	"github.com/custodia-labs/casebrief/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

const (
	// schedulerTick is how often the scheduler looks for due tasks.
	schedulerTick = time.Minute

	// historyKeep is how many runs of each task are retained.
	historyKeep = 100
)

// Scheduler runs proactive token refresh and stale credential cleanup for
// every user with stored credentials.
type Scheduler struct {
	config      domain.SchedulerConfig
	store       driven.SchedulerStore
	credentials driven.CredentialStore
	tokens      driving.TokenLifecycle
	tick        time.Duration
	now         func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler with configuration.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	credentials driven.CredentialStore,
	tokens driving.TokenLifecycle,
) *Scheduler {
	return &Scheduler{
		config:      config,
		store:       store,
		credentials: credentials,
		tokens:      tokens,
		tick:        schedulerTick,
		now:         time.Now,
	}
}

// Start begins the scheduler loop. This method blocks until Stop is called
// or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	if err := s.initialiseTasks(ctx); err != nil {
		logger.Warn("scheduler: failed to initialise tasks: %v", err)
	}
	err := s.run(ctx)
	s.wg.Wait()
	return err
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	tasks := []struct{ id, name string }{
		{domain.TaskIDTokenRefresh, "Token Refresh"},
		{domain.TaskIDCredentialCleanup, "Credential Cleanup"},
	}
	var errs []error
	for _, t := range tasks {
		if cfg := s.config.Task(t.id); cfg.Enabled {
			errs = append(errs, s.ensureTask(ctx, t.id, t.name, cfg))
		}
	}
	return errors.Join(errs...)
}

// ensureTask creates or updates a task in the store. New tasks are due
// immediately so a fresh start refreshes tokens straight away.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, cfg domain.TaskConfig) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if task == nil {
		task = &domain.ScheduledTask{
			ID:       id,
			Name:     name,
			Interval: cfg.Interval,
			Enabled:  cfg.Enabled,
		}
	} else {
		if task.Interval != cfg.Interval {
			task.Interval = cfg.Interval
			task.NextRun = s.now().Add(cfg.Interval)
		}
		task.Enabled = cfg.Enabled
	}
	return s.store.SaveTask(ctx, task)
}

func (s *Scheduler) run(ctx context.Context) error {
	s.checkAndRunDueTasks(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Warn("scheduler: failed to list tasks: %v", err)
		return
	}

	now := s.now()
	for i := range tasks {
		if tasks[i].Due(now) {
			s.runTask(ctx, &tasks[i])
		}
	}
}

// RunNow executes a task synchronously regardless of its schedule.
func (s *Scheduler) RunNow(ctx context.Context, taskID string) (*domain.TaskResult, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		task = &domain.ScheduledTask{ID: taskID, Name: taskID, Interval: s.config.Task(taskID).Interval, Enabled: true}
	}
	return s.execute(ctx, task), nil
}

// History returns the most recent runs of a task, newest first.
func (s *Scheduler) History(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	return s.store.History(ctx, taskID, limit)
}

func (s *Scheduler) runTask(ctx context.Context, task *domain.ScheduledTask) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.execute(ctx, task)
	}()
}

func (s *Scheduler) execute(ctx context.Context, task *domain.ScheduledTask) *domain.TaskResult {
	result := &domain.TaskResult{
		TaskID:    task.ID,
		StartedAt: s.now(),
	}

	var err error
	switch task.ID {
	case domain.TaskIDTokenRefresh:
		result.Processed, result.Failures, err = s.refreshAll(ctx)
	case domain.TaskIDCredentialCleanup:
		result.Processed, err = s.cleanupAll(ctx)
	default:
		err = fmt.Errorf("%w: unknown task %q", domain.ErrInvalidInput, task.ID)
	}
	result.EndedAt = s.now()
	if err != nil {
		result.Error = err.Error()
		logger.Warn("scheduler: %s failed: %v", task.ID, err)
	} else {
		logger.Debug("scheduler: %s processed %d credentials in %s", task.ID, result.Processed, result.Duration())
	}

	task.Finish(*result)
	if err := s.store.SaveTask(ctx, task); err != nil {
		logger.Warn("scheduler: failed to save task %s: %v", task.ID, err)
	}
	if err := s.store.RecordResult(ctx, *result, historyKeep); err != nil {
		logger.Warn("scheduler: failed to record %s run: %v", task.ID, err)
	}
	return result
}

// refreshAll keeps every user's tokens fresh. It returns the number of
// credentials valid afterwards and the "user/service" pairs that are not.
func (s *Scheduler) refreshAll(ctx context.Context) (int, []string, error) {
	users, err := s.credentials.ListUsers(ctx)
	if err != nil {
		return 0, nil, err
	}
	valid := 0
	var failures []string
	for _, userID := range users {
		results := s.tokens.EnsureAll(ctx, userID)
		ids := make([]string, 0, len(results))
		for id := range results {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			if results[id] {
				valid++
			} else {
				failures = append(failures, userID+"/"+id)
			}
		}
	}
	if len(failures) > 0 {
		logger.Info("scheduler: %d credentials could not be refreshed", len(failures))
	}
	return valid, failures, nil
}

func (s *Scheduler) cleanupAll(ctx context.Context) (int, error) {
	users, err := s.credentials.ListUsers(ctx)
	if err != nil {
		return 0, err
	}
	removed := 0
	var errs []error
	for _, userID := range users {
		ids, err := s.tokens.CleanupStale(ctx, userID)
		removed += len(ids)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return removed, errors.Join(errs...)
}
