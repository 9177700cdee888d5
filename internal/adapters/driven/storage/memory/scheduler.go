package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/custodia-labs/casebrief/internal/core/domain"
	"github.com/custodia-labs/casebrief/internal/core/ports/driven"
)

// Ensure SchedulerStore implements the interface.
var _ driven.SchedulerStore = (*SchedulerStore)(nil)

// SchedulerStore keeps task schedules and run history in memory.
type SchedulerStore struct {
	mu    sync.RWMutex
	tasks map[string]domain.ScheduledTask
	runs  map[string][]domain.TaskResult // newest first
}

// NewSchedulerStore creates an empty scheduler store.
func NewSchedulerStore() *SchedulerStore {
	return &SchedulerStore{
		tasks: make(map[string]domain.ScheduledTask),
		runs:  make(map[string][]domain.TaskResult),
	}
}

func (s *SchedulerStore) GetTask(_ context.Context, id string) (*domain.ScheduledTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, nil
	}
	return &task, nil
}

func (s *SchedulerStore) ListTasks(_ context.Context) ([]domain.ScheduledTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ScheduledTask, 0, len(s.tasks))
	for _, task := range s.tasks {
		out = append(out, task)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *SchedulerStore) SaveTask(_ context.Context, task *domain.ScheduledTask) error {
	if task == nil || task.ID == "" {
		return fmt.Errorf("%w: task requires an ID", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = *task
	return nil
}

// RecordResult inserts the run by start time and trims the task's history
// to keep entries.
func (s *SchedulerStore) RecordResult(_ context.Context, result domain.TaskResult, keep int) error {
	if result.TaskID == "" {
		return fmt.Errorf("%w: result requires a task ID", domain.ErrInvalidInput)
	}
	result.Failures = slices.Clone(result.Failures)

	s.mu.Lock()
	defer s.mu.Unlock()
	runs := s.runs[result.TaskID]
	i := sort.Search(len(runs), func(i int) bool { return !runs[i].StartedAt.After(result.StartedAt) })
	runs = slices.Insert(runs, i, result)
	if keep > 0 && len(runs) > keep {
		runs = runs[:keep]
	}
	s.runs[result.TaskID] = runs
	return nil
}

func (s *SchedulerStore) History(_ context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	runs := s.runs[taskID]
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return slices.Clone(runs), nil
}
