package driven

import (
	"context"

	"github.com/custodia-labs/casebrief/internal/core/domain"
)

// SchedulerStore persists credential maintenance schedules and run history
// so that intervals survive restarts.
type SchedulerStore interface {
	// GetTask returns nil and no error when the task does not exist.
	GetTask(ctx context.Context, id string) (*domain.ScheduledTask, error)

	// ListTasks returns all tasks ordered by ID.
	ListTasks(ctx context.Context) ([]domain.ScheduledTask, error)

	// SaveTask creates or replaces a task.
	SaveTask(ctx context.Context, task *domain.ScheduledTask) error

	// RecordResult appends a run, then keeps only the newest keep runs of
	// that task.
	RecordResult(ctx context.Context, result domain.TaskResult, keep int) error

	// History returns a task's runs newest first. A limit <= 0 returns all.
	History(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error)
}
