package driving

import (
	"context"

	"github.com/custodia-labs/casebrief/internal/core/domain"
)

// Scheduler runs proactive token refresh and stale credential cleanup for
// every stored user.
type Scheduler interface {
	// Start runs due tasks until ctx is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop waits for in-flight runs and returns.
	Stop() error

	// RunNow executes a task immediately, outside its schedule.
	RunNow(ctx context.Context, taskID string) (*domain.TaskResult, error)

	// History returns recent runs of a task, newest first.
	History(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error)
}
