package driven

import (
	"context"

	"github.com/custodia-labs/casebrief/internal/core/domain"
)

// JobStore persists generation jobs.
type JobStore interface {
	// Save creates or replaces a job.
	Save(ctx context.Context, job domain.GenerationJob) error

	// Get retrieves a job by ID. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id string) (*domain.GenerationJob, error)

	// List returns a user's jobs, newest first.
	List(ctx context.Context, userID string, limit int) ([]domain.GenerationJob, error)

	// Delete removes a job.
	Delete(ctx context.Context, id string) error
}

// JobObserver receives job snapshots at status changes and progress
// milestones. Snapshots are copies; observers may keep them.
type JobObserver interface {
	OnJobUpdate(ctx context.Context, job domain.GenerationJob)
}

// JobObserverFunc adapts a function to JobObserver.
type JobObserverFunc func(ctx context.Context, job domain.GenerationJob)

// OnJobUpdate calls f.
func (f JobObserverFunc) OnJobUpdate(ctx context.Context, job domain.GenerationJob) {
	f(ctx, job)
}
