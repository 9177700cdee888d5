package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/casebrief/internal/core/domain"
	"github.com/custodia-labs/casebrief/internal/core/ports/driven"
)

// Ensure JobStore implements the interface.
var _ driven.JobStore = (*JobStore)(nil)

// JobStore is an in-memory implementation of driven.JobStore.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]domain.GenerationJob
}

// NewJobStore creates an empty job store.
func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[string]domain.GenerationJob),
	}
}

// Save stores a snapshot of the job.
func (s *JobStore) Save(_ context.Context, job domain.GenerationJob) error {
	if job.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job.Snapshot()
	return nil
}

// Get retrieves a job by ID.
func (s *JobStore) Get(_ context.Context, id string) (*domain.GenerationJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := job.Snapshot()
	return &out, nil
}

// List returns a user's jobs, newest first. A limit of zero or less
// returns every job.
func (s *JobStore) List(_ context.Context, userID string, limit int) ([]domain.GenerationJob, error) {
	s.mu.RLock()
	var out []domain.GenerationJob
	for _, job := range s.jobs {
		if job.UserID == userID {
			out = append(out, job.Snapshot())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Delete removes a job.
func (s *JobStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
	return nil
}
