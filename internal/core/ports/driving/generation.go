package driving

import (
	"context"

	"github.com/custodia-labs/casebrief/internal/core/domain"
)

// Aggregator fetches project data from every connected service.
type Aggregator interface {
	// Aggregate never fails as a whole: per-service failures are recorded
	// in the returned bundle.
	Aggregate(ctx context.Context, userID string, scope domain.ProjectScope) *domain.ProjectDataBundle
}

// GenerationRun is a generation in progress.
type GenerationRun interface {
	// Events yields streaming events. The channel closes after the
	// terminal metadata or error event, or once the run is released.
	Events() <-chan domain.StreamingEvent

	// Job returns a snapshot of the job.
	Job() domain.GenerationJob

	// Wait blocks until the run stops producing and returns the final job.
	Wait() domain.GenerationJob

	// Close abandons consumption and releases the model stream. The job
	// keeps its current state.
	Close()

	// Cancel releases the stream like Close and marks the job cancelled.
	Cancel() error
}

// CaseStudyService runs the end-to-end case study pipeline.
type CaseStudyService interface {
	// Generate validates credentials, aggregates and selects project data
	// and starts streaming generation.
	Generate(ctx context.Context, req domain.CaseStudyRequest) (GenerationRun, error)

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, id string) (*domain.GenerationJob, error)

	// ListJobs returns a user's jobs, newest first.
	ListJobs(ctx context.Context, userID string, limit int) ([]domain.GenerationJob, error)
}

// ModelInfo describes one selectable model.
type ModelInfo struct {
	Name        string
	Provider    string
	ModelID     string
	Temperature float64
	MaxTokens   int
}

// ModelCatalog lists the models bound to backends.
type ModelCatalog interface {
	Models() []ModelInfo
}
