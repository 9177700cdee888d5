package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/casebrief/internal/core/domain"
	"github.com/custodia-labs/casebrief/internal/core/ports/driven"
	"github.com/custodia-labs/casebrief/internal/core/ports/driving"
	"github.com/custodia-labs/casebrief/internal/logger"
)

// Ensure CaseStudyService implements the interface.
var _ driving.CaseStudyService = (*CaseStudyService)(nil)

// Pipeline progress milestones.
const (
	progressValidating   = 5
	progressFetching     = 10
	progressSelecting    = 20
	fetchingSectionLabel = "Fetching project data"
)

// CaseStudyService runs credential validation, aggregation, selection
// and generation for one request.
type CaseStudyService struct {
	tokens     driving.TokenLifecycle
	aggregator driving.Aggregator
	engine     *GenerationEngine
	jobs       driven.JobStore
	budget     int
	resultCap  int
	now        func() time.Time
	newID      func() string
}

// NewCaseStudyService creates the pipeline service.
func NewCaseStudyService(
	tokens driving.TokenLifecycle,
	aggregator driving.Aggregator,
	engine *GenerationEngine,
	jobs driven.JobStore,
) *CaseStudyService {
	return &CaseStudyService{
		tokens:     tokens,
		aggregator: aggregator,
		engine:     engine,
		jobs:       jobs,
		budget:     domain.DefaultSelectionBudget,
		resultCap:  domain.DefaultResultCap,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// SetDefaultBudget changes the selection budget used when a request has none.
func (s *CaseStudyService) SetDefaultBudget(n int) {
	if n > 0 {
		s.budget = n
	}
}

// SetDefaultResultCap changes the per-service result cap used when a
// request's scope has none.
func (s *CaseStudyService) SetDefaultResultCap(n int) {
	if n > 0 {
		s.resultCap = n
	}
}

// SetClock replaces the time source. Intended for tests.
func (s *CaseStudyService) SetClock(now func() time.Time) {
	s.now = now
}

// Generate creates a job and runs the pipeline up to the start of
// streaming. The returned run yields the generation events.
func (s *CaseStudyService) Generate(ctx context.Context, req domain.CaseStudyRequest) (driving.GenerationRun, error) {
	if req.Scope.ResultCap == 0 {
		req.Scope.ResultCap = s.resultCap
	}
	if req.Template == "" {
		req.Template = domain.TemplateComprehensive
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	budget := req.Budget
	if budget == 0 {
		budget = s.budget
	}

	job := domain.NewGenerationJob(s.newID(), req.UserID, req.ModelName, req.Template, s.now())
	logger.Section("case study " + job.ID)
	job.ProjectName = req.ProjectName
	s.save(ctx, job)

	job.SetProgress(progressValidating, s.now())
	s.save(ctx, job)
	for serviceID, ok := range s.tokens.EnsureAll(ctx, req.UserID) {
		if !ok {
			logger.Warn("job %s: %s credentials unusable: %v", job.ID, serviceID, s.tokens.LastError(req.UserID, serviceID))
		}
	}

	job.SetProgress(progressFetching, s.now())
	job.CurrentSection = fetchingSectionLabel
	s.save(ctx, job)
	bundle := s.aggregator.Aggregate(ctx, req.UserID, req.Scope)
	for _, e := range bundle.Errors {
		job.Warnings = append(job.Warnings, e.Error())
	}

	window := req.Scope.DateRange
	selected := SelectRelevant(bundle.Items, budget, SelectOptions{Window: &window})
	logger.Debug("job %s: selected %d of %d items", job.ID, len(selected), len(bundle.Items))
	job.CurrentSection = ""
	job.SetProgress(progressSelecting, s.now())
	s.save(ctx, job)

	run, err := s.engine.Start(ctx, job, GenerateRequest{
		ModelName:          req.ModelName,
		ProjectName:        req.ProjectName,
		Template:           req.Template,
		CustomInstructions: req.CustomInstructions,
		Bundle:             bundle.WithItems(selected),
		ProgressFrom:       progressSelecting,
		Finalize: func(j *domain.GenerationJob) {
			result := ExtractResult(j.AccumulatedText)
			j.Result = &result
		},
	})
	if err != nil {
		return nil, fmt.Errorf("start generation: %w", err)
	}
	return run, nil
}

// GetJob retrieves a job by ID.
func (s *CaseStudyService) GetJob(ctx context.Context, id string) (*domain.GenerationJob, error) {
	job, err := s.jobs.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// ListJobs returns a user's jobs, newest first.
func (s *CaseStudyService) ListJobs(ctx context.Context, userID string, limit int) ([]domain.GenerationJob, error) {
	jobs, err := s.jobs.List(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// save persists pipeline progress before the engine takes over the job.
func (s *CaseStudyService) save(ctx context.Context, job *domain.GenerationJob) {
	if err := s.jobs.Save(ctx, job.Snapshot()); err != nil {
		logger.Warn("save job %s: %v", job.ID, err)
	}
}

// JobStoreObserver persists every job update the engine reports.
type JobStoreObserver struct {
	store driven.JobStore
}

// NewJobStoreObserver creates an observer backed by store.
func NewJobStoreObserver(store driven.JobStore) *JobStoreObserver {
	return &JobStoreObserver{store: store}
}

// OnJobUpdate saves the snapshot.
func (o *JobStoreObserver) OnJobUpdate(ctx context.Context, job domain.GenerationJob) {
	if err := o.store.Save(ctx, job); err != nil {
		logger.Warn("persist job %s: %v", job.ID, err)
	}
}
