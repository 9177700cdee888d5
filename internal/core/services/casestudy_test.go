package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/casebrief/internal/core/domain"
)

const sampleCaseStudy = `# Apollo Launch
## Executive Summary
The launch shipped on time.
## Lessons Learned
- Start beta earlier
- Keep scope small
## Recommendations & Best Practices
1. Weekly syncs
2) Shared dashboard
`

func newTestCaseStudyService(t *testing.T, backend *mockBackend) (*CaseStudyService, *mockJobStore) {
	t.Helper()
	registry := NewConnectorRegistry()
	registerMock(registry, &mockConnector{id: "gmail", items: itemsFor("gmail", 4)})
	registerMock(registry, &mockConnector{id: "drive", err: fmt.Errorf("%w: 503", domain.ErrTransport)})

	store := newMockCredentialStore()
	connectAll(store, "alice", "gmail", "drive")

	tokens := &mockTokenLifecycle{}
	jobs := newMockJobStore()
	engine := newTestEngine(backend, NewJobStoreObserver(jobs))
	agg := NewAggregator(registry, tokens, store, mockTokenProviderFactory{})

	svc := NewCaseStudyService(tokens, agg, engine, jobs)
	svc.newID = func() string { return "job-42" }
	return svc, jobs
}

func testRequest(t *testing.T) domain.CaseStudyRequest {
	return domain.CaseStudyRequest{
		UserID:      "alice",
		ProjectName: "Apollo",
		Scope:       testScope(t, 10),
		ModelName:   "test-model",
		Budget:      2,
	}
}

func TestCaseStudyService_Generate(t *testing.T) {
	backend := &mockBackend{chunks: []string{sampleCaseStudy}}
	svc, jobs := newTestCaseStudyService(t, backend)

	run, err := svc.Generate(context.Background(), testRequest(t))
	require.NoError(t, err)
	for range run.Events() {
	}
	final := run.Wait()

	assert.Equal(t, "job-42", final.ID)
	assert.Equal(t, domain.JobCompleted, final.Status)
	require.NotNil(t, final.Result)
	assert.Equal(t, "The launch shipped on time.", final.Result.ExecutiveSummary)
	assert.Equal(t, []string{"Start beta earlier", "Keep scope small"}, final.Result.KeyInsights)
	assert.Equal(t, []string{"Weekly syncs", "Shared dashboard"}, final.Result.Recommendations)
	require.Len(t, final.Warnings, 1)
	assert.Contains(t, final.Warnings[0], "drive")

	stored, err := svc.GetJob(context.Background(), "job-42")
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, stored.Status)
	assert.NotNil(t, stored.Result)

	var progress []int
	jobs.mu.Lock()
	for _, j := range jobs.history {
		progress = append(progress, j.ProgressPercent)
	}
	jobs.mu.Unlock()
	assert.Subset(t, progress, []int{0, 5, 10, 20, 100})
	assert.IsNonDecreasing(t, progress)

	// Budget of two keeps the prompt to the two selected items.
	assert.Contains(t, backend.lastReq.Messages[1].Content, "Email 2 (gmail)")
	assert.NotContains(t, backend.lastReq.Messages[1].Content, "Email 3 (gmail)")
}

func TestCaseStudyService_InvalidRequest(t *testing.T) {
	svc, jobs := newTestCaseStudyService(t, &mockBackend{})

	req := testRequest(t)
	req.UserID = ""
	_, err := svc.Generate(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, jobs.history)
}

func TestCaseStudyService_UnknownModelFailsJob(t *testing.T) {
	svc, jobs := newTestCaseStudyService(t, &mockBackend{})

	req := testRequest(t)
	req.ModelName = "nope"
	_, err := svc.Generate(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	stored, err := jobs.Get(context.Background(), "job-42")
	require.NoError(t, err)
	assert.Equal(t, domain.JobFailed, stored.Status)
}

func TestCaseStudyService_ListJobs(t *testing.T) {
	svc, jobs := newTestCaseStudyService(t, &mockBackend{})
	now := time.Now()
	for i := range 3 {
		require.NoError(t, jobs.Save(context.Background(), domain.GenerationJob{
			ID: fmt.Sprintf("j%d", i), UserID: "alice", CreatedAt: now.Add(time.Duration(i) * time.Minute),
		}))
	}

	list, err := svc.ListJobs(context.Background(), "alice", 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "j2", list[0].ID)
}

func TestExtractResult(t *testing.T) {
	got := ExtractResult(sampleCaseStudy)
	assert.Equal(t, "The launch shipped on time.", got.ExecutiveSummary)
	assert.Len(t, got.KeyInsights, 2)
	assert.Len(t, got.Recommendations, 2)

	empty := ExtractResult("no structure here")
	assert.Empty(t, empty.ExecutiveSummary)
	assert.Nil(t, empty.KeyInsights)
}
