package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/custodia-labs/casebrief/internal/core/domain"
	"github.com/custodia-labs/casebrief/internal/core/ports/driving"
)

// setupServices installs s and clears bootstrap and flag state. The
// returned function restores the previous state.
func setupServices(t *testing.T, s *Services) func() {
	t.Helper()
	oldServices, oldBootstrap, oldUser := services, bootstrap, userID
	SetServices(s)
	bootstrap = nil
	userID = "alice"
	resetFlags()
	return func() {
		services, bootstrap, userID = oldServices, oldBootstrap, oldUser
		resetFlags()
	}
}

func resetFlags() {
	genProject, genFrom, genTo, genModel, genInstructions = "", "", "", "", ""
	genTemplate = string(domain.TemplateComprehensive)
	genKeywords, genParticipants = nil, nil
	genBudget, genResultCap = 0, 0
	genJSON = false
	connJSON = false
	connAccessToken, connRefreshToken = "", ""
	connExpiresIn = time.Hour
	connScopes = nil
	jobsJSON = false
	jobsLimit = 20
	refreshWatch, refreshCleanup, refreshHistory = false, false, 0
	dataDir, inMemory = "", false
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// fakeRun replays a fixed event sequence.
type fakeRun struct {
	events    chan domain.StreamingEvent
	job       domain.GenerationJob
	cancelled bool
}

func newFakeRun(job domain.GenerationJob, events ...domain.StreamingEvent) *fakeRun {
	ch := make(chan domain.StreamingEvent, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	return &fakeRun{events: ch, job: job}
}

func (r *fakeRun) Events() <-chan domain.StreamingEvent { return r.events }
func (r *fakeRun) Job() domain.GenerationJob            { return r.job }
func (r *fakeRun) Wait() domain.GenerationJob           { return r.job }
func (r *fakeRun) Close()                               {}
func (r *fakeRun) Cancel() error {
	r.cancelled = true
	return nil
}

// mockCaseStudy implements driving.CaseStudyService.
type mockCaseStudy struct {
	run     *fakeRun
	err     error
	request domain.CaseStudyRequest
	jobs    []domain.GenerationJob
}

func (m *mockCaseStudy) Generate(_ context.Context, req domain.CaseStudyRequest) (driving.GenerationRun, error) {
	m.request = req
	if m.err != nil {
		return nil, m.err
	}
	return m.run, nil
}

func (m *mockCaseStudy) GetJob(_ context.Context, id string) (*domain.GenerationJob, error) {
	for _, j := range m.jobs {
		if j.ID == id {
			return &j, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockCaseStudy) ListJobs(_ context.Context, userID string, limit int) ([]domain.GenerationJob, error) {
	var out []domain.GenerationJob
	for _, j := range m.jobs {
		if j.UserID == userID && len(out) < limit {
			out = append(out, j)
		}
	}
	return out, nil
}

// mockConnections implements driving.ConnectionService.
type mockConnections struct {
	infos        []domain.ServiceConnectionInfo
	connected    []domain.ServiceCredential
	disconnected []string
}

func (m *mockConnections) Status(context.Context, string) ([]domain.ServiceConnectionInfo, error) {
	return m.infos, nil
}

func (m *mockConnections) Connect(_ context.Context, _ string, cred domain.ServiceCredential) error {
	m.connected = append(m.connected, cred)
	return nil
}

func (m *mockConnections) Disconnect(_ context.Context, _, serviceID string) error {
	m.disconnected = append(m.disconnected, serviceID)
	return nil
}

func (m *mockConnections) Scopes(...string) []string {
	return []string{"scope-a", "scope-b"}
}

// mockTokens implements driving.TokenLifecycle.
type mockTokens struct {
	results map[string]bool
	errs    map[string]error
	removed []string
}

func (m *mockTokens) EnsureValid(_ context.Context, _, serviceID string) bool {
	return m.results[serviceID]
}

func (m *mockTokens) EnsureAll(context.Context, string) map[string]bool {
	return m.results
}

func (m *mockTokens) LastError(_, serviceID string) error {
	return m.errs[serviceID]
}

func (m *mockTokens) CleanupStale(context.Context, string) ([]string, error) {
	return m.removed, nil
}

// mockModels implements driving.ModelCatalog.
type mockModels struct {
	models []driving.ModelInfo
}

func (m *mockModels) Models() []driving.ModelInfo {
	return m.models
}
