package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/casebrief/internal/core/domain"
	"github.com/custodia-labs/casebrief/internal/core/ports/driven"
)

// --- Credential store ---

// mockCredentialStore implements driven.CredentialStore for testing.
type mockCredentialStore struct {
	mu      sync.RWMutex
	creds   map[string]map[string]domain.ServiceCredential
	saves   int
	listErr error
	loadErr error
	saveErr error
}

func newMockCredentialStore() *mockCredentialStore {
	return &mockCredentialStore{creds: make(map[string]map[string]domain.ServiceCredential)}
}

func (m *mockCredentialStore) put(userID string, cred domain.ServiceCredential) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.creds[userID] == nil {
		m.creds[userID] = make(map[string]domain.ServiceCredential)
	}
	m.creds[userID][cred.ServiceID] = cred.Clone()
}

func (m *mockCredentialStore) get(userID, serviceID string) (domain.ServiceCredential, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.creds[userID][serviceID]
	return c, ok
}

func (m *mockCredentialStore) Load(_ context.Context, userID, serviceID string) (*domain.ServiceCredential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	c, ok := m.creds[userID][serviceID]
	if !ok {
		return nil, nil
	}
	out := c.Clone()
	return &out, nil
}

func (m *mockCredentialStore) Save(_ context.Context, userID string, cred domain.ServiceCredential) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.put(userID, cred)
	m.mu.Lock()
	m.saves++
	m.mu.Unlock()
	return nil
}

func (m *mockCredentialStore) Delete(_ context.Context, userID, serviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.creds[userID], serviceID)
	return nil
}

func (m *mockCredentialStore) ListServices(_ context.Context, userID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []string
	for id := range m.creds[userID] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (m *mockCredentialStore) ListUsers(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for id, creds := range m.creds {
		if len(creds) > 0 {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

// --- Token refresher ---

// mockRefresher implements driven.TokenRefresher for testing.
type mockRefresher struct {
	calls   atomic.Int32
	delay   time.Duration
	err     error
	expires time.Time
}

func (m *mockRefresher) Refresh(ctx context.Context, cred domain.ServiceCredential) (*domain.ServiceCredential, error) {
	n := m.calls.Add(1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	expires := m.expires
	return &domain.ServiceCredential{
		ServiceID:   cred.ServiceID,
		AccessToken: fmt.Sprintf("access-%d", n),
		ExpiresAt:   &expires,
	}, nil
}

// --- Token providers ---

// mockTokenProvider implements driven.TokenProvider for testing.
type mockTokenProvider struct {
	token string
}

func (m *mockTokenProvider) GetToken(_ context.Context) (string, error) { return m.token, nil }
func (m *mockTokenProvider) IsAuthenticated(_ context.Context) bool { return m.token != "" }
func (m *mockTokenProvider) IsExpired(_ context.Context) bool { return false }

// mockTokenProviderFactory implements driven.TokenProviderFactory for testing.
type mockTokenProviderFactory struct{}

func (mockTokenProviderFactory) TokenProvider(userID, serviceID string) driven.TokenProvider {
	return &mockTokenProvider{token: userID + "/" + serviceID}
}

// --- Token lifecycle ---

// mockTokenLifecycle implements driving.TokenLifecycle for testing.
type mockTokenLifecycle struct {
	invalid      map[string]error
	cleaned      []string
	calls        atomic.Int32
	ensureAll    atomic.Int32
	cleanupCalls atomic.Int32
}

func (m *mockTokenLifecycle) EnsureValid(_ context.Context, _, serviceID string) bool {
	m.calls.Add(1)
	_, bad := m.invalid[serviceID]
	return !bad
}

func (m *mockTokenLifecycle) EnsureAll(_ context.Context, _ string) map[string]bool {
	m.ensureAll.Add(1)
	out := map[string]bool{}
	for id := range m.invalid {
		out[id] = false
	}
	return out
}

func (m *mockTokenLifecycle) LastError(_, serviceID string) error {
	return m.invalid[serviceID]
}

func (m *mockTokenLifecycle) CleanupStale(_ context.Context, _ string) ([]string, error) {
	m.cleanupCalls.Add(1)
	return m.cleaned, nil
}

// --- Connectors ---

// mockConnector implements driven.Connector for testing.
type mockConnector struct {
	id     string
	items  []domain.ProjectDataItem
	err    error
	panics bool
	delay  time.Duration
	closed atomic.Bool
}

func (m *mockConnector) ServiceID() string { return m.id }
func (m *mockConnector) Capabilities() domain.ServiceCapability { return domain.CapEmail }
func (m *mockConnector) Scopes() []string { return nil }
func (m *mockConnector) IsConnected(_ context.Context) bool { return true }
func (m *mockConnector) IsExpired(_ context.Context) bool { return false }
func (m *mockConnector) Close() error {
	m.closed.Store(true)
	return nil
}

func (m *mockConnector) Fetch(ctx context.Context, _ domain.ProjectScope) (*domain.ServiceFetchResult, error) {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.panics {
		panic("connector exploded")
	}
	if m.err != nil {
		return nil, m.err
	}
	return &domain.ServiceFetchResult{
		Items:    m.items,
		Metadata: domain.ServiceFetchMetadata{Query: "q:" + m.id},
	}, nil
}

func registerMock(r *ConnectorRegistry, c *mockConnector) {
	_ = r.Register(ConnectorType{
		ID:     c.id,
		Name:   c.id,
		Scopes: []string{"scope." + c.id},
		Build: func(_ string, _ driven.TokenProvider) (driven.Connector, error) {
			return c, nil
		},
	})
}

// --- Model backend ---

// mockBackend implements driven.ModelBackend for testing. Each call to
// Stream replays chunks, then ends with err or io.EOF.
type mockBackend struct {
	chunks    []string
	err       error
	startErr  error
	usage     *driven.TokenUsage
	lastReq   driven.StreamRequest
	streams   []*mockStream
	blockAt   int
	streamsMu sync.Mutex
}

func (m *mockBackend) Provider() string { return "mock" }

func (m *mockBackend) Stream(ctx context.Context, req driven.StreamRequest) (driven.TokenStream, error) {
	m.streamsMu.Lock()
	defer m.streamsMu.Unlock()
	m.lastReq = req
	if m.startErr != nil {
		return nil, m.startErr
	}
	s := &mockStream{ctx: ctx, chunks: m.chunks, err: m.err, usage: m.usage, blockAt: m.blockAt}
	m.streams = append(m.streams, s)
	return s, nil
}

func (m *mockBackend) stream(i int) *mockStream {
	m.streamsMu.Lock()
	defer m.streamsMu.Unlock()
	return m.streams[i]
}

// mockStream implements driven.TokenStream for testing. When blockAt is
// positive the stream blocks on its context after that many chunks.
type mockStream struct {
	ctx     context.Context
	chunks  []string
	pos     int
	err     error
	usage   *driven.TokenUsage
	blockAt int
	closed  atomic.Bool
}

func (s *mockStream) Recv() (driven.StreamDelta, error) {
	if s.blockAt > 0 && s.pos == s.blockAt {
		<-s.ctx.Done()
		return driven.StreamDelta{}, s.ctx.Err()
	}
	if s.pos < len(s.chunks) {
		s.pos++
		return driven.StreamDelta{Text: s.chunks[s.pos-1]}, nil
	}
	if s.err != nil {
		return driven.StreamDelta{}, s.err
	}
	if s.usage != nil {
		u := s.usage
		s.usage = nil
		return driven.StreamDelta{Usage: u}, nil
	}
	return driven.StreamDelta{}, io.EOF
}

func (s *mockStream) Close() error {
	s.closed.Store(true)
	return nil
}

// --- Prompt store ---

// mockPromptStore implements driven.PromptStore for testing.
type mockPromptStore struct {
	prompts map[string]string
}

func newMockPromptStore() *mockPromptStore {
	return &mockPromptStore{prompts: map[string]string{
		driven.PromptSystemBase:        "BASE",
		driven.PromptTemplateTechnical: "TECHNICAL",
		driven.PromptTemplateMarketing: "MARKETING",
		driven.PromptTemplateProduct:   "PRODUCT",
		driven.PromptUserPreamble:      "Write a case study for {project}.",
	}}
}

func (m *mockPromptStore) Load(name string) (string, error) {
	p, ok := m.prompts[name]
	if !ok {
		return "", fmt.Errorf("prompt %q: %w", name, domain.ErrNotFound)
	}
	return p, nil
}

func (m *mockPromptStore) Reload() {}

// --- Job store ---

// mockJobStore implements driven.JobStore and records every save.
type mockJobStore struct {
	mu      sync.Mutex
	jobs    map[string]domain.GenerationJob
	history []domain.GenerationJob
}

func newMockJobStore() *mockJobStore {
	return &mockJobStore{jobs: make(map[string]domain.GenerationJob)}
}

func (m *mockJobStore) Save(_ context.Context, job domain.GenerationJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
	m.history = append(m.history, job)
	return nil
}

func (m *mockJobStore) Get(_ context.Context, id string) (*domain.GenerationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &j, nil
}

func (m *mockJobStore) List(_ context.Context, userID string, limit int) ([]domain.GenerationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.GenerationJob
	for _, j := range m.jobs {
		if j.UserID == userID {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockJobStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
	return nil
}

func (m *mockJobStore) statuses() []domain.JobStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.JobStatus
	for _, j := range m.history {
		out = append(out, j.Status)
	}
	return out
}

var errBoom = errors.New("boom")
