package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/custodia-labs/casebrief/internal/adapters/driven/ai"
	"github.com/custodia-labs/casebrief/internal/adapters/driven/auth"
	"github.com/custodia-labs/casebrief/internal/adapters/driven/config/file"
	"github.com/custodia-labs/casebrief/internal/adapters/driven/oauth"
	"github.com/custodia-labs/casebrief/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/casebrief/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/casebrief/internal/adapters/driving/cli"
	ghconn "github.com/custodia-labs/casebrief/internal/connectors/github"
	"github.com/custodia-labs/casebrief/internal/connectors/google"
	"github.com/custodia-labs/casebrief/internal/connectors/google/calendar"
	"github.com/custodia-labs/casebrief/internal/connectors/google/drive"
	"github.com/custodia-labs/casebrief/internal/connectors/google/gmail"
	"github.com/custodia-labs/casebrief/internal/core/domain"
	"github.com/custodia-labs/casebrief/internal/core/ports/driven"
	"github.com/custodia-labs/casebrief/internal/core/services"
	"github.com/custodia-labs/casebrief/internal/logger"
)

// llmTimeout bounds a whole streaming completion.
const llmTimeout = 10 * time.Minute

// stores groups the persistence ports.
type stores struct {
	credentials driven.CredentialStore
	jobs        driven.JobStore
	scheduler   driven.SchedulerStore
	close       func()
}

// wire builds the service graph for one CLI invocation.
func wire(_ context.Context, opts cli.Options) (*cli.Services, func(), error) {
	dir, err := resolveDataDir(opts.DataDir)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := file.NewConfigStore(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	prompts, err := file.NewPromptStore(filepath.Join(dir, "prompts"))
	if err != nil {
		return nil, nil, fmt.Errorf("prompt store: %w", err)
	}

	st, err := openStores(dir, opts.InMemory)
	if err != nil {
		return nil, nil, err
	}

	s := build(cfg, prompts, st)
	return s, st.close, nil
}

// build assembles services from already-opened adapters.
func build(cfg driven.ConfigStore, prompts driven.PromptStore, st stores) *cli.Services {
	registry := services.NewConnectorRegistry()
	registerConnectors(registry, cfg)

	refresher := oauth.NewRefresher()
	registerOAuthClients(refresher, cfg)

	tokens := services.NewTokenLifecycleManager(st.credentials, refresher)
	if buffer := cfg.GetDuration(driven.ConfigTokenRefreshBuffer); buffer > 0 {
		tokens.SetRefreshBuffer(buffer)
	}
	providers := auth.NewFactory(st.credentials)
	aggregator := services.NewAggregator(registry, tokens, st.credentials, providers)

	models := services.NewModelRegistry()
	catalog := ai.CreateModels(cfg, &http.Client{Timeout: llmTimeout})
	for _, m := range catalog.Models {
		models.Register(services.ModelBinding{Name: m.Name, ModelID: m.ModelID, Backend: m.Backend})
	}

	engine := services.NewGenerationEngine(models, services.NewPromptBuilder(prompts), services.NewJobStoreObserver(st.jobs))
	engine.SetQueueDepth(cfg.GetInt(driven.ConfigGenerationQueueDepth))

	caseStudy := services.NewCaseStudyService(tokens, aggregator, engine, st.jobs)
	caseStudy.SetDefaultBudget(cfg.GetInt(driven.ConfigSelectionBudget))
	caseStudy.SetDefaultResultCap(cfg.GetInt(driven.ConfigAggregationResultCap))

	schedCfg := domain.DefaultSchedulerConfig()
	schedCfg.SetInterval(domain.TaskIDTokenRefresh, cfg.GetDuration(driven.ConfigSchedulerRefreshEvery))

	return &cli.Services{
		CaseStudy:    caseStudy,
		Connections:  services.NewConnectionService(registry, st.credentials, tokens),
		Tokens:       tokens,
		Models:       models,
		Scheduler:    services.NewScheduler(schedCfg, st.scheduler, st.credentials, tokens),
		Settings:     cfg,
		DefaultModel: cfg.GetString(driven.ConfigGenerationModel),
		Warnings:     catalog.Warnings,
	}
}

func registerConnectors(registry *services.ConnectorRegistry, cfg driven.ConfigStore) {
	ghCfg := ghconn.DefaultConfig()
	ghCfg.Qualifiers = cfg.GetStringSlice(driven.ConfigGitHubQualifiers)

	types := []services.ConnectorType{
		{
			ID:           gmail.ServiceID,
			Name:         "Gmail",
			Description:  "Email threads matching the project keywords and participants",
			Capabilities: domain.CapEmail,
			Scopes:       gmail.Scopes,
			Build:        gmail.Builder(gmail.DefaultConfig(), google.Options{}),
		},
		{
			ID:           drive.ServiceID,
			Name:         "Google Drive",
			Description:  "Documents, spreadsheets and files with text previews",
			Capabilities: domain.CapDocument,
			Scopes:       drive.Scopes,
			Build:        drive.Builder(drive.DefaultConfig(), google.Options{}),
		},
		{
			ID:           calendar.ServiceID,
			Name:         "Google Calendar",
			Description:  "Meetings and events inside the project window",
			Capabilities: domain.CapEvent,
			Scopes:       calendar.Scopes,
			Build:        calendar.Builder(calendar.DefaultConfig(), google.Options{}),
		},
		{
			ID:           ghconn.ServiceID,
			Name:         "GitHub",
			Description:  "Issues and pull requests found by issue search",
			Capabilities: domain.CapTicket,
			Scopes:       ghconn.Scopes,
			Build:        ghconn.Builder(ghCfg, ghconn.Options{BaseURL: cfg.GetString(driven.ConfigGitHubAPIURL)}),
		},
	}
	for _, t := range types {
		if err := registry.Register(t); err != nil {
			logger.Warn("register connector %s: %v", t.ID, err)
		}
	}
}

// registerOAuthClients enables refresh for providers with a configured
// OAuth client. Without one, stored tokens are used until they expire.
func registerOAuthClients(refresher *oauth.Refresher, cfg driven.ConfigStore) {
	if id := cfg.GetString(driven.ConfigGoogleClientID); id != "" {
		secret := cfg.GetString(driven.ConfigGoogleClientSecret)
		refresher.Register(gmail.ServiceID, oauth.GoogleConfig(id, secret, gmail.Scopes))
		refresher.Register(drive.ServiceID, oauth.GoogleConfig(id, secret, drive.Scopes))
		refresher.Register(calendar.ServiceID, oauth.GoogleConfig(id, secret, calendar.Scopes))
	}
	if id := cfg.GetString(driven.ConfigGitHubClientID); id != "" {
		refresher.Register(ghconn.ServiceID,
			oauth.GitHubConfig(id, cfg.GetString(driven.ConfigGitHubClientSecret), ghconn.Scopes))
	}
}

func openStores(dir string, inMemory bool) (stores, error) {
	if inMemory {
		return stores{
			credentials: memory.NewCredentialStore(),
			jobs:        memory.NewJobStore(),
			scheduler:   memory.NewSchedulerStore(),
			close:       func() {},
		}, nil
	}

	db, err := sqlite.NewStore(filepath.Join(dir, "data"))
	if err != nil {
		return stores{}, fmt.Errorf("open database: %w", err)
	}
	return stores{
		credentials: db.CredentialStore(),
		jobs:        db.JobStore(),
		scheduler:   db.SchedulerStore(),
		close: func() {
			if err := db.Close(); err != nil {
				logger.Warn("close database: %v", err)
			}
		},
	}, nil
}

// resolveDataDir returns dir, or $CASEBRIEF_HOME, or ~/.casebrief.
func resolveDataDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	if env := os.Getenv("CASEBRIEF_HOME"); env != "" {
		return env, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home directory: %w", err)
	}
	return filepath.Join(home, ".casebrief"), nil
}
