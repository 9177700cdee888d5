// Package ai builds the model catalogue from configuration.
package ai

import (
	"fmt"
	"net/http"

	anthropicllm "github.com/custodia-labs/casebrief/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/casebrief/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/casebrief/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/casebrief/internal/core/ports/driven"
)

// OllamaPrefix prefixes catalogue names of local Ollama models.
const OllamaPrefix = "ollama:"

// defaultOllamaModels is used when a base URL is set but no models are listed.
var defaultOllamaModels = []string{"llama3"}

// Model is one catalogue entry.
type Model struct {
	Name    string // Catalogue name, e.g. "gpt-4".
	ModelID string // Provider model identifier.
	Backend driven.ModelBackend
}

// InitResult contains the result of catalogue construction.
type InitResult struct {
	Models   []Model
	Warnings []string // Non-fatal issues, e.g. a provider that failed to build.
}

// CreateModels builds catalogue entries for every provider with credentials
// in cfg. Providers without credentials are skipped silently. client may
// be nil.
func CreateModels(cfg driven.ConfigStore, client *http.Client) InitResult {
	var result InitResult

	if key := cfg.GetString(driven.ConfigOpenAIAPIKey); key != "" {
		backend, err := createOpenAI(cfg, key, client)
		if err != nil {
			result.Warnings = append(result.Warnings, err.Error())
		} else {
			result.Models = append(result.Models,
				Model{Name: "gpt-4", ModelID: "gpt-4-1106-preview", Backend: backend},
				Model{Name: "gpt-3.5-turbo", ModelID: "gpt-3.5-turbo-1106", Backend: backend},
			)
		}
	}

	if key := cfg.GetString(driven.ConfigAnthropicAPIKey); key != "" {
		backend, err := createAnthropic(cfg, key, client)
		if err != nil {
			result.Warnings = append(result.Warnings, err.Error())
		} else {
			result.Models = append(result.Models,
				Model{Name: "claude-3-sonnet", ModelID: "claude-3-sonnet-20240229", Backend: backend},
				Model{Name: "claude-3-haiku", ModelID: "claude-3-haiku-20240307", Backend: backend},
			)
		}
	}

	if baseURL := cfg.GetString(driven.ConfigOllamaBaseURL); baseURL != "" {
		backend := ollamallm.New(ollamallm.Config{BaseURL: baseURL, Client: client})
		models := cfg.GetStringSlice(driven.ConfigOllamaModels)
		if len(models) == 0 {
			models = defaultOllamaModels
		}
		for _, m := range models {
			if m == "" {
				continue
			}
			result.Models = append(result.Models, Model{Name: OllamaPrefix + m, ModelID: m, Backend: backend})
		}
	}

	return result
}

// createOpenAI creates an OpenAI backend.
func createOpenAI(cfg driven.ConfigStore, key string, client *http.Client) (driven.ModelBackend, error) {
	b, err := openaillm.New(openaillm.Config{
		APIKey:  key,
		BaseURL: cfg.GetString(driven.ConfigOpenAIBaseURL),
		Client:  client,
	})
	if err != nil {
		return nil, fmt.Errorf("openai models unavailable: %w", err)
	}
	return b, nil
}

// createAnthropic creates an Anthropic backend.
func createAnthropic(cfg driven.ConfigStore, key string, client *http.Client) (driven.ModelBackend, error) {
	b, err := anthropicllm.New(anthropicllm.Config{
		APIKey:  key,
		BaseURL: cfg.GetString(driven.ConfigAnthropicBaseURL),
		Client:  client,
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic models unavailable: %w", err)
	}
	return b, nil
}
