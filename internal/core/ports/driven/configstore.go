package driven

import "time"

// ConfigStore provides access to application configuration.
// Implementations handle persistence (e.g., TOML files) and type conversion.
type ConfigStore interface {
	// Get retrieves a configuration value by key.
	// Returns the value and a boolean indicating if the key exists.
	Get(key string) (any, bool)

	// GetString retrieves a string configuration value.
	// Returns empty string if key doesn't exist or isn't a string.
	GetString(key string) string

	// GetInt retrieves an integer configuration value.
	// Returns 0 if key doesn't exist or isn't an integer.
	GetInt(key string) int

	// GetBool retrieves a boolean configuration value.
	GetBool(key string) bool

	// GetDuration parses a duration value such as "45m".
	// Returns 0 if key doesn't exist or doesn't parse.
	GetDuration(key string) time.Duration

	// GetStringSlice retrieves a string slice configuration value.
	GetStringSlice(key string) []string

	// Set stores a configuration value and persists it immediately.
	Set(key string, value any) error

	// Save persists the current configuration to storage.
	Save() error

	// Load reads configuration from storage.
	Load() error

	// Path returns the configuration file path.
	Path() string
}

// Well-known configuration keys.
const (
	ConfigOpenAIAPIKey          = "llm.openai.api_key"
	ConfigOpenAIBaseURL         = "llm.openai.base_url"
	ConfigAnthropicAPIKey       = "llm.anthropic.api_key"
	ConfigAnthropicBaseURL      = "llm.anthropic.base_url"
	ConfigOllamaBaseURL         = "llm.ollama.base_url"
	ConfigOllamaModels          = "llm.ollama.models"
	ConfigGoogleClientID        = "oauth.google.client_id"
	ConfigGoogleClientSecret    = "oauth.google.client_secret"
	ConfigGitHubClientID        = "oauth.github.client_id"
	ConfigGitHubClientSecret    = "oauth.github.client_secret"
	ConfigGitHubAPIURL          = "connectors.github.api_url"
	ConfigGitHubQualifiers      = "connectors.github.qualifiers"
	ConfigGenerationQueueDepth  = "generation.queue_depth"
	ConfigGenerationModel       = "generation.default_model"
	ConfigSelectionBudget       = "selection.budget"
	ConfigAggregationResultCap  = "aggregation.result_cap"
	ConfigSchedulerRefreshEvery = "scheduler.refresh_interval"
	ConfigTokenRefreshBuffer    = "scheduler.refresh_buffer"
)
