// Package file provides filesystem-backed implementations of driven ports.
//
// ConfigStore reads ~/.casebrief/config.toml. Any key can be overridden
// from the environment as CASEBRIEF_<KEY>, with dots written as
// underscores; the provider API keys also honour OPENAI_API_KEY,
// ANTHROPIC_API_KEY and OLLAMA_HOST. PromptStore serves the
// user-editable prompt files under ~/.casebrief/prompts.
package file
