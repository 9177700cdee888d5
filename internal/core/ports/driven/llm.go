package driven

import "context"

// ModelBackend streams completions from a language model provider.
//
// Implementations include:
//   - OpenAI (GPT-4, GPT-3.5)
//   - Anthropic (Claude)
//   - Ollama (local models)
type ModelBackend interface {
	// Stream starts a completion and returns its incremental output.
	// Failures to start wrap domain.ErrConfiguration (bad key, unknown
	// model) or domain.ErrTransport.
	Stream(ctx context.Context, req StreamRequest) (TokenStream, error)

	// Provider returns the provider name, e.g. "openai".
	Provider() string
}

// TokenStream yields text deltas until io.EOF.
// A TokenStream is consumed by a single goroutine.
type TokenStream interface {
	// Recv blocks until the next delta. It returns io.EOF after the last
	// delta; any other error wraps domain.ErrGeneration or domain.ErrTransport.
	Recv() (StreamDelta, error)

	// Close releases the underlying connection. Safe to call more than once.
	Close() error
}

// StreamRequest describes one completion.
type StreamRequest struct {
	// Model is the provider's model identifier.
	Model string

	// Messages in conversation order, system message first.
	Messages []ChatMessage

	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// StreamDelta is one increment of generated text.
type StreamDelta struct {
	Text string

	// Usage is set on the delta that carries provider-reported token counts.
	Usage *TokenUsage
}

// TokenUsage reports token consumption.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
}
