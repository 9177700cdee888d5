// Package anthropic streams messages from the Anthropic API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/custodia-labs/casebrief/internal/adapters/driven/llm"
	"github.com/custodia-labs/casebrief/internal/core/domain"
	"github.com/custodia-labs/casebrief/internal/core/ports/driven"
)

// Ensure Backend implements the interface.
var _ driven.ModelBackend = (*Backend)(nil)

const (
	// DefaultBaseURL is the public Anthropic endpoint.
	DefaultBaseURL = "https://api.anthropic.com"

	// anthropicVersion is the required API version header.
	anthropicVersion = "2023-06-01"

	// defaultMaxTokens is sent when the request leaves MaxTokens unset;
	// the API requires the field.
	defaultMaxTokens = 4000
)

// Config holds configuration for the Anthropic backend.
type Config struct {
	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.anthropic.com).
	BaseURL string

	// Client is the HTTP client. It must not set a total timeout.
	Client *http.Client
}

// Backend streams completions from /v1/messages.
type Backend struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// messagesRequest is the Anthropic /v1/messages request format.
type messagesRequest struct {
	Model       string            `json:"model"`
	Messages    []messagesMessage `json:"messages"`
	MaxTokens   int               `json:"max_tokens"`
	System      string            `json:"system,omitempty"`
	Temperature float64           `json:"temperature"`
	Stream      bool              `json:"stream"`
}

// messagesMessage is the Anthropic message format.
type messagesMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// streamEvent covers the fields used from every event type.
type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Message struct {
		Usage struct {
			InputTokens int `json:"input_tokens"`
		} `json:"usage"`
	} `json:"message"`
	Usage struct {
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// New creates an Anthropic backend.
func New(cfg Config) (*Backend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: anthropic: API key is required", domain.ErrConfiguration)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	return &Backend{
		client:  cfg.Client,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
	}, nil
}

// Provider returns "anthropic".
func (b *Backend) Provider() string { return "anthropic" }

// Stream starts a streaming message. System messages are joined into the
// top-level system field.
func (b *Backend) Stream(ctx context.Context, req driven.StreamRequest) (driven.TokenStream, error) {
	var system []string
	var msgs []messagesMessage
	for _, m := range req.Messages {
		if m.Role == "system" {
			system = append(system, m.Content)
			continue
		}
		msgs = append(msgs, messagesMessage{Role: m.Role, Content: m.Content})
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	body, err := json.Marshal(messagesRequest{
		Model:       req.Model,
		Messages:    msgs,
		MaxTokens:   maxTokens,
		System:      strings.Join(system, "\n\n"),
		Temperature: req.Temperature,
		Stream:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", domain.ErrConfiguration, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("x-api-key", b.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, llm.TransportError("anthropic", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, llm.StatusError("anthropic", resp)
	}

	return &stream{body: resp.Body, events: llm.NewEventReader(resp.Body)}, nil
}

// stream adapts the Anthropic event stream to driven.TokenStream.
// Usage arrives in two parts: input tokens on message_start and output
// tokens on message_delta.
type stream struct {
	body      io.ReadCloser
	events    *llm.EventReader
	closeOnce sync.Once
	input     int
	done      bool
}

func (s *stream) Recv() (driven.StreamDelta, error) {
	for !s.done {
		ev, err := s.events.Next()
		if err == io.EOF {
			return driven.StreamDelta{}, fmt.Errorf("%w: anthropic: stream ended before message_stop", domain.ErrTransport)
		}
		if err != nil {
			return driven.StreamDelta{}, llm.TransportError("anthropic", err)
		}

		var e streamEvent
		if err := json.Unmarshal([]byte(ev.Data), &e); err != nil {
			return driven.StreamDelta{}, fmt.Errorf("%w: anthropic: decode event: %w", domain.ErrGeneration, err)
		}

		switch e.Type {
		case "message_start":
			s.input = e.Message.Usage.InputTokens
		case "content_block_delta":
			if e.Delta.Type == "text_delta" && e.Delta.Text != "" {
				return driven.StreamDelta{Text: e.Delta.Text}, nil
			}
		case "message_delta":
			if e.Usage.OutputTokens > 0 {
				return driven.StreamDelta{Usage: &driven.TokenUsage{
					InputTokens:  s.input,
					OutputTokens: e.Usage.OutputTokens,
				}}, nil
			}
		case "message_stop":
			s.done = true
		case "error":
			kind := domain.ErrGeneration
			if e.Error.Type == "overloaded_error" || e.Error.Type == "api_error" {
				kind = domain.ErrTransport
			}
			return driven.StreamDelta{}, fmt.Errorf("%w: anthropic: %s: %s", kind, e.Error.Type, e.Error.Message)
		}
	}
	return driven.StreamDelta{}, io.EOF
}

func (s *stream) Close() error {
	var err error
	s.closeOnce.Do(func() { err = s.body.Close() })
	return err
}
