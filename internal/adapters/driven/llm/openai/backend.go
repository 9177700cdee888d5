// Package openai streams chat completions from the OpenAI API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/custodia-labs/casebrief/internal/adapters/driven/llm"
	"github.com/custodia-labs/casebrief/internal/core/domain"
	"github.com/custodia-labs/casebrief/internal/core/ports/driven"
)

// Ensure Backend implements the interface.
var _ driven.ModelBackend = (*Backend)(nil)

// DefaultBaseURL is the public OpenAI endpoint.
const DefaultBaseURL = "https://api.openai.com/v1"

// Config holds configuration for the OpenAI backend.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Client is the HTTP client. It must not set a total timeout, since
	// streams stay open for the whole generation.
	Client *http.Client
}

// Backend streams completions from /chat/completions.
type Backend struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// chatCompletionRequest is the OpenAI /chat/completions request format.
type chatCompletionRequest struct {
	Model         string              `json:"model"`
	Messages      []chatCompletionMsg `json:"messages"`
	MaxTokens     int                 `json:"max_tokens,omitempty"`
	Temperature   float64             `json:"temperature"`
	Stream        bool                `json:"stream"`
	StreamOptions *streamOptions      `json:"stream_options,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// chatCompletionMsg is the OpenAI chat message format.
type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionChunk is one streamed chunk.
type chatCompletionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// New creates an OpenAI backend.
func New(cfg Config) (*Backend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai: API key is required", domain.ErrConfiguration)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	return &Backend{
		client:  cfg.Client,
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}, nil
}

// Provider returns "openai".
func (b *Backend) Provider() string { return "openai" }

// Stream starts a streaming chat completion.
func (b *Backend) Stream(ctx context.Context, req driven.StreamRequest) (driven.TokenStream, error) {
	msgs := make([]chatCompletionMsg, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = chatCompletionMsg{Role: m.Role, Content: m.Content}
	}

	body, err := json.Marshal(chatCompletionRequest{
		Model:         req.Model,
		Messages:      msgs,
		MaxTokens:     req.MaxTokens,
		Temperature:   req.Temperature,
		Stream:        true,
		StreamOptions: &streamOptions{IncludeUsage: true},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", domain.ErrConfiguration, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, llm.TransportError("openai", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, llm.StatusError("openai", resp)
	}

	return &stream{body: resp.Body, events: llm.NewEventReader(resp.Body)}, nil
}

// stream adapts an SSE body to driven.TokenStream.
type stream struct {
	body      io.ReadCloser
	events    *llm.EventReader
	closeOnce sync.Once
	done      bool
}

func (s *stream) Recv() (driven.StreamDelta, error) {
	for !s.done {
		ev, err := s.events.Next()
		if err == io.EOF {
			// The server closed without [DONE].
			return driven.StreamDelta{}, fmt.Errorf("%w: openai: stream ended early", domain.ErrTransport)
		}
		if err != nil {
			return driven.StreamDelta{}, llm.TransportError("openai", err)
		}
		if ev.Data == "[DONE]" {
			s.done = true
			break
		}

		var chunk chatCompletionChunk
		if err := json.Unmarshal([]byte(ev.Data), &chunk); err != nil {
			return driven.StreamDelta{}, fmt.Errorf("%w: openai: decode chunk: %w", domain.ErrGeneration, err)
		}
		if chunk.Error != nil {
			return driven.StreamDelta{}, fmt.Errorf("%w: openai: %s", domain.ErrGeneration, chunk.Error.Message)
		}

		var delta driven.StreamDelta
		if len(chunk.Choices) > 0 {
			delta.Text = chunk.Choices[0].Delta.Content
		}
		if chunk.Usage != nil {
			delta.Usage = &driven.TokenUsage{
				InputTokens:  chunk.Usage.PromptTokens,
				OutputTokens: chunk.Usage.CompletionTokens,
			}
		}
		if delta.Text != "" || delta.Usage != nil {
			return delta, nil
		}
	}
	return driven.StreamDelta{}, io.EOF
}

func (s *stream) Close() error {
	var err error
	s.closeOnce.Do(func() { err = s.body.Close() })
	return err
}
