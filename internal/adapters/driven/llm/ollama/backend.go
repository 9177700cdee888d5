// Package ollama streams chat completions from a local Ollama server.
package ollama

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

// DefaultBaseURL is the default local Ollama address.
const DefaultBaseURL = "http://localhost:11434"

// Config holds configuration for the Ollama backend.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Client is the HTTP client. It must not set a total timeout.
	Client *http.Client
}

// Backend streams completions from /api/chat.
type Backend struct {
	client  *http.Client
	baseURL string
}

// chatRequest is the Ollama /api/chat request format.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  *options      `json:"options,omitempty"`
}

// options holds generation parameters.
type options struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature"`
}

// chatMessage is the Ollama chat message format.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatChunk is one NDJSON line of a streamed /api/chat response.
type chatChunk struct {
	Message         chatMessage `json:"message"`
	Done            bool        `json:"done"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
	Error           string      `json:"error"`
}

// New creates an Ollama backend.
func New(cfg Config) *Backend {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	return &Backend{
		client:  cfg.Client,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
	}
}

// Provider returns "ollama".
func (b *Backend) Provider() string { return "ollama" }

// Stream starts a streaming chat.
func (b *Backend) Stream(ctx context.Context, req driven.StreamRequest) (driven.TokenStream, error) {
	msgs := make([]chatMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = chatMessage{Role: m.Role, Content: m.Content}
	}

	body, err := json.Marshal(chatRequest{
		Model:    req.Model,
		Messages: msgs,
		Stream:   true,
		Options: &options{
			NumPredict:  req.MaxTokens,
			Temperature: req.Temperature,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", domain.ErrConfiguration, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, llm.TransportError("ollama", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, llm.StatusError("ollama", resp)
	}

	return &stream{body: resp.Body, lines: llm.NewLineReader(resp.Body)}, nil
}

// stream adapts an NDJSON body to driven.TokenStream.
type stream struct {
	body      io.ReadCloser
	lines     *llm.LineReader
	closeOnce sync.Once
	done      bool
}

func (s *stream) Recv() (driven.StreamDelta, error) {
	for !s.done {
		line, err := s.lines.Next()
		if err == io.EOF {
			return driven.StreamDelta{}, fmt.Errorf("%w: ollama: stream ended before done", domain.ErrTransport)
		}
		if err != nil {
			return driven.StreamDelta{}, llm.TransportError("ollama", err)
		}

		var chunk chatChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			return driven.StreamDelta{}, fmt.Errorf("%w: ollama: decode chunk: %w", domain.ErrGeneration, err)
		}
		if chunk.Error != "" {
			return driven.StreamDelta{}, fmt.Errorf("%w: ollama: %s", domain.ErrGeneration, chunk.Error)
		}

		delta := driven.StreamDelta{Text: chunk.Message.Content}
		if chunk.Done {
			s.done = true
			delta.Usage = &driven.TokenUsage{
				InputTokens:  chunk.PromptEvalCount,
				OutputTokens: chunk.EvalCount,
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
