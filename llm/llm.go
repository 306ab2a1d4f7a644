package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Request captures the normalized completion input produced by agents.
type Request struct {
	Model       string  `json:"model,omitempty"` // overrides the completer default when set
	System      string  `json:"system,omitempty"`
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

// Usage captures token usage statistics for a completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the completion returned by a provider.
type Response struct {
	Text  string `json:"text"`
	Model string `json:"model"` // model that actually produced the text
	Usage *Usage `json:"usage,omitempty"`
}

// Info contains metadata about a completer implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", etc.
}

// Completer is the minimal interface required by agents to drive generation.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the completer implementation.
	Info() Info
}

// MockCompleter is a lightweight in-memory Completer useful for tests &
// examples. Results are resolved in order: queued results first, then
// substring matches against the prompt, then a generic echo.
type MockCompleter struct {
	mu        sync.Mutex
	info      Info
	responses map[string]string
	queue     []mockResult
	calls     []Request
}

type mockResult struct {
	text string
	err  error
}

// NewMockCompleter constructs a MockCompleter.
func NewMockCompleter() *MockCompleter {
	return &MockCompleter{
		info:      Info{Name: "mock", Provider: "mock"},
		responses: make(map[string]string),
	}
}

// AddResponse registers a canned completion returned when the prompt or
// system instruction contains match.
func (m *MockCompleter) AddResponse(match, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.responses[match] = response
}

// EnqueueResponse appends a completion consumed by the next Complete call.
// Queued results take precedence over registered matches.
func (m *MockCompleter) EnqueueResponse(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queue = append(m.queue, mockResult{text: text})
}

// EnqueueError appends an error consumed by the next Complete call.
func (m *MockCompleter) EnqueueError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queue = append(m.queue, mockResult{err: err})
}

// Calls returns a copy of the requests received so far.
func (m *MockCompleter) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]Request(nil), m.calls...)
}

// Complete implements Completer.
func (m *MockCompleter) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, req)

	if len(m.queue) > 0 {
		next := m.queue[0]
		m.queue = m.queue[1:]

		if next.err != nil {
			return nil, next.err
		}

		return &Response{Text: next.text, Model: m.info.Name}, nil
	}

	for match, response := range m.responses {
		if strings.Contains(req.Prompt, match) || strings.Contains(req.System, match) {
			return &Response{Text: response, Model: m.info.Name}, nil
		}
	}

	return &Response{Text: fmt.Sprintf("Mock response to: %s", req.Prompt), Model: m.info.Name}, nil
}

// Info implements Completer.
func (m *MockCompleter) Info() Info { return m.info }

var _ Completer = (*MockCompleter)(nil)
