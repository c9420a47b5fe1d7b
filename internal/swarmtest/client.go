// Package swarmtest provides a scripted chat completion client for tests.
package swarmtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/openai/openai-go"
)

// ErrScriptExhausted is returned when more completions are requested than scripted.
var ErrScriptExhausted = errors.New("no scripted completion left")

// MockClient replays scripted completions in order and records every request.
//
// MockClient is safe for concurrent use by multiple goroutines.
type MockClient struct {
	mu        sync.Mutex
	responses []*openai.ChatCompletion
	requests  []openai.ChatCompletionNewParams
	err       error
}

// NewMockClient returns a client that answers with responses in order.
func NewMockClient(responses ...*openai.ChatCompletion) *MockClient {
	return &MockClient{responses: responses}
}

// CreateChatCompletion pops the next scripted completion.
func (m *MockClient) CreateChatCompletion(_ context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, params)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.responses) == 0 {
		return nil, ErrScriptExhausted
	}
	next := m.responses[0]
	m.responses = m.responses[1:]
	return next, nil
}

// Enqueue appends completions to the script.
func (m *MockClient) Enqueue(responses ...*openai.ChatCompletion) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, responses...)
}

// SetError makes every following request fail with err.
func (m *MockClient) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Requests returns the parameters of all requests made so far.
func (m *MockClient) Requests() []openai.ChatCompletionNewParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]openai.ChatCompletionNewParams, len(m.requests))
	copy(out, m.requests)
	return out
}

// Text builds a completion that answers with content.
func Text(content string) *openai.ChatCompletion {
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{Content: content},
		}},
	}
}

// ToolCalls builds a completion that requests the given tool calls.
func ToolCalls(calls ...openai.ChatCompletionMessageToolCall) *openai.ChatCompletion {
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{ToolCalls: calls},
		}},
	}
}

// Call builds a tool call. args is JSON encoded unless it already is a string.
func Call(id, name string, args interface{}) openai.ChatCompletionMessageToolCall {
	raw, ok := args.(string)
	if !ok {
		raw = ToJSON(args)
	}
	return openai.ChatCompletionMessageToolCall{
		ID: id,
		Function: openai.ChatCompletionMessageToolCallFunction{
			Name:      name,
			Arguments: raw,
		},
	}
}

// ToJSON converts a value to a JSON string and panics on failure.
func ToJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("swarmtest: %v", err))
	}
	return string(b)
}

// Instructions returns the text of the first message of a request, which
// carries the agent's instructions as either a system or a user message.
func Instructions(params openai.ChatCompletionNewParams) string {
	if len(params.Messages) == 0 {
		return ""
	}
	first := params.Messages[0]
	switch {
	case first.OfSystem != nil:
		return first.OfSystem.Content.OfString.Value
	case first.OfUser != nil:
		return first.OfUser.Content.OfString.Value
	}
	return ""
}

// ToolNames returns the names of the tools advertised in a request.
func ToolNames(params openai.ChatCompletionNewParams) []string {
	names := make([]string, 0, len(params.Tools))
	for _, t := range params.Tools {
		names = append(names, t.Function.Name)
	}
	return names
}
